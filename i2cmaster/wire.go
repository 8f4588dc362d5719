// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package i2cmaster

import "periph.io/x/conn/v3/gpio"

// Drive is the decision an open-drain driver makes for a line: actively
// pull it low, or release it and let the pull-up or another driver decide
// the level.
type Drive uint8

const (
	// Release lets the line float. It reads high unless some other driver
	// pulls it low.
	Release Drive = iota
	// DriveLow actively pulls the line to ground.
	DriveLow
)

// String implements fmt.Stringer.
func (d Drive) String() string {
	if d == DriveLow {
		return "DriveLow"
	}
	return "Release"
}

// Wire is the engine's attachment to the physical bus.
//
// SCL receives a plain level: the engine is the sole clock source, so the
// clock line is push-type. SDA receives a drive/release decision and reads
// back the resolved line level; how the resolution happens (a pull-up on a
// real pin, or a wired-AND in a simulated net) is the implementation's
// business.
//
// gpiowire implements Wire on gpio.PinIO pins; i2cmastertest.Net implements
// it as an in-memory bus with simulated devices.
type Wire interface {
	// SetSCL sets the clock line level.
	SetSCL(l gpio.Level)
	// SetSDA applies the engine's drive decision to the data line.
	SetSDA(d Drive)
	// SDA returns the resolved level of the data line.
	SDA() gpio.Level
}
