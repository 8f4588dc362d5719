// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiowire

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/GermanBionicSystems/bitbus/i2cmaster"
)

func TestSharedPin(t *testing.T) {
	scl := &gpiotest.Pin{N: "SCL", Num: 1}
	sda := &gpiotest.Pin{N: "SDA", Num: 2}
	w, err := New(scl, sda)
	if err != nil {
		t.Fatal(err)
	}
	if scl.L != gpio.High {
		t.Error("SCL should park high")
	}

	w.SetSCL(gpio.Low)
	if scl.L != gpio.Low {
		t.Error("SetSCL(Low) did not reach the pin")
	}
	w.SetSCL(gpio.High)
	if scl.L != gpio.High {
		t.Error("SetSCL(High) did not reach the pin")
	}

	// Open-drain discipline: drive only ever pulls low; release turns the
	// pin into a pulled-up input.
	w.SetSDA(i2cmaster.DriveLow)
	if sda.L != gpio.Low {
		t.Error("DriveLow did not pull the pin low")
	}
	w.SetSDA(i2cmaster.Release)
	if sda.P != gpio.PullUp {
		t.Errorf("released SDA pull = %s, want PullUp", sda.P)
	}

	sda.L = gpio.High
	if w.SDA() != gpio.High {
		t.Error("SDA() did not read the pin")
	}
	sda.L = gpio.Low
	if w.SDA() != gpio.Low {
		t.Error("SDA() did not read the peer-driven low")
	}

	if w.Err() != nil {
		t.Errorf("sticky error: %v", w.Err())
	}
	if w.String() == "" {
		t.Error("String() empty")
	}
}

func TestSplitPins(t *testing.T) {
	scl := &gpiotest.Pin{N: "SCL", Num: 1}
	out := &gpiotest.Pin{N: "SDAOUT", Num: 2}
	in := &gpiotest.Pin{N: "SDAIN", Num: 3}
	w, err := NewSplit(scl, out, in)
	if err != nil {
		t.Fatal(err)
	}

	w.SetSDA(i2cmaster.DriveLow)
	if out.L != gpio.Low {
		t.Error("DriveLow did not reach the out signal")
	}
	w.SetSDA(i2cmaster.Release)
	if out.L != gpio.High {
		t.Error("Release should raise the out signal")
	}

	in.L = gpio.Low
	if w.SDA() != gpio.Low {
		t.Error("SDA() did not read the in signal")
	}
	if w.String() == "" {
		t.Error("String() empty")
	}
}

func TestNilPins(t *testing.T) {
	if _, err := New(nil, &gpiotest.Pin{}); err == nil {
		t.Error("nil SCL accepted")
	}
	if _, err := NewSplit(&gpiotest.Pin{}, nil, &gpiotest.Pin{}); err == nil {
		t.Error("nil SDA out accepted")
	}
}
