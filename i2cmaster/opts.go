// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package i2cmaster

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// Opts holds the engine configuration. Both rates are fixed for the life
// of the engine; all line timing derives from their ratio, never from
// wall-clock time.
type Opts struct {
	// ClockRate is the rate at which the caller promises to call Tick.
	ClockRate physic.Frequency
	// BitRate is the target bit rate on the bus.
	BitRate physic.Frequency
}

// DefaultOpts runs a standard-mode 100kHz bus from a 1MHz tick source.
var DefaultOpts = Opts{
	ClockRate: 1 * physic.MegaHertz,
	BitRate:   100 * physic.KiloHertz,
}

// minTickRatio is the smallest usable ClockRate/BitRate ratio. Below two
// ticks per half bit there is no room for distinct setup and sample points
// within a bit cell.
const minTickRatio = 4

// timing is the tick schedule derived from Opts: the half-bit period in
// ticks and the two named offsets within it. setupTick falls in the low
// half of the clock and is where the next bit is driven (or a STOP is
// initiated); sampleTick falls in the high half and is where an incoming
// bit is read.
type timing struct {
	ticksPerHalfBit int
	setupTick       int
	sampleTick      int
}

func (o *Opts) timing() (timing, error) {
	if o.ClockRate <= 0 || o.BitRate <= 0 {
		return timing{}, fmt.Errorf("i2cmaster: rates must be positive, got clock %s and bit %s", o.ClockRate, o.BitRate)
	}
	if o.ClockRate/o.BitRate < minTickRatio {
		return timing{}, fmt.Errorf("i2cmaster: clock rate %s must be at least %d times the bit rate %s", o.ClockRate, minTickRatio, o.BitRate)
	}
	var t timing
	t.ticksPerHalfBit = int((o.ClockRate + o.BitRate) / (2 * o.BitRate))
	t.setupTick = t.ticksPerHalfBit / 2
	t.sampleTick = t.ticksPerHalfBit - 1
	return t, nil
}
