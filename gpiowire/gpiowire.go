// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpiowire attaches an i2cmaster engine to GPIO pins.
//
// SDA is kept open-drain: the wire never drives the pin high. In shared-pin
// mode a released SDA is a pulled-up input and a driven SDA is an output
// low; in split-pin mode a dedicated output signal carries the decision
// (high meaning released) and a separate input signal is read back, the
// arrangement simulators and FPGA pin blocks expect. Both modes behave
// identically on the bus.
package gpiowire

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/bitbus/i2cmaster"
)

// Wire drives a clock pin and a data pin for an i2cmaster engine.
//
// Pin errors cannot surface through the tick path, so the first one is
// latched and reported by Err; the wire keeps accepting calls so the
// engine's state stays coherent.
type Wire struct {
	scl    gpio.PinIO
	sdaOut gpio.PinIO
	sdaIn  gpio.PinIO
	shared bool
	err    error
}

// New returns a Wire with a single, shared bidirectional SDA pin. The pin
// is switched between output low and pulled-up input as the engine drives
// and releases the line.
func New(scl, sda gpio.PinIO) (*Wire, error) {
	if scl == nil || sda == nil {
		return nil, errors.New("gpiowire: nil pin")
	}
	w := &Wire{scl: scl, sdaOut: sda, sdaIn: sda, shared: true}
	return w, w.park()
}

// NewSplit returns a Wire with separate SDA out and in signals.
func NewSplit(scl, sdaOut, sdaIn gpio.PinIO) (*Wire, error) {
	if scl == nil || sdaOut == nil || sdaIn == nil {
		return nil, errors.New("gpiowire: nil pin")
	}
	w := &Wire{scl: scl, sdaOut: sdaOut, sdaIn: sdaIn}
	return w, w.park()
}

// park puts both lines in the idle, released-high state.
func (w *Wire) park() error {
	if err := w.scl.Out(gpio.High); err != nil {
		return fmt.Errorf("gpiowire: configuring SCL %s: %v", w.scl, err)
	}
	w.release()
	return w.err
}

// String implements fmt.Stringer.
func (w *Wire) String() string {
	if w.shared {
		return fmt.Sprintf("gpiowire{SCL:%s, SDA:%s}", w.scl, w.sdaIn)
	}
	return fmt.Sprintf("gpiowire{SCL:%s, SDAout:%s, SDAin:%s}", w.scl, w.sdaOut, w.sdaIn)
}

// SetSCL implements i2cmaster.Wire.
func (w *Wire) SetSCL(l gpio.Level) {
	w.sticky(w.scl.Out(l))
}

// SetSDA implements i2cmaster.Wire.
func (w *Wire) SetSDA(d i2cmaster.Drive) {
	if d == i2cmaster.DriveLow {
		w.sticky(w.sdaOut.Out(gpio.Low))
		return
	}
	w.release()
}

// SDA implements i2cmaster.Wire.
func (w *Wire) SDA() gpio.Level {
	return w.sdaIn.Read()
}

// Err returns the first pin error seen since construction.
func (w *Wire) Err() error { return w.err }

func (w *Wire) release() {
	if w.shared {
		w.sticky(w.sdaOut.In(gpio.PullUp, gpio.NoEdge))
		return
	}
	// The out signal is a decision, not a bus level; high means released.
	w.sticky(w.sdaOut.Out(gpio.High))
}

func (w *Wire) sticky(err error) {
	if err != nil && w.err == nil {
		w.err = err
	}
}
