// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package softbus presents an i2cmaster engine as a standard i2c.Bus, so
// ordinary device drivers can run over the software-defined bus without
// knowing it is one.
//
// The bus runs the engine's tick loop synchronously inside Tx, servicing
// the byte handshakes between ticks. Addresses above 0x7F use 10-bit
// framing. A register read, the common w=[reg] then read shape, is carried
// out with a repeated START; a general write-then-read with more than one
// written byte is not expressible on this engine and is rejected.
package softbus

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/bitbus/gpiowire"
	"github.com/GermanBionicSystems/bitbus/i2cmaster"
)

var (
	// ErrNoDevice signals that no device acknowledged the address.
	ErrNoDevice = errors.New("softbus: no device acknowledged the address")
	// ErrNACK signals that the device stopped acknowledging mid
	// transaction.
	ErrNACK = errors.New("softbus: NACK received")
)

// Bus drives an i2cmaster engine behind the i2c.Bus interface. It is safe
// for concurrent use; a mutex holds the bus for the duration of each
// transaction.
type Bus struct {
	mu   sync.Mutex
	wire i2cmaster.Wire
	eng  *i2cmaster.Engine
	opts i2cmaster.Opts
}

// New builds a bus over w, runs the engine's priming train to completion
// and returns the bus ready for traffic.
func New(w i2cmaster.Wire, opts *i2cmaster.Opts) (*Bus, error) {
	if opts == nil {
		opts = &i2cmaster.DefaultOpts
	}
	eng, err := i2cmaster.New(w, opts)
	if err != nil {
		return nil, err
	}
	b := &Bus{wire: w, eng: eng, opts: *opts}
	b.settle()
	return b, nil
}

// String implements conn.Resource.
func (b *Bus) String() string {
	return fmt.Sprintf("softbus{%s}", b.opts.BitRate)
}

// Close implements i2c.BusCloser. The lines are left parked high.
func (b *Bus) Close() error { return nil }

// Duplex implements conn.Conn.
func (b *Bus) Duplex() conn.Duplex { return conn.Half }

// SetSpeed implements i2c.Bus. The engine is rebuilt with the new bit
// rate, which re-runs the priming train.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("softbus: invalid speed %s", f)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.opts
	o.BitRate = f
	eng, err := i2cmaster.New(b.wire, &o)
	if err != nil {
		return err
	}
	b.opts = o
	b.eng = eng
	b.settle()
	return nil
}

// Tx implements i2c.Bus.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	req := i2cmaster.Request{Addr: addr}
	if addr > 0x7F {
		req.Width = i2cmaster.Addr10Bit
	}
	var wdata []byte
	switch {
	case len(r) == 0:
		// A pure write; zero-length is the usual device probe.
		wdata = w
	case len(w) == 0:
		req.Read = true
	case len(w) == 1:
		req.Read = true
		req.RegEnable = true
		req.Reg = w[0]
	default:
		return fmt.Errorf("softbus: %d write bytes ahead of a read; at most one register byte can precede a read on this bus", len(w))
	}
	if err := b.eng.Submit(req); err != nil {
		return err
	}
	if !req.Read && len(wdata) == 0 {
		b.eng.FinishWrite()
	}
	res := b.run(wdata, r)
	switch res.Outcome {
	case i2cmaster.AddrNACK:
		return ErrNoDevice
	case i2cmaster.DataNACK:
		return ErrNACK
	}
	return nil
}

// run ticks the engine to completion, feeding the write handshake and
// draining the read handshake between ticks.
func (b *Bus) run(w, r []byte) i2cmaster.Result {
	e := b.eng
	wi, ri := 0, 0
	if len(r) > 0 {
		e.SetReadAck(ri < len(r)-1)
	}
	for !e.Idle() {
		e.Tick()
		if wi < len(w) && e.WriteReady() {
			if err := e.WriteByte(w[wi]); err == nil {
				wi++
				if wi == len(w) {
					e.FinishWrite()
				}
			}
		}
		if by, ok := e.ReadByte(); ok {
			if ri < len(r) {
				r[ri] = by
				ri++
			}
			e.SetReadAck(ri < len(r)-1)
		}
	}
	res, _ := e.Result()
	return res
}

// settle ticks the engine through the priming train until it is idle.
func (b *Bus) settle() {
	for !b.eng.Idle() {
		b.eng.Tick()
	}
}

// RegisterPins registers a softbus over the two named GPIO pins with the
// i2creg registry, so i2creg.Open(name) returns it. The pins are resolved
// through gpioreg when the bus is first opened, not at registration time.
func RegisterPins(name, sclPin, sdaPin string, opts *i2cmaster.Opts) error {
	return i2creg.Register(name, nil, -1, func() (i2c.BusCloser, error) {
		scl := gpioreg.ByName(sclPin)
		if scl == nil {
			return nil, fmt.Errorf("softbus: no GPIO pin named %q", sclPin)
		}
		sda := gpioreg.ByName(sdaPin)
		if sda == nil {
			return nil, fmt.Errorf("softbus: no GPIO pin named %q", sdaPin)
		}
		w, err := gpiowire.New(scl, sda)
		if err != nil {
			return nil, err
		}
		return New(w, opts)
	})
}
