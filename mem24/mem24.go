// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mem24 is a driver for 24Cxx-series serial EEPROMs with one-byte
// register addressing (24C01 through 24C16).
//
// Parts larger than 256 bytes expose their extra memory as additional
// consecutive bus addresses, 256 bytes per address; the driver handles the
// banking. Reads use the register write followed by a repeated-START read;
// writes are chunked at the device's page boundaries, with a pause after
// each page for the self-timed write cycle.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/doc0180.pdf
package mem24

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAddress is the base bus address with all address pins strapped
// low.
const DefaultAddress uint16 = 0x50

// Opts describes the EEPROM geometry.
type Opts struct {
	// Size is the capacity in bytes, at most 2048 for this family.
	Size int
	// PageSize is the write page size in bytes, a power of two.
	PageSize int
	// WriteDelay is the pause after each page write for the device's
	// self-timed write cycle. The datasheet worst case is 5ms.
	WriteDelay time.Duration
}

// Opts24C02 describes the 256 byte 24C02.
var Opts24C02 = Opts{Size: 256, PageSize: 8, WriteDelay: 5 * time.Millisecond}

// Opts24C16 describes the 2048 byte 24C16, which occupies eight
// consecutive bus addresses.
var Opts24C16 = Opts{Size: 2048, PageSize: 16, WriteDelay: 5 * time.Millisecond}

// Dev is a handle to the EEPROM. It implements io.ReaderAt and
// io.WriterAt.
type Dev struct {
	mu   sync.Mutex
	bus  i2c.Bus
	addr uint16
	opts Opts
}

// New returns a handle to the EEPROM at the given base address.
func New(bus i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts24C02
	}
	if opts.Size <= 0 || opts.Size > 2048 {
		return nil, fmt.Errorf("mem24: size %d out of range (1..2048)", opts.Size)
	}
	if opts.PageSize <= 0 || opts.PageSize&(opts.PageSize-1) != 0 {
		return nil, fmt.Errorf("mem24: page size %d is not a power of two", opts.PageSize)
	}
	if opts.PageSize > opts.Size {
		return nil, fmt.Errorf("mem24: page size %d exceeds size %d", opts.PageSize, opts.Size)
	}
	return &Dev{bus: bus, addr: addr, opts: *opts}, nil
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return fmt.Sprintf("mem24{%#02x, %dB}", d.addr, d.opts.Size)
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error { return nil }

// Size returns the capacity in bytes.
func (d *Dev) Size() int { return d.opts.Size }

// ReadAt implements io.ReaderAt. A read that runs past the end of the
// array is truncated and returns io.EOF.
func (d *Dev) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(d.opts.Size) {
		return 0, fmt.Errorf("mem24: offset %d out of range", off)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(p)
	var eof error
	if int64(n) > int64(d.opts.Size)-off {
		n = int(int64(d.opts.Size) - off)
		eof = io.EOF
	}
	done := 0
	for done < n {
		// A single transaction cannot cross a 256 byte bank: the bank is
		// part of the bus address.
		c := n - done
		if in := 256 - int(off)%256; c > in {
			c = in
		}
		dd := i2c.Dev{Bus: d.bus, Addr: d.addr + uint16(off>>8)}
		if err := dd.Tx([]byte{byte(off)}, p[done:done+c]); err != nil {
			return done, err
		}
		done += c
		off += int64(c)
	}
	if eof != nil {
		return n, eof
	}
	return n, nil
}

// WriteAt implements io.WriterAt. Writes are split at page boundaries and
// each page is followed by the configured write-cycle delay.
func (d *Dev) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(d.opts.Size) {
		return 0, fmt.Errorf("mem24: offset %d out of range", off)
	}
	if int64(len(p)) > int64(d.opts.Size)-off {
		return 0, errors.New("mem24: write past end of array")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	done := 0
	for done < len(p) {
		c := len(p) - done
		if in := d.opts.PageSize - int(off)%d.opts.PageSize; c > in {
			c = in
		}
		dd := i2c.Dev{Bus: d.bus, Addr: d.addr + uint16(off>>8)}
		if err := dd.Tx(append([]byte{byte(off)}, p[done:done+c]...), nil); err != nil {
			return done, err
		}
		done += c
		off += int64(c)
		if d.opts.WriteDelay > 0 {
			time.Sleep(d.opts.WriteDelay)
		}
	}
	return len(p), nil
}
