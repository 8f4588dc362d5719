// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mem24

import (
	"bytes"
	"io"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/bitbus/i2cmaster"
	"github.com/GermanBionicSystems/bitbus/i2cmaster/i2cmastertest"
	"github.com/GermanBionicSystems/bitbus/softbus"
)

func TestReadAtPlayback(t *testing.T) {
	bus := i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x50, W: []byte{0x00}, R: []byte{1, 2, 3, 4}},
		},
	}
	d, err := New(&bus, 0x50, &Opts{Size: 256, PageSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 4)
	if n, err := d.ReadAt(got, 0); n != 4 || err != nil {
		t.Fatalf("ReadAt = %d, %v", n, err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("read %#v", got)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestWriteAtPlayback(t *testing.T) {
	// A write starting at offset 6 with an 8 byte page splits at the page
	// boundary.
	bus := i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x50, W: []byte{6, 0xAA, 0xBB}},
			{Addr: 0x50, W: []byte{8, 0xCC}},
		},
	}
	d, err := New(&bus, 0x50, &Opts{Size: 256, PageSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	if n, err := d.WriteAt([]byte{0xAA, 0xBB, 0xCC}, 6); n != 3 || err != nil {
		t.Fatalf("WriteAt = %d, %v", n, err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOptsValidation(t *testing.T) {
	bus := i2ctest.Playback{}
	if _, err := New(&bus, 0x50, &Opts{Size: 0, PageSize: 8}); err == nil {
		t.Error("zero size accepted")
	}
	if _, err := New(&bus, 0x50, &Opts{Size: 4096, PageSize: 8}); err == nil {
		t.Error("oversize accepted")
	}
	if _, err := New(&bus, 0x50, &Opts{Size: 256, PageSize: 7}); err == nil {
		t.Error("non power-of-two page accepted")
	}
	if _, err := New(&bus, 0x50, &Opts{Size: 16, PageSize: 32}); err == nil {
		t.Error("page larger than array accepted")
	}
}

func TestBounds(t *testing.T) {
	bus := i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x50, W: []byte{254}, R: []byte{9, 9}},
		},
	}
	d, err := New(&bus, 0x50, &Opts{Size: 256, PageSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	// Reads truncate at the end of the array.
	got := make([]byte, 4)
	if n, err := d.ReadAt(got, 254); n != 2 || err != io.EOF {
		t.Fatalf("ReadAt past end = %d, %v, want 2, io.EOF", n, err)
	}
	if _, err := d.ReadAt(got, -1); err == nil {
		t.Error("negative offset accepted")
	}
	// Writes past the end are refused outright.
	if _, err := d.WriteAt([]byte{1, 2, 3}, 254); err == nil {
		t.Error("write past end accepted")
	}
}

// TestRoundTrip runs the driver over the real engine against simulated
// EEPROM banks: write, read back, including a write spanning the 256 byte
// bank boundary where the device address changes.
func TestRoundTrip(t *testing.T) {
	net := i2cmastertest.NewNet()
	net.Attach(&i2cmastertest.Device{Addr: 0x50})
	net.Attach(&i2cmastertest.Device{Addr: 0x51})
	bus, err := softbus.New(net, &i2cmaster.Opts{
		ClockRate: 800 * physic.KiloHertz,
		BitRate:   100 * physic.KiloHertz,
	})
	if err != nil {
		t.Fatal(err)
	}
	d, err := New(bus, 0x50, &Opts{Size: 512, PageSize: 8})
	if err != nil {
		t.Fatal(err)
	}

	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	// 250..259 crosses from bank 0x50 into bank 0x51.
	if n, err := d.WriteAt(data, 250); n != len(data) || err != nil {
		t.Fatalf("WriteAt = %d, %v", n, err)
	}
	got := make([]byte, len(data))
	if n, err := d.ReadAt(got, 250); n != len(data) || err != nil {
		t.Fatalf("ReadAt = %d, %v", n, err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: wrote %#v, read %#v", data, got)
	}
	if d.String() == "" {
		t.Error("String() empty")
	}
	if err := d.Halt(); err != nil {
		t.Error(err)
	}
	if d.Size() != 512 {
		t.Errorf("Size() = %d", d.Size())
	}
}
