// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package i2cmastertest

import (
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/bitbus/i2cmaster"
)

type devState uint8

const (
	devIdle  devState = iota
	devAddr           // first byte after a START
	devAddr2          // low byte of a 10-bit address
	devPtr            // first written byte: register pointer
	devRecv           // subsequent written bytes
	devSend           // read direction, streaming out of Regs
)

// Device is a simulated register-file slave. The first byte written in a
// transaction sets an auto-incrementing register pointer, further bytes
// store through it, and reads stream from it, the way small EEPROMs and
// most register-mapped devices behave. It never stretches the clock.
//
// Configure before attaching to a Net; the exported fields must not change
// while traffic is running.
type Device struct {
	// Addr is the device address, 7 bits wide unless TenBit is set.
	Addr uint16
	// TenBit selects 10-bit address decoding.
	TenBit bool
	// WriteLimit, when non-zero, is the number of data bytes the device
	// acknowledges per transaction before answering NACK. The pointer
	// byte does not count.
	WriteLimit int

	// Regs is the register file, visible for test setup and assertions.
	Regs [256]byte

	drive   i2cmaster.Drive
	st      devState
	next    devState
	bits    int // 0..7 data bits, 8 byte complete, 9 ACK slot in progress
	cur     byte
	ptr     uint8
	wrote   int
	tenSel  bool // full 10-bit address matched earlier in this session
	hostAck bool
}

func (d *Device) edge(pscl, psda, scl, sda gpio.Level) {
	if pscl == gpio.High && scl == gpio.High {
		if psda == gpio.High && sda == gpio.Low {
			d.start()
		} else if psda == gpio.Low && sda == gpio.High {
			d.stop()
		}
		return
	}
	if pscl == gpio.Low && scl == gpio.High {
		d.rising(sda)
	} else if pscl == gpio.High && scl == gpio.Low {
		d.falling()
	}
}

// start handles a START or repeated START: it aborts whatever was in
// flight and arms address decoding. A repeated START keeps the 10-bit
// selection alive; only a STOP clears it.
func (d *Device) start() {
	d.st = devAddr
	d.bits = 0
	d.cur = 0
	d.wrote = 0
	d.drive = i2cmaster.Release
}

func (d *Device) stop() {
	d.st = devIdle
	d.tenSel = false
	d.drive = i2cmaster.Release
}

func (d *Device) rising(sda gpio.Level) {
	switch d.st {
	case devAddr, devAddr2, devPtr, devRecv:
		if d.bits < 8 {
			d.cur <<= 1
			if sda == gpio.High {
				d.cur |= 1
			}
			d.bits++
		}
	case devSend:
		if d.bits == 9 {
			d.hostAck = sda == gpio.Low
		}
	}
}

func (d *Device) falling() {
	switch d.st {
	case devAddr, devAddr2, devPtr, devRecv:
		if d.bits == 8 {
			ack, next := d.byteIn(d.cur)
			if ack {
				d.drive = i2cmaster.DriveLow
			} else {
				d.drive = i2cmaster.Release
				next = devIdle
			}
			d.next = next
			d.bits = 9
			return
		}
		if d.bits == 9 {
			// End of the ACK slot we drove.
			d.drive = i2cmaster.Release
			d.bits = 0
			d.cur = 0
			d.st = d.next
			if d.st == devSend {
				d.cur = d.Regs[d.ptr]
				d.sendFalling()
			}
		}
	case devSend:
		d.sendFalling()
	}
}

// sendFalling drives the next outbound bit, releases for the ACK slot, or
// resolves the master's ACK decision, one falling clock edge at a time.
func (d *Device) sendFalling() {
	switch {
	case d.bits < 8:
		if d.cur&(0x80>>uint(d.bits)) != 0 {
			d.drive = i2cmaster.Release
		} else {
			d.drive = i2cmaster.DriveLow
		}
		d.bits++
	case d.bits == 8:
		// ACK slot: the master drives its decision.
		d.drive = i2cmaster.Release
		d.bits = 9
	default:
		if d.hostAck {
			d.ptr++
			d.cur = d.Regs[d.ptr]
			d.bits = 0
			d.sendFalling()
			return
		}
		// Master answered NACK: release the line and wait for the STOP.
		d.st = devIdle
		d.bits = 0
	}
}

// byteIn consumes a completed inbound byte and decides the ACK and the
// next state.
func (d *Device) byteIn(b byte) (bool, devState) {
	switch d.st {
	case devAddr:
		if d.TenBit {
			if b&0xF8 != 0xF0 || (b>>1)&0x03 != byte(d.Addr>>8) {
				return false, devIdle
			}
			if b&1 == 0 {
				return true, devAddr2
			}
			// Read direction re-selects only a device addressed in full
			// earlier in the same session.
			if d.tenSel {
				return true, devSend
			}
			return false, devIdle
		}
		if b>>1 != byte(d.Addr) {
			return false, devIdle
		}
		if b&1 == 1 {
			return true, devSend
		}
		return true, devPtr
	case devAddr2:
		if b != byte(d.Addr) {
			return false, devIdle
		}
		d.tenSel = true
		return true, devPtr
	case devPtr:
		d.ptr = b
		return true, devRecv
	case devRecv:
		d.wrote++
		if d.WriteLimit > 0 && d.wrote > d.WriteLimit {
			return false, devIdle
		}
		d.Regs[d.ptr] = b
		d.ptr++
		return true, devRecv
	}
	return false, devIdle
}
