// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package i2cmaster

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// AddrWidth selects the device address framing.
type AddrWidth uint8

const (
	// Addr7Bit frames the address as a single byte: seven address bits
	// followed by the direction bit.
	Addr7Bit AddrWidth = iota
	// Addr10Bit frames the address as two bytes, the first carrying the
	// 0b11110 prefix and the two upper address bits.
	Addr10Bit
)

// Request describes one bus transaction. It is latched in full when the
// engine accepts it and cannot change while the transaction runs.
type Request struct {
	// Addr is the device address: 0..0x7F for Addr7Bit, 0..0x3FF for
	// Addr10Bit.
	Addr uint16
	// Width selects the address framing.
	Width AddrWidth
	// Read selects the data direction: true reads from the device, false
	// writes to it.
	Read bool
	// Reg is the device register addressed before the data phase. Only
	// meaningful when RegEnable is set.
	Reg uint8
	// RegEnable inserts a register-address byte after the device address.
	// A read with RegEnable set turns the bus around with a repeated START
	// after the register byte instead of a STOP.
	RegEnable bool
}

// Outcome classifies how a transaction ended. A NACK from the device is a
// reported outcome, not an engine error: the engine performed exactly the
// transaction requested, and any retry is the caller's policy.
type Outcome uint8

const (
	// OK means every byte was acknowledged.
	OK Outcome = iota
	// AddrNACK means no device acknowledged the address.
	AddrNACK
	// DataNACK means the device stopped acknowledging during the register
	// or data phase.
	DataNACK
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OK:
		return "OK"
	case AddrNACK:
		return "AddrNACK"
	case DataNACK:
		return "DataNACK"
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// Result reports a finished transaction.
type Result struct {
	Outcome Outcome
	// BytesWritten counts data bytes that were both sent and acknowledged.
	BytesWritten int
	// BytesRead counts data bytes received, including the final byte the
	// engine answered with a NACK.
	BytesRead int
}

// ErrBusy is returned by Submit while a transaction, or the priming train,
// is in flight. The request is not queued; resubmit once Idle reports true.
var ErrBusy = errors.New("i2cmaster: engine busy")

// ErrWriteFull is returned by WriteByte when the engine is not ready for
// write data: the previous byte has not been consumed yet, the transaction
// is a read, or FinishWrite was already called.
var ErrWriteFull = errors.New("i2cmaster: not ready for write data")

type state uint8

const (
	stateIdle      state = iota
	stateInit            // priming clock train after reset
	stateStart           // SCL held high, SDA falls mid-half
	stateAddr            // first (or only) address byte
	stateAddr2           // low byte of a 10-bit address
	stateReg             // register-address byte
	stateRestart         // SDA released while SCL low, ahead of a re-issued START
	stateWrite           // data byte, engine transmitting
	stateWriteWait       // SCL held low across an unresolved write handshake
	stateRead            // data byte, engine receiving
	stateStopPrep        // SDA driven low while SCL low
	stateStop            // SCL held high, SDA rises mid-half
)

// initPulses is the fixed length of the priming train: nine clock pulses,
// one full byte plus ACK slot, enough to clock any device out of a byte it
// was left in by a previous session.
const initPulses = 9

// Engine is the bus master controller. It owns all protocol state and
// advances it exclusively inside Tick. The remaining methods are the
// request and byte handshakes; they are meant to be called between ticks
// from the goroutine that ticks the engine.
type Engine struct {
	wire Wire
	tim  timing

	// Clock phase: current SCL level and the tick position within the
	// current half-bit period.
	scl      gpio.Level
	halfTick int

	// Shift register and bit position. Position 8 is the ACK/NACK slot,
	// not a data bit.
	cur    byte
	bitPos int

	st  state
	req Request

	// Per-transaction control flags, resolved at byte boundaries.
	readdr  bool // in the address phase that follows a repeated START
	restart bool // the transaction still owes a repeated START
	regSent bool
	ackOK   bool // device ACK sampled in the current slot
	readAck bool // the ACK decision driven for received bytes

	// Frontend handshake state.
	wrByte  byte
	wrValid bool
	wrDone  bool
	rdByte  byte
	rdValid bool

	res      Result
	resValid bool

	sdaDrive Drive
}

// New builds an engine attached to w and immediately begins the priming
// train: nine clock pulses with SDA released. Tick the engine until Idle
// reports true before submitting the first request.
func New(w Wire, opts *Opts) (*Engine, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	tim, err := opts.timing()
	if err != nil {
		return nil, err
	}
	e := &Engine{wire: w, tim: tim}
	e.Reset()
	return e, nil
}

// Reset aborts whatever the engine was doing, discards pending handshake
// state and re-runs the priming train. Running it on an already idle bus is
// harmless: SDA never moves, so no device sees a START or STOP.
func (e *Engine) Reset() {
	e.st = stateInit
	e.halfTick = 0
	e.bitPos = 0
	e.wrValid = false
	e.wrDone = false
	e.rdValid = false
	e.resValid = false
	e.sdaDrive = Release
	e.wire.SetSDA(Release)
	e.scl = gpio.Low
	e.wire.SetSCL(gpio.Low)
}

// TicksPerHalfBit returns the derived half-bit period in ticks.
func (e *Engine) TicksPerHalfBit() int { return e.tim.ticksPerHalfBit }

// SetupTick returns the tick offset, within a low half-period, at which the
// engine drives the next bit or initiates a STOP.
func (e *Engine) SetupTick() int { return e.tim.setupTick }

// SampleTick returns the tick offset, within a high half-period, at which
// the engine samples the data line.
func (e *Engine) SampleTick() int { return e.tim.sampleTick }

// Idle reports whether the engine can accept a new request.
func (e *Engine) Idle() bool { return e.st == stateIdle }

// Submit latches r and starts the transaction. It fails with ErrBusy
// unless the engine is idle; the request is never queued. Write data is
// supplied afterwards through WriteByte and FinishWrite.
func (e *Engine) Submit(r Request) error {
	if e.st != stateIdle {
		return ErrBusy
	}
	switch r.Width {
	case Addr7Bit:
		if r.Addr > 0x7F {
			return fmt.Errorf("i2cmaster: address %#x does not fit in 7 bits", r.Addr)
		}
	case Addr10Bit:
		if r.Addr > 0x3FF {
			return fmt.Errorf("i2cmaster: address %#x does not fit in 10 bits", r.Addr)
		}
	default:
		return fmt.Errorf("i2cmaster: unknown address width %d", r.Width)
	}
	e.req = r
	e.readdr = false
	e.regSent = false
	// A 10-bit or register-addressed read runs a write-direction phase
	// first and turns the bus around with a repeated START.
	e.restart = r.Read && (r.RegEnable || r.Width == Addr10Bit)
	e.readAck = true
	e.wrValid = false
	e.wrDone = false
	e.rdValid = false
	e.res = Result{}
	e.resValid = false
	e.halfTick = 0
	// SCL is parked high while idle; the START state reuses it as the
	// held-high half in which SDA falls.
	e.st = stateStart
	return nil
}

// WriteReady reports whether the engine will accept the next write-data
// byte. It is true from acceptance of a write request until a byte is
// queued, and again each time the queued byte is consumed.
func (e *Engine) WriteReady() bool {
	return e.st != stateIdle && e.st != stateInit && !e.req.Read && !e.wrValid && !e.wrDone
}

// WriteByte queues b as the next data byte of a write transaction.
func (e *Engine) WriteByte(b byte) error {
	if !e.WriteReady() {
		return ErrWriteFull
	}
	e.wrByte = b
	e.wrValid = true
	return nil
}

// FinishWrite signals that no more write data will come. The engine issues
// a STOP at the next byte boundary. Calling it before any WriteByte makes
// the transaction a zero-length write, which is the usual way to probe for
// a device.
func (e *Engine) FinishWrite() { e.wrDone = true }

// ReadByte returns the latest received data byte, at most once per byte.
// The engine does not buffer: the caller must collect each byte before the
// next one completes, roughly a full byte period later, or it is
// overwritten.
func (e *Engine) ReadByte() (byte, bool) {
	if !e.rdValid {
		return 0, false
	}
	e.rdValid = false
	return e.rdByte, true
}

// SetReadAck sets the ACK decision the engine drives for bytes it
// receives: true acknowledges and keeps the transfer going, false tells
// the device the byte being received is the last one and schedules the
// STOP. It takes effect at the next ACK slot and defaults to true at
// Submit.
func (e *Engine) SetReadAck(ack bool) { e.readAck = ack }

// AckSlot reports whether the engine is currently in the ninth, ACK/NACK
// slot of a byte.
func (e *Engine) AckSlot() bool {
	switch e.st {
	case stateAddr, stateAddr2, stateReg, stateWrite, stateRead:
		return e.bitPos == 8
	}
	return false
}

// Result reports the last finished transaction. ok is false while one is
// still running, or if none has completed since Reset.
func (e *Engine) Result() (Result, bool) {
	if !e.resValid {
		return Result{}, false
	}
	return e.res, true
}

// Tick advances the engine by one tick of the input clock. All protocol
// state moves here; the method never blocks and never touches the wire
// outside the derived setup, sample and toggle points.
func (e *Engine) Tick() {
	switch e.st {
	case stateIdle:
		return
	case stateWriteWait:
		// SCL is held low; nothing moves until the handshake resolves.
		if e.wrValid {
			e.loadByte(e.wrByte)
			e.wrValid = false
			e.st = stateWrite
		} else if e.wrDone {
			e.st = stateStopPrep
		} else {
			return
		}
	}
	t := e.halfTick
	if e.scl == gpio.Low {
		if t == e.tim.setupTick {
			e.lowSetup()
		}
	} else {
		if t == e.tim.setupTick {
			e.highSetup()
		}
		if t == e.tim.sampleTick {
			e.highSample()
		}
	}
	e.halfTick++
	if e.halfTick >= e.tim.ticksPerHalfBit {
		e.halfTick = 0
		e.halfBoundary()
	}
}

// lowSetup fires at the setup point of a low half-period: the next bit is
// driven, the ACK slot drive is applied, or a framing edge is prepared.
func (e *Engine) lowSetup() {
	switch e.st {
	case stateAddr, stateAddr2, stateReg, stateWrite:
		if e.bitPos < 8 {
			e.shiftOut()
		} else {
			// ACK slot of a transmitted byte: the device drives.
			e.driveSDA(Release)
		}
	case stateRead:
		if e.bitPos < 8 {
			e.driveSDA(Release)
		} else if e.readAck {
			e.driveSDA(DriveLow)
		} else {
			e.driveSDA(Release)
		}
	case stateRestart:
		// Let SDA rise so the re-issued START has an edge to make.
		e.driveSDA(Release)
	case stateStopPrep:
		e.driveSDA(DriveLow)
	}
}

// highSetup fires at the setup offset of a held-high half-period and makes
// the framing edges: SDA falling for START, rising for STOP.
func (e *Engine) highSetup() {
	switch e.st {
	case stateStart:
		e.driveSDA(DriveLow)
	case stateStop:
		e.driveSDA(Release)
	}
}

// highSample fires at the sample point of a high half-period.
func (e *Engine) highSample() {
	switch e.st {
	case stateAddr, stateAddr2, stateReg, stateWrite:
		if e.bitPos == 8 {
			e.ackOK = e.wire.SDA() == gpio.Low
		}
	case stateRead:
		if e.bitPos < 8 {
			e.shiftIn(e.wire.SDA())
		}
	}
}

// halfBoundary fires when the tick counter reaches the half-bit period:
// the clock toggles, except where the protocol pins it high.
func (e *Engine) halfBoundary() {
	if e.scl == gpio.Low {
		// Rising edge.
		e.setSCL(gpio.High)
		switch e.st {
		case stateRestart:
			e.st = stateStart
		case stateStopPrep:
			e.st = stateStop
		}
		return
	}
	// Falling edge, except where a START/STOP condition needs the clock
	// held high across the toggle.
	switch e.st {
	case stateStart:
		e.setSCL(gpio.Low)
		e.beginAddr()
	case stateStop:
		// SCL stays high: the bus parks idle between transactions.
		e.resValid = true
		e.st = stateIdle
	case stateInit:
		if e.bitPos == initPulses-1 {
			// Train done; pin SCL high instead of toggling.
			e.st = stateIdle
			return
		}
		e.bitPos++
		e.setSCL(gpio.Low)
	case stateAddr, stateAddr2, stateReg, stateWrite, stateRead:
		e.setSCL(gpio.Low)
		if e.bitPos < 8 {
			e.bitPos++
			return
		}
		e.byteDone()
	}
}

// byteDone fires on the ACK slot's falling clock edge. The single event
// both closes the byte just finished and opens whatever follows it, so the
// two effects can never be ordered against each other.
func (e *Engine) byteDone() {
	switch e.st {
	case stateAddr:
		if !e.ackOK {
			e.fail(AddrNACK)
			return
		}
		if e.req.Width == Addr10Bit && !e.readdr {
			e.st = stateAddr2
			e.loadByte(byte(e.req.Addr))
			return
		}
		e.afterAddr()
	case stateAddr2:
		if !e.ackOK {
			e.fail(AddrNACK)
			return
		}
		e.afterAddr()
	case stateReg:
		if !e.ackOK {
			e.fail(DataNACK)
			return
		}
		if e.restart {
			e.beginRestart()
			return
		}
		e.beginWrite()
	case stateWrite:
		if !e.ackOK {
			e.fail(DataNACK)
			return
		}
		e.res.BytesWritten++
		e.beginWrite()
	case stateRead:
		e.rdByte = e.cur
		e.rdValid = true
		e.res.BytesRead++
		if !e.readAck {
			// We answered NACK: no continuation, ever.
			e.st = stateStopPrep
			return
		}
		e.loadByte(0)
	}
}

// afterAddr routes the transaction once the addressing phase has been
// acknowledged.
func (e *Engine) afterAddr() {
	if e.req.RegEnable && !e.regSent {
		e.regSent = true
		e.st = stateReg
		e.loadByte(e.req.Reg)
		return
	}
	if e.restart && !e.readdr {
		// A 10-bit read without a register byte still needs the
		// turnaround before any data moves.
		e.beginRestart()
		return
	}
	if e.req.Read {
		e.st = stateRead
		e.loadByte(0)
		return
	}
	e.beginWrite()
}

// beginWrite opens the next write data byte, or resolves the end of the
// write phase from the frontend handshake.
func (e *Engine) beginWrite() {
	if e.wrValid {
		e.loadByte(e.wrByte)
		e.wrValid = false
		e.st = stateWrite
		return
	}
	if e.wrDone {
		e.st = stateStopPrep
		return
	}
	// Neither a byte nor an end signal: hold SCL low until the caller
	// decides. The engine owns the clock, so the bus simply waits.
	e.st = stateWriteWait
}

func (e *Engine) beginRestart() {
	e.readdr = true
	e.st = stateRestart
}

func (e *Engine) beginAddr() {
	e.st = stateAddr
	e.loadByte(e.addrByte1())
}

// addrByte1 frames the first address byte. The direction bit reads 1 only
// when no repeated START is still owed: the first phase of a 10-bit or
// register-addressed read always runs in write direction.
func (e *Engine) addrByte1() byte {
	var dir byte
	if e.req.Read && (e.readdr || !e.restart) {
		dir = 1
	}
	if e.req.Width == Addr10Bit {
		return 0xF0 | byte(e.req.Addr>>8)<<1 | dir
	}
	return byte(e.req.Addr)<<1 | dir
}

func (e *Engine) fail(o Outcome) {
	e.res.Outcome = o
	e.st = stateStopPrep
}

func (e *Engine) loadByte(b byte) {
	e.cur = b
	e.bitPos = 0
}

// shiftOut drives the register's MSB onto the line and refills the bottom
// with an idle bit.
func (e *Engine) shiftOut() {
	if e.cur&0x80 != 0 {
		e.driveSDA(Release)
	} else {
		e.driveSDA(DriveLow)
	}
	e.cur = e.cur<<1 | 1
}

// shiftIn shifts the sampled level into the register's LSB; eight samples
// rebuild the byte MSB-first.
func (e *Engine) shiftIn(l gpio.Level) {
	e.cur <<= 1
	if l == gpio.High {
		e.cur |= 1
	}
}

func (e *Engine) driveSDA(d Drive) {
	if e.sdaDrive == d {
		return
	}
	e.sdaDrive = d
	e.wire.SetSDA(d)
}

func (e *Engine) setSCL(l gpio.Level) {
	if e.scl == l {
		return
	}
	e.scl = l
	e.wire.SetSCL(l)
}
