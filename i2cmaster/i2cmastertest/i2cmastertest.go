// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2cmastertest provides an in-memory two-wire bus for testing
// i2cmaster engines: an open-drain net that resolves every driver's
// drive/release decision into a wire level, simulated register-file
// devices, and a protocol monitor that decodes the raw line activity into
// a trace of START, STOP and byte events.
package i2cmastertest

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/bitbus/i2cmaster"
)

// EventKind tags a decoded bus event.
type EventKind uint8

const (
	// Start is a START or repeated START condition.
	Start EventKind = iota
	// Stop is a STOP condition.
	Stop
	// Byte is a completed byte with its ACK slot.
	Byte
)

// Event is one decoded bus event. Val and Ack are meaningful for Byte
// events only; Ack reports whether the line was low during the ninth slot.
type Event struct {
	Kind EventKind
	Val  byte
	Ack  bool
}

// String implements fmt.Stringer.
func (ev Event) String() string {
	switch ev.Kind {
	case Start:
		return "START"
	case Stop:
		return "STOP"
	}
	if ev.Ack {
		return fmt.Sprintf("0x%02x+ACK", ev.Val)
	}
	return fmt.Sprintf("0x%02x+NACK", ev.Val)
}

// Net is a simulated two-wire bus. It implements i2cmaster.Wire for the
// master side, resolves SDA as the wired-AND of the master's and every
// attached device's drive decision against a pull-up, and replays level
// changes in order to the attached devices and to the built-in monitor.
type Net struct {
	scl    gpio.Level
	master i2cmaster.Drive
	devs   []*Device
	mon    monitor

	lastSCL gpio.Level
	lastSDA gpio.Level
}

// NewNet returns an idle bus: both lines pulled up, nothing attached.
func NewNet() *Net {
	return &Net{
		scl:     gpio.High,
		lastSCL: gpio.High,
		lastSDA: gpio.High,
	}
}

// Attach adds d to the bus.
func (n *Net) Attach(d *Device) {
	n.devs = append(n.devs, d)
}

// Events returns the decoded bus trace so far.
func (n *Net) Events() []Event { return n.mon.events }

// ClockPulses returns the number of rising clock edges seen so far.
func (n *Net) ClockPulses() int { return n.mon.pulses }

// SetSCL implements i2cmaster.Wire.
func (n *Net) SetSCL(l gpio.Level) {
	if l == n.scl {
		return
	}
	n.scl = l
	n.settle()
}

// SetSDA implements i2cmaster.Wire.
func (n *Net) SetSDA(d i2cmaster.Drive) {
	if d == n.master {
		return
	}
	n.master = d
	n.settle()
}

// SDA implements i2cmaster.Wire.
func (n *Net) SDA() gpio.Level { return n.resolve() }

// resolve computes the wired-AND of all SDA drivers: the line is low if
// anyone pulls it low, high otherwise.
func (n *Net) resolve() gpio.Level {
	if n.master == i2cmaster.DriveLow {
		return gpio.Low
	}
	for _, d := range n.devs {
		if d.drive == i2cmaster.DriveLow {
			return gpio.Low
		}
	}
	return gpio.High
}

// settle replays line changes until no device revises its drive decision.
// A device reacting to an edge can only change SDA, and only while SCL is
// low, so the loop terminates after a couple of rounds.
func (n *Net) settle() {
	for i := 0; i < 8; i++ {
		scl, sda := n.scl, n.resolve()
		if scl == n.lastSCL && sda == n.lastSDA {
			return
		}
		pscl, psda := n.lastSCL, n.lastSDA
		n.lastSCL, n.lastSDA = scl, sda
		n.mon.edge(pscl, psda, scl, sda)
		for _, d := range n.devs {
			d.edge(pscl, psda, scl, sda)
		}
	}
}

// monitor decodes raw line transitions into the event trace, independently
// of any attached device.
type monitor struct {
	events []Event
	pulses int
	active bool
	bits   int
	cur    byte
}

func (m *monitor) edge(pscl, psda, scl, sda gpio.Level) {
	if pscl == gpio.Low && scl == gpio.High {
		m.pulses++
	}
	if pscl == gpio.High && scl == gpio.High {
		// SDA moved while the clock stayed high: a framing condition.
		if psda == gpio.High && sda == gpio.Low {
			m.events = append(m.events, Event{Kind: Start})
			m.active = true
			m.bits = 0
			m.cur = 0
		} else if psda == gpio.Low && sda == gpio.High {
			m.events = append(m.events, Event{Kind: Stop})
			m.active = false
		}
		return
	}
	if !m.active {
		return
	}
	if pscl == gpio.Low && scl == gpio.High {
		// Sample on the rising edge; the ninth sample is the ACK slot.
		if m.bits < 8 {
			m.cur <<= 1
			if sda == gpio.High {
				m.cur |= 1
			}
			m.bits++
			return
		}
		m.events = append(m.events, Event{Kind: Byte, Val: m.cur, Ack: sda == gpio.Low})
		m.bits = 0
		m.cur = 0
	}
}
