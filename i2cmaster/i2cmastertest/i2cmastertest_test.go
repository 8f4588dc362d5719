// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package i2cmastertest

import (
	"testing"

	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/bitbus/i2cmaster"
)

// TestMonitorDecode bit-bangs a frame by hand through the Wire interface
// and checks the monitor reconstructs it.
func TestMonitorDecode(t *testing.T) {
	n := NewNet()

	// START: SDA falls while SCL is high.
	n.SetSDA(i2cmaster.DriveLow)

	writeBit := func(b bool) {
		n.SetSCL(gpio.Low)
		if b {
			n.SetSDA(i2cmaster.Release)
		} else {
			n.SetSDA(i2cmaster.DriveLow)
		}
		n.SetSCL(gpio.High)
	}
	for i := 7; i >= 0; i-- {
		writeBit(0xA5&(1<<uint(i)) != 0)
	}
	// ACK slot: released, nobody answers.
	writeBit(true)

	// STOP: SDA rises while SCL is high.
	n.SetSCL(gpio.Low)
	n.SetSDA(i2cmaster.DriveLow)
	n.SetSCL(gpio.High)
	n.SetSDA(i2cmaster.Release)

	want := []Event{
		{Kind: Start},
		{Kind: Byte, Val: 0xA5, Ack: false},
		{Kind: Stop},
	}
	got := n.Events()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	if got := n.ClockPulses(); got != 10 {
		t.Errorf("ClockPulses = %d, want 10", got)
	}
}

func TestNetWiredAnd(t *testing.T) {
	n := NewNet()
	if n.SDA() != gpio.High {
		t.Fatal("idle SDA should read high")
	}
	n.SetSDA(i2cmaster.DriveLow)
	if n.SDA() != gpio.Low {
		t.Fatal("driven SDA should read low")
	}
	n.SetSDA(i2cmaster.Release)
	if n.SDA() != gpio.High {
		t.Fatal("released SDA should float back high")
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Kind: Start}, "START"},
		{Event{Kind: Stop}, "STOP"},
		{Event{Kind: Byte, Val: 0xA0, Ack: true}, "0xa0+ACK"},
		{Event{Kind: Byte, Val: 0x01, Ack: false}, "0x01+NACK"},
	}
	for _, tc := range tests {
		if got := tc.ev.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
