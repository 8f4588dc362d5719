// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2cmaster implements a bit-level, single-master I²C bus
// controller.
//
// The engine is a tick-driven state machine: the caller supplies a
// free-running tick source by calling Tick at a fixed rate, and the engine
// derives all line timing from the ratio of that tick rate to the target
// bit rate. There are no goroutines, channels or sleeps inside the engine;
// one Tick call advances one coherent state value and nothing else ever
// mutates it.
//
// The physical lines are reached through the Wire interface. SCL is
// push-type since the engine is the only clock source on the bus. SDA is
// open-drain: the engine only ever decides between pulling the line low and
// releasing it, and reads back the resolved level, which a device may be
// holding low.
//
// Supported: 7- and 10-bit addressing, an optional register-address byte,
// repeated START for register reads (and for the second phase of 10-bit
// reads), per-byte ACK/NACK in both directions, and a 9-pulse priming train
// after reset that clocks out any device left mid-byte by a prior session.
//
// Not supported: multi-master arbitration, clock stretching by the device,
// general-call addressing, and recovery from a permanently stuck line.
//
// A NACK from the device is not an engine error. It ends the transaction
// with a STOP and is reported through Result; whether to retry is entirely
// the caller's decision.
package i2cmaster
