// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bitbus is a container for a software-defined two-wire serial bus
// master and the glue that presents it as an ordinary i2c.Bus.
//
// The protocol engine lives in i2cmaster; gpiowire attaches it to real GPIO
// pins, softbus wraps it in the conn/v3 i2c.Bus interface, and mem24 is a
// small EEPROM driver that runs over it.
package bitbus
