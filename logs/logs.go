/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package logs

import (
	"fmt"
	"io"
	"log"
	"os"
)

var Logs = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)

func Init(name string) {
	InitWithWriter(name, os.Stderr)
}

// InitWithWriter sends log lines to w, tests use it to capture output.
// The logger is reconfigured in place, so goroutines already logging keep
// a valid logger.
func InitWithWriter(name string, w io.Writer) {
	Logs.SetOutput(w)
	Logs.SetPrefix(name + " ")
	Logs.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
}

func Log(message string) {
	Logs.Output(2, message)
}

func Logf(format string, args ...interface{}) {
	Logs.Output(2, fmt.Sprintf(format, args...))
}
