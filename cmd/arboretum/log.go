package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// logger reports progress on logOutput when the verbose flag is set
type logger bool

var (
	logOutput io.Writer = os.Stderr
	logStart            = time.Now()
)

// Logf writes a line prefixed by the time elapsed since the command
// started, adding the trailing newline the format lacks
func (l logger) Logf(format string, a ...interface{}) {
	if !l {
		return
	}
	line := fmt.Sprintf(format, a...)
	fmt.Fprintf(logOutput, "[%8.3fs] %s\n", time.Since(logStart).Seconds(), strings.TrimRight(line, "\n"))
}
