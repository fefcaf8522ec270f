// Package log adapts github.com/apex/log to the lazycache.Logger interface
// and configures the process-wide handler used by the lazycache CLI.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// EnvLevel names the environment variable holding the default log level.
const EnvLevel = "LAZYCACHE_LOG"

// InitLogger sets up Apex with a custom handler and a log level taken from
// level, or from LAZYCACHE_LOG when level is empty. Unknown levels fall back
// to ERROR.
func InitLogger(w io.Writer, level string) {
	if level == "" {
		level = os.Getenv(EnvLevel)
	}
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		level = "ERROR"
	}
	if w == nil {
		w = os.Stderr
	}
	log.SetHandler(&CustomHandler{Writer: w})
	if _, err := log.ParseLevel(strings.ToLower(level)); err != nil {
		level = "ERROR"
	}
	log.SetLevelFromString(strings.ToLower(level))
}

// CustomHandler formats log messages as "timestamp L message key=value ...".
type CustomHandler struct {
	Writer io.Writer

	mu sync.Mutex
}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	timestamp := e.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	level := strings.ToUpper(e.Level.String())

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", timestamp.Format("2006-01-02 15:04:05"), level, e.Message)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields[name])
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.Writer, b.String())
	return err
}

// Adapter implements lazycache.Logger on an apex/log Interface.
type Adapter struct {
	logger log.Interface
}

// NewAdapter wraps l. A nil l means the apex/log package-level logger.
func NewAdapter(l log.Interface) *Adapter {
	if l == nil {
		l = log.Log
	}
	return &Adapter{logger: l}
}

// Debug logs at debug level.
func (a *Adapter) Debug(msg string, keyvals ...interface{}) {
	a.logger.WithFields(fields(keyvals)).Debug(msg)
}

// Info logs at info level.
func (a *Adapter) Info(msg string, keyvals ...interface{}) {
	a.logger.WithFields(fields(keyvals)).Info(msg)
}

// Warn logs at warn level.
func (a *Adapter) Warn(msg string, keyvals ...interface{}) {
	a.logger.WithFields(fields(keyvals)).Warn(msg)
}

// Error logs at error level.
func (a *Adapter) Error(msg string, keyvals ...interface{}) {
	a.logger.WithFields(fields(keyvals)).Error(msg)
}

// fields turns alternating key/value pairs into apex fields. A dangling key
// is kept with a nil value; non-string keys are formatted with %v.
func fields(keyvals []interface{}) log.Fields {
	f := make(log.Fields, (len(keyvals)+1)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprintf("%v", keyvals[i])
		var value interface{}
		if i+1 < len(keyvals) {
			value = keyvals[i+1]
		}
		f[key] = value
	}
	return f
}
