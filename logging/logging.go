// Copyright 2024 The Vesta Authors
// This file is part of Vesta.
//
// Vesta is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Vesta is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Vesta. If not, see <http://www.gnu.org/licenses/>.

// Package logging wraps zap the way the teacher's own log package is
// called throughout erigon: leveled, structured, key-value pairs
// following the message rather than a format string.
package logging

import "go.uber.org/zap"

// Logger is the structured logger every package above vesta/source logs
// through, keyed the same way erigon calls its own logger:
// logger.Infow("message", "key", value, "key2", value2).
type Logger struct {
	s *zap.SugaredLogger
}

// New builds a production Logger (JSON encoding, info level).
func New() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &Logger{s: z.Sugar()}, nil
}

// NewDevelopment builds a human-readable, debug-level Logger for local
// runs of cmd/vesta-repository.
func NewDevelopment() (*Logger, error) {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &Logger{s: z.Sugar()}, nil
}

// NewNop discards everything logged through it, used by tests that want
// a Logger without the overhead of one that writes anywhere.
func NewNop() *Logger { return &Logger{s: zap.NewNop().Sugar()} }

func (l *Logger) Debugw(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *Logger) Infow(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *Logger) Warnw(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *Logger) Errorw(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

// Sync flushes any buffered log entries; call it before process exit.
func (l *Logger) Sync() error { return l.s.Sync() }
