package logging

import "testing"

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := NewNop()
	l.Debugw("debug", "k", 1)
	l.Infow("info", "k", "v")
	l.Warnw("warn")
	l.Errorw("error", "err", "boom")
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}
