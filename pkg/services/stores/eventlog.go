package stores

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Event is one recorded log entry.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// EventLog keeps the newest entries of the process log in memory.
type EventLog struct {
	mu   sync.Mutex
	buf  []Event
	next int
	full bool
}

// NewEventLog returns a ring of size entries.
func NewEventLog(size int) *EventLog {
	if size < 1 {
		size = 1
	}
	return &EventLog{buf: make([]Event, size)}
}

func (l *EventLog) add(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = ev
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
}

// Recent returns the recorded events, oldest first.
func (l *EventLog) Recent() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]Event(nil), l.buf[:l.next]...)
	}
	out := make([]Event, 0, len(l.buf))
	out = append(out, l.buf[l.next:]...)
	return append(out, l.buf[:l.next]...)
}

// Core returns a zapcore.Core feeding this log at level and above.
func (l *EventLog) Core(level zapcore.LevelEnabler) zapcore.Core {
	return &eventCore{LevelEnabler: level, log: l}
}

// Tee wraps a logger so its entries are also recorded here.
func (l *EventLog) Tee(zl *zap.Logger, level zapcore.LevelEnabler) *zap.Logger {
	return zl.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, l.Core(level))
	}))
}

type eventCore struct {
	zapcore.LevelEnabler
	log    *EventLog
	fields []zapcore.Field
}

func (c *eventCore) With(fs []zapcore.Field) zapcore.Core {
	return &eventCore{
		LevelEnabler: c.LevelEnabler,
		log:          c.log,
		fields:       append(c.fields[:len(c.fields):len(c.fields)], fs...),
	}
}

func (c *eventCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *eventCore) Write(ent zapcore.Entry, fs []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fs {
		f.AddTo(enc)
	}
	ev := Event{Time: ent.Time, Level: ent.Level.String(), Message: ent.Message}
	if len(enc.Fields) > 0 {
		ev.Fields = enc.Fields
	}
	c.log.add(ev)
	return nil
}

func (c *eventCore) Sync() error { return nil }

func logger() *zap.SugaredLogger {
	return zap.S()
}
