package telemetry

import (
	"strings"
	"sync"
)

type Level int

const (
	LEVEL_DEBUG Level = iota
	LEVEL_COUNT
	LEVEL_WARNING
	LEVEL_BROKEN
)

type Event struct {
	Level  Level
	ID     string
	Params []any
	Count  int64
}

// Recorder is an API that keeps every report in memory, it is meant for tests
// that need to assert that something was (or wasn't) reported.
type Recorder struct {
	mutex  sync.Mutex
	events []Event
}

func (r *Recorder) record(e Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.record(Event{Level: LEVEL_BROKEN, ID: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.record(Event{Level: LEVEL_WARNING, ID: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.record(Event{Level: LEVEL_DEBUG, ID: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.record(Event{Level: LEVEL_COUNT, ID: id, Count: count})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Find returns the events of the given level whose id is `id`, ignoring any
// namespace added by a ScopedAPI.
func (r *Recorder) Find(level Level, id string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Level != level {
			continue
		}
		if e.ID == id || strings.HasSuffix(e.ID, ": "+id) {
			out = append(out, e)
		}
	}
	return out
}
