// Package notify fans due-alarm events out to listeners.
package notify

import (
	"io"
	"log"
	"sync"

	"github.com/pathakanu/myAlarm/internal/model"
)

// DueEvent is raised once for every alarm that fires.
type DueEvent struct {
	Time  string
	Note  string
	Links []model.Link
}

// Listener reacts to a due event.
type Listener func(DueEvent)

// Dispatcher delivers due events to its listeners in subscription order.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
	logger    *log.Logger
}

// NewDispatcher creates a Dispatcher without listeners.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Subscribe registers l for every future event.
func (d *Dispatcher) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Emit calls every listener with evt. A panicking listener is logged and
// does not prevent the others from running.
func (d *Dispatcher) Emit(evt DueEvent) {
	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	for i, l := range listeners {
		d.call(i, l, evt)
	}
}

func (d *Dispatcher) call(index int, l Listener, evt DueEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("notify: listener %d panicked on %s: %v", index, evt.Time, r)
		}
	}()
	l(evt)
}

// Bell returns a listener that rings the terminal bell on w.
func Bell(w io.Writer) Listener {
	return func(DueEvent) {
		_, _ = io.WriteString(w, "\a")
	}
}

// Log returns a listener that records each event on logger.
func Log(logger *log.Logger) Listener {
	return func(evt DueEvent) {
		note := evt.Note
		if note == "" {
			note = "(none)"
		}
		logger.Printf("notify: alarm due at %s: %s (%d links)", evt.Time, note, len(evt.Links))
	}
}
