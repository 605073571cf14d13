// Package alarm implements the alarm lifecycle: creation with date
// validation, manual removal into history, and due checks.
package alarm

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pathakanu/myAlarm/internal/model"
	"github.com/pathakanu/myAlarm/internal/store"
)

// ValidationError reports a date/time combination that cannot be scheduled.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Manager mediates all access to pending alarms, link slots and history.
type Manager struct {
	store  *store.Store
	loc    *time.Location
	logger *log.Logger

	mu    sync.RWMutex
	links [model.MaxLinkSlots]model.Link
}

// New creates a Manager and loads the saved link slots.
func New(s *store.Store, loc *time.Location, logger *log.Logger) (*Manager, error) {
	if loc == nil {
		loc = time.Local
	}
	m := &Manager{store: s, loc: loc, logger: logger}

	saved, err := s.ListLinks()
	if err != nil {
		return nil, err
	}
	for _, slot := range saved {
		if slot.Idx >= 0 && slot.Idx < model.MaxLinkSlots {
			m.links[slot.Idx] = model.Link{Title: slot.Title, URL: slot.URL}
		}
	}
	return m, nil
}

// Location returns the zone alarm times are interpreted in.
func (m *Manager) Location() *time.Location {
	return m.loc
}

// ParseFields converts raw form input into numeric date fields.
func ParseFields(year, month, day, hour, minute string) ([5]int, error) {
	var out [5]int
	raw := [5]struct{ name, value string }{
		{"year", year}, {"month", month}, {"day", day}, {"hour", hour}, {"minute", minute},
	}
	for i, field := range raw {
		n, err := strconv.Atoi(strings.TrimSpace(field.value))
		if err != nil {
			return out, &ValidationError{Field: field.name, Reason: fmt.Sprintf("%q is not a number", field.value)}
		}
		out[i] = n
	}
	return out, nil
}

// Timestamp validates the calendar fields and renders them as a stored fire
// time. No zone is applied: a wall-clock time inside a DST gap is stored as
// entered.
func Timestamp(year, month, day, hour, minute int) (string, error) {
	switch {
	case year < 1 || year > 9999:
		return "", &ValidationError{Field: "year", Reason: fmt.Sprintf("%d out of range 1-9999", year)}
	case month < 1 || month > 12:
		return "", &ValidationError{Field: "month", Reason: fmt.Sprintf("%d out of range 1-12", month)}
	case hour < 0 || hour > 23:
		return "", &ValidationError{Field: "hour", Reason: fmt.Sprintf("%d out of range 0-23", hour)}
	case minute < 0 || minute > 59:
		return "", &ValidationError{Field: "minute", Reason: fmt.Sprintf("%d out of range 0-59", minute)}
	}
	if last := daysIn(year, time.Month(month)); day < 1 || day > last {
		return "", &ValidationError{Field: "day", Reason: fmt.Sprintf("%d out of range 1-%d", day, last)}
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC).Format(model.TimeLayout), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddAlarm validates and stores a new alarm together with the current link
// slots. Either both are saved or neither is.
func (m *Manager) AddAlarm(year, month, day, hour, minute int, note string) (model.Alarm, error) {
	fireTime, err := Timestamp(year, month, day, hour, minute)
	if err != nil {
		return model.Alarm{}, err
	}

	alarm := model.Alarm{
		Time: fireTime,
		Note: strings.TrimSpace(note),
	}
	id, err := m.store.InsertAlarmWithLinks(alarm.Time, alarm.Note, m.linkSlots())
	if err != nil {
		return model.Alarm{}, err
	}
	alarm.ID = id

	m.logger.Printf("alarm: scheduled #%d at %s", alarm.ID, alarm.Time)
	return alarm, nil
}

// RemoveAlarm archives a pending alarm into history. Unknown ids are ignored.
func (m *Manager) RemoveAlarm(id uint) error {
	alarm, found, err := m.store.GetAlarm(id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if _, err := m.Archive(alarm); err != nil {
		return err
	}
	m.logger.Printf("alarm: removed #%d (%s)", alarm.ID, alarm.Time)
	return nil
}

// Archive moves alarm from pending to history atomically. It reports false
// when the alarm had already left the pending set.
func (m *Manager) Archive(alarm model.Alarm) (bool, error) {
	return m.store.ArchiveAlarm(alarm)
}

// CheckDue returns pending alarms with fire time at or before now, ordered by
// fire time then id. It does not modify anything.
func (m *Manager) CheckDue(now time.Time) ([]model.Alarm, error) {
	return m.store.ListDue(now.In(m.loc).Format(model.TimeLayout))
}

// ListPending returns pending alarms in fire order.
func (m *Manager) ListPending() ([]model.Alarm, error) {
	return m.store.ListAlarms()
}

// ListHistory returns archived alarms, most recent first.
func (m *Manager) ListHistory() ([]model.HistoryEntry, error) {
	return m.store.ListHistory()
}

// SetLinks replaces the live link slots. They are persisted on the next AddAlarm.
func (m *Manager) SetLinks(links [model.MaxLinkSlots]model.Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range links {
		m.links[i] = model.Link{Title: strings.TrimSpace(l.Title), URL: strings.TrimSpace(l.URL)}
	}
}

// CurrentLinks returns a copy of the live link slots, including empty ones.
func (m *Manager) CurrentLinks() [model.MaxLinkSlots]model.Link {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.links
}

// ActiveLinks returns the live link slots that carry a url, in slot order.
func (m *Manager) ActiveLinks() []model.Link {
	current := m.CurrentLinks()
	var out []model.Link
	for _, l := range current {
		if l.URL != "" {
			out = append(out, l)
		}
	}
	return out
}

func (m *Manager) linkSlots() []model.LinkSlot {
	current := m.CurrentLinks()
	slots := make([]model.LinkSlot, 0, len(current))
	for i, l := range current {
		slots = append(slots, model.LinkSlot{Idx: i, Title: l.Title, URL: l.URL})
	}
	return slots
}
