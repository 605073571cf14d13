package scheduler

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/pathakanu/myAlarm/internal/alarm"
	"github.com/pathakanu/myAlarm/internal/model"
	"github.com/pathakanu/myAlarm/internal/notify"
	"github.com/pathakanu/myAlarm/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recorder struct {
	events []notify.DueEvent
}

func (r *recorder) Emit(evt notify.DueEvent) {
	r.events = append(r.events, evt)
}

func newTestManager(t *testing.T) (*alarm.Manager, *store.Store) {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := store.New(db)
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	m, err := alarm.New(s, time.UTC, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, s
}

func at(value string) time.Time {
	ts, err := time.ParseInLocation(model.TimeLayout, value, time.UTC)
	if err != nil {
		panic(err)
	}
	return ts
}

func TestTickFiresAndArchivesSingleAlarm(t *testing.T) {
	t.Parallel()
	m, s := newTestManager(t)
	rec := &recorder{}
	sched := New(m, rec, time.UTC, log.New(io.Discard, "", 0))

	if _, err := s.InsertAlarm("2024-01-01 00:00:00", "test"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if n := sched.Tick(at("2024-01-01 00:00:01")); n != 1 {
		t.Fatalf("Tick fired %d alarms, want 1", n)
	}

	pending, _ := m.ListPending()
	if len(pending) != 0 {
		t.Fatalf("expected empty pending, got %+v", pending)
	}
	history, _ := m.ListHistory()
	if len(history) != 1 || history[0].Time != "2024-01-01 00:00:00" || history[0].Note != "test" {
		t.Fatalf("unexpected history: %+v", history)
	}
	if len(rec.events) != 1 || rec.events[0].Time != "2024-01-01 00:00:00" || rec.events[0].Note != "test" {
		t.Fatalf("unexpected events: %+v", rec.events)
	}
	if sched.State() != Idle {
		t.Fatalf("state after tick = %v, want idle", sched.State())
	}
}

func TestTickEmitsInFireOrder(t *testing.T) {
	t.Parallel()
	m, s := newTestManager(t)
	rec := &recorder{}
	sched := New(m, rec, time.UTC, log.New(io.Discard, "", 0))

	for _, row := range []struct{ time, note string }{
		{"2024-01-01 10:00:00", "t2-a"},
		{"2024-01-01 09:00:00", "t1"},
		{"2024-01-01 10:00:00", "t2-b"},
		{"2024-01-01 11:00:00", "not yet"},
	} {
		if _, err := s.InsertAlarm(row.time, row.note); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	if n := sched.Tick(at("2024-01-01 10:30:00")); n != 3 {
		t.Fatalf("Tick fired %d, want 3", n)
	}
	var notes []string
	for _, evt := range rec.events {
		notes = append(notes, evt.Note)
	}
	if got := strings.Join(notes, ","); got != "t1,t2-a,t2-b" {
		t.Fatalf("emission order = %s", got)
	}

	history, _ := m.ListHistory()
	if len(history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history))
	}
	pending, _ := m.ListPending()
	if len(pending) != 1 || pending[0].Note != "not yet" {
		t.Fatalf("unexpected pending: %+v", pending)
	}
}

func TestTickDoesNotFireTwice(t *testing.T) {
	t.Parallel()
	m, s := newTestManager(t)
	rec := &recorder{}
	sched := New(m, rec, time.UTC, log.New(io.Discard, "", 0))

	if _, err := s.InsertAlarm("2024-01-01 00:00:00", "once"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	now := at("2024-01-01 00:00:05")
	sched.Tick(now)
	if n := sched.Tick(now); n != 0 {
		t.Fatalf("second tick fired %d", n)
	}
	if len(rec.events) != 1 {
		t.Fatalf("expected one event, got %d", len(rec.events))
	}
	history, _ := m.ListHistory()
	if len(history) != 1 {
		t.Fatalf("expected one history row, got %d", len(history))
	}
}

func TestTickAttachesLiveLinks(t *testing.T) {
	t.Parallel()
	m, s := newTestManager(t)
	rec := &recorder{}
	sched := New(m, rec, time.UTC, log.New(io.Discard, "", 0))

	var links [model.MaxLinkSlots]model.Link
	links[0] = model.Link{Title: "empty url"}
	links[2] = model.Link{Title: "Board", URL: "http://board"}
	m.SetLinks(links)

	if _, err := s.InsertAlarm("2024-01-01 00:00:00", ""); err != nil {
		t.Fatalf("insert: %v", err)
	}
	sched.Tick(at("2024-01-01 00:00:00"))

	if len(rec.events) != 1 {
		t.Fatalf("expected one event, got %d", len(rec.events))
	}
	got := rec.events[0].Links
	if len(got) != 1 || got[0].Title != "Board" || got[0].URL != "http://board" {
		t.Fatalf("unexpected links: %+v", got)
	}
}

type flakyLifecycle struct {
	pending  []model.Alarm
	failID   uint
	failures int
	archived []uint
	observe  func()
}

func (f *flakyLifecycle) CheckDue(now time.Time) ([]model.Alarm, error) {
	cutoff := now.Format(model.TimeLayout)
	var due []model.Alarm
	for _, a := range f.pending {
		if a.Time <= cutoff {
			due = append(due, a)
		}
	}
	return due, nil
}

func (f *flakyLifecycle) Archive(a model.Alarm) (bool, error) {
	if f.observe != nil {
		f.observe()
	}
	if a.ID == f.failID && f.failures > 0 {
		f.failures--
		return false, &store.StorageError{Op: "archive alarm", Err: errors.New("disk full")}
	}
	for i, p := range f.pending {
		if p.ID == a.ID {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			f.archived = append(f.archived, a.ID)
			return true, nil
		}
	}
	return false, nil
}

func (f *flakyLifecycle) ActiveLinks() []model.Link { return nil }

func TestTickRetriesFailedArchiveNextTick(t *testing.T) {
	t.Parallel()
	lc := &flakyLifecycle{
		pending: []model.Alarm{
			{ID: 1, Time: "2024-01-01 00:00:00", Note: "one"},
			{ID: 2, Time: "2024-01-01 00:00:01", Note: "two"},
			{ID: 3, Time: "2024-01-01 00:00:02", Note: "three"},
		},
		failID:   2,
		failures: 1,
	}
	rec := &recorder{}
	var logs strings.Builder
	sched := New(lc, rec, time.UTC, log.New(&logs, "", 0))

	now := at("2024-01-01 00:00:10")
	if n := sched.Tick(now); n != 2 {
		t.Fatalf("first tick fired %d, want 2", n)
	}
	if !strings.Contains(logs.String(), "disk full") {
		t.Fatalf("failure not logged: %q", logs.String())
	}
	if n := sched.Tick(now); n != 1 {
		t.Fatalf("retry tick fired %d, want 1", n)
	}

	var notes []string
	for _, evt := range rec.events {
		notes = append(notes, evt.Note)
	}
	if got := strings.Join(notes, ","); got != "one,three,two" {
		t.Fatalf("events = %s", got)
	}
	if rec.events[2].Time != "2024-01-01 00:00:01" {
		t.Fatalf("retried alarm lost its fire time: %+v", rec.events[2])
	}
}

func TestStateIsFiringWhileArchiving(t *testing.T) {
	t.Parallel()
	lc := &flakyLifecycle{pending: []model.Alarm{{ID: 1, Time: "2024-01-01 00:00:00"}}}
	sched := New(lc, &recorder{}, time.UTC, log.New(io.Discard, "", 0))

	var seen State = Idle
	lc.observe = func() { seen = sched.State() }

	if sched.State() != Idle {
		t.Fatalf("initial state = %v", sched.State())
	}
	sched.Tick(at("2024-01-01 00:00:00"))
	if seen != Firing {
		t.Fatalf("state during archive = %v, want firing", seen)
	}
	if sched.State() != Idle {
		t.Fatalf("final state = %v, want idle", sched.State())
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	sched := New(m, &recorder{}, time.UTC, log.New(io.Discard, "", 0))

	if err := sched.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sched.Stop()
}
