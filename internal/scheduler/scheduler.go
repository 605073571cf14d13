// Package scheduler runs the once-per-second due check that fires alarms.
//
// Each tick asks the lifecycle for alarms whose time has passed, archives
// them one by one and dispatches a due event per archived alarm. An alarm
// that fails to archive stays pending and is picked up again by the next
// tick, so delivery is at-least-once on storage failure and exactly-once
// otherwise.
package scheduler

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pathakanu/myAlarm/internal/model"
	"github.com/pathakanu/myAlarm/internal/notify"
	"github.com/robfig/cron/v3"
)

// TickSpec is the cron schedule of the due check.
const TickSpec = "@every 1s"

// State is the due-check loop state.
type State int

const (
	// Idle waits for the next tick.
	Idle State = iota
	// Firing archives and dispatches the alarms found due by the current tick.
	Firing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Firing:
		return "firing"
	default:
		return "unknown"
	}
}

// Lifecycle is the part of the alarm manager the loop depends on.
type Lifecycle interface {
	CheckDue(now time.Time) ([]model.Alarm, error)
	Archive(alarm model.Alarm) (bool, error)
	ActiveLinks() []model.Link
}

// Emitter receives due events.
type Emitter interface {
	Emit(evt notify.DueEvent)
}

// Scheduler owns the due-check state machine.
type Scheduler struct {
	lifecycle Lifecycle
	emitter   Emitter
	logger    *log.Logger
	now       func() time.Time

	mu    sync.Mutex
	state atomic.Int32
	cron  *cron.Cron
}

// New creates an idle Scheduler. Call Start to drive it from a timer, or
// Tick directly with a synthetic time.
func New(lifecycle Lifecycle, emitter Emitter, loc *time.Location, logger *log.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	cronLogger := cron.PrintfLogger(logger)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return &Scheduler{
		lifecycle: lifecycle,
		emitter:   emitter,
		logger:    logger,
		now:       time.Now,
		cron:      c,
	}
}

// Start registers the tick job and starts the timer.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(TickSpec, func() {
		s.Tick(s.now())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop stops the timer and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// State reports the current loop state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Tick runs one due check against now and returns the number of alarms fired.
// Failures are logged and never propagated.
func (s *Scheduler) Tick(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	due, err := s.lifecycle.CheckDue(now)
	if err != nil {
		s.logger.Printf("scheduler: check due: %v", err)
		return 0
	}
	if len(due) == 0 {
		return 0
	}

	s.state.Store(int32(Firing))
	defer s.state.Store(int32(Idle))

	fired := 0
	for _, alarm := range due {
		archived, err := s.lifecycle.Archive(alarm)
		if err != nil {
			s.logger.Printf("scheduler: archive #%d (%s): %v; retrying next tick", alarm.ID, alarm.Time, err)
			continue
		}
		if !archived {
			continue
		}
		s.emitter.Emit(notify.DueEvent{
			Time:  alarm.Time,
			Note:  alarm.Note,
			Links: s.lifecycle.ActiveLinks(),
		})
		fired++
	}
	return fired
}
