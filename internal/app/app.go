package app

import (
	"context"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gorm.io/gorm"

	"github.com/pathakanu/myAlarm/internal/alarm"
	"github.com/pathakanu/myAlarm/internal/config"
	"github.com/pathakanu/myAlarm/internal/notify"
	myopenai "github.com/pathakanu/myAlarm/internal/openai"
	"github.com/pathakanu/myAlarm/internal/scheduler"
	"github.com/pathakanu/myAlarm/internal/store"
	"github.com/pathakanu/myAlarm/internal/twilio"
	"github.com/pathakanu/myAlarm/internal/tui"
)

// Messenger delivers a text message to a recipient.
type Messenger interface {
	SendWhatsAppMessage(to, body string) error
}

// App coordinates alarm persistence, the due-check loop and notifications.
type App struct {
	cfg        *config.Config
	store      *store.Store
	manager    *alarm.Manager
	dispatcher *notify.Dispatcher
	scheduler  *scheduler.Scheduler
	openAI     *myopenai.Client
	messenger  Messenger
	logger     *log.Logger
}

// New creates a fully configured App instance on top of an open database.
func New(cfg *config.Config, db *gorm.DB, logger *log.Logger) (*App, error) {
	s := store.New(db)
	if err := s.Init(); err != nil {
		return nil, err
	}
	manager, err := alarm.New(s, cfg.LocalTimezone, logger)
	if err != nil {
		return nil, err
	}

	dispatcher := notify.NewDispatcher(logger)
	a := &App{
		cfg:        cfg,
		store:      s,
		manager:    manager,
		dispatcher: dispatcher,
		scheduler:  scheduler.New(manager, dispatcher, cfg.LocalTimezone, logger),
		openAI:     myopenai.New(cfg.OpenAIAPIKey),
		logger:     logger,
	}

	dispatcher.Subscribe(notify.Log(logger))
	if cfg.RelayEnabled() {
		a.messenger = twilio.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, logger)
		dispatcher.Subscribe(a.relay)
		logger.Printf("app: relaying due alarms to WhatsApp %s (openai composer: %v)",
			twilio.NormalizeWhatsAppAddress(cfg.NotifyWhatsApp), a.openAI.Enabled())
	}
	return a, nil
}

// Manager exposes the alarm lifecycle to front ends.
func (a *App) Manager() *alarm.Manager {
	return a.manager
}

// Subscribe registers an additional due-event listener.
func (a *App) Subscribe(l notify.Listener) {
	a.dispatcher.Subscribe(l)
}

// StartScheduler starts the once-per-second due check.
func (a *App) StartScheduler() error {
	return a.scheduler.Start()
}

// StopScheduler stops the due check and waits for a running tick.
func (a *App) StopScheduler() {
	a.scheduler.Stop()
}

// RunHeadless runs the due check until ctx is cancelled. Due alarms are
// logged, rung on stdout and relayed when configured.
func (a *App) RunHeadless(ctx context.Context) error {
	if a.cfg.Bell {
		a.Subscribe(notify.Bell(os.Stdout))
	}
	if err := a.StartScheduler(); err != nil {
		return err
	}
	a.logger.Printf("app: running headless")
	<-ctx.Done()
	a.StopScheduler()
	return nil
}

// RunTUI runs the terminal front end with the due check in the background.
func (a *App) RunTUI() error {
	program := tea.NewProgram(tui.New(a.manager, time.Now().In(a.cfg.LocalTimezone)), tea.WithAltScreen())

	if a.cfg.Bell {
		a.Subscribe(notify.Bell(os.Stderr))
	}
	a.Subscribe(func(evt notify.DueEvent) {
		program.Send(tui.DueMsg{Event: evt})
	})

	if err := a.StartScheduler(); err != nil {
		return err
	}
	defer a.StopScheduler()

	_, err := program.Run()
	return err
}

// relay forwards a due alarm over WhatsApp without holding up the tick.
func (a *App) relay(evt notify.DueEvent) {
	go a.sendRelay(evt)
}

func (a *App) sendRelay(evt notify.DueEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := a.openAI.ComposeDueMessage(ctx, evt)
	if err != nil {
		a.logger.Printf("relay: compose message: %v", err)
	}
	if err := a.messenger.SendWhatsAppMessage(a.cfg.NotifyWhatsApp, body); err != nil {
		a.logger.Printf("relay: send %s: %v", evt.Time, err)
	}
}
