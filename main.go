package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pathakanu/myAlarm/internal/app"
	"github.com/pathakanu/myAlarm/internal/config"
	"github.com/pathakanu/myAlarm/internal/database"
)

const logPrefix = "[myAlarm] "

func main() {
	cfg := config.Load()

	out := os.Stdout
	if !cfg.Headless {
		// The terminal belongs to the UI; send logs to a file instead.
		f, err := tea.LogToFile(cfg.LogFile, "myAlarm")
		if err != nil {
			log.Fatalf("open log file %s: %v", cfg.LogFile, err)
		}
		defer f.Close()
		out = f
	}
	logger := log.New(out, logPrefix, log.LstdFlags|log.Lshortfile)

	db, err := database.New(cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		logger.Fatalf("database init failed: %v", err)
	}
	defer database.Close(db)

	alarmApp, err := app.New(cfg, db, logger)
	if err != nil {
		logger.Fatalf("app init failed: %v", err)
	}

	if !cfg.Headless {
		if err := alarmApp.RunTUI(); err != nil {
			logger.Printf("ui error: %v", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	go waitForShutdown(cancel, logger)
	if err := alarmApp.RunHeadless(ctx); err != nil {
		logger.Printf("scheduler error: %v", err)
	}
}

func waitForShutdown(cancel context.CancelFunc, logger *log.Logger) {
	stopCtx := make(chan os.Signal, 1)
	signal.Notify(stopCtx, syscall.SIGINT, syscall.SIGTERM)
	<-stopCtx
	logger.Println("shutting down...")
	cancel()
}
