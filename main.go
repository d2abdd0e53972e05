package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"multitimer/internal"
	"multitimer/internal/app"
	"multitimer/internal/mirror"
	"multitimer/internal/notify"
	"multitimer/internal/pkg/config"
	"multitimer/internal/pkg/uid"
	"multitimer/internal/store"
	"multitimer/internal/timer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.NewViper(configPath)
	if err != nil {
		return err
	}
	defer cfg.Close()

	// the terminal belongs to the UI, so logs go to a file
	logger, logCloser, err := app.Logging(cfg, "multitimer", true, nil)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := timer.NewEngine(
		timer.WithInterval(cfg.GetMillisecond("timer.tick_interval_ms")),
		timer.WithIDGenerator(uid.NewUUID().Generate),
	)

	repo, err := app.Store(ctx, cfg)
	if err != nil {
		return err
	}
	if repo != nil {
		defer repo.Close()
		restore(ctx, logger, engine, repo)
	}

	inbox := internal.NewInbox(16)

	var m *mirror.Mirror
	if repo != nil {
		m = mirror.New(engine, repo, app.MirrorOptions(cfg, logger, inbox.ReportError))
		defer func() {
			closeCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := m.Close(closeCtx); err != nil {
				logger.Error("mirror did not drain", "error", err)
			}
			logger.Info("mirror closed", "stats", m.Stats())
		}()
	}

	notifiers := []notify.Notifier{
		notify.NewBell(os.Stderr, cfg.GetBool("ui.click_bell")),
		inbox,
	}
	bus, err := app.NATS(cfg, "multitimer")
	if err != nil {
		return err
	}
	if bus != nil {
		defer bus.Close()
		notifiers = append(notifiers, bus)
	}
	fanout := notify.NewFanout(logger, time.Second, notifiers...)
	defer func() {
		closeCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		if err := fanout.Close(closeCtx); err != nil {
			logger.Warn("notifiers did not drain", "error", err)
		}
	}()
	detach := fanout.Attach(engine)
	defer detach()

	go func() {
		if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("engine stopped", "error", err)
		}
	}()

	model := internal.NewModel(engine, internal.Options{
		Inbox: inbox,
		Dark:  cfg.GetBool("ui.dark"),
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	ticker := time.NewTicker(cfg.GetMillisecond("ui.refresh_interval_ms"))
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Send(internal.MsgTick{})
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	cancel()
	return nil
}

func restore(ctx context.Context, logger *slog.Logger, engine *timer.Engine, repo store.Repository) {
	recs, err := repo.List(ctx)
	if err != nil {
		logger.Error("failed to load timers", "error", err)
		return
	}
	timers, err := store.Timers(recs, time.Now())
	if err != nil {
		logger.Warn("skipped unreadable timers", "error", err)
	}
	if err := engine.Restore(timers); err != nil {
		logger.Warn("skipped invalid timers", "error", err)
	}
	logger.Info("timers restored", "count", engine.Len())
}
