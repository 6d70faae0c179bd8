package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/alexander-akhmetov/wbstrack/internal/config"
	"github.com/alexander-akhmetov/wbstrack/internal/debug"
	"github.com/alexander-akhmetov/wbstrack/internal/outbox"
	"github.com/alexander-akhmetov/wbstrack/internal/progress"
	"github.com/alexander-akhmetov/wbstrack/internal/store/sqlite"
	"github.com/alexander-akhmetov/wbstrack/internal/telemetry"
	"github.com/alexander-akhmetov/wbstrack/internal/timing"
	"github.com/alexander-akhmetov/wbstrack/internal/workflow"
)

// app holds what every data command needs: resolved config, the open store
// and the tracing shutdown hook.
type app struct {
	cfg      *config.Config
	store    *sqlite.Store
	shutdown telemetry.Shutdown
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.ApplyCLIFlags(flagDB, flagOutbox)
	timing.Log("config loaded")
	return cfg, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	done := timing.Phase("telemetry setup")
	shutdown, err := telemetry.Setup(ctx, telemetry.ServiceName, cfg.Telemetry.Endpoint)
	done()
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	st, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open store: %w", err)
	}
	debug.Logf("opened %s", cfg.DBPath)
	timing.Log("store opened")

	return &app{cfg: cfg, store: st, shutdown: shutdown}, nil
}

func (a *app) Close(ctx context.Context) error {
	return errors.Join(a.store.Close(), a.shutdown(ctx))
}

// session is a workflow service bound to an activity log for one command.
type session struct {
	svc *workflow.Service
	log *progress.Logger
}

func (a *app) session(projectID, command, actor string, live io.Writer) (*session, error) {
	ob, err := outbox.New(a.cfg.OutboxPath)
	if err != nil {
		return nil, err
	}
	logger, err := progress.NewLogger(progress.Config{
		LogsDir:   a.cfg.LogsDir,
		ProjectID: projectID,
		Command:   command,
		Actor:     actor,
		Writer:    live,
	})
	if err != nil {
		return nil, fmt.Errorf("create activity log: %w", err)
	}

	opts := append(a.cfg.ServiceOptions(), workflow.WithLogger(logger))
	return &session{svc: workflow.New(a.store, ob, ob, opts...), log: logger}, nil
}

// finish writes the outcome line and closes the log.
func (s *session) finish(res *workflow.Result, err error) {
	switch {
	case err != nil:
		s.log.Exit("failed: "+err.Error(), 0)
	case len(res.DispatchErrors) > 0:
		s.log.Exit("saved with dispatch errors", res.Project.Progress)
	default:
		s.log.Exit("ok", res.Project.Progress)
	}
	if cerr := s.log.Close(); cerr != nil {
		debug.Logf("close activity log: %v", cerr)
	}
}
