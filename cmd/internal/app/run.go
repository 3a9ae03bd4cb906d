package app

import (
	"context"
	"os/signal"
	"syscall"
)

// Run is the CLI entrypoint used by cmd/usersvc and cmd/coursesvc.
// It returns an error instead of calling os.Exit to keep defers effective.
func Run(svc Service) error {
	cfg := LoadConfig(svc)
	log := NewLogger(cfg.LogLevel, svc)

	a, err := New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.Run(ctx)
}
