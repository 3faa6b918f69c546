// Package service holds the post, comment, reaction, profile, media and
// retention operations that the HTTP handlers and CLIs call.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fambam/internal/middleware"
	"fambam/internal/models"
)

// DefaultBackendTimeout bounds a single store call when none is configured.
const DefaultBackendTimeout = 10 * time.Second

// ChangePublisher broadcasts row changes to viewers of a post.
type ChangePublisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

// backend carries the settings every service shares.
type backend struct {
	timeout time.Duration
	logger  *slog.Logger
}

func newBackend() backend {
	return backend{timeout: DefaultBackendTimeout}
}

// SetTimeout changes the bound applied to every store call.
func (b *backend) SetTimeout(d time.Duration) {
	if d > 0 {
		b.timeout = d
	}
}

// SetLogger replaces the package logger for this service.
func (b *backend) SetLogger(l *slog.Logger) {
	b.logger = l
}

func (b *backend) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return middleware.Logger
}

func (b *backend) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

// storeErr passes AppErrors through and wraps anything else as a
// persistence failure of op.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewPersistenceError(op, err)
}

func publish(ctx context.Context, b *backend, pub ChangePublisher, ev models.ChangeEvent) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		b.log().WarnContext(ctx, "failed to publish change",
			slog.String("channel", ev.Channel()),
			slog.String("event", ev.Event),
			slog.String("error", err.Error()),
		)
	}
}
