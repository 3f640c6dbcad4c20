package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/memohai/storefront/internal/logger"
)

// Warmer refreshes cached catalog scopes on a cron schedule.
type Warmer struct {
	cache  *Cache
	spec   string
	cron   *cron.Cron
	parser cron.Parser
	logger *slog.Logger

	mu      sync.Mutex
	entryID cron.EntryID
	started bool
}

// NewWarmer builds a warmer for spec (standard cron, optional seconds, or descriptors
// like "@every 5m"). An empty spec disables it.
func NewWarmer(log *slog.Logger, cache *Cache, spec string) *Warmer {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Warmer{
		cache:  cache,
		spec:   strings.TrimSpace(spec),
		cron:   cron.New(cron.WithParser(parser)),
		parser: parser,
		logger: logger.OrDiscard(log).With(slog.String("service", "catalog_warmer")),
	}
}

// Enabled reports whether a schedule is configured.
func (w *Warmer) Enabled() bool {
	return w.spec != ""
}

// Start warms the default scope once and schedules periodic refreshes.
func (w *Warmer) Start(ctx context.Context) error {
	if !w.Enabled() {
		w.logger.Info("catalog warmer disabled")
		return nil
	}
	if _, err := w.parser.Parse(w.spec); err != nil {
		return fmt.Errorf("invalid refresh spec %q: %w", w.spec, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := w.Warm(ctx); err != nil {
		// Not fatal: the schedule retries.
		w.logger.Warn("initial catalog warm failed", slog.Any("error", err))
	}
	id, err := w.cron.AddFunc(w.spec, func() {
		if err := w.Warm(context.Background()); err != nil {
			w.logger.Warn("catalog warm failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule catalog warm: %w", err)
	}
	w.entryID = id
	w.cron.Start()
	w.started = true
	w.logger.Info("catalog warmer started", slog.String("spec", w.spec))
	return nil
}

// Stop halts the schedule and waits for a running refresh or ctx, whichever ends first.
func (w *Warmer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.cron.Remove(w.entryID)
	done := w.cron.Stop()
	w.started = false
	w.mu.Unlock()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Warm refreshes the default scope plus every category currently cached.
func (w *Warmer) Warm(ctx context.Context) error {
	scopes := append([]string{""}, w.cache.Scopes()...)
	seen := make(map[string]struct{}, len(scopes))
	var firstErr error
	for _, scope := range scopes {
		if _, dup := seen[scope]; dup {
			continue
		}
		seen[scope] = struct{}{}
		if _, err := w.cache.Refresh(ctx, scope); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("refresh %q: %w", scope, err)
		}
	}
	return firstErr
}
