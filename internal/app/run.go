package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/publish"
)

const publisherCloseTimeout = 5 * time.Second

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer(ctx)
	defer a.closeHealthCheckServer(ctx)

	if err := a.load(ctx); err != nil {
		return err
	}

	if url := a.config.PublishURL; url != "" {
		p, err := publish.Dial(ctx, url, publish.WithRecorder(a.metrics))
		if err != nil {
			return fmt.Errorf("failed to connect publisher: %w", err)
		}
		a.publisher = p
		detach := p.Attach(a.model)
		defer func() {
			detach()
			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publisherCloseTimeout)
			defer cancel()
			if err := p.Close(closeCtx); err != nil {
				a.logger.Warn("Publisher close failed", "error", err)
			}
		}()
	}

	if len(a.config.ComparePaths) == 2 {
		cr, err := a.compare(ctx, a.config.ComparePaths[0], a.config.ComparePaths[1])
		if err != nil {
			return fmt.Errorf("comparison failed: %w", err)
		}
		return a.emit(ctx, cr)
	}

	if len(a.config.ConfigPaths) == 0 {
		a.logger.Warn("No configurations given, evaluating model defaults.")
		if err := a.emit(ctx, a.evaluate(ctx, "", nil)); err != nil {
			return err
		}
	}
	for _, path := range a.config.ConfigPaths {
		r, err := a.evaluateFile(ctx, path)
		if err != nil {
			return err
		}
		if err := a.emit(ctx, r); err != nil {
			return err
		}
	}

	if a.config.Watch {
		if err := a.watch(ctx); err != nil {
			return fmt.Errorf("watch failed: %w", err)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
