package publisher

import (
	"context"
	"log/slog"

	"github.com/jo-hoe/socialpost/internal/payload"
	"github.com/jo-hoe/socialpost/internal/retry"
	"github.com/jo-hoe/socialpost/internal/statesync"
)

// cleanup removes the consumed payload file and its local image. Each delete
// is attempted on its own; failures are warnings and never reach the report.
func (p *Publisher) cleanup(log *slog.Logger, e payload.Entry) {
	if err := p.Payloads.Remove(e.Path); err != nil {
		log.Warn("could not delete payload file", "path", e.Path, "err", err)
	}
	img := p.Payloads.LocalImagePath(e.Payload)
	if img == "" {
		log.Debug("no local image to delete", "image_url", e.Payload.ImageURL)
		return
	}
	if err := p.Payloads.Remove(img); err != nil {
		log.Warn("could not delete image", "path", img, "err", err)
	}
}

// syncLedger pushes the ledger with the run's retry policy.
func (p *Publisher) syncLedger(ctx context.Context, log *slog.Logger, pubID string) error {
	req := statesync.Request{
		Paths:     []string{p.Ledger.Path()},
		PublishID: pubID,
		Timestamp: p.opts.Now().UTC(),
	}
	res := retry.Do(ctx, p.opts.Retry, p.opts.Sleep, func(ctx context.Context) error {
		return p.Sync.Sync(ctx, req)
	}, p.attemptLogger(log, "ledger sync failed"))
	if !res.OK() {
		log.Error("ledger sync gave up", "attempts", res.Attempts, "err", res.Err)
		return res.Err
	}
	log.Debug("ledger synced", "sync", p.Sync.Name())
	return nil
}

// catchUpSync retries once at the end of the run so ledger commits that
// could not be pushed earlier still reach the remote.
func (p *Publisher) catchUpSync(ctx context.Context, log *slog.Logger) {
	req := statesync.Request{Paths: []string{p.Ledger.Path()}, Timestamp: p.opts.Now().UTC()}
	if err := p.Sync.Sync(ctx, req); err != nil {
		log.Warn("catch-up ledger sync failed; next run will retry", "err", err)
		return
	}
	log.Info("catch-up ledger sync succeeded")
}
