// Package publisher drives one batch run: every payload on disk is checked
// against the ledger and its schedule, published to Instagram (and Facebook
// when configured), recorded, cleaned up and synced.
//
// Payloads are processed strictly one after another. A failure only ever
// abandons the payload at hand; the run always visits every file and reports
// all failures at the end.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jo-hoe/socialpost/internal/credentials"
	"github.com/jo-hoe/socialpost/internal/ledger"
	"github.com/jo-hoe/socialpost/internal/payload"
	"github.com/jo-hoe/socialpost/internal/report"
	"github.com/jo-hoe/socialpost/internal/retry"
	"github.com/jo-hoe/socialpost/internal/statesync"
	"github.com/jo-hoe/socialpost/internal/util"
)

// Options tune a Publisher. Zero values fall back to production defaults.
type Options struct {
	Retry    retry.Policy
	Sleep    retry.Sleeper
	Now      func() time.Time
	Location *time.Location // display only
	DryRun   bool
}

// Publisher runs the publish-and-track workflow.
type Publisher struct {
	Log      *slog.Logger
	Payloads *payload.Store
	Ledger   ledger.Ledger
	Creds    CredentialResolver
	Platform Platform
	Sync     statesync.Syncer
	opts     Options
}

func New(log *slog.Logger, store *payload.Store, l ledger.Ledger, creds CredentialResolver, platform Platform, syncer statesync.Syncer, opts Options) *Publisher {
	if opts.Retry.Attempts <= 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if syncer == nil {
		syncer = statesync.Nop{}
	}
	return &Publisher{
		Log:      log,
		Payloads: store,
		Ledger:   l,
		Creds:    creds,
		Platform: platform,
		Sync:     syncer,
		opts:     opts,
	}
}

// Run processes every payload currently on disk and returns the run report.
// The report's Err is non-nil when any payload produced a run error.
func (p *Publisher) Run(ctx context.Context) *report.Report {
	runID := util.NewID()
	rep := report.New(runID)
	log := p.Log.With("run_id", runID)

	entries, err := p.Payloads.List()
	if err != nil {
		log.Error("list payloads", "dir", p.Payloads.Dir(), "err", err)
		rep.Fail("", p.Payloads.Dir(), report.ClassPayloadStore, err)
		return rep
	}
	now := p.opts.Now()
	log.Info("run started", "payloads", len(entries), "dry_run", p.opts.DryRun, "sync", p.Sync.Name())

	syncPending := false
	for _, e := range entries {
		if ctx.Err() != nil {
			log.Warn("run interrupted; remaining payloads left for the next run", "err", ctx.Err())
			break
		}
		st := p.process(ctx, log, rep, e, now)
		if st.syncFailed {
			syncPending = true
		}
	}

	if syncPending && ctx.Err() == nil {
		p.catchUpSync(ctx, log)
	}

	log.Info("run finished", rep.Summary()...)
	return rep
}

type outcome struct {
	stage      Stage
	syncFailed bool
}

func (p *Publisher) process(ctx context.Context, runLog *slog.Logger, rep *report.Report, e payload.Entry, now time.Time) outcome {
	log := runLog.With("file", e.Path)
	if e.Err != nil {
		log.Error("unreadable payload", "err", e.Err)
		rep.Fail("", e.Path, report.ClassInvalidPayload, e.Err)
		rep.Record(report.OutcomeFailed)
		return outcome{stage: StageFailed}
	}
	pl := e.Payload
	log = log.With("pub_id", pl.PublishID, "account", pl.Account)
	log.Debug("processing payload", "stage", StagePending)

	// Eligibility
	if p.Ledger.Contains(pl.PublishID) {
		log.Debug("already published")
		rep.Record(report.OutcomeAlreadyPublished)
		return outcome{stage: StageSkipped}
	}
	log.Debug("checking schedule", "stage", StageDueCheck)
	if !pl.Due(now) {
		at := pl.ScheduledAt()
		log.Info("not yet due",
			"scheduled_at", at.In(p.opts.Location).Format("2006-01-02 15:04:05 MST"),
			"in", humanize.RelTime(at, now, "ago", "from now"),
		)
		rep.Record(report.OutcomeNotDue)
		return outcome{stage: StageSkipped}
	}

	// Credential gate
	creds, err := p.Creds.Resolve(pl)
	switch {
	case errors.Is(err, credentials.ErrMissingToken):
		log.Warn("access token missing; post skipped", "env", credentials.TokenVar(pl.Account))
		rep.Record(report.OutcomeSkipped)
		return outcome{stage: StageSkipped}
	case err != nil:
		log.Error("no instagram destination", "err", err)
		rep.Fail(pl.PublishID, e.Path, report.ClassMissingDestination, err)
		rep.Record(report.OutcomeFailed)
		return outcome{stage: StageFailed}
	}

	if p.opts.DryRun {
		log.Info("dry run: would publish", "instagram_id", creds.InstagramID, "facebook", creds.FacebookID != "")
		rep.Record(report.OutcomeDryRun)
		return outcome{stage: StageSkipped}
	}

	// Instagram container: a single attempt.
	log.Debug("creating media container", "stage", StageInstagramContainer)
	containerID, err := p.Platform.CreateContainer(ctx, creds.InstagramID, pl.ImageURL, pl.Caption, creds.AccessToken)
	if err != nil {
		log.Error("instagram container creation failed", "err", err)
		rep.Fail(pl.PublishID, e.Path, report.ClassContainerFailure, err)
		rep.Record(report.OutcomeFailed)
		return outcome{stage: StageFailed}
	}
	log.Info("instagram container created", "container_id", containerID)

	// Instagram publish
	log.Debug("publishing container", "stage", StageInstagramPublish)
	var mediaID string
	res := retry.Do(ctx, p.opts.Retry, p.opts.Sleep, func(ctx context.Context) error {
		id, err := p.Platform.PublishContainer(ctx, creds.InstagramID, containerID, creds.AccessToken)
		if err != nil {
			return err
		}
		mediaID = id
		return nil
	}, p.attemptLogger(log, "instagram publish failed"))
	if !res.OK() {
		log.Error("instagram publish gave up", "attempts", res.Attempts, "err", res.Err)
		rep.Fail(pl.PublishID, e.Path, report.ClassPublishFailure, res.Err)
		rep.Record(report.OutcomeFailed)
		return outcome{stage: StageFailed}
	}
	log.Info("instagram post published", "media_id", mediaID)

	// The post is live: recording it must not be cut short by cancellation.
	commitCtx := context.WithoutCancel(ctx)

	// Facebook is best-effort: its failure is reported but the post still commits.
	if creds.FacebookID != "" {
		log.Debug("publishing facebook photo", "stage", StageFacebookPublish)
		var postID string
		fbRes := retry.Do(ctx, p.opts.Retry, p.opts.Sleep, func(ctx context.Context) error {
			id, err := p.Platform.PublishPhoto(ctx, creds.FacebookID, pl.ImageURL, pl.Caption, creds.AccessToken)
			if err != nil {
				return err
			}
			postID = id
			return nil
		}, p.attemptLogger(log, "facebook publish failed"))
		if fbRes.OK() {
			log.Info("facebook post published", "post_id", postID)
		} else {
			log.Error("facebook publish gave up", "attempts", fbRes.Attempts, "err", fbRes.Err)
			rep.Fail(pl.PublishID, e.Path, report.ClassSecondaryPlatform, fbRes.Err)
		}
	} else {
		log.Debug("no facebook destination; facebook skipped")
	}

	// Commit: the ledger is persisted before anything is deleted.
	if err := p.Ledger.Add(commitCtx, pl.PublishID); err != nil {
		log.Error("post is live but could not be recorded; add it to the ledger by hand", "media_id", mediaID, "err", err)
		rep.Fail(pl.PublishID, e.Path, report.ClassLedgerFailure, err)
		rep.Record(report.OutcomeFailed)
		return outcome{stage: StageFailed}
	}
	p.cleanup(log, e)
	rep.Record(report.OutcomeCommitted)
	log.Info("post committed", "stage", StageCommitted)

	if err := p.syncLedger(ctx, log, pl.PublishID); err != nil {
		rep.Fail(pl.PublishID, e.Path, report.ClassSyncFailure, err)
		return outcome{stage: StageCommitted, syncFailed: true}
	}
	return outcome{stage: StageCommitted}
}

func (p *Publisher) attemptLogger(log *slog.Logger, msg string) func(int, error) {
	return func(attempt int, err error) {
		log.Warn(msg, "attempt", attempt, "max_attempts", p.opts.Retry.Attempts, "err", err)
	}
}
