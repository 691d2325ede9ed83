package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jo-hoe/socialpost/internal/common"
	appcfg "github.com/jo-hoe/socialpost/internal/config"
	"github.com/jo-hoe/socialpost/internal/credentials"
	"github.com/jo-hoe/socialpost/internal/graph"
	"github.com/jo-hoe/socialpost/internal/ledger"
	"github.com/jo-hoe/socialpost/internal/payload"
	"github.com/jo-hoe/socialpost/internal/publisher"
	"github.com/jo-hoe/socialpost/internal/retry"
	"github.com/jo-hoe/socialpost/internal/statesync"
	gitSync "github.com/jo-hoe/socialpost/internal/statesync/git"
	githubSync "github.com/jo-hoe/socialpost/internal/statesync/github"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "run",
		Short:         "Publish all due payloads once",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, rootOpts)
		},
	}
}

// lookupEnv reads credentials from the process environment; tests replace it.
var lookupEnv = os.LookupEnv

// fsFactory returns the filesystem used for payloads, images and the JSON ledger.
var fsFactory = afero.NewOsFs

func runPublish(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.OutOrStdout(), cfg.Publisher.LogLevel)
	if err != nil {
		return startupError("%w", err)
	}

	fs := fsFactory()
	l, err := ledger.Open(fs, cfg.Ledger.Backend, cfg.Ledger.Path)
	if err != nil {
		logger.Error("open ledger", "backend", cfg.Ledger.Backend, "path", cfg.Ledger.Path, "err", err)
		return startupError("open ledger: %w", err)
	}
	defer func() { _ = l.Close() }()

	syncer, err := newSyncer(cfg, fs)
	if err != nil {
		logger.Error("init ledger sync", "type", cfg.Sync.Type, "err", err)
		return startupError("init ledger sync: %w", err)
	}

	store := payload.NewStore(fs, cfg.Publisher.PayloadDir, cfg.Publisher.ImageRoot, cfg.Publisher.ToPublishDir)
	p := publisher.New(logger, store, l, &credentials.Resolver{Lookup: lookupEnv}, graph.New(cfg.Graph), syncer, publisher.Options{
		Retry:    retry.Policy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay},
		Location: cfg.Publisher.DisplayLocation(),
		DryRun:   cfg.Publisher.DryRun,
	})

	rep := p.Run(cmd.Context())
	if err := rep.Err(); err != nil {
		failures := rep.Failures()
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d errors occurred during the run:\n", len(failures))
		for _, f := range failures {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", f)
		}
		return &ExitError{Code: ExitRunErrors, Err: err}
	}
	return nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (*appcfg.Config, error) {
	cfg, err := appcfg.Load(opts.ConfigPath)
	if err != nil {
		return nil, startupError("load config: %w", err)
	}
	if opts.DryRun {
		cfg.Publisher.DryRun = true
	}
	if strings.TrimSpace(opts.LogLevel) != "" {
		cfg.Publisher.LogLevel = opts.LogLevel
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := appcfg.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func newSyncer(cfg *appcfg.Config, fs afero.Fs) (statesync.Syncer, error) {
	switch cfg.Sync.Type {
	case common.SyncTypeNone:
		return statesync.Nop{}, nil
	case common.SyncTypeGit:
		s, err := gitSync.New(cfg.Sync.Git)
		if err != nil {
			return nil, err
		}
		return s, nil
	case common.SyncTypeGitHub:
		s, err := githubSync.New(cfg.Sync.GitHub, fs)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported sync type %q", cfg.Sync.Type)
}
