package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/socialpost/internal/ledger"
)

// publishedAtter is implemented by ledgers that keep the time each id was recorded.
type publishedAtter interface {
	PublishedAt(id string) (time.Time, error)
}

// NewLedgerCommand creates the ledger command. It prints every published id,
// with its publish time when the backend records one.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ledger",
		Short:         "List published ids",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			l, err := ledger.Open(fsFactory(), cfg.Ledger.Backend, cfg.Ledger.Path)
			if err != nil {
				return startupError("open ledger: %w", err)
			}
			defer func() { _ = l.Close() }()

			out := cmd.OutOrStdout()
			dated, _ := l.(publishedAtter)
			for _, id := range l.IDs() {
				if dated == nil {
					_, _ = fmt.Fprintln(out, id)
					continue
				}
				at, err := dated.PublishedAt(id)
				if err != nil {
					return startupError("read ledger: %w", err)
				}
				_, _ = fmt.Fprintf(out, "%s\t%s\n", id, at.Format(time.RFC3339))
			}
			return nil
		},
	}
}
