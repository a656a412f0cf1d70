package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tillsync/tillsync/internal/pos"
	"github.com/tillsync/tillsync/internal/remote"
	"github.com/tillsync/tillsync/internal/store"
	tsync "github.com/tillsync/tillsync/internal/sync"
)

// syncReport is the JSON payload of the sync command.
type syncReport struct {
	Uploaded  map[pos.Collection]int    `json:"uploaded"`
	Conflicts map[pos.Collection]int    `json:"conflicts,omitempty"`
	Failed    map[pos.Collection]string `json:"failed,omitempty"`
}

// NewSyncCommand creates the sync command: one manual upload cycle.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "sync",
		Short:         "Upload pending records to the remote store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, eng, err := buildEngine(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := eng.SyncPending(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "sync cycle failed", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			payload := syncReport{
				Uploaded:  report.Uploaded,
				Conflicts: report.Conflicts,
				Failed:    make(map[pos.Collection]string, len(report.Failed)),
			}
			for col, ferr := range report.Failed {
				payload.Failed[col] = ferr.Error()
			}

			if rootOpts.Format == "json" {
				if err := out.Success(payload); err != nil {
					return err
				}
			} else {
				printSyncText(out, report)
			}

			if !report.Clean() {
				return NewExitError(ExitFailure, "sync cycle completed with failures")
			}
			return nil
		},
	}
}

func printSyncText(out *OutputFormatter, report tsync.Report) {
	p := message.NewPrinter(language.English)

	p.Fprintf(out.Writer, "Uploaded %d records.\n", report.TotalUploaded())
	for _, col := range pos.SyncableCollections() {
		if n, ok := report.Uploaded[col]; ok {
			p.Fprintf(out.Writer, "  %-14s %d\n", string(col), n)
		}
	}
	for col, n := range report.Conflicts {
		p.Fprintf(out.Writer, "  %s: %d records parked in conflict state\n", string(col), n)
	}
	for col, err := range report.Failed {
		p.Fprintf(out.Writer, "  %s: failed: %v\n", string(col), err)
	}
}

// buildEngine opens the store and wires a sync engine from config.
func buildEngine(rootOpts *RootOptions) (*store.Store, *tsync.Engine, error) {
	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return nil, nil, err
	}
	if cfg.RemoteURL == "" {
		return nil, nil, NewExitError(ExitCommandError, "remote_url is not configured")
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	rem := remote.NewClient(cfg.RemoteURL, cfg.APIKey)
	eng := tsync.NewEngine(st, rem, cfg.StoreID, tsync.WithRetryPolicy(cfg.RetryPolicy()))
	return st, eng, nil
}
