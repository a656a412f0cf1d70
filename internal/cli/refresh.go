package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRefreshCommand creates the refresh command: pull the remote
// catalog and replace the local product and inventory mirrors.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "refresh",
		Short:         "Replace the local catalog mirror from the remote store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, eng, err := buildEngine(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := eng.RefreshCatalog(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "catalog refresh failed", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if rootOpts.Format == "json" {
				return out.Success(map[string]string{"refreshed": "ok"})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Catalog refreshed.")
			return nil
		},
	}
}
