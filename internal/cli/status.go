package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tillsync/tillsync/internal/pos"
)

// statusReport is the JSON payload of the status command.
type statusReport struct {
	Pending  map[pos.Collection]int `json:"pending"`
	LowStock []lowStockLine         `json:"low_stock"`
}

type lowStockLine struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Stock    float64 `json:"stock"`
	MinStock float64 `json:"min_stock"`
}

// NewStatusCommand creates the status command: pending upload counts
// per collection plus the low-stock report.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show pending sync counts and low-stock products",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			counts, err := st.PendingCounts(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read pending counts", err)
			}
			low, err := st.LowStockProducts(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read low stock", err)
			}

			report := statusReport{Pending: counts}
			for _, p := range low {
				report.LowStock = append(report.LowStock, lowStockLine{
					SKU:      p.SKU,
					Name:     p.Name,
					Stock:    p.StockQuantity,
					MinStock: p.MinStockLevel,
				})
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if rootOpts.Format == "json" {
				return out.Success(report)
			}
			return printStatusText(out, report)
		},
	}
}

func printStatusText(out *OutputFormatter, report statusReport) error {
	// Locale-aware grouping so 12500 pending records read as 12,500.
	p := message.NewPrinter(language.English)

	p.Fprintln(out.Writer, "Pending upload:")
	for _, col := range pos.SyncableCollections() {
		p.Fprintf(out.Writer, "  %-14s %d\n", string(col), report.Pending[col])
	}

	if len(report.LowStock) == 0 {
		p.Fprintln(out.Writer, "No products below their reorder threshold.")
		return nil
	}
	p.Fprintln(out.Writer, "Low stock:")
	for _, l := range report.LowStock {
		p.Fprintf(out.Writer, "  %-12s %-24s stock %.2f (min %.2f)\n", l.SKU, l.Name, l.Stock, l.MinStock)
	}
	return nil
}
