package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/fxscalper/internal/app"
	s3blob "github.com/alanyoungcy/fxscalper/internal/blob/s3"
	"github.com/alanyoungcy/fxscalper/internal/domain"
)

func newLedgerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Query the trade journal and ledger archives",
		Long: `Read positions recorded by the journal (sqlite or postgres) and the
ledger snapshots archived to object storage.

Examples:
  fxscalper ledger list --status open
  fxscalper ledger list --since 2026-10-01 --limit 100
  fxscalper ledger archives --prefix ledger/2026/10
  fxscalper ledger archive ledger/2026/10/15/ledger-120000.json`,
	}
	cmd.AddCommand(newLedgerListCmd(opts), newLedgerArchivesCmd(opts), newLedgerArchiveCmd(opts))
	return cmd
}

func newLedgerListCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		status string
		since  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled positions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			listOpts := domain.ListOpts{Limit: limit, Status: domain.PositionStatus(status)}
			if since != "" {
				t, err := time.Parse(time.DateOnly, since)
				if err != nil {
					return fmt.Errorf("since: %w", err)
				}
				listOpts.Since = &t
			}

			journal, err := app.OpenJournal(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if journal == nil {
				return fmt.Errorf("journal.driver is %q; nothing to list", cfg.Journal.Driver)
			}
			defer journal.Close()

			positions, err := journal.Positions().List(cmd.Context(), listOpts)
			if err != nil {
				return err
			}
			return writePositions(cmd.OutOrStdout(), positions)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum rows")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (open|closed)")
	cmd.Flags().StringVar(&since, "since", "", "only positions opened on or after YYYY-MM-DD")
	return cmd
}

func writePositions(w io.Writer, positions []domain.Position) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OPENED\tACCOUNT\tSYMBOL\tDIR\tLOTS\tENTRY\tSL\tTP\tORDER\tSTATUS\tPROFIT")
	for _, p := range positions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%g\t%g\t%g\t%s\t%s\t%.2f\n",
			p.OpenedAt.UTC().Format(time.RFC3339), p.Account, p.Symbol, p.Direction,
			p.Volume, p.EntryPrice, p.SL, p.TP, p.OrderID, p.Status, p.Profit)
	}
	return tw.Flush()
}

func openBlobReader(cmd *cobra.Command, opts *rootOptions) (*s3blob.Reader, string, error) {
	cfg, err := opts.load(cmd)
	if err != nil {
		return nil, "", err
	}
	if !cfg.S3.Enabled {
		return nil, "", fmt.Errorf("s3 is disabled; no archives")
	}
	client, err := app.OpenS3(cmd.Context(), cfg)
	if err != nil {
		return nil, "", err
	}
	return s3blob.NewReader(client), cfg.Archive.Prefix, nil
}

func newLedgerArchivesCmd(opts *rootOptions) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "archives",
		Short: "List archived ledger snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, defPrefix, err := openBlobReader(cmd, opts)
			if err != nil {
				return err
			}
			if prefix == "" {
				prefix = defPrefix
			}
			infos, err := reader.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tSIZE\tMODIFIED")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", info.Path, info.Size, info.LastModified.UTC().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix (default archive.prefix)")
	return cmd
}

func newLedgerArchiveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <path>",
		Short: "Print one archived ledger snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, _, err := openBlobReader(cmd, opts)
			if err != nil {
				return err
			}
			rc, err := reader.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer rc.Close()
			_, err = io.Copy(cmd.OutOrStdout(), rc)
			return err
		},
	}
}
