package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transparencydata/payments-cli/internal/check"
	"github.com/transparencydata/payments-cli/internal/export"
	"github.com/transparencydata/payments-cli/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare itemized amounts against declared row totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.ListRecords(ctx, store.RecordFilter{})
		if err != nil {
			return err
		}

		flags := check.ComputedTotals(records)
		if err := st.ReplaceFlags(ctx, flags); err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Export.OutDir, 0o755); err != nil {
			return eris.Wrap(err, "check: create out dir")
		}
		if err := writeFile(filepath.Join(cfg.Export.OutDir, "total_flags.csv"), func(f *os.File) error {
			return export.WriteFlags(f, flags)
		}); err != nil {
			return err
		}

		zap.L().Info("check complete",
			zap.Int("records", len(records)),
			zap.Int("flags", len(flags)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
