package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transparencydata/payments-cli/internal/entity"
	"github.com/transparencydata/payments-cli/internal/export"
	"github.com/transparencydata/payments-cli/internal/ingest"
	"github.com/transparencydata/payments-cli/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Merge clusters into entities and write the published CSVs",
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

		b := entity.NewBuilder(entity.WithDefaultOrigin(cfg.Export.DefaultOrigin))
		entities := b.Build(records)
		b.AssignSlugs(entities)

		if err := st.ReplaceEntities(ctx, entities); err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Export.OutDir, 0o755); err != nil {
			return eris.Wrap(err, "export: create out dir")
		}

		if err := writeFile(filepath.Join(cfg.Export.OutDir, "payments.csv"), func(f *os.File) error {
			return export.WritePayments(f, entities)
		}); err != nil {
			return err
		}
		if err := writeFile(filepath.Join(cfg.Export.OutDir, "records.csv"), func(f *os.File) error {
			return ingest.WriteRecordsCSV(f, records)
		}); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.Int("records", len(records)),
			zap.Int("entities", len(entities)),
			zap.String("dir", cfg.Export.OutDir))
		return nil
	},
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
