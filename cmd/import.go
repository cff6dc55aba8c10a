package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transparencydata/payments-cli/internal/ingest"
	"github.com/transparencydata/payments-cli/internal/model"
)

var (
	importCompany string
	importCSV     string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Parse downloaded reports into raw records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		// A canonical CSV bypasses the per-source parsers entirely.
		if importCSV != "" {
			f, err := os.Open(importCSV)
			if err != nil {
				return eris.Wrap(err, "import: open csv")
			}
			defer f.Close()

			records, err := ingest.ReadRecordsCSV(f)
			if err != nil {
				return err
			}
			n, err := st.ImportRecords(ctx, records)
			if err != nil {
				return err
			}
			zap.L().Info("imported canonical csv",
				zap.String("path", importCSV),
				zap.Int64("records", n))
			return nil
		}

		sources, err := ingest.LoadSources(cfg.Import.SourcesFile)
		if err != nil {
			return err
		}

		ing := ingest.New(nil)
		var records []*model.Record
		for _, src := range sources {
			if importCompany != "" && !strings.EqualFold(src.Company, importCompany) {
				continue
			}

			parsed, err := ing.ReadSource(ctx, src, cfg.Import.DataDir)
			if err != nil {
				return err
			}
			zap.L().Info("parsed report",
				zap.String("company", src.Company),
				zap.Int("year", src.Year),
				zap.Int("records", len(parsed)))
			records = append(records, parsed...)
		}

		n, err := st.ImportRecords(ctx, records)
		if err != nil {
			return err
		}

		if anomalies := ing.Anomalies(); anomalies.Total() > 0 {
			zap.L().Warn("import anomalies",
				zap.Int("total", anomalies.Total()),
				zap.Strings("top", anomalies.Top(5)))
		}
		zap.L().Info("import complete", zap.Int64("records", n))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCompany, "company", "", "import only sources for this company")
	importCmd.Flags().StringVar(&importCSV, "csv", "", "import records from a canonical CSV file instead of the sources list")
	rootCmd.AddCommand(importCmd)
}
