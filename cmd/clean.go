package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transparencydata/payments-cli/internal/normalize"
	"github.com/transparencydata/payments-cli/internal/store"
)

var cleanCompany string

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Normalize names, addresses, and amounts on imported records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		settings, err := normalize.LoadSettings(cfg.Clean.SettingsFile)
		if err != nil {
			return err
		}
		if cfg.Clean.DefaultCountry != "" {
			settings.DefaultCountry = cfg.Clean.DefaultCountry
		}

		records, err := st.ListRecords(ctx, store.RecordFilter{Company: cleanCompany})
		if err != nil {
			return err
		}

		anomalies := normalize.NewAnomalyCounter()
		n := normalize.NewNormalizer(settings, anomalies)
		if err := n.CleanAll(records); err != nil {
			return err
		}

		if err := st.UpdateRecords(ctx, records); err != nil {
			return err
		}

		if anomalies.Total() > 0 {
			zap.L().Warn("cleaning anomalies",
				zap.Int("total", anomalies.Total()),
				zap.Strings("top", anomalies.Top(10)))
		}
		zap.L().Info("clean complete", zap.Int("records", len(records)))
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanCompany, "company", "", "clean only records of this company")
	rootCmd.AddCommand(cleanCmd)
}
