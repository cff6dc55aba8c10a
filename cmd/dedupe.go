package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transparencydata/payments-cli/internal/dedupe"
	"github.com/transparencydata/payments-cli/internal/store"
)

var dedupeGeo bool

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Cluster records that describe the same payee",
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

		cmp := dedupe.NewComparator(
			dedupe.WithPersonThreshold(cfg.Dedupe.PersonThreshold),
			dedupe.WithOrgThreshold(cfg.Dedupe.OrgThreshold),
		)
		cl := dedupe.NewClusterer(cmp,
			dedupe.WithWorkers(cfg.Dedupe.Workers),
			dedupe.WithGeoPass(dedupeGeo || cfg.Dedupe.Geo),
		)
		cl.Run(records)

		groups := make(map[int64]string, len(records))
		distinct := make(map[string]struct{})
		for _, r := range records {
			groups[r.ID] = r.GroupID
			distinct[r.GroupID] = struct{}{}
		}
		if err := st.UpdateGroupIDs(ctx, groups); err != nil {
			return err
		}

		zap.L().Info("dedupe complete",
			zap.Int("records", len(records)),
			zap.Int("groups", len(distinct)))
		return nil
	},
}

func init() {
	dedupeCmd.Flags().BoolVar(&dedupeGeo, "geo", false, "add a coordinate-based matching pass")
	rootCmd.AddCommand(dedupeCmd)
}
