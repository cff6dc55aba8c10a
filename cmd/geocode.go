package main

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transparencydata/payments-cli/internal/store"
	"github.com/transparencydata/payments-cli/pkg/geocode"
)

var geocodeCompany string

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve record addresses to coordinates via Google",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Geocode.GoogleKey == "" {
			return eris.New("geocode: google_api_key is not configured")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cacheDB, err := openGeocodeCache(st)
		if err != nil {
			return err
		}
		cache := geocode.NewCache(cacheDB)
		if err := cache.Migrate(ctx); err != nil {
			return err
		}

		provider := geocode.NewGoogleProvider(cfg.Geocode.GoogleKey,
			geocode.WithLanguage(cfg.Geocode.Language),
			geocode.WithRateLimit(cfg.Geocode.RateLimit),
		)
		client := geocode.NewClient(provider, cache,
			geocode.WithConcurrency(cfg.Geocode.Concurrency))

		return runGeocode(ctx, st, client, geocodeCompany)
	},
}

// runGeocode geocodes stored records and persists the coordinates.
// When the batch fails (quota exhaustion included) nothing is written:
// partially geocoded data would bias the geo-augmented comparator in
// ways that are hard to detect downstream.
func runGeocode(ctx context.Context, st store.Store, client *geocode.Client, company string) error {
	records, err := st.ListRecords(ctx, store.RecordFilter{Company: company})
	if err != nil {
		return err
	}

	matched, err := client.GeocodeRecords(ctx, records)
	if err != nil {
		if eris.Is(err, geocode.ErrQuotaExceeded) {
			zap.L().Error("geocoding aborted, daily quota exhausted",
				zap.Int("matched", matched))
		}
		return err
	}

	if err := st.UpdateRecords(ctx, records); err != nil {
		return err
	}

	zap.L().Info("geocode complete",
		zap.Int("records", len(records)),
		zap.Int("matched", matched))
	return nil
}

// openGeocodeCache returns the sqlite handle backing the geocode
// cache. When the main store is sqlite the cache shares its database
// file, otherwise a standalone cache file is opened.
func openGeocodeCache(st store.Store) (*sql.DB, error) {
	if s, ok := st.(*store.SQLiteStore); ok && cfg.Geocode.CachePath == "" {
		return s.DB(), nil
	}
	path := cfg.Geocode.CachePath
	if path == "" {
		path = "geocode_cache.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: open cache")
	}
	return db, nil
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeCompany, "company", "", "geocode only records of this company")
	rootCmd.AddCommand(geocodeCmd)
}
