package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transparencydata/payments-cli/internal/fetcher"
	"github.com/transparencydata/payments-cli/internal/ingest"
)

var (
	fetchCompany string
	fetchForce   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download disclosure reports listed in the sources file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sources, err := ingest.LoadSources(cfg.Import.SourcesFile)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Import.DataDir, 0o755); err != nil {
			return eris.Wrap(err, "fetch: create data dir")
		}

		httpF := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
		ftpF := fetcher.NewFTPFetcher(fetcher.FTPOptions{})

		var fetched, skipped int
		for _, src := range sources {
			if fetchCompany != "" && !strings.EqualFold(src.Company, fetchCompany) {
				continue
			}
			if src.URL == "" {
				skipped++
				continue
			}

			dest := src.LocalPath(cfg.Import.DataDir)
			changed, err := fetchSource(ctx, httpF, ftpF, src, dest, fetchForce)
			if err != nil {
				return err
			}
			if !changed {
				zap.L().Debug("report up to date",
					zap.String("company", src.Company),
					zap.String("path", dest))
				skipped++
				continue
			}

			zap.L().Info("fetched report",
				zap.String("company", src.Company),
				zap.Int("year", src.Year),
				zap.String("path", dest))
			fetched++
		}

		zap.L().Info("fetch complete",
			zap.Int("fetched", fetched),
			zap.Int("skipped", skipped))
		return nil
	},
}

// fetchSource downloads one source's report to dest. Returns whether
// anything was written. Plain HTTP downloads are conditional on a
// stored ETag so re-runs skip unchanged reports; force re-fetches a
// present file but still honors the publisher's ETag.
func fetchSource(ctx context.Context, httpF *fetcher.HTTPFetcher, ftpF *fetcher.FTPFetcher, src ingest.Source, dest string, force bool) (bool, error) {
	_, statErr := os.Stat(dest)
	present := statErr == nil
	if present && !force {
		return false, nil
	}

	isZip := strings.HasSuffix(strings.ToLower(src.URL), ".zip")
	isFTP := strings.HasPrefix(src.URL, "ftp://")

	// Zipped reports are downloaded next to the destination and the
	// payload file is unpacked in its place.
	if isZip {
		var f fetcher.Fetcher = httpF
		if isFTP {
			f = ftpF
		}
		archive := dest + ".zip"
		if _, err := f.DownloadToFile(ctx, src.URL, archive); err != nil {
			return false, err
		}
		defer os.Remove(archive)

		var (
			extracted string
			err       error
		)
		if src.ZipEntry != "" {
			extracted, err = fetcher.ExtractZIPFile(archive, src.ZipEntry, filepath.Dir(dest))
		} else {
			extracted, err = fetcher.ExtractZIPSingle(archive, filepath.Dir(dest))
		}
		if err != nil {
			return false, err
		}
		if extracted != dest {
			if err := os.Rename(extracted, dest); err != nil {
				return false, eris.Wrap(err, "fetch: rename extracted report")
			}
		}
		return true, nil
	}

	if isFTP {
		_, err := ftpF.DownloadToFile(ctx, src.URL, dest)
		return err == nil, err
	}

	etag := ""
	if present {
		if b, err := os.ReadFile(etagPath(dest)); err == nil {
			etag = strings.TrimSpace(string(b))
		}
	}

	body, newETag, changed, err := httpF.DownloadIfChanged(ctx, src.URL, etag)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	defer body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return false, eris.Wrap(err, "fetch: create report file")
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		return false, eris.Wrap(err, "fetch: write report file")
	}
	if err := out.Close(); err != nil {
		return false, eris.Wrap(err, "fetch: close report file")
	}

	if newETag != "" {
		if err := os.WriteFile(etagPath(dest), []byte(newETag), 0o644); err != nil {
			return false, eris.Wrap(err, "fetch: write etag")
		}
	}
	return true, nil
}

// etagPath is the sidecar file holding the last seen ETag for a report.
func etagPath(dest string) string {
	return dest + ".etag"
}

func init() {
	fetchCmd.Flags().StringVar(&fetchCompany, "company", "", "fetch only sources for this company")
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "re-check reports that are already present")
	rootCmd.AddCommand(fetchCmd)
}
