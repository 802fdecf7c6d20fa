package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/publicartatlas/artimport/internal/importer"
	"github.com/publicartatlas/artimport/internal/model"
)

var (
	validateInput   string
	validateProfile string
	validatePhotos  bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Decode and validate a source file without importing",
	Long:  "Dry run: parses the input, applies the source profile, and reports structural problems. With --photos it also probes each photo URL.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("validate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		profile, err := importer.LoadProfile(validateProfile)
		if err != nil {
			return err
		}

		records, err := importer.Load(validateInput, profile, 0, 0)
		if err != nil {
			return err
		}

		photoRefs := 0
		withArtists := 0
		for _, rec := range records {
			photoRefs += len(rec.Photos)
			if len(rec.Artists) > 0 {
				withArtists++
			}
		}
		fmt.Printf("%s: %d valid records (%d with artists, %d photo references)\n",
			validateInput, len(records), withArtists, photoRefs)

		if validatePhotos && photoRefs > 0 {
			reachable, broken := probePhotos(ctx, records)
			fmt.Printf("photos: %d reachable, %d broken\n", reachable, broken)
			if broken > 0 {
				os.Exit(1)
			}
		}
		return nil
	},
}

// probePhotos HEAD-requests every photo URL with bounded concurrency. The
// probe only checks reachability; magic-byte validation happens at import
// time when the bytes are actually fetched.
func probePhotos(ctx context.Context, records []model.RawImportRecord) (reachable, broken int) {
	client := &http.Client{Timeout: 10 * time.Second}
	var ok, bad atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, rec := range records {
		for _, ref := range rec.Photos {
			url := ref.URL
			g.Go(func() error {
				req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
				if err != nil {
					bad.Add(1)
					return nil
				}
				req.Header.Set("User-Agent", userAgent)
				resp, err := client.Do(req)
				if err != nil || resp.StatusCode >= 400 {
					zap.L().Warn("photo unreachable", zap.String("url", url))
					bad.Add(1)
					if resp != nil {
						resp.Body.Close()
					}
					return nil
				}
				resp.Body.Close()
				ok.Add(1)
				return nil
			})
		}
	}
	_ = g.Wait()
	return int(ok.Load()), int(bad.Load())
}

func init() {
	validateCmd.Flags().StringVar(&validateInput, "input", "", "source file to validate (required)")
	validateCmd.Flags().StringVar(&validateProfile, "profile", "", "source profile YAML (required)")
	validateCmd.Flags().BoolVar(&validatePhotos, "photos", false, "probe photo URLs for reachability")
	_ = validateCmd.MarkFlagRequired("input")
	_ = validateCmd.MarkFlagRequired("profile")
	rootCmd.AddCommand(validateCmd)
}
