package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/publicartatlas/artimport/internal/artist"
	"github.com/publicartatlas/artimport/internal/checkpoint"
	"github.com/publicartatlas/artimport/internal/importer"
	"github.com/publicartatlas/artimport/internal/location"
	"github.com/publicartatlas/artimport/internal/photo"
	"github.com/publicartatlas/artimport/internal/resilience"
	"github.com/publicartatlas/artimport/internal/spatial"
	"github.com/publicartatlas/artimport/pkg/geocode"
	"github.com/publicartatlas/artimport/pkg/ingest"
)

const userAgent = "artimport/1.0 (imports@publicartatlas.org)"

var (
	runInput   string
	runProfile string
	runOffset  int
	runLimit   int
	runFresh   bool
	runYes     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a mass import from a source file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		// Interrupts stop the run at the next item boundary so the
		// checkpoint stays consistent.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		profile, err := importer.LoadProfile(runProfile)
		if err != nil {
			return err
		}

		corpus, err := initCorpus(ctx)
		if err != nil {
			return err
		}
		defer corpus.Close()

		checkpoints, err := checkpoint.NewFileStore(cfg.Import.CheckpointDir)
		if err != nil {
			return err
		}
		reports, err := importer.NewReportWriter(cfg.Import.ReportDir)
		if err != nil {
			return err
		}

		photoCfg := photo.DefaultConfig(cfg.Photo.CacheDir)
		photoCfg.Timeout = time.Duration(cfg.Photo.TimeoutSecs) * time.Second
		photoCfg.Retry.MaxAttempts = cfg.Photo.MaxRetries + 1
		fetcher, err := photo.NewFetcher(photoCfg)
		if err != nil {
			return err
		}

		writer := ingest.NewClient(cfg.Ingest.Key,
			ingest.WithBaseURL(cfg.Ingest.BaseURL),
			ingest.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.Ingest.RequestsPerSec), 1)),
		)

		var enhancer *location.Enhancer
		if cfg.Geocode.Enabled {
			cache, err := geocode.NewCache(cfg.Geocode.CachePath)
			if err != nil {
				return err
			}
			defer cache.Close()
			nominatim := geocode.NewNominatim(userAgent,
				geocode.WithBaseURL(cfg.Geocode.BaseURL),
				geocode.WithRateLimit(cfg.Geocode.RequestsPerSec),
			)
			enhancer = location.New(geocode.NewCachedClient(nominatim, cache))
		}

		submitRetry := resilience.DefaultPolicy()
		submitRetry.MaxAttempts = cfg.Import.SubmitMaxAttempts
		submitRetry.OnRetry = resilience.LogRetries("submit")

		deps := importer.Deps{
			Prefilter: spatial.New(corpus, cfg.Spatial.RadiusMeters, cfg.Spatial.MaxCandidates),
			ScorerCfg: cfg.Scorer,
			Resolver: artist.New(corpus, writer, artist.Config{
				MatchThreshold: cfg.Artist.MatchThreshold,
				CreateMissing:  cfg.Artist.CreateMissing,
			}),
			Photos:      fetcher,
			Enhancer:    enhancer,
			Checkpoints: checkpoints,
			Writer:      writer,
			SubmitRetry: submitRetry,
			Confirm:     importer.ConfirmFunc(promptYesNo),
		}
		opts := importer.Options{
			InputPath:            runInput,
			Offset:               runOffset,
			Limit:                runLimit,
			Fresh:                runFresh,
			Yes:                  runYes,
			WarnPolicy:           importer.WarnPolicy(cfg.Import.WarnPolicy),
			MergeTagsOnDuplicate: cfg.Import.MergeTags,
			RequireArtists:       cfg.Import.RequireArtists,
			RequirePhotos:        cfg.Import.RequirePhotos,
			InterItemDelay:       cfg.Import.InterItemDelay(),
		}

		report, runErr := importer.New(deps, profile, opts).Run(ctx)
		if report != nil {
			path, werr := reports.Write(report)
			if werr != nil {
				zap.L().Error("report write failed", zap.Error(werr))
			} else {
				fmt.Fprintf(os.Stderr, "report written to %s\n", path)
			}
			fmt.Println(importer.RenderText(report))
		}
		if runErr != nil {
			return eris.Wrap(runErr, "import run")
		}
		return nil
	},
}

// promptYesNo asks on the terminal; a non-interactive stdin answers no.
func promptYesNo(prompt string) (bool, error) {
	fmt.Fprintf(os.Stderr, "%s? [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "source file to import (required)")
	runCmd.Flags().StringVar(&runProfile, "profile", "", "source profile YAML (required)")
	runCmd.Flags().IntVar(&runOffset, "offset", 0, "skip the first N records")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "process at most N records (0 = all)")
	runCmd.Flags().BoolVar(&runFresh, "fresh", false, "discard any existing checkpoint for this input")
	runCmd.Flags().BoolVar(&runYes, "yes", false, "resume without interactive confirmation")
	_ = runCmd.MarkFlagRequired("input")
	_ = runCmd.MarkFlagRequired("profile")
	rootCmd.AddCommand(runCmd)
}
