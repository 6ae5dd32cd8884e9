// Command pipeline runs the batch pipeline for one or more years and
// exits 0 on success, 1 on the first stage failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"datapipe/internal/config"
	"datapipe/internal/dataprocessing"
	"datapipe/internal/extract"
	"datapipe/internal/infrastructure"
	"datapipe/internal/operations"
	"datapipe/internal/store"
	"datapipe/pkg/contracts/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		year             = flag.Int("year", 0, "year to process")
		years            = flag.String("years", "", "comma-separated years to process concurrently")
		format           = flag.String("format", "", "report format: txt or json (default from config)")
		verbose          = flag.Bool("verbose", false, "enable debug logging")
		noOutliers       = flag.Bool("no-outliers", false, "skip IQR outlier removal")
		outlierThreshold = flag.Float64("outlier-threshold", 0, "IQR fence multiplier (default from config)")
		stage            = flag.String("stage", "", "run a single stage: extract, clean, feature or report")
		source           = flag.String("source", "", "override the upstream dataset path or URL")
		outDir           = flag.String("out", "", "override the artifact base directory")
		configFile       = flag.String("config", config.DefaultConfigFile, "configuration file")
	)
	flag.Parse()

	yearList, err := parseYears(*year, *years)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		return err
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if *source != "" {
		cfg.Pipeline.SourceFile = *source
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	paths := config.NewPaths(cfg.Paths, *outDir)
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	st := store.NewFSStore(paths, logger)
	extractor := extract.New(cfg.Pipeline.SourceFile, cfg.Pipeline.SourceTimeout, logger)

	registry := operations.NewRegistry()
	allStages := []operations.Stage{
		operations.NewExtractStage(extractor, st),
		operations.NewCleanStage(dataprocessing.NewCleaner(logger), st, cfg.Pipeline.Cleaning, nil),
		operations.NewFeatureStage(dataprocessing.NewBuilder(logger), st),
		operations.NewReportStage(st, cfg.Pipeline.ReportFormat, logger),
	}
	if *stage != "" {
		selected := false
		for _, s := range allStages {
			if s.ID() == *stage {
				registry.MustRegister(s)
				selected = true
				break
			}
		}
		if !selected {
			return fmt.Errorf("unknown stage %q", *stage)
		}
	} else {
		registry.MustRegister(allStages...)
	}

	runner := operations.NewRunner(registry, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var removeOutliers *bool
	if *noOutliers {
		f := false
		removeOutliers = &f
	}

	// Distinct years write distinct artifacts, so they can run in parallel.
	g, gctx := errgroup.WithContext(ctx)
	for _, y := range yearList {
		params := domain.RunParams{
			Year:             y,
			Verbose:          *verbose,
			Format:           *format,
			RemoveOutliers:   removeOutliers,
			OutlierThreshold: *outlierThreshold,
		}
		g.Go(func() error {
			state := runner.NewRun(params)
			if err := runner.Run(infrastructure.WithTraceID(gctx, state.ID), state); err != nil {
				return fmt.Errorf("year %d: %w", params.Year, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// parseYears resolves the -year/-years flags into a list of distinct years.
func parseYears(year int, years string) ([]int, error) {
	if years == "" {
		if year <= 0 {
			return nil, fmt.Errorf("a positive -year (or -years) is required")
		}
		return []int{year}, nil
	}

	seen := make(map[int]struct{})
	var out []int
	for _, part := range strings.Split(years, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil || y <= 0 {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		if _, dup := seen[y]; dup {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable years in %q", years)
	}
	return out, nil
}
