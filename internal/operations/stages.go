package operations

import (
	"context"
	"fmt"
	"log/slog"

	"datapipe/internal/config"
	"datapipe/internal/dataprocessing"
	"datapipe/internal/exporter"
	"datapipe/internal/extract"
	"datapipe/internal/store"
	"datapipe/pkg/contracts/domain"
)

// ExtractStage pulls the year's slice from the upstream dataset and writes
// the raw artifact.
type ExtractStage struct {
	BaseStage
	extractor *extract.Extractor
	store     store.Store
}

// NewExtractStage creates the extract stage.
func NewExtractStage(extractor *extract.Extractor, st store.Store) *ExtractStage {
	return &ExtractStage{
		BaseStage: NewBaseStage(StageIDExtract, "Extract"),
		extractor: extractor,
		store:     st,
	}
}

// Execute extracts the year's rows and writes the raw artifact.
func (s *ExtractStage) Execute(ctx context.Context, state *RunState) error {
	t, err := s.extractor.Extract(ctx, state.Params.Year)
	if err != nil {
		return err
	}
	path, err := s.store.WriteTable(ctx, store.KindRaw, state.Params.Year, t)
	if err != nil {
		return fmt.Errorf("write raw artifact: %w", err)
	}
	state.AddArtifact(path)
	state.Stage(s.ID()).SetRowsOut(t.Len())
	return nil
}

// CleanStage validates and repairs the raw artifact and writes the clean
// artifact plus its accounting sidecar.
type CleanStage struct {
	BaseStage
	cleaner *dataprocessing.Cleaner
	store   store.Store
	cfg     config.CleaningConfig
	tracer  *RunTracer
}

// NewCleanStage creates the clean stage. The tracer may be nil.
func NewCleanStage(cleaner *dataprocessing.Cleaner, st store.Store, cfg config.CleaningConfig, tracer *RunTracer) *CleanStage {
	if tracer == nil {
		tracer = NewRunTracer(nil, nil)
	}
	return &CleanStage{
		BaseStage: NewBaseStage(StageIDClean, "Clean"),
		cleaner:   cleaner,
		store:     st,
		cfg:       cfg,
		tracer:    tracer,
	}
}

// Validate requires the raw artifact.
func (s *CleanStage) Validate(state *RunState) error {
	if err := s.BaseStage.Validate(state); err != nil {
		return err
	}
	if !s.store.Exists(store.KindRaw, state.Params.Year) {
		return fmt.Errorf("raw artifact for year %d not found", state.Params.Year)
	}
	return nil
}

// Execute cleans the raw table and writes the clean artifact and report.
func (s *CleanStage) Execute(ctx context.Context, state *RunState) error {
	raw, err := s.store.ReadTable(ctx, store.KindRaw, state.Params.Year, domain.RawSchema())
	if err != nil {
		return fmt.Errorf("read raw artifact: %w", err)
	}

	opts := s.options(state.Params)
	clean, report, err := s.cleaner.Clean(ctx, raw, opts)
	if err != nil {
		return err
	}

	path, err := s.store.WriteTable(ctx, store.KindClean, state.Params.Year, clean)
	if err != nil {
		return fmt.Errorf("write clean artifact: %w", err)
	}
	state.AddArtifact(path)

	reportPath, err := s.store.WriteCleanReport(ctx, state.Params.Year, report)
	if err != nil {
		return fmt.Errorf("write clean report: %w", err)
	}
	state.AddArtifact(reportPath)

	state.Stage(s.ID()).SetRowsOut(clean.Len())
	s.tracer.RecordDrops(ctx, "missing_value", report.Dropped.MissingValue)
	s.tracer.RecordDrops(ctx, "duplicate", report.Dropped.Duplicate)
	s.tracer.RecordDrops(ctx, "outlier", report.Dropped.Outlier)
	s.tracer.RecordDrops(ctx, "out_of_range", report.Dropped.OutOfRange)
	return nil
}

// options merges run parameters over the configured cleaning defaults.
func (s *CleanStage) options(params domain.RunParams) dataprocessing.CleanOptions {
	opts := dataprocessing.CleanOptionsFromConfig(s.cfg)
	if params.RemoveOutliers != nil {
		opts.RemoveOutliers = *params.RemoveOutliers
	}
	if params.OutlierThreshold > 0 {
		opts.OutlierThreshold = params.OutlierThreshold
	}
	return opts
}

// FeatureStage derives the feature columns from the clean artifact.
type FeatureStage struct {
	BaseStage
	builder *dataprocessing.Builder
	store   store.Store
	specs   []dataprocessing.FeatureSpec
}

// NewFeatureStage creates the feature stage with the default feature set.
func NewFeatureStage(builder *dataprocessing.Builder, st store.Store) *FeatureStage {
	return &FeatureStage{
		BaseStage: NewBaseStage(StageIDFeature, "Feature"),
		builder:   builder,
		store:     st,
		specs:     dataprocessing.DefaultFeatureSpecs(),
	}
}

// Validate requires the clean artifact.
func (s *FeatureStage) Validate(state *RunState) error {
	if err := s.BaseStage.Validate(state); err != nil {
		return err
	}
	if !s.store.Exists(store.KindClean, state.Params.Year) {
		return fmt.Errorf("clean artifact for year %d not found", state.Params.Year)
	}
	return nil
}

// Execute derives the features and writes the features artifact.
func (s *FeatureStage) Execute(ctx context.Context, state *RunState) error {
	clean, err := s.store.ReadTable(ctx, store.KindClean, state.Params.Year, domain.CleanSchema())
	if err != nil {
		return fmt.Errorf("read clean artifact: %w", err)
	}

	features, err := s.builder.BuildFeatures(ctx, clean, s.specs)
	if err != nil {
		return err
	}

	path, err := s.store.WriteTable(ctx, store.KindFeatures, state.Params.Year, features)
	if err != nil {
		return fmt.Errorf("write features artifact: %w", err)
	}
	state.AddArtifact(path)
	state.Stage(s.ID()).SetRowsOut(features.Len())
	return nil
}

// ReportStage aggregates the features artifact and renders the report.
type ReportStage struct {
	BaseStage
	store         store.Store
	defaultFormat string
	logger        *slog.Logger
}

// NewReportStage creates the report stage. defaultFormat applies when the
// run parameters leave the format unset.
func NewReportStage(st store.Store, defaultFormat string, logger *slog.Logger) *ReportStage {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultFormat == "" {
		defaultFormat = domain.FormatText
	}
	return &ReportStage{
		BaseStage:     NewBaseStage(StageIDReport, "Report"),
		store:         st,
		defaultFormat: defaultFormat,
		logger:        logger,
	}
}

// Validate requires the features artifact.
func (s *ReportStage) Validate(state *RunState) error {
	if err := s.BaseStage.Validate(state); err != nil {
		return err
	}
	if !s.store.Exists(store.KindFeatures, state.Params.Year) {
		return fmt.Errorf("features artifact for year %d not found", state.Params.Year)
	}
	return nil
}

// Execute summarizes the features artifact and writes the rendered report.
func (s *ReportStage) Execute(ctx context.Context, state *RunState) error {
	features, err := s.store.ReadTable(ctx, store.KindFeatures, state.Params.Year, domain.FeatureSchema())
	if err != nil {
		return fmt.Errorf("read features artifact: %w", err)
	}

	agg := dataprocessing.Summarize(features)

	format := state.Params.Format
	if format == "" {
		format = s.defaultFormat
	}
	data, err := exporter.Render(agg, format)
	if err != nil {
		return err
	}

	path, err := s.store.WriteReport(ctx, state.Params.Year, format, data)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	state.AddArtifact(path)
	state.Stage(s.ID()).SetRowsOut(agg.RowCount)

	s.logger.InfoContext(ctx, "report generated",
		slog.String("format", format),
		slog.String("path", path),
		slog.Int("rows", agg.RowCount))
	return nil
}
