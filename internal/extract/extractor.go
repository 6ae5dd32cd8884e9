// Package extract produces the raw record table for one year from the
// upstream dataset. No cleaning or validation happens here; garbage in the
// source passes through unchanged for the cleaner to deal with.
package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"datapipe/internal/table"
	"datapipe/pkg/contracts/domain"
	"datapipe/pkg/contracts/fault"
)

// Extractor reads the upstream dataset, filters it to one year and stamps
// the extraction date. Sources: local CSV, local XLSX, or an http(s) URL
// serving CSV.
type Extractor struct {
	source  string
	timeout time.Duration
	logger  *slog.Logger
	client  *http.Client
}

// New creates an extractor over the given source.
func New(source string, timeout time.Duration, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{
		source:  source,
		timeout: timeout,
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
	}
}

// Extract returns the raw table for the year: the source rows whose year
// column matches, stamped with today's extraction date. Fails with
// source_unavailable when the source cannot be reached and empty_result
// when no rows match.
func (e *Extractor) Extract(ctx context.Context, year int) (*table.Table, error) {
	e.logger.InfoContext(ctx, "extracting source data",
		slog.String("source", e.source),
		slog.Int("year", year))

	src, err := e.readSource(ctx)
	if err != nil {
		return nil, err
	}

	raw := table.New(domain.RawSchema())
	today := table.Date(time.Now().UTC())
	_, yearIdx, _ := src.Schema().Lookup(domain.ColYear)

	for i := 0; i < src.Len(); i++ {
		row := src.Row(i)
		y := row[yearIdx]
		if y.IsNull() || y.AsInt() != int64(year) {
			continue
		}
		stamped := make(table.Row, 0, len(row)+1)
		stamped = append(stamped, row...)
		stamped = append(stamped, today)
		if err := raw.Append(stamped); err != nil {
			return nil, fmt.Errorf("assemble raw row: %w", err)
		}
	}

	if raw.Len() == 0 {
		return nil, fault.New(fault.CodeEmptyResult, "no rows in %s match year %d", e.source, year)
	}

	e.logger.InfoContext(ctx, "extraction complete",
		slog.Int("year", year),
		slog.Int("rows", raw.Len()))
	return raw, nil
}

func (e *Extractor) readSource(ctx context.Context) (*table.Table, error) {
	schema := domain.SourceSchema()

	if strings.HasPrefix(e.source, "http://") || strings.HasPrefix(e.source, "https://") {
		return e.readHTTP(ctx, schema)
	}

	switch strings.ToLower(filepath.Ext(e.source)) {
	case ".xlsx":
		return e.readXLSX(schema)
	default:
		return e.readCSV(schema)
	}
}

func (e *Extractor) readCSV(schema *table.Schema) (*table.Table, error) {
	f, err := os.Open(e.source)
	if err != nil {
		return nil, fault.Wrap(fault.CodeSourceUnavailable, err, "open source %s", e.source)
	}
	defer f.Close()
	return table.DecodeCSV(f, schema)
}

func (e *Extractor) readHTTP(ctx context.Context, schema *table.Schema) (*table.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.source, nil)
	if err != nil {
		return nil, fault.Wrap(fault.CodeSourceUnavailable, err, "build request for %s", e.source)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.CodeSourceUnavailable, err, "fetch %s", e.source)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fault.New(fault.CodeSourceUnavailable, "fetch %s: status %d", e.source, resp.StatusCode)
	}
	return table.DecodeCSV(resp.Body, schema)
}

// readXLSX reads the first sheet of an Excel workbook, first row as the
// header, and feeds it through the CSV decoder so parsing rules stay
// identical across source types.
func (e *Extractor) readXLSX(schema *table.Schema) (*table.Table, error) {
	f, err := excelize.OpenFile(e.source)
	if err != nil {
		return nil, fault.Wrap(fault.CodeSourceUnavailable, err, "open workbook %s", e.source)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fault.New(fault.CodeSourceUnavailable, "workbook %s has no sheets", e.source)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fault.Wrap(fault.CodeSourceUnavailable, err, "read sheet %q", sheets[0])
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return nil, fmt.Errorf("buffer sheet row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, fault.New(fault.CodeSourceUnavailable, "workbook %s sheet %q is empty", e.source, sheets[0])
	}

	var r io.Reader = &buf
	return table.DecodeCSV(r, schema)
}
