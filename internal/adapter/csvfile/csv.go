// Package csvfile writes and reads the flood dataset as CSV.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

// Header is the column order of the dataset file.
var Header = []string{
	"year", "month", "lat", "lon",
	"event", "area", "severity", "certainty", "urgency",
	"precip_24h_mm", "elevation_m", "usgs_station_id", "usgs_gage_height_ft",
	"flood_occurred",
}

// ErrHeader is returned by Decode when the first row is not Header.
var ErrHeader = errors.New("unexpected csv header")

// Writer replaces a CSV file with each batch.
// It implements pipeline.BatchLoader.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a writer for path. Parent directories are created on write.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Path returns the output file location.
func (w *Writer) Path() string {
	return w.path
}

// LoadBatch writes the records atomically to the output file.
func (w *Writer) LoadBatch(_ context.Context, records []domain.Record) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Encode(tmp, records); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("rename output file: %w", err)
	}
	w.logger.Info("dataset written", "path", w.path, "records", len(records))
	return nil
}

// Encode writes Header followed by one row per record. Absent values are
// empty cells.
func Encode(out io.Writer, records []domain.Record) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range records {
		if err := cw.Write(Row(records[i])); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Row returns the cells of r in Header order.
func Row(r domain.Record) []string {
	station := ""
	if r.StationID != nil {
		station = *r.StationID
	}
	return []string{
		strconv.Itoa(r.Year),
		strconv.Itoa(r.Month),
		formatFloat(r.Lat),
		formatFloat(r.Lon),
		r.Event,
		r.Area,
		r.Severity,
		r.Certainty,
		r.Urgency,
		formatOptional(r.PrecipMM),
		formatOptional(r.ElevationM),
		station,
		formatOptional(r.GageHeightFt),
		strconv.Itoa(r.FloodOccurred),
	}
}

// Decode reads a dataset written by Encode. The sample date is not part of
// the file, so decoded records carry a zero Date.
func Decode(in io.Reader) ([]domain.Record, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !slices.Equal(head, Header) {
		return nil, fmt.Errorf("%w: %v", ErrHeader, head)
	}

	var records []domain.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
}

// ReadFile decodes the dataset at path.
func ReadFile(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

func parseRow(row []string) (domain.Record, error) {
	var (
		r   domain.Record
		err error
	)
	if r.Year, err = strconv.Atoi(row[0]); err != nil {
		return r, fmt.Errorf("year: %w", err)
	}
	if r.Month, err = strconv.Atoi(row[1]); err != nil {
		return r, fmt.Errorf("month: %w", err)
	}
	if r.Lat, err = strconv.ParseFloat(row[2], 64); err != nil {
		return r, fmt.Errorf("lat: %w", err)
	}
	if r.Lon, err = strconv.ParseFloat(row[3], 64); err != nil {
		return r, fmt.Errorf("lon: %w", err)
	}
	r.Event, r.Area, r.Severity, r.Certainty, r.Urgency = row[4], row[5], row[6], row[7], row[8]
	if r.PrecipMM, err = parseOptional(row[9]); err != nil {
		return r, fmt.Errorf("precip_24h_mm: %w", err)
	}
	if r.ElevationM, err = parseOptional(row[10]); err != nil {
		return r, fmt.Errorf("elevation_m: %w", err)
	}
	if row[11] != "" {
		id := row[11]
		r.StationID = &id
	}
	if r.GageHeightFt, err = parseOptional(row[12]); err != nil {
		return r, fmt.Errorf("usgs_gage_height_ft: %w", err)
	}
	if r.FloodOccurred, err = strconv.Atoi(row[13]); err != nil {
		return r, fmt.Errorf("flood_occurred: %w", err)
	}
	return r, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func parseOptional(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
