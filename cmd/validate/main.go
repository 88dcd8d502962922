// Command validate performs integrity checks on a built flood dataset CSV:
// header and row shape, label consistency, value ranges and the pairing of
// each negative sample with the positive it was derived from.
//
// Usage:
//
//	go run ./cmd/validate -dataset raw_data/flood_dataset.csv
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/couchcryptid/flood-data-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

// Negative samples are offset by at most this many degrees on each axis.
const maxShiftDegrees = 0.5

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataset := flag.String("dataset", "", "path to the dataset CSV")
	flag.Parse()

	if *dataset == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, *dataset); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, path string) int {
	fmt.Fprintln(out, "=== Flood Dataset Validation ===")
	fmt.Fprintln(out)

	records, err := csvfile.ReadFile(path)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load dataset: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateLabels(records),
		validateRanges(records),
		validatePairing(records),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	pos, neg := countLabels(records)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d total, %d positive, %d negative\n", len(records), pos, neg)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// row numbers the CSV line of records[i], counting the header as line 1.
func row(i int) int { return i + 2 }

func countLabels(records []domain.Record) (pos, neg int) {
	for _, r := range records {
		if r.FloodOccurred == domain.Flooded {
			pos++
		} else {
			neg++
		}
	}
	return pos, neg
}

// validateLabels checks flood_occurred and the descriptive columns agree.
func validateLabels(records []domain.Record) *phase {
	p := &phase{name: "Phase 1: Labels"}
	for i, r := range records {
		descriptive := []string{r.Event, r.Area, r.Severity, r.Certainty, r.Urgency}
		switch r.FloodOccurred {
		case domain.Flooded:
			if r.Event == "" || r.Event == domain.NoneLabel {
				p.errorf("line %d: positive sample has no event", row(i))
			}
		case domain.NoFlood:
			for _, v := range descriptive {
				if v != domain.NoneLabel {
					p.errorf("line %d: negative sample carries alert text %q", row(i), v)
					break
				}
			}
		default:
			p.errorf("line %d: flood_occurred = %d, want 0 or 1", row(i), r.FloodOccurred)
		}
	}
	return p
}

// validateRanges checks coordinates, calendar fields and measurement signs.
func validateRanges(records []domain.Record) *phase {
	p := &phase{name: "Phase 2: Value ranges"}
	for i, r := range records {
		if !(domain.Coord{Lat: r.Lat, Lon: r.Lon}).Valid() {
			p.errorf("line %d: coordinate (%g, %g) out of range", row(i), r.Lat, r.Lon)
		}
		if r.Month < 1 || r.Month > 12 {
			p.errorf("line %d: month = %d", row(i), r.Month)
		}
		if r.Year < 1900 {
			p.errorf("line %d: year = %d", row(i), r.Year)
		}
		if r.PrecipMM != nil && (*r.PrecipMM < 0 || math.IsNaN(*r.PrecipMM)) {
			p.errorf("line %d: precipitation = %g", row(i), *r.PrecipMM)
		}
		if r.GageHeightFt != nil && r.StationID == nil {
			p.errorf("line %d: gage height without a station", row(i))
		}
	}
	return p
}

// validatePairing checks every negative that directly follows a positive lies
// within the perturbation box around it. A negative following another
// negative belongs to a positive that failed enrichment and is not checked.
func validatePairing(records []domain.Record) *phase {
	p := &phase{name: "Phase 3: Negative pairing"}
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if cur.FloodOccurred != domain.NoFlood || prev.FloodOccurred != domain.Flooded {
			continue
		}
		if math.Abs(cur.Lat-prev.Lat) > maxShiftDegrees || math.Abs(cur.Lon-prev.Lon) > maxShiftDegrees {
			p.errorf("line %d: negative (%g, %g) is more than %g° from its positive (%g, %g)",
				row(i), cur.Lat, cur.Lon, maxShiftDegrees, prev.Lat, prev.Lon)
		}
	}
	return p
}
