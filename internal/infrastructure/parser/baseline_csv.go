package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"BeerSync/internal/domain"
	"BeerSync/internal/ports"
)

const (
	minFields    = 10
	headerPrefix = "Nr."
)

var sectionExpr = regexp.MustCompile(`^===\s*(.+?)\s*===$`)

// CSVLoader reads the semicolon-delimited baseline list from disk.
type CSVLoader struct {
	path   string
	logger *slog.Logger
}

var _ ports.BaselineLoader = (*CSVLoader)(nil)

// NewCSVLoader wires the baseline file path.
func NewCSVLoader(path string, log *slog.Logger) *CSVLoader {
	return &CSVLoader{path: path, logger: log}
}

// LoadBaseline opens the file and parses it. An unreadable file is a fatal error.
func (l *CSVLoader) LoadBaseline(ctx context.Context) ([]domain.BaselineBeer, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("read baseline csv %s: %w", l.path, err)
	}
	defer f.Close()

	return ParseBaseline(ctx, f, l.logger)
}

// rowSkip describes why a line did not produce a record.
type rowSkip struct {
	reason string
	nr     int
}

// parseState is the fold carried from line to line.
type parseState struct {
	country string
}

// ParseBaseline scans lines in order and returns the records that pass the
// required-field checks. Malformed rows are logged and skipped.
func ParseBaseline(ctx context.Context, r io.Reader, log *slog.Logger) ([]domain.BaselineBeer, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		beers   []domain.BaselineBeer
		state   parseState
		lineNum int
	)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNum++

		line := scanner.Text()
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		var (
			beer *domain.BaselineBeer
			skip *rowSkip
		)
		state, beer, skip = parseLine(state, line)
		if skip != nil && log != nil {
			log.Warn("skipping csv row", "line", lineNum, "nr", skip.nr, "reason", skip.reason)
		}
		if beer != nil {
			beers = append(beers, *beer)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan baseline csv: %w", err)
	}

	return beers, nil
}

// parseLine consumes one raw line. It returns the next state, the record the
// line produced (if any) and the reason a data row was rejected (if any).
func parseLine(state parseState, raw string) (parseState, *domain.BaselineBeer, *rowSkip) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return state, nil, nil
	}

	if m := sectionExpr.FindStringSubmatch(line); m != nil {
		return parseState{country: strings.TrimSpace(m[1])}, nil, nil
	}

	if strings.HasPrefix(line, headerPrefix) {
		return state, nil, nil
	}

	parts := strings.Split(line, ";")
	if len(parts) < minFields {
		return state, nil, &rowSkip{reason: fmt.Sprintf("expected %d fields, got %d", minFields, len(parts))}
	}

	nr, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return state, nil, &rowSkip{reason: "nr is not an integer"}
	}
	if nr <= 0 {
		return state, nil, &rowSkip{reason: "nr must be positive", nr: nr}
	}

	country := strings.TrimSpace(parts[3])
	if country == "" || country == domain.Sentinel {
		country = state.country
	}

	beer := domain.BaselineBeer{
		Nr:          nr,
		Name:        strings.TrimSpace(parts[1]),
		Brewery:     optional(parts[2]),
		Country:     country,
		ABV:         optional(parts[4]),
		Stammwuerze: optional(parts[5]),
		Ingredients: optional(parts[6]),
		Size:        strings.TrimSpace(parts[7]),
		Price:       strings.TrimSpace(parts[8]),
		Category:    strings.TrimSpace(parts[9]),
	}

	if missing := missingRequired(beer); len(missing) > 0 {
		return state, nil, &rowSkip{
			reason: "missing required field(s): " + strings.Join(missing, ", "),
			nr:     nr,
		}
	}

	return state, &beer, nil
}

func optional(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return domain.Sentinel
	}
	return v
}

func missingRequired(b domain.BaselineBeer) []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", b.Name},
		{"country", b.Country},
		{"category", b.Category},
		{"size", b.Size},
		{"price", b.Price},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
