package data

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/contactkeval/option-mc/internal/logger"
)

// csvProvider serves spots from a local "ticker,spot" CSV file. The file is
// read once, on first use.
type csvProvider struct {
	path string

	once  sync.Once
	spots map[string]float64
	err   error
}

// NewCSVProvider returns a provider over the CSV file at path. Rows that do
// not parse (headers, comments, blank cells) are skipped.
func NewCSVProvider(path string) SpotProvider {
	return &csvProvider{path: path}
}

func (p *csvProvider) Spot(_ context.Context, ticker string) (float64, error) {
	p.once.Do(p.load)
	if p.err != nil {
		return 0, p.err
	}
	v, ok := p.spots[strings.ToUpper(ticker)]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownTicker, "%s not in %s", ticker, p.path)
	}
	return v, nil
}

func (p *csvProvider) load() {
	f, err := os.Open(p.path)
	if err != nil {
		p.err = errors.Wrap(err, "open spots file")
		return
	}
	defer f.Close()
	p.spots, p.err = readSpots(f)
	logger.Debugf("loaded %d spots from %s", len(p.spots), p.path)
}

func readSpots(r io.Reader) (map[string]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read spots csv")
	}

	spots := make(map[string]float64, len(records))
	for _, row := range records {
		if len(row) < 2 {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(row[0]))
		spot, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil || ticker == "" {
			continue
		}
		spots[ticker] = spot
	}
	return spots, nil
}
