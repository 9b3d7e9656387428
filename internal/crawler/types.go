package crawler

import (
	"context"
	"io"

	"sjsage522/euromillionsworker/internal/models"
	"sjsage522/euromillionsworker/pkg/errors"
)

// Crawler collects draw history for a list of years
type Crawler interface {
	// FetchHistory retrieves the draws published for each year
	FetchHistory(ctx context.Context, years []int) ([]models.Draw, FetchStats, error)

	// GetName returns the crawler's name for logging and identification
	GetName() string
}

// Fetcher retrieves a page body as UTF-8 text
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.Reader, error)
}

// RowData is the raw text scraped from one result row
type RowData struct {
	DateText  string
	BallTexts []string
}

// RowSelectors contains CSS selectors for the results table
type RowSelectors struct {
	Row        string `yaml:"row"`
	DateAnchor string `yaml:"date_anchor"`
	Balls      string `yaml:"balls"`
}

// DefaultRowSelectors matches the euro-millions.com results history table
func DefaultRowSelectors() RowSelectors {
	return RowSelectors{
		Row:        "tr.resultRow",
		DateAnchor: "td:nth-child(1) > a",
		Balls:      "td:nth-child(2) > ul > li",
	}
}

// FetchStats summarizes one FetchHistory run
type FetchStats struct {
	YearsRequested int                      `json:"years_requested"`
	YearsFailed    int                      `json:"years_failed"`
	YearsBlocked   int                      `json:"years_blocked"`
	RowsSeen       int                      `json:"rows_seen"`
	Draws          int                      `json:"draws"`
	Skipped        map[errors.ErrorType]int `json:"skipped,omitempty"`
}

func (s *FetchStats) skip(errType errors.ErrorType) {
	if s.Skipped == nil {
		s.Skipped = make(map[errors.ErrorType]int)
	}
	s.Skipped[errType]++
}

func (s *FetchStats) merge(o FetchStats) {
	s.YearsFailed += o.YearsFailed
	s.YearsBlocked += o.YearsBlocked
	s.RowsSeen += o.RowsSeen
	s.Draws += o.Draws
	for t, n := range o.Skipped {
		if s.Skipped == nil {
			s.Skipped = make(map[errors.ErrorType]int)
		}
		s.Skipped[t] += n
	}
}
