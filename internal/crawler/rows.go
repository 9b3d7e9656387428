package crawler

import (
	"fmt"
	"iter"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// RowExtractor yields the raw date and ball texts of every result row
type RowExtractor struct {
	row   cascadia.Selector
	date  cascadia.Selector
	balls cascadia.Selector
}

// NewRowExtractor compiles the selectors; an invalid selector is an error
func NewRowExtractor(s RowSelectors) (*RowExtractor, error) {
	row, err := cascadia.Compile(s.Row)
	if err != nil {
		return nil, fmt.Errorf("invalid row selector %q: %w", s.Row, err)
	}
	date, err := cascadia.Compile(s.DateAnchor)
	if err != nil {
		return nil, fmt.Errorf("invalid date selector %q: %w", s.DateAnchor, err)
	}
	balls, err := cascadia.Compile(s.Balls)
	if err != nil {
		return nil, fmt.Errorf("invalid balls selector %q: %w", s.Balls, err)
	}
	return &RowExtractor{row: row, date: date, balls: balls}, nil
}

// Rows lazily yields one RowData per matched row. Rows without a date anchor
// are skipped.
func (e *RowExtractor) Rows(doc *goquery.Document) iter.Seq[RowData] {
	return func(yield func(RowData) bool) {
		for _, row := range doc.FindMatcher(e.row).EachIter() {
			anchor := row.FindMatcher(e.date).First()
			if anchor.Length() == 0 {
				continue
			}

			items := row.FindMatcher(e.balls)
			balls := make([]string, 0, items.Length())
			for _, li := range items.EachIter() {
				balls = append(balls, li.Text())
			}

			if !yield(RowData{DateText: anchor.Text(), BallTexts: balls}) {
				return
			}
		}
	}
}
