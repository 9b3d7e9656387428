package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

const (
	// NumbersPerDraw is the count of main numbers in a draw or grid
	NumbersPerDraw = 5
	// StarsPerDraw is the count of lucky stars in a draw or grid
	StarsPerDraw = 2

	MinNumber = 1
	MaxNumber = 50
	MinStar   = 1
	MaxStar   = 12

	// DateLayout is the wire and storage format of calendar dates
	DateLayout = "2006-01-02"
)

// Draw represents one historical lottery result
type Draw struct {
	ID      int64
	Date    time.Time
	Numbers []int
	Stars   []int
}

// NewDraw builds a draw with numbers and stars sorted ascending
func NewDraw(date time.Time, numbers, stars []int) Draw {
	n := slices.Clone(numbers)
	s := slices.Clone(stars)
	slices.Sort(n)
	slices.Sort(s)
	return Draw{
		Date:    date,
		Numbers: n,
		Stars:   s,
	}
}

// Validate checks counts, ranges and uniqueness of numbers and stars
func (d Draw) Validate() error {
	if d.Date.IsZero() {
		return fmt.Errorf("draw date is missing")
	}
	if err := validateBalls("number", d.Numbers, NumbersPerDraw, MinNumber, MaxNumber); err != nil {
		return err
	}
	return validateBalls("star", d.Stars, StarsPerDraw, MinStar, MaxStar)
}

// DateKey returns the draw date formatted as YYYY-MM-DD
func (d Draw) DateKey() string {
	return d.Date.Format(DateLayout)
}

type drawJSON struct {
	ID      int64  `json:"id,omitempty"`
	Date    string `json:"date"`
	Numbers []int  `json:"numbers"`
	Stars   []int  `json:"stars"`
}

func (d Draw) MarshalJSON() ([]byte, error) {
	return json.Marshal(drawJSON{
		ID:      d.ID,
		Date:    d.DateKey(),
		Numbers: d.Numbers,
		Stars:   d.Stars,
	})
}

func (d *Draw) UnmarshalJSON(data []byte) error {
	var raw drawJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("invalid draw date %q: %w", raw.Date, err)
	}
	*d = Draw{ID: raw.ID, Date: date, Numbers: raw.Numbers, Stars: raw.Stars}
	return nil
}

func validateBalls(kind string, balls []int, count, lo, hi int) error {
	if len(balls) != count {
		return fmt.Errorf("expected %d %ss, got %d", count, kind, len(balls))
	}
	seen := make(map[int]bool, len(balls))
	for _, b := range balls {
		if b < lo || b > hi {
			return fmt.Errorf("%s %d out of range [%d,%d]", kind, b, lo, hi)
		}
		if seen[b] {
			return fmt.Errorf("duplicate %s %d", kind, b)
		}
		seen[b] = true
	}
	return nil
}
