package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Grid is one generated candidate play for an upcoming draw
type Grid struct {
	ID        int64
	DrawDate  time.Time
	Numbers   []int
	Stars     []int
	CreatedAt time.Time
}

type gridJSON struct {
	ID        int64      `json:"id,omitempty"`
	DrawDate  string     `json:"draw_date"`
	Numbers   []int      `json:"numbers"`
	Stars     []int      `json:"stars"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (g Grid) MarshalJSON() ([]byte, error) {
	out := gridJSON{
		ID:       g.ID,
		DrawDate: g.DrawDate.Format(DateLayout),
		Numbers:  g.Numbers,
		Stars:    g.Stars,
	}
	if !g.CreatedAt.IsZero() {
		created := g.CreatedAt
		out.CreatedAt = &created
	}
	return json.Marshal(out)
}

// Validate checks counts, ranges and uniqueness of numbers and stars
func (g Grid) Validate() error {
	if g.DrawDate.IsZero() {
		return fmt.Errorf("grid draw date is missing")
	}
	if err := validateBalls("number", g.Numbers, NumbersPerDraw, MinNumber, MaxNumber); err != nil {
		return err
	}
	return validateBalls("star", g.Stars, StarsPerDraw, MinStar, MaxStar)
}
