package generator

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"sjsage522/euromillionsworker/internal/models"
)

const (
	// DefaultGrids is the number of grids produced per call
	DefaultGrids = 4
	// DefaultNumberPool is how many of the most drawn numbers grids pick from
	DefaultNumberPool = 15
	// DefaultStarPool is how many of the most drawn stars grids pick from
	DefaultStarPool = 6
)

// FrequencySource ranks historical values, most drawn first
type FrequencySource interface {
	MostFrequentNumbers(ctx context.Context, limit int) ([]int, error)
	MostFrequentStars(ctx context.Context, limit int) ([]int, error)
}

// Generator builds grids biased toward frequently drawn numbers and stars
type Generator struct {
	source     FrequencySource
	grids      int
	numberPool int
	starPool   int

	mu  sync.Mutex
	rnd *rand.Rand
}

// New creates a generator. A nil src uses a randomly seeded PCG source.
func New(source FrequencySource, src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{
		source:     source,
		grids:      DefaultGrids,
		numberPool: DefaultNumberPool,
		starPool:   DefaultStarPool,
		rnd:        rand.New(src),
	}
}

// Generate returns grids for the first draw day after now. When the store
// ranks fewer than 5 numbers or 2 stars, the full ranges are used instead.
func (g *Generator) Generate(ctx context.Context, now time.Time) ([]models.Grid, error) {
	numbers, err := g.source.MostFrequentNumbers(ctx, g.numberPool)
	if err != nil {
		return nil, err
	}
	stars, err := g.source.MostFrequentStars(ctx, g.starPool)
	if err != nil {
		return nil, err
	}

	if len(numbers) < models.NumbersPerDraw {
		numbers = fullRange(models.MinNumber, models.MaxNumber)
	}
	if len(stars) < models.StarsPerDraw {
		stars = fullRange(models.MinStar, models.MaxStar)
	}

	drawDate := NextDrawDate(now)
	grids := make([]models.Grid, 0, g.grids)
	for range g.grids {
		grids = append(grids, models.Grid{
			DrawDate: drawDate,
			Numbers:  g.pick(numbers, models.NumbersPerDraw),
			Stars:    g.pick(stars, models.StarsPerDraw),
		})
	}
	return grids, nil
}

// pick shuffles a copy of pool and returns its first n values sorted
func (g *Generator) pick(pool []int, n int) []int {
	shuffled := slices.Clone(pool)

	g.mu.Lock()
	g.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	g.mu.Unlock()

	picked := shuffled[:n]
	slices.Sort(picked)
	return picked
}

// NextDrawDate returns the first Tuesday or Friday strictly after now's
// calendar day, as a UTC date.
func NextDrawDate(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for {
		day = day.AddDate(0, 0, 1)
		switch day.Weekday() {
		case time.Tuesday, time.Friday:
			return day
		}
	}
}

func fullRange(lo, hi int) []int {
	values := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		values = append(values, v)
	}
	return values
}
