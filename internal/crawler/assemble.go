package crawler

import (
	"strconv"
	"strings"

	"sjsage522/euromillionsworker/internal/models"
)

// AssembleDraw builds a draw from one row. The first 5 ball texts are numbers
// and the next 2 are stars; texts that are not integers are dropped, so the
// row is rejected with ErrIncompleteRow unless all 7 parse.
func AssembleDraw(row RowData) (*models.Draw, error) {
	date, err := NormalizeDate(row.DateText)
	if err != nil {
		return nil, err
	}

	numbers := parseBalls(window(row.BallTexts, 0, models.NumbersPerDraw))
	stars := parseBalls(window(row.BallTexts, models.NumbersPerDraw, models.NumbersPerDraw+models.StarsPerDraw))
	if len(numbers) != models.NumbersPerDraw || len(stars) != models.StarsPerDraw {
		return nil, ErrIncompleteRow
	}

	draw := models.NewDraw(date, numbers, stars)
	return &draw, nil
}

func window(texts []string, from, to int) []string {
	if from >= len(texts) {
		return nil
	}
	return texts[from:min(to, len(texts))]
}

func parseBalls(texts []string) []int {
	balls := make([]int, 0, len(texts))
	for _, text := range texts {
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			continue
		}
		balls = append(balls, n)
	}
	return balls
}
