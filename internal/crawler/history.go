package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sjsage522/euromillionsworker/internal/models"
	"sjsage522/euromillionsworker/logger"
	"sjsage522/euromillionsworker/pkg/errors"
	"sjsage522/euromillionsworker/services/cache"
)

// DefaultURLTemplate is the results history page, one per year
const DefaultURLTemplate = "https://www.euro-millions.com/results-history-%d"

// HistoryConfig contains configuration for a HistoryCrawler
type HistoryConfig struct {
	URLTemplate string
	Selectors   RowSelectors
	Concurrency int
	CacheKey    string
	BlockTime   time.Duration
}

// HistoryCrawler scrapes the yearly results history pages
type HistoryCrawler struct {
	BaseCrawler
	urlTemplate string
	concurrency int
	extractor   *RowExtractor
	log         *logger.Logger
}

// NewHistoryCrawler creates a crawler. cacheSvc may be nil, which disables
// the rate-limit block.
func NewHistoryCrawler(cfg HistoryConfig, fetcher Fetcher, cacheSvc cache.CacheService) (*HistoryCrawler, error) {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if cfg.Selectors == (RowSelectors{}) {
		cfg.Selectors = DefaultRowSelectors()
	}
	if cfg.CacheKey == "" {
		cfg.CacheKey = "euromillions_rate_limited"
	}

	extractor, err := NewRowExtractor(cfg.Selectors)
	if err != nil {
		return nil, err
	}

	return &HistoryCrawler{
		BaseCrawler: BaseCrawler{
			Fetcher:   fetcher,
			CacheKey:  cfg.CacheKey,
			CacheSvc:  cacheSvc,
			BlockTime: cfg.BlockTime,
		},
		urlTemplate: cfg.URLTemplate,
		concurrency: max(cfg.Concurrency, 1),
		extractor:   extractor,
		log:         logger.ForCrawler("history"),
	}, nil
}

// GetName returns the crawler's name
func (c *HistoryCrawler) GetName() string {
	return "HistoryCrawler"
}

// FetchHistory scrapes every year and returns the draws in year order. A year
// that cannot be fetched or parsed is logged and skipped. The only error is
// ctx's, returned together with the draws collected so far.
func (c *HistoryCrawler) FetchHistory(ctx context.Context, years []int) ([]models.Draw, FetchStats, error) {
	type yearResult struct {
		draws []models.Draw
		stats FetchStats
		done  bool
	}

	results := make([]yearResult, len(years))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for i, year := range years {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i, year int) {
			defer wg.Done()
			defer func() { <-sem }()

			draws, stats := c.fetchYear(ctx, year)
			results[i] = yearResult{draws: draws, stats: stats, done: true}
		}(i, year)
	}
	wg.Wait()

	stats := FetchStats{YearsRequested: len(years)}
	var draws []models.Draw
	for _, r := range results {
		if !r.done {
			continue
		}
		stats.merge(r.stats)
		draws = append(draws, r.draws...)
	}

	c.log.Info().
		Int("years", stats.YearsRequested).
		Int("years_failed", stats.YearsFailed).
		Int("rows", stats.RowsSeen).
		Int("draws", stats.Draws).
		Msg("History fetched")

	return draws, stats, ctx.Err()
}

// fetchYear scrapes one results page
func (c *HistoryCrawler) fetchYear(ctx context.Context, year int) ([]models.Draw, FetchStats) {
	var stats FetchStats
	url := fmt.Sprintf(c.urlTemplate, year)
	log := c.log.WithField("year", year)

	body, err := c.fetchWithCache(ctx, url)
	if err != nil {
		if errors.TypeOf(err) == errors.ErrorTypeRateLimit {
			stats.YearsBlocked++
		}
		stats.YearsFailed++
		log.Warn().Err(err).Str("url", url).Msg("Skipping year, fetch failed")
		return nil, stats
	}

	doc, err := c.createDocument(url, body)
	if err != nil {
		stats.YearsFailed++
		log.Warn().Err(err).Str("url", url).Msg("Skipping year, parse failed")
		return nil, stats
	}

	var draws []models.Draw
	for row := range c.extractor.Rows(doc) {
		stats.RowsSeen++
		draw, err := AssembleDraw(row)
		if err != nil {
			errType := errors.TypeOf(err)
			stats.skip(errType)
			log.Warn().Err(err).Str("reason", string(errType)).Msg("Row skipped")
			continue
		}
		draws = append(draws, *draw)
	}
	stats.Draws = len(draws)

	log.Debug().Int("rows", stats.RowsSeen).Int("draws", stats.Draws).Msg("Year scraped")
	return draws, stats
}

// YearRange returns the years from now's year minus back up to now's year
func YearRange(now time.Time, back int) []int {
	back = max(back, 0)
	years := make([]int, 0, back+1)
	for y := now.Year() - back; y <= now.Year(); y++ {
		years = append(years, y)
	}
	return years
}
