package crawler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/euromillionsworker/logger"
	"sjsage522/euromillionsworker/pkg/errors"
	"sjsage522/euromillionsworker/services/cache"
)

// BaseCrawler provides fetching with a shared rate-limit block
type BaseCrawler struct {
	Fetcher   Fetcher
	CacheKey  string
	CacheSvc  cache.CacheService
	BlockTime time.Duration
}

// fetchWithCache fetches url unless a block marker is cached. A rate-limited
// response stores the marker for BlockTime.
func (c *BaseCrawler) fetchWithCache(ctx context.Context, url string) (io.Reader, error) {
	if c.blocked() {
		return nil, errors.New(errors.ErrorTypeRateLimit, c.CacheKey,
			fmt.Sprintf("blocked, no request for %v", c.BlockTime), nil)
	}

	body, err := c.Fetcher.Fetch(ctx, url)
	if err != nil {
		if errors.TypeOf(err) == errors.ErrorTypeRateLimit {
			c.block()
		}
		return nil, err
	}
	return body, nil
}

func (c *BaseCrawler) blocked() bool {
	if c.CacheSvc == nil || c.CacheKey == "" {
		return false
	}
	_, err := c.CacheSvc.Get(c.CacheKey)
	return err == nil
}

func (c *BaseCrawler) block() {
	if c.CacheSvc == nil || c.CacheKey == "" || c.BlockTime <= 0 {
		return
	}
	value := []byte(fmt.Sprintf("%d", c.BlockTime/time.Second))
	if err := c.CacheSvc.Set(c.CacheKey, value, c.BlockTime); err != nil {
		logger.ForCache().Warn().Err(err).Str("key", c.CacheKey).Msg("Failed to store block marker")
	}
}

// createDocument creates a goquery document from a reader
func (c *BaseCrawler) createDocument(source string, reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, errors.NewParsing(source, "failed to parse HTML", err)
	}
	return doc, nil
}
