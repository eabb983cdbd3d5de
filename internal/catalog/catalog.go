// Package catalog reads content items (vocabulary words, example sentences)
// from the content service. The review core treats items as immutable and only
// needs their identifiers, so responses are cached aggressively.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/gamma-omg/lexi-review/internal/model"
	"github.com/gamma-omg/lexi-review/internal/pkg/fn"
)

type RemoteConfig struct {
	BaseURL   string
	CacheTTL  time.Duration
	CacheKeys int64
	CacheCost int64
}

type RemoteCatalog struct {
	baseURL string
	ttl     time.Duration
	client  *http.Client
	cache   *ristretto.Cache[string, []model.ReviewItem]
}

func NewRemoteCatalog(cfg RemoteConfig) *RemoteCatalog {
	c, err := ristretto.NewCache(&ristretto.Config[string, []model.ReviewItem]{
		NumCounters: cfg.CacheKeys * 10,
		MaxCost:     cfg.CacheCost,
		BufferItems: 64,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog cache: %v", err))
	}

	return &RemoteCatalog{
		baseURL: cfg.BaseURL,
		ttl:     cfg.CacheTTL,
		client:  &http.Client{},
		cache:   c,
	}
}

type catalogItem struct {
	ID int64 `json:"id"`
}

type itemsResponse struct {
	Items []catalogItem `json:"items"`
}

// ItemsByCategory returns the items of one category. Results are cached for
// the configured TTL; content edits show up after the cache entry expires.
func (c *RemoteCatalog) ItemsByCategory(ctx context.Context, itemType model.ItemType, categoryID int64) ([]model.ReviewItem, error) {
	key := fmt.Sprintf("%s:%d", itemType, categoryID)
	if items, found := c.cache.Get(key); found {
		return items, nil
	}

	url := fmt.Sprintf("%s/%s/by-category/%d", c.baseURL, typePath(itemType), categoryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get catalog items: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var ir itemsResponse
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&ir); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := fn.Map(ir.Items, func(it catalogItem) model.ReviewItem {
		return model.ReviewItem{
			ID:         it.ID,
			Type:       itemType,
			CategoryID: categoryID,
		}
	})

	c.cache.SetWithTTL(key, items, 1, c.ttl)
	return items, nil
}

func typePath(t model.ItemType) string {
	if t == model.Sentence {
		return "sentences"
	}
	return "vocabulary"
}
