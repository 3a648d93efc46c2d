package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("farm-mgmt/ingest")

// FeedEntry is one row of the external polling feed. Channel values
// arrive as strings named by field position; semantic mapping happens
// in the importer.
type FeedEntry struct {
	CreatedAt string `json:"created_at"`
	EntryID   int    `json:"entry_id"`
	Field1    string `json:"field1"`
	Field2    string `json:"field2"`
	Field3    string `json:"field3"`
	Field4    string `json:"field4"`
	Field5    string `json:"field5"`
	Field6    string `json:"field6"`
	Field7    string `json:"field7"`
	Field8    string `json:"field8"`
}

type feedResponse struct {
	Feeds []FeedEntry `json:"feeds"`
}

type FeedClient interface {
	FetchFeeds(ctx context.Context) ([]FeedEntry, error)
}

type feedClient struct {
	baseURL   string
	channelID string
	readKey   string
	results   int
}

func NewFeedClient(baseURL, channelID, readKey string, results int) FeedClient {
	if results <= 0 {
		results = 1000
	}
	return &feedClient{
		baseURL:   baseURL,
		channelID: channelID,
		readKey:   readKey,
		results:   results,
	}
}

func (c *feedClient) FetchFeeds(ctx context.Context) ([]FeedEntry, error) {
	var err error
	ctx, span := tracer.Start(ctx, "fetch-feeds")
	defer span.End()

	log := logging.GetLoggerFromContext(ctx)

	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	url := fmt.Sprintf("%s/channels/%s/feeds.json?api_key=%s&results=%d",
		c.baseURL, c.channelID, c.readKey, c.results)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed response: %w", err)
	}

	feed := feedResponse{}
	err = json.Unmarshal(body, &feed)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal feed response: %w", err)
	}

	log.Debug().Int("count", len(feed.Feeds)).Msg("fetched feed entries")

	return feed.Feeds, nil
}
