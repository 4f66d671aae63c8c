package discovery

import (
	"context"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"

	"microlesson/internal/services"
)

// CatalogItem is one raw search result from the external catalog.
type CatalogItem struct {
	ID              string
	Title           string
	Description     string
	ChannelTitle    string
	DurationSeconds int
	ViewCount       uint64
	LikeCount       uint64
}

// Catalog searches an external video catalog.
type Catalog interface {
	Search(ctx context.Context, query string, maxResults int64) ([]CatalogItem, error)
}

// youtubeCatalog talks to the YouTube Data API v3.
type youtubeCatalog struct {
	apiKey string
}

// NewYouTubeCatalog creates a catalog backed by the YouTube Data API.
func NewYouTubeCatalog(apiKey string) (Catalog, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(
			services.ErrConfiguration, "discovery", "catalog init",
			"Catalog API key is required for remote search", nil)
	}
	return &youtubeCatalog{apiKey: apiKey}, nil
}

func (c *youtubeCatalog) Search(ctx context.Context, query string, maxResults int64) ([]CatalogItem, error) {
	svc, err := youtube.NewService(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, services.Wrap(
			services.ErrExternalService, "discovery", "catalog search",
			"Catalog client initialization failed", err)
	}

	if maxResults <= 0 {
		maxResults = 25
	}
	searchResp, err := svc.Search.List([]string{"snippet"}).
		Context(ctx).
		Q(query).
		Type("video").
		VideoEmbeddable("true").
		MaxResults(maxResults).
		Do()
	if err != nil {
		return nil, services.Wrap(
			services.ErrExternalService, "discovery", "catalog search",
			"Catalog search request failed", err)
	}

	ids := make([]string, 0, len(searchResp.Items))
	snippets := make(map[string]*youtube.SearchResultSnippet, len(searchResp.Items))
	for _, item := range searchResp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		ids = append(ids, item.Id.VideoId)
		snippets[item.Id.VideoId] = item.Snippet
	}
	if len(ids) == 0 {
		return nil, nil
	}

	detailResp, err := svc.Videos.List([]string{"contentDetails", "statistics"}).
		Context(ctx).
		Id(ids...).
		Do()
	if err != nil {
		return nil, services.Wrap(
			services.ErrExternalService, "discovery", "catalog search",
			"Catalog detail request failed", err)
	}

	items := make([]CatalogItem, 0, len(detailResp.Items))
	for _, video := range detailResp.Items {
		snippet := snippets[video.Id]
		item := CatalogItem{ID: video.Id}
		if snippet != nil {
			item.Title = snippet.Title
			item.Description = snippet.Description
			item.ChannelTitle = snippet.ChannelTitle
		}
		if video.ContentDetails != nil {
			item.DurationSeconds = parseISODuration(video.ContentDetails.Duration)
		}
		if video.Statistics != nil {
			item.ViewCount = video.Statistics.ViewCount
			item.LikeCount = video.Statistics.LikeCount
		}
		items = append(items, item)
	}
	return items, nil
}

// parseISODuration converts an ISO 8601 duration like PT1H2M3S into seconds.
// Malformed input yields 0.
func parseISODuration(value string) int {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "P") {
		return 0
	}
	value = strings.TrimPrefix(value, "P")
	value = strings.TrimPrefix(value, "T")

	total := 0
	number := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			number.WriteRune(r)
		case r == 'T':
			number.Reset()
		default:
			n, err := strconv.Atoi(number.String())
			number.Reset()
			if err != nil {
				return 0
			}
			switch r {
			case 'D':
				total += n * 86400
			case 'H':
				total += n * 3600
			case 'M':
				total += n * 60
			case 'S':
				total += n
			default:
				return 0
			}
		}
	}
	return total
}

var _ Catalog = (*youtubeCatalog)(nil)
