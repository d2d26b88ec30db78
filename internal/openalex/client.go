// Package openalex implements the upstream bibliographic index client (C1): a pure
// adapter over the OpenAlex REST API. It never holds business state; callers (C5, C6, C7)
// own the search plan and only ask this client to execute one upstream shape at a time.
package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	apperrors "scifind-backend/internal/errors"
)

const defaultSelect = "id,doi,title,display_name,publication_year,publication_date," +
	"cited_by_count,relevance_score,language,abstract_inverted_index,authorships," +
	"locations,best_oa_location,primary_location,topics,open_access,related_works," +
	"referenced_works"

// Config configures the client; fields map 1:1 onto Config.Upstream in internal/config.
type Config struct {
	BaseURL       string
	MailTo        string
	Timeout       time.Duration
	MaxRetries    int
	RateLimitRPS  float64
	RateLimitBurst int
	BulkChunkSize int
}

// Client is the C1 upstream client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	flight     singleflight.Group
}

// New constructs a Client from Config.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BulkChunkSize <= 0 || cfg.BulkChunkSize > 100 {
		cfg.BulkChunkSize = 100
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 9
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = int(cfg.RateLimitRPS)
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		logger:     logger,
	}
}

// Filter is a structured expression of conjunctions, mirroring spec.md §4.1: title/
// abstract token groups (OR within a group, AND across groups), resolved author ids
// (OR), a publication year range, institution ids (OR), source ids (OR) and topic ids
// (OR).
type Filter struct {
	TitleAbstractGroups [][]string
	AuthorIDs           []string
	InstitutionIDs      []string
	SourceIDs           []string
	TopicIDs            []string
	YearFrom            *int
	YearTo              *int
}

// buildFilterParam renders Filter into OpenAlex's comma/pipe filter syntax.
func (f Filter) buildFilterParam() string {
	var clauses []string
	for _, group := range f.TitleAbstractGroups {
		if len(group) == 0 {
			continue
		}
		clauses = append(clauses, "title_and_abstract.search:"+strings.Join(group, "|"))
	}
	if len(f.AuthorIDs) > 0 {
		clauses = append(clauses, "authorships.author.id:"+strings.Join(f.AuthorIDs, "|"))
	}
	if len(f.InstitutionIDs) > 0 {
		clauses = append(clauses, "authorships.institutions.id:"+strings.Join(f.InstitutionIDs, "|"))
	}
	if len(f.SourceIDs) > 0 {
		clauses = append(clauses, "primary_location.source.id:"+strings.Join(f.SourceIDs, "|"))
	}
	if len(f.TopicIDs) > 0 {
		clauses = append(clauses, "topics.id:"+strings.Join(f.TopicIDs, "|"))
	}
	if f.YearFrom != nil {
		clauses = append(clauses, fmt.Sprintf("publication_year:>%d", *f.YearFrom-1))
	}
	if f.YearTo != nil {
		clauses = append(clauses, fmt.Sprintf("publication_year:<%d", *f.YearTo+1))
	}
	return strings.Join(clauses, ",")
}

// SearchWorks issues one works search with the given filter, sort and page. sortBy is
// one of "recency" or "relevance" as defined by spec.md §4.5; perPage is clamped by the
// caller to OpenAlex's own [1,200] bound.
func (c *Client) SearchWorks(ctx context.Context, f Filter, sortBy string, page, perPage int) (PageResult, error) {
	q := url.Values{}
	if filterParam := f.buildFilterParam(); filterParam != "" {
		q.Set("filter", filterParam)
	}
	q.Set("select", defaultSelect)
	q.Set("per-page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("sort", sortParam(sortBy))
	if c.cfg.MailTo != "" {
		q.Set("mailto", c.cfg.MailTo)
	}

	var resp worksResponse
	if err := c.getJSON(ctx, "/works", q, &resp); err != nil {
		return PageResult{}, err
	}

	papers := make([]ConvertedPaper, 0, len(resp.Results))
	for _, w := range resp.Results {
		papers = append(papers, convertWork(w))
	}
	return PageResult{Papers: papers, Total: resp.Meta.Count}, nil
}

func sortParam(sortBy string) string {
	switch sortBy {
	case "recency":
		return "publication_date:desc"
	case "relevance":
		return "relevance_score:desc"
	default:
		return "relevance_score:desc"
	}
}

// FetchWorkByID fetches a single work. Concurrent identical calls for the same id
// coalesce via singleflight.
func (c *Client) FetchWorkByID(ctx context.Context, id string) (*ConvertedPaper, error) {
	v, err, _ := c.flight.Do("work:"+id, func() (interface{}, error) {
		q := url.Values{}
		q.Set("select", defaultSelect)
		if c.cfg.MailTo != "" {
			q.Set("mailto", c.cfg.MailTo)
		}
		var w work
		if err := c.getJSON(ctx, "/works/"+url.PathEscape(id), q, &w); err != nil {
			return nil, err
		}
		converted := convertWork(w)
		return &converted, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ConvertedPaper), nil
}

// FetchWorksByIDs bulk-fetches works, chunking input into requests of at most
// BulkChunkSize ids and fanning out with bounded concurrency. Order is not preserved;
// missing ids are silently dropped. A failed chunk does not fail the whole call — its
// contribution is simply empty, matching spec.md §4.1's partial-failure semantics.
func (c *Client) FetchWorksByIDs(ctx context.Context, ids []string) ([]ConvertedPaper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	chunks := chunkStrings(ids, c.cfg.BulkChunkSize)

	const maxConcurrent = 8
	sem := make(chan struct{}, maxConcurrent)
	results := make(chan []ConvertedPaper, len(chunks))

	for _, chunk := range chunks {
		sem <- struct{}{}
		go func(chunk []string) {
			defer func() { <-sem }()
			papers, err := c.fetchWorksChunk(ctx, chunk)
			if err != nil {
				c.logger.Warn("bulk fetch chunk failed", slog.String("error", err.Error()), slog.Int("chunk_size", len(chunk)))
				results <- nil
				return
			}
			results <- papers
		}(chunk)
	}

	var out []ConvertedPaper
	for range chunks {
		out = append(out, <-results...)
	}
	return out, nil
}

func (c *Client) fetchWorksChunk(ctx context.Context, ids []string) ([]ConvertedPaper, error) {
	q := url.Values{}
	q.Set("filter", "ids.openalex:"+strings.Join(ids, "|"))
	q.Set("select", defaultSelect)
	q.Set("per-page", strconv.Itoa(len(ids)))
	if c.cfg.MailTo != "" {
		q.Set("mailto", c.cfg.MailTo)
	}
	var resp worksResponse
	if err := c.getJSON(ctx, "/works", q, &resp); err != nil {
		return nil, err
	}
	papers := make([]ConvertedPaper, 0, len(resp.Results))
	for _, w := range resp.Results {
		papers = append(papers, convertWork(w))
	}
	return papers, nil
}

// entityPath maps the four followable/searchable entity kinds to OpenAlex collections.
func entityPath(entityType string) (string, error) {
	switch entityType {
	case "author", "authors":
		return "/authors", nil
	case "institution", "institutions":
		return "/institutions", nil
	case "topic", "topics":
		return "/topics", nil
	case "source", "sources":
		return "/sources", nil
	default:
		return "", apperrors.NewValidationError("unsupported entity type", "entity_type", entityType)
	}
}

// SearchEntities resolves a free-text query to up to limit candidate entities of the
// given type (authors/institutions/topics/sources).
func (c *Client) SearchEntities(ctx context.Context, entityType, q string, limit int) ([]ResolvedEntity, error) {
	path, err := entityPath(entityType)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("search", q)
	params.Set("per-page", strconv.Itoa(limit))
	if c.cfg.MailTo != "" {
		params.Set("mailto", c.cfg.MailTo)
	}

	var resp entitiesResponse
	if err := c.getJSON(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	out := make([]ResolvedEntity, 0, len(resp.Results))
	for _, e := range resp.Results {
		out = append(out, ResolvedEntity{
			ID:           e.ID,
			UpstreamID:   e.ID,
			Name:         e.DisplayName,
			WorksCount:   e.WorksCount,
			CitedByCount: e.CitedByCount,
		})
	}
	return out, nil
}

// WorksByEntity fetches the latest works authored by / affiliated with / tagged with an
// upstream entity, used by C6's follow fan-out.
func (c *Client) WorksByEntity(ctx context.Context, entityType, upstreamID, sortBy string, limit int) ([]ConvertedPaper, error) {
	var filterKey string
	switch entityType {
	case "author":
		filterKey = "authorships.author.id"
	case "institution":
		filterKey = "authorships.institutions.id"
	case "topic":
		filterKey = "topics.id"
	case "source":
		filterKey = "primary_location.source.id"
	default:
		return nil, apperrors.NewValidationError("unsupported entity type", "entity_type", entityType)
	}

	q := url.Values{}
	q.Set("filter", filterKey+":"+upstreamID)
	q.Set("select", defaultSelect)
	q.Set("per-page", strconv.Itoa(limit))
	q.Set("sort", sortParam(sortBy))
	if c.cfg.MailTo != "" {
		q.Set("mailto", c.cfg.MailTo)
	}

	var resp worksResponse
	if err := c.getJSON(ctx, "/works", q, &resp); err != nil {
		return nil, err
	}
	out := make([]ConvertedPaper, 0, len(resp.Results))
	for _, w := range resp.Results {
		out = append(out, convertWork(w))
	}
	return out, nil
}

// RelatedWorks returns up to limit works from a record's own related-works list.
func (c *Client) RelatedWorks(ctx context.Context, paperID string, limit int) ([]ConvertedPaper, error) {
	paper, err := c.FetchWorkByID(ctx, paperID)
	if err != nil {
		return nil, err
	}
	ids := paper.RelatedWorkIDs
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return c.FetchWorksByIDs(ctx, ids)
}

// getJSON issues a rate-limited, retried GET request against the OpenAlex API and
// decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	fullURL := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return apperrors.NewUpstreamTimeoutError("getJSON")
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return apperrors.NewUpstreamTimeoutError("rate_limiter_wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return apperrors.NewInternalError("failed to build upstream request", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = apperrors.NewUpstreamTransientError("upstream request failed", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = apperrors.NewUpstreamTransientError("failed to read upstream response", readErr)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			if attempt == c.cfg.MaxRetries {
				return apperrors.NewUpstreamRateLimitedError(retryAfter)
			}
			lastErr = apperrors.NewUpstreamRateLimitedError(retryAfter)
			continue
		case resp.StatusCode >= 500:
			lastErr = apperrors.NewUpstreamTransientError(fmt.Sprintf("upstream returned %d", resp.StatusCode), nil)
			continue
		case resp.StatusCode == http.StatusNotFound:
			return apperrors.NewNotFoundError("work", path)
		case resp.StatusCode >= 400:
			// 4xx other than 429/404 are not retried.
			return apperrors.NewUpstreamTransientError(fmt.Sprintf("upstream returned %d", resp.StatusCode), nil)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return apperrors.NewSerializationError("failed to decode upstream response", path)
		}
		return nil
	}
	return lastErr
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 2 * time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 2 * time.Second
}

func chunkStrings(items []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
