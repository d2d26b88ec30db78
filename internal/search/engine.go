// Package search implements the search engine (C5): structured and natural-language
// query entry points that converge on one plan against the upstream bibliographic
// index, bulk-upserted into the paper cache before being returned.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "scifind-backend/internal/errors"
	"scifind-backend/internal/messaging"
	"scifind-backend/internal/models"
	"scifind-backend/internal/openalex"
	"scifind-backend/internal/papercache"
	"scifind-backend/internal/queryparser"
)

// SortBy selects the ordering applied to a result page.
type SortBy string

const (
	SortRecency   SortBy = "recency"
	SortRelevance SortBy = "relevance"
)

// Request is C5's unified structured input. Query, when non-empty, is first run
// through the parser (§4.4) and merged into Topics/Authors; when the parser yields
// nothing, Query is kept as a literal keyword so the engine never needs a parser to
// function.
type Request struct {
	Query      string
	Topics     []string
	Authors    []string
	Years      []string
	Institutions []string
	SortBy     SortBy
	Page       int
	PerPage    int
	Principal  string // opaque fingerprint component, typically the userID or "anon"
}

// AuthorResolutionK is the number of candidate author (or institution) ids kept per resolved name
// (spec.md §4.5 step 1).
const AuthorResolutionK = 3

// DefaultPerPage is the server's default page size when the caller doesn't specify one.
const DefaultPerPage = 200

// Result is C5's response shape.
type Result struct {
	Papers     []models.Paper
	TotalCount int
}

// Engine is C5.
type Engine struct {
	upstream  *openalex.Client
	cache     papercache.Store
	parser    queryparser.Parser
	publisher *messaging.EventPublisher
	logger    *slog.Logger

	flight singleflight.Group
}

// New constructs an Engine. parser and publisher may be nil: a nil parser falls
// back to treating the raw query as keywords (spec.md §4.4); a nil publisher simply
// skips the completion event.
func New(upstream *openalex.Client, cache papercache.Store, parser queryparser.Parser, publisher *messaging.EventPublisher, logger *slog.Logger) *Engine {
	return &Engine{upstream: upstream, cache: cache, parser: parser, publisher: publisher, logger: logger}
}

// Search runs a full structured-or-natural-language request through the plan
// described by spec.md §4.5 (resolve authors, build filter, issue one upstream call,
// bulk-upsert, return), coalescing identical concurrent requests via singleflight.
func (e *Engine) Search(ctx context.Context, req Request) (Result, error) {
	req = normalizeRequest(req, e.parser)
	fingerprint := fingerprintOf(req)

	start := time.Now()
	v, err, _ := e.flight.Do(fingerprint, func() (interface{}, error) {
		return e.execute(ctx, req)
	})

	if e.publisher != nil {
		resultCount := 0
		if res, ok := v.(Result); ok {
			resultCount = len(res.Papers)
		}
		go func() {
			bgCtx := context.Background()
			if pubErr := e.publisher.PublishSearchCompleted(bgCtx, fingerprint, req.Query, resultCount, time.Since(start), []string{"openalex"}, false, principalPtr(req.Principal), err); pubErr != nil {
				e.logger.Warn("failed to publish search completed event", slog.String("error", pubErr.Error()))
			}
		}()
	}

	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func principalPtr(p string) *string {
	if p == "" {
		return nil
	}
	return &p
}

func (e *Engine) execute(ctx context.Context, req Request) (Result, error) {
	filter, err := e.buildFilter(ctx, req)
	if err != nil {
		return Result{}, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	perPage := req.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > 200 {
		perPage = 200
	}

	pageResult, err := e.upstream.SearchWorks(ctx, filter, string(req.SortBy), page, perPage)
	if err != nil {
		e.logger.Warn("upstream search failed", slog.String("filter", summarizeFilter(filter)), slog.String("error", err.Error()))
		return Result{}, err
	}

	papers := make([]models.Paper, 0, len(pageResult.Papers))
	for _, cp := range pageResult.Papers {
		papers = append(papers, papercache.FromUpstream(cp))
	}
	papers = dedupeByID(papers)
	sortPapers(papers, req.SortBy)

	if len(papers) > 0 {
		if err := e.cache.PutMany(ctx, papers); err != nil {
			e.logger.Warn("failed to bulk-upsert search results into paper cache", slog.String("error", err.Error()))
		}
	}

	return Result{Papers: papers, TotalCount: pageResult.Total}, nil
}

// buildFilter resolves author names to upstream ids and renders the rest of the
// structured request into an openalex.Filter, per spec.md §4.5 steps 1-2.
func (e *Engine) buildFilter(ctx context.Context, req Request) (openalex.Filter, error) {
	var f openalex.Filter

	if len(req.Topics) > 0 {
		f.TitleAbstractGroups = append(f.TitleAbstractGroups, req.Topics)
	}

	var unresolvedKeywords []string
	for _, name := range req.Authors {
		entities, err := e.upstream.SearchEntities(ctx, "author", name, AuthorResolutionK)
		if err != nil || len(entities) == 0 {
			unresolvedKeywords = append(unresolvedKeywords, name)
			continue
		}
		for _, ent := range entities {
			f.AuthorIDs = append(f.AuthorIDs, ent.UpstreamID)
		}
	}
	for _, name := range req.Institutions {
		entities, err := e.upstream.SearchEntities(ctx, "institution", name, AuthorResolutionK)
		if err != nil || len(entities) == 0 {
			unresolvedKeywords = append(unresolvedKeywords, name)
			continue
		}
		for _, ent := range entities {
			f.InstitutionIDs = append(f.InstitutionIDs, ent.UpstreamID)
		}
	}
	if len(unresolvedKeywords) > 0 {
		f.TitleAbstractGroups = append(f.TitleAbstractGroups, unresolvedKeywords)
	}

	for _, y := range req.Years {
		from, to, ok := parseYearToken(y)
		if !ok {
			continue
		}
		if from != nil {
			f.YearFrom = from
		}
		if to != nil {
			f.YearTo = to
		}
	}

	return f, nil
}

func summarizeFilter(f openalex.Filter) string {
	return fmt.Sprintf("topics=%v authors=%v years=[%v,%v]", f.TitleAbstractGroups, f.AuthorIDs, f.YearFrom, f.YearTo)
}

// normalizeRequest merges a natural-language Query through the parser (when one is
// wired) into the structured fields, keeping Query itself as a fallback keyword set
// per spec.md §4.5.
func normalizeRequest(req Request, parser queryparser.Parser) Request {
	if req.Query == "" || parser == nil {
		if req.Query != "" && len(req.Topics) == 0 {
			req.Topics = append(req.Topics, req.Query)
		}
		return req
	}

	parsed := parser.Parse(req.Query)
	if len(parsed.Keywords) == 0 && len(parsed.Authors) == 0 && len(parsed.Years) == 0 && len(parsed.Institutions) == 0 {
		req.Topics = append(req.Topics, req.Query)
		return req
	}

	req.Topics = append(req.Topics, parsed.Keywords...)
	req.Authors = append(req.Authors, parsed.Authors...)
	req.Years = append(req.Years, parsed.Years...)
	req.Institutions = append(req.Institutions, parsed.Institutions...)
	return req
}

func fingerprintOf(req Request) string {
	return fmt.Sprintf("%v|%v|%v|%v|%s|%d|%d|%s",
		req.Topics, req.Authors, req.Years, req.Institutions, req.SortBy, req.Page, req.PerPage, req.Principal)
}

// dedupeByID removes repeated paperIds within a single response, keeping the first
// occurrence (spec.md §4.5).
func dedupeByID(papers []models.Paper) []models.Paper {
	seen := make(map[string]bool, len(papers))
	out := papers[:0]
	for _, p := range papers {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// sortPapers applies spec.md §4.5's sort semantics: recency orders by publication
// date descending with id as a tiebreaker; relevance orders by the upstream
// relevance score descending, falling back to citation count then id only to break
// ties among equal scores.
func sortPapers(papers []models.Paper, sortBy SortBy) {
	switch sortBy {
	case SortRecency:
		sort.SliceStable(papers, func(i, j int) bool {
			ti, tj := papers[i].PublishedAt, papers[j].PublishedAt
			switch {
			case ti == nil && tj == nil:
				return papers[i].ID < papers[j].ID
			case ti == nil:
				return false
			case tj == nil:
				return true
			case !ti.Equal(*tj):
				return ti.After(*tj)
			default:
				return papers[i].ID < papers[j].ID
			}
		})
	default:
		sort.SliceStable(papers, func(i, j int) bool {
			if papers[i].RelevanceScore != papers[j].RelevanceScore {
				return papers[i].RelevanceScore > papers[j].RelevanceScore
			}
			if papers[i].CitationCount != papers[j].CitationCount {
				return papers[i].CitationCount > papers[j].CitationCount
			}
			return papers[i].ID < papers[j].ID
		})
	}
}

// IsRateLimited reports whether err is an apperrors rate-limit error, the "retry
// later" shape spec.md §4.5 has the engine surface when the upstream 429s after retries.
func IsRateLimited(err error) bool {
	sfe, ok := err.(*apperrors.SciFindError)
	return ok && sfe.Type == apperrors.ErrorTypeRateLimit
}
