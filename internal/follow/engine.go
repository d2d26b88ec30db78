// Package follow implements the follow fan-out engine (C6): a bounded-concurrency
// aggregator over a user's followed entities, generalizing the teacher's
// multi-provider merge fan-out from "one task per provider" to "one task per follow."
package follow

import (
	"context"
	"log/slog"
	"sort"
	"time"

	apperrors "scifind-backend/internal/errors"
	"scifind-backend/internal/messaging"
	"scifind-backend/internal/models"
	"scifind-backend/internal/openalex"
	"scifind-backend/internal/papercache"
	"scifind-backend/internal/search"
	"scifind-backend/internal/userstore"
)

// DefaultPerEntityLimit and DefaultTotalLimit are spec.md §4.6's defaults.
const (
	DefaultPerEntityLimit = 50
	DefaultTotalLimit     = 200
	MaxConcurrentFanout   = 8
)

type taskResult struct {
	papers []openalex.ConvertedPaper
	err    error
}

// Engine is C6.
type Engine struct {
	follows   userstore.Store
	upstream  *openalex.Client
	searchEng *search.Engine
	cache     papercache.Store
	publisher *messaging.EventPublisher
	logger    *slog.Logger

	maxConcurrent int
}

// New constructs an Engine.
func New(follows userstore.Store, upstream *openalex.Client, searchEng *search.Engine, cache papercache.Store, publisher *messaging.EventPublisher, logger *slog.Logger) *Engine {
	return &Engine{
		follows:       follows,
		upstream:      upstream,
		searchEng:     searchEng,
		cache:         cache,
		publisher:     publisher,
		logger:        logger,
		maxConcurrent: MaxConcurrentFanout,
	}
}

// Feed runs spec.md §4.6's algorithm: load follows, fan out one bounded task per
// follow, dedupe, sort by year desc with id tiebreaker, truncate, upsert.
func (e *Engine) Feed(ctx context.Context, userID string, perEntityLimit, totalLimit int) ([]models.Paper, error) {
	if perEntityLimit <= 0 {
		perEntityLimit = DefaultPerEntityLimit
	}
	if totalLimit <= 0 {
		totalLimit = DefaultTotalLimit
	}

	start := time.Now()
	follows, err := e.follows.ListFollows(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(follows) == 0 {
		return []models.Paper{}, nil
	}

	sem := make(chan struct{}, e.maxConcurrent)
	resultChan := make(chan taskResult, len(follows))

	for _, f := range follows {
		sem <- struct{}{}
		go func(f models.Follow) {
			defer func() { <-sem }()
			papers, err := e.runTask(ctx, f, perEntityLimit)
			if err != nil {
				e.logger.Warn("follow fan-out task failed",
					slog.String("user_id", userID),
					slog.String("entity_type", f.EntityType),
					slog.String("entity_id", f.EntityID),
					slog.String("error", err.Error()))
			}
			resultChan <- taskResult{papers: papers, err: err}
		}(f)
	}

	var all []openalex.ConvertedPaper
	succeeded, failed := 0, 0
	for range follows {
		r := <-resultChan
		if r.err != nil {
			failed++
			continue
		}
		succeeded++
		all = append(all, r.papers...)
	}

	if succeeded == 0 {
		// C2 is a flat paperId->paper store with no index by follow entity, so there is
		// no cached union to reconstruct here; every task failing surfaces as a typed
		// failure rather than a silently degraded empty feed.
		fanoutErr := apperrors.NewUpstreamTransientError("all follow fan-out tasks failed", nil)
		e.publishCompletion(ctx, userID, len(follows), succeeded, failed, 0, start, fanoutErr)
		return nil, fanoutErr
	}

	papers := make([]models.Paper, 0, len(all))
	for _, cp := range all {
		papers = append(papers, papercache.FromUpstream(cp))
	}
	papers = dedupeByID(papers)
	sortByYearDesc(papers)
	if len(papers) > totalLimit {
		papers = papers[:totalLimit]
	}

	if len(papers) > 0 {
		if err := e.cache.PutMany(ctx, papers); err != nil {
			e.logger.Warn("failed to bulk-upsert follow feed into paper cache", slog.String("error", err.Error()))
		}
	}

	e.publishCompletion(ctx, userID, len(follows), succeeded, failed, len(papers), start, nil)
	return papers, nil
}

func (e *Engine) publishCompletion(ctx context.Context, userID string, followCount, succeeded, failed, resultCount int, start time.Time, err error) {
	if e.publisher == nil {
		return
	}
	go func() {
		if pubErr := e.publisher.PublishFollowFanoutCompleted(context.Background(), userID, followCount, succeeded, failed, resultCount, time.Since(start), err); pubErr != nil {
			e.logger.Warn("failed to publish follow fanout completed event", slog.String("error", pubErr.Error()))
		}
	}()
}

// runTask executes one follow's upstream fetch. A `custom` follow delegates to C5's
// structured search using EntityID as the free-text query, per spec.md §4.6 step 3.
func (e *Engine) runTask(ctx context.Context, f models.Follow, perEntityLimit int) ([]openalex.ConvertedPaper, error) {
	if f.EntityType == models.EntityTypeCustom {
		result, err := e.searchEng.Search(ctx, search.Request{
			Query:     f.EntityID,
			SortBy:    search.SortRecency,
			Page:      1,
			PerPage:   perEntityLimit,
			Principal: f.UserID,
		})
		if err != nil {
			return nil, err
		}
		out := make([]openalex.ConvertedPaper, 0, len(result.Papers))
		for _, p := range result.Papers {
			out = append(out, toConverted(p))
		}
		return out, nil
	}

	return e.upstream.WorksByEntity(ctx, f.EntityType, f.UpstreamID, "recency", perEntityLimit)
}

func toConverted(p models.Paper) openalex.ConvertedPaper {
	var doi, abstract string
	if p.DOI != nil {
		doi = *p.DOI
	}
	if p.Abstract != nil {
		abstract = *p.Abstract
	}
	return openalex.ConvertedPaper{
		ID:            p.ID,
		DOI:           doi,
		Title:         p.Title,
		Abstract:      abstract,
		PublishedAt:   p.PublishedAt,
		CitationCount: p.CitationCount,
	}
}

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

func sortByYearDesc(papers []models.Paper) {
	sort.SliceStable(papers, func(i, j int) bool {
		yi, yj := yearOf(papers[i]), yearOf(papers[j])
		if yi != yj {
			return yi > yj
		}
		return papers[i].ID < papers[j].ID
	})
}

func yearOf(p models.Paper) int {
	if p.PublishedAt == nil {
		return 0
	}
	return p.PublishedAt.Year()
}
