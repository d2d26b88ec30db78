// Package recommend implements the recommendation engine (C7): profile- and
// likes-driven candidate generation with a fixed-weight scoring pass, degrading to
// an empty (not erroring) result when the user has no profile and no likes.
package recommend

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"scifind-backend/internal/models"
	"scifind-backend/internal/openalex"
	"scifind-backend/internal/papercache"
	"scifind-backend/internal/search"
	"scifind-backend/internal/userstore"
)

// Weights are C7's fixed scoring constants (spec.md §4.7), sourced from
// Config.Recommendation so operators can retune them without a code change, while the
// engine itself never infers them dynamically.
type Weights struct {
	Topic  float64
	Author float64
	Year   float64
}

// Limits bounds C7's candidate generation fan-out.
type Limits struct {
	MaxRelatedPerLike  int // R in spec.md §4.7, default 5
	MaxLikesConsidered int // M in spec.md §4.7, default 10
	DefaultLimit       int
	MaxLimit           int
}

// Engine is C7.
type Engine struct {
	users     userstore.Store
	searchEng *search.Engine
	upstream  *openalex.Client
	cache     papercache.Store
	weights   Weights
	limits    Limits
	logger    *slog.Logger
}

// New constructs an Engine.
func New(users userstore.Store, searchEng *search.Engine, upstream *openalex.Client, cache papercache.Store, weights Weights, limits Limits, logger *slog.Logger) *Engine {
	return &Engine{users: users, searchEng: searchEng, upstream: upstream, cache: cache, weights: weights, limits: limits, logger: logger}
}

type scoredPaper struct {
	paper models.Paper
	score float64
}

// Recommend runs spec.md §4.7's strategy for the given user, bounding the result to
// limit (0 selects Limits.DefaultLimit, clamped to Limits.MaxLimit).
func (e *Engine) Recommend(ctx context.Context, userID string, limit int) ([]models.Paper, error) {
	if limit <= 0 {
		limit = e.limits.DefaultLimit
	}
	if limit > e.limits.MaxLimit {
		limit = e.limits.MaxLimit
	}

	profile, err := e.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	liked, disliked, err := e.users.GetFeedback(ctx, userID)
	if err != nil {
		return nil, err
	}

	if profile.IsEmpty() && len(liked) == 0 {
		return []models.Paper{}, nil
	}

	excluded := make(map[string]bool, len(liked)+len(disliked))
	for _, id := range liked {
		excluded[id] = true
	}
	for _, id := range disliked {
		excluded[id] = true
	}

	candidates := make(map[string]models.Paper)

	if !profile.IsEmpty() {
		result, err := e.searchEng.Search(ctx, search.Request{
			Topics:    profile.Topics,
			Authors:   profile.Authors,
			SortBy:    search.SortRecency,
			Page:      1,
			PerPage:   search.DefaultPerPage,
			Principal: userID,
		})
		if err != nil {
			e.logger.Warn("recommendation profile search failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		} else {
			for _, p := range result.Papers {
				candidates[p.ID] = p
			}
		}
	}

	// The "likes" folder keeps the most recent like at its head; the feedback set
	// has no defined order.
	recentLikes := liked
	if likes, err := e.users.GetFolder(ctx, userID, models.LikesFolderID); err == nil {
		recentLikes = likes.PaperIDs
	}
	if len(recentLikes) > e.limits.MaxLikesConsidered {
		recentLikes = recentLikes[:e.limits.MaxLikesConsidered]
	}
	for _, paperID := range recentLikes {
		related, err := e.upstream.RelatedWorks(ctx, paperID, e.limits.MaxRelatedPerLike)
		if err != nil {
			e.logger.Warn("related works fetch failed", slog.String("paper_id", paperID), slog.String("error", err.Error()))
			continue
		}
		for _, cp := range related {
			p := papercache.FromUpstream(cp)
			candidates[p.ID] = p
		}
	}

	var papers []models.Paper
	for id, p := range candidates {
		if excluded[id] {
			continue
		}
		papers = append(papers, p)
	}

	if len(papers) == 0 {
		return []models.Paper{}, nil
	}

	if len(papers) > 0 {
		if err := e.cache.PutMany(ctx, papers); err != nil {
			e.logger.Warn("failed to bulk-upsert recommendation candidates into paper cache", slog.String("error", err.Error()))
		}
	}

	scored := e.score(papers, profile)
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].paper.CitationCount != scored[j].paper.CitationCount {
			return scored[i].paper.CitationCount > scored[j].paper.CitationCount
		}
		return scored[i].paper.ID < scored[j].paper.ID
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]models.Paper, 0, len(scored))
	for _, sp := range scored {
		out = append(out, sp.paper)
	}
	return out, nil
}

func (e *Engine) score(papers []models.Paper, profile *models.Profile) []scoredPaper {
	currentYear := time.Now().Year()
	out := make([]scoredPaper, 0, len(papers))
	for _, p := range papers {
		topicMatch := topicMatchScore(p, profile.Topics)
		authorMatch := authorMatchScore(p, profile.Authors)
		recencyWeight := recencyWeight(p, currentYear)

		score := e.weights.Topic*topicMatch + e.weights.Author*authorMatch + e.weights.Year*recencyWeight
		out = append(out, scoredPaper{paper: p, score: score})
	}
	return out
}

// topicMatchScore is the fraction of profile topics that appear (case-insensitively,
// as a substring) in the paper's category names.
func topicMatchScore(p models.Paper, topics []string) float64 {
	if len(topics) == 0 {
		return 0
	}
	hits := 0
	for _, topic := range topics {
		for _, cat := range p.Categories {
			if containsFold(cat.Name, topic) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(topics))
}

// authorMatchScore is 1 if any profile author name matches one of the paper's
// authors, else 0.
func authorMatchScore(p models.Paper, authors []string) float64 {
	for _, name := range authors {
		for _, a := range p.Authors {
			if containsFold(a.Name, name) {
				return 1
			}
		}
	}
	return 0
}

// recencyWeight is spec.md §4.7's max(0, 1 - (currentYear-paperYear)/10).
func recencyWeight(p models.Paper, currentYear int) float64 {
	if p.PublishedAt == nil {
		return 0
	}
	age := currentYear - p.PublishedAt.Year()
	w := 1 - float64(age)/10
	if w < 0 {
		return 0
	}
	return w
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
