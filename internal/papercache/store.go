// Package papercache implements the paper store (C2): key/value semantics over
// paperId, backed by the teacher's gorm PaperRepository.
package papercache

import (
	"context"
	"log/slog"
	"time"

	"scifind-backend/internal/models"
	"scifind-backend/internal/repository"
)

// TTLFresh is the default freshness window for a cached paper (spec.md §4.2).
const TTLFresh = 24 * time.Hour

// Store is C2's contract.
type Store interface {
	Put(ctx context.Context, paper models.Paper) error
	PutMany(ctx context.Context, papers []models.Paper) error
	Get(ctx context.Context, paperID string) (*models.Paper, error)
	GetMany(ctx context.Context, paperIDs []string) ([]models.Paper, error)
	Touch(ctx context.Context, paperID string) error
}

type store struct {
	papers repository.PaperRepository
	logger *slog.Logger
}

// New constructs a Store over the given paper repository.
func New(papers repository.PaperRepository, logger *slog.Logger) Store {
	return &store{papers: papers, logger: logger}
}

// Put upserts a single paper. Idempotent: repeated calls with the same ID overwrite
// rather than duplicate.
func (s *store) Put(ctx context.Context, paper models.Paper) error {
	return s.papers.Upsert(ctx, &paper)
}

// PutMany upserts many papers; idempotent per spec.md §4.2.
func (s *store) PutMany(ctx context.Context, papers []models.Paper) error {
	return s.papers.UpsertBatch(ctx, papers)
}

// Get fetches a single paper by ID.
func (s *store) Get(ctx context.Context, paperID string) (*models.Paper, error) {
	return s.papers.GetByID(ctx, paperID)
}

// GetMany fetches many papers by ID, tolerating individually missing ids (they are
// simply omitted from the result, matching spec.md property 5).
func (s *store) GetMany(ctx context.Context, paperIDs []string) ([]models.Paper, error) {
	out := make([]models.Paper, 0, len(paperIDs))
	for _, id := range paperIDs {
		paper, err := s.papers.GetByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, *paper)
	}
	return out, nil
}

// Touch bumps updated_at and the access counter for an existing paper.
func (s *store) Touch(ctx context.Context, paperID string) error {
	return s.papers.Touch(ctx, paperID)
}

// IsFresh reports whether a paper is still within TTLFresh of its last update.
func IsFresh(paper *models.Paper) bool {
	if paper == nil {
		return false
	}
	return time.Since(paper.UpdatedAt) < TTLFresh
}
