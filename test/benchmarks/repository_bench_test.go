package benchmarks_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"scifind-backend/internal/models"
	"scifind-backend/internal/repository"
)

func newBenchDB(b *testing.B) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		b.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Paper{}, &models.Author{}, &models.Category{}, &models.SearchHistory{}); err != nil {
		b.Fatalf("migrate: %v", err)
	}
	return db
}

func benchLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func BenchmarkPaperRepository_Create(b *testing.B) {
	db := newBenchDB(b)
	repo := repository.NewPaperRepository(db, benchLogger())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		paper := &models.Paper{
			ID:             fmt.Sprintf("bench_%d", i),
			Title:          "Benchmark Paper",
			SourceProvider: "openalex",
			SourceID:       fmt.Sprintf("W%d", i),
			Language:       "en",
		}
		if err := repo.Create(ctx, paper); err != nil {
			b.Fatalf("create: %v", err)
		}
	}
}

func BenchmarkPaperRepository_GetByID(b *testing.B) {
	db := newBenchDB(b)
	repo := repository.NewPaperRepository(db, benchLogger())
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		paper := &models.Paper{
			ID:             fmt.Sprintf("bench_%d", i),
			Title:          "Benchmark Paper",
			SourceProvider: "openalex",
			SourceID:       fmt.Sprintf("W%d", i),
			Language:       "en",
		}
		if err := repo.Create(ctx, paper); err != nil {
			b.Fatalf("seed create: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repo.GetByID(ctx, fmt.Sprintf("bench_%d", i%1000)); err != nil {
			b.Fatalf("get: %v", err)
		}
	}
}

func BenchmarkPaperRepository_UpsertBatch(b *testing.B) {
	db := newBenchDB(b)
	repo := repository.NewPaperRepository(db, benchLogger())
	ctx := context.Background()

	batch := make([]models.Paper, 50)
	for i := range batch {
		batch[i] = models.Paper{
			ID:             fmt.Sprintf("batch_%d", i),
			Title:          "Batch Paper",
			SourceProvider: "openalex",
			SourceID:       fmt.Sprintf("WB%d", i),
			Language:       "en",
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := repo.UpsertBatch(ctx, batch); err != nil {
			b.Fatalf("upsert batch: %v", err)
		}
	}
}

func BenchmarkSearchRepository_CreateSearchHistory(b *testing.B) {
	db := newBenchDB(b)
	repo := repository.NewSearchRepository(db, benchLogger())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		history := &models.SearchHistory{
			ID:          fmt.Sprintf("sh_%d", i),
			Query:       "benchmark query",
			ResultCount: 10,
		}
		if err := repo.CreateSearchHistory(ctx, history); err != nil {
			b.Fatalf("create search history: %v", err)
		}
	}
}
