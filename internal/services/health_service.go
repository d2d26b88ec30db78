package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"scifind-backend/internal/messaging"
	"scifind-backend/internal/repository"
)

// HealthService checks the health of the paper/user store and the messaging client.
type HealthService struct {
	repos     *repository.Container
	messaging *messaging.Client
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthService creates a new health service
func NewHealthService(repos *repository.Container, messaging *messaging.Client, logger *slog.Logger) HealthServiceInterface {
	return &HealthService{
		repos:     repos,
		messaging: messaging,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Health checks the health of the health service itself.
func (s *HealthService) Health(ctx context.Context) error {
	return nil
}

// DatabaseHealth checks the durable store's repositories are initialized.
func (s *HealthService) DatabaseHealth(ctx context.Context) error {
	if s.repos == nil {
		return fmt.Errorf("database repositories not initialized")
	}
	if s.repos.Paper == nil {
		return fmt.Errorf("paper repository not initialized")
	}
	return nil
}

// MessagingHealth checks the NATS connection.
func (s *HealthService) MessagingHealth(ctx context.Context) error {
	if s.messaging == nil {
		return fmt.Errorf("messaging client not initialized")
	}
	if !s.messaging.IsConnected() {
		return fmt.Errorf("NATS connection is not established")
	}
	return nil
}

// GetSystemInfo returns comprehensive system information.
func (s *HealthService) GetSystemInfo(ctx context.Context) (*SystemInfo, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memInfo := MemoryInfo{
		Allocated: m.Alloc,
		Total:     m.TotalAlloc,
		System:    m.Sys,
		GCRuns:    m.NumGC,
	}

	dbInfo := DatabaseInfo{
		Connected:   s.repos != nil,
		Type:        "sql",
		Connections: map[string]int{"active": 0, "idle": 0},
	}
	if dbErr := s.DatabaseHealth(ctx); dbErr != nil {
		dbInfo.Connected = false
	}

	svc := map[string]bool{
		"database":  dbInfo.Connected,
		"messaging": s.messaging != nil && s.messaging.IsConnected(),
		"health":    true,
	}

	return &SystemInfo{
		Version:   "1.0.0",
		Uptime:    time.Since(s.startTime),
		Memory:    memInfo,
		Database:  dbInfo,
		Services:  svc,
		Timestamp: time.Now(),
	}, nil
}
