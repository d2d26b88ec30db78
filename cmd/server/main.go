// Package main SciFIND Backend API
//
//	@title			SciFIND Backend API
//	@version		1.0.0
//	@description	Personalized scholarly paper discovery service backed by OpenAlex: search, follows, recommendations, and per-user folders/feedback behind a session-cookie OAuth gateway.
//	@termsOfService	https://scifind.ai/terms
//
//	@contact.name	SciFIND Support
//	@contact.email	support@scifind.ai
//	@contact.url	https://scifind.ai/support
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//	@schemes	http https
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "scifind-backend/docs"
	"scifind-backend/internal/analytics"
	"scifind-backend/internal/api"
	"scifind-backend/internal/api/handlers"
	"scifind-backend/internal/config"
	"scifind-backend/internal/follow"
	"scifind-backend/internal/messaging"
	"scifind-backend/internal/messaging/embedded"
	"scifind-backend/internal/openalex"
	"scifind-backend/internal/papercache"
	"scifind-backend/internal/queryparser"
	"scifind-backend/internal/recommend"
	"scifind-backend/internal/repository"
	"scifind-backend/internal/search"
	"scifind-backend/internal/services"
	"scifind-backend/internal/session"
	"scifind-backend/internal/userstore"
)

func mustDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		slog.Error("failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := repository.NewDatabase(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repos := repository.NewContainer(db.DB, logger)

	var embeddedServer *embedded.EmbeddedServer
	if cfg.NATS.Embedded.Enabled {
		embeddedServer, err = embedded.NewEmbeddedServer(&cfg.NATS, logger)
		if err != nil {
			logger.Error("failed to start embedded NATS server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	var natsClient *messaging.Client
	var publisher *messaging.EventPublisher
	natsClient, err = messaging.NewClient(cfg.NATS, logger)
	if err != nil {
		logger.Warn("NATS unavailable, continuing without event publishing", slog.String("error", err.Error()))
		natsClient = nil
	} else {
		publisher = messaging.NewEventPublisher(natsClient, logger)

		analyticsConsumer := analytics.New(repos.Search, logger)
		subscriber := messaging.NewEventSubscriber(natsClient, logger)
		if err := analyticsConsumer.Start(context.Background(), subscriber); err != nil {
			logger.Warn("failed to start search/follow analytics consumer", slog.String("error", err.Error()))
		}
	}

	upstream := openalex.New(openalex.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		MailTo:         cfg.Upstream.MailTo,
		Timeout:        mustDuration(cfg.Upstream.Timeout, 15*time.Second),
		MaxRetries:     cfg.Upstream.MaxRetries,
		RateLimitRPS:   cfg.Upstream.RateLimitRPS,
		RateLimitBurst: cfg.Upstream.RateLimitBurst,
		BulkChunkSize:  cfg.Upstream.BulkChunkSize,
	}, logger)

	cache := papercache.New(repos.Paper, logger)

	var users userstore.Store
	if cfg.Database.Type == "sqlite" {
		users = userstore.NewMemoryStore()
	} else {
		users = userstore.NewGormStore(db.DB, logger)
	}

	sessionStore := session.NewMemoryStore()
	sessionStore.StartCleanupRoutine(10 * time.Minute)

	gateway, err := session.New(session.Config{
		AuthURL:       cfg.OAuth.AuthURL,
		TokenURL:      cfg.OAuth.TokenURL,
		UserInfoURL:   cfg.OAuth.UserInfoURL,
		ClientID:      cfg.OAuth.ClientID,
		ClientSecret:  cfg.OAuth.ClientSecret,
		RedirectBase:  cfg.OAuth.RedirectBase,
		SPARedirect:   cfg.OAuth.SPARedirect,
		Scopes:        cfg.OAuth.Scopes,
		SigningSecret: cfg.Session.SigningSecret,
		CookieName:    cfg.Session.CookieName,
		SessionTTL:    mustDuration(cfg.Session.TTL, 720*time.Hour),
		SecureCookie:  cfg.Session.Secure,
	}, sessionStore, users, logger)
	if err != nil {
		logger.Error("failed to build session gateway", slog.String("error", err.Error()))
		os.Exit(1)
	}

	parser := queryparser.NewHeuristicParser()
	searchEng := search.New(upstream, cache, parser, publisher, logger)
	followEng := follow.New(users, upstream, searchEng, cache, publisher, logger)
	recEng := recommend.New(users, searchEng, upstream, cache, recommend.Weights{
		Topic:  cfg.Recommendation.WTopic,
		Author: cfg.Recommendation.WAuthor,
		Year:   cfg.Recommendation.WYear,
	}, recommend.Limits{
		MaxRelatedPerLike:  cfg.Recommendation.MaxRelatedPerLike,
		MaxLikesConsidered: cfg.Recommendation.MaxLikesConsidered,
		DefaultLimit:       cfg.Recommendation.DefaultLimit,
		MaxLimit:           cfg.Recommendation.MaxLimit,
	}, logger)

	healthService := services.NewHealthService(repos, natsClient, logger)
	healthHandler := handlers.NewHealthHandler(healthService, logger)

	core := &handlers.Core{
		Gateway:   gateway,
		Users:     users,
		Cache:     cache,
		Upstream:  upstream,
		Parser:    parser,
		SearchEng: searchEng,
		FollowEng: followEng,
		RecEng:    recEng,
		Logger:    logger,
	}

	router := api.NewRouter(core, gateway, healthHandler, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if addr == ":0" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:           addr,
		Handler:        router,
		ReadTimeout:    mustDuration(cfg.Server.ReadTimeout, 30*time.Second),
		WriteTimeout:   mustDuration(cfg.Server.WriteTimeout, 30*time.Second),
		IdleTimeout:    mustDuration(cfg.Server.IdleTimeout, 120*time.Second),
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	if embeddedServer != nil {
		if err := embeddedServer.Start(context.Background()); err != nil {
			logger.Error("failed to start embedded NATS server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	go func() {
		logger.Info("starting SciFIND backend",
			slog.String("addr", server.Addr),
			slog.String("mode", cfg.Server.Mode))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down SciFIND backend")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server forced to shutdown", slog.String("error", err.Error()))
	}

	if err := db.Close(); err != nil {
		logger.Warn("error closing database", slog.String("error", err.Error()))
	}

	if embeddedServer != nil {
		if err := embeddedServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping embedded NATS server", slog.String("error", err.Error()))
		}
	}

	if natsClient != nil {
		natsClient.Close()
	}

	logger.Info("SciFIND backend shutdown complete")
}
