// Package handlers binds the HTTP surface (C9) onto C1-C8: each file is one group of
// spec.md §6 endpoints.
package handlers

import (
	"log/slog"

	"scifind-backend/internal/follow"
	"scifind-backend/internal/openalex"
	"scifind-backend/internal/papercache"
	"scifind-backend/internal/queryparser"
	"scifind-backend/internal/recommend"
	"scifind-backend/internal/search"
	"scifind-backend/internal/session"
	"scifind-backend/internal/userstore"
)

// Core holds every C1-C8 dependency the new (non-health) handlers bind to §6.
type Core struct {
	Gateway   *session.Gateway
	Users     userstore.Store
	Cache     papercache.Store
	Upstream  *openalex.Client
	Parser    queryparser.Parser
	SearchEng *search.Engine
	FollowEng *follow.Engine
	RecEng    *recommend.Engine
	Logger    *slog.Logger
}
