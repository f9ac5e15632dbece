package http

import (
	"github.com/article-live-api/internal/application/article"
	"github.com/article-live-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/article-live-api/internal/infrastructure/jwt"
	"github.com/article-live-api/internal/transport/ws"
)

// Deps holds all dependencies for the router.
type Deps struct {
	ArticleSvc       article.Service
	SubscriptionRepo *dynamo.SubscriptionRepo
	Gateway          *ws.Gateway
	JWTProvider      *jwtinfra.Provider
}
