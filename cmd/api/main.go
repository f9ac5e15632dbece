package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/article-live-api/internal/application/article"
	"github.com/article-live-api/internal/application/push"
	"github.com/article-live-api/internal/config"
	"github.com/article-live-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/article-live-api/internal/infrastructure/jwt"
	snsinfra "github.com/article-live-api/internal/infrastructure/sns"
	webpushinfra "github.com/article-live-api/internal/infrastructure/webpush"
	"github.com/article-live-api/internal/pkg/bus"
	"github.com/article-live-api/internal/pkg/retry"
	transporthttp "github.com/article-live-api/internal/transport/http"
	"github.com/article-live-api/internal/transport/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist). Retried
	// because LocalStack and fresh instances come up slower than we do.
	dynamoClient := dynamo.NewClient(cfg)
	err := retry.Do(context.Background(), cfg.BootstrapAttempts, 2*time.Second,
		func(ctx context.Context) error {
			return dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
		})
	if err != nil {
		log.Fatalf("dynamo bootstrap: %v", err)
	}

	// JWT provider is optional; without a key the API runs unauthenticated.
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	articleRepo := dynamo.NewArticleRepo(dynamoClient, cfg.DynamoTables.Articles)
	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	subRepo := dynamo.NewSubscriptionRepo(dynamoClient, cfg.DynamoTables.Subscriptions)

	articleSvc := article.NewService(article.ServiceDeps{
		ArticleRepo: articleRepo,
		UserRepo:    userRepo,
	})

	// Push transports, each optional.
	var webpushSender, snsSender push.Sender
	if s, err := webpushinfra.NewSender(cfg); err == nil {
		webpushSender = s
	} else {
		log.Printf("WARN: web push sender not available: %v", err)
	}
	if s, err := snsinfra.NewSender(cfg); err == nil {
		snsSender = s
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	events := bus.New()
	fanout := push.NewFanout(push.FanoutDeps{
		SubscriptionRepo: subRepo,
		Users:            userRepo,
		WebPush:          webpushSender,
		SNS:              snsSender,
	})
	worker := push.NewWorker(events.Subscribe(), fanout)
	worker.Start()

	gateway := ws.New(articleSvc, events, cfg.AllowedOrigins)
	gateway.Start()

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		ArticleSvc:       articleSvc,
		SubscriptionRepo: subRepo,
		Gateway:          gateway,
		JWTProvider:      jwtProvider,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	gateway.Stop()
	events.Close()
	worker.Stop()
	log.Println("Server stopped")
}
