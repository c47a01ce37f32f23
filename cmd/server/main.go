package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-access-service/internal/auth"
	"github.com/iliyamo/user-access-service/internal/config"
	"github.com/iliyamo/user-access-service/internal/database"
	"github.com/iliyamo/user-access-service/internal/handler"
	"github.com/iliyamo/user-access-service/internal/queue"
	"github.com/iliyamo/user-access-service/internal/repository"
	"github.com/iliyamo/user-access-service/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database open: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("database schema: %v", err)
	}
	cancel()

	// Redis is optional; nil degrades the token registry to DB-only lookups.
	cache := config.NewRedisClient()
	if cache == nil {
		log.Print("redis unavailable, token registry runs without cache")
	}

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	tokens := repository.NewTokenRepo(db, cache)

	codec := auth.NewTokenCodec(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.TokenTTLMin)*time.Minute)
	authenticator := auth.NewAuthenticator(codec, tokens, users)
	sessions, err := auth.NewSessionManager(codec, users, roles, tokens, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("session manager: %v", err)
	}
	authorizer := auth.NewAuthorizer(roles)

	authHandler := handler.NewAuthHandler(sessions, roles)
	authHandler.Events = queue.PublishAuthEvent
	userHandler := handler.NewUserHandler(cfg, users, roles, authorizer)
	userHandler.Events = queue.PublishAuthEvent
	userRoleHandler := handler.NewUserRoleHandler(users, roles)

	// Audit trail consumer; keeps reconnecting on broker trouble.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, authenticator)
	router.RegisterUsers(e, userHandler, authenticator, authorizer)
	router.RegisterUserRoles(e, userRoleHandler, authenticator, authorizer)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
