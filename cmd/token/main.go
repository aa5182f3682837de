// Command token mints an access token signed with the configured secret.
// Operators use it to bootstrap the first admin before any API key exists.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abduss/mediahost/internal/auth"
	"github.com/abduss/mediahost/internal/config"
	"github.com/abduss/mediahost/internal/logger"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	subject := flag.String("user", "", "user id placed in the sub claim (random when empty)")
	email := flag.String("email", "", "email claim")
	admin := flag.Bool("admin", false, "grant admin routes")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	log, err := logger.Init()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	userID := uuid.New()
	if *subject != "" {
		if userID, err = uuid.Parse(*subject); err != nil {
			log.Fatal("parse user id", zap.Error(err))
		}
	}
	if *ttl <= 0 {
		log.Fatal("ttl must be positive", zap.Duration("ttl", *ttl))
	}

	// Minting never touches the key store.
	service := auth.NewService(nil, cfg.Auth)
	token, expiresAt, err := service.IssueAccessToken(userID, *email, *admin, *ttl)
	if err != nil {
		log.Fatal("sign token", zap.Error(err))
	}

	log.Info("token issued",
		zap.String("user_id", userID.String()),
		zap.Bool("admin", *admin),
		zap.Time("expires_at", expiresAt),
	)
	fmt.Fprintln(os.Stdout, token)
}
