package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookloan-backend/internal/users"
	pkgAuth "github.com/angelmondragon/bookloan-backend/pkg/auth"
	"github.com/angelmondragon/bookloan-backend/pkg/auth/session"
	"github.com/angelmondragon/bookloan-backend/pkg/config"
	"github.com/angelmondragon/bookloan-backend/pkg/db"
	"github.com/angelmondragon/bookloan-backend/pkg/enums"
	"github.com/angelmondragon/bookloan-backend/pkg/logger"
	"github.com/angelmondragon/bookloan-backend/pkg/redis"
)

// issue-token finds or creates a user and prints a bearer token backed by a live
// access session. Refused outside dev.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "issue-token"})

	_ = godotenv.Load()

	email := flag.String("email", "", "user email (required)")
	name := flag.String("name", "", "display name used when the user is created")
	role := flag.String("role", string(enums.RoleUser), "role used when the user is created: admin|user")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "missing -email")
		os.Exit(1)
	}
	parsedRole, err := enums.ParseRole(*role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -role: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	if !cfg.App.IsDev() {
		fmt.Fprintln(os.Stderr, "issue-token only runs with BOOKLOAN_APP_ENV=dev")
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "issue-token",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      logger.FormatConsole,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	manager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	repo := users.NewRepository(dbClient.DB())
	user, err := repo.FindByEmail(ctx, *email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		displayName := *name
		if displayName == "" {
			displayName = *email
		}
		user, err = repo.Create(ctx, users.CreateUserDTO{Name: displayName, Email: *email, Role: parsedRole})
		if err == nil {
			logg.Info(logg.WithUserID(ctx, user.ID.String()), "user created")
		}
	}
	requireResource(ctx, logg, "user", err)

	accessID := session.NewAccessID()
	requireResource(ctx, logg, "session", manager.Open(ctx, accessID, user.ID))

	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	requireResource(ctx, logg, "token", err)

	fmt.Println(token)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
