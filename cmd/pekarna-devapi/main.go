package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/pekarna/internal/config"
	"github.com/erazemk/pekarna/internal/db"
	"github.com/erazemk/pekarna/internal/devapi"
	"github.com/erazemk/pekarna/internal/logging"
	"github.com/erazemk/pekarna/internal/model"
	"github.com/erazemk/pekarna/internal/seed"
	"github.com/erazemk/pekarna/internal/store"
)

const pruneInterval = time.Hour

func main() {
	cfg, err := config.LoadDevAPI(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := logging.Setup(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", cfg.DBPath)

	if cfg.SeedPath != "" {
		f, err := seed.Load(cfg.SeedPath)
		if err != nil {
			slog.Error("failed to load seed file", "error", err)
			os.Exit(1)
		}
		if _, err := seed.Apply(ctx, database, f); err != nil {
			slog.Error("failed to apply seed file", "error", err)
			os.Exit(1)
		}
	}

	if err := ensureAdmin(ctx, database, cfg.AdminUser); err != nil {
		slog.Error("failed to create admin user", "error", err)
		os.Exit(1)
	}

	secret := cfg.TokenSecret
	if secret == "" {
		if secret, err = store.GetTokenSecret(ctx, database); err != nil {
			slog.Error("failed to get token secret", "error", err)
			os.Exit(1)
		}
	}

	go pruneTokens(ctx, database)

	handler := devapi.LoggingMiddleware(devapi.NewRouter(database, devapi.Config{
		TokenSecret:    secret,
		TokenTTL:       cfg.TokenTTL,
		AllowedOrigins: cfg.AllowedOrigins,
	}))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}

// ensureAdmin creates the admin account when the database has no users yet
// and prints its generated password.
func ensureAdmin(ctx context.Context, database *sql.DB, username string) error {
	users, err := store.ListUsers(ctx, database)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(ctx, database, username, string(hash), model.RoleAdmin); err != nil {
		return err
	}

	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password. It cannot be recovered.")
	fmt.Println()
	return nil
}

// pruneTokens drops expired revocations until ctx is done.
func pruneTokens(ctx context.Context, database *sql.DB) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PruneRevokedTokens(ctx, database, now)
			if err != nil {
				slog.Error("failed to prune revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("pruned revoked tokens", "count", n)
			}
		}
	}
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
