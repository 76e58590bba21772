// Package main provides the CLI entry point for creative-engine-go.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/adforge/creative-engine-go/cmd/creative-engine/commands"
	"github.com/adforge/creative-engine-go/internal/application/learner"
	"github.com/adforge/creative-engine-go/internal/application/mutator"
	"github.com/adforge/creative-engine-go/internal/application/ranker"
	"github.com/adforge/creative-engine-go/internal/infrastructure/auth"
	"github.com/adforge/creative-engine-go/internal/infrastructure/events"
	"github.com/adforge/creative-engine-go/internal/infrastructure/httpapi"
	"github.com/adforge/creative-engine-go/internal/infrastructure/store"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "creative-engine",
	Short: "Creative Engine - ad-creative ranking, learning, and mutation",
	Long: `Creative Engine ranks ad-creative candidates, learns per-user
preference genomes from outcome reports, and proposes mutated variants.

It provides:
  - Utility ranking with hard gates and entropy guards
  - Per-user genome learning with regret memory
  - Exploit/explore/regret-avoidance mutation strategies
  - SQLite, PostgreSQL, and in-memory store backends`,
	Version: version,
}

// ============================================================================
// Serve Command
// ============================================================================

var servePort int
var serveHost string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start the JSON HTTP API serving the rank, learn, and mutate endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Optional; a missing .env is not an error.
		godotenv.Load()

		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

		st, err := store.Open(store.ConfigFromEnv())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		if err := st.Init(cmd.Context()); err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		defer st.Close()

		bus := events.New()
		defer bus.Close()
		bus.On("*", events.LogSink(logger))

		server := httpapi.NewServer(httpapi.Options{
			Ranker:    ranker.NewService(st, bus, logger),
			Learner:   learner.NewService(st, bus, logger),
			Mutator:   mutator.NewService(st, bus, logger),
			Validator: auth.NewValidator(auth.ConfigFromEnv()),
			Logger:    logger,
			Host:      serveHost,
			Port:      servePort,
		})

		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}

		fmt.Printf("Creative Engine API running on http://%s:%d\n", serveHost, servePort)
		fmt.Println("Press Ctrl+C to stop")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Println("\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Stop(ctx)
	},
}

// ============================================================================
// Key Command
// ============================================================================

var keyUser string
var keyTTL string

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Issue a signed API credential",
	Long:  `Issue an HMAC-signed API credential for a user. Requires CE_HMAC_SECRET.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		godotenv.Load()

		ttl, err := time.ParseDuration(keyTTL)
		if err != nil {
			return fmt.Errorf("invalid ttl: %w", err)
		}

		validator := auth.NewValidator(auth.ConfigFromEnv())
		credential, err := validator.SignCredential(keyUser, ttl)
		if err != nil {
			return err
		}

		fmt.Println(credential)
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", envInt("CE_HTTP_PORT", 8080), "server port")
	serveCmd.Flags().StringVar(&serveHost, "host", envOr("CE_HTTP_HOST", "localhost"), "server host")

	keyCmd.Flags().StringVarP(&keyUser, "user", "u", "", "user id the credential resolves to")
	keyCmd.Flags().StringVar(&keyTTL, "ttl", "720h", "credential lifetime")
	keyCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(commands.GenomeCmd)
	rootCmd.AddCommand(commands.StoreCmd)
	rootCmd.AddCommand(commands.DoctorCmd)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
