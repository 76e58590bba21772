package commands

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/adforge/creative-engine-go/internal/infrastructure/store"
)

// DoctorCmd checks the environment and the configured backend.
var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment and store connectivity",
	Long:  `Run diagnostic checks: environment configuration, store backend reachability, and credential setup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		godotenv.Load()

		fmt.Printf("creative-engine doctor\n\n")
		fmt.Printf("Go runtime:   %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

		cfg := store.ConfigFromEnv()
		fmt.Printf("Store:        %s\n", cfg.Backend)
		if cfg.Backend == store.BackendSQLite {
			fmt.Printf("SQLite path:  %s\n", cfg.SQLitePath)
		}
		if cfg.Backend == store.BackendPostgres {
			fmt.Printf("Postgres:     %s@%s:%d/%s\n", cfg.PGUser, cfg.PGHost, cfg.PGPort, cfg.PGDatabase)
		}

		failures := 0

		st, err := store.Open(cfg)
		if err != nil {
			fmt.Printf("  [FAIL] open store: %v\n", err)
			failures++
		} else if err := st.Init(cmd.Context()); err != nil {
			fmt.Printf("  [FAIL] connect store: %v\n", err)
			failures++
		} else {
			stats, err := st.Stats(cmd.Context())
			if err != nil {
				fmt.Printf("  [FAIL] read store stats: %v\n", err)
				failures++
			} else {
				fmt.Printf("  [OK]   store reachable (%d creatives, %d genomes)\n", stats.Creatives, stats.Genomes)
			}
			st.Close()
		}

		if os.Getenv("CE_API_KEYS") == "" && os.Getenv("CE_HMAC_SECRET") == "" {
			fmt.Println("  [WARN] no CE_API_KEYS or CE_HMAC_SECRET set; the API will reject every request")
		} else {
			fmt.Println("  [OK]   credentials configured")
		}

		if failures > 0 {
			return fmt.Errorf("%d check(s) failed", failures)
		}
		fmt.Println("\nAll checks passed")
		return nil
	},
}
