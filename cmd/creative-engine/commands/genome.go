// Package commands provides CLI command implementations.
package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/adforge/creative-engine-go/internal/infrastructure/store"
)

// Genome command flags
var (
	genomeShowUser    string
	genomeEntropyUser string
)

// GenomeCmd is the parent command for genome inspection.
var GenomeCmd = &cobra.Command{
	Use:   "genome",
	Short: "Inspect per-user genomes",
	Long: `Commands for inspecting learned genomes.

The genome holds a user's learned platform and style preferences,
confidence, and entropy state.`,
}

var genomeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a user's genome as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		g, err := st.GetGenome(cmd.Context(), genomeShowUser)
		if err != nil {
			return err
		}
		if g == nil {
			fmt.Printf("No genome for user %s\n", genomeShowUser)
			return nil
		}

		output, _ := json.MarshalIndent(g, "", "  ")
		fmt.Println(string(output))
		return nil
	},
}

var genomeEntropyCmd = &cobra.Command{
	Use:   "entropy",
	Short: "Print a user's genome entropy state",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		g, err := st.GetGenome(cmd.Context(), genomeEntropyUser)
		if err != nil {
			return err
		}
		if g == nil {
			fmt.Printf("No genome for user %s\n", genomeEntropyUser)
			return nil
		}

		fmt.Printf("User:               %s\n", g.UserID)
		fmt.Printf("Entropy (bits):     %.4f\n", g.IntraGenomeEntropy)
		fmt.Printf("Normalized entropy: %.4f\n", g.LastEntropyValue)
		fmt.Printf("State:              %s\n", g.LastEntropyState)
		fmt.Printf("Style clusters:     %d\n", len(g.StyleClusters))
		return nil
	},
}

// openStore opens and initializes the env-configured store backend.
func openStore(ctx context.Context) (store.Store, error) {
	godotenv.Load()

	st, err := store.Open(store.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := st.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}

func init() {
	genomeShowCmd.Flags().StringVarP(&genomeShowUser, "user", "u", "", "user id")
	genomeShowCmd.MarkFlagRequired("user")
	genomeEntropyCmd.Flags().StringVarP(&genomeEntropyUser, "user", "u", "", "user id")
	genomeEntropyCmd.MarkFlagRequired("user")

	GenomeCmd.AddCommand(genomeShowCmd)
	GenomeCmd.AddCommand(genomeEntropyCmd)
}
