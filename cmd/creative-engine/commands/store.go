package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// StoreCmd is the parent command for store administration.
var StoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Store administration",
	Long: `Commands for administering the backing store.

The store holds creatives, genomes, regret memory, and mutation events
in SQLite, PostgreSQL, or memory depending on CE_STORE.`,
}

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Println("Store schema ready")
		return nil
	},
}

var storeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "creatives\t%d\n", stats.Creatives)
		fmt.Fprintf(w, "genomes\t%d\n", stats.Genomes)
		fmt.Fprintf(w, "regret entries\t%d\n", stats.RegretEntries)
		fmt.Fprintf(w, "mutation events\t%d\n", stats.MutationEvents)
		return w.Flush()
	},
}

func init() {
	StoreCmd.AddCommand(storeInitCmd)
	StoreCmd.AddCommand(storeStatsCmd)
}
