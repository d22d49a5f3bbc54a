package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/felixgeelhaar/tasklist/pkg/observability"
	"github.com/spf13/cobra"
)

var healthRegistry *observability.HealthRegistry

// SetHealthRegistry sets the checks reported by `tasklist health`.
func SetHealthRegistry(r *observability.HealthRegistry) {
	healthRegistry = r
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity to the database, lock backend and broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if GetApp() == nil || healthRegistry == nil {
			return ErrNotInitialized
		}

		overall := healthRegistry.GetOverallHealth(cmd.Context())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "status: %s\n", overall.Status)
		for _, name := range slices.Sorted(maps.Keys(overall.Checks)) {
			result := overall.Checks[name]
			line := fmt.Sprintf("  %-10s %s", name, result.Status)
			if result.Message != "" {
				line += " (" + result.Message + ")"
			}
			fmt.Fprintln(out, line)
		}
		if overall.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
