package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List configured apps",
	Args:  cobra.NoArgs,
	RunE:  runApps,
}

func init() {
	rootCmd.AddCommand(appsCmd)
}

func runApps(cmd *cobra.Command, _ []string) error {
	if configResolver == nil {
		return errors.New("config not loaded")
	}

	ids := configResolver.AppIDs()
	if len(ids) == 0 {
		cmd.Println("No apps configured.")
		return nil
	}

	for _, id := range ids {
		app, err := configResolver.AppConfig(id)
		if err != nil {
			return err
		}
		mode := "live"
		if app.Fake {
			mode = "fake"
		}
		cmd.Printf("%-8s %-5s client=%s timeout=%s rate=%.1f/s burst=%d\n",
			id, mode, maskClientID(app.ClientID), app.Timeout, app.RateLimit.RequestsPerSecond, app.RateLimit.Burst)
	}

	if apiCatalog != nil {
		if apis := apiCatalog(); len(apis) > 0 {
			cmd.Printf("\nAPIs: %s\n", strings.Join(apis, ", "))
		}
	}
	return nil
}

func maskClientID(id string) string {
	if id == "" {
		return "(not set)"
	}
	if len(id) <= 8 {
		return "****"
	}
	return id[:4] + "..." + id[len(id)-4:]
}
