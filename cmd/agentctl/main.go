package main

import (
	"fmt"
	"os"

	"github.com/gilvint/headspace-agent/internal/cli"
	"github.com/gilvint/headspace-agent/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "agentctl",
		Short: "Portfolio agent CLI",
		Long: `agentctl talks to a running agentd instance.

Environment variables:
  HSA_API_URL        API base URL (default: http://localhost:8080)
  HSA_SESSION_TOKEN  Session token for authenticated requests
  HSA_EMBED_SECRET   Shared secret for embed and sync commands`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	rootCmd.PersistentFlags().String("session-token", "", "Session token (overrides env)")
	rootCmd.PersistentFlags().String("embed-secret", "", "Embed secret (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.HistoryCmd())
	rootCmd.AddCommand(client.EmbedCmd())
	rootCmd.AddCommand(client.SyncCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
