package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// EmbedResult represents the embedding pass API response.
type EmbedResult struct {
	Processed int      `json:"processed"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors"`
}

// EmbedCmd creates the embed command.
func EmbedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Trigger an embedding pass",
		Long:  "Asks the server to embed all documents that changed since their last pass. Requires the embed secret.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runEmbed(cmd, outputJSON)
		},
	}

	return cmd
}

func runEmbed(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	var result EmbedResult
	if err := api.PostSecret("/embed", nil, &result); err != nil {
		return err
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Embedded %d of %d documents\n", result.Processed, result.Total)
	for _, e := range result.Errors {
		fmt.Printf("  error: %s\n", e)
	}

	return nil
}
