package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// AskRequest represents the agent ask API request.
type AskRequest struct {
	Message string `json:"message"`
}

// AskSource is one grounding source returned alongside an answer.
type AskSource struct {
	SourceType string    `json:"source_type"`
	Title      string    `json:"title"`
	Snippet    string    `json:"snippet"`
	UpdatedAt  time.Time `json:"updated_at"`
	DocID      string    `json:"doc_id"`
	ChunkIndex int       `json:"chunk_index"`
}

// AskResponse represents the agent ask API response.
type AskResponse struct {
	Answer    string      `json:"answer"`
	Sources   []AskSource `json:"sources"`
	Remaining int         `json:"remaining"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask the portfolio agent a question",
		Long:  "Sends a question to the agent and prints the grounded answer.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, strings.Join(args, " "), outputJSON)
		},
	}

	return cmd
}

func runAsk(cmd *cobra.Command, message string, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	var resp AskResponse
	if err := api.Post("/agent", AskRequest{Message: message}, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("daily quota exceeded: %s", apiErr.Message)
		}
		return err
	}

	if outputJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(resp.Answer)

	if len(resp.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range resp.Sources {
			fmt.Printf("  [%d] %s (%s, updated %s)\n", i+1, src.Title, src.SourceType, src.UpdatedAt.Format("2006-01-02"))
		}
	}

	if resp.Remaining >= 0 {
		fmt.Printf("\nRemaining today: %d\n", resp.Remaining)
	}

	return nil
}
