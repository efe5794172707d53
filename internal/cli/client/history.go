package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// HistoryMessage is one message in the caller's chat history.
type HistoryMessage struct {
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	Sources   []AskSource `json:"sources"`
	CreatedAt string      `json:"created_at"`
}

// HistoryCmd creates the history command.
func HistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent chat history",
		Long:  "Prints the caller's recent conversation with the agent, oldest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runHistory(cmd, outputJSON)
		},
	}

	return cmd
}

func runHistory(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	var messages []HistoryMessage
	if err := api.Get("/agent/history", &messages); err != nil {
		return err
	}

	if outputJSON {
		output, _ := json.MarshalIndent(messages, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(messages) == 0 {
		fmt.Println("No history yet.")
		return nil
	}

	for _, m := range messages {
		fmt.Printf("[%s] %s\n%s\n\n", m.CreatedAt, m.Role, m.Content)
	}

	return nil
}
