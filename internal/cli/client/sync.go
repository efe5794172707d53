package client

import (
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

// SyncRequest represents the knowledge sync API request.
type SyncRequest struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	OwnerID    string `json:"owner_id"`
}

// SyncCmd creates the sync command group.
func SyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage knowledge documents",
		Long:  "Push or remove knowledge documents on the server. Requires the embed secret.",
	}

	cmd.AddCommand(syncPushCmd())
	cmd.AddCommand(syncDeleteCmd())

	return cmd
}

func syncPushCmd() *cobra.Command {
	var (
		title   string
		ownerID string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "push <source-type> <source-id>",
		Short: "Create or update a knowledge document",
		Long:  "Upserts a knowledge document. Content is read from --file, or from stdin when --file is omitted.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(file)
			if err != nil {
				return err
			}
			return runSyncPush(cmd, SyncRequest{
				SourceType: args[0],
				SourceID:   args[1],
				Title:      title,
				Content:    content,
				OwnerID:    ownerID,
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title")
	cmd.Flags().StringVar(&ownerID, "owner", "", "Owner identifier")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read content from file instead of stdin")

	return cmd
}

func syncDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <source-type> <source-id>",
		Short: "Delete a knowledge document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncDelete(cmd, args[0], args[1])
		},
	}

	return cmd
}

func runSyncPush(cmd *cobra.Command, req SyncRequest) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	if err := api.PostSecret("/sync", req, nil); err != nil {
		return err
	}

	fmt.Printf("Synced %s/%s\n", req.SourceType, req.SourceID)
	return nil
}

func runSyncDelete(cmd *cobra.Command, sourceType, sourceID string) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/sync?source_type=%s&source_id=%s",
		url.QueryEscape(sourceType), url.QueryEscape(sourceID))
	if err := api.DeleteSecret(path); err != nil {
		return err
	}

	fmt.Printf("Deleted %s/%s\n", sourceType, sourceID)
	return nil
}

func readContent(file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read content file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
