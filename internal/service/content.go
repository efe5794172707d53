package service

import (
	"fmt"
	"strings"
	"time"
)

// DocContent is a synthesized title and content blob for a knowledge doc.
type DocContent struct {
	Title   string
	Content string
}

// TaskCounts summarizes a project's tasks by status.
type TaskCounts struct {
	Todo       int
	InProgress int
	Done       int
}

func (t TaskCounts) total() int {
	return t.Todo + t.InProgress + t.Done
}

// ProjectContent builds the canonical text for a project entity. The line
// formats are fixed: the content hash of this output drives re-embedding, so
// any format change deliberately invalidates every project doc.
func ProjectContent(title, categoryName, description string, updatedAt time.Time, tasks *TaskCounts) DocContent {
	lines := []string{
		fmt.Sprintf("Project: %s", title),
		fmt.Sprintf("Category: %s", categoryName),
		fmt.Sprintf("Description: %s", description),
	}
	if tasks != nil {
		lines = append(lines, fmt.Sprintf(
			"Tasks: %d total (%d to-do, %d in progress, %d done)",
			tasks.total(), tasks.Todo, tasks.InProgress, tasks.Done,
		))
	}
	lines = append(lines, fmt.Sprintf("Updated: %s", formatUpdatedAt(updatedAt)))

	return DocContent{
		Title:   fmt.Sprintf("Project: %s", title),
		Content: strings.Join(lines, "\n"),
	}
}

// TaskContent builds the canonical text for a task entity.
func TaskContent(title, projectTitle, status string, updatedAt time.Time) DocContent {
	lines := []string{
		fmt.Sprintf("Task: %s", title),
		fmt.Sprintf("Project: %s", projectTitle),
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("Updated: %s", formatUpdatedAt(updatedAt)),
	}

	return DocContent{
		Title:   fmt.Sprintf("Task: %s", title),
		Content: strings.Join(lines, "\n"),
	}
}

// NoteContent builds the canonical text for a task note.
func NoteContent(taskTitle, projectTitle, body string, updatedAt time.Time) DocContent {
	lines := []string{
		fmt.Sprintf("Note for Task: %s", taskTitle),
		fmt.Sprintf("Project: %s", projectTitle),
		fmt.Sprintf("Body: %s", body),
		fmt.Sprintf("Updated: %s", formatUpdatedAt(updatedAt)),
	}

	return DocContent{
		Title:   fmt.Sprintf("Note (Task: %s)", taskTitle),
		Content: strings.Join(lines, "\n"),
	}
}

func formatUpdatedAt(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
