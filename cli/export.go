// Conversation export to markdown and JSON files.

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/richinex/convostore/internal/jsonx"
	"github.com/richinex/convostore/manager"
	"github.com/richinex/convostore/record"
)

// ExportOptions configures conversation export.
type ExportOptions struct {
	// Format is "markdown" or "json".
	Format string

	// OutputDir is where the file is written. Defaults to the current
	// working directory.
	OutputDir string
}

// Export writes one conversation to a file and prints the output path.
func Export(ctx context.Context, idPrefix string, exportOpts ExportOptions, opts Options) error {
	store, cleanup, err := openStore(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := resolveID(ctx, store, idPrefix)
	if err != nil {
		return err
	}

	mgr := manager.NewManager(store)
	rec, err := mgr.LoadConversation(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("conversation %q not found", id)
	}

	var content []byte
	var ext string
	switch strings.ToLower(exportOpts.Format) {
	case "", "markdown", "md":
		content = []byte(renderMarkdown(rec))
		ext = ".md"
	case "json":
		content, err = jsonx.MarshalIndented(rec)
		if err != nil {
			return fmt.Errorf("failed to encode conversation: %w", err)
		}
		ext = ".json"
	default:
		return fmt.Errorf("unknown export format: %q", exportOpts.Format)
	}

	outDir := exportOpts.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := fmt.Sprintf("conversation_%s_%s%s",
		sanitizeFilename(rec.Title),
		time.Now().Format("20060102_150405"),
		ext)
	outputPath := filepath.Join(outDir, filename)

	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	fmt.Printf("Exported to %s\n", outputPath)
	return nil
}

// renderMarkdown builds a markdown document for one conversation.
func renderMarkdown(rec *record.Record) string {
	var sb strings.Builder

	title := rec.Title
	if title == "" {
		title = rec.ID
	}
	sb.WriteString("# " + title + "\n\n")
	sb.WriteString(fmt.Sprintf("- id: `%s`\n", rec.ID))
	sb.WriteString(fmt.Sprintf("- created: %s\n", formatMillis(rec.Timestamp)))
	sb.WriteString(fmt.Sprintf("- updated: %s\n", formatMillis(rec.LastUpdated)))
	sb.WriteString(fmt.Sprintf("- messages: %d\n", rec.MessageCount()))
	if len(rec.Metadata.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("- tags: %s\n", strings.Join(rec.Metadata.Tags, ", ")))
	}
	sb.WriteString("\n")

	for _, msg := range rec.Messages {
		switch msg.Role {
		case record.RoleUser:
			sb.WriteString("## User\n\n")
		case record.RoleModel:
			sb.WriteString("## Model\n\n")
		default:
			sb.WriteString(fmt.Sprintf("## %s\n\n", msg.Role))
		}
		sb.WriteString(msg.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// maxFilenameLen caps the title-derived part of export filenames.
const maxFilenameLen = 40

// sanitizeFilename converts a title into a safe filename fragment.
func sanitizeFilename(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			sb.WriteByte('_')
		}
	}
	out := strings.Trim(sb.String(), "_")
	if out == "" {
		return "untitled"
	}
	runes := []rune(out)
	if len(runes) > maxFilenameLen {
		out = string(runes[:maxFilenameLen])
	}
	return out
}
