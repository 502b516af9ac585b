// Package main provides the convostore CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/convostore/cli"
)

var (
	// Global flags
	backend string
	verbose bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "convostore",
		Short: "Inspect and maintain conversation storage",
		Long: `A CLI tool for inspecting and maintaining conversation storage.

Conversations live in a versioned on-disk format; legacy records are
migrated to the current schema whenever they are loaded. Backends:
file (JSON tree with an index sidecar), sqlite, memory.`,
	}

	rootCmd.PersistentFlags().StringVarP(&backend, "backend", "b", "", "storage backend (file, sqlite, memory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show verbose output")

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(archiveCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(clearCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func opts() cli.Options {
	return cli.Options{
		Backend: backend,
		Verbose: verbose,
	}
}

func listCmd() *cobra.Command {
	var includeArchived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.List(context.Background(), includeArchived, opts())
		},
	}

	cmd.Flags().BoolVarP(&includeArchived, "all", "a", false, "include archived conversations")

	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print one conversation in full",
		Long: `Print one conversation in full. The id may be a unique prefix;
legacy records encountered here are upgraded in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Show(context.Background(), args[0], opts())
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [pattern]",
		Short: "Search message text across all conversations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Search(context.Background(), args[0], opts())
		},
	}
}

func exportCmd() *cobra.Command {
	var format string
	var outDir string

	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export a conversation to markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportOpts := cli.ExportOptions{
				Format:    format,
				OutputDir: outDir,
			}
			return cli.Export(context.Background(), args[0], exportOpts, opts())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "export format (markdown, json)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: current directory)")

	return cmd
}

func migrateCmd() *cobra.Command {
	var rebuildIndex bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade every stored conversation to the current schema",
		Long: `Load every stored conversation, which migrates legacy records and
persists them back in the current schema. Conversations that cannot be
parsed are reported and left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Migrate(context.Background(), rebuildIndex, opts())
		},
	}

	cmd.Flags().BoolVar(&rebuildIndex, "rebuild-index", false, "reconstruct the index from a content scan first (file backend)")

	return cmd
}

func archiveCmd() *cobra.Command {
	var unarchive bool

	cmd := &cobra.Command{
		Use:   "archive [id]",
		Short: "Archive or unarchive a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Archive(context.Background(), args[0], !unarchive, opts())
		},
	}

	cmd.Flags().BoolVarP(&unarchive, "undo", "u", false, "unarchive instead")

	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Delete(context.Background(), args[0], opts())
		},
	}
}

func clearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Clear(context.Background(), force, opts())
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm removal of all conversations")

	return cmd
}
