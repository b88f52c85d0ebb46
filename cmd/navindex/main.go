// Package main provides the navindex CLI for building and querying the index.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/navindex/internal/config"
	"github.com/mike-a-ellis/navindex/internal/index"
	"github.com/mike-a-ellis/navindex/internal/search"
)

var (
	configPath string
	verbose    bool

	searchLimit  int
	searchFilter string
	searchJSON   bool
)

var rootCmd = &cobra.Command{
	Use:   "navindex",
	Short: "Semantic navigation index for code locations and protocol docs",
	Long: `CLI tool for building and querying the "code" and "wsp" collections.

Environment variables:
  NAVINDEX_PROJECT_ROOT  Project root (default: .)
  NAVINDEX_INDEX_DIR     Directory of the summary cache (default: .navindex)
  NAVINDEX_NAV_FILE      Need-to-location mapping (default: navigation.yaml)
  NAVINDEX_STORE         qdrant or memory (default: qdrant)
  QDRANT_HOST            Qdrant hostname (default: localhost)
  QDRANT_PORT            Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY         OpenAI API key for embeddings (optional; zero vectors without it)`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search both collections",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var indexCodeCmd = &cobra.Command{
	Use:   "index-code",
	Short: "Rebuild the code collection from the navigation file",
	RunE:  runIndexCode,
}

var indexDocsCmd = &cobra.Command{
	Use:   "index-docs [dir...]",
	Short: "Rebuild the wsp collection from markdown files",
	Long: `Scans the given directories (or the configured doc_roots) for markdown files
and replaces the wsp collection. The summary cache is rewritten only after the
new collection is in place; when no document is found nothing is changed.`,
	RunE: runIndexDocs,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection sizes",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: navindex.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", search.DefaultLimit, "maximum results per collection")
	searchCmd.Flags().StringVarP(&searchFilter, "filter", "f", search.FilterAll, "all, code, wsp or a document type")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the raw response as JSON")

	rootCmd.AddCommand(searchCmd, indexCodeCmd, indexDocsCmd, statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func open(ctx context.Context) (*search.Facade, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	facade, store, err := search.Open(ctx, cfg, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	return facade, func() { store.Close() }, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	facade, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	resp := facade.Search(ctx, args[0], searchLimit, searchFilter)
	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.Metadata.Error != "" {
		return fmt.Errorf("search failed: %s", resp.Metadata.Error)
	}

	if len(resp.Code) > 0 {
		fmt.Println("Code:")
		for _, c := range resp.Code {
			fmt.Printf("  [%s] %s\n", c.Confidence, c.Need)
			fmt.Printf("      %s\n", c.Location)
			if c.Preview != "" {
				fmt.Println(indent(c.Preview, "      | "))
			}
		}
	}
	if len(resp.Docs) > 0 {
		if len(resp.Code) > 0 {
			fmt.Println()
		}
		fmt.Println("Docs:")
		for _, d := range resp.Docs {
			fmt.Printf("  [%s] %s  %s (%s, priority %d)\n", d.Confidence, d.WSPID, d.Title, d.DocType, d.Priority)
			fmt.Printf("      %s\n", d.Path)
		}
	}
	if len(resp.Code) == 0 && len(resp.Docs) == 0 {
		fmt.Println("No matching entries found.")
	}
	return nil
}

func runIndexCode(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	facade, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Println("Indexing code entries...")
	result, err := facade.IndexCodeEntries(ctx)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	printResult(result)
	return nil
}

func runIndexDocs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	facade, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Println("Indexing documents...")
	result, err := facade.IndexWSPEntries(ctx, args...)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	printResult(result)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	facade, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	status, err := facade.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  code: %d entries\n", status.Collections["code"])
	fmt.Printf("  wsp:  %d entries\n", status.Collections["wsp"])
	fmt.Printf("  summary cache: %d entries (%s)\n", status.SummaryCacheEntries, status.SummaryCachePath)
	if status.Error != "" {
		fmt.Printf("  warning: %s\n", status.Error)
	}
	return nil
}

func printResult(result *index.BuildResult) {
	fmt.Println()
	if result.Entries == 0 {
		fmt.Printf("Nothing indexed; %s collection left unchanged.\n", result.Collection)
	} else {
		fmt.Println("Index complete!")
		fmt.Printf("  Collection: %s\n", result.Collection)
		fmt.Printf("  Entries: %d\n", result.Entries)
		fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	}

	if len(result.Skipped) > 0 {
		fmt.Println()
		fmt.Println("Skipped files:")
		for _, s := range result.Skipped {
			fmt.Printf("  - %s: %s\n", s.Path, s.Reason)
		}
	}
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
