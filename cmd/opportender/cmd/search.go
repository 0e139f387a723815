package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kpant2190/Opportender-Backend/internal/store"
)

var (
	searchLimit  int
	searchFormat string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored tenders",
	Long: `Search stored tenders across title, description, buyer, and category.

Examples:
  # Basic search
  opportender search "managed services"

  # Limit results
  opportender search "cloud migration" --limit 5

  # JSON output for scripting
  opportender search "cybersecurity" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := args[0]
	cfg := GetConfig()

	esClient, err := store.New(store.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	tenders, err := esClient.Search(ctx, query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(tenders) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(tenders, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(tenders))
	for i, t := range tenders {
		fmt.Printf("─── Result %d ───\n", i+1)
		fmt.Printf("Title:   %s\n", t.Title)
		fmt.Printf("Buyer:   %s\n", t.Buyer)
		fmt.Printf("Portal:  %s\n", t.SourcePortal)
		if t.ClosingDate != "" {
			fmt.Printf("Closes:  %s\n", t.ClosingDate)
		}
		fmt.Printf("Link:    %s\n", t.Link)
		fmt.Printf("Hash:    %s\n", t.TenderHash)

		desc := t.Description
		if len(desc) > 500 {
			desc = desc[:500] + "..."
		}
		if desc != "" {
			fmt.Printf("Description:\n%s\n", desc)
		}
		fmt.Println()
	}

	return nil
}
