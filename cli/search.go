package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meghashyamc/foliosearch/content"
	"github.com/meghashyamc/foliosearch/logger"
	"github.com/meghashyamc/foliosearch/services/search"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	types      []string
	categories []string
	tags       []string
	status     []string
	dateFrom   string
	dateTo     string
	sort       string
	limit      int
	offset     int
	json       bool
}

func newSearchCommand(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search posts and projects",
		Long: `Indexes the content directory and runs a single search against it.
Without a query every item matching the filters is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, root, opts, args)
		},
	}

	flags := searchCmd.Flags()
	flags.StringSliceVar(&opts.types, "type", nil, "item types to include (post, project)")
	flags.StringSliceVar(&opts.categories, "category", nil, "categories to include")
	flags.StringSliceVar(&opts.tags, "tags", nil, "tags to include, any of them matches")
	flags.StringSliceVar(&opts.status, "status", nil, "project statuses to include, or all")
	flags.StringVar(&opts.dateFrom, "date-from", "", "earliest date to include")
	flags.StringVar(&opts.dateTo, "date-to", "", "latest date to include")
	flags.StringVar(&opts.sort, "sort", string(search.SortRelevance), "sort order: relevance, date or title")
	flags.IntVarP(&opts.limit, "limit", "n", 10, "maximum number of results")
	flags.IntVar(&opts.offset, "offset", 0, "number of results to skip")
	flags.BoolVar(&opts.json, "json", false, "output results as JSON")

	return searchCmd
}

func (o *searchOptions) params(query string) (search.Params, error) {
	sortMode := search.SortMode(o.sort)
	switch sortMode {
	case search.SortRelevance, search.SortDate, search.SortTitle:
	default:
		return search.Params{}, fmt.Errorf("invalid sort %q, expected relevance, date or title", o.sort)
	}

	filters := search.Filters{
		Categories: o.categories,
		Tags:       o.tags,
		Status:     o.status,
		DateFrom:   o.dateFrom,
		DateTo:     o.dateTo,
	}
	for _, itemType := range o.types {
		switch search.ItemType(itemType) {
		case search.TypePost, search.TypeProject:
			filters.Types = append(filters.Types, search.ItemType(itemType))
		default:
			return search.Params{}, fmt.Errorf("invalid type %q, expected post or project", itemType)
		}
	}

	return search.Params{
		Query:   query,
		Filters: filters,
		Sort:    sortMode,
		Limit:   o.limit,
		Offset:  o.offset,
	}, nil
}

func runSearch(cmd *cobra.Command, root *rootOptions, opts *searchOptions, args []string) error {
	query := ""
	if len(args) > 0 {
		query = args[0]
	}

	params, err := opts.params(query)
	if err != nil {
		return err
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	log := logger.New(cfg.GetLogLevel())
	engine := search.New(log)
	if err := engine.Rebuild(cmd.Context(), content.NewLoader(log, cfg.GetContentDir())); err != nil {
		return err
	}

	results := engine.Search(params)

	if opts.json {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []search.Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []search.Result) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, result := range results {
		cmd.Printf("  [%d] %s (%s, %.2f)\n", i+1, result.Title, result.Type, result.Score)
		if details := resultDetails(result); details != "" {
			cmd.Printf("      %s\n", details)
		}
		if snippet := result.Highlights["content"]; snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}

	return nil
}

func resultDetails(result search.Result) string {
	var details []string
	if result.Date != "" {
		details = append(details, result.Date)
	}
	if result.Category != "" {
		details = append(details, result.Category)
	}
	if result.Status != "" {
		details = append(details, result.Status)
	}
	if len(result.Tags) > 0 {
		details = append(details, "#"+strings.Join(result.Tags, " #"))
	}
	return strings.Join(details, " · ")
}
