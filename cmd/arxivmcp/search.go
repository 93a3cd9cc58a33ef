package main

import (
	"fmt"

	"arxivmcp/internal/arxiv"
	"arxivmcp/internal/ui"

	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		q      arxiv.Query
		sort   string
		width  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the arXiv catalogue",
		Long: `Search the arXiv catalogue.

Plain words must all match. Queries using arXiv field syntax such as
"au:hinton AND ti:capsule" are passed through unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Text = args[0]
			q.SortBy = arxiv.SortBy(sort)
			if q.MaxResults <= 0 || q.MaxResults > a.cfg.MaxResults {
				q.MaxResults = a.cfg.MaxResults
			}

			res, err := a.client.Search(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.SearchResults(res.TotalResults, res.Papers, width))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.IntVarP(&q.MaxResults, "max", "n", 10, "maximum number of results (capped by max_results)")
	fl.IntVar(&q.Start, "start", 0, "offset of the first result")
	fl.StringSliceVar(&q.Categories, "category", nil, "restrict to arXiv `categories` (e.g. cs.LG)")
	fl.StringVar(&q.DateFrom, "from", "", "earliest submission `date` (YYYY-MM-DD)")
	fl.StringVar(&q.DateTo, "to", "", "latest submission `date` (YYYY-MM-DD)")
	fl.StringVar(&sort, "sort", string(arxiv.SortRelevance), "sort order: relevance, lastUpdatedDate or submittedDate")
	fl.IntVar(&width, "width", ui.DefaultWrapWidth, "wrap abstracts at this many columns")
	fl.BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}
