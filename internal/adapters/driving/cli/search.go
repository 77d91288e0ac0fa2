package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

var (
	searchMode     string
	searchLimit    int
	searchMinScore float32
	searchFields   string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the image corpus",
	Long: `Ranks every corpus image by CLIP cosine similarity to the query.

The query is free text by default. With --mode url it is fetched as an
image; with --mode image it is a base64 payload, optionally a data URI.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", string(domain.QueryModeText), "query mode: text, url or image")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().Float32Var(&searchMinScore, "min-score", 0, "similarity floor (default from config)")
	searchCmd.Flags().StringVar(&searchFields, "fields", "", "comma-separated result fields: url, score, link")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := ensureEngine(cmd); err != nil {
		return err
	}

	req := domain.SearchRequest{
		Input:  domain.QueryInput{Mode: domain.QueryMode(searchMode), Value: args[0]},
		Limit:  searchLimit,
		Fields: splitFields(searchFields),
	}
	if cmd.Flags().Changed("min-score") {
		minScore := searchMinScore
		req.MinScore = &minScore
	}

	resp, err := searchService.Search(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp, req.Fields)
	}
	outputSearchTable(cmd, resp)
	return nil
}

// ensureEngine builds the pipeline if needed and loads the corpus once.
func ensureEngine(cmd *cobra.Command) error {
	if searchService == nil {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := initPipeline(cfg); err != nil {
			return err
		}
	}
	if searchService == nil || engine == nil {
		return errors.New("search service not configured")
	}
	if engine.Stats().Loaded {
		return nil
	}
	if err := engine.Reload(cmd.Context()); err != nil {
		return fmt.Errorf("corpus not ready, run build first: %w", err)
	}
	return nil
}

func splitFields(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var fields []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse, fields []string) error {
	out := struct {
		Results  []map[string]any       `json:"results"`
		Failures []domain.RecordFailure `json:"failures,omitempty"`
	}{
		Results:  domain.Project(resp.Results, fields),
		Failures: resp.Failures,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) {
	styles := newOutputStyles(cmd.OutOrStdout())

	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
	} else {
		cmd.Println(styles.Title.Render("Results:"))
		cmd.Println()
		for i, r := range resp.Results {
			cmd.Printf("  [%d] %s  %s\n", i+1, styles.Score.Render(fmt.Sprintf("%.3f", r.Score)), r.URL)
			cmd.Printf("      %s\n", styles.Muted.Render(r.Link))
		}
	}

	for _, f := range resp.Failures {
		cmd.Println(styles.Warning.Render(fmt.Sprintf("  ! %s (%.3f): %s", f.LocalID, f.Score, f.Message)))
	}
}
