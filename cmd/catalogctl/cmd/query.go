package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/executor"
)

func newQueryCmd(opts *options) *cobra.Command {
	var (
		k          int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "query <text>...",
		Short: "Rank the documents of an index file against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if k < 0 {
				return fmt.Errorf("--k must not be negative, got %d", k)
			}
			idx, err := segment.Load(opts.indexPath)
			if err != nil {
				return err
			}
			exec := executor.New(opts.cfg.Search.QueryTimeout)
			if err := exec.Publish(idx); err != nil {
				return err
			}
			plan, err := exec.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}
			res, err := exec.Execute(cmd.Context(), plan, k)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if len(res.Results) == 0 {
				fmt.Fprintln(out, "no matching documents")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tSCORE\tDOCUMENT")
			for i, d := range res.Results {
				fmt.Fprintf(tw, "%d\t%.6f\t%s\n", i+1, d.Score, d.DocID)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d of %d matching documents\n", len(res.Results), res.TotalHits)
			return nil
		},
	}
	cmd.Flags().IntVar(&k, "k", 10, "number of results (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	return cmd
}
