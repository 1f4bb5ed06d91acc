package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/hupe1980/sketchtree"
	"github.com/hupe1980/sketchtree/sbt"
	"github.com/hupe1980/sketchtree/sketch"
	"github.com/spf13/cobra"
)

// result is one search hit as printed and served.
type result struct {
	Name       string  `json:"name"`
	Filename   string  `json:"filename,omitempty"`
	Similarity float64 `json:"similarity"`
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		threshold float64
		ksize     uint32
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "search <sbt-path> <query-signature>",
		Short: "Find indexed sketches similar to a query",
		Long: `Search a saved tree for every sketch whose similarity to the query reaches
the threshold. Results are printed best first.

Examples:
  sketchtree search genomes.sbt.json query.sig
  sketchtree search --threshold 0.5 --json genomes.sbt.json query.sig`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threshold") {
				threshold = a.cfg.Search.Threshold
			}
			return a.runSearch(cmd.Context(), args[0], args[1], threshold, ksize, asJSON)
		},
	}
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0.1, "minimum similarity")
	cmd.Flags().Uint32VarP(&ksize, "ksize", "k", 0, "k-mer size of the query sketch to use")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func (a *app) runSearch(ctx context.Context, treePath, queryPath string, threshold float64, ksize uint32, asJSON bool) error {
	query, err := readQuery(queryPath, ksize)
	if err != nil {
		return err
	}

	tree, closeStore, err := a.loadTree(ctx, treePath)
	if err != nil {
		return err
	}
	defer closeStore()

	results, err := search(ctx, tree, query, threshold, sketchtree.WithLogger(a.logger))
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	fmt.Fprintf(a.out, "%d matches above %.3f\n", len(results), threshold)
	for _, r := range results {
		fmt.Fprintf(a.out, "%6.1f%%  %s\n", r.Similarity*100, r.Name)
	}
	return nil
}

// search collects every match, best first.
func search(ctx context.Context, tree *sbt.Tree, query *sketch.Sketch, threshold float64, opts ...sketchtree.Option) ([]result, error) {
	results := []result{}
	for m, err := range sketchtree.Search(ctx, tree, query, threshold, opts...) {
		if err != nil {
			return nil, err
		}
		results = append(results, result{
			Name:       m.Sketch.Name(),
			Filename:   m.Sketch.Filename(),
			Similarity: m.Similarity,
		})
	}
	slices.SortFunc(results, func(x, y result) int {
		if c := cmp.Compare(y.Similarity, x.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(x.Name, y.Name)
	})
	return results, nil
}

// readQuery returns the first sketch in path, or the first with the given
// k-mer size.
func readQuery(path string, ksize uint32) (*sketch.Sketch, error) {
	sketches, err := readSketches(path)
	if err != nil {
		return nil, err
	}
	for _, s := range sketches {
		if ksize == 0 || s.KSize() == ksize {
			return s, nil
		}
	}
	if ksize == 0 {
		return nil, errors.New(path + ": no sketches")
	}
	return nil, fmt.Errorf("%s: no sketch with ksize %d", path, ksize)
}
