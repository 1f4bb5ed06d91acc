package main

import (
	"context"
	"fmt"

	"github.com/hupe1980/sketchtree/sbt"
	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	var listLeaves bool

	cmd := &cobra.Command{
		Use:   "info <sbt-path>",
		Short: "Describe a saved tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInfo(cmd.Context(), args[0], listLeaves)
		},
	}
	cmd.Flags().BoolVar(&listLeaves, "leaves", false, "list leaf names")
	return cmd
}

func (a *app) runInfo(ctx context.Context, path string, listLeaves bool) error {
	tree, closeStore, err := a.loadTree(ctx, path)
	if err != nil {
		return err
	}
	defer closeStore()

	f := tree.Factory()
	fmt.Fprintf(a.out, "tree:        %s\n", sbt.TreeName(path))
	fmt.Fprintf(a.out, "branching:   %d\n", tree.Branching())
	fmt.Fprintf(a.out, "filter:      %d bits, %d hashes\n", f.Size, f.NumHashes)
	fmt.Fprintf(a.out, "nodes:       %d\n", tree.NodeCount())
	fmt.Fprintf(a.out, "leaves:      %d\n", tree.Len())

	if listLeaves {
		for _, leaf := range tree.Leaves() {
			fmt.Fprintf(a.out, "  %s\n", leaf.Name())
		}
	}
	return nil
}
