package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/sketchtree"
	"github.com/hupe1980/sketchtree/codec"
	"github.com/hupe1980/sketchtree/sketch"
	"github.com/spf13/cobra"
)

func newIndexCmd(a *app) *cobra.Command {
	var ksize uint32

	cmd := &cobra.Command{
		Use:   "index <sbt-name> <signature>...",
		Short: "Build a tree from signature files",
		Long: `Build a Sequence Bloom Tree from one or more signature files and save it as
<sbt-name>.sbt.json, with node and leaf data in the configured storage.

All indexed sketches must share a k-mer size. Without --ksize the size of the
first sketch read is used and other sketches are skipped.

Examples:
  sketchtree index genomes a.sig b.sig c.sig
  sketchtree index --ksize 31 genomes sigs/*.sig`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIndex(cmd.Context(), args[0], args[1:], ksize)
		},
	}
	cmd.Flags().Uint32VarP(&ksize, "ksize", "k", 0, "k-mer size of the sketches to index")
	return cmd
}

func (a *app) runIndex(ctx context.Context, name string, files []string, ksize uint32) error {
	store, closeStore, err := openStore(ctx, a.cfg.Storage, filepath.Dir(name))
	if err != nil {
		return err
	}
	defer closeStore()

	sc, err := a.cfg.Index.SketchCodec()
	if err != nil {
		return err
	}
	leafOpts := []sketchtree.Option{
		sketchtree.WithSketchCodec(sc),
		sketchtree.WithLogger(a.logger),
	}

	tree := sketchtree.CreateIndex(
		sketchtree.WithBloomFilterSize(a.cfg.Index.BloomFilterSize),
		sketchtree.WithBranchingFactor(a.cfg.Index.BranchingFactor),
	)

	indexed := 0
	for _, file := range files {
		sketches, err := readSketches(file)
		if err != nil {
			return err
		}
		for _, s := range sketches {
			if ksize == 0 {
				ksize = s.KSize()
			}
			if s.KSize() != ksize {
				a.logger.WarnContext(ctx, "skipping sketch with different k-mer size",
					"file", file, "name", s.Name(), "ksize", s.KSize(), "want", ksize)
				continue
			}

			leaf := sketchtree.NewLeaf(leafName(s, file), s, store, leafOpts...)
			leaf.SetMetadata("filename", file)
			if err := tree.Add(ctx, leaf); err != nil {
				return err
			}
			indexed++
		}
	}
	if indexed == 0 {
		return errors.New("no sketches to index")
	}

	p, err := tree.Save(ctx, name, store)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "indexed %d sketches into %s\n", indexed, p)
	return nil
}

// readSketches decodes every sketch in a signature file.
func readSketches(path string) ([]*sketch.Sketch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sketches, err := codec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sketches, nil
}

func leafName(s *sketch.Sketch, file string) string {
	switch {
	case s.Name() != "":
		return s.Name()
	case s.Filename() != "":
		return s.Filename()
	default:
		return filepath.Base(file)
	}
}
