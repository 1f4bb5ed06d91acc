package sketchtree_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"

	"github.com/hupe1980/sketchtree"
	"github.com/hupe1980/sketchtree/sketch"
)

func exampleSketch(name string, seqs ...string) *sketch.Sketch {
	b := sketch.NewBuilder(sketch.Params{Name: name, KSize: 5})
	for _, s := range seqs {
		b.AddSequence(s)
	}
	return b.Build()
}

// ExampleSearch demonstrates a threshold search over an in-memory tree.
func ExampleSearch() {
	ctx := context.Background()

	tree := sketchtree.CreateIndex()
	for _, s := range []*sketch.Sketch{
		exampleSketch("a", "ACGTACGTTAGCCATG"),
		exampleSketch("b", "ACGTACGTTAGCCATT"),
		exampleSketch("c", "TTTTGGGGCCCCAAAA"),
	} {
		if err := tree.Add(ctx, sketchtree.NewLeaf(s.Name(), s, nil)); err != nil {
			log.Fatal(err)
		}
	}

	query := exampleSketch("q", "ACGTACGTTAGCCATG")

	var names []string
	for m, err := range sketchtree.Search(ctx, tree, query, 0.5) {
		if err != nil {
			log.Fatal(err)
		}
		names = append(names, m.Sketch.Name())
	}
	slices.Sort(names)
	fmt.Println(names)
	// Output: [a b]
}

// ExampleLoadIndex demonstrates saving a tree and searching it after reload.
func ExampleLoadIndex() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "sketchtree-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	tree := sketchtree.CreateIndex(sketchtree.WithBloomFilterSize(1 << 12))
	s := exampleSketch("genome", "ACGTACGTTAGCCATG")
	if err := tree.Add(ctx, sketchtree.NewLeaf(s.Name(), s, nil)); err != nil {
		log.Fatal(err)
	}

	path, err := tree.Save(ctx, filepath.Join(dir, "genomes"), nil)
	if err != nil {
		log.Fatal(err)
	}

	loaded, err := sketchtree.LoadIndex(ctx, path)
	if err != nil {
		log.Fatal(err)
	}

	for m, err := range sketchtree.Search(ctx, loaded, s, 1) {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s %.2f\n", m.Sketch.Name(), m.Similarity)
	}
	// Output: genome 1.00
}
