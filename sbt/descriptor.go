package sbt

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hupe1980/sketchtree/blobstore"
	"golang.org/x/sync/errgroup"
)

const (
	// CurrentVersion is the descriptor format written by Save.
	CurrentVersion = 6
	// MinVersion is the oldest descriptor format Load accepts.
	MinVersion = 4

	// DescriptorSuffix is appended to tree names to form descriptor file names.
	DescriptorSuffix = ".sbt.json"

	backendFS       = "FSStorage"
	factoryClass    = "GraphFactory"
	saveConcurrency = 8
)

type descriptor struct {
	D          int              `json:"d"`
	Version    int              `json:"version"`
	Storage    storageInfo      `json:"storage"`
	Factory    factoryInfo      `json:"factory"`
	Nodes      map[string]entry `json:"nodes"`
	Signatures map[string]entry `json:"signatures,omitempty"`
	Leaves     map[string]entry `json:"leaves,omitempty"` // versions 4 and 5
}

type storageInfo struct {
	Backend string      `json:"backend"`
	Args    storageArgs `json:"args"`
}

type storageArgs struct {
	Path string `json:"path"`
}

type factoryInfo struct {
	Class string   `json:"class"`
	Args  []uint64 `json:"args"`
}

type entry struct {
	Filename string         `json:"filename"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TreeName returns the name of the tree stored at a descriptor path.
func TreeName(p string) string {
	return strings.TrimSuffix(filepath.Base(p), DescriptorSuffix)
}

// Save persists every node filter and leaf payload into store under
// ".sbt.<name>/" and writes the JSON descriptor to path. A nil store saves
// next to the descriptor on the local filesystem. It returns the descriptor
// path, with DescriptorSuffix appended if it was missing.
func (t *Tree) Save(ctx context.Context, p string, store blobstore.Store) (string, error) {
	if !strings.HasSuffix(p, DescriptorSuffix) {
		p += DescriptorSuffix
	}
	dir := filepath.Dir(p)
	local := blobstore.NewLocalStore(dir)
	if store == nil {
		store = local
	}
	t.name = TreeName(p)
	subdir := ".sbt." + t.name

	// Leaves must hold their payload before they are pointed at the new store.
	for pos, leaf := range t.leaves {
		if _, err := leaf.Get(ctx); err != nil {
			return "", fmt.Errorf("sbt: save leaf %d: %w", pos, err)
		}
	}

	var (
		mu         sync.Mutex
		nodeKeys   = make(map[int]string, len(t.nodes))
		nodes      = make(map[string]entry, len(t.nodes))
		signatures = make(map[string]entry, len(t.leaves))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(saveConcurrency)

	// Filters are encoded up front; only the writes run concurrently.
	encoded := make(map[int][]byte, len(t.nodes))
	for pos, n := range t.nodes {
		bf, err := n.Filter(ctx)
		if err != nil {
			return "", fmt.Errorf("sbt: save node %d: %w", pos, err)
		}
		data, err := bf.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("sbt: save node %d: %w", pos, err)
		}
		encoded[pos] = data
	}

	for pos, data := range encoded {
		n := t.nodes[pos]
		g.Go(func() error {
			key, err := blobstore.Save(gctx, store, path.Join(subdir, n.name), data)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			nodeKeys[pos] = key
			nodes[strconv.Itoa(pos)] = entry{
				Filename: strings.TrimPrefix(key, subdir+"/"),
				Name:     n.name,
				Metadata: n.metadata,
			}
			return nil
		})
	}

	for pos, leaf := range t.leaves {
		if s, ok := leaf.(interface{ SetStorage(blobstore.Store) }); ok {
			s.SetStorage(store)
		}
		g.Go(func() error {
			key, err := leaf.Save(gctx, path.Join(subdir, "leaf."+strconv.Itoa(pos)))
			if err != nil {
				return fmt.Errorf("sbt: save leaf %d: %w", pos, err)
			}

			mu.Lock()
			defer mu.Unlock()
			signatures[strconv.Itoa(pos)] = entry{
				Filename: strings.TrimPrefix(key, subdir+"/"),
				Name:     leaf.Name(),
				Metadata: leaf.Metadata(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	for pos, key := range nodeKeys {
		n := t.nodes[pos]
		n.key = key
		n.store = store
		n.dirty = false
	}
	t.store = store

	desc := descriptor{
		D:       t.d,
		Version: CurrentVersion,
		Storage: storageInfo{Backend: backendFS, Args: storageArgs{Path: subdir}},
		Factory: factoryInfo{
			Class: factoryClass,
			Args:  []uint64{uint64(t.factory.KSize), t.factory.Size, uint64(t.factory.NumHashes)},
		},
		Nodes:      nodes,
		Signatures: signatures,
	}
	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("sbt: encode descriptor: %w", err)
	}
	if _, err := blobstore.Save(ctx, local, filepath.Base(p), data); err != nil {
		return "", err
	}

	t.logger.Debug("saved tree", "path", p, "nodes", len(nodes), "leaves", len(signatures))
	return p, nil
}

// LoadOptions configures Load.
type LoadOptions struct {
	// LeafLoader creates leaves from descriptor entries. Required.
	LeafLoader LeafLoader
	// PrintVersionWarning logs a warning for descriptors older than CurrentVersion.
	PrintVersionWarning bool
	// CacheSize bounds the number of node filters kept in memory.
	// Zero keeps every loaded filter.
	CacheSize int
	// Storage overrides the backend named in the descriptor.
	Storage blobstore.Store
	// Logger receives version warnings. Nil selects slog.Default().
	Logger *slog.Logger
}

// Load reads the descriptor at p and rebuilds the tree. Node filters and leaf
// payloads stay in storage until first use.
func Load(ctx context.Context, p string, opts LoadOptions) (*Tree, error) {
	if opts.LeafLoader == nil {
		return nil, ErrNoLeafLoader
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(p)
	raw, err := blobstore.Load(ctx, blobstore.NewLocalStore(dir), filepath.Base(p))
	if err != nil {
		return nil, err
	}

	var desc descriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDescriptor, p, err)
	}

	if desc.Version < MinVersion || desc.Version > CurrentVersion {
		return nil, &VersionMismatchError{Version: desc.Version, Supported: CurrentVersion}
	}
	if desc.Version < CurrentVersion && opts.PrintVersionWarning {
		logger.Warn("loading tree descriptor in an older format; save it again to upgrade",
			"path", p, "version", desc.Version, "current", CurrentVersion)
	}

	if len(desc.Factory.Args) != 3 {
		return nil, fmt.Errorf("%w: %s: factory needs 3 args, got %d", ErrInvalidDescriptor, p, len(desc.Factory.Args))
	}
	factory := Factory{
		KSize:     uint32(desc.Factory.Args[0]),
		Size:      desc.Factory.Args[1],
		NumHashes: uint32(desc.Factory.Args[2]),
	}

	store := opts.Storage
	if store == nil {
		if desc.Storage.Backend != backendFS {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, desc.Storage.Backend)
		}
		store = blobstore.NewLocalStore(dir)
	}

	t := New(factory, desc.D)
	t.name = TreeName(p)
	t.store = store
	t.logger = logger
	if opts.CacheSize > 0 {
		t.cache, err = lru.NewWithEvict[int, *Node](opts.CacheSize, func(_ int, n *Node) {
			n.Unload()
		})
		if err != nil {
			return nil, err
		}
	}

	storagePath := desc.Storage.Args.Path
	maxPos := -1

	for k, e := range desc.Nodes {
		pos, err := strconv.Atoi(k)
		if err != nil || pos < 0 {
			return nil, fmt.Errorf("%w: %s: node position %q", ErrInvalidDescriptor, p, k)
		}
		n := loadedNode(factory, e.Name, path.Join(storagePath, e.Filename), e.Metadata, store)
		t.track(n, pos)
		t.nodes[pos] = n
		maxPos = max(maxPos, pos)
	}

	leaves := desc.Signatures
	if desc.Version < CurrentVersion && len(leaves) == 0 {
		leaves = desc.Leaves
	}
	for k, e := range leaves {
		pos, err := strconv.Atoi(k)
		if err != nil || pos < 0 {
			return nil, fmt.Errorf("%w: %s: leaf position %q", ErrInvalidDescriptor, p, k)
		}
		leaf, err := opts.LeafLoader(LeafInfo{
			Name:     e.Name,
			Key:      path.Join(storagePath, e.Filename),
			Metadata: e.Metadata,
		}, store)
		if err != nil {
			return nil, fmt.Errorf("sbt: load leaf %d: %w", pos, err)
		}
		t.leaves[pos] = leaf
		maxPos = max(maxPos, pos)
	}

	rebuilt, err := t.rebuildMissing(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	if rebuilt > 0 {
		logger.Warn("rebuilt internal nodes missing from descriptor", "path", p, "nodes", rebuilt)
	}

	for pos := 0; pos < maxPos; pos++ {
		if !t.occupied(pos) {
			t.missing.Add(uint32(pos))
		}
	}

	logger.Debug("loaded tree", "path", p, "version", desc.Version,
		"nodes", len(t.nodes), "leaves", len(t.leaves), "missing", t.missing.GetCardinality())
	return t, nil
}
