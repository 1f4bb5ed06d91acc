package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/hupe1980/sketchtree"
	"github.com/hupe1980/sketchtree/blobstore"
	"github.com/hupe1980/sketchtree/blobstore/sqlite"
	"github.com/hupe1980/sketchtree/codec"
	"github.com/hupe1980/sketchtree/internal/config"
	"github.com/hupe1980/sketchtree/sketch"
	"github.com/hupe1980/sketchtree/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSig(t *testing.T, dir, name string, sketches ...*sketch.Sketch) string {
	t.Helper()
	data, err := codec.Encode(sketches, 1)
	require.NoError(t, err)
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

type sigFixture struct {
	dir   string
	query string
	sigs  []string
}

func newSigFixture(t *testing.T) sigFixture {
	t.Helper()
	rng := testutil.NewRNG(5)
	dir := t.TempDir()

	q := rng.Sketch("query", 31, 100)
	f := sigFixture{dir: dir, query: writeSig(t, dir, "query.sig", q)}
	for i, sim := range []float64{0.9, 0.5, 0.1} {
		s := rng.Similar(q, []string{"close", "mid", "far"}[i], sim)
		f.sigs = append(f.sigs, writeSig(t, dir, s.Name()+".sig", s))
	}
	return f
}

func TestCLI_IndexSearchInfo(t *testing.T) {
	f := newSigFixture(t)
	name := filepath.Join(f.dir, "genomes")

	out := run(t, append([]string{"index", name}, f.sigs...)...)
	assert.Contains(t, out, "indexed 3 sketches")
	assert.FileExists(t, name+".sbt.json")

	out = run(t, "search", "--threshold", "0.4", name+".sbt.json", f.query)
	assert.Contains(t, out, "2 matches")
	assert.Contains(t, out, "close")
	assert.Contains(t, out, "mid")
	assert.NotContains(t, out, "far")

	out = run(t, "search", "--json", "--threshold", "0.4", name+".sbt.json", f.query)
	var results []result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "close", results[0].Name)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)

	out = run(t, "info", "--leaves", name+".sbt.json")
	assert.Contains(t, out, "leaves:      3")
	assert.Contains(t, out, "branching:   2")
	assert.Contains(t, out, "far")
}

func TestCLI_SQLiteBackend(t *testing.T) {
	f := newSigFixture(t)
	name := filepath.Join(f.dir, "lite")

	cfgPath := filepath.Join(f.dir, "sketchtree.yaml")
	cfg := "storage:\n  backend: sqlite\n  path: " + filepath.Join(f.dir, "blobs.db") + "\n  cache_size: 16\nindex:\n  compression: zstd\n  branching_factor: 3\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	run(t, append([]string{"--config", cfgPath, "index", name}, f.sigs...)...)
	_, err := os.Stat(filepath.Join(f.dir, ".sbt.lite"))
	assert.True(t, os.IsNotExist(err), "blobs must live in sqlite")

	out := run(t, "--config", cfgPath, "search", "-t", "0.4", name+".sbt.json", f.query)
	assert.Contains(t, out, "2 matches")

	out = run(t, "--config", cfgPath, "info", name+".sbt.json")
	assert.Contains(t, out, "branching:   3")
}

func TestCLI_Errors(t *testing.T) {
	f := newSigFixture(t)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"search", filepath.Join(f.dir, "missing.sbt.json"), f.query})
	require.ErrorIs(t, cmd.Execute(), blobstore.ErrNotFound)

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"index", filepath.Join(f.dir, "x"), writeSig(t, f.dir, "empty.sig")})
	require.Error(t, cmd.Execute())
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, closeFn, err := openStore(ctx, config.StorageConfig{Backend: config.BackendLocal}, dir)
	require.NoError(t, err)
	assert.Nil(t, store)
	require.NoError(t, closeFn())

	_, _, err = openStore(ctx, config.StorageConfig{Backend: "memory"}, dir)
	require.Error(t, err)

	store, _, err = openStore(ctx, config.StorageConfig{Backend: config.BackendLocal, CacheSize: 8}, dir)
	require.NoError(t, err)
	assert.IsType(t, &blobstore.CachingStore{}, store)

	store, _, err = openStore(ctx, config.StorageConfig{Backend: config.BackendLocal, ThrottleBytesPerSec: 1 << 20, ContentAddressed: true}, dir)
	require.NoError(t, err)
	assert.IsType(t, &blobstore.ThrottledStore{}, store)

	store, closeFn, err = openStore(ctx, config.StorageConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "b.db")}, dir)
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, store)
	require.NoError(t, closeFn())

	_, _, err = openStore(ctx, config.StorageConfig{Backend: "ftp"}, dir)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func newTestServer(t *testing.T) (*httptest.Server, *sketch.Sketch) {
	t.Helper()
	ctx := context.Background()
	rng := testutil.NewRNG(11)
	q := rng.Sketch("query", 31, 100)

	tree := sketchtree.CreateIndex()
	for i, sim := range []float64{0.9, 0.5, 0.1} {
		s := rng.Similar(q, []string{"close", "mid", "far"}[i], sim)
		require.NoError(t, tree.Add(ctx, sketchtree.NewLeaf(s.Name(), s, nil)))
	}

	r := mux.NewRouter()
	newServer(tree, 0.1, sketchtree.NoopLogger(), &sketchtree.BasicMetricsCollector{}).routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, q
}

func TestServer_Search(t *testing.T) {
	srv, q := newTestServer(t)

	body, err := codec.Encode([]*sketch.Sketch{q}, 1)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/search?threshold=0.4", "application/octet-stream", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got searchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "query", got.Query)
	assert.Equal(t, 0.4, got.Threshold)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "close", got.Results[0].Name)
	assert.Equal(t, "mid", got.Results[1].Name)
}

func TestServer_BadRequests(t *testing.T) {
	srv, q := newTestServer(t)

	resp, err := http.Post(srv.URL+"/search", "application/octet-stream", bytes.NewReader([]byte("garbage")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, err := codec.Encode([]*sketch.Sketch{q}, 1)
	require.NoError(t, err)
	resp, err = http.Post(srv.URL+"/search?threshold=abc", "application/octet-stream", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	other, err := sketch.New(sketch.Params{Name: "k21", KSize: 21}, q.Hashes())
	require.NoError(t, err)
	body, err = codec.Encode([]*sketch.Sketch{other}, 1)
	require.NoError(t, err)
	resp, err = http.Post(srv.URL+"/search", "application/octet-stream", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/search")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "ok", got["status"])
	assert.EqualValues(t, 3, got["leaves"])
}
