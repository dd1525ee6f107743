package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanzabuild/stanza/pkg/plugins"
	"github.com/stanzabuild/stanza/pkg/registry"
	"github.com/stanzabuild/stanza/pkg/vcs"
)

type mockIndex struct {
	mu       sync.Mutex
	calls    int
	inFlight int32
	maxSeen  int32
	delay    time.Duration
	versions map[string][]string
	errs     map[string]error
	blockOn  map[string]bool
}

func (m *mockIndex) Versions(ctx context.Context, packageName string) ([]registry.Version, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	current := atomic.AddInt32(&m.inFlight, 1)
	for {
		seen := atomic.LoadInt32(&m.maxSeen)
		if current <= seen || atomic.CompareAndSwapInt32(&m.maxSeen, seen, current) {
			break
		}
	}
	defer atomic.AddInt32(&m.inFlight, -1)

	if m.blockOn[packageName] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if err, ok := m.errs[packageName]; ok {
		return nil, err
	}

	raw, ok := m.versions[packageName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, packageName)
	}

	versions := make([]registry.Version, 0, len(raw))
	for _, s := range raw {
		versions = append(versions, registry.MustParseVersion(s))
	}
	return versions, nil
}

func (m *mockIndex) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockRefs struct {
	mu    sync.Mutex
	calls int
	shas  map[string]string
	errs  map[string]error
}

func (m *mockRefs) ResolveRef(ctx context.Context, repo, ref string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	key := repo + "@" + ref
	if err, ok := m.errs[key]; ok {
		return "", err
	}
	sha, ok := m.shas[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", vcs.ErrNotFound, key)
	}
	return sha, nil
}

func mergedSets(t *testing.T, requests map[string][]plugins.PluginRequest) map[string]*plugins.Set {
	t.Helper()
	sets, err := plugins.Merge([]plugins.ConfigLayer{{
		Name:     plugins.LayerUserGlobal,
		Requests: requests,
	}})
	require.NoError(t, err)
	return sets
}

func registryReq(namespace, name, constraint, entryPoint string) plugins.PluginRequest {
	return plugins.PluginRequest{
		Namespace:   namespace,
		DisplayName: name,
		Constraint:  constraint,
		EntryPoint:  entryPoint,
	}
}

func githubReq(namespace, name, repo, ref, entryPoint string) plugins.PluginRequest {
	return plugins.PluginRequest{
		Namespace:   namespace,
		DisplayName: name,
		GitHub:      repo,
		Ref:         ref,
		EntryPoint:  entryPoint,
	}
}

func TestResolvePicksLatestVersion(t *testing.T) {
	index := &mockIndex{versions: map[string][]string{
		"hspec-fancy": {"1.0.0", "2.1.0", "2.0.3"},
	}}
	resolver := New(index, &mockRefs{}, nil)

	sets := mergedSets(t, map[string][]plugins.PluginRequest{
		"hspec": {registryReq("hspec", "hspec-fancy", "", "Formatters.progress")},
	})

	snapshot, err := resolver.Resolve(context.Background(), sets)
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.Len())

	pkg := snapshot.Packages("hspec")[0]
	assert.True(t, pkg.FromRegistry())
	assert.Equal(t, "hspec-fancy", pkg.PackageName)
	assert.Equal(t, "2.1.0", pkg.Version)
	assert.Equal(t, "Formatters.progress", pkg.EntryPoint)
}

func TestResolveHonorsConstraint(t *testing.T) {
	index := &mockIndex{versions: map[string][]string{
		"hspec-fancy": {"1.0.0", "2.1.0", "3.0.0"},
	}}
	resolver := New(index, &mockRefs{}, nil)

	sets := mergedSets(t, map[string][]plugins.PluginRequest{
		"hspec": {registryReq("hspec", "hspec-fancy", ">=2 && <3", "Formatters.progress")},
	})

	snapshot, err := resolver.Resolve(context.Background(), sets)
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", snapshot.Packages("hspec")[0].Version)
}

func TestResolveGitHubRef(t *testing.T) {
	refs := &mockRefs{shas: map[string]string{
		"fancy-org/hspec-foo@59e9b0e": "59e9b0e61d1558cd253b520e475e225b67cdf2c9",
	}}
	resolver := New(&mockIndex{}, refs, nil)

	sets := mergedSets(t, map[string][]plugins.PluginRequest{
		"hspec": {githubReq("hspec", "hspec-foo", "fancy-org/hspec-foo", "59e9b0e", "Foo.plugin")},
	})

	snapshot, err := resolver.Resolve(context.Background(), sets)
	require.NoError(t, err)

	pkg := snapshot.Packages("hspec")[0]
	assert.False(t, pkg.FromRegistry())
	assert.Equal(t, "https://github.com/fancy-org/hspec-foo", pkg.RepoURL)
	assert.Equal(t, "59e9b0e61d1558cd253b520e475e225b67cdf2c9", pkg.Revision)
	assert.Equal(t, "hspec-foo", pkg.DependencyName())
}

func TestResolvePreservesInsertionOrder(t *testing.T) {
	index := &mockIndex{versions: map[string][]string{
		"zzz-plugin": {"1.0.0"},
		"aaa-plugin": {"1.0.0"},
		"mmm-plugin": {"1.0.0"},
	}}
	resolver := New(index, &mockRefs{}, nil)

	sets := mergedSets(t, map[string][]plugins.PluginRequest{
		"hspec": {
			registryReq("hspec", "zzz-plugin", "", "Z.plugin"),
			registryReq("hspec", "aaa-plugin", "", "A.plugin"),
			registryReq("hspec", "mmm-plugin", "", "M.plugin"),
		},
	})

	snapshot, err := resolver.Resolve(context.Background(), sets)
	require.NoError(t, err)

	got := snapshot.Packages("hspec")
	require.Len(t, got, 3)
	assert.Equal(t, "zzz-plugin", got[0].DisplayName)
	assert.Equal(t, "aaa-plugin", got[1].DisplayName)
	assert.Equal(t, "mmm-plugin", got[2].DisplayName)
}

func TestResolveAllOrNothing(t *testing.T) {
	index := &mockIndex{versions: map[string][]string{
		"good-plugin": {"1.0.0"},
	}}
	resolver := New(index, &mockRefs{}, nil)

	sets := mergedSets(t, map[string][]plugins.PluginRequest{
		"hspec": {
			registryReq("hspec", "good-plugin", "", "Good.plugin"),
			registryReq("hspec", "missing-plugin", "", "Missing.plugin"),
		},
	})

	snapshot, err := resolver.Resolve(context.Background(), sets)
	require.Error(t, err)
	assert.Nil(t, snapshot)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "missing-plugin", resErr.Request.DisplayName)
	assert.Contains(t, resErr.Error(), "not found in registry")
}

func TestResolveFailFastCancelsOutstandingWork(t *testing.T) {
	index := &mockIndex{
		versions: map[string][]string{},
		errs:     map[string]error{"bad-plugin": errors.New("boom")},
		blockOn:  map[string]bool{"slow-plugin": true},
	}
	resolver := New(index, &mockRefs{}, &Config{MaxWorkers: 2})

	sets := mergedSets(t, map[string][]plugins.PluginRequest{
		"hspec": {
			registryReq("hspec", "slow-plugin", "", "Slow.plugin"),
			registryReq("hspec", "bad-plugin", "", "Bad.plugin"),
		},
	})

	done := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve(context.Background(), sets)
		done <- err
	}()

	select {
	case err := <-done:
		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "bad-plugin", resErr.Request.DisplayName)
	case <-time.After(5 * time.Second):
		t.Fatal("resolution did not fail fast; blocked lookup was never cancelled")
	}
}

func TestResolveBoundsConcurrency(t *testing.T) {
	versions := make(map[string][]string)
	var reqs []plugins.PluginRequest
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("plugin-%d", i)
		versions[name] = []string{"1.0.0"}
		reqs = append(reqs, registryReq("hspec", name, "", fmt.Sprintf("P%d.plugin", i)))
	}

	index := &mockIndex{versions: versions, delay: 10 * time.Millisecond}
	resolver := New(index, &mockRefs{}, &Config{MaxWorkers: 2})

	sets := mergedSets(t, map[string][]plugins.PluginRequest{"hspec": reqs})

	snapshot, err := resolver.Resolve(context.Background(), sets)
	require.NoError(t, err)
	assert.Equal(t, 8, snapshot.Len())
	assert.LessOrEqual(t, atomic.LoadInt32(&index.maxSeen), int32(2))
	assert.Equal(t, 8, index.callCount())
}

func TestResolveEmptySets(t *testing.T) {
	index := &mockIndex{}
	resolver := New(index, &mockRefs{}, nil)

	snapshot, err := resolver.Resolve(context.Background(), map[string]*plugins.Set{})
	require.NoError(t, err)
	assert.True(t, snapshot.Empty())
	assert.Equal(t, 0, index.callCount())
}

func TestResolveInvalidConstraint(t *testing.T) {
	index := &mockIndex{versions: map[string][]string{"hspec-fancy": {"1.0.0"}}}
	resolver := New(index, &mockRefs{}, nil)

	sets := mergedSets(t, map[string][]plugins.PluginRequest{
		"hspec": {registryReq("hspec", "hspec-fancy", "^1.0", "Formatters.progress")},
	})

	_, err := resolver.Resolve(context.Background(), sets)
	require.Error(t, err)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, resErr.Reason, "invalid version constraint")
}

func TestResolveNoVersionSatisfies(t *testing.T) {
	index := &mockIndex{versions: map[string][]string{"hspec-fancy": {"1.0.0", "2.0.0"}}}
	resolver := New(index, &mockRefs{}, nil)

	sets := mergedSets(t, map[string][]plugins.PluginRequest{
		"hspec": {registryReq("hspec", "hspec-fancy", ">=9", "Formatters.progress")},
	})

	_, err := resolver.Resolve(context.Background(), sets)
	require.Error(t, err)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, resErr.Reason, "satisfies")
	assert.Contains(t, resErr.Reason, "2 available")
}

func TestResolveRefNotFound(t *testing.T) {
	resolver := New(&mockIndex{}, &mockRefs{}, nil)

	sets := mergedSets(t, map[string][]plugins.PluginRequest{
		"hspec": {githubReq("hspec", "hspec-foo", "fancy-org/hspec-foo", "vanished", "Foo.plugin")},
	})

	_, err := resolver.Resolve(context.Background(), sets)
	require.Error(t, err)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, resErr.Reason, `ref "vanished" not found`)
	assert.ErrorIs(t, err, vcs.ErrNotFound)
}

func TestResolveMultipleNamespaces(t *testing.T) {
	index, refs := &mockIndex{versions: map[string][]string{
		"hspec-fancy":    {"2.1.0"},
		"criterion-json": {"0.3.0"},
	}}, &mockRefs{}
	resolver := New(index, refs, nil)

	sets := mergedSets(t, map[string][]plugins.PluginRequest{
		"hspec":     {registryReq("hspec", "hspec-fancy", "", "Formatters.progress")},
		"criterion": {registryReq("criterion", "criterion-json", "", "Report.json")},
	})

	snapshot, err := resolver.Resolve(context.Background(), sets)
	require.NoError(t, err)
	assert.Equal(t, []string{"criterion", "hspec"}, snapshot.Namespaces())
	assert.Equal(t, 2, snapshot.Len())
}
