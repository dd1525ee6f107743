package vcs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullHash = "59e9b0e61d1558cd253b520e475e225b67cdf2c9"

func testConfig(apiBaseURL string) *Config {
	cfg := DefaultConfig()
	cfg.APIBaseURL = apiBaseURL
	cfg.RetryInterval = time.Millisecond
	return cfg
}

func TestResolveRefReturnsFullHashVerbatim(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	sha, err := client.ResolveRef(context.Background(), "fancy-org/hspec-foo", fullHash)
	require.NoError(t, err)
	assert.Equal(t, fullHash, sha)
	assert.Equal(t, int64(0), requests.Load(), "full hashes must not hit the network")
}

func TestResolveRefLooksUpBranchesAndTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/fancy-org/hspec-foo/commits/main", r.URL.Path)
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"sha":%q,"commit":{"message":"tip"}}`, fullHash)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	sha, err := client.ResolveRef(context.Background(), "fancy-org/hspec-foo", "main")
	require.NoError(t, err)
	assert.Equal(t, fullHash, sha)
}

func TestResolveRefSendsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"sha":%q}`, fullHash)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Token = "gh-token"
	client := NewClient(cfg)

	_, err := client.ResolveRef(context.Background(), "fancy-org/private", "v1.2")
	require.NoError(t, err)
}

func TestResolveRefNotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "missing repo", status: http.StatusNotFound},
		{name: "unknown ref", status: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int64
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			_, err := client.ResolveRef(context.Background(), "fancy-org/gone", "v9")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, int64(1), requests.Load())
		})
	}
}

func TestResolveRefRetriesServerErrors(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"sha":%q}`, fullHash)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	sha, err := client.ResolveRef(context.Background(), "fancy-org/hspec-foo", "main")
	require.NoError(t, err)
	assert.Equal(t, fullHash, sha)
	assert.Equal(t, int64(2), requests.Load())
}

func TestResolveRefValidatesInput(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:0"))

	_, err := client.ResolveRef(context.Background(), "fancy-org/hspec-foo", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ref is required")

	_, err = client.ResolveRef(context.Background(), "not-a-repo", "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid repository")
}

func TestResolveRefRejectsMalformedHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"sha":"abc123"}`)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 0
	client := NewClient(cfg)

	_, err := client.ResolveRef(context.Background(), "fancy-org/hspec-foo", "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed commit hash")
}

func TestIsCommitHash(t *testing.T) {
	assert.True(t, IsCommitHash(fullHash))
	assert.False(t, IsCommitHash("59e9b0e"))
	assert.False(t, IsCommitHash("main"))
	assert.False(t, IsCommitHash(fullHash+"0"))
	assert.False(t, IsCommitHash("59E9B0E61D1558CD253B520E475E225B67CDF2C9"))
}

func TestRepoURL(t *testing.T) {
	assert.Equal(t, "https://github.com/fancy-org/hspec-foo", RepoURL("fancy-org/hspec-foo"))
}
