package detector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pingmyweb/pingd/internal/hash/sha256"
	"github.com/pingmyweb/pingd/internal/ping"
)

type fakeFetcher struct {
	content []byte
	err     error
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	return f.content, f.err
}

func TestShouldPingDetectsChange(t *testing.T) {
	t.Parallel()

	hasher := sha256.New()
	oldHash, err := hasher.Hash([]byte("old content"))
	require.NoError(t, err)

	d := New(&fakeFetcher{content: []byte("new content")}, hasher, zap.NewNop())
	decision := d.ShouldPing(context.Background(), ping.TrackedURL{
		URL:             "https://example.com",
		LastContentHash: oldHash,
	})

	require.True(t, decision.Changed)
	require.False(t, decision.FetchFailed)
	require.NotEqual(t, oldHash, decision.NewHash)
}

func TestShouldPingUnchangedContent(t *testing.T) {
	t.Parallel()

	hasher := sha256.New()
	content := []byte("<html>same</html>")
	hash, err := hasher.Hash(content)
	require.NoError(t, err)

	d := New(&fakeFetcher{content: content}, hasher, zap.NewNop())
	decision := d.ShouldPing(context.Background(), ping.TrackedURL{
		URL:             "https://example.com",
		LastContentHash: hash,
	})

	require.False(t, decision.Changed)
	require.Equal(t, hash, decision.NewHash)
}

func TestShouldPingFirstDispatchAlwaysChanged(t *testing.T) {
	t.Parallel()

	d := New(&fakeFetcher{content: []byte("anything")}, sha256.New(), zap.NewNop())
	decision := d.ShouldPing(context.Background(), ping.TrackedURL{URL: "https://example.com"})

	require.True(t, decision.Changed)
	require.NotEmpty(t, decision.NewHash)
}

func TestShouldPingFailsOpenOnFetchError(t *testing.T) {
	t.Parallel()

	d := New(&fakeFetcher{err: errors.New("dns failure")}, sha256.New(), zap.NewNop())
	decision := d.ShouldPing(context.Background(), ping.TrackedURL{
		URL:             "https://example.com",
		LastContentHash: "some-old-hash",
	})

	require.True(t, decision.Changed)
	require.True(t, decision.FetchFailed)
	require.Empty(t, decision.NewHash)
}

func TestCollyFetcherFetchesBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>page body</html>"))
	}))
	defer srv.Close()

	f := NewCollyFetcher(FetcherConfig{UserAgent: "pingd-test/0.1"})
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "<html>page body</html>", string(body))
}

func TestCollyFetcherReportsHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := NewCollyFetcher(FetcherConfig{})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestCollyFetcherHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewCollyFetcher(FetcherConfig{})
	_, err := f.Fetch(ctx, "https://example.com")
	require.Error(t, err)
}
