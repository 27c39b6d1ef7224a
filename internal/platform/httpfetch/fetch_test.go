package httpfetch

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/task"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(fsys afero.Fs) *Client {
	return New(Options{SaveDir: "/downloads", UserAgent: "test-agent", Fs: fsys},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchSavesFileWithHeaders(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("a"), 100*1024)
	var referer, agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
		agent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	fsys := afero.NewMemMapFs()
	var reports []int
	err := newTestClient(fsys).Fetch(context.Background(), task.DownloadRequest{
		URL:      srv.URL + "/v.mp4",
		FileName: "clip.mp4",
		Platform: domain.PlatformBilibili,
	}, func(p int) { reports = append(reports, p) })
	require.NoError(t, err)

	saved, err := afero.ReadFile(fsys, "/downloads/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, payload, saved)
	assert.Equal(t, "https://www.bilibili.com/", referer)
	assert.Equal(t, "test-agent", agent)

	require.NotEmpty(t, reports)
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i], reports[i-1])
	}
	assert.LessOrEqual(t, reports[len(reports)-1], 100)
}

func TestFetchHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	fsys := afero.NewMemMapFs()
	err := newTestClient(fsys).Fetch(context.Background(), task.DownloadRequest{
		URL:      srv.URL + "/v.mp4",
		FileName: "clip.mp4",
		Platform: domain.PlatformDouyin,
	}, nil)

	assert.ErrorIs(t, err, ErrHTTPStatus)
	assert.ErrorContains(t, err, "403")
	exists, _ := afero.Exists(fsys, "/downloads/clip.mp4")
	assert.False(t, exists)
}

func TestFetchAudioRespectsLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	c := newTestClient(afero.NewMemMapFs())

	data, err := c.FetchAudio(context.Background(), srv.URL, domain.PlatformDouyin, 4)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(data))

	all, err := c.FetchAudio(context.Background(), srv.URL, domain.PlatformDouyin, 0)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(all))
}

func TestFetchAudioBadURL(t *testing.T) {
	t.Parallel()

	_, err := newTestClient(afero.NewMemMapFs()).FetchAudio(context.Background(), "://bad", "", 10)
	assert.ErrorContains(t, err, "invalid download URL")
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "clip.mp4", fileName("clip.mp4", "https://x/y.mp4"))
	assert.Equal(t, "evil.mp4", fileName("../../evil.mp4", ""))
	assert.Equal(t, "y.m4s", fileName("", "https://x.example.com/a/y.m4s?sig=1"))
	assert.Equal(t, "download", fileName(" ", "https://x.example.com/"))
}

func TestReporterThrottles(t *testing.T) {
	t.Parallel()

	var known []int
	r := newReporter(1000, func(p int) { known = append(known, p) })
	for i := 0; i < 100; i++ {
		_, _ = r.Write(make([]byte, 10))
	}
	assert.Len(t, known, 50, "one report per 2 percent")
	assert.Equal(t, 100, known[len(known)-1])

	var unknown []int
	u := newReporter(-1, func(p int) { unknown = append(unknown, p) })
	for i := 0; i < 4; i++ {
		_, _ = u.Write(make([]byte, 256*1024))
	}
	assert.Equal(t, []int{0, 0}, unknown, "one report per 512 KiB when size is unknown")
}
