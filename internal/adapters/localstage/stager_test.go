package localstage

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tube2mp3/internal/core/domain"
)

type fakeHandle struct {
	body io.Reader
	size int64
	err  error
}

func (h *fakeHandle) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	if h.err != nil {
		return nil, 0, h.err
	}
	return io.NopCloser(h.body), h.size, nil
}

func resolved(h domain.StreamHandle) *domain.ResolvedStream {
	return &domain.ResolvedStream{Title: "t", Handle: h}
}

func TestDownloadWritesFullStream(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, zerolog.Nop())

	content := "raw media bytes"
	staged, err := s.Download(context.Background(), resolved(&fakeHandle{
		body: strings.NewReader(content),
		size: int64(len(content)),
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.RawDownload, staged.Kind)

	got, err := os.ReadFile(staged.Path)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestDownloadUnknownSizeAccepted(t *testing.T) {
	s := New(t.TempDir(), zerolog.Nop())

	staged, err := s.Download(context.Background(), resolved(&fakeHandle{
		body: strings.NewReader("data"),
		size: 0,
	}))
	require.NoError(t, err)
	assert.FileExists(t, staged.Path)
}

func TestDownloadTruncatedLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, zerolog.Nop())

	_, err := s.Download(context.Background(), resolved(&fakeHandle{
		body: strings.NewReader("short"),
		size: 100,
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDownloadIncomplete), "want ErrDownloadIncomplete, got %v", err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file left behind")
}

type failingReader struct{ err error }

func (r *failingReader) Read(p []byte) (int, error) { return 0, r.err }

func TestDownloadReadFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, zerolog.Nop())

	_, err := s.Download(context.Background(), resolved(&fakeHandle{
		body: &failingReader{err: errors.New("connection reset")},
		size: 10,
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDownloadIncomplete))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadOpenErrorPropagates(t *testing.T) {
	s := New(t.TempDir(), zerolog.Nop())
	blocked := domain.ErrUpstreamBlocked

	_, err := s.Download(context.Background(), resolved(&fakeHandle{err: blocked}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamBlocked), "open errors must keep their category")
}

func TestDownloadPathsAreUnique(t *testing.T) {
	s := New(t.TempDir(), zerolog.Nop())

	paths := make(map[string]bool)
	for i := 0; i < 50; i++ {
		staged, err := s.Download(context.Background(), resolved(&fakeHandle{
			body: strings.NewReader("x"),
			size: 1,
		}))
		require.NoError(t, err)
		assert.False(t, paths[staged.Path], "path %s allocated twice", staged.Path)
		paths[staged.Path] = true
	}
}
