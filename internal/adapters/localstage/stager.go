package localstage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tube2mp3/internal/core/domain"
)

// Stager implements ports.Stager on the local filesystem. Every download
// gets a uuid-suffixed path inside Dir, so concurrent requests never
// contend for a name and no locking is needed.
type Stager struct {
	dir string
	log zerolog.Logger
}

func New(dir string, log zerolog.Logger) *Stager {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Stager{dir: dir, log: log.With().Str("component", "stager").Logger()}
}

// Download writes the full stream to a fresh temporary file. On any
// failure the partial file is removed before returning.
func (s *Stager) Download(ctx context.Context, stream *domain.ResolvedStream) (domain.StagedFile, error) {
	body, expected, err := stream.Handle.Open(ctx)
	if err != nil {
		return domain.StagedFile{}, err
	}
	defer body.Close()

	path := filepath.Join(s.dir, "raw-"+uuid.NewString()+".media")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return domain.StagedFile{}, fmt.Errorf("%w: create %s: %v", domain.ErrDownloadIncomplete, path, err)
	}

	written, copyErr := io.Copy(f, body)
	closeErr := f.Close()

	if copyErr != nil || closeErr != nil {
		s.remove(path)
		err := copyErr
		if err == nil {
			err = closeErr
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.StagedFile{}, fmt.Errorf("%w: download: %v", domain.ErrTimeout, err)
		}
		return domain.StagedFile{}, fmt.Errorf("%w: %v", domain.ErrDownloadIncomplete, err)
	}

	if expected > 0 && written != expected {
		s.remove(path)
		return domain.StagedFile{}, fmt.Errorf("%w: got %d of %d bytes", domain.ErrDownloadIncomplete, written, expected)
	}

	s.log.Debug().Str("path", path).Int64("bytes", written).Msg("staged raw download")

	return domain.StagedFile{Path: path, Kind: domain.RawDownload}, nil
}

func (s *Stager) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn().Err(err).Str("path", path).Msg("failed to remove partial download")
	}
}
