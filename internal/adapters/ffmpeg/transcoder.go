package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tube2mp3/internal/core/domain"
)

// Transcoder implements ports.Transcoder by shelling out to ffmpeg.
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string
	dir         string
	bitrate     string
	log         zerolog.Logger
}

// New creates a Transcoder. Empty paths default to the binaries on PATH;
// an empty bitrate defaults to 192k.
func New(ffmpegPath, ffprobePath, dir, bitrate string, log zerolog.Logger) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if bitrate == "" {
		bitrate = "192k"
	}
	return &Transcoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		dir:         dir,
		bitrate:     bitrate,
		log:         log.With().Str("component", "transcoder").Logger(),
	}
}

// Transcode re-encodes the raw download's audio track to MP3 at a fresh
// temporary path. Zero-byte and zero-duration inputs are rejected before
// ffmpeg runs. The input file is left in place for the caller's cleanup
// scope.
func (t *Transcoder) Transcode(ctx context.Context, raw domain.StagedFile) (domain.StagedFile, error) {
	info, err := os.Stat(raw.Path)
	if err != nil {
		return domain.StagedFile{}, fmt.Errorf("%w: stat input: %v", domain.ErrTranscode, err)
	}
	if info.Size() == 0 {
		return domain.StagedFile{}, fmt.Errorf("%w: zero-byte download", domain.ErrEmptyMedia)
	}

	if err := t.checkDuration(ctx, raw.Path); err != nil {
		return domain.StagedFile{}, err
	}

	outPath := filepath.Join(t.dir, "mp3-"+uuid.NewString()+".mp3")

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-y",
		"-i", raw.Path,
		"-vn",
		"-ar", "44100",
		"-ac", "2",
		"-b:a", t.bitrate,
		"-f", "mp3",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.remove(outPath)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.StagedFile{}, fmt.Errorf("%w: transcode: %v", domain.ErrTimeout, err)
		}
		return domain.StagedFile{}, fmt.Errorf("%w: %v: %s", domain.ErrTranscode, err, tail(stderr.String()))
	}

	out, err := os.Stat(outPath)
	if err != nil || out.Size() == 0 {
		t.remove(outPath)
		return domain.StagedFile{}, fmt.Errorf("%w: encoder produced no output", domain.ErrTranscode)
	}

	t.log.Debug().Str("path", outPath).Int64("bytes", out.Size()).Msg("transcoded to mp3")

	return domain.StagedFile{Path: outPath, Kind: domain.TranscodedAudio}, nil
}

// checkDuration rejects zero-duration containers before the encoder runs.
// A missing ffprobe binary is not fatal: the zero-byte gate already ran
// and ffmpeg rejects undecodable input on its own.
func (t *Transcoder) checkDuration(ctx context.Context, path string) error {
	if _, err := exec.LookPath(t.ffprobePath); err != nil {
		t.log.Debug().Str("ffprobe", t.ffprobePath).Msg("ffprobe not found, skipping duration check")
		return nil
	}

	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: probe: %v", domain.ErrTimeout, err)
		}
		return fmt.Errorf("%w: probe: %v: %s", domain.ErrTranscode, err, tail(stderr.String()))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err == nil && duration <= 0 {
		return fmt.Errorf("%w: zero-duration media", domain.ErrEmptyMedia)
	}
	return nil
}

func (t *Transcoder) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		t.log.Warn().Err(err).Str("path", path).Msg("failed to remove partial transcode output")
	}
}

// tail keeps the last few lines of encoder stderr for the error message.
func tail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.Join(lines, " | ")
}
