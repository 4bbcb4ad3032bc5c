// Package media turns remote audio and video assets into diarized
// transcripts: download, transcode to a transcription-friendly format, and
// hand the result to the transcription service.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"contentmill/pkg/classify"
	"contentmill/pkg/transcribe"
)

var errEmptyTranscript = errors.New("media produced an empty transcript")

// Downloader fetches a remote asset to a local path.
type Downloader interface {
	Download(ctx context.Context, rawURL, destPath string) error
}

// Transcoder converts a media file into another container/codec.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// FFmpegTranscoder shells out to ffmpeg for transcoding.
type FFmpegTranscoder struct {
	// BinaryPath overrides the ffmpeg executable; empty means "ffmpeg" on
	// PATH.
	BinaryPath string
}

// Transcode converts inputPath into outputPath, with the target format
// inferred from the output extension.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	binary := t.BinaryPath
	if binary == "" {
		binary = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, binary, "-i", inputPath, outputPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg %s -> %s: %w: %s", inputPath, outputPath, err, truncateOutput(out))
	}
	return nil
}

func truncateOutput(out []byte) string {
	const max = 512
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return string(out)
}

// Extractor orchestrates download, transcode and transcription of a media
// asset.
type Extractor struct {
	downloader  Downloader
	transcoder  Transcoder
	transcriber transcribe.Transcriber
	scratchDir  string
}

// NewExtractor wires a media extractor. scratchDir holds request-scoped
// working files; empty means the system temp directory.
func NewExtractor(downloader Downloader, transcoder Transcoder, transcriber transcribe.Transcriber, scratchDir string) *Extractor {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	return &Extractor{
		downloader:  downloader,
		transcoder:  transcoder,
		transcriber: transcriber,
		scratchDir:  scratchDir,
	}
}

// ExtractText downloads the asset at rawURL, transcodes it to mp3 unless it
// already is one, and returns the diarized transcript. All scratch files are
// removed before returning, on success and failure alike.
func (e *Extractor) ExtractText(ctx context.Context, rawURL, extension string) (string, error) {
	if extension == "" {
		return "", fmt.Errorf("media asset %s has no recognized extension", rawURL)
	}

	downloadPath := filepath.Join(e.scratchDir, uuid.NewString()+"."+extension)
	if err := e.downloader.Download(ctx, rawURL, downloadPath); err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	defer os.Remove(downloadPath)

	audioPath := downloadPath
	if extension != "mp3" {
		audioPath = filepath.Join(e.scratchDir, uuid.NewString()+".mp3")
		defer os.Remove(audioPath)
		if err := e.transcoder.Transcode(ctx, downloadPath, audioPath); err != nil {
			return "", fmt.Errorf("transcode media: %w", err)
		}
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio for transcription: %w", err)
	}
	defer file.Close()

	// The transcribed file is always mp3 by this point.
	result, err := e.transcriber.Transcribe(ctx, file, classify.MIMEType("mp3"), transcribe.Options{
		Diarize:     true,
		SmartFormat: true,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe media: %w", err)
	}

	transcript, err := result.SpeakerTranscript()
	if err != nil {
		return "", err
	}
	if transcript == "" {
		return "", errEmptyTranscript
	}
	return transcript, nil
}
