package platform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// defaultDownloader is the external binary used to pull audio tracks.
const defaultDownloader = "yt-dlp"

// audioExtractor shells out to the downloader binary. Shared by all
// platform handlers.
type audioExtractor struct {
	binary string
}

func newAudioExtractor() audioExtractor {
	return audioExtractor{binary: defaultDownloader}
}

// extract downloads the audio track as mp3 into outputDir and returns the
// local path. A non-zero exit, a missing file or an empty file are all
// hard errors.
func (e audioExtractor) extract(ctx context.Context, rawURL, outputDir string) (string, error) {
	name := fmt.Sprintf("audio-%s", uuid.New().String())
	template := filepath.Join(outputDir, name+".%(ext)s")
	finalPath := filepath.Join(outputDir, name+".mp3")

	cmd := exec.CommandContext(ctx, e.binary,
		"-x",
		"--audio-format", "mp3",
		"--no-playlist",
		"-o", template,
		rawURL,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		e.cleanup(finalPath)
		return "", fmt.Errorf("downloader failed: %w: %s", err, lastLine(stderr.String()))
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return "", fmt.Errorf("downloader produced no file at %s", finalPath)
	}
	if info.Size() == 0 {
		e.cleanup(finalPath)
		return "", fmt.Errorf("downloader produced an empty file at %s", finalPath)
	}

	return finalPath, nil
}

// cleanup removes the file, best effort.
func (e audioExtractor) cleanup(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
