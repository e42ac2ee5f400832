package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAudioFailsLoudlyWithoutDownloader(t *testing.T) {
	ex := audioExtractor{binary: "definitely-not-installed-downloader"}
	_, err := ex.extract(context.Background(), "https://youtu.be/abc", t.TempDir())
	assert.Error(t, err)
}

func TestCleanupToleratesMissingFile(t *testing.T) {
	ex := newAudioExtractor()
	ex.cleanup("/nonexistent/audio-file.mp3")
	ex.cleanup("")
}
