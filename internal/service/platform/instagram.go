package platform

import (
	"context"
	"net/http"
	"regexp"
)

var instagramPattern = regexp.MustCompile(`^https?://(www\.)?instagram\.com/(reel|reels|p|tv)/`)

// InstagramHandler serves Instagram Reels and post URLs. Instagram has no
// open oEmbed endpoint, so metadata comes from an Open-Graph scrape.
type InstagramHandler struct {
	client *http.Client
	audio  audioExtractor
}

func NewInstagramHandler(client *http.Client) *InstagramHandler {
	return &InstagramHandler{client: client, audio: newAudioExtractor()}
}

func (h *InstagramHandler) Name() Platform {
	return Instagram
}

func (h *InstagramHandler) Matches(rawURL string) bool {
	return instagramPattern.MatchString(rawURL)
}

func (h *InstagramHandler) FetchMetadata(ctx context.Context, rawURL string) (*Metadata, error) {
	return scrapeOpenGraph(ctx, h.client, rawURL)
}

func (h *InstagramHandler) ExtractAudio(ctx context.Context, rawURL, outputDir string) (string, error) {
	return h.audio.extract(ctx, rawURL, outputDir)
}

// CleanDescription strips hashtags and embedded links from captions.
func (h *InstagramHandler) CleanDescription(text string) string {
	return stripHashtags(stripURLs(text))
}

func (h *InstagramHandler) Cleanup(path string) {
	h.audio.cleanup(path)
}
