package platform

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
)

var tiktokPattern = regexp.MustCompile(`^https?://((www|vm|vt)\.)?tiktok\.com/`)

// TikTokHandler serves TikTok video URLs. Metadata comes from the public
// oEmbed endpoint.
type TikTokHandler struct {
	client *http.Client
	audio  audioExtractor
}

func NewTikTokHandler(client *http.Client) *TikTokHandler {
	return &TikTokHandler{client: client, audio: newAudioExtractor()}
}

func (h *TikTokHandler) Name() Platform {
	return TikTok
}

func (h *TikTokHandler) Matches(rawURL string) bool {
	return tiktokPattern.MatchString(rawURL)
}

func (h *TikTokHandler) FetchMetadata(ctx context.Context, rawURL string) (*Metadata, error) {
	endpoint := "https://www.tiktok.com/oembed?url=" + url.QueryEscape(rawURL)
	return fetchOEmbed(ctx, h.client, endpoint)
}

func (h *TikTokHandler) ExtractAudio(ctx context.Context, rawURL, outputDir string) (string, error) {
	return h.audio.extract(ctx, rawURL, outputDir)
}

// CleanDescription strips the hashtag soup TikTok captions carry.
func (h *TikTokHandler) CleanDescription(text string) string {
	return stripHashtags(text)
}

func (h *TikTokHandler) Cleanup(path string) {
	h.audio.cleanup(path)
}
