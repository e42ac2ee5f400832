package platform

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
)

var youtubePattern = regexp.MustCompile(`^https?://((www|m)\.)?(youtube\.com|youtu\.be)/`)

// YouTubeHandler serves YouTube video and Shorts URLs. Metadata comes
// from the public oEmbed endpoint.
type YouTubeHandler struct {
	client *http.Client
	audio  audioExtractor
}

func NewYouTubeHandler(client *http.Client) *YouTubeHandler {
	return &YouTubeHandler{client: client, audio: newAudioExtractor()}
}

func (h *YouTubeHandler) Name() Platform {
	return YouTube
}

func (h *YouTubeHandler) Matches(rawURL string) bool {
	return youtubePattern.MatchString(rawURL)
}

func (h *YouTubeHandler) FetchMetadata(ctx context.Context, rawURL string) (*Metadata, error) {
	endpoint := "https://www.youtube.com/oembed?format=json&url=" + url.QueryEscape(rawURL)
	return fetchOEmbed(ctx, h.client, endpoint)
}

func (h *YouTubeHandler) ExtractAudio(ctx context.Context, rawURL, outputDir string) (string, error) {
	return h.audio.extract(ctx, rawURL, outputDir)
}

// CleanDescription strips hashtags, chapter timestamps and embedded
// links, which YouTube titles and descriptions are full of.
func (h *YouTubeHandler) CleanDescription(text string) string {
	return stripHashtags(stripTimestamps(stripURLs(text)))
}

func (h *YouTubeHandler) Cleanup(path string) {
	h.audio.cleanup(path)
}
