// Package platform detects which video platform a source URL belongs to
// and provides per-platform metadata fetching and audio extraction.
package platform

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Platform names a supported video source.
type Platform string

const (
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
	Instagram Platform = "instagram"
	// Generated is assigned, not matched: requests without a source URL.
	Generated Platform = "generated"
)

// Metadata holds what a platform exposes about a video. All fields are
// optional.
type Metadata struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Handler is a platform implementation.
type Handler interface {
	Name() Platform
	Matches(rawURL string) bool
	FetchMetadata(ctx context.Context, rawURL string) (*Metadata, error)
	// ExtractAudio downloads the video's audio track into outputDir and
	// returns the local path. It fails loudly when the downloader exits
	// non-zero or produces no file.
	ExtractAudio(ctx context.Context, rawURL, outputDir string) (string, error)
	CleanDescription(text string) string
	// Cleanup removes a temp file, best effort.
	Cleanup(path string)
}

// ErrUnsupported is returned when no handler matches the URL.
var ErrUnsupported = errors.New("unsupported video platform")

// Registry holds the known platform handlers in detection order.
type Registry struct {
	handlers []Handler
}

// NewRegistry creates the default registry. The client is used for
// metadata calls; pass nil for a 10 second default.
func NewRegistry(client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Registry{handlers: []Handler{
		NewTikTokHandler(client),
		NewYouTubeHandler(client),
		NewInstagramHandler(client),
	}}
}

// Detect returns the first handler whose pattern matches the URL.
func (r *Registry) Detect(rawURL string) (Handler, error) {
	for _, h := range r.handlers {
		if h.Matches(rawURL) {
			return h, nil
		}
	}
	return nil, ErrUnsupported
}

// NormalizeURL truncates the URL at the first '?'. The normalized form is
// the canonical key for single-flight and idempotence.
func NormalizeURL(rawURL string) string {
	if i := strings.Index(rawURL, "?"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
