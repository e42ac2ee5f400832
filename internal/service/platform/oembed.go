package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// oembedResponse is the subset of the oEmbed payload we keep.
type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// fetchOEmbed queries an oEmbed endpoint and maps the payload to Metadata.
func fetchOEmbed(ctx context.Context, client *http.Client, endpoint string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oEmbed request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oEmbed request failed with status %d", resp.StatusCode)
	}

	var payload oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode oEmbed response: %w", err)
	}

	return &Metadata{
		Title:        payload.Title,
		Author:       payload.AuthorName,
		AuthorURL:    payload.AuthorURL,
		ThumbnailURL: payload.ThumbnailURL,
	}, nil
}
