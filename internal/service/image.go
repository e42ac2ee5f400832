package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// ImageGenerationRequest represents a request to the DALL-E API
type ImageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	ResponseFormat string `json:"response_format"`
}

// ImageGenerationResponse represents the response from the DALL-E API
type ImageGenerationResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
}

// ImageService generates an illustration for recipes built without a
// source video. It returns raw image bytes; storage is the caller's
// concern.
type ImageService struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
}

// NewImageService creates a new ImageService instance
func NewImageService(apiKey, model string) (*ImageService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY must be set for image generation")
	}
	apiURL := os.Getenv("OPENAI_IMAGES_API_URL")
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1/images/generations"
	}
	if model == "" {
		model = "dall-e-3"
	}
	return &ImageService{
		apiKey: apiKey,
		apiURL: apiURL,
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// GenerateRecipeImage generates a food photograph for the draft and
// returns the image bytes.
func (s *ImageService) GenerateRecipeImage(ctx context.Context, draft *RecipeDraft) ([]byte, error) {
	prompt := buildRecipeImagePrompt(draft)
	log.Printf("[ImageService] Generating image for recipe %q", draft.Title)

	const maxRetries = 3
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		data, err := s.generateImageAttempt(ctx, prompt)
		if err == nil {
			return data, nil
		}
		lastErr = err
		log.Printf("[ImageService] Attempt %d/%d failed: %v", attempt, maxRetries, err)
		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return nil, fmt.Errorf("failed to generate image after %d attempts: %w", maxRetries, lastErr)
}

func (s *ImageService) generateImageAttempt(ctx context.Context, prompt string) ([]byte, error) {
	reqBody := ImageGenerationRequest{
		Model:          s.model,
		Prompt:         prompt,
		N:              1,
		Size:           "1024x1024",
		Quality:        "standard", // standard quality to control costs
		ResponseFormat: "b64_json",
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result ImageGenerationResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("no image data in API response")
	}

	if b64 := result.Data[0].B64JSON; b64 != "" {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data: %w", err)
		}
		return data, nil
	}

	// Some deployments ignore response_format and return a URL.
	if imageURL := result.Data[0].URL; imageURL != "" {
		return s.downloadImage(ctx, imageURL)
	}

	return nil, fmt.Errorf("empty image payload in API response")
}

func (s *ImageService) downloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image, status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// buildRecipeImagePrompt creates a food photography prompt from the draft
func buildRecipeImagePrompt(draft *RecipeDraft) string {
	var b strings.Builder
	b.WriteString("A professional food photography shot of ")
	b.WriteString(strings.ToLower(draft.Title))
	if draft.CuisineOrigin != nil {
		fmt.Fprintf(&b, ", %s style", strings.ToLower(*draft.CuisineOrigin))
	}
	b.WriteString(", shot with natural lighting, shallow depth of field, garnished beautifully, restaurant quality presentation, appetizing colors")

	prompt := b.String()
	if len(prompt) > 900 {
		prompt = prompt[:900]
	}
	return prompt
}
