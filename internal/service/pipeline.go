package service

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/snapdish/backend/internal/service/platform"
	"github.com/snapdish/backend/internal/types"
)

// AnalysisResult is the output of a full video analysis run.
type AnalysisResult struct {
	Draft    *RecipeDraft
	Metadata *platform.Metadata
}

// GenerationResult is the output of a preference-based generation run.
// ImageData is nil when illustration failed or is disabled.
type GenerationResult struct {
	Draft     *RecipeDraft
	ImageData []byte
}

// Pipeline chains the per-stage services: audio download, transcription
// and recipe extraction for videos, or direct generation from
// preferences.
type Pipeline struct {
	transcriber *TranscriptionService
	extractor   *RecipeExtractor
	images      *ImageService
	workDir     string
}

// NewPipeline creates a Pipeline instance. images may be nil, in which
// case generated recipes are saved without an illustration.
func NewPipeline(transcriber *TranscriptionService, extractor *RecipeExtractor, images *ImageService) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		extractor:   extractor,
		images:      images,
		workDir:     os.TempDir(),
	}
}

// AnalyzeVideo runs the video pipeline for an already-detected platform
// handler. Metadata failure is tolerated; every later stage is fatal.
func (p *Pipeline) AnalyzeVideo(ctx context.Context, handler platform.Handler, rawURL, language string) (*AnalysisResult, error) {
	meta, err := handler.FetchMetadata(ctx, rawURL)
	if err != nil {
		log.Printf("[Pipeline] Metadata fetch failed for %s, continuing without: %v", handler.Name(), err)
		meta = nil
	}

	audioPath, err := handler.ExtractAudio(ctx, rawURL, p.workDir)
	if err != nil {
		return nil, fmt.Errorf("audio extraction failed: %w", err)
	}
	defer handler.Cleanup(audioPath)

	transcript, err := p.transcriber.Transcribe(ctx, audioPath, language)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	log.Printf("[Pipeline] Transcribed %s audio (%d chars)", handler.Name(), len(transcript))

	description := ""
	if meta != nil && meta.Title != "" {
		description = handler.CleanDescription(meta.Title)
	}

	draft, err := p.extractor.ExtractRecipe(ctx, transcript, description, language)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{Draft: draft, Metadata: meta}, nil
}

// GenerateFromPreferences runs the generation pipeline. Illustration
// failure is demoted to a warning; the recipe is saved without an image.
func (p *Pipeline) GenerateFromPreferences(ctx context.Context, req *types.GenerateRequest) (*GenerationResult, error) {
	draft, err := p.extractor.GenerateRecipe(ctx, req)
	if err != nil {
		return nil, err
	}

	var imageData []byte
	if p.images != nil {
		imageData, err = p.images.GenerateRecipeImage(ctx, draft)
		if err != nil {
			log.Printf("[Pipeline] Image generation failed, saving recipe without image: %v", err)
			imageData = nil
		}
	}

	return &GenerationResult{Draft: draft, ImageData: imageData}, nil
}
