// Package wardrobe ties the rating, extraction and storage layers together:
// it rates outfit photos, tags them, and applies user edits to the tags.
package wardrobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hurttlocker/ratemyfit/internal/extract"
	"github.com/hurttlocker/ratemyfit/internal/feedback"
	"github.com/hurttlocker/ratemyfit/internal/store"
)

// Service errors.
var (
	ErrNotFound        = errors.New("outfit not found")
	ErrIndexOutOfRange = errors.New("item index out of range")
	ErrInvalidTag      = errors.New("tag rejected")
)

// EntryStore is the persistence the service needs.
type EntryStore interface {
	CreateEntry(ctx context.Context, e *store.WardrobeEntry) (string, error)
	GetEntry(ctx context.Context, id string) (*store.WardrobeEntry, error)
	ListEntries(ctx context.Context, userID string) ([]*store.WardrobeEntry, error)
	UpdateExtractedItems(ctx context.Context, id string, items []extract.ExtractedItem) error
	UpdateExtractedItem(ctx context.Context, id string, index int, item extract.ExtractedItem) error
	RemoveExtractedItem(ctx context.Context, id string, index int) error
	DeleteEntry(ctx context.Context, id string) error
}

// Service orchestrates outfit rating and tagging.
type Service struct {
	store    EntryStore
	pipeline *extract.Pipeline
	analyzer *feedback.Analyzer
	logger   *slog.Logger
}

// NewService creates a service. A nil analyzer rates every photo with the
// fallback response; a nil logger discards output.
func NewService(st EntryStore, pipeline *extract.Pipeline, analyzer *feedback.Analyzer, logger *slog.Logger) *Service {
	if pipeline == nil {
		pipeline = extract.NewPipeline()
	}
	if analyzer == nil {
		analyzer = feedback.NewAnalyzer(nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: st, pipeline: pipeline, analyzer: analyzer, logger: logger}
}

// RateRequest is a photo to rate and store.
type RateRequest struct {
	UserID   string `json:"user_id" validate:"required,max=128"`
	ImageRef string `json:"image_ref,omitempty" validate:"max=1024"`
	feedback.AnalysisRequest
}

// RateResult is a stored, tagged rating.
type RateResult struct {
	Entry    *store.WardrobeEntry `json:"entry"`
	Path     feedback.Path        `json:"path"`
	Problems []string             `json:"problems,omitempty"`
	Stats    extract.Stats        `json:"stats"`
}

// Rate analyzes the photo, stores the rating, then tags it. The analysis
// never fails; only storage errors are returned.
func (s *Service) Rate(ctx context.Context, req RateRequest) (*RateResult, error) {
	analysis := s.analyzer.Analyze(ctx, req.AnalysisRequest)

	entry := &store.WardrobeEntry{
		UserID:       req.UserID,
		ImageRef:     req.ImageRef,
		Score:        analysis.Response.Score,
		Feedback:     analysis.Response.Feedback,
		Suggestions:  analysis.Response.Suggestions,
		FeedbackMode: string(feedback.ParseMode(string(req.Mode))),
	}
	if _, err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("storing rating: %w", err)
	}

	tagged, res, err := s.tag(ctx, entry, req.Gender)
	if err != nil {
		return nil, err
	}
	return &RateResult{Entry: tagged, Path: analysis.Path, Problems: analysis.Problems, Stats: res.Stats}, nil
}

// Tag re-runs extraction on a stored rating and writes the items back.
// The write is last-write-wins.
func (s *Service) Tag(ctx context.Context, entryID, gender string) (*store.WardrobeEntry, extract.Result, error) {
	entry, err := s.Get(ctx, entryID)
	if err != nil {
		return nil, extract.Result{}, err
	}
	return s.tag(ctx, entry, gender)
}

func (s *Service) tag(ctx context.Context, entry *store.WardrobeEntry, gender string) (*store.WardrobeEntry, extract.Result, error) {
	res := s.pipeline.Extract(ctx, extract.Input{
		Feedback:    entry.Feedback,
		Suggestions: entry.Suggestions,
		Gender:      gender,
	})
	if err := s.store.UpdateExtractedItems(ctx, entry.ID, res.Items); err != nil {
		return nil, res, s.mapErr(err)
	}
	s.logger.Info("outfit tagged",
		"entry_id", entry.ID,
		"run_id", res.RunID,
		"items", len(res.Items),
		"source_errors", len(res.Stats.SourceErrors))

	updated, err := s.Get(ctx, entry.ID)
	if err != nil {
		return nil, res, err
	}
	return updated, res, nil
}

// Get returns an entry or ErrNotFound.
func (s *Service) Get(ctx context.Context, entryID string) (*store.WardrobeEntry, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%s: %w", entryID, ErrNotFound)
	}
	return entry, nil
}

// List returns a user's entries, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*store.WardrobeEntry, error) {
	return s.store.ListEntries(ctx, userID)
}

// RemoveItem deletes the item at index.
func (s *Service) RemoveItem(ctx context.Context, entryID string, index int) (*store.WardrobeEntry, error) {
	if err := s.store.RemoveExtractedItem(ctx, entryID, index); err != nil {
		return nil, s.mapErr(err)
	}
	return s.Get(ctx, entryID)
}

// RenameItem replaces the name of the item at index. The new name goes
// through the same grammar enforcement as extracted tags; a repairable name
// is stored in corrected form, an unrepairable one fails with ErrInvalidTag.
func (s *Service) RenameItem(ctx context.Context, entryID string, index int, name string) (*store.WardrobeEntry, error) {
	v := s.pipeline.Enforcer().Check(name)
	if !v.IsValid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTag, strings.Join(v.Errors, "; "))
	}

	entry, err := s.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(entry.Items) {
		return nil, fmt.Errorf("index %d of %d: %w", index, len(entry.Items), ErrIndexOutOfRange)
	}

	item := entry.Items[index]
	item.Name = v.CorrectedTag
	item.Category = extract.Categorize(v.CorrectedTag)
	if err := s.store.UpdateExtractedItem(ctx, entryID, index, item); err != nil {
		return nil, s.mapErr(err)
	}
	return s.Get(ctx, entryID)
}

// Delete removes an outfit with its items.
func (s *Service) Delete(ctx context.Context, entryID string) error {
	return s.mapErr(s.store.DeleteEntry(ctx, entryID))
}

func (s *Service) mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrIndexOutOfRange):
		return fmt.Errorf("%w: %v", ErrIndexOutOfRange, err)
	}
	return err
}
