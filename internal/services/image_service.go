package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/baharkarakas/imagegen-backend/internal/apperr"
	"github.com/baharkarakas/imagegen-backend/internal/generation"
	"github.com/baharkarakas/imagegen-backend/internal/metrics"
	"github.com/baharkarakas/imagegen-backend/internal/models"
	repo "github.com/baharkarakas/imagegen-backend/internal/repository"
)

const (
	PublicListLimit = 20
	MaxPromptLength = 1000
)

// ImageService owns the image rules: who may see, like and delete an image.
type ImageService struct {
	images repo.Images
	audit  repo.AuditLogs
	gen    generation.Gateway
}

func NewImageService(i repo.Images, a repo.AuditLogs, g generation.Gateway) *ImageService {
	return &ImageService{images: i, audit: a, gen: g}
}

// Generate asks the gateway for an image and stores it for requester.
func (s *ImageService) Generate(ctx context.Context, prompt string, requester models.Identity) (models.Image, error) {
	if err := checkPrompt(prompt); err != nil {
		return models.Image{}, err
	}
	return s.CreateFromGeneration(ctx, prompt, requester, s.gen.Generate(ctx, prompt))
}

// CreateFromGeneration persists a public image owned by requester with tags
// derived from prompt.
func (s *ImageService) CreateFromGeneration(ctx context.Context, prompt string, requester models.Identity, res generation.Result) (models.Image, error) {
	if err := checkPrompt(prompt); err != nil {
		return models.Image{}, err
	}
	img, err := s.images.Create(ctx, models.Image{
		Prompt:     prompt,
		ImageURL:   res.ImageURL,
		CreatedBy:  models.UserRef{ID: requester.ID, Username: requester.Username},
		Likes:      []string{},
		Public:     true,
		Tags:       models.DeriveTags(prompt),
		IsFallback: res.IsFallback,
	})
	if err != nil {
		return models.Image{}, storeErr(err, "could not save image")
	}

	metrics.ImagesGenerated.WithLabelValues(strconv.FormatBool(img.IsFallback)).Inc()
	writeAudit(ctx, s.audit, models.AuditLog{
		EntityType: "image",
		EntityID:   img.ID,
		ActorID:    &requester.ID,
		Action:     models.AuditImageCreated,
		Details:    map[string]any{"is_fallback": img.IsFallback},
	})
	return img, nil
}

func (s *ImageService) ListPublic(ctx context.Context) ([]models.Image, error) {
	imgs, err := s.images.ListPublic(ctx, PublicListLimit)
	if err != nil {
		return nil, storeErr(err, "could not list images")
	}
	return imgs, nil
}

// ListOwnedBy returns every image of userID. Callers authenticate userID.
func (s *ImageService) ListOwnedBy(ctx context.Context, userID string) ([]models.Image, error) {
	imgs, err := s.images.ListByOwner(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "could not list images")
	}
	return imgs, nil
}

// GetByID returns the image if requester may see it. requester is nil for
// anonymous callers.
func (s *ImageService) GetByID(ctx context.Context, id string, requester *models.Identity) (models.Image, error) {
	img, err := s.images.GetByID(ctx, id)
	if err != nil {
		return models.Image{}, storeErr(err, "could not load image")
	}
	if !img.VisibleTo(requester) {
		return models.Image{}, apperr.New(apperr.ErrForbidden, "Not authorized to view this image")
	}
	return img, nil
}

// ToggleLike flips requester's like and returns the resulting set.
func (s *ImageService) ToggleLike(ctx context.Context, id string, requester models.Identity) ([]string, error) {
	likes, err := s.images.ToggleLike(ctx, id, requester.ID)
	if err != nil {
		return nil, storeErr(err, "could not update likes")
	}

	action, label := models.AuditImageUnliked, "unliked"
	if models.HasLike(likes, requester.ID) {
		action, label = models.AuditImageLiked, "liked"
	}
	metrics.LikesToggled.WithLabelValues(label).Inc()
	writeAudit(ctx, s.audit, models.AuditLog{
		EntityType: "image",
		EntityID:   id,
		ActorID:    &requester.ID,
		Action:     action,
	})
	return likes, nil
}

func (s *ImageService) Delete(ctx context.Context, id string, requester models.Identity) error {
	img, err := s.images.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "could not load image")
	}
	if !img.DeletableBy(requester) {
		return apperr.New(apperr.ErrForbidden, "Not authorized to delete this image")
	}
	if err := s.images.Delete(ctx, id); err != nil {
		return storeErr(err, "could not delete image")
	}

	metrics.ImagesDeleted.Inc()
	writeAudit(ctx, s.audit, models.AuditLog{
		EntityType: "image",
		EntityID:   id,
		ActorID:    &requester.ID,
		Action:     models.AuditImageDeleted,
		Details:    map[string]any{"owner_id": img.CreatedBy.ID},
	})
	return nil
}

func checkPrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return apperr.New(apperr.ErrInvalidArgument, "Please provide a prompt")
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return apperr.New(apperr.ErrInvalidArgument, "Prompt is too long")
	}
	return nil
}

// storeErr passes classified repository errors through and reports anything
// else as Unavailable.
func storeErr(err error, msg string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Wrap(apperr.ErrUnavailable, msg, err)
}
