// Package images generates marketing assets for a document and keeps them
// on the CDN.
package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"policygen/main_backend/apperr"
	"policygen/main_backend/cdn"
	ds "policygen/main_backend/database_service"
	"policygen/main_backend/llm"
	"policygen/main_backend/retry"
)

// Dimensions returns the fixed target size of an asset type.
func Dimensions(t ds.ImageType) (cdn.Dimensions, error) {
	switch t {
	case ds.ImageAppIcon:
		return cdn.Dimensions{Width: 1152, Height: 1152}, nil
	case ds.ImageFeatureGraphic:
		return cdn.Dimensions{Width: 1024, Height: 500}, nil
	case ds.ImageStoreScreenshot:
		return cdn.Dimensions{Width: 1080, Height: 1920}, nil
	default:
		return cdn.Dimensions{}, apperr.Validation(fmt.Sprintf("unknown image type %q", t))
	}
}

type Store interface {
	GetDocument(ctx context.Context, id string) (*ds.Document, error)
	CreateAppImage(ctx context.Context, actor string, im ds.AppImage) (ds.AppImage, error)
	GetAppImage(ctx context.Context, id string) (*ds.AppImage, error)
	ListAppImages(ctx context.Context, documentID string) ([]ds.AppImage, error)
	DeleteAppImage(ctx context.Context, actor string, id string) error
	RecordUsage(ctx context.Context, u ds.APIUsage) error
}

// Uploader is the blob store the generated images go to.
type Uploader interface {
	Upload(ctx context.Context, data []byte, folder, id string, dims *cdn.Dimensions) (*cdn.Asset, error)
	Delete(ctx context.Context, publicID string) (bool, error)
}

// Request describes one asset to generate.
type Request struct {
	Type        ds.ImageType
	AppName     string
	Description string
	Style       string
	Prompt      string
	References  []llm.InlineData
}

// RetryConfig bounds the retries on rate limiting.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

type Orchestrator struct {
	store    Store
	gen      llm.ImageGenerator
	uploader Uploader
	retry    RetryConfig
	log      zerolog.Logger
}

// NewOrchestrator wires the image pipeline. uploader may be nil when no CDN
// is configured; Create then fails with an upstream error.
func NewOrchestrator(store Store, gen llm.ImageGenerator, uploader Uploader, rc RetryConfig, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		gen:      gen,
		uploader: uploader,
		retry:    rc,
		log:      log.With().Str("component", "images").Logger(),
	}
}

// Generate runs the remote generation for req. Reference images travel in
// the same request as the prompt. Only rate limiting is retried.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*llm.InlineData, error) {
	dims, err := Dimensions(req.Type)
	if err != nil {
		return nil, err
	}
	if req.Type == ds.ImageStoreScreenshot && len(req.References) == 0 {
		return nil, apperr.Validation("a store screenshot needs at least one reference image")
	}
	if o.gen == nil {
		return nil, apperr.Upstream("image generation is not configured", nil)
	}

	parts := make([]llm.Part, 0, len(req.References)+1)
	parts = append(parts, llm.Part{Text: buildPrompt(req, dims)})
	for i := range req.References {
		parts = append(parts, llm.Part{InlineData: &req.References[i]})
	}

	policy := retry.Policy{
		MaxRetries: o.retry.MaxRetries,
		Backoff:    retry.Linear(o.retry.BaseDelay),
		Retryable:  llm.IsRateLimited,
		OnRetry: func(n int, wait time.Duration, err error) {
			o.log.Warn().Err(err).Int("retry", n).Dur("wait", wait).Str("type", string(req.Type)).Msg("image generation rate limited")
		},
	}
	img, err := retry.Do(ctx, policy, func(ctx context.Context) (*llm.InlineData, error) {
		return o.gen.GenerateImage(ctx, parts)
	})
	if err != nil {
		return nil, apperr.Upstream("image generation failed", err)
	}
	return img, nil
}

func (o *Orchestrator) ownedDocument(ctx context.Context, callerID, documentID string) (*ds.Document, error) {
	d, err := o.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if d == nil || d.UserID != callerID {
		return nil, apperr.NotFound("document not found or access denied")
	}
	return d, nil
}

// Create generates an asset for one of the caller's documents, uploads it,
// and records it.
func (o *Orchestrator) Create(ctx context.Context, callerID, documentID string, req Request) (ds.AppImage, error) {
	doc, err := o.ownedDocument(ctx, callerID, documentID)
	if err != nil {
		return ds.AppImage{}, err
	}
	if strings.TrimSpace(req.AppName) == "" {
		req.AppName = doc.AppName
	}
	dims, err := Dimensions(req.Type)
	if err != nil {
		return ds.AppImage{}, err
	}
	if o.uploader == nil {
		return ds.AppImage{}, apperr.Upstream("image storage is not configured", nil)
	}

	img, err := o.Generate(ctx, req)
	if err != nil {
		return ds.AppImage{}, err
	}

	folder := fmt.Sprintf("app-images/%s/%s", documentID, req.Type)
	asset, err := o.uploader.Upload(ctx, img.Data, folder, uuid.NewString(), &dims)
	if err != nil {
		return ds.AppImage{}, apperr.Upstream("image upload failed", err)
	}
	width, height := asset.Width, asset.Height
	if width == 0 || height == 0 {
		width, height = dims.Width, dims.Height
	}

	var prompt *string
	if p := strings.TrimSpace(req.Prompt); p != "" {
		prompt = &p
	}
	saved, err := o.store.CreateAppImage(ctx, callerID, ds.AppImage{
		DocumentID: documentID,
		Type:       req.Type,
		Style:      req.Style,
		Prompt:     prompt,
		URL:        asset.URL,
		PublicID:   asset.PublicID,
		Width:      width,
		Height:     height,
	})
	if err != nil {
		return ds.AppImage{}, apperr.Internal(err)
	}
	o.log.Info().Str("image", saved.ID).Str("document", documentID).Str("type", string(req.Type)).Msg("image created")

	o.recordUsage(ctx, callerID, documentID, req.Type)
	return saved, nil
}

// recordUsage is best effort: a failure is logged and dropped.
func (o *Orchestrator) recordUsage(ctx context.Context, callerID, documentID string, t ds.ImageType) {
	model := o.gen.Model()
	err := o.store.RecordUsage(ctx, ds.APIUsage{
		UserID:     &callerID,
		DocumentID: &documentID,
		Operation:  "image:" + strings.ToLower(string(t)),
		Model:      model,
		Images:     1,
		CostUSD:    llm.ImageCost(model, 1),
	})
	if err != nil {
		o.log.Warn().Err(err).Str("document", documentID).Msg("failed to record api usage")
	}
}

func (o *Orchestrator) List(ctx context.Context, callerID, documentID string) ([]ds.AppImage, error) {
	if _, err := o.ownedDocument(ctx, callerID, documentID); err != nil {
		return nil, err
	}
	out, err := o.store.ListAppImages(ctx, documentID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// Delete removes an image. The CDN copy is removed best effort; the record
// is deleted even when that fails.
func (o *Orchestrator) Delete(ctx context.Context, callerID, imageID string) error {
	im, err := o.store.GetAppImage(ctx, imageID)
	if err != nil {
		return apperr.Internal(err)
	}
	if im == nil {
		return apperr.NotFound("image not found or access denied")
	}
	if _, err := o.ownedDocument(ctx, callerID, im.DocumentID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.NotFound("image not found or access denied")
		}
		return err
	}

	if o.uploader != nil {
		ok, err := o.uploader.Delete(ctx, im.PublicID)
		switch {
		case err != nil:
			o.log.Warn().Err(err).Str("image", imageID).Str("public_id", im.PublicID).Msg("cdn delete failed")
		case !ok:
			o.log.Warn().Str("image", imageID).Str("public_id", im.PublicID).Msg("cdn did not know the asset")
		}
	}

	if err := o.store.DeleteAppImage(ctx, callerID, imageID); err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return apperr.NotFound("image not found or access denied")
		}
		return apperr.Internal(err)
	}
	return nil
}

// ParseReference decodes a reference image given as a data URL
// ("data:image/png;base64,...") or as bare base64, which is taken as PNG.
func ParseReference(s string) (llm.InlineData, error) {
	mime := "image/png"
	payload := strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return llm.InlineData{}, apperr.Validation("reference image must be a base64 data URL")
		}
		mime = strings.TrimSuffix(meta, ";base64")
		payload = data
	}
	if !strings.HasPrefix(mime, "image/") {
		return llm.InlineData{}, apperr.Validation(fmt.Sprintf("reference image has unsupported type %q", mime))
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return llm.InlineData{}, apperr.Validation("reference image is not valid base64")
	}
	if len(data) == 0 {
		return llm.InlineData{}, apperr.Validation("reference image is empty")
	}
	return llm.InlineData{MimeType: mime, Data: data}, nil
}
