// Package documents generates Privacy Policy and Terms of Service pairs and
// runs their DRAFT, APPROVED, PUBLISHED lifecycle.
package documents

import (
	"context"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"policygen/main_backend/apperr"
	ds "policygen/main_backend/database_service"
	"policygen/main_backend/llm"
	"policygen/main_backend/questionnaire"
)

// GeneratorStore is the persistence the generator needs.
type GeneratorStore interface {
	CreateDocument(ctx context.Context, actor string, d ds.Document) (ds.Document, error)
	RecordUsage(ctx context.Context, u ds.APIUsage) error
}

type Generator struct {
	store   GeneratorStore
	text    llm.Provider
	catalog *questionnaire.Catalog
	log     zerolog.Logger
	now     func() time.Time
}

func NewGenerator(store GeneratorStore, text llm.Provider, catalog *questionnaire.Catalog, log zerolog.Logger) *Generator {
	return &Generator{
		store:   store,
		text:    text,
		catalog: catalog,
		log:     log.With().Str("component", "generator").Logger(),
		now:     time.Now,
	}
}

// CreateDocument asks the text service for a privacy policy and then for
// terms of service, and stores both as a new DRAFT document. Nothing is
// stored unless both texts were produced.
func (g *Generator) CreateDocument(ctx context.Context, ownerID string, appName string, appData map[string]string) (ds.Document, error) {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return ds.Document{}, apperr.Validation("app name is required")
	}
	fields := newPromptFields(g.catalog, appData, g.now())

	privacy, pResp, err := g.complete(ctx, privacyTemplate, fields)
	if err != nil {
		return ds.Document{}, apperr.Upstream("failed to generate privacy policy", err)
	}
	terms, tResp, err := g.complete(ctx, termsTemplate, fields)
	if err != nil {
		return ds.Document{}, apperr.Upstream("failed to generate terms of service", err)
	}

	doc, err := g.store.CreateDocument(ctx, ownerID, ds.Document{
		UserID:         ownerID,
		AppName:        appName,
		PrivacyPolicy:  &privacy,
		TermsOfService: &terms,
		Status:         ds.DocumentDraft,
	})
	if err != nil {
		return ds.Document{}, apperr.Internal(err)
	}
	g.log.Info().Str("document", doc.ID).Str("owner", ownerID).Str("app", appName).Msg("document generated")

	g.recordUsage(ctx, ownerID, doc.ID, "privacy_policy", pResp)
	g.recordUsage(ctx, ownerID, doc.ID, "terms_of_service", tResp)
	return doc, nil
}

func (g *Generator) complete(ctx context.Context, t *template.Template, f promptFields) (string, *llm.Response, error) {
	prompt, err := render(t, f)
	if err != nil {
		return "", nil, err
	}
	resp, err := g.text.Complete(ctx, &llm.Request{SystemPrompt: systemPrompt, UserPrompt: prompt, Temperature: 0.3})
	if err != nil {
		return "", nil, err
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", nil, apperr.Upstream("empty response from text generation", nil)
	}
	return content, resp, nil
}

// recordUsage is best effort: a failure is logged and dropped.
func (g *Generator) recordUsage(ctx context.Context, ownerID, docID, operation string, resp *llm.Response) {
	err := g.store.RecordUsage(ctx, ds.APIUsage{
		UserID:       &ownerID,
		DocumentID:   &docID,
		Operation:    operation,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CostUSD:      llm.TextCost(resp.Model, resp.InputTokens, resp.OutputTokens),
	})
	if err != nil {
		g.log.Warn().Err(err).Str("document", docID).Str("operation", operation).Msg("failed to record api usage")
	}
}
