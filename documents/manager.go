package documents

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sergi/go-diff/diffmatchpatch"

	"policygen/main_backend/apperr"
	ds "policygen/main_backend/database_service"
)

// Store is the persistence the lifecycle manager needs.
type Store interface {
	GetDocument(ctx context.Context, id string) (*ds.Document, error)
	ListDocumentsByOwner(ctx context.Context, userID string) ([]ds.Document, error)
	FindDocumentByOwnerAndApp(ctx context.Context, userID string, appName string) (*ds.Document, error)
	FindPublishedDocument(ctx context.Context, username string, appName string) (*ds.Document, error)
	UpdateDocumentStatus(ctx context.Context, actor string, id string, status ds.DocumentStatus) (ds.Document, error)
	UpdateDocumentText(ctx context.Context, actor string, id string, privacyPolicy, termsOfService *string) (ds.Document, error)
	SetDeleteRequested(ctx context.Context, actor string, id string, at *time.Time) (ds.Document, error)
	DeleteDocument(ctx context.Context, actor string, id string) error
}

// notOwned is returned for missing documents and for documents owned by
// someone else alike, so callers cannot probe for ids.
func notOwned() *apperr.Error {
	return apperr.NotFound("document not found or access denied")
}

// Fields are the editable parts of a document. Nil fields are left as is.
type Fields struct {
	PrivacyPolicy  *string
	TermsOfService *string
}

type Manager struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewManager(store Store, log zerolog.Logger) *Manager {
	return &Manager{
		store: store,
		log:   log.With().Str("component", "documents").Logger(),
		now:   time.Now,
	}
}

// owned re-fetches the document and checks that callerID owns it.
// Admins get no bypass here.
func (m *Manager) owned(ctx context.Context, callerID, id string) (*ds.Document, error) {
	d, err := m.store.GetDocument(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if d == nil || d.UserID != callerID {
		return nil, notOwned()
	}
	return d, nil
}

// storeErr maps a failed write. A row that vanished between the ownership
// check and the write reads as not found.
func storeErr(err error) error {
	if errors.Is(err, ds.ErrNotFound) {
		return notOwned()
	}
	return apperr.Internal(err)
}

func (m *Manager) setStatus(ctx context.Context, callerID, id string, status ds.DocumentStatus) (ds.Document, error) {
	d, err := m.store.UpdateDocumentStatus(ctx, callerID, id, status)
	if err != nil {
		return ds.Document{}, storeErr(err)
	}
	m.log.Info().Str("document", id).Str("status", string(status)).Str("by", callerID).Msg("document status changed")
	return d, nil
}

// Approve moves a DRAFT or APPROVED document to APPROVED. Re-approving is
// allowed; a PUBLISHED document has to be unpublished first.
func (m *Manager) Approve(ctx context.Context, callerID, id string) (ds.Document, error) {
	d, err := m.owned(ctx, callerID, id)
	if err != nil {
		return ds.Document{}, err
	}
	if d.Status == ds.DocumentPublished {
		return ds.Document{}, apperr.StateViolation("published documents must be unpublished before approval")
	}
	return m.setStatus(ctx, callerID, id, ds.DocumentApproved)
}

// Publish makes the document visible on its public URL, from any state.
func (m *Manager) Publish(ctx context.Context, callerID, id string) (ds.Document, error) {
	if _, err := m.owned(ctx, callerID, id); err != nil {
		return ds.Document{}, err
	}
	return m.setStatus(ctx, callerID, id, ds.DocumentPublished)
}

// Unpublish returns the document to DRAFT, from any state.
func (m *Manager) Unpublish(ctx context.Context, callerID, id string) (ds.Document, error) {
	if _, err := m.owned(ctx, callerID, id); err != nil {
		return ds.Document{}, err
	}
	return m.setStatus(ctx, callerID, id, ds.DocumentDraft)
}

// Update edits the texts of a DRAFT document. The status is not changed.
func (m *Manager) Update(ctx context.Context, callerID, id string, f Fields) (ds.Document, error) {
	d, err := m.owned(ctx, callerID, id)
	if err != nil {
		return ds.Document{}, err
	}
	if d.Status != ds.DocumentDraft {
		return ds.Document{}, apperr.StateViolation("only DRAFT documents can be edited; unpublish it first")
	}
	if f.PrivacyPolicy == nil && f.TermsOfService == nil {
		return ds.Document{}, apperr.Validation("nothing to update")
	}
	for _, s := range []*string{f.PrivacyPolicy, f.TermsOfService} {
		if s != nil && strings.TrimSpace(*s) == "" {
			return ds.Document{}, apperr.Validation("document text must not be empty")
		}
	}

	updated, err := m.store.UpdateDocumentText(ctx, callerID, id, f.PrivacyPolicy, f.TermsOfService)
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			// status changed after the check above
			return ds.Document{}, apperr.StateViolation("only DRAFT documents can be edited; unpublish it first")
		}
		return ds.Document{}, apperr.Internal(err)
	}

	ev := m.log.Info().Str("document", id).Str("by", callerID)
	if f.PrivacyPolicy != nil {
		ins, del := editSize(d.PrivacyPolicy, *f.PrivacyPolicy)
		ev = ev.Dict("privacy_policy", zerolog.Dict().Int("inserted", ins).Int("deleted", del))
	}
	if f.TermsOfService != nil {
		ins, del := editSize(d.TermsOfService, *f.TermsOfService)
		ev = ev.Dict("terms_of_service", zerolog.Dict().Int("inserted", ins).Int("deleted", del))
	}
	ev.Msg("document edited")
	return updated, nil
}

// editSize counts inserted and deleted characters between two texts.
func editSize(before *string, after string) (inserted, deleted int) {
	old := ""
	if before != nil {
		old = *before
	}
	dmp := diffmatchpatch.New()
	for _, d := range dmp.DiffMain(old, after, false) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len([]rune(d.Text))
		case diffmatchpatch.DiffDelete:
			deleted += len([]rune(d.Text))
		}
	}
	return inserted, deleted
}

// Delete removes the document in any state. Its images are removed by the
// store.
func (m *Manager) Delete(ctx context.Context, callerID, id string) error {
	if _, err := m.owned(ctx, callerID, id); err != nil {
		return err
	}
	if err := m.store.DeleteDocument(ctx, callerID, id); err != nil {
		return storeErr(err)
	}
	m.log.Info().Str("document", id).Str("by", callerID).Msg("document deleted")
	return nil
}

// RequestDeletion flags the document for deletion without removing it.
func (m *Manager) RequestDeletion(ctx context.Context, callerID, id string) (ds.Document, error) {
	d, err := m.owned(ctx, callerID, id)
	if err != nil {
		return ds.Document{}, err
	}
	if d.DeleteRequestedAt != nil {
		return *d, nil
	}
	now := m.now().UTC()
	out, err := m.store.SetDeleteRequested(ctx, callerID, id, &now)
	if err != nil {
		return ds.Document{}, storeErr(err)
	}
	return out, nil
}

func (m *Manager) CancelDeletion(ctx context.Context, callerID, id string) (ds.Document, error) {
	d, err := m.owned(ctx, callerID, id)
	if err != nil {
		return ds.Document{}, err
	}
	if d.DeleteRequestedAt == nil {
		return *d, nil
	}
	out, err := m.store.SetDeleteRequested(ctx, callerID, id, nil)
	if err != nil {
		return ds.Document{}, storeErr(err)
	}
	return out, nil
}

func (m *Manager) Get(ctx context.Context, callerID, id string) (ds.Document, error) {
	d, err := m.owned(ctx, callerID, id)
	if err != nil {
		return ds.Document{}, err
	}
	return *d, nil
}

func (m *Manager) ListMine(ctx context.Context, callerID string) ([]ds.Document, error) {
	docs, err := m.store.ListDocumentsByOwner(ctx, callerID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return docs, nil
}

// ByApp returns the caller's first document for appName, or nil.
func (m *Manager) ByApp(ctx context.Context, callerID, appName string) (*ds.Document, error) {
	d, err := m.store.FindDocumentByOwnerAndApp(ctx, callerID, appName)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return d, nil
}

// Public looks up a PUBLISHED document by its owner's username and app name.
func (m *Manager) Public(ctx context.Context, username, appName string) (ds.Document, error) {
	d, err := m.store.FindPublishedDocument(ctx, username, appName)
	if err != nil {
		return ds.Document{}, apperr.Internal(err)
	}
	if d == nil {
		return ds.Document{}, apperr.NotFound("document not found")
	}
	return *d, nil
}
