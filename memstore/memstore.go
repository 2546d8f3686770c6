// Package memstore is an in-memory stand-in for the Postgres store, used by
// tests and by `serve --memory` for local runs without a database.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	ds "policygen/main_backend/database_service"
)

type Store struct {
	mu        sync.Mutex
	users     map[string]ds.User
	answers   map[string]map[string]ds.Answer
	documents map[string]ds.Document
	images    map[string]ds.AppImage
	usage     []ds.APIUsage

	// seq orders rows created within the same clock tick.
	seq  int64
	now  func() time.Time
	born map[string]int64

	// FailUsage makes RecordUsage fail, for best-effort accounting tests.
	FailUsage error
}

func New() *Store {
	return &Store{
		users:     map[string]ds.User{},
		answers:   map[string]map[string]ds.Answer{},
		documents: map[string]ds.Document{},
		images:    map[string]ds.AppImage{},
		born:      map[string]int64{},
		now:       time.Now,
	}
}

func (s *Store) stamp(id string) time.Time {
	s.seq++
	s.born[id] = s.seq
	return s.now().UTC()
}

func (s *Store) CreateUser(_ context.Context, _ string, u ds.User) (ds.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.users {
		if strings.EqualFold(x.Email, u.Email) || strings.EqualFold(x.Username, u.Username) {
			return ds.User{}, ds.ErrConflict
		}
	}
	if u.Status == "" {
		u.Status = ds.UserPending
	}
	u.ID = uuid.NewString()
	u.CreatedAt = s.stamp(u.ID)
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*ds.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*ds.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateUserStatus(_ context.Context, _ string, id string, status ds.UserStatus) (ds.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ds.User{}, ds.ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = s.now().UTC()
	s.users[id] = u
	return u, nil
}

func (s *Store) FindUsers(_ context.Context, f ds.UserFilter, limit int, offset int) ([]ds.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []ds.User{}
	for _, u := range s.users {
		if f.StatusEquals != nil && u.Status != *f.StatusEquals {
			continue
		}
		if f.CreatedAfter != nil && u.CreatedAt.Before(*f.CreatedAfter) {
			continue
		}
		if f.CreatedBefore != nil && u.CreatedAt.After(*f.CreatedBefore) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return s.born[out[i].ID] < s.born[out[j].ID] })
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SaveAnswers(_ context.Context, _ string, userID string, answers []ds.Answer) ([]ds.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil, ds.ErrNotFound
	}
	m := s.answers[userID]
	if m == nil {
		m = map[string]ds.Answer{}
		s.answers[userID] = m
	}
	out := make([]ds.Answer, 0, len(answers))
	for _, a := range answers {
		a.UserID = userID
		a.UpdatedAt = s.now().UTC()
		m[a.QuestionID] = a
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) ListAnswers(_ context.Context, userID string) ([]ds.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []ds.Answer{}
	for _, a := range s.answers[userID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (s *Store) CreateDocument(_ context.Context, _ string, d ds.Document) (ds.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[d.UserID]; !ok {
		return ds.Document{}, ds.ErrNotFound
	}
	if d.Status == "" {
		d.Status = ds.DocumentDraft
	}
	d.ID = uuid.NewString()
	d.CreatedAt = s.stamp(d.ID)
	d.UpdatedAt = d.CreatedAt
	s.documents[d.ID] = d
	return d, nil
}

func (s *Store) GetDocument(_ context.Context, id string) (*ds.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// sortedDocs returns matching documents oldest first.
func (s *Store) sortedDocs(match func(ds.Document) bool) []ds.Document {
	out := []ds.Document{}
	for _, d := range s.documents {
		if match(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.born[out[i].ID] < s.born[out[j].ID] })
	return out
}

func (s *Store) ListDocumentsByOwner(_ context.Context, userID string) ([]ds.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.sortedDocs(func(d ds.Document) bool { return d.UserID == userID })
	for i, j := 0, len(docs)-1; i < j; i, j = i+1, j-1 {
		docs[i], docs[j] = docs[j], docs[i]
	}
	return docs, nil
}

func (s *Store) FindDocumentByOwnerAndApp(_ context.Context, userID string, appName string) (*ds.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.sortedDocs(func(d ds.Document) bool { return d.UserID == userID && d.AppName == appName })
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (s *Store) FindPublishedDocument(_ context.Context, username string, appName string) (*ds.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.sortedDocs(func(d ds.Document) bool {
		u, ok := s.users[d.UserID]
		return ok && strings.EqualFold(u.Username, username) && d.AppName == appName && d.Status == ds.DocumentPublished
	})
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (s *Store) mutateDocument(id string, fn func(*ds.Document) bool) (ds.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok || !fn(&d) {
		return ds.Document{}, ds.ErrNotFound
	}
	d.UpdatedAt = s.now().UTC()
	s.documents[id] = d
	return d, nil
}

func (s *Store) UpdateDocumentStatus(_ context.Context, _ string, id string, status ds.DocumentStatus) (ds.Document, error) {
	return s.mutateDocument(id, func(d *ds.Document) bool {
		d.Status = status
		return true
	})
}

func (s *Store) UpdateDocumentText(_ context.Context, _ string, id string, privacyPolicy, termsOfService *string) (ds.Document, error) {
	return s.mutateDocument(id, func(d *ds.Document) bool {
		if d.Status != ds.DocumentDraft {
			return false
		}
		if privacyPolicy != nil {
			v := *privacyPolicy
			d.PrivacyPolicy = &v
		}
		if termsOfService != nil {
			v := *termsOfService
			d.TermsOfService = &v
		}
		return true
	})
}

func (s *Store) SetDeleteRequested(_ context.Context, _ string, id string, at *time.Time) (ds.Document, error) {
	return s.mutateDocument(id, func(d *ds.Document) bool {
		d.DeleteRequestedAt = at
		return true
	})
}

func (s *Store) DeleteDocument(_ context.Context, _ string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return ds.ErrNotFound
	}
	delete(s.documents, id)
	for imID, im := range s.images {
		if im.DocumentID == id {
			delete(s.images, imID)
		}
	}
	return nil
}

func (s *Store) CreateAppImage(_ context.Context, _ string, im ds.AppImage) (ds.AppImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[im.DocumentID]; !ok {
		return ds.AppImage{}, ds.ErrNotFound
	}
	im.ID = uuid.NewString()
	im.CreatedAt = s.stamp(im.ID)
	s.images[im.ID] = im
	return im, nil
}

func (s *Store) GetAppImage(_ context.Context, id string) (*ds.AppImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	im, ok := s.images[id]
	if !ok {
		return nil, nil
	}
	return &im, nil
}

// ListAppImages returns the images of a document, newest first.
func (s *Store) ListAppImages(_ context.Context, documentID string) ([]ds.AppImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []ds.AppImage{}
	for _, im := range s.images {
		if im.DocumentID == documentID {
			out = append(out, im)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.born[out[i].ID] > s.born[out[j].ID] })
	return out, nil
}

func (s *Store) DeleteAppImage(_ context.Context, _ string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[id]; !ok {
		return ds.ErrNotFound
	}
	delete(s.images, id)
	return nil
}

func (s *Store) RecordUsage(_ context.Context, u ds.APIUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUsage != nil {
		return s.FailUsage
	}
	u.ID = uuid.NewString()
	u.CreatedAt = s.now().UTC()
	s.usage = append(s.usage, u)
	return nil
}

// Usage returns a copy of the recorded usage rows.
func (s *Store) Usage() []ds.APIUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ds.APIUsage(nil), s.usage...)
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
