// Package memory is a process-local store used when no database is
// configured and as the service test double. All state lives on a Store
// value; nothing is shared at package level.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/imagegen-backend/internal/apperr"
	"github.com/baharkarakas/imagegen-backend/internal/models"
	"github.com/baharkarakas/imagegen-backend/internal/repository"
)

type Store struct {
	mu     sync.RWMutex
	seq    int64
	users  map[string]userRow
	images map[string]imageRow
	audit  []models.AuditLog
	now    func() time.Time
}

type userRow struct {
	models.User
	seq int64
}

type imageRow struct {
	models.Image
	seq int64
}

func NewStore() *Store {
	return &Store{
		users:  map[string]userRow{},
		images: map[string]imageRow{},
		now:    time.Now,
	}
}

// Repositories groups the store behind the repository contracts.
type Repositories struct {
	Users     repository.Users
	Images    repository.Images
	AuditLogs repository.AuditLogs
}

func NewRepositories(s *Store) Repositories {
	return Repositories{
		Users:     (*usersRepo)(s),
		Images:    (*imagesRepo)(s),
		AuditLogs: (*auditLogsRepo)(s),
	}
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// AuditLogs returns a copy of the recorded audit trail, oldest first.
func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditLog, len(s.audit))
	copy(out, s.audit)
	return out
}

// ---------- users ----------

type usersRepo Store

func (r *usersRepo) Create(_ context.Context, u models.User) (models.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.users {
		if strings.EqualFold(row.Email, u.Email) || row.Username == u.Username {
			return models.User{}, apperr.New(apperr.ErrConflict, "User already exists")
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	u.CreatedAt = s.now()
	s.users[u.ID] = userRow{User: u, seq: s.nextSeq()}
	return u, nil
}

func (r *usersRepo) GetByID(_ context.Context, id string) (models.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.users[id]
	if !ok {
		return models.User{}, apperr.New(apperr.ErrNotFound, "User not found")
	}
	return row.User, nil
}

func (r *usersRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.users {
		if strings.EqualFold(row.Email, email) {
			return row.User, nil
		}
	}
	return models.User{}, apperr.New(apperr.ErrNotFound, "User not found")
}

func (r *usersRepo) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.users {
		if strings.EqualFold(row.Email, email) || row.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *usersRepo) List(_ context.Context) ([]models.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]userRow, 0, len(s.users))
	for _, row := range s.users {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	out := make([]models.User, len(rows))
	for i, row := range rows {
		out[i] = row.User
	}
	return out, nil
}

// ---------- images ----------

type imagesRepo Store

func (r *imagesRepo) Create(_ context.Context, img models.Image) (models.Image, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if _, ok := s.images[img.ID]; ok {
		return models.Image{}, apperr.New(apperr.ErrConflict, "Image already exists")
	}
	img.CreatedAt = s.now()
	img.Likes = cloneStrings(img.Likes)
	img.Tags = cloneStrings(img.Tags)
	s.images[img.ID] = imageRow{Image: img, seq: s.nextSeq()}
	return s.render(img), nil
}

func (r *imagesRepo) GetByID(_ context.Context, id string) (models.Image, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.images[id]
	if !ok {
		return models.Image{}, apperr.New(apperr.ErrNotFound, "Image not found")
	}
	return s.render(row.Image), nil
}

func (r *imagesRepo) ListPublic(_ context.Context, limit int) ([]models.Image, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.newestFirst(func(img models.Image) bool { return img.Public })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *imagesRepo) ListByOwner(_ context.Context, userID string) ([]models.Image, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.newestFirst(func(img models.Image) bool { return img.CreatedBy.ID == userID }), nil
}

func (r *imagesRepo) ToggleLike(_ context.Context, imageID, userID string) ([]string, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.images[imageID]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "Image not found")
	}
	likes := make([]string, 0, len(row.Likes)+1)
	removed := false
	for _, id := range row.Likes {
		if id == userID {
			removed = true
			continue
		}
		likes = append(likes, id)
	}
	if !removed {
		likes = append(likes, userID)
	}
	row.Likes = likes
	s.images[imageID] = row
	return cloneStrings(likes), nil
}

func (r *imagesRepo) Delete(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[id]; !ok {
		return apperr.New(apperr.ErrNotFound, "Image not found")
	}
	delete(s.images, id)
	return nil
}

// newestFirst must be called with s.mu held.
func (s *Store) newestFirst(keep func(models.Image) bool) []models.Image {
	rows := make([]imageRow, 0, len(s.images))
	for _, row := range s.images {
		if keep(row.Image) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]models.Image, len(rows))
	for i, row := range rows {
		out[i] = s.render(row.Image)
	}
	return out
}

// render copies img and fills the owner's current username. Caller holds s.mu.
func (s *Store) render(img models.Image) models.Image {
	img.Likes = cloneStrings(img.Likes)
	img.Tags = cloneStrings(img.Tags)
	if u, ok := s.users[img.CreatedBy.ID]; ok {
		img.CreatedBy.Username = u.Username
	}
	return img
}

// ---------- audit ----------

type auditLogsRepo Store

func (r *auditLogsRepo) Create(_ context.Context, l models.AuditLog) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = s.now()
	s.audit = append(s.audit, l)
	return nil
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
