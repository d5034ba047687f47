package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/designwheel/engine/internal/directory"
	"github.com/designwheel/engine/internal/models"
	"github.com/designwheel/engine/internal/workflow"
	appErr "github.com/designwheel/engine/pkg/errors"
)

// The in-memory repositories back the service when no DATABASE_URL is set and
// in tests. They hand out copies so callers never share state with the store.

type memoryProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]*workflow.Project
}

func NewMemoryProjectRepository() ProjectRepository {
	return &memoryProjectRepository{projects: map[string]*workflow.Project{}}
}

func (r *memoryProjectRepository) Create(_ context.Context, p *workflow.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[p.ID]; ok {
		return appErr.New(appErr.CodeConflict, "project already exists")
	}
	if p.Version == 0 {
		p.Version = 1
	}
	r.projects[p.ID] = p.Clone()
	return nil
}

func (r *memoryProjectRepository) Get(_ context.Context, id string) (*workflow.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "project not found")
	}
	return p.Clone(), nil
}

func (r *memoryProjectRepository) List(_ context.Context, filter ProjectFilter) ([]*workflow.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*workflow.Project, 0, len(r.projects))
	for _, p := range r.projects {
		if filter.StudentID != "" && p.StudentID != filter.StudentID {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryProjectRepository) Update(_ context.Context, p *workflow.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.projects[p.ID]
	if !ok {
		return appErr.New(appErr.CodeNotFound, "project not found")
	}
	if cur.Version != p.Version {
		return staleVersion(p)
	}
	p.Version++
	r.projects[p.ID] = p.Clone()
	return nil
}

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: map[uuid.UUID]models.User{}}
}

func (r *memoryUserRepository) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.StudentID == u.StudentID {
			return appErr.New(appErr.CodeConflict, "user already exists")
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.users[u.ID] = *u
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id any, dest *models.User) error {
	key, err := toUUID(id)
	if err != nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[key]
	if !ok {
		return appErr.New(appErr.CodeNotFound, "entity not found")
	}
	*dest = u
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return appErr.New(appErr.CodeNotFound, "entity not found")
	}
	u.UpdatedAt = time.Now().UTC()
	r.users[u.ID] = *u
	return nil
}

func (r *memoryUserRepository) Delete(_ context.Context, id any) error {
	key, err := toUUID(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[key]; !ok {
		return appErr.Newf(appErr.CodeNotFound, "entity %v not found", id)
	}
	delete(r.users, key)
	return nil
}

func (r *memoryUserRepository) GetByStudentID(_ context.Context, studentID string, dest *models.User) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.StudentID == studentID {
			*dest = u
			return nil
		}
	}
	return appErr.New(appErr.CodeNotFound, "user not found")
}

func (r *memoryUserRepository) List(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func toUUID(id any) (uuid.UUID, error) {
	switch v := id.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		u, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid id")
		}
		return u, nil
	default:
		return uuid.Nil, appErr.Newf(appErr.CodeInvalid, "unsupported id type %T", id)
	}
}

type memoryAllowListRepository struct {
	mu   sync.RWMutex
	list *directory.AllowList
}

func NewMemoryAllowListRepository() AllowListRepository {
	return &memoryAllowListRepository{list: directory.NewAllowList()}
}

func (r *memoryAllowListRepository) Add(_ context.Context, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list.Merge(ids), nil
}

func (r *memoryAllowListRepository) Contains(_ context.Context, studentID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list.Contains(studentID), nil
}

func (r *memoryAllowListRepository) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list.IDs(), nil
}

type analysisKey struct{ project, stage, verdict string }

type memoryAnalysisRepository struct {
	mu    sync.RWMutex
	items map[analysisKey]models.FeedbackAnalysis
}

func NewMemoryAnalysisRepository() AnalysisRepository {
	return &memoryAnalysisRepository{items: map[analysisKey]models.FeedbackAnalysis{}}
}

func (r *memoryAnalysisRepository) Find(_ context.Context, projectID, stage, verdict string) (*models.FeedbackAnalysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[analysisKey{projectID, stage, verdict}]
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "analysis not found")
	}
	return &a, nil
}

func (r *memoryAnalysisRepository) Latest(_ context.Context, projectID, stage string) (*models.FeedbackAnalysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *models.FeedbackAnalysis
	for k, a := range r.items {
		if k.project != projectID || k.stage != stage {
			continue
		}
		if latest == nil || a.UpdatedAt.After(latest.UpdatedAt) {
			cp := a
			latest = &cp
		}
	}
	if latest == nil {
		return nil, appErr.New(appErr.CodeNotFound, "analysis not found")
	}
	return latest, nil
}

func (r *memoryAnalysisRepository) Upsert(_ context.Context, a *models.FeedbackAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := analysisKey{a.ProjectID, a.Stage, a.Verdict}
	now := time.Now().UTC()
	if cur, ok := r.items[k]; ok {
		a.ID = cur.ID
		a.CreatedAt = cur.CreatedAt
	} else {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	r.items[k] = *a
	return nil
}
