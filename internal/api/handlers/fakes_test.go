package handlers

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/promovault/internal/credential"
	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/media"
	"github.com/bigkaa/promovault/internal/repository"
	"github.com/bigkaa/promovault/internal/service"
	"github.com/bigkaa/promovault/internal/session"
	"github.com/bigkaa/promovault/internal/workflow"
)

const (
	testGalleryPassword = "welcome2024"
	testAdminEmail      = "admin@example.com"
	testAdminPassword   = "s3cret"
	testItemID          = "c0000000-0000-0000-0000-000000000001"
	testSubcategoryID   = "b0000000-0000-0000-0000-000000000001"
)

// --- Фейковые репозитории ---

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings model.GallerySettings
}

func (f *fakeSettingsRepo) Get(context.Context) (*model.GallerySettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.settings
	return &s, nil
}

func (f *fakeSettingsRepo) UpdatePassword(_ context.Context, password string) (*model.GallerySettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.GalleryPassword = password
	s := f.settings
	return &s, nil
}

type fakeVisitorRepo struct {
	mu      sync.Mutex
	byEmail map[string]*model.Visitor
}

func (f *fakeVisitorRepo) Upsert(_ context.Context, email string, firstName, lastName *string) (*model.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byEmail[email]
	if !ok {
		v = &model.Visitor{ID: uuid.NewString(), Email: email, CreatedAt: time.Now()}
		f.byEmail[email] = v
	}
	if firstName != nil {
		v.FirstName = *firstName
	}
	if lastName != nil {
		v.LastName = *lastName
	}
	return v, nil
}

func (f *fakeVisitorRepo) WithTx(repository.DBTX) repository.VisitorRepository { return f }

func (f *fakeVisitorRepo) GetByEmail(_ context.Context, email string) (*model.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.byEmail[email]; ok {
		return v, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeVisitorRepo) GetByID(_ context.Context, id string) (*model.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.byEmail {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeVisitorRepo) List(context.Context) ([]*model.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Visitor, 0, len(f.byEmail))
	for _, v := range f.byEmail {
		out = append(out, v)
	}
	return out, nil
}

type fakeAdminRepo struct {
	admins []*model.Admin
}

func (f *fakeAdminRepo) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	for _, a := range f.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAdminRepo) GetByID(_ context.Context, id string) (*model.Admin, error) {
	for _, a := range f.admins {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAdminRepo) Upsert(_ context.Context, a *model.Admin) error {
	f.admins = append(f.admins, a)
	return nil
}

type fakeLoginAttemptRepo struct {
	mu        sync.Mutex
	attempts  []*model.LoginAttempt
	lastLimit int
}

func (f *fakeLoginAttemptRepo) WithTx(repository.DBTX) repository.LoginAttemptRepository { return f }

func (f *fakeLoginAttemptRepo) Create(_ context.Context, a *model.LoginAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeLoginAttemptRepo) ListRecent(_ context.Context, limit int) ([]*model.LoginAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	out := make([]*model.LoginAttempt, 0, len(f.attempts))
	for i := len(f.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.attempts[i])
	}
	return out, nil
}

func (f *fakeLoginAttemptRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

type fakeCategoryRepo struct {
	categories []*model.Category
	createErr  error
}

func (f *fakeCategoryRepo) List(_ context.Context, activeOnly bool) ([]*model.Category, error) {
	var out []*model.Category
	for _, c := range f.categories {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCategoryRepo) GetByID(_ context.Context, id string) (*model.Category, error) {
	for _, c := range f.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCategoryRepo) Create(_ context.Context, c *model.Category) error {
	if f.createErr != nil {
		return f.createErr
	}
	c.ID = uuid.NewString()
	c.Active = true
	c.Subcategories = []*model.Subcategory{}
	f.categories = append(f.categories, c)
	return nil
}

func (f *fakeCategoryRepo) Update(_ context.Context, id string, _ model.CategoryPatch) (*model.Category, error) {
	return f.GetByID(context.Background(), id)
}

func (f *fakeCategoryRepo) Delete(_ context.Context, id string) error {
	if _, err := f.GetByID(context.Background(), id); err != nil {
		return err
	}
	return nil
}

type fakeSubcategoryRepo struct{}

func (fakeSubcategoryRepo) Create(_ context.Context, s *model.Subcategory) error {
	s.ID = uuid.NewString()
	return nil
}

func (fakeSubcategoryRepo) Update(context.Context, string, string, model.SubcategoryPatch) (*model.Subcategory, error) {
	return nil, repository.ErrNotFound
}

func (fakeSubcategoryRepo) Delete(context.Context, string, string) error {
	return repository.ErrNotFound
}

type fakeItemRepo struct {
	mu         sync.Mutex
	items      []*model.Item
	lastFilter model.ItemFilter
	views      []*model.ViewEvent
}

func (f *fakeItemRepo) Create(context.Context, *model.Item) error { return nil }

func (f *fakeItemRepo) GetByID(_ context.Context, id string) (*model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeItemRepo) List(_ context.Context, filter model.ItemFilter) ([]*model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	return f.items, nil
}

func (f *fakeItemRepo) TopByViews(_ context.Context, limit int) ([]*model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func (f *fakeItemRepo) Update(_ context.Context, id string, _ model.ItemPatch) (*model.Item, error) {
	return f.GetByID(context.Background(), id)
}

func (f *fakeItemRepo) Delete(_ context.Context, id string) error {
	_, err := f.GetByID(context.Background(), id)
	return err
}

func (f *fakeItemRepo) RecordView(_ context.Context, ev *model.ViewEvent) error {
	if _, err := f.GetByID(context.Background(), ev.ItemID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, ev)
	return nil
}

type fakeRequestRepo struct {
	mu    sync.Mutex
	items *fakeItemRepo
	reqs  []*model.Request
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *model.Request) error {
	if _, err := f.items.GetByID(ctx, req.ItemID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	req.ID = uuid.NewString()
	req.Status = workflow.StatusPending
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	f.reqs = append(f.reqs, req)
	return nil
}

func (f *fakeRequestRepo) LockStatus(context.Context, string) (workflow.Status, error) {
	return "", repository.ErrNotFound
}

func (f *fakeRequestRepo) SetStatus(context.Context, string, workflow.Status) (*model.Request, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeRequestRepo) List(context.Context, int) ([]*model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs, nil
}

func (f *fakeRequestRepo) CountByStatus(context.Context) (map[workflow.Status]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[workflow.Status]int{}
	for _, r := range f.reqs {
		out[r.Status]++
	}
	return out, nil
}

type fakeStatsRepo struct{}

func (fakeStatsRepo) Count(_ context.Context, table repository.StatsTable) (int, error) {
	switch table {
	case repository.StatsItems:
		return 1, nil
	case repository.StatsViews:
		return 7, nil
	default:
		return 0, nil
	}
}

// fakeTx не открывает транзакцию и сразу возвращает err.
type fakeTx struct {
	err error
}

func (f fakeTx) RunInTx(context.Context, func(tx repository.DBTX) error) error {
	return f.err
}

// directTx выполняет fn без транзакции: фейковые репозитории не зависят от tx.
type directTx struct{}

func (directTx) RunInTx(_ context.Context, fn func(tx repository.DBTX) error) error {
	return fn(nil)
}

// --- Окружение теста ---

type testEnv struct {
	handler    *APIHandler
	sessions   *session.Authority
	settings   *fakeSettingsRepo
	visitors   *fakeVisitorRepo
	attempts   *fakeLoginAttemptRepo
	categories *fakeCategoryRepo
	items      *fakeItemRepo
	requests   *fakeRequestRepo
	mediaDir   string
	logOutput  *strings.Builder
}

// newTestEnv собирает APIHandler поверх реальных сервисов и фейковых репозиториев.
// txErr — ошибка, которую возвращает каждая транзакция.
func newTestEnv(t *testing.T, txErr error) *testEnv {
	t.Helper()
	logOutput := &strings.Builder{}
	logger := slog.New(slog.NewTextHandler(logOutput, nil))

	hash, err := credential.SHA256{}.Hash(testAdminPassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	settings := &fakeSettingsRepo{settings: model.GallerySettings{
		ID:                 model.SettingsID,
		GalleryPassword:    testGalleryPassword,
		NextSequenceNumber: 1,
	}}
	visitors := &fakeVisitorRepo{byEmail: map[string]*model.Visitor{}}
	admins := &fakeAdminRepo{admins: []*model.Admin{{
		ID:           "a0000000-0000-0000-0000-000000000001",
		Email:        testAdminEmail,
		PasswordHash: hash,
		Name:         "Admin",
	}}}
	attempts := &fakeLoginAttemptRepo{}
	categories := &fakeCategoryRepo{}
	items := &fakeItemRepo{items: []*model.Item{{
		ID:            testItemID,
		Code:          "PROMO-0001",
		Title:         "Весенняя распродажа",
		ImageURL:      "/media/spring.png",
		Active:        true,
		SubcategoryID: testSubcategoryID,
		ViewCount:     7,
	}}}
	requests := &fakeRequestRepo{items: items}

	tx := fakeTx{err: txErr}
	audit := service.NewAuditLog(attempts, 500, logger)
	authSvc := service.NewAuthService(settings, visitors, admins, audit, directTx{}, credential.SHA256{}, logger)
	catalogSvc := service.NewCatalogService(
		categories, fakeSubcategoryRepo{}, items,
		service.NewSequenceAllocator(tx, logger),
		service.NewCatalogCache(4, time.Minute),
		"PROMO", logger,
	)
	requestSvc := service.NewRequestService(requests, tx, workflow.Permissive{}, logger)
	settingsSvc := service.NewSettingsService(settings, logger)
	statsSvc := service.NewStatsService(fakeStatsRepo{}, items, requests, logger)

	authority, err := session.NewAuthority(session.Options{
		Secret: strings.Repeat("k", 32),
		TTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("NewAuthority: %v", err)
	}

	mediaDir := t.TempDir()
	store, err := media.NewLocalStore(mediaDir, "/media", logger)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	h := NewAPIHandler(
		NewHealthHandler(nil),
		authSvc, catalogSvc, requestSvc, settingsSvc, statsSvc, audit,
		store, authority, 1024, logger,
	)

	return &testEnv{
		handler:    h,
		sessions:   authority,
		settings:   settings,
		visitors:   visitors,
		attempts:   attempts,
		categories: categories,
		items:      items,
		requests:   requests,
		mediaDir:   mediaDir,
		logOutput:  logOutput,
	}
}
