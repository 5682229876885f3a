package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/repository"
	"github.com/bigkaa/promovault/internal/workflow"
)

// testLogger — логгер, отбрасывающий вывод.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

// --- Транзакции и счётчик ---

// fakeTx — TxRunner, сериализующий транзакции мьютексом.
// При ошибке fn восстанавливает счётчик (эмуляция отката).
type fakeTx struct {
	mu      sync.Mutex
	counter   *memCounter
	calls     int
	rollbacks int
}

func (f *fakeTx) RunInTx(_ context.Context, fn func(tx repository.DBTX) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	snapshot := 0
	if f.counter != nil {
		snapshot = f.counter.next
	}
	if err := fn(nil); err != nil {
		f.rollbacks++
		if f.counter != nil {
			f.counter.next = snapshot
		}
		return err
	}
	return nil
}

// memCounter — счётчик кодов в памяти. Защищён мьютексом fakeTx.
type memCounter struct {
	next int
	err  error
}

func (c *memCounter) Next(context.Context) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n := c.next
	c.next++
	return n, nil
}

// newTestAllocator создаёт генератор поверх счётчика в памяти.
func newTestAllocator(start int) (*SequenceAllocator, *fakeTx) {
	counter := &memCounter{next: start}
	tx := &fakeTx{counter: counter}
	a := NewSequenceAllocator(tx, testLogger())
	a.counter = func(repository.DBTX) repository.SequenceCounter { return counter }
	return a, tx
}

// --- Mock repositories ---

// mockSettingsRepo — мок SettingsRepository.
type mockSettingsRepo struct {
	getFn            func(ctx context.Context) (*model.GallerySettings, error)
	updatePasswordFn func(ctx context.Context, password string) (*model.GallerySettings, error)
}

func (m *mockSettingsRepo) Get(ctx context.Context) (*model.GallerySettings, error) {
	if m.getFn != nil {
		return m.getFn(ctx)
	}
	return &model.GallerySettings{ID: model.SettingsID, GalleryPassword: "welcome2024", NextSequenceNumber: 1}, nil
}

func (m *mockSettingsRepo) UpdatePassword(ctx context.Context, password string) (*model.GallerySettings, error) {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, password)
	}
	return &model.GallerySettings{ID: model.SettingsID, GalleryPassword: password}, nil
}

// mockVisitorRepo — мок VisitorRepository.
type mockVisitorRepo struct {
	upsertFn     func(ctx context.Context, email string, firstName, lastName *string) (*model.Visitor, error)
	getByEmailFn func(ctx context.Context, email string) (*model.Visitor, error)
	getByIDFn    func(ctx context.Context, id string) (*model.Visitor, error)
	listFn       func(ctx context.Context) ([]*model.Visitor, error)
	upsertCalls  int
	txCalls      int
}

func (m *mockVisitorRepo) Upsert(ctx context.Context, email string, firstName, lastName *string) (*model.Visitor, error) {
	m.upsertCalls++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, email, firstName, lastName)
	}
	return &model.Visitor{ID: "11111111-1111-1111-1111-111111111111", Email: email}, nil
}

func (m *mockVisitorRepo) WithTx(repository.DBTX) repository.VisitorRepository {
	m.txCalls++
	return m
}

func (m *mockVisitorRepo) GetByEmail(ctx context.Context, email string) (*model.Visitor, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, repository.ErrNotFound
}

func (m *mockVisitorRepo) GetByID(ctx context.Context, id string) (*model.Visitor, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockVisitorRepo) List(ctx context.Context) ([]*model.Visitor, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// mockAdminRepo — мок AdminRepository.
type mockAdminRepo struct {
	getByEmailFn func(ctx context.Context, email string) (*model.Admin, error)
	getByIDFn    func(ctx context.Context, id string) (*model.Admin, error)
	upsertFn     func(ctx context.Context, a *model.Admin) error
}

func (m *mockAdminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, repository.ErrNotFound
}

func (m *mockAdminRepo) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockAdminRepo) Upsert(ctx context.Context, a *model.Admin) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, a)
	}
	return nil
}

// mockLoginAttemptRepo — журнал входов в памяти.
type mockLoginAttemptRepo struct {
	mu        sync.Mutex
	attempts  []*model.LoginAttempt
	createErr error
	lastLimit int
}

func (m *mockLoginAttemptRepo) Create(_ context.Context, a *model.LoginAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *a
	m.attempts = append(m.attempts, &cp)
	return nil
}

func (m *mockLoginAttemptRepo) WithTx(repository.DBTX) repository.LoginAttemptRepository {
	return m
}

func (m *mockLoginAttemptRepo) ListRecent(_ context.Context, limit int) ([]*model.LoginAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit

	result := make([]*model.LoginAttempt, 0, len(m.attempts))
	for i := len(m.attempts) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.attempts[i])
	}
	return result, nil
}

// mockCategoryRepo — мок CategoryRepository.
type mockCategoryRepo struct {
	listFn    func(ctx context.Context, activeOnly bool) ([]*model.Category, error)
	createFn  func(ctx context.Context, c *model.Category) error
	updateFn  func(ctx context.Context, id string, patch model.CategoryPatch) (*model.Category, error)
	deleteFn  func(ctx context.Context, id string) error
	listCalls int
}

func (m *mockCategoryRepo) List(ctx context.Context, activeOnly bool) ([]*model.Category, error) {
	m.listCalls++
	if m.listFn != nil {
		return m.listFn(ctx, activeOnly)
	}
	return nil, nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id string) (*model.Category, error) {
	return nil, repository.ErrNotFound
}

func (m *mockCategoryRepo) Create(ctx context.Context, c *model.Category) error {
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	return nil
}

func (m *mockCategoryRepo) Update(ctx context.Context, id string, patch model.CategoryPatch) (*model.Category, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return &model.Category{ID: id}, nil
}

func (m *mockCategoryRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockSubcategoryRepo — мок SubcategoryRepository.
type mockSubcategoryRepo struct {
	createFn func(ctx context.Context, s *model.Subcategory) error
}

func (m *mockSubcategoryRepo) Create(ctx context.Context, s *model.Subcategory) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return nil
}

func (m *mockSubcategoryRepo) Update(_ context.Context, categoryID, id string, _ model.SubcategoryPatch) (*model.Subcategory, error) {
	return &model.Subcategory{ID: id, CategoryID: categoryID}, nil
}

func (m *mockSubcategoryRepo) Delete(context.Context, string, string) error {
	return nil
}

// mockItemRepo — мок ItemRepository.
type mockItemRepo struct {
	mu           sync.Mutex
	createFn     func(ctx context.Context, item *model.Item) error
	getByIDFn    func(ctx context.Context, id string) (*model.Item, error)
	listFn       func(ctx context.Context, filter model.ItemFilter) ([]*model.Item, error)
	topFn        func(ctx context.Context, limit int) ([]*model.Item, error)
	updateFn     func(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error)
	recordViewFn func(ctx context.Context, ev *model.ViewEvent) error
	created      []*model.Item
}

func (m *mockItemRepo) Create(ctx context.Context, item *model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFn != nil {
		if err := m.createFn(ctx, item); err != nil {
			return err
		}
	}
	if item.ID == "" {
		item.ID = "22222222-2222-2222-2222-222222222222"
	}
	m.created = append(m.created, item)
	return nil
}

func (m *mockItemRepo) GetByID(ctx context.Context, id string) (*model.Item, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockItemRepo) List(ctx context.Context, filter model.ItemFilter) ([]*model.Item, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return []*model.Item{}, nil
}

func (m *mockItemRepo) TopByViews(ctx context.Context, limit int) ([]*model.Item, error) {
	if m.topFn != nil {
		return m.topFn(ctx, limit)
	}
	return []*model.Item{}, nil
}

func (m *mockItemRepo) Update(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return &model.Item{ID: id}, nil
}

func (m *mockItemRepo) Delete(context.Context, string) error {
	return nil
}

func (m *mockItemRepo) RecordView(ctx context.Context, ev *model.ViewEvent) error {
	if m.recordViewFn != nil {
		return m.recordViewFn(ctx, ev)
	}
	return nil
}

// memRequestRepo — заявки в памяти.
type memRequestRepo struct {
	mu        sync.Mutex
	byID      map[string]*model.Request
	createErr error
	setCalls  int
	locked    []string
}

func newMemRequestRepo(reqs ...*model.Request) *memRequestRepo {
	m := &memRequestRepo{byID: make(map[string]*model.Request)}
	for _, r := range reqs {
		m.byID[r.ID] = r
	}
	return m
}

func (m *memRequestRepo) Create(_ context.Context, req *model.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if req.ID == "" {
		req.ID = "33333333-3333-3333-3333-333333333333"
	}
	req.Status = workflow.StatusPending
	m.byID[req.ID] = req
	return nil
}

func (m *memRequestRepo) LockStatus(_ context.Context, id string) (workflow.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = append(m.locked, id)
	r, ok := m.byID[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return r.Status, nil
}

func (m *memRequestRepo) SetStatus(_ context.Context, id string, status workflow.Status) (*model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	r, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r.Status = status
	cp := *r
	return &cp, nil
}

func (m *memRequestRepo) List(_ context.Context, limit int) ([]*model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*model.Request{}
	for _, r := range m.byID {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, r)
	}
	return result, nil
}

func (m *memRequestRepo) CountByStatus(context.Context) (map[workflow.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[workflow.Status]int)
	for _, r := range m.byID {
		result[r.Status]++
	}
	return result, nil
}

func (m *memRequestRepo) status(id string) workflow.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Status
}

// mockStatsRepo — мок StatsRepository.
type mockStatsRepo struct {
	counts map[repository.StatsTable]int
	err    error
}

func (m *mockStatsRepo) Count(_ context.Context, table repository.StatsTable) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.counts[table], nil
}
