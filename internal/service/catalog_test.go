package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/repository"
)

const (
	testCategoryID    = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	testSubcategoryID = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

// newTestCatalogService создаёт CatalogService с генератором кодов в памяти.
func newTestCatalogService(cats *mockCategoryRepo, items *mockItemRepo) *CatalogService {
	alloc, _ := newTestAllocator(1)
	s := NewCatalogService(cats, &mockSubcategoryRepo{}, items, alloc,
		NewCatalogCache(16, time.Minute), "PROMO", testLogger())
	s.itemsIn = func(repository.DBTX) repository.ItemRepository { return items }
	return s
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Summer Sale", "summer-sale"},
		{"  Hello,  World!! ", "hello-world"},
		{"A--B__C", "a-b-c"},
		{"2024 Events", "2024-events"},
		{"---", ""},
		{"!!!", ""},
		{"Летняя распродажа", "letniaia-rasprodazha"},
		{"Ёлка и Щука", "elka-i-shchuka"},
		{"Київ 2024", "kiiv-2024"},
		{"Café Menu", "cafe-menu"},
		{"Crème Brûlée", "creme-brulee"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}

// TestSlugify_HashFallback проверяет slug для имени без латинской записи.
func TestSlugify_HashFallback(t *testing.T) {
	got := Slugify("東京")
	if !strings.HasPrefix(got, "n-") || len(got) != len("n-")+hashSlugLen {
		t.Fatalf("Slugify(東京) = %q, ожидался n-<%d hex>", got, hashSlugLen)
	}
	if again := Slugify("  東京 "); again != got {
		t.Errorf("slug должен зависеть только от имени: %q != %q", again, got)
	}
	if other := Slugify("大阪"); other == got {
		t.Errorf("разные имена дали один slug %q", got)
	}
}

func TestCreateCategory(t *testing.T) {
	var saved *model.Category
	cats := &mockCategoryRepo{
		createFn: func(_ context.Context, c *model.Category) error {
			c.ID = testCategoryID
			saved = c
			return nil
		},
	}
	svc := newTestCatalogService(cats, &mockItemRepo{})

	c, err := svc.CreateCategory(context.Background(), "  Summer Sale ", strPtr(" "))
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if c.Name != "Summer Sale" || c.Slug != "summer-sale" {
		t.Errorf("категория = %q/%q", c.Name, c.Slug)
	}
	if saved.Description != nil {
		t.Error("пустое описание должно сохраняться как nil")
	}

	for _, name := range []string{"", "   ", "!!!"} {
		if _, err := svc.CreateCategory(context.Background(), name, nil); !errors.Is(err, ErrValidation) {
			t.Errorf("CreateCategory(%q): ошибка = %v, ожидалась ErrValidation", name, err)
		}
	}
}

// TestCreateCategory_CyrillicName проверяет категорию с кириллическим именем.
func TestCreateCategory_CyrillicName(t *testing.T) {
	cats := &mockCategoryRepo{
		createFn: func(_ context.Context, c *model.Category) error {
			c.ID = testCategoryID
			return nil
		},
	}
	svc := newTestCatalogService(cats, &mockItemRepo{})

	c, err := svc.CreateCategory(context.Background(), "Летняя распродажа", nil)
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if c.Name != "Летняя распродажа" || c.Slug != "letniaia-rasprodazha" {
		t.Errorf("категория = %q/%q", c.Name, c.Slug)
	}
}

func TestCreateCategory_Conflict(t *testing.T) {
	cats := &mockCategoryRepo{
		createFn: func(context.Context, *model.Category) error { return repository.ErrConflict },
	}
	svc := newTestCatalogService(cats, &mockItemRepo{})

	if _, err := svc.CreateCategory(context.Background(), "Sale", nil); !errors.Is(err, ErrConflict) {
		t.Errorf("ошибка = %v, ожидалась ErrConflict", err)
	}
}

func TestListCategories_CacheInvalidation(t *testing.T) {
	cats := &mockCategoryRepo{
		listFn: func(context.Context, bool) ([]*model.Category, error) {
			return []*model.Category{{ID: testCategoryID, Name: "Sale", Active: true}}, nil
		},
	}
	svc := newTestCatalogService(cats, &mockItemRepo{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.ListCategories(ctx, true); err != nil {
			t.Fatalf("ListCategories: %v", err)
		}
	}
	if cats.listCalls != 1 {
		t.Errorf("List вызван %d раз, ожидался 1 (кэш)", cats.listCalls)
	}

	if _, err := svc.ListCategories(ctx, false); err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if cats.listCalls != 2 {
		t.Errorf("полное дерево не должно кэшироваться, вызовов %d", cats.listCalls)
	}

	if _, err := svc.CreateCategory(ctx, "Winter", nil); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := svc.ListCategories(ctx, true); err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if cats.listCalls != 3 {
		t.Errorf("после записи кэш должен сбрасываться, вызовов %d", cats.listCalls)
	}
}

func TestCreateItem_AssignsSequentialCodes(t *testing.T) {
	items := &mockItemRepo{}
	items.getByIDFn = func(_ context.Context, id string) (*model.Item, error) {
		items.mu.Lock()
		defer items.mu.Unlock()
		for _, it := range items.created {
			if it.ID == id {
				cp := *it
				cp.SubcategoryName = "Posters"
				return &cp, nil
			}
		}
		return nil, repository.ErrNotFound
	}
	n := 0
	items.createFn = func(_ context.Context, it *model.Item) error {
		n++
		it.ID = []string{
			"c0000000-0000-0000-0000-000000000001",
			"c0000000-0000-0000-0000-000000000002",
		}[n-1]
		return nil
	}
	svc := newTestCatalogService(&mockCategoryRepo{}, items)
	ctx := context.Background()

	first, err := svc.CreateItem(ctx, NewItem{SubcategoryID: testSubcategoryID, Title: "Flyer A", ImageURL: "/media/a.png"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	second, err := svc.CreateItem(ctx, NewItem{SubcategoryID: testSubcategoryID, Title: "Flyer B", ImageURL: "/media/b.png"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	if first.Code != "PROMO-0001" || second.Code != "PROMO-0002" {
		t.Errorf("коды = %q, %q", first.Code, second.Code)
	}
	if !first.Active {
		t.Error("флаер по умолчанию активен")
	}
	if first.SubcategoryName != "Posters" {
		t.Error("ожидалась проекция после создания")
	}
}

func TestCreateItem_FailedInsertDoesNotConsumeCode(t *testing.T) {
	items := &mockItemRepo{}
	fail := true
	items.createFn = func(context.Context, *model.Item) error {
		if fail {
			return repository.ErrNotFound
		}
		return nil
	}
	svc := newTestCatalogService(&mockCategoryRepo{}, items)
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, NewItem{SubcategoryID: testSubcategoryID, Title: "A", ImageURL: "/media/a.png"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ошибка = %v, ожидалась ErrNotFound", err)
	}

	fail = false
	it, err := svc.CreateItem(ctx, NewItem{SubcategoryID: testSubcategoryID, Title: "A", ImageURL: "/media/a.png"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if it.Code != "PROMO-0001" {
		t.Errorf("код = %q, ожидался PROMO-0001", it.Code)
	}
}

func TestCreateItem_Validation(t *testing.T) {
	svc := newTestCatalogService(&mockCategoryRepo{}, &mockItemRepo{})
	cases := []NewItem{
		{SubcategoryID: testSubcategoryID, Title: " ", ImageURL: "/media/a.png"},
		{SubcategoryID: testSubcategoryID, Title: "A", ImageURL: ""},
		{SubcategoryID: "", Title: "A", ImageURL: "/media/a.png"},
	}
	for _, in := range cases {
		if _, err := svc.CreateItem(context.Background(), in); !errors.Is(err, ErrValidation) {
			t.Errorf("%+v: ошибка = %v, ожидалась ErrValidation", in, err)
		}
	}
}

func TestListActiveItems_Filters(t *testing.T) {
	var got model.ItemFilter
	items := &mockItemRepo{
		listFn: func(_ context.Context, f model.ItemFilter) ([]*model.Item, error) {
			got = f
			return []*model.Item{}, nil
		},
	}
	svc := newTestCatalogService(&mockCategoryRepo{}, items)
	ctx := context.Background()

	if _, err := svc.ListActiveItems(ctx, strPtr(testCategoryID), strPtr(testSubcategoryID)); err != nil {
		t.Fatalf("ListActiveItems: %v", err)
	}
	if !got.ActiveOnly || got.SubcategoryID == nil || got.CategoryID != nil {
		t.Errorf("фильтр подкатегории должен иметь приоритет: %+v", got)
	}

	if _, err := svc.ListActiveItems(ctx, strPtr(testCategoryID), nil); err != nil {
		t.Fatalf("ListActiveItems: %v", err)
	}
	if got.CategoryID == nil || *got.CategoryID != testCategoryID {
		t.Errorf("ожидался фильтр по категории: %+v", got)
	}

	res, err := svc.ListActiveItems(ctx, strPtr("garbage"), nil)
	if err != nil || len(res) != 0 {
		t.Errorf("некорректный ID: %v, %d флаеров", err, len(res))
	}
}

func TestUpdateItem_Validation(t *testing.T) {
	svc := newTestCatalogService(&mockCategoryRepo{}, &mockItemRepo{})
	ctx := context.Background()

	if _, err := svc.UpdateItem(ctx, testItemID, model.ItemPatch{Title: strPtr("  ")}); !errors.Is(err, ErrValidation) {
		t.Errorf("пустое название: ошибка = %v", err)
	}
	if _, err := svc.UpdateItem(ctx, testItemID, model.ItemPatch{ImageURL: strPtr("")}); !errors.Is(err, ErrValidation) {
		t.Errorf("пустое изображение: ошибка = %v", err)
	}
	if _, err := svc.UpdateItem(ctx, testItemID, model.ItemPatch{SubcategoryID: strPtr("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("некорректная подкатегория: ошибка = %v", err)
	}
}

// TestUpdateItem_TrimsFields проверяет, что в хранилище уходят обрезанные значения.
func TestUpdateItem_TrimsFields(t *testing.T) {
	var got model.ItemPatch
	items := &mockItemRepo{
		updateFn: func(_ context.Context, id string, patch model.ItemPatch) (*model.Item, error) {
			got = patch
			return &model.Item{ID: id}, nil
		},
	}
	svc := newTestCatalogService(&mockCategoryRepo{}, items)

	_, err := svc.UpdateItem(context.Background(), testItemID, model.ItemPatch{
		Title:    strPtr("  Flyer "),
		ImageURL: strPtr("  /media/flyer.png\n"),
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if got.Title == nil || *got.Title != "Flyer" {
		t.Errorf("Title = %v, ожидалось Flyer", got.Title)
	}
	if got.ImageURL == nil || *got.ImageURL != "/media/flyer.png" {
		t.Errorf("ImageURL = %v, ожидалось /media/flyer.png", got.ImageURL)
	}
}

func TestRecordView(t *testing.T) {
	var ev *model.ViewEvent
	items := &mockItemRepo{
		recordViewFn: func(_ context.Context, e *model.ViewEvent) error {
			ev = e
			return nil
		},
	}
	svc := newTestCatalogService(&mockCategoryRepo{}, items)

	if err := svc.RecordView(context.Background(), testItemID, nil); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if ev == nil || ev.ItemID != testItemID || ev.VisitorID != nil {
		t.Errorf("событие = %+v", ev)
	}

	items.recordViewFn = func(context.Context, *model.ViewEvent) error { return repository.ErrNotFound }
	if err := svc.RecordView(context.Background(), testItemID, strPtr(testVisitorID)); !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrNotFound", err)
	}
}
