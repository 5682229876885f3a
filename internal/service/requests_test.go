package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/repository"
	"github.com/bigkaa/promovault/internal/workflow"
)

const (
	testRequestID = "66666666-6666-6666-6666-666666666666"
	testItemID    = "77777777-7777-7777-7777-777777777777"
	testVisitorID = "88888888-8888-8888-8888-888888888888"
)

// newTestRequestService создаёт RequestService поверх заявок в памяти.
func newTestRequestService(repo *memRequestRepo, policy workflow.Policy) *RequestService {
	s := NewRequestService(repo, &fakeTx{}, policy, testLogger())
	s.requestsIn = func(repository.DBTX) repository.RequestRepository { return repo }
	return s
}

func pendingRequest() *model.Request {
	return &model.Request{ID: testRequestID, ItemID: testItemID, VisitorID: testVisitorID, Status: workflow.StatusPending}
}

func TestSetStatus_Permissive(t *testing.T) {
	repo := newMemRequestRepo(pendingRequest())
	svc := newTestRequestService(repo, nil)

	// Разрешительная политика допускает любой переход, включая возврат
	for _, st := range []string{"COMPLETED", "PENDING", "CANCELLED", "IN_PROGRESS"} {
		r, err := svc.SetStatus(context.Background(), testRequestID, st)
		if err != nil {
			t.Fatalf("SetStatus(%s): %v", st, err)
		}
		if string(r.Status) != st {
			t.Errorf("статус = %s, ожидался %s", r.Status, st)
		}
	}
}

func TestSetStatus_InvalidValue(t *testing.T) {
	repo := newMemRequestRepo(pendingRequest())
	svc := newTestRequestService(repo, nil)

	for _, st := range []string{"DONE", "pending", ""} {
		_, err := svc.SetStatus(context.Background(), testRequestID, st)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("SetStatus(%q): ошибка = %v, ожидалась ErrValidation", st, err)
		}
	}
	if repo.setCalls != 0 {
		t.Errorf("SetStatus репозитория вызван %d раз", repo.setCalls)
	}
	if repo.status(testRequestID) != workflow.StatusPending {
		t.Error("статус не должен меняться")
	}
}

func TestSetStatus_NotFound(t *testing.T) {
	svc := newTestRequestService(newMemRequestRepo(), nil)

	_, err := svc.SetStatus(context.Background(), "99999999-9999-9999-9999-999999999999", "COMPLETED")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrNotFound", err)
	}

	_, err = svc.SetStatus(context.Background(), "bad-id", "COMPLETED")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("некорректный ID: ошибка = %v, ожидалась ErrNotFound", err)
	}
}

func TestSetStatus_Strict(t *testing.T) {
	repo := newMemRequestRepo(pendingRequest())
	svc := newTestRequestService(repo, workflow.Strict{})
	ctx := context.Background()

	if _, err := svc.SetStatus(ctx, testRequestID, "COMPLETED"); !errors.Is(err, ErrValidation) {
		t.Fatalf("PENDING → COMPLETED: ошибка = %v, ожидалась ErrValidation", err)
	}
	if repo.setCalls != 0 {
		t.Error("отклонённый переход не должен записываться")
	}

	if _, err := svc.SetStatus(ctx, testRequestID, "IN_PROGRESS"); err != nil {
		t.Fatalf("PENDING → IN_PROGRESS: %v", err)
	}
	if _, err := svc.SetStatus(ctx, testRequestID, "COMPLETED"); err != nil {
		t.Fatalf("IN_PROGRESS → COMPLETED: %v", err)
	}
	if _, err := svc.SetStatus(ctx, testRequestID, "PENDING"); !errors.Is(err, ErrValidation) {
		t.Errorf("COMPLETED → PENDING: ошибка = %v, ожидалась ErrValidation", err)
	}
	if repo.status(testRequestID) != workflow.StatusCompleted {
		t.Errorf("статус = %s, ожидался COMPLETED", repo.status(testRequestID))
	}
}

func TestCreateRequest(t *testing.T) {
	repo := newMemRequestRepo()
	svc := newTestRequestService(repo, nil)

	r, err := svc.CreateRequest(context.Background(), testItemID, testVisitorID, strPtr("  нужен тираж  "))
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if r.Status != workflow.StatusPending {
		t.Errorf("статус = %s, ожидался PENDING", r.Status)
	}
	if r.Message == nil || *r.Message != "нужен тираж" {
		t.Errorf("сообщение = %v", r.Message)
	}

	r, err = svc.CreateRequest(context.Background(), testItemID, testVisitorID, strPtr("   "))
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if r.Message != nil {
		t.Error("пустое сообщение должно сохраняться как nil")
	}
}

func TestCreateRequest_UnknownItem(t *testing.T) {
	repo := newMemRequestRepo()
	repo.createErr = repository.ErrNotFound
	svc := newTestRequestService(repo, nil)

	if _, err := svc.CreateRequest(context.Background(), testItemID, testVisitorID, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrNotFound", err)
	}
	if _, err := svc.CreateRequest(context.Background(), "x", testVisitorID, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("некорректный ID флаера: ошибка = %v, ожидалась ErrNotFound", err)
	}
}
