// requests.go — заявки посетителей на флаеры и смена их статуса.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/repository"
	"github.com/bigkaa/promovault/internal/workflow"
)

var requestTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pv_request_transitions_total",
	Help: "Количество смен статуса заявок по целевому статусу.",
}, []string{"status"})

// RequestService — сервис заявок.
type RequestService struct {
	requests   repository.RequestRepository
	requestsIn func(tx repository.DBTX) repository.RequestRepository
	tx         TxRunner
	policy     workflow.Policy
	logger     *slog.Logger
}

// NewRequestService создаёт сервис заявок с политикой переходов.
func NewRequestService(
	requests repository.RequestRepository,
	tx TxRunner,
	policy workflow.Policy,
	logger *slog.Logger,
) *RequestService {
	if policy == nil {
		policy = workflow.Permissive{}
	}
	return &RequestService{
		requests:   requests,
		requestsIn: repository.NewRequestRepository,
		tx:         tx,
		policy:     policy,
		logger:     logger.With(slog.String("component", "request_service")),
	}
}

// CreateRequest создаёт заявку посетителя на флаер.
// visitorID — субъект действующей сессии посетителя.
func (s *RequestService) CreateRequest(ctx context.Context, itemID, visitorID string, message *string) (*model.Request, error) {
	if err := requireID(itemID, "флаер"); err != nil {
		return nil, err
	}
	if err := requireID(visitorID, "посетитель"); err != nil {
		return nil, fmt.Errorf("%w: сессия посетителя недействительна", ErrUnauthenticated)
	}
	if message != nil {
		m := strings.TrimSpace(*message)
		if m == "" {
			message = nil
		} else {
			message = &m
		}
	}

	req := &model.Request{ItemID: itemID, VisitorID: visitorID, Message: message}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, translate(err, "флаер "+itemID)
	}

	s.logger.Info("Заявка создана",
		slog.String("request_id", req.ID),
		slog.String("item_id", itemID),
		slog.String("visitor_id", visitorID),
	)
	return req, nil
}

// SetStatus меняет статус заявки. Текущий статус читается с блокировкой
// в той же транзакции, что и запись нового, поэтому решение политики
// принимается по актуальному значению.
func (s *RequestService) SetStatus(ctx context.Context, requestID, status string) (*model.Request, error) {
	target, err := workflow.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := requireID(requestID, "заявка"); err != nil {
		return nil, err
	}

	var updated *model.Request
	var from workflow.Status
	err = s.tx.RunInTx(ctx, func(tx repository.DBTX) error {
		repo := s.requestsIn(tx)

		current, err := repo.LockStatus(ctx, requestID)
		if err != nil {
			return err
		}
		from = current

		if err := s.policy.Check(current, target); err != nil {
			return err
		}

		updated, err = repo.SetStatus(ctx, requestID, target)
		return err
	})
	if err != nil {
		var te *workflow.TransitionError
		if errors.As(err, &te) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, te)
		}
		return nil, translate(err, "заявка "+requestID)
	}

	requestTransitionsTotal.WithLabelValues(string(target)).Inc()
	s.logger.Info("Статус заявки изменён",
		slog.String("request_id", requestID),
		slog.String("from", string(from)),
		slog.String("to", string(target)),
		slog.String("policy", s.policy.Name()),
	)
	return updated, nil
}

// ListRequests возвращает заявки с данными флаера и посетителя, новые первыми.
func (s *RequestService) ListRequests(ctx context.Context) ([]*model.Request, error) {
	reqs, err := s.requests.List(ctx, 0)
	if err != nil {
		return nil, translate(err, "список заявок")
	}
	return reqs, nil
}
