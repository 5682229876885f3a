// sequence.go — выделение последовательных кодов флаеров.
//
// Номер захватывается и счётчик увеличивается одним UPDATE ... RETURNING
// внутри транзакции, в которой вызывающий сохраняет флаер. Строковая
// блокировка gallery_settings сериализует конкурентные выделения,
// поэтому два флаера не получают один код, а откат транзакции
// возвращает счётчик к прежнему значению.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/promovault/internal/repository"
)

var sequenceAllocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pv_sequence_allocations_total",
	Help: "Количество выделений кодов флаеров по результату.",
}, []string{"result"})

// PersistFunc сохраняет сущность с выделенным кодом в той же транзакции.
type PersistFunc func(ctx context.Context, tx repository.DBTX, code string) error

// SequenceAllocator — атомарный генератор кодов вида PREFIX-0001.
type SequenceAllocator struct {
	tx      TxRunner
	counter func(tx repository.DBTX) repository.SequenceCounter
	logger  *slog.Logger
}

// NewSequenceAllocator создаёт генератор кодов.
func NewSequenceAllocator(tx TxRunner, logger *slog.Logger) *SequenceAllocator {
	return &SequenceAllocator{
		tx:      tx,
		counter: repository.NewSequenceCounter,
		logger:  logger.With(slog.String("component", "sequence_allocator")),
	}
}

// FormatCode возвращает код вида PREFIX-0042. Номера больше 9999 не обрезаются.
func FormatCode(prefix string, n int) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

// Allocate выделяет следующий код и вызывает persist в той же транзакции.
// Ошибка persist откатывает и выделение: номер не расходуется.
func (a *SequenceAllocator) Allocate(ctx context.Context, prefix string, persist PersistFunc) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%w: префикс кода не задан", ErrValidation)
	}

	var code string
	err := a.tx.RunInTx(ctx, func(tx repository.DBTX) error {
		n, err := a.counter(tx).Next(ctx)
		if err != nil {
			return err
		}
		code = FormatCode(prefix, n)
		if persist != nil {
			return persist(ctx, tx, code)
		}
		return nil
	})
	if err != nil {
		sequenceAllocationsTotal.WithLabelValues("rollback").Inc()
		return "", translate(err, "выделение кода")
	}

	sequenceAllocationsTotal.WithLabelValues("ok").Inc()
	a.logger.Debug("Код выделен", slog.String("code", code))
	return code, nil
}

// AllocateCode выделяет код без сохранения сущности.
func (a *SequenceAllocator) AllocateCode(ctx context.Context, prefix string) (string, error) {
	return a.Allocate(ctx, prefix, nil)
}
