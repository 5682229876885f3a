package service

import (
	"context"

	"github.com/bigkaa/promovault/internal/repository"
)

// TxRunner выполняет fn в одной транзакции хранилища.
// Реализуется repository.TxRunner.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx repository.DBTX) error) error
}
