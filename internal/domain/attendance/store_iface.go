package attendance

import (
	"context"
	"time"
)

type StoreAPI interface {
	WithTx(ctx context.Context, fn func(tx TxStore) error) error
	GetRecord(ctx context.Context, recordID string) (Record, error)
	ListRecords(ctx context.Context, filter Filter) ([]Record, error)
}

type TxStore interface {
	// LockEmployee serializes marks for one employee until the transaction ends.
	LockEmployee(ctx context.Context, employeeID string) error
	GetForDate(ctx context.Context, employeeID string, date time.Time) (Record, error)
	Insert(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
}
