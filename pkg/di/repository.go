package di

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-catalog-cache/catalog"
)

// model is satisfied by pointers to the catalog bun models.
type model[M any] interface {
	*M
	catalog.Record
}

func newBunRepository[M any, T model[M]](db *bun.DB) repository.Repository[T] {
	base := repository.NewRepository[T](db, repository.ModelHandlers[T]{
		NewRecord: func() T {
			return T(new(M))
		},
		GetID: func(record T) uuid.UUID {
			if (*M)(record) == nil {
				return uuid.Nil
			}
			return record.GetID()
		},
		SetID: func(record T, id uuid.UUID) {
			record.SetID(id)
		},
		GetIdentifier: func() string {
			var zero T
			return zero.IdentifierColumn()
		},
	})
	return &fullRowRepository[T]{Repository: base, db: db}
}

// fullRowRepository writes every column on update. The base repository omits
// zero values, which would make Active=false, a zero price or an unassigned
// brand impossible to store.
type fullRowRepository[T any] struct {
	repository.Repository[T]
	db *bun.DB
}

// immutableColumns are never rewritten by an update.
var immutableColumns = []string{"id", "created_at"}

func (r *fullRowRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return r.UpdateTx(ctx, r.db, record, criteria...)
}

func (r *fullRowRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	q := tx.NewUpdate().Model(record).WherePK().ExcludeColumn(immutableColumns...)
	for _, c := range criteria {
		q = c(q)
	}
	if _, err := q.Exec(ctx); err != nil {
		var zero T
		return zero, err
	}
	return record, nil
}

func (r *fullRowRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	var updated []T
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		updated, err = r.UpdateManyTx(ctx, tx, records, criteria...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *fullRowRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	for _, record := range records {
		if _, err := r.UpdateTx(ctx, tx, record, criteria...); err != nil {
			return nil, err
		}
	}
	return records, nil
}
