package repositoryevents

import (
	"context"
	"fmt"
	"reflect"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Interface assertion to ensure Repository implements repository.Repository[T]
var _ repository.Repository[any] = (*Repository[any])(nil)

// Options configures how a Repository describes its records in events.
type Options[T any] struct {
	// Entity is the event entity name. Defaults to the snake_case name of T.
	Entity string
	// ID extracts the record id. Defaults to reading an ID field through reflection.
	ID func(record T) uuid.UUID
	// Refs extracts relation ids (e.g. {"product": offer.ProductID}). When set, updates
	// and deletes load the stored record first so events also carry the previous ids.
	Refs func(record T) map[string]uuid.UUID
	// Prepare runs on every record before it is inserted or upserted.
	Prepare func(record T)
	// Logger receives publish failures. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Repository decorates a base repository and publishes an Event after every
// successful write. Reads pass straight through; caching is done by the read models.
type Repository[T any] struct {
	base      repository.Repository[T]
	publisher Publisher
	opts      Options[T]
	logger    *zap.Logger
}

// New wraps base so that writes are announced on publisher.
func New[T any](base repository.Repository[T], publisher Publisher, opts Options[T]) *Repository[T] {
	if opts.Entity == "" {
		opts.Entity = entityName[T]()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository[T]{
		base:      base,
		publisher: publisher,
		opts:      opts,
		logger:    logger.Named("repository").With(zap.String("entity", opts.Entity)),
	}
}

// Entity returns the entity name used in published events.
func (r *Repository[T]) Entity() string {
	return r.opts.Entity
}

// Get retrieves a single record using the provided criteria
func (r *Repository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	return r.base.Get(ctx, criteria...)
}

// GetByID retrieves a record by ID with optional criteria
func (r *Repository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	return r.base.GetByID(ctx, id, criteria...)
}

// List retrieves multiple records using the provided criteria
func (r *Repository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return r.base.List(ctx, criteria...)
}

// Count returns the number of records matching the criteria
func (r *Repository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	return r.base.Count(ctx, criteria...)
}

// GetByIdentifier retrieves a record by identifier with optional criteria
func (r *Repository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return r.base.GetByIdentifier(ctx, identifier, criteria...)
}

// GetTx retrieves a single record using the provided criteria within a transaction
func (r *Repository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	return r.base.GetTx(ctx, tx, criteria...)
}

// GetByIDTx retrieves a record by ID within a transaction
func (r *Repository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	return r.base.GetByIDTx(ctx, tx, id, criteria...)
}

// ListTx retrieves multiple records within a transaction
func (r *Repository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return r.base.ListTx(ctx, tx, criteria...)
}

// CountTx returns the number of records matching the criteria within a transaction
func (r *Repository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return r.base.CountTx(ctx, tx, criteria...)
}

// GetByIdentifierTx retrieves a record by identifier within a transaction
func (r *Repository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return r.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
}

// Raw executes a raw SQL query and returns the results
func (r *Repository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return r.base.Raw(ctx, sql, args...)
}

// RawTx executes a raw SQL query within a transaction
func (r *Repository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return r.base.RawTx(ctx, tx, sql, args...)
}

// Handlers returns the model handlers from the base repository
func (r *Repository[T]) Handlers() repository.ModelHandlers[T] {
	return r.base.Handlers()
}

// Create inserts record and publishes a created event
func (r *Repository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	r.prepare(record)
	result, err := r.base.Create(ctx, record, criteria...)
	if err == nil {
		r.publish(ctx, OperationCreated, result, nil)
	}
	return result, err
}

// CreateTx inserts record within a transaction
func (r *Repository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	r.prepare(record)
	result, err := r.base.CreateTx(ctx, tx, record, criteria...)
	if err == nil {
		r.publish(ctx, OperationCreated, result, nil)
	}
	return result, err
}

// CreateMany inserts records and publishes one created event per record
func (r *Repository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	r.prepareAll(records)
	result, err := r.base.CreateMany(ctx, records, criteria...)
	if err == nil {
		r.publishAll(ctx, OperationCreated, result)
	}
	return result, err
}

// CreateManyTx inserts records within a transaction
func (r *Repository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	r.prepareAll(records)
	result, err := r.base.CreateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		r.publishAll(ctx, OperationCreated, result)
	}
	return result, err
}

// GetOrCreate gets a record or creates it if it doesn't exist
func (r *Repository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	r.prepare(record)
	result, err := r.base.GetOrCreate(ctx, record)
	if err == nil {
		// the base repository does not report which branch ran
		r.publish(ctx, OperationCreated, result, nil)
	}
	return result, err
}

// GetOrCreateTx gets a record or creates it within a transaction
func (r *Repository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	r.prepare(record)
	result, err := r.base.GetOrCreateTx(ctx, tx, record)
	if err == nil {
		r.publish(ctx, OperationCreated, result, nil)
	}
	return result, err
}

// Update updates record and publishes an updated event
func (r *Repository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	prev := r.previousRefs(ctx, record)
	result, err := r.base.Update(ctx, record, criteria...)
	if err == nil {
		r.publish(ctx, OperationUpdated, result, prev)
	}
	return result, err
}

// UpdateTx updates record within a transaction
func (r *Repository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	prev := r.previousRefs(ctx, record)
	result, err := r.base.UpdateTx(ctx, tx, record, criteria...)
	if err == nil {
		r.publish(ctx, OperationUpdated, result, prev)
	}
	return result, err
}

// UpdateMany updates records and publishes one updated event per record
func (r *Repository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	prev := r.previousRefsAll(ctx, records)
	result, err := r.base.UpdateMany(ctx, records, criteria...)
	if err == nil {
		r.publishAllWithPrev(ctx, OperationUpdated, result, prev)
	}
	return result, err
}

// UpdateManyTx updates records within a transaction
func (r *Repository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	prev := r.previousRefsAll(ctx, records)
	result, err := r.base.UpdateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		r.publishAllWithPrev(ctx, OperationUpdated, result, prev)
	}
	return result, err
}

// Upsert inserts or updates record; it is announced as an update
func (r *Repository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	r.prepare(record)
	prev := r.previousRefs(ctx, record)
	result, err := r.base.Upsert(ctx, record, criteria...)
	if err == nil {
		r.publish(ctx, OperationUpdated, result, prev)
	}
	return result, err
}

// UpsertTx inserts or updates record within a transaction
func (r *Repository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	r.prepare(record)
	prev := r.previousRefs(ctx, record)
	result, err := r.base.UpsertTx(ctx, tx, record, criteria...)
	if err == nil {
		r.publish(ctx, OperationUpdated, result, prev)
	}
	return result, err
}

// UpsertMany inserts or updates records
func (r *Repository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	r.prepareAll(records)
	prev := r.previousRefsAll(ctx, records)
	result, err := r.base.UpsertMany(ctx, records, criteria...)
	if err == nil {
		r.publishAllWithPrev(ctx, OperationUpdated, result, prev)
	}
	return result, err
}

// UpsertManyTx inserts or updates records within a transaction
func (r *Repository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	r.prepareAll(records)
	prev := r.previousRefsAll(ctx, records)
	result, err := r.base.UpsertManyTx(ctx, tx, records, criteria...)
	if err == nil {
		r.publishAllWithPrev(ctx, OperationUpdated, result, prev)
	}
	return result, err
}

// Delete deletes record and publishes a deleted event
func (r *Repository[T]) Delete(ctx context.Context, record T) error {
	prev := r.previousRefs(ctx, record)
	err := r.base.Delete(ctx, record)
	if err == nil {
		r.publish(ctx, OperationDeleted, record, prev)
	}
	return err
}

// DeleteTx deletes record within a transaction
func (r *Repository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	prev := r.previousRefs(ctx, record)
	err := r.base.DeleteTx(ctx, tx, record)
	if err == nil {
		r.publish(ctx, OperationDeleted, record, prev)
	}
	return err
}

// DeleteMany deletes records matching criteria and publishes a bulk event
func (r *Repository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := r.base.DeleteMany(ctx, criteria...)
	if err == nil {
		r.publishBulk(ctx, OperationDeleted)
	}
	return err
}

// DeleteManyTx deletes records matching criteria within a transaction
func (r *Repository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := r.base.DeleteManyTx(ctx, tx, criteria...)
	if err == nil {
		r.publishBulk(ctx, OperationDeleted)
	}
	return err
}

// DeleteWhere deletes records matching criteria and publishes a bulk event
func (r *Repository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := r.base.DeleteWhere(ctx, criteria...)
	if err == nil {
		r.publishBulk(ctx, OperationDeleted)
	}
	return err
}

// DeleteWhereTx deletes records matching criteria within a transaction
func (r *Repository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := r.base.DeleteWhereTx(ctx, tx, criteria...)
	if err == nil {
		r.publishBulk(ctx, OperationDeleted)
	}
	return err
}

// ForceDelete deletes record bypassing soft delete
func (r *Repository[T]) ForceDelete(ctx context.Context, record T) error {
	prev := r.previousRefs(ctx, record)
	err := r.base.ForceDelete(ctx, record)
	if err == nil {
		r.publish(ctx, OperationDeleted, record, prev)
	}
	return err
}

// ForceDeleteTx deletes record bypassing soft delete within a transaction
func (r *Repository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	prev := r.previousRefs(ctx, record)
	err := r.base.ForceDeleteTx(ctx, tx, record)
	if err == nil {
		r.publish(ctx, OperationDeleted, record, prev)
	}
	return err
}

func (r *Repository[T]) prepare(record T) {
	if r.opts.Prepare != nil {
		r.opts.Prepare(record)
	}
}

func (r *Repository[T]) prepareAll(records []T) {
	for _, record := range records {
		r.prepare(record)
	}
}

// previousRefs loads the stored version of record to capture relations that the
// write may change. Lookup failures only cost precision, never correctness of the
// write itself, so they are logged and ignored.
func (r *Repository[T]) previousRefs(ctx context.Context, record T) map[string]uuid.UUID {
	if r.opts.Refs == nil {
		return nil
	}
	id, err := r.recordID(record)
	if err != nil || id == uuid.Nil {
		return nil
	}
	stored, err := r.base.GetByID(ctx, id.String())
	if err != nil {
		r.logger.Debug("previous record not loaded", zap.Stringer("id", id), zap.Error(err))
		return nil
	}
	if isNilRecord(stored) {
		return nil
	}
	return r.opts.Refs(stored)
}

func (r *Repository[T]) previousRefsAll(ctx context.Context, records []T) []map[string]uuid.UUID {
	if r.opts.Refs == nil {
		return nil
	}
	prev := make([]map[string]uuid.UUID, len(records))
	for i, record := range records {
		prev[i] = r.previousRefs(ctx, record)
	}
	return prev
}

func (r *Repository[T]) publish(ctx context.Context, op Operation, record T, prev map[string]uuid.UUID) {
	id, err := r.recordID(record)
	if err != nil {
		r.logger.Warn("record id not found, publishing bulk event", zap.Error(err))
		r.publishBulk(ctx, op)
		return
	}

	event := Event{
		Entity:    r.opts.Entity,
		Operation: op,
		ID:        id,
		PrevRefs:  prev,
	}
	if r.opts.Refs != nil {
		event.Refs = r.opts.Refs(record)
	}
	r.deliver(ctx, event)
}

func (r *Repository[T]) publishAll(ctx context.Context, op Operation, records []T) {
	for _, record := range records {
		r.publish(ctx, op, record, nil)
	}
}

func (r *Repository[T]) publishAllWithPrev(ctx context.Context, op Operation, records []T, prev []map[string]uuid.UUID) {
	for i, record := range records {
		var p map[string]uuid.UUID
		if i < len(prev) {
			p = prev[i]
		}
		r.publish(ctx, op, record, p)
	}
}

func (r *Repository[T]) publishBulk(ctx context.Context, op Operation) {
	r.deliver(ctx, Event{Entity: r.opts.Entity, Operation: op, Bulk: true})
}

// deliver never fails the write: the record is committed at this point.
func (r *Repository[T]) deliver(ctx context.Context, event Event) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Error("change event delivery failed",
			zap.String("operation", string(event.Operation)),
			zap.Stringer("id", event.ID),
			zap.Error(err),
		)
	}
}

func (r *Repository[T]) recordID(record T) (uuid.UUID, error) {
	if r.opts.ID != nil {
		return r.opts.ID(record), nil
	}
	return extractID(record)
}

// extractID reads an ID field through reflection for models without an ID accessor.
func extractID(record any) (uuid.UUID, error) {
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return uuid.Nil, fmt.Errorf("nil record")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return uuid.Nil, fmt.Errorf("record of kind %s has no ID field", v.Kind())
	}

	for _, name := range []string{"ID", "Id"} {
		field := v.FieldByName(name)
		if !field.IsValid() || !field.CanInterface() {
			continue
		}
		switch id := field.Interface().(type) {
		case uuid.UUID:
			return id, nil
		case string:
			return uuid.Parse(id)
		}
	}
	return uuid.Nil, fmt.Errorf("no uuid ID field found in %s", v.Type())
}

func entityName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return toSnake(t.Name())
}

func isNilRecord(record any) bool {
	if record == nil {
		return true
	}
	v := reflect.ValueOf(record)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}
