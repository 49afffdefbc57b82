// Package repositoryevents announces repository writes.
//
// Repository wraps a go-repository-bun repository. Reads pass through; every
// successful write publishes an Event describing the entity, the operation,
// the record id and the record's relations before and after the write:
//
//	bus := repositoryevents.NewBus(logger)
//	products := repositoryevents.New(base, bus, repositoryevents.Options[*catalog.Product]{
//		Entity: "product",
//		ID:     func(p *catalog.Product) uuid.UUID { return p.ID },
//		Refs:   catalog.ProductRefs,
//	})
//	bus.Subscribe(invalidator.Handle)
//
// Bus delivers synchronously, so subscribers have finished when the write
// call returns. Subscriber errors are logged and never turn a committed write
// into a failure.
//
// Writes that bypass the decorator (raw SQL, other processes) are invisible to
// subscribers. Use the Redis broadcaster in the invalidation package for the
// latter.
package repositoryevents
