// Package entity is the entity model and the repository contract.
//
// An entity type declares a Shape once at package level, listing typed
// attribute descriptors and computed properties. Instances are materialized
// by a Factory into a Record: an ordered set of stored fields plus a
// separate cache of computed values. The Record carries equality, hashing
// and copying, so entity types stay thin wrappers that embed Base:
//
//	var (
//		somethingName = entity.Attr[string]("name")
//		somethingShape = entity.NewShape("Something", somethingName)
//	)
//
//	type Something struct{ entity.Base }
//
//	func (s *Something) Name() string { return somethingName.Get(s) }
//
// Writes are checked against the shape. Declared setters panic with a
// *ShapeViolationError on a mismatch, since it is a programming error;
// Record.SetProperty and Repository.ForceSet return it instead.
//
// Repositories persist entities through a Store. StoreRepository adapts any
// Store to Repository[T]; the memory and sqlstore packages provide stores,
// and Resolver serves repositories to an instances.Registry.
package entity
