// Package memory is the in-memory backend of entity repositories, used as a
// test double.
//
// A domain repository with extra query methods wraps *Repository[T] and
// forwards each extra method to Invoke:
//
//	type somethings struct{ *memory.Repository[*Something] }
//
//	func (s somethings) FindByName(ctx context.Context, name string) ([]*Something, error) {
//		ret := s.Invoke("FindByName", name)
//		return ret.Get(0).([]*Something), ret.Error(1)
//	}
//
// Tests stub the method with On; an unstubbed call panics with
// *UnsupportedOperationError so that every query a test relies on is set
// up explicitly.
package memory
