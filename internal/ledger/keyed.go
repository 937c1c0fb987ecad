package ledger

import "fmt"

// keyedSet holds children unique by key and remembers insertion order, which
// is the order reports list farms and years in.
type keyedSet[K comparable, V any] struct {
	index map[K]V
	order []V
}

func newKeyedSet[K comparable, V any]() keyedSet[K, V] {
	return keyedSet[K, V]{index: make(map[K]V)}
}

func (s *keyedSet[K, V]) get(key K) (V, bool) {
	v, ok := s.index[key]
	return v, ok
}

// add registers v under key, refusing to replace an existing child.
func (s *keyedSet[K, V]) add(key K, v V) error {
	if _, exists := s.index[key]; exists {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, key)
	}
	s.index[key] = v
	s.order = append(s.order, v)
	return nil
}

// getOrCreate returns the child stored under key, building and registering
// one with create when absent.
func (s *keyedSet[K, V]) getOrCreate(key K, create func(K) V) V {
	if v, ok := s.index[key]; ok {
		return v
	}
	v := create(key)
	s.index[key] = v
	s.order = append(s.order, v)
	return v
}

func (s *keyedSet[K, V]) values() []V {
	out := make([]V, len(s.order))
	copy(out, s.order)
	return out
}

func (s *keyedSet[K, V]) len() int { return len(s.order) }
