package reconciler

import "context"

// singleton describes how to converge a list of remote resources to exactly
// one instance.
type singleton[T any] struct {
	// match selects the item to keep. nil keeps the first item; a predicate
	// that never matches forces every item to be removed and recreated.
	match  func(T) bool
	create func(ctx context.Context) error
	// update edits the kept item in place. nil leaves it untouched.
	update func(ctx context.Context, item T) error
	remove func(ctx context.Context, item T) error
}

// ensureSingleton keeps the first matching item, removes all others and
// creates one when nothing was kept.
func ensureSingleton[T any](ctx context.Context, items []T, s singleton[T]) error {
	kept := false
	for _, item := range items {
		if !kept && (s.match == nil || s.match(item)) {
			kept = true
			if s.update != nil {
				if err := s.update(ctx, item); err != nil {
					return err
				}
			}
			continue
		}
		if err := s.remove(ctx, item); err != nil {
			return err
		}
	}
	if kept {
		return nil
	}
	return s.create(ctx)
}

// removeAll deletes every item.
func removeAll[T any](ctx context.Context, items []T, remove func(context.Context, T) error) error {
	for _, item := range items {
		if err := remove(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func never[T any](T) bool { return false }
