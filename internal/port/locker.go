package port

import "context"

// Locker grants at most one holder per key. TryLock returns ErrRepoLocked
// when the key is already held.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(), err error)
}
