package retry

import (
	"context"
	"time"

	"github.com/YelzhanWeb/campuseats/internal/domain"
)

// Policy bounds how often a store call is repeated after a persistence failure.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// Persistence runs fn until it succeeds, fails with anything other than a
// PersistenceError, or the attempts are used up.
func (p Policy) Persistence(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !domain.IsPersistence(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.Backoff):
		}
	}
	return err
}
