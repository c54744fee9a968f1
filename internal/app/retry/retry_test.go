package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/YelzhanWeb/campuseats/internal/domain"
)

func TestPersistenceRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Policy{Attempts: 3}.Persistence(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &domain.PersistenceError{Op: "append", Err: errors.New("disk full")}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPersistenceGivesUp(t *testing.T) {
	calls := 0
	err := Policy{Attempts: 2}.Persistence(context.Background(), func() error {
		calls++
		return &domain.PersistenceError{Op: "append", Err: errors.New("disk full")}
	})

	assert.True(t, domain.IsPersistence(err))
	assert.Equal(t, 2, calls)
}

func TestPersistenceDoesNotRetryConflicts(t *testing.T) {
	calls := 0
	err := Policy{Attempts: 5}.Persistence(context.Background(), func() error {
		calls++
		return &domain.ConflictError{OrderID: "ORD-1", Reason: domain.ConflictAlreadyClaimed}
	})

	assert.True(t, domain.IsConflict(err))
	assert.Equal(t, 1, calls)
}
