package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
)

// sequenceGenerator 依序回傳預先給定的 ID
func sequenceGenerator(ids ...string) IDGenerator {
	i := 0
	return func() (string, error) {
		id := ids[i%len(ids)]
		i++
		return id, nil
	}
}

func TestIDAllocator_RetriesOnCollision(t *testing.T) {
	taken := map[string]bool{"a": true, "b": true}
	alloc := NewIDAllocator(sequenceGenerator("a", "b", "c"), 5)

	id, err := alloc.Allocate(func(id string) bool {
		if taken[id] {
			return false
		}
		taken[id] = true
		return true
	})
	require.NoError(t, err)
	require.Equal(t, "c", id)
}

func TestIDAllocator_Exhausted(t *testing.T) {
	calls := 0
	alloc := NewIDAllocator(sequenceGenerator("dup"), 3)

	_, err := alloc.Allocate(func(string) bool {
		calls++
		return false
	})
	require.ErrorIs(t, err, domain.ErrAllocationExhausted)
	require.Equal(t, 3, calls)
}

func TestIDAllocator_GeneratorErrorCountsAsAttempt(t *testing.T) {
	alloc := NewIDAllocator(func() (string, error) {
		return "", errors.New("entropy unavailable")
	}, 2)

	_, err := alloc.Allocate(func(string) bool { return true })
	require.ErrorIs(t, err, domain.ErrAllocationExhausted)
	require.Contains(t, err.Error(), "entropy unavailable")
}

func TestIDAllocator_Defaults(t *testing.T) {
	alloc := NewIDAllocator(nil, 0)
	require.Equal(t, DefaultMaxAttempts, alloc.maxAttempts)

	id, err := alloc.Allocate(func(string) bool { return true })
	require.NoError(t, err)
	require.Len(t, id, 36)
}
