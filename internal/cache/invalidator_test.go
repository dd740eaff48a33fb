package cache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliassehm/conformity/internal/cache"
	"github.com/iliassehm/conformity/internal/domain"
)

func TestKeys(t *testing.T) {
	t.Run("customer only", func(t *testing.T) {
		keys, patterns, err := cache.Keys("bo", domain.Owner{CustomerID: "c1"})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"bo:customer:c1:documents",
			"bo:customer:c1:envelopes",
			"bo:customer:c1:campaigns",
		}, keys)
		assert.Equal(t, "bo:customer:c1:documents:*", patterns[0])
	})

	t.Run("customer and company", func(t *testing.T) {
		keys, _, err := cache.Keys("bo", domain.Owner{CustomerID: "c1", CompanyID: "co1"})
		require.NoError(t, err)
		assert.Len(t, keys, 6)
		assert.Contains(t, keys, "bo:company:co1:campaigns")
	})

	t.Run("empty owner", func(t *testing.T) {
		_, _, err := cache.Keys("bo", domain.Owner{})
		require.ErrorIs(t, err, cache.ErrNoScope)
	})
}

func TestNoop(t *testing.T) {
	require.NoError(t, cache.Noop{}.Invalidate(context.Background(), domain.Owner{}))
}
