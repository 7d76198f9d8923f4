package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutePriorities(t *testing.T) {
	t.Run("sufficient wins over budget", func(t *testing.T) {
		// Sufficiency is checked first even on the final allowed attempt.
		assert.Equal(t, StopSufficient, Route(true, 3, 3))
		assert.Equal(t, StopSufficient, Route(true, 1, 5))
	})

	t.Run("budget exhausted", func(t *testing.T) {
		assert.Equal(t, StopExhausted, Route(false, 3, 3))
		assert.Equal(t, StopExhausted, Route(false, 4, 3))
	})

	t.Run("continue otherwise", func(t *testing.T) {
		assert.Equal(t, Continue, Route(false, 1, 3))
		assert.Equal(t, Continue, Route(false, 2, 3))
	})
}

func TestNewRouterValidatesBudget(t *testing.T) {
	_, err := NewRouter(0)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "max_attempts", cfgErr.Field)

	_, err = NewRouter(-1)
	assert.Error(t, err)

	router, err := NewRouter(2)
	require.NoError(t, err)
	assert.Equal(t, 2, router.MaxAttempts())
	assert.Equal(t, Continue, router.Route(false, 1))
	assert.Equal(t, StopExhausted, router.Route(false, 2))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "continue", Continue.String())
	assert.Equal(t, "stop_sufficient", StopSufficient.String())
	assert.Equal(t, "stop_exhausted", StopExhausted.String())
	assert.Equal(t, "unknown", Decision(99).String())
}
