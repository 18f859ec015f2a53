package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Run("default when unset", func(t *testing.T) {
		assert.Equal(t, "fallback", GetEnv("HC_TEST_UNSET_VAR", "fallback"))
		assert.Equal(t, 42, GetEnv("HC_TEST_UNSET_VAR", 42))
		assert.True(t, GetEnv("HC_TEST_UNSET_VAR", true))
	})

	t.Run("parses typed values", func(t *testing.T) {
		t.Setenv("HC_TEST_INT", "8000")
		t.Setenv("HC_TEST_BOOL", "true")
		t.Setenv("HC_TEST_STRING", "databricks")
		t.Setenv("HC_TEST_FLOAT", "0.5")

		assert.Equal(t, 8000, GetEnv("HC_TEST_INT", 0))
		assert.True(t, GetEnv("HC_TEST_BOOL", false))
		assert.Equal(t, "databricks", GetEnv("HC_TEST_STRING", "memory"))
		assert.InDelta(t, 0.5, GetEnv("HC_TEST_FLOAT", 1.0), 1e-9)
	})

	t.Run("empty value uses default", func(t *testing.T) {
		t.Setenv("HC_TEST_EMPTY", "")
		assert.Equal(t, 3, GetEnv("HC_TEST_EMPTY", 3))
	})
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("HC_TEST_LIST", " http://a:3000, ,http://b:5173 ")
	assert.Equal(t, []string{"http://a:3000", "http://b:5173"}, GetEnvList("HC_TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, GetEnvList("HC_TEST_LIST_UNSET", []string{"x"}))
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("HC_TEST_DELAY_MS", "25")
	assert.Equal(t, 25*time.Millisecond, GetEnvDuration("HC_TEST_DELAY_MS", 20*time.Millisecond, time.Millisecond))
	assert.Equal(t, 5*time.Second, GetEnvDuration("HC_TEST_DELAY_UNSET", 5*time.Second, time.Second))
}
