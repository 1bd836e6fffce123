package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	assert.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_ChildrenShareBuffer(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Named("scheduler").Warn("lead time unavailable")
	logger.With(logging.String("component", "calculator")).Warn("scope fallback")

	assert.True(t, logger.HasMessage("warn", "lead time unavailable"))
	assert.True(t, logger.HasMessage("warn", "scope fallback"))
}
