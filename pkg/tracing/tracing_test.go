package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/pkg/logger"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(config.Config{}, logger.NewNopLogger(), "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
