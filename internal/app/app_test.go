package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amadis/amblue/internal/log"
)

func TestClose_PartialInit(t *testing.T) {
	t.Parallel()

	// Close must be safe on an App where Setup failed before any resource
	// was acquired.
	a := &App{Logger: log.NewNop()}
	assert.NoError(t, a.Close())
}

func TestClose_RunsCleanupsInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	a := &App{
		Logger:      log.NewNop(),
		dbCleanup:   func() { order = append(order, "db") },
		otelCleanup: func() { order = append(order, "otel") },
	}

	assert.NoError(t, a.Close())
	assert.Equal(t, []string{"db", "otel"}, order)
}
