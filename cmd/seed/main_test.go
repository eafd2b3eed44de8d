package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agro-dashboard/backend/internal/logging"
	"agro-dashboard/backend/internal/repository"
	"agro-dashboard/backend/internal/services"
)

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryStore()
	catalog := services.NewCatalogService(repo, logging.NewNop())

	require.NoError(t, seed(ctx, catalog, logging.NewNop(), "Phase 1", 3))
	require.NoError(t, seed(ctx, catalog, logging.NewNop(), "Phase 1", 3))

	stages, err := catalog.ListStages(ctx)
	require.NoError(t, err)
	require.Len(t, stages, len(defaultStages))
	assert.Equal(t, "Spawn Run", stages[0].Name)

	phases, err := catalog.ListPhases(ctx)
	require.NoError(t, err)
	require.Len(t, phases, 1)

	rooms, err := catalog.ListRooms(ctx, phases[0].ID)
	require.NoError(t, err)
	assert.Len(t, rooms, 3)
}
