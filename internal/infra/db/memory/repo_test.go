package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
)

func TestRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()
	id := uuid.New()

	require.NoError(t, r.SaveProject(ctx, &projects.Project{ProjectID: id, FileName: "a.csv", CreatedAt: time.Now()}))
	require.NoError(t, r.SaveFields(ctx, id, []fields.Analysis{
		{Sample: fields.Sample{FieldName: "x", NullRate: 0.25, UniqueRate: 42.6}},
	}))

	got, err := r.GetFields(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 25.0, got[0].NullRate)
	assert.Equal(t, 43.0, got[0].UniqueRate)

	status := fields.StatusRejected
	require.NoError(t, r.UpdateField(ctx, id, "x", projects.FieldUpdate{Status: &status}))
	assert.ErrorIs(t, r.UpdateField(ctx, id, "nope", projects.FieldUpdate{Status: &status}), projects.ErrNotFound)

	got, _ = r.GetFields(ctx, id)
	assert.Equal(t, fields.StatusRejected, got[0].Status)

	require.NoError(t, r.DeleteProject(ctx, id))
	_, err = r.GetProject(ctx, id)
	assert.ErrorIs(t, err, projects.ErrNotFound)
	got, _ = r.GetFields(ctx, id)
	assert.Empty(t, got)
}

func TestRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.SaveProject(ctx, &projects.Project{ProjectID: uuid.New(), FileName: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	list, err := r.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].FileName)
	assert.Equal(t, "a", list[2].FileName)
}
