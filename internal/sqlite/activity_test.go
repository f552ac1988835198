package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/splitlab/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertExperiment(t, db, "e1", "tenant1")

	repo := NewActivityRepository(db)
	entry1 := &activity.ActivityEntry{
		ExperimentID: "e1",
		ActivityType: activity.TypeExperimentCreated,
		Summary:      "created experiment",
		Details:      `{"id":"e1"}`,
	}
	entry2 := &activity.ActivityEntry{
		ExperimentID: "e1",
		ActivityType: activity.TypeStatusChanged,
		Summary:      "status draft -> running",
	}

	require.NoError(t, repo.Log(ctx, "tenant1", entry1))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Log(ctx, "tenant1", entry2))
	require.NotZero(t, entry1.ID)

	entries, err := repo.List(ctx, "tenant1", activity.ListActivityOptions{ExperimentID: "e1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Equal(t, entry1.ActivityType, entries[1].ActivityType)
	require.Equal(t, `{"id":"e1"}`, entries[1].Details)
}

func TestActivityRepository_FiltersAndTenantIsolation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	insertExperiment(t, db, "e1", "tenant1")
	insertExperiment(t, db, "e2", "tenant2")

	repo := NewActivityRepository(db)
	require.NoError(t, repo.Log(ctx, "tenant1", &activity.ActivityEntry{
		ExperimentID: "e1",
		ActivityType: activity.TypeExperimentCreated,
		Summary:      "created",
	}))
	require.NoError(t, repo.Log(ctx, "tenant1", &activity.ActivityEntry{
		ExperimentID: "e1",
		ActivityType: activity.TypeStatusChanged,
		Summary:      "status draft -> running",
	}))

	activityType := activity.TypeStatusChanged
	entries, err := repo.List(ctx, "tenant1", activity.ListActivityOptions{
		ExperimentID: "e1",
		ActivityType: &activityType,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, "tenant1", activity.ListActivityOptions{ExperimentID: "e1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, activity.TypeExperimentCreated, entries[0].ActivityType)

	entries, err = repo.List(ctx, "tenant2", activity.ListActivityOptions{ExperimentID: "e1"})
	require.NoError(t, err)
	require.Len(t, entries, 0)
}
