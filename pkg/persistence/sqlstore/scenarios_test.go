package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/dukex/phasetrack/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The scenarios below run against every supported database.

func runReferenceScenario(ctx context.Context, t *testing.T, store persistence.Persistence) {
	t.Helper()

	received := time.Now().UTC().Truncate(time.Microsecond)
	reference := testutil.CreateTestReference(testutil.AtPhase("design"))
	registerReference(ctx, t, store, reference, received)

	require.NotZero(t, reference.ID)

	byID, err := store.ReferenceByID(ctx, reference.ID)
	require.NoError(t, err)
	assert.Equal(t, "REF-001", byID.Code)
	assert.Equal(t, "SS26", byID.Collection)
	assert.Equal(t, "design", byID.CurrentPhaseSlug())
	assert.Nil(t, byID.CompletedAt)
	assert.True(t, reference.CreatedAt.Equal(byID.CreatedAt))

	byCode, err := store.ReferenceByCode(ctx, "REF-001")
	require.NoError(t, err)
	assert.Equal(t, reference.ID, byCode.ID)

	_, err = store.ReferenceByID(ctx, reference.ID+100)
	assert.ErrorIs(t, err, persistence.ErrReferenceNotFound)

	_, err = store.ReferenceByCode(ctx, "REF-404")
	assert.ErrorIs(t, err, persistence.ErrReferenceNotFound)

	err = store.Atomically(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.CreateReference(ctx, testutil.CreateTestReference())
	})
	assert.ErrorIs(t, err, persistence.ErrReferenceAlreadyExists)

	completed := received.Add(time.Hour)

	err = store.Atomically(ctx, func(ctx context.Context, tx persistence.Tx) error {
		locked, err := tx.ReferenceForUpdate(ctx, reference.ID)
		if err != nil {
			return err
		}

		locked.CurrentPhase = nil
		locked.CompletedAt = &completed
		locked.UpdatedAt = completed

		return tx.UpdateReference(ctx, locked)
	})
	require.NoError(t, err)

	byID, err = store.ReferenceByID(ctx, reference.ID)
	require.NoError(t, err)
	assert.True(t, byID.IsCompleted())
	assert.True(t, completed.Equal(*byID.CompletedAt))
}

func runRecordLifecycleScenario(ctx context.Context, t *testing.T, store persistence.Persistence) {
	t.Helper()

	received := time.Now().UTC().Truncate(time.Microsecond).Add(-10 * time.Hour)
	reference := testutil.CreateTestReference(testutil.AtPhase("md-corte"))
	first := registerReference(ctx, t, store, reference, received)

	delivered := received.Add(10 * time.Hour)
	hours := 10.0

	err := store.Atomically(ctx, func(ctx context.Context, tx persistence.Tx) error {
		open, err := tx.OpenRecord(ctx, reference.ID, "md-corte")
		if err != nil {
			return err
		}

		assert.Equal(t, first.ID, open.ID)

		err = tx.AppendEvent(ctx, &models.ActionEvent{
			RecordID:   open.ID,
			Type:       models.ActionDeliver,
			At:         delivered,
			ActingUser: "ana",
			Notes:      "cut finished",
		})
		if err != nil {
			return err
		}

		open.DeliveredAt = &delivered
		open.Status = models.RecordStatusCompleted
		open.ActualHours = &hours
		open.UpdatedAt = delivered

		err = tx.CloseRecord(ctx, open)
		if err != nil {
			return err
		}

		return tx.CreateRecord(ctx, &models.TraceabilityRecord{
			ReferenceID: reference.ID,
			PhaseSlug:   "md-confeccion",
			ReceivedAt:  delivered,
			Status:      models.RecordStatusInProgress,
			CreatedAt:   delivered,
			UpdatedAt:   delivered,
		})
	})
	require.NoError(t, err)

	records, err := store.RecordsForReference(ctx, reference.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	closed := records[0]
	assert.Equal(t, "md-corte", closed.PhaseSlug)
	assert.Equal(t, models.RecordStatusCompleted, closed.Status)
	require.NotNil(t, closed.DeliveredAt)
	assert.True(t, delivered.Equal(*closed.DeliveredAt))
	require.NotNil(t, closed.ActualHours)
	assert.InDelta(t, 10.0, *closed.ActualHours, 0.001)
	require.Len(t, closed.Events, 1)
	assert.Equal(t, models.ActionDeliver, closed.Events[0].Type)
	assert.Equal(t, "cut finished", closed.Events[0].Notes)

	next := records[1]
	assert.Equal(t, "md-confeccion", next.PhaseSlug)
	assert.True(t, next.IsOpen())
	assert.Nil(t, next.ActualHours)

	err = store.Atomically(ctx, func(ctx context.Context, tx persistence.Tx) error {
		_, err := tx.OpenRecord(ctx, reference.ID, "md-corte")

		return err
	})
	assert.ErrorIs(t, err, persistence.ErrRecordNotFound)

	err = store.Atomically(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.CloseRecord(ctx, closed)
	})
	assert.ErrorIs(t, err, persistence.ErrRecordNotFound, "closing twice must fail")
}

func runUserScenario(ctx context.Context, t *testing.T, store persistence.Persistence) {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)

	user := testutil.CreateTestUser()
	user.CreatedAt = now
	user.UpdatedAt = now

	require.NoError(t, store.CreateUser(ctx, user))
	require.NotZero(t, user.ID)

	duplicate := testutil.CreateTestUser()
	duplicate.CreatedAt = now
	duplicate.UpdatedAt = now
	assert.ErrorIs(t, store.CreateUser(ctx, duplicate), persistence.ErrUserAlreadyExists)

	fetched, err := store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Cortes", fetched.Name)
	assert.Equal(t, models.UserStatusActive, fetched.Status)

	fetched.Status = models.UserStatusInactive
	fetched.Area = "fit"
	require.NoError(t, store.UpdateUser(ctx, fetched))

	users, err := store.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.UserStatusInactive, users[0].Status)
	assert.Equal(t, "fit", users[0].Area)

	require.NoError(t, store.DeleteUser(ctx, user.ID))

	_, err = store.UserByID(ctx, user.ID)
	require.ErrorIs(t, err, persistence.ErrUserNotFound)
	assert.ErrorIs(t, store.DeleteUser(ctx, user.ID), persistence.ErrUserNotFound)
	assert.ErrorIs(t, store.UpdateUser(ctx, fetched), persistence.ErrUserNotFound)
}
