//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/platform/postgres"
	"github.com/phrazzld/pathwise/internal/store"
	"github.com/phrazzld/pathwise/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// IDs sit far above anything a developer database is likely to hold.
const (
	itDomain = int64(9_100_000)
	itPath   = int64(9_100_010)
	itUnit   = int64(9_100_100)
	itLesson = int64(9_101_000)
	itCard   = int64(9_105_000)
)

func seedContent(t *testing.T, tx *sql.Tx) {
	t.Helper()
	rows := []struct {
		id     int64
		parent any
		kind   domain.NodeKind
	}{
		{itDomain, nil, domain.NodeKindDomain},
		{itPath, itDomain, domain.NodeKindPath},
		{itUnit, itPath, domain.NodeKindUnit},
		{itLesson, itUnit, domain.NodeKindLesson},
		{itCard, itLesson, domain.NodeKindFlashcard},
	}
	for _, r := range rows {
		_, err := tx.Exec(`
			INSERT INTO content_nodes (id, parent_id, kind, ordinal_position, title, published)
			VALUES ($1, $2, $3, 0, 'integration', TRUE)`, r.id, r.parent, string(r.kind))
		require.NoError(t, err)
	}
}

func TestStoresAgainstPostgres(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	log, _ := logger.NewTestLogger()
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	userID := uuid.New()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		seedContent(t, tx)
		st := postgres.NewStores(tx, log)

		t.Run("content", func(t *testing.T) {
			n, err := st.Content.GetNode(ctx, itLesson)
			require.NoError(t, err)
			assert.Equal(t, domain.NodeKindLesson, n.Kind)
			require.NotNil(t, n.ParentID)
			assert.Equal(t, itUnit, *n.ParentID)

			children, err := st.Content.ListChildren(ctx, itPath)
			require.NoError(t, err)
			require.Len(t, children, 1)
			assert.Equal(t, itUnit, children[0].ID)

			_, err = st.Content.GetNode(ctx, itCard+1)
			assert.ErrorIs(t, err, store.ErrNotFound)
		})

		t.Run("progress keeps the best score", func(t *testing.T) {
			rec := &domain.ProgressRecord{
				UserID: userID, NodeID: itLesson, NodeKind: domain.NodeKindLesson, CompletedAt: now, Score: 70,
			}
			stored, created, err := st.Progress.Upsert(ctx, rec)
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, 70, stored.Score)

			later := *rec
			later.Score = 40
			later.CompletedAt = now.Add(time.Hour)
			stored, created, err = st.Progress.Upsert(ctx, &later)
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, 70, stored.Score)
			assert.True(t, now.Equal(stored.CompletedAt))

			count, err := st.Progress.CountCompletedChildren(ctx, userID, itUnit)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})

		t.Run("hearts optimistic update", func(t *testing.T) {
			h, err := st.Hearts.GetForUpdate(ctx, userID, itPath, 5, now)
			require.NoError(t, err)
			assert.Equal(t, 5, h.HeartsRemaining)

			stale := *h
			h.HeartsRemaining = 4
			require.NoError(t, st.Hearts.Update(ctx, h))
			assert.Equal(t, int64(1), h.Version)

			stale.HeartsRemaining = 3
			assert.ErrorIs(t, st.Hearts.Update(ctx, &stale), store.ErrConflict)

			again, err := st.Hearts.GetForUpdate(ctx, userID, itPath, 5, now)
			require.NoError(t, err)
			assert.Equal(t, 4, again.HeartsRemaining)
		})

		t.Run("struggling queue", func(t *testing.T) {
			e, err := st.Struggling.RecordFailure(ctx, userID, itCard, now)
			require.NoError(t, err)
			assert.Equal(t, 1, e.TimesFailed)

			e, err = st.Struggling.Add(ctx, userID, itCard, now.Add(time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 1, e.TimesFailed)

			list, err := st.Struggling.List(ctx, userID, 10)
			require.NoError(t, err)
			require.Len(t, list, 1)

			require.NoError(t, st.Struggling.Remove(ctx, userID, itCard))
			_, err = st.Struggling.Get(ctx, userID, itCard)
			assert.Error(t, err)
		})

		t.Run("xp ledger", func(t *testing.T) {
			for _, amount := range []int{10, 50} {
				require.NoError(t, st.XP.Append(ctx, &domain.XPTransaction{
					UserID: userID, Amount: amount, Source: domain.XPSourceReviewCorrect, OccurredAt: now,
				}))
			}
			total, err := st.XP.Total(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, 60, total)

			sum, err := st.XP.SumBetween(ctx, userID, now.Add(time.Second), now.Add(time.Hour))
			require.NoError(t, err)
			assert.Zero(t, sum)
		})
	})
}
