package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/galette-community/plugin-stripe/pkg/db/option"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type noteRow struct {
	ID    int64  `gorm:"column:id;primaryKey"`
	Topic string `gorm:"column:topic"`
	State int    `gorm:"column:state"`
}

func setupStore(t *testing.T) (*gorm.DB, Repository[noteRow]) {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY, topic TEXT NOT NULL, state INTEGER NOT NULL DEFAULT 0)`).Error)
	return conn, ProvideStore[noteRow](conn, "notes")
}

func TestStoreCreateFindCount(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.BatchCreate(ctx, []*noteRow{
		{ID: 1, Topic: "a"},
		{ID: 2, Topic: "b"},
		{ID: 3, Topic: "a", State: 1},
	}))

	rows, err := store.Find(ctx, &noteRow{Topic: "a"}, option.WithOrder("id", option.Desc))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), rows[0].ID)

	count, err := store.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	paged, err := store.Find(ctx, nil, option.WithOrder("id", option.Asc), option.WithOffset(1), option.WithLimit(1))
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, int64(2), paged[0].ID)
}

func TestStoreFindOneMissingReturnsNil(t *testing.T) {
	_, store := setupStore(t)
	row, err := store.FindOne(context.Background(), &noteRow{ID: 99})
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestStoreExists(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &noteRow{ID: 1, Topic: "a", State: 1}))

	ok, err := store.Exists(ctx, &noteRow{Topic: "a", State: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, &noteRow{Topic: "b"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreUpdateColumnsRequiresCondition(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &noteRow{ID: 1, Topic: "a"}))

	_, err := store.UpdateColumns(ctx, map[string]any{"state": 2})
	assert.ErrorIs(t, err, gorm.ErrMissingWhereClause)

	n, err := store.UpdateColumns(ctx, map[string]any{"state": 2}, option.WithWhere("id = ? AND state = ?", 1, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.UpdateColumns(ctx, map[string]any{"state": 3}, option.WithWhere("id = ? AND state = ?", 1, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestStoreWithTrxRollsBack(t *testing.T) {
	conn, store := setupStore(t)
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := store.WithTrx(tx).Create(ctx, &noteRow{ID: 7, Topic: "tx"}); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	row, err := store.FindOne(ctx, &noteRow{ID: 7})
	require.NoError(t, err)
	assert.Nil(t, row)
}
