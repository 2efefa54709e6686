package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/mangakeeper/internal/common"
	sc "github.com/dmitrijs2005/mangakeeper/internal/server/config"
	"github.com/dmitrijs2005/mangakeeper/internal/server/models"
	"github.com/dmitrijs2005/mangakeeper/internal/server/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	e := newTestEnv(t)
	c := registerThree(t, e)

	got, err := e.svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = e.svc.Get(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, common.ErrorNotFound)

	e.repo.getErr = errBoom
	_, err = e.svc.Get(context.Background(), c.ID)
	require.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestList(t *testing.T) {
	e := newTestEnv(t)

	items, err := e.svc.List(context.Background(), models.ListFilter{Mode: models.ListRecent, Query: "one"})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, models.ListFilter{Mode: models.ListRecent, Query: "one"}, e.repo.lastFilter)

	_, err = e.svc.List(context.Background(), models.ListFilter{Mode: "weird"})
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = e.svc.List(context.Background(), models.ListFilter{Limit: -1})
	require.ErrorIs(t, err, common.ErrorValidation)
}

func TestUpdateProgress(t *testing.T) {
	e := newTestEnv(t)
	c := registerThree(t, e)

	require.NoError(t, e.svc.UpdateProgress(context.Background(), c.ID, 2))
	got, _ := e.repo.GetByID(context.Background(), c.ID)
	assert.Equal(t, 2, got.LastPageRead)
	require.NotNil(t, got.LastReadAt)
	assert.True(t, got.InProgress())

	require.NoError(t, e.svc.UpdateProgress(context.Background(), c.ID, 3))
	got, _ = e.repo.GetByID(context.Background(), c.ID)
	assert.True(t, got.Finished())

	require.NoError(t, e.svc.UpdateProgress(context.Background(), c.ID, 0))

	err := e.svc.UpdateProgress(context.Background(), c.ID, -1)
	require.ErrorIs(t, err, common.ErrorValidation)

	err = e.svc.UpdateProgress(context.Background(), c.ID, 4)
	require.ErrorIs(t, err, common.ErrorValidation)

	err = e.svc.UpdateProgress(context.Background(), uuid.NewString(), 1)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete_KeepsObjectsByDefault(t *testing.T) {
	e := newTestEnv(t)
	c := registerThree(t, e)
	e.expectTx()

	require.NoError(t, e.svc.Delete(context.Background(), c.ID))
	assert.Zero(t, e.repo.count())
	assert.True(t, e.store.has(c.ZipKey))
	assert.Empty(t, e.store.deletes)

	require.NoError(t, e.mock.ExpectationsWereMet())
	err := e.svc.Delete(context.Background(), c.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete_PurgesObjectsWhenEnabled(t *testing.T) {
	e := newTestEnv(t, func(c *sc.Config) { c.PurgeBlobsOnDelete = true })
	c := registerThree(t, e)
	e.expectTx()

	require.NoError(t, e.svc.Delete(context.Background(), c.ID))
	assert.False(t, e.store.has(c.ZipKey))
	assert.False(t, e.store.has(*c.ThumbnailKey))
	assert.False(t, e.store.has(storage.MetadataKey(c.ID)))
	require.NoError(t, e.mock.ExpectationsWereMet())
}

func TestThumbnailURL(t *testing.T) {
	e := newTestEnv(t)
	c := registerThree(t, e)

	url, err := e.svc.ThumbnailURL(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "signed://"+*c.ThumbnailKey, url)

	e.store.presignErr = errBoom
	_, err = e.svc.ThumbnailURL(context.Background(), c.ID)
	require.ErrorIs(t, err, common.ErrorTransient)

	e.store.presignErr = nil
	e.repo.byID[c.ID].ThumbnailKey = nil
	_, err = e.svc.ThumbnailURL(context.Background(), c.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
}
