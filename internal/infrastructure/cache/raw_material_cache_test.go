package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/infrastructure/cache"
)

type fakeClient struct {
	data    map[string]string
	failGet error
	sets    int
	lastTTL time.Duration
}

func newFakeClient() *fakeClient { return &fakeClient{data: map[string]string{}} }

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.sets++
	f.lastTTL = expiration
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

type countingRepo struct {
	items map[string]*entity.RawMaterial
	calls int
}

func (r *countingRepo) GetByID(_ context.Context, id string) (*entity.RawMaterial, error) {
	r.calls++
	return r.items[id], nil
}

func TestRawMaterialCache_ReadThrough(t *testing.T) {
	repo := &countingRepo{items: map[string]*entity.RawMaterial{
		"rm-1": {ID: "rm-1", EstablishmentID: "est", Name: "CLONAZEPAM", Classification: entity.ClassificationB1},
	}}
	client := newFakeClient()
	c := cache.NewRawMaterialCache(repo, client, 5*time.Minute, nil)

	first, err := c.GetByID(t.Context(), "rm-1")
	require.NoError(t, err)
	second, err := c.GetByID(t.Context(), "rm-1")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, client.sets)
	assert.Equal(t, 5*time.Minute, client.lastTTL)
	assert.Equal(t, first, second)
	assert.True(t, second.IsControlled())
}

func TestRawMaterialCache_NoCacheaInexistentes(t *testing.T) {
	repo := &countingRepo{items: map[string]*entity.RawMaterial{}}
	client := newFakeClient()
	c := cache.NewRawMaterialCache(repo, client, time.Minute, nil)

	rm, err := c.GetByID(t.Context(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rm)
	assert.Zero(t, client.sets)
}

func TestRawMaterialCache_RedisCaidoLeeDelOrigen(t *testing.T) {
	repo := &countingRepo{items: map[string]*entity.RawMaterial{
		"rm-1": {ID: "rm-1", Name: "LACTOSA", Classification: entity.ClassificationCommon},
	}}
	client := newFakeClient()
	client.failGet = errors.New("connection refused")
	c := cache.NewRawMaterialCache(repo, client, time.Minute, nil)

	rm, err := c.GetByID(t.Context(), "rm-1")
	require.NoError(t, err)
	assert.Equal(t, "LACTOSA", rm.Name)
	assert.Equal(t, 1, repo.calls)
}

func TestRawMaterialCache_EntradaCorrupta(t *testing.T) {
	repo := &countingRepo{items: map[string]*entity.RawMaterial{"rm-1": {ID: "rm-1", Name: "LACTOSA"}}}
	client := newFakeClient()
	client.data["magistral:raw_material:rm-1"] = "{no-json"
	c := cache.NewRawMaterialCache(repo, client, time.Minute, nil)

	rm, err := c.GetByID(t.Context(), "rm-1")
	require.NoError(t, err)
	assert.Equal(t, "LACTOSA", rm.Name)
	assert.Equal(t, 1, repo.calls)
}
