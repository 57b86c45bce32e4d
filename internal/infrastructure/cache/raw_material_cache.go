package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/magistral-api/internal/domain/entity"
	"github.com/jhoicas/magistral-api/internal/domain/repository"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

const keyPrefix = "magistral:raw_material:"

// Client subconjunto de *redis.Client que usa la caché.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

var _ repository.RawMaterialRepository = (*RawMaterialCache)(nil)

// RawMaterialCache lectura del catálogo de materias primas con caché read-through en Redis.
// Si Redis falla se consulta el repositorio de origen; la caché nunca es fuente de errores.
type RawMaterialCache struct {
	next   repository.RawMaterialRepository
	client Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRawMaterialCache envuelve next con la caché.
func NewRawMaterialCache(next repository.RawMaterialRepository, client Client, ttl time.Duration, log *logger.Logger) *RawMaterialCache {
	if log == nil {
		log = logger.Nop()
	}
	return &RawMaterialCache{next: next, client: client, ttl: ttl, log: log.Named("raw_material_cache")}
}

// GetByID devuelve la materia prima desde Redis o, si no está, desde el repositorio de origen.
// Los inexistentes no se cachean.
func (c *RawMaterialCache) GetByID(ctx context.Context, id string) (*entity.RawMaterial, error) {
	key := keyPrefix + id
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rm entity.RawMaterial
		if jerr := json.Unmarshal(raw, &rm); jerr == nil {
			return &rm, nil
		}
		c.log.Warn().Str("key", key).Msg("entrada de caché corrupta, se ignora")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("key", key).Msg("redis no disponible, leyendo del origen")
	}

	rm, err := c.next.GetByID(ctx, id)
	if err != nil || rm == nil {
		return rm, err
	}
	if data, jerr := json.Marshal(rm); jerr == nil {
		if serr := c.client.Set(ctx, key, data, c.ttl).Err(); serr != nil {
			c.log.Warn().Err(serr).Str("key", key).Msg("no se pudo cachear materia prima")
		}
	}
	return rm, nil
}

// NewClient crea el cliente a partir de una URL redis://.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
