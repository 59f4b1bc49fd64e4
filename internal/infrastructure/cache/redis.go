package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/entitlements-api/internal/domain/entitlement"
	"github.com/jhoicas/entitlements-api/pkg/config"
)

// NewRedisClient abre la conexión y verifica con PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// SnapshotCache caché compartida de snapshots por tienda.
// Claves: <prefix>:snapshot:<storeID> y el set <prefix>:enterprise:<id>:stores
// con las tiendas cacheadas de cada empresa (para invalidar por empresa).
type SnapshotCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSnapshotCache construye la caché. ttl 0 = sin expiración.
func NewSnapshotCache(client *redis.Client, prefix string, ttl time.Duration) *SnapshotCache {
	if prefix == "" {
		prefix = "entitlements"
	}
	return &SnapshotCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *SnapshotCache) snapshotKey(storeID string) string {
	return fmt.Sprintf("%s:snapshot:%s", c.prefix, storeID)
}

func (c *SnapshotCache) enterpriseKey(enterpriseID string) string {
	return fmt.Sprintf("%s:enterprise:%s:stores", c.prefix, enterpriseID)
}

// Get devuelve (nil, nil) si no hay entrada.
func (c *SnapshotCache) Get(ctx context.Context, storeID string) (*entitlement.Snapshot, error) {
	key := c.snapshotKey(storeID)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get snapshot: %w", err)
	}

	var snap entitlement.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// entrada corrupta: se descarta
		c.client.Del(ctx, key)
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Set guarda el snapshot y lo registra en el set de su empresa.
func (c *SnapshotCache) Set(ctx context.Context, snap *entitlement.Snapshot) error {
	if snap == nil || snap.StoreID == "" {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, c.snapshotKey(snap.StoreID), data, c.ttl)
		if snap.EnterpriseID != "" {
			ek := c.enterpriseKey(snap.EnterpriseID)
			p.SAdd(ctx, ek, snap.StoreID)
			if c.ttl > 0 {
				p.Expire(ctx, ek, c.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

// InvalidateStore elimina el snapshot de una tienda.
func (c *SnapshotCache) InvalidateStore(ctx context.Context, storeID string) error {
	if err := c.client.Del(ctx, c.snapshotKey(storeID)).Err(); err != nil {
		return fmt.Errorf("redis del snapshot: %w", err)
	}
	return nil
}

// InvalidateEnterprise elimina los snapshots de todas las tiendas cacheadas de la empresa.
func (c *SnapshotCache) InvalidateEnterprise(ctx context.Context, enterpriseID string) error {
	ek := c.enterpriseKey(enterpriseID)
	stores, err := c.client.SMembers(ctx, ek).Result()
	if err != nil {
		return fmt.Errorf("redis smembers: %w", err)
	}
	keys := make([]string, 0, len(stores)+1)
	for _, id := range stores {
		keys = append(keys, c.snapshotKey(id))
	}
	keys = append(keys, ek)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del enterprise: %w", err)
	}
	return nil
}
