package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache guarda listagens de resultados no Redis para aliviar o caminho de
// leitura (GET /v1/results é a rota mais quente: todo usuário consulta)
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCache(c *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Client: c, TTL: ttl}
}

// key distingue as combinações de filtro de data
func key(startDate, endDate string) string {
	return "results:" + startDate + ":" + endDate
}

// GetResults tenta ler uma listagem cacheada; ok=false em miss ou erro
func (c *Cache) GetResults(ctx context.Context, startDate, endDate string, dest any) (bool, error) {
	b, err := c.Client.Get(ctx, key(startDate, endDate)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetResults armazena uma listagem com TTL
func (c *Cache) SetResults(ctx context.Context, startDate, endDate string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key(startDate, endDate), b, c.TTL).Err()
}

// Invalidate derruba todas as listagens cacheadas; chamado quando um novo
// resultado é publicado
func (c *Cache) Invalidate(ctx context.Context) error {
	iter := c.Client.Scan(ctx, 0, "results:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}
