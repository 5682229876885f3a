// cache.go — LRU-кэш публичного дерева категорий с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
// Кэш не влияет на корректность: любая запись в таксономию сбрасывает его целиком.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/promovault/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pv_catalog_cache_hits_total",
		Help: "Общее количество попаданий в кэш дерева категорий.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pv_catalog_cache_misses_total",
		Help: "Общее количество промахов кэша дерева категорий.",
	})
)

// CatalogCache — per-instance кэш дерева категорий.
type CatalogCache struct {
	cache *expirable.LRU[string, []*model.Category]
}

// NewCatalogCache создаёт кэш с указанным максимальным размером и TTL.
func NewCatalogCache(maxSize int, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		cache: expirable.NewLRU[string, []*model.Category](maxSize, nil, ttl),
	}
}

// Get возвращает дерево по ключу. Обновляет метрики hit/miss.
func (c *CatalogCache) Get(key string) ([]*model.Category, bool) {
	val, ok := c.cache.Get(key)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set сохраняет дерево.
func (c *CatalogCache) Set(key string, tree []*model.Category) {
	c.cache.Add(key, tree)
}

// Invalidate сбрасывает кэш целиком.
func (c *CatalogCache) Invalidate() {
	c.cache.Purge()
}

// Len возвращает количество записей.
func (c *CatalogCache) Len() int {
	return c.cache.Len()
}
