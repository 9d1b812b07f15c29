package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/medibook/booking-slots-service/internal/config"
	"github.com/medibook/booking-slots-service/internal/core/domain"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
	"github.com/medibook/booking-slots-service/internal/core/ports/out"
)

type templateCacheEntry struct {
	Days      []domain.DaySlots
	StartDate json_types.Date
	EndDate   json_types.Date
}

// TemplateCacheAdapter - LRU кэш шаблонов доступности по врачу.
// Кэшируется только чистый шаблон, занятость накладывается на каждом запросе,
// поэтому записи на прием кэш не инвалидируют - только изменения расписания.
type TemplateCacheAdapter struct {
	cache  *lru.Cache[uuid.UUID, *templateCacheEntry]
	mu     sync.RWMutex
	logger out.LoggerPort
}

func NewTemplateCacheAdapter(cfg *config.Config, logger out.LoggerPort) (*TemplateCacheAdapter, error) {
	if !cfg.Cache.Enabled {
		logger.Info("cache.disabled", out.LogFields{
			"message": "Cache is disabled",
		})
		return nil, nil
	}

	cache, err := lru.New[uuid.UUID, *templateCacheEntry](cfg.Cache.Size)
	if err != nil {
		logger.Error("cache.init.failed", out.LogFields{
			"error": err.Error(),
			"size":  cfg.Cache.Size,
		})
		return nil, err
	}

	return &TemplateCacheAdapter{
		cache:  cache,
		logger: logger.WithModule("TemplateCacheAdapter"),
	}, nil
}

func (c *TemplateCacheAdapter) GetTemplate(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date) ([]domain.DaySlots, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.cache.Get(doctorID)
	if !exists {
		c.logger.Debug("cache.get.miss", out.LogFields{
			"doctorId": doctorID,
		})
		return nil, false
	}

	if startDate.Before(entry.StartDate) || endDate.After(entry.EndDate) {
		c.logger.Debug("cache.get.date_range_mismatch", out.LogFields{
			"doctorId":       doctorID,
			"requestedStart": startDate.String(),
			"requestedEnd":   endDate.String(),
			"cachedStart":    entry.StartDate.String(),
			"cachedEnd":      entry.EndDate.String(),
		})
		return nil, false
	}

	// Запрошенный диапазон уже, чем закэшированный - отдаем срез по датам
	days := make([]domain.DaySlots, 0)
	for _, day := range entry.Days {
		if day.Date.Before(startDate) || day.Date.After(endDate) {
			continue
		}
		days = append(days, day)
	}

	c.logger.Debug("cache.get.hit", out.LogFields{
		"doctorId":  doctorID,
		"daysCount": len(days),
	})
	return days, true
}

func (c *TemplateCacheAdapter) StoreTemplate(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date, days []domain.DaySlots) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Узкий диапазон (например, один день при бронировании) не должен
	// вытеснять более широкий: широкий все еще отвечает на запросы
	// доступности срезом по датам
	if entry, exists := c.cache.Get(doctorID); exists {
		cachedSpan := entry.StartDate.DaysUntil(entry.EndDate)
		if startDate.DaysUntil(endDate) < cachedSpan {
			c.logger.Debug("cache.store.skipped_narrower_range", out.LogFields{
				"doctorId":    doctorID,
				"cachedStart": entry.StartDate.String(),
				"cachedEnd":   entry.EndDate.String(),
			})
			return
		}
	}

	c.logger.Debug("cache.store", out.LogFields{
		"doctorId":  doctorID,
		"daysCount": len(days),
	})

	c.cache.Add(doctorID, &templateCacheEntry{
		Days:      days,
		StartDate: startDate,
		EndDate:   endDate,
	})
}

func (c *TemplateCacheAdapter) InvalidateTemplate(ctx context.Context, doctorID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("cache.invalidate", out.LogFields{
		"doctorId": doctorID,
	})

	c.cache.Remove(doctorID)
}

func (c *TemplateCacheAdapter) InvalidateAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Purge()
}
