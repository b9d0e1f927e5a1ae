package webserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/fanhaven/purchasegate/src/verifybot/components/entitlement"
	"github.com/fanhaven/purchasegate/src/verifybot/components/reconcile"
	"github.com/fanhaven/purchasegate/src/verifybot/components/storefront"
	"github.com/fanhaven/purchasegate/src/verifybot/data"
)

type Status struct {
	registry *storefront.Registry
	mapper   *entitlement.Mapper
	rdb      *redis.Client
	started  time.Time
}

func NewStatus(registry *storefront.Registry, mapper *entitlement.Mapper, rdb *redis.Client) Status {
	return Status{registry: registry, mapper: mapper, rdb: rdb, started: time.Now()}
}

// Overview reports uptime and running outcome counters.
func (h Status) Overview(c *gin.Context) {
	outcomes := map[string]int64{}
	if h.rdb != nil {
		outcomes = data.OutcomeCounts(c.Request.Context(), h.rdb, reconcile.StatusNames())
	}

	c.JSON(http.StatusOK, gin.H{
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"outcomes": outcomes,
	})
}

// Mappings lists the registered platforms and how many products each maps.
// API keys never leave the process.
func (h Status) Mappings(c *gin.Context) {
	platforms := make([]gin.H, 0)
	for _, name := range h.registry.Platforms() {
		platforms = append(platforms, gin.H{
			"platform": name,
			"products": h.mapper.Count(name),
		})
	}

	c.JSON(http.StatusOK, gin.H{"platforms": platforms})
}
