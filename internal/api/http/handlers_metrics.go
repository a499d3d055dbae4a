package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dapplets/dapplet-registry/internal/domain/registry"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/monitoring"
)

// MetricsSnapshot combines request metrics with registry counts
type MetricsSnapshot struct {
	Timestamp time.Time                  `json:"timestamp"`
	Server    monitoring.MetricsSnapshot `json:"server"`
	Registry  registry.Stats             `json:"registry"`
}

// GetMetricsJSON returns a JSON view of the server metrics
func (h *Handlers) GetMetricsJSON(c *gin.Context) {
	snap := MetricsSnapshot{
		Timestamp: time.Now().UTC(),
		Registry:  h.registry.Stats(),
	}
	if h.metrics != nil {
		snap.Server = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, snap)
}

// TrackRegistry keeps registry gauges and event counters current.
// It returns the unsubscribe function.
func TrackRegistry(reg *registry.Registry, metrics *monitoring.Metrics) func() {
	update := func() {
		s := reg.Stats()
		metrics.SetRegistrySize(monitoring.RegistrySize{
			Modules:  s.Modules,
			Versions: s.Versions,
			Contexts: s.Contexts,
			Listers:  s.Listers,
			Stakes:   s.Stakes,
		})
	}
	update()
	return reg.Subscribe(func(e registry.Event) {
		metrics.RecordEvent(string(e.Kind))
		update()
	})
}
