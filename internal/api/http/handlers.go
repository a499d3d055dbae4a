package http

import (
	"html"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/dapplets/dapplet-registry/internal/api/middleware"
	"github.com/dapplets/dapplet-registry/internal/domain/registry"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/monitoring"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

// DefaultBranch is used when a request names no branch
const DefaultBranch = "default"

// Handlers contains all registry HTTP handlers
type Handlers struct {
	registry  *registry.Registry
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	sanitizer *bluemonday.Policy
}

// Option configures Handlers
type Option func(*Handlers)

// WithMetrics enables the JSON metrics endpoint
func WithMetrics(m *monitoring.Metrics) Option {
	return func(h *Handlers) {
		h.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(h *Handlers) {
		h.logger = l
	}
}

// NewHandlers creates a new handler set
func NewHandlers(reg *registry.Registry, opts ...Option) *Handlers {
	h := &Handlers{
		registry:  reg,
		logger:    zap.NewNop(),
		sanitizer: bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API under group. Mutations require X-Account.
func (h *Handlers) Register(api gin.IRouter) {
	auth := middleware.RequireAccount()

	// Modules
	api.POST("/modules", auth, h.CreateModule)
	api.POST("/modules/reserve", auth, h.ReserveModule)
	api.GET("/modules", h.ListModules)
	api.GET("/modules/:name", h.GetModule)
	api.PUT("/modules/:name", auth, h.EditModule)
	api.POST("/modules/:name/owner", auth, h.TransferOwnership)
	api.POST("/modules/:name/versions", auth, h.AddVersion)
	api.POST("/versions/batch", auth, h.AddVersionBatch)
	api.GET("/modules/:name/versions", h.ListVersions)
	api.GET("/modules/:name/versions/:branch/:version", h.GetVersion)
	api.GET("/modules/:name/branches", h.ListBranches)
	api.GET("/modules/:name/dependencies/:dep", h.IncludesDependency)
	api.GET("/modules/:name/admins", h.ListAdmins)
	api.POST("/modules/:name/admins/:account", auth, h.AddAdmin)
	api.DELETE("/modules/:name/admins/:account", auth, h.RemoveAdmin)
	api.GET("/modules/:name/contexts", h.ListContexts)
	api.POST("/modules/:name/contexts/:context", auth, h.AddContext)
	api.DELETE("/modules/:name/contexts/:context", auth, h.RemoveContext)
	api.GET("/modules/:name/listers", h.ListModuleListers)
	api.GET("/contexts/:context/modules", h.ListContextModules)
	api.GET("/owners/:owner/modules", h.ListOwnerModules)

	// Listings
	api.PUT("/listings/me", auth, h.ChangeMyListing)
	api.GET("/listings/:account", h.GetListing)
	api.GET("/listings/:account/names", h.GetListingNames)
	api.GET("/listings/:account/contains/:name", h.ListingContains)
	api.GET("/listers", h.ListListers)

	// Query
	api.POST("/query/by-listers", h.QueryByListers)

	// Staking
	api.GET("/modules/:name/stake", h.GetStake)
	api.POST("/modules/:name/burn", auth, h.Burn)
	api.GET("/staking/params", h.GetStakeParameters)
	api.PUT("/staking/params", auth, h.SetStakeParameters)
	api.GET("/staking/quote", h.QuoteBond)

	// Snapshot
	api.GET("/snapshot", h.ExportSnapshot)
	api.POST("/snapshot", auth, h.ImportSnapshot)

	api.GET("/stats", h.Stats)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "module-registry",
		"api":     "/api/v1",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"registry": h.registry.Stats(),
		"staking":  gin.H{"enabled": h.registry.GetStakeParameters().Enabled()},
	})
}

// Stats returns registry counts
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Stats())
}

func caller(c *gin.Context) types.Account {
	account, _ := middleware.Caller(c)
	return account
}

func branchOf(c *gin.Context) string {
	if b := strings.TrimSpace(c.Query("branch")); b != "" {
		return b
	}
	return DefaultBranch
}

func pageOf(c *gin.Context) (types.Page, bool) {
	var p types.Page
	if err := c.ShouldBindQuery(&p); err != nil {
		badRequest(c, err)
		return p, false
	}
	return p, true
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

func (h *Handlers) sanitize(info *types.ModuleInfo) {
	info.Title = h.strip(info.Title)
	info.Description = h.strip(info.Description)
}

// strip removes markup but keeps plain text as written
func (h *Handlers) strip(s string) string {
	return html.UnescapeString(h.sanitizer.Sanitize(s))
}
