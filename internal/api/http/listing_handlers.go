package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

// ChangeMyListing applies a link patch to the caller's listing
func (h *Handlers) ChangeMyListing(c *gin.Context) {
	var req types.ChangeListingRequest
	if !bindJSON(c, &req) {
		return
	}
	account := caller(c)
	if err := h.registry.ChangeMyListing(account, req.Links); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"size":    h.registry.GetListingSize(account),
	})
}

// GetListing pages the modules of an account's listing in list order
func (h *Handlers) GetListing(c *gin.Context) {
	p, ok := pageOf(c)
	if !ok {
		return
	}
	account := types.Account(c.Param("account"))
	c.JSON(http.StatusOK, h.registry.GetModulesOfListing(account, branchOf(c), p))
}

// GetListingNames returns the names of an account's listing in order
func (h *Handlers) GetListingNames(c *gin.Context) {
	account := types.Account(c.Param("account"))
	c.JSON(http.StatusOK, gin.H{"names": h.registry.GetModuleNamesOfListing(account)})
}

// ListingContains reports whether an account lists a module
func (h *Handlers) ListingContains(c *gin.Context) {
	account := types.Account(c.Param("account"))
	c.JSON(http.StatusOK, gin.H{"contains": h.registry.ContainsModuleInListing(account, c.Param("name"))})
}

// ListListers pages every account that has listed a module
func (h *Handlers) ListListers(c *gin.Context) {
	p, ok := pageOf(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.registry.GetListers(p))
}

// QueryByListers resolves modules per context from the listers' listings
func (h *Handlers) QueryByListers(c *gin.Context) {
	var req types.ListersQueryRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	c.JSON(http.StatusOK, h.registry.GetModulesInfoByListersBatch(req.ContextIDs, req.Listers, req.Offset))
}
