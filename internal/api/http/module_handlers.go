package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dapplets/dapplet-registry/internal/domain/version"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

// CreateModule registers a module owned by the caller
func (h *Handlers) CreateModule(c *gin.Context) {
	var req types.CreateModuleRequest
	if !bindJSON(c, &req) {
		return
	}
	h.sanitize(&req.Module)

	info, err := h.registry.CreateModule(caller(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "module": info})
}

// ReserveModule registers a placeholder backed by a bond
func (h *Handlers) ReserveModule(c *gin.Context) {
	var req types.ReserveModuleRequest
	if !bindJSON(c, &req) {
		return
	}
	h.sanitize(&req.Module)

	info, err := h.registry.ReserveModule(caller(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"module":  info,
		"stake":   h.registry.GetStake(info.Name),
	})
}

// ListModules pages all modules with their newest version on ?branch=
func (h *Handlers) ListModules(c *gin.Context) {
	p, ok := pageOf(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.registry.GetModules(branchOf(c), p))
}

// GetModule returns a module with its owner and index
func (h *Handlers) GetModule(c *gin.Context) {
	details, err := h.registry.GetModuleByName(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// EditModule replaces the editable metadata
func (h *Handlers) EditModule(c *gin.Context) {
	var req types.EditModuleRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Title = h.strip(req.Title)
	req.Description = h.strip(req.Description)

	info, err := h.registry.EditModuleInfo(caller(c), c.Param("name"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "module": info})
}

// TransferOwnership hands the module to another account
func (h *Handlers) TransferOwnership(c *gin.Context) {
	var req types.AccountRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.registry.TransferOwnership(caller(c), c.Param("name"), req.Account); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "owner": req.Account})
}

// AddVersion publishes one version
func (h *Handlers) AddVersion(c *gin.Context) {
	var req types.AddVersionRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.registry.AddVersion(caller(c), c.Param("name"), req.Version); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// AddVersionBatch publishes versions[i] to names[i] atomically
func (h *Handlers) AddVersionBatch(c *gin.Context) {
	var req types.AddVersionBatchRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.registry.AddVersionBatch(caller(c), req.Names, req.Versions); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "count": len(req.Names)})
}

// ListVersions pages the versions of ?branch=
func (h *Handlers) ListVersions(c *gin.Context) {
	p, ok := pageOf(c)
	if !ok {
		return
	}
	page, err := h.registry.GetVersionsByModule(c.Param("name"), branchOf(c), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetVersion returns one version; the key may be hex or semver
func (h *Handlers) GetVersion(c *gin.Context) {
	key, err := version.Parse(c.Param("version"))
	if err != nil {
		h.fail(c, err)
		return
	}
	v, err := h.registry.GetVersionInfo(c.Param("name"), c.Param("branch"), key)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// ListBranches returns branches in first-publish order
func (h *Handlers) ListBranches(c *gin.Context) {
	branches, err := h.registry.GetBranchesByModule(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branches": branches})
}

// IncludesDependency reports whether any version of name depends on dep
func (h *Handlers) IncludesDependency(c *gin.Context) {
	ok, err := h.registry.IncludesDependency(c.Param("name"), c.Param("dep"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"includes": ok})
}

// ListAdmins returns the module admins
func (h *Handlers) ListAdmins(c *gin.Context) {
	admins, err := h.registry.GetAdminsByModule(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

// AddAdmin grants edit rights. Owner only.
func (h *Handlers) AddAdmin(c *gin.Context) {
	account := types.Account(c.Param("account"))
	if err := h.registry.AddAdmin(caller(c), c.Param("name"), account); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemoveAdmin revokes edit rights. Owner only.
func (h *Handlers) RemoveAdmin(c *gin.Context) {
	account := types.Account(c.Param("account"))
	if err := h.registry.RemoveAdmin(caller(c), c.Param("name"), account); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListContexts returns the context ids of a module
func (h *Handlers) ListContexts(c *gin.Context) {
	contexts, err := h.registry.GetContextIDsByModule(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contextIds": contexts})
}

// AddContext binds the module to a context id
func (h *Handlers) AddContext(c *gin.Context) {
	if err := h.registry.AddContextID(caller(c), c.Param("name"), c.Param("context")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemoveContext unbinds the module from a context id
func (h *Handlers) RemoveContext(c *gin.Context) {
	if err := h.registry.RemoveContextID(caller(c), c.Param("name"), c.Param("context")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListContextModules returns the modules bound to a context id
func (h *Handlers) ListContextModules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modules": h.registry.GetModulesByContext(c.Param("context"))})
}

// ListModuleListers pages the accounts whose listing contains the module
func (h *Handlers) ListModuleListers(c *gin.Context) {
	p, ok := pageOf(c)
	if !ok {
		return
	}
	if _, err := h.registry.OwnerOf(c.Param("name")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.registry.GetListersByModule(c.Param("name"), p))
}

// ListOwnerModules pages the modules of an owner
func (h *Handlers) ListOwnerModules(c *gin.Context) {
	p, ok := pageOf(c)
	if !ok {
		return
	}
	owner := types.Account(c.Param("owner"))
	c.JSON(http.StatusOK, h.registry.GetModulesByOwner(owner, branchOf(c), p))
}
