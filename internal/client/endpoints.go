package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dapplets/dapplet-registry/internal/domain/registry"
	"github.com/dapplets/dapplet-registry/internal/domain/staking"
	"github.com/dapplets/dapplet-registry/internal/domain/version"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

func esc(s string) string {
	return url.PathEscape(s)
}

func pageQuery(branch string, p types.Page) map[string]string {
	q := map[string]string{
		"offset":  strconv.Itoa(p.Offset),
		"limit":   strconv.Itoa(p.Limit),
		"reverse": strconv.FormatBool(p.Reverse),
	}
	if branch != "" {
		q["branch"] = branch
	}
	return q
}

type moduleResult struct {
	Module types.ModuleInfo `json:"module"`
	Stake  *staking.Stake   `json:"stake,omitempty"`
}

// ============================================================================
// Modules
// ============================================================================

// CreateModule registers a module owned by the client account
func (c *Client) CreateModule(ctx context.Context, req types.CreateModuleRequest) (types.ModuleInfo, error) {
	var out moduleResult
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/modules", body: req, out: &out})
	return out.Module, err
}

// ReserveModule registers a placeholder and returns it with its stake
func (c *Client) ReserveModule(ctx context.Context, req types.ReserveModuleRequest) (types.ModuleInfo, *staking.Stake, error) {
	var out moduleResult
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/modules/reserve", body: req, out: &out})
	return out.Module, out.Stake, err
}

// GetModule returns a module with its owner and index
func (c *Client) GetModule(ctx context.Context, name string) (types.ModuleDetails, error) {
	var out types.ModuleDetails
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/modules/" + esc(name), out: &out})
	return out, err
}

// ListModules pages all modules
func (c *Client) ListModules(ctx context.Context, branch string, p types.Page) (types.ModulesPage, error) {
	var out types.ModulesPage
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/modules", query: pageQuery(branch, p), out: &out})
	return out, err
}

// ListOwnerModules pages the modules of owner
func (c *Client) ListOwnerModules(ctx context.Context, owner types.Account, branch string, p types.Page) (types.ModulesPage, error) {
	var out types.ModulesPage
	path := "/owners/" + esc(string(owner)) + "/modules"
	_, err := c.do(ctx, call{method: http.MethodGet, path: path, query: pageQuery(branch, p), out: &out})
	return out, err
}

// EditModule replaces the editable metadata
func (c *Client) EditModule(ctx context.Context, name string, req types.EditModuleRequest) (types.ModuleInfo, error) {
	var out moduleResult
	_, err := c.do(ctx, call{method: http.MethodPut, path: "/modules/" + esc(name), body: req, out: &out})
	return out.Module, err
}

// TransferOwnership hands name to owner
func (c *Client) TransferOwnership(ctx context.Context, name string, owner types.Account) error {
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/modules/" + esc(name) + "/owner",
		body:   types.AccountRequest{Account: owner},
	})
	return err
}

// ============================================================================
// Versions
// ============================================================================

// AddVersion publishes one version
func (c *Client) AddVersion(ctx context.Context, name string, v types.VersionInfo) error {
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/modules/" + esc(name) + "/versions",
		body:   types.AddVersionRequest{Version: v},
	})
	return err
}

// AddVersionBatch publishes versions[i] to names[i] atomically
func (c *Client) AddVersionBatch(ctx context.Context, names []string, versions []types.VersionInfo) error {
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/versions/batch",
		body:   types.AddVersionBatchRequest{Names: names, Versions: versions},
	})
	return err
}

// ListVersions pages the versions of name on branch
func (c *Client) ListVersions(ctx context.Context, name, branch string, p types.Page) (types.VersionsPage, error) {
	var out types.VersionsPage
	path := "/modules/" + esc(name) + "/versions"
	_, err := c.do(ctx, call{method: http.MethodGet, path: path, query: pageQuery(branch, p), out: &out})
	return out, err
}

// GetVersion returns one version
func (c *Client) GetVersion(ctx context.Context, name, branch string, key version.Key) (types.VersionInfo, error) {
	var out types.VersionInfo
	path := "/modules/" + esc(name) + "/versions/" + esc(branch) + "/" + key.Hex()
	_, err := c.do(ctx, call{method: http.MethodGet, path: path, out: &out})
	return out, err
}

// ListBranches returns the branches of name in first-publish order
func (c *Client) ListBranches(ctx context.Context, name string) ([]string, error) {
	var out struct {
		Branches []string `json:"branches"`
	}
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/modules/" + esc(name) + "/branches", out: &out})
	return out.Branches, err
}

// IncludesDependency reports whether any version of name depends on dep
func (c *Client) IncludesDependency(ctx context.Context, name, dep string) (bool, error) {
	var out struct {
		Includes bool `json:"includes"`
	}
	path := "/modules/" + esc(name) + "/dependencies/" + esc(dep)
	_, err := c.do(ctx, call{method: http.MethodGet, path: path, out: &out})
	return out.Includes, err
}

// ============================================================================
// Admins and contexts
// ============================================================================

// ListAdmins returns the admins of name
func (c *Client) ListAdmins(ctx context.Context, name string) ([]types.Account, error) {
	var out struct {
		Admins []types.Account `json:"admins"`
	}
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/modules/" + esc(name) + "/admins", out: &out})
	return out.Admins, err
}

// AddAdmin grants account edit rights on name
func (c *Client) AddAdmin(ctx context.Context, name string, account types.Account) error {
	path := "/modules/" + esc(name) + "/admins/" + esc(string(account))
	_, err := c.do(ctx, call{method: http.MethodPost, path: path})
	return err
}

// RemoveAdmin revokes account's edit rights on name
func (c *Client) RemoveAdmin(ctx context.Context, name string, account types.Account) error {
	path := "/modules/" + esc(name) + "/admins/" + esc(string(account))
	_, err := c.do(ctx, call{method: http.MethodDelete, path: path})
	return err
}

// ListContexts returns the context ids of name
func (c *Client) ListContexts(ctx context.Context, name string) ([]string, error) {
	var out struct {
		ContextIDs []string `json:"contextIds"`
	}
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/modules/" + esc(name) + "/contexts", out: &out})
	return out.ContextIDs, err
}

// AddContext binds name to ctxID
func (c *Client) AddContext(ctx context.Context, name, ctxID string) error {
	path := "/modules/" + esc(name) + "/contexts/" + esc(ctxID)
	_, err := c.do(ctx, call{method: http.MethodPost, path: path})
	return err
}

// RemoveContext unbinds name from ctxID
func (c *Client) RemoveContext(ctx context.Context, name, ctxID string) error {
	path := "/modules/" + esc(name) + "/contexts/" + esc(ctxID)
	_, err := c.do(ctx, call{method: http.MethodDelete, path: path})
	return err
}

// ModulesByContext returns the modules bound to ctxID
func (c *Client) ModulesByContext(ctx context.Context, ctxID string) ([]string, error) {
	var out struct {
		Modules []string `json:"modules"`
	}
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/contexts/" + esc(ctxID) + "/modules", out: &out})
	return out.Modules, err
}

// ============================================================================
// Listings
// ============================================================================

// ChangeMyListing applies links to the client account's listing and
// returns the new size
func (c *Client) ChangeMyListing(ctx context.Context, links []types.Link) (int, error) {
	var out struct {
		Size int `json:"size"`
	}
	_, err := c.do(ctx, call{
		method: http.MethodPut,
		path:   "/listings/me",
		body:   types.ChangeListingRequest{Links: links},
		out:    &out,
	})
	return out.Size, err
}

// GetListing pages the modules of account's listing
func (c *Client) GetListing(ctx context.Context, account types.Account, branch string, p types.Page) (types.ModulesPage, error) {
	var out types.ModulesPage
	path := "/listings/" + esc(string(account))
	_, err := c.do(ctx, call{method: http.MethodGet, path: path, query: pageQuery(branch, p), out: &out})
	return out, err
}

// GetListingNames returns account's listing in order
func (c *Client) GetListingNames(ctx context.Context, account types.Account) ([]string, error) {
	var out struct {
		Names []string `json:"names"`
	}
	path := "/listings/" + esc(string(account)) + "/names"
	_, err := c.do(ctx, call{method: http.MethodGet, path: path, out: &out})
	return out.Names, err
}

// ListingContains reports whether account lists name
func (c *Client) ListingContains(ctx context.Context, account types.Account, name string) (bool, error) {
	var out struct {
		Contains bool `json:"contains"`
	}
	path := "/listings/" + esc(string(account)) + "/contains/" + esc(name)
	_, err := c.do(ctx, call{method: http.MethodGet, path: path, out: &out})
	return out.Contains, err
}

// ListListers pages every account that has listed a module
func (c *Client) ListListers(ctx context.Context, p types.Page) (types.AccountsPage, error) {
	var out types.AccountsPage
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/listers", query: pageQuery("", p), out: &out})
	return out, err
}

// ListModuleListers pages the accounts whose listing contains name
func (c *Client) ListModuleListers(ctx context.Context, name string, p types.Page) (types.AccountsPage, error) {
	var out types.AccountsPage
	path := "/modules/" + esc(name) + "/listers"
	_, err := c.do(ctx, call{method: http.MethodGet, path: path, query: pageQuery("", p), out: &out})
	return out, err
}

// QueryByListers resolves modules per context from the listers' listings
func (c *Client) QueryByListers(ctx context.Context, req types.ListersQueryRequest) (types.ListersQueryResult, error) {
	var out types.ListersQueryResult
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/query/by-listers", body: req, out: &out})
	return out, err
}

// ============================================================================
// Staking
// ============================================================================

// StakeInfo is a module's stake with its derived status
type StakeInfo struct {
	Name   string         `json:"name"`
	Status staking.Status `json:"status"`
	Stake  *staking.Stake `json:"stake,omitempty"`
}

// GetStake returns the reservation state of name
func (c *Client) GetStake(ctx context.Context, name string) (StakeInfo, error) {
	var out StakeInfo
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/modules/" + esc(name) + "/stake", out: &out})
	return out, err
}

// Burn deletes an expired reservation and returns the payout
func (c *Client) Burn(ctx context.Context, name string) (staking.Stake, error) {
	var out struct {
		Stake staking.Stake `json:"stake"`
	}
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/modules/" + esc(name) + "/burn", out: &out})
	return out.Stake, err
}

// StakeParameters returns the staking parameters
func (c *Client) StakeParameters(ctx context.Context) (staking.Params, error) {
	var out staking.Params
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/staking/params", out: &out})
	return out, err
}

// SetStakeParameters replaces the staking parameters
func (c *Client) SetStakeParameters(ctx context.Context, p staking.Params) error {
	_, err := c.do(ctx, call{method: http.MethodPut, path: "/staking/params", body: p})
	return err
}

// QuoteBond prices a reservation of period
func (c *Client) QuoteBond(ctx context.Context, period time.Duration) (uint64, error) {
	var out struct {
		Amount uint64 `json:"amount"`
	}
	_, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/staking/quote",
		query:  map[string]string{"period": strconv.FormatInt(int64(period/time.Second), 10)},
		out:    &out,
	})
	return out.Amount, err
}

// ============================================================================
// Snapshot
// ============================================================================

// ExportSnapshot downloads the registry state in format ("json" or "yaml")
func (c *Client) ExportSnapshot(ctx context.Context, format string) ([]byte, error) {
	resp, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/snapshot",
		query:  map[string]string{"format": format},
	})
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// ImportSnapshot uploads a JSON or YAML snapshot into an empty registry
func (c *Client) ImportSnapshot(ctx context.Context, data []byte, contentType string) (registry.Stats, error) {
	var out struct {
		Stats registry.Stats `json:"stats"`
	}
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/snapshot",
		raw:    data,
		ctype:  contentType,
		out:    &out,
	})
	return out.Stats, err
}

// Stats returns registry counts
func (c *Client) Stats(ctx context.Context) (registry.Stats, error) {
	var out registry.Stats
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/stats", out: &out})
	return out, err
}
