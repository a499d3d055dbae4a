package types

// CreateModuleRequest registers a module with optional initial versions,
// contexts and placement in the caller's listing.
type CreateModuleRequest struct {
	Module     ModuleInfo    `json:"module" yaml:"module" toml:"module" binding:"required"`
	Versions   []VersionInfo `json:"versions" yaml:"versions" toml:"versions"`
	ContextIDs []string      `json:"contextIds" yaml:"contextIds" toml:"contextIds"`
	Links      []Link        `json:"links" yaml:"links" toml:"links"`
}

// ReserveModuleRequest registers a placeholder backed by a bond.
// ReservationPeriod is in seconds; zero creates a plain module.
type ReserveModuleRequest struct {
	Module            ModuleInfo `json:"module" binding:"required"`
	ContextIDs        []string   `json:"contextIds"`
	Links             []Link     `json:"links"`
	ReservationPeriod int64      `json:"reservationPeriod"`
}

// EditModuleRequest replaces the editable metadata of a module
type EditModuleRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Image       *StorageRef `json:"image,omitempty"`
	Manifest    *StorageRef `json:"manifest,omitempty"`
	Icon        *StorageRef `json:"icon,omitempty"`
}

// AddVersionRequest publishes one version
type AddVersionRequest struct {
	Version VersionInfo `json:"version" binding:"required"`
}

// AddVersionBatchRequest publishes versions[i] to names[i]
type AddVersionBatchRequest struct {
	Names    []string      `json:"names" binding:"required"`
	Versions []VersionInfo `json:"versions" binding:"required"`
}

// AccountRequest carries a single account (admins, ownership transfer)
type AccountRequest struct {
	Account Account `json:"account" binding:"required"`
}

// ContextRequest carries a single context id
type ContextRequest struct {
	ContextID string `json:"contextId" binding:"required"`
}

// ChangeListingRequest applies a batch of pointer rewrites to the caller's listing
type ChangeListingRequest struct {
	Links []Link `json:"links" binding:"required"`
}

// ListersQueryRequest asks which modules listers expose for each context
type ListersQueryRequest struct {
	ContextIDs []string  `json:"contextIds" binding:"required"`
	Listers    []Account `json:"listers" binding:"required"`
	Offset     int       `json:"offset"`
}

// ListersQueryResult holds one group per requested context, with parallel owners
type ListersQueryResult struct {
	Modules [][]ModuleInfo `json:"modules"`
	Owners  [][]Account    `json:"owners"`
}

// ModuleDetails is a module with its owner and enumeration index
type ModuleDetails struct {
	Module ModuleInfo `json:"module"`
	Owner  Account    `json:"owner"`
	Index  uint64     `json:"index"`
}
