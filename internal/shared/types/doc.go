// Package types provides shared data structures for the registry backend.
//
// Core Types:
//   - ModuleInfo: Module metadata, flags and interfaces
//   - VersionInfo: A published version on a branch
//   - StorageRef: Content-addressed pointer (hash + URIs)
//   - Link: One pointer rewrite of a listing patch
//   - Page: Offset/limit/reverse window over a stable enumeration
//
// Request Types:
//   - CreateModuleRequest, ReserveModuleRequest: Module creation
//   - AddVersionRequest, AddVersionBatchRequest: Publishing
//   - ChangeListingRequest: Listing patches
//   - ListersQueryRequest: Context/lister batch query
//
// Example Usage:
//
//	page := types.Page{Offset: 2, Limit: 2, Reverse: true}
//	names := types.Paginate(all, page)
package types
