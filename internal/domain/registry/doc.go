// Package registry provides the module registry engine.
//
// The registry stores module metadata and versions, indexes modules by
// context and owner, keeps one ordered listing per account and drives the
// reservation bond lifecycle from package staking.
//
// Components:
//   - Registry: The locked aggregate exposing every operation
//   - moduleStore: Module and version records, owner index, auth
//   - contextIndex: Context id <-> module name
//   - listingIndex: Per-account intrusive lists patched in batches
//   - listersIndex: Module name -> accounts listing it
//   - Snapshot: Export and import of the whole state
//   - Seeder: Loads module manifests from disk on startup
//
// Listing Patches:
//
// A patch is a set of (prev, next) pointer rewrites applied all at once.
// A link whose next is Head removes prev from the listing. A patch is
// rejected if a prev or next repeats, if it touches Tail's successor or an
// unlisted node, if any node would end with other than one predecessor,
// or if the result is not a single path from Head to Tail.
//
//	1 -> 2 -> 3 -> 4 -> 5   with [1,4] [3,5] [4,2]
//	1 -> 4 -> 2 -> 3 -> 5
//
// Concurrency:
//
// Mutations take the write lock and either commit completely or leave no
// trace. Events are delivered to subscribers after the lock is released.
//
// Example Usage:
//
//	reg := registry.New(registry.WithAdmin("admin"))
//	_, err := reg.CreateModule("alice", types.CreateModuleRequest{Module: info})
//	err = reg.ChangeMyListing("alice", []types.Link{{Prev: types.Head, Next: info.Name}, {Prev: info.Name, Next: types.Tail}})
//	page := reg.GetModulesOfListing("alice", "default", types.Page{Limit: 10})
package registry
