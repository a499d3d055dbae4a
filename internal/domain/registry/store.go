package registry

import (
	"fmt"

	"github.com/dapplets/dapplet-registry/internal/domain/version"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
	"github.com/dapplets/dapplet-registry/internal/shared/utils"
)

// moduleRecord is the authoritative state of one module
type moduleRecord struct {
	info     types.ModuleInfo
	owner    types.Account
	index    uint64
	admins   *orderedSet[types.Account]
	branches *orderedSet[string]
	versions map[string][]types.VersionInfo
}

func newModuleRecord(info types.ModuleInfo, owner types.Account, index uint64) *moduleRecord {
	return &moduleRecord{
		info:     info.Clone(),
		owner:    owner,
		index:    index,
		admins:   newOrderedSet[types.Account](),
		branches: newOrderedSet[string](),
		versions: make(map[string][]types.VersionInfo),
	}
}

func (m *moduleRecord) lastVersion(branch string) *types.VersionInfo {
	vs := m.versions[branch]
	if len(vs) == 0 {
		return nil
	}
	v := vs[len(vs)-1].Clone()
	return &v
}

func (m *moduleRecord) appendVersion(v types.VersionInfo) {
	m.branches.add(v.Branch)
	m.versions[v.Branch] = append(m.versions[v.Branch], v.Clone())
}

func (m *moduleRecord) canEdit(caller types.Account) bool {
	return caller != "" && (caller == m.owner || m.admins.has(caller))
}

func (m *moduleRecord) versionCount() int {
	n := 0
	for _, vs := range m.versions {
		n += len(vs)
	}
	return n
}

// moduleStore holds module records, the creation order and the owner index
type moduleStore struct {
	modules   map[string]*moduleRecord
	order     *orderedSet[string]
	byOwner   map[types.Account]*orderedSet[string]
	nextIndex uint64
}

func newModuleStore() *moduleStore {
	return &moduleStore{
		modules: make(map[string]*moduleRecord),
		order:   newOrderedSet[string](),
		byOwner: make(map[types.Account]*orderedSet[string]),
	}
}

func (s *moduleStore) get(name string) (*moduleRecord, error) {
	m, ok := s.modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleDoesNotExist, name)
	}
	return m, nil
}

func (s *moduleStore) exists(name string) bool {
	_, ok := s.modules[name]
	return ok
}

// editable returns the record if caller is its owner or an admin
func (s *moduleStore) editable(name string, caller types.Account) (*moduleRecord, error) {
	m, err := s.get(name)
	if err != nil {
		return nil, err
	}
	if !m.canEdit(caller) {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotAuthorized, caller, name)
	}
	return m, nil
}

// owned returns the record if caller is its owner
func (s *moduleStore) owned(name string, caller types.Account) (*moduleRecord, error) {
	m, err := s.get(name)
	if err != nil {
		return nil, err
	}
	if caller == "" || caller != m.owner {
		return nil, fmt.Errorf("%w: %s is not the owner of %s", ErrNotAuthorized, caller, name)
	}
	return m, nil
}

func (s *moduleStore) insert(info types.ModuleInfo, owner types.Account) *moduleRecord {
	s.nextIndex++
	m := newModuleRecord(info, owner, s.nextIndex)
	s.modules[info.Name] = m
	s.order.add(info.Name)
	s.ownerSet(owner).add(info.Name)
	return m
}

func (s *moduleStore) ownerSet(owner types.Account) *orderedSet[string] {
	set, ok := s.byOwner[owner]
	if !ok {
		set = newOrderedSet[string]()
		s.byOwner[owner] = set
	}
	return set
}

func (s *moduleStore) setOwner(m *moduleRecord, owner types.Account) {
	s.dropFromOwner(m)
	m.owner = owner
	s.ownerSet(owner).add(m.info.Name)
}

func (s *moduleStore) dropFromOwner(m *moduleRecord) {
	if set, ok := s.byOwner[m.owner]; ok {
		set.remove(m.info.Name)
		if set.len() == 0 {
			delete(s.byOwner, m.owner)
		}
	}
}

func (s *moduleStore) delete(name string) {
	m, ok := s.modules[name]
	if !ok {
		return
	}
	s.dropFromOwner(m)
	s.order.remove(name)
	delete(s.modules, name)
}

func (s *moduleStore) ownedBy(owner types.Account) []string {
	if set, ok := s.byOwner[owner]; ok {
		return set.values()
	}
	return nil
}

// page materializes names with owners and the last version on branch
func (s *moduleStore) page(names []string, branch string, p types.Page) types.ModulesPage {
	selected := types.Paginate(names, p)
	out := types.ModulesPage{
		Modules:      make([]types.ModuleInfo, 0, len(selected)),
		Owners:       make([]types.Account, 0, len(selected)),
		LastVersions: make([]*types.VersionInfo, 0, len(selected)),
		Total:        len(names),
	}
	for _, name := range selected {
		m := s.modules[name]
		out.Modules = append(out.Modules, m.info.Clone())
		out.Owners = append(out.Owners, m.owner)
		out.LastVersions = append(out.LastVersions, m.lastVersion(branch))
	}
	return out
}

// versionCursor tracks the last key per (module, branch) while a batch
// is validated, so keys inside one batch must also increase.
type versionCursor struct {
	store *moduleStore
	last  map[string]map[string]version.Key
}

func newVersionCursor(store *moduleStore) *versionCursor {
	return &versionCursor{store: store, last: make(map[string]map[string]version.Key)}
}

func (c *versionCursor) check(name string, v types.VersionInfo) error {
	if err := validateVersion(v); err != nil {
		return err
	}

	branches, ok := c.last[name]
	if !ok {
		branches = make(map[string]version.Key)
		c.last[name] = branches
	}
	last, seen := branches[v.Branch]
	if !seen {
		if m, exists := c.store.modules[name]; exists {
			if lv := m.lastVersion(v.Branch); lv != nil {
				last, seen = lv.Version, true
			}
		}
	}
	if seen && v.Version.Compare(last) <= 0 {
		return fmt.Errorf("%w: %s@%s %s <= %s", ErrVersionNotBumped, name, v.Branch, v.Version, last)
	}
	branches[v.Branch] = v.Version
	return nil
}

func validateModuleInfo(info types.ModuleInfo) error {
	if err := utils.ValidateModuleName(info.Name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}
	if !info.ModuleType.Valid() {
		return fmt.Errorf("%w: unknown module type %d", ErrInvalidModule, info.ModuleType)
	}
	if err := utils.ValidateTitle(info.Title); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}
	if err := utils.ValidateDescription(info.Description); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}
	for _, ref := range []*types.StorageRef{info.Image, info.Manifest, info.Icon} {
		if err := validateRef(ref); err != nil {
			return err
		}
	}
	if len(info.Interfaces) > utils.MaxInterfaceCount {
		return fmt.Errorf("%w: more than %d interfaces", ErrInvalidModule, utils.MaxInterfaceCount)
	}
	for _, iface := range info.Interfaces {
		if err := utils.ValidateModuleName(iface); err != nil {
			return fmt.Errorf("%w: interface: %v", ErrInvalidModule, err)
		}
	}
	return nil
}

func validateVersion(v types.VersionInfo) error {
	if err := utils.ValidateBranch(v.Branch); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}
	if err := validateRef(v.Binary); err != nil {
		return err
	}
	refs := append(append([]types.DependencyRef(nil), v.Dependencies...), v.Interfaces...)
	for _, ref := range refs {
		if err := utils.ValidateModuleName(ref.Name); err != nil {
			return fmt.Errorf("%w: dependency: %v", ErrInvalidModule, err)
		}
		if ref.Branch != "" {
			if err := utils.ValidateBranch(ref.Branch); err != nil {
				return fmt.Errorf("%w: dependency: %v", ErrInvalidModule, err)
			}
		}
	}
	return nil
}

func validateRef(ref *types.StorageRef) error {
	if ref == nil {
		return nil
	}
	if err := utils.ValidateHash(ref.Hash); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}
	if err := utils.ValidateURIs(ref.URIs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}
	return nil
}
