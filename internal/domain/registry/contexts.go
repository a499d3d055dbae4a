package registry

// contextIndex maps a context id to the modules declared for it, and back.
type contextIndex struct {
	byContext map[string]*orderedSet[string]
	byModule  map[string]*orderedSet[string]
}

func newContextIndex() *contextIndex {
	return &contextIndex{
		byContext: make(map[string]*orderedSet[string]),
		byModule:  make(map[string]*orderedSet[string]),
	}
}

// add is idempotent
func (c *contextIndex) add(name, ctxID string) {
	set, ok := c.byContext[ctxID]
	if !ok {
		set = newOrderedSet[string]()
		c.byContext[ctxID] = set
	}
	set.add(name)

	mods, ok := c.byModule[name]
	if !ok {
		mods = newOrderedSet[string]()
		c.byModule[name] = mods
	}
	mods.add(ctxID)
}

// remove of an absent mapping is a no-op
func (c *contextIndex) remove(name, ctxID string) {
	if set, ok := c.byContext[ctxID]; ok {
		set.remove(name)
		if set.len() == 0 {
			delete(c.byContext, ctxID)
		}
	}
	if mods, ok := c.byModule[name]; ok {
		mods.remove(ctxID)
		if mods.len() == 0 {
			delete(c.byModule, name)
		}
	}
}

func (c *contextIndex) dropModule(name string) {
	for _, ctxID := range c.contextsOf(name) {
		c.remove(name, ctxID)
	}
}

func (c *contextIndex) contextsOf(name string) []string {
	if mods, ok := c.byModule[name]; ok {
		return mods.values()
	}
	return []string{}
}

func (c *contextIndex) modulesOf(ctxID string) []string {
	if set, ok := c.byContext[ctxID]; ok {
		return set.values()
	}
	return []string{}
}

func (c *contextIndex) len() int {
	return len(c.byContext)
}
