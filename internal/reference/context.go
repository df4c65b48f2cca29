package reference

// Context holds everything a template-tag reference may legally resolve to at
// a given scope, split by value kind.
type Context struct {
	Parameters *Collection
	Artifacts  *Collection
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{
		Parameters: NewCollection(),
		Artifacts:  NewCollection(),
	}
}

// Clone returns an independent deep copy. The scope-builder caches hand out
// clones so a caller mutating its copy cannot corrupt the cached value.
func (c *Context) Clone() *Context {
	return &Context{
		Parameters: c.Parameters.Clone(),
		Artifacts:  c.Artifacts.Clone(),
	}
}

// Merge adds every reference from other into this context.
func (c *Context) Merge(other *Context) {
	if other == nil {
		return
	}
	c.Parameters.Merge(other.Parameters)
	c.Artifacts.Merge(other.Artifacts)
}
