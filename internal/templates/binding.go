package templates

import "strconv"

// Binding is the variable scope of one loop iteration. Values are string,
// bool or int. Lookups fall back to the enclosing loop's binding.
type Binding struct {
	vars   map[string]any
	parent *Binding
}

// NewBinding creates a scope nested inside parent (which may be nil).
func NewBinding(parent *Binding, vars map[string]any) *Binding {
	if vars == nil {
		vars = map[string]any{}
	}
	return &Binding{vars: vars, parent: parent}
}

// Lookup resolves name in this scope or the nearest enclosing one.
func (b *Binding) Lookup(name string) (any, bool) {
	for s := b; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Parent returns the enclosing binding.
func (b *Binding) Parent() *Binding {
	if b == nil {
		return nil
	}
	return b.parent
}

// FormatValue renders a bound value as template output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(x)
	case nil:
		return ""
	}
	return ""
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int:
		return x != 0
	case string:
		return x != ""
	}
	return false
}
