package detection

import "strings"

// Descriptor mirrors a JavaScript property descriptor.
type Descriptor struct {
	HasGetter    bool `json:"get"`
	HasSetter    bool `json:"set"`
	Configurable bool `json:"configurable"`
	Enumerable   bool `json:"enumerable"`
	Writable     bool `json:"writable"`
}

// Accessor reports whether the descriptor carries a getter or setter.
func (d Descriptor) Accessor() bool {
	return d.HasGetter || d.HasSetter
}

// Property is one name/descriptor pair of an inspected object.
type Property struct {
	Name string `json:"name"`
	// Type is the typeof result of the property value.
	Type string `json:"type,omitempty"`
	// Truthy reports whether the value coerces to true.
	Truthy     bool       `json:"truthy"`
	Descriptor Descriptor `json:"descriptor"`
}

// PropertyBag is an ordered set of properties of one object.
type PropertyBag interface {
	Properties() []Property
	Lookup(name string) (Property, bool)
}

// Bag is a slice-backed PropertyBag.
type Bag []Property

func (b Bag) Properties() []Property { return b }

func (b Bag) Lookup(name string) (Property, bool) {
	for _, p := range b {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// present reports whether name is defined with a truthy value.
func present(b PropertyBag, name string) bool {
	if b == nil {
		return false
	}
	p, ok := b.Lookup(name)
	return ok && p.Truthy
}

// matchNames returns the property names accepted by match.
func matchNames(b PropertyBag, enumerableOnly bool, match func(string) bool) []string {
	if b == nil {
		return nil
	}
	var out []string
	for _, p := range b.Properties() {
		if enumerableOnly && !p.Descriptor.Enumerable {
			continue
		}
		if match(p.Name) {
			out = append(out, p.Name)
		}
	}
	return out
}

func containsAny(s string, needles []string) (string, bool) {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return n, true
		}
	}
	return "", false
}
