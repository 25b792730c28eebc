package fbx

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Property is one "P" entry of a Properties70 block.
type Property struct {
	Name   string
	Type   string
	Label  string
	Flags  string
	Values []Token
}

func (p *Property) Float(i int) (float64, bool) {
	if p == nil || i >= len(p.Values) {
		return 0, false
	}
	if v, err := ParseTokenAsFloat(p.Values[i]); err == nil {
		return v, true
	}
	if v, err := ParseTokenAsInt64(p.Values[i]); err == nil {
		return float64(v), true
	}
	return 0, false
}

func (p *Property) Int64(i int) (int64, bool) {
	if p == nil || i >= len(p.Values) {
		return 0, false
	}
	if v, err := ParseTokenAsInt64(p.Values[i]); err == nil {
		return v, true
	}
	if v, err := ParseTokenAsFloat(p.Values[i]); err == nil {
		return int64(v), true
	}
	return 0, false
}

func (p *Property) String(i int) (string, bool) {
	if p == nil || i >= len(p.Values) {
		return "", false
	}
	v, err := ParseTokenAsString(p.Values[i])
	return v, err == nil
}

// PropertyTable is parsed lazily from a Properties70 element and falls back to
// a template table for names it does not define.
type PropertyTable struct {
	element  *Element
	template *PropertyTable
	props    map[string]*Property
}

func NewPropertyTable(el *Element, template *PropertyTable) *PropertyTable {
	return &PropertyTable{element: el, template: template}
}

func (t *PropertyTable) load() {
	if t.props != nil {
		return
	}
	t.props = map[string]*Property{}
	for _, p := range t.element.Compound().GetCollection("P") {
		tokens := p.Tokens()
		if len(tokens) < 4 {
			continue
		}
		prop := &Property{Values: tokens[4:]}
		var err error
		if prop.Name, err = ParseTokenAsString(tokens[0]); err != nil {
			continue
		}
		prop.Type, _ = ParseTokenAsString(tokens[1])
		prop.Label, _ = ParseTokenAsString(tokens[2])
		prop.Flags, _ = ParseTokenAsString(tokens[3])
		t.props[prop.Name] = prop
	}
}

func (t *PropertyTable) Template() *PropertyTable {
	if t == nil {
		return nil
	}
	return t.template
}

// Local returns the property only if this table defines it itself.
func (t *PropertyTable) Local(name string) *Property {
	if t == nil {
		return nil
	}
	t.load()
	return t.props[name]
}

// Get looks up name in this table, then in the template chain. Returns nil if absent.
func (t *PropertyTable) Get(name string) *Property {
	for ; t != nil; t = t.template {
		if p := t.Local(name); p != nil {
			return p
		}
	}
	return nil
}

// Names returns the locally defined property names in sorted order.
func (t *PropertyTable) Names() []string {
	if t == nil {
		return nil
	}
	t.load()
	names := make([]string, 0, len(t.props))
	for n := range t.props {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (t *PropertyTable) Float(name string, def float64) float64 {
	if v, ok := t.Get(name).Float(0); ok {
		return v
	}
	return def
}

func (t *PropertyTable) Int(name string, def int) int {
	if v, ok := t.Get(name).Int64(0); ok {
		return int(v)
	}
	return def
}

func (t *PropertyTable) Int64(name string, def int64) int64 {
	if v, ok := t.Get(name).Int64(0); ok {
		return v
	}
	return def
}

func (t *PropertyTable) Bool(name string, def bool) bool {
	if v, ok := t.Get(name).Int64(0); ok {
		return v != 0
	}
	return def
}

func (t *PropertyTable) String(name string, def string) string {
	if v, ok := t.Get(name).String(0); ok {
		return v
	}
	return def
}

// Vector reads a three component property such as "Lcl Translation" or "DiffuseColor".
func (t *PropertyTable) Vector(name string, def r3.Vec) r3.Vec {
	p := t.Get(name)
	x, okx := p.Float(0)
	y, oky := p.Float(1)
	z, okz := p.Float(2)
	if !okx || !oky || !okz {
		return def
	}
	return r3.Vec{X: x, Y: y, Z: z}
}
