package fbx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"
)

func parseElement(t *testing.T, n *tnode) *Element {
	t.Helper()
	tokens, err := TokenizeBinary(buildFBX(7400, n), 0)
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewParser(tokens)
	if err != nil {
		t.Fatal(err)
	}
	return p.RootScope().Get(n.name)
}

func TestPropertyTable(t *testing.T) {
	tmpl := NewPropertyTable(parseElement(t, props70(
		p70("Visibility", "Visibility", pD(1)),
		p70("Lcl Scaling", "Lcl Scaling", pD(1), pD(1), pD(1)),
		p70("RotationOrder", "enum", pI(0)),
	)), nil)
	table := NewPropertyTable(parseElement(t, props70(
		p70("Lcl Translation", "Lcl Translation", pD(1), pD(2), pD(3)),
		p70("RotationOrder", "enum", pI(4)),
		p70("Name", "KString", pS("cube")),
		p70("Count", "int", pI(9)),
		p70("Big", "KTime", pL(1<<40)),
		p70("Short", "Vector", pD(1)),
		node("P", pS("Broken")),
	)), tmpl)

	if v := table.Vector("Lcl Translation", r3.Vec{}); v != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Error("Lcl Translation", v)
	}
	if v := table.Vector("Lcl Scaling", r3.Vec{}); v != (r3.Vec{X: 1, Y: 1, Z: 1}) {
		t.Error("template fallback", v)
	}
	if v := table.Vector("Short", r3.Vec{X: 7}); v != (r3.Vec{X: 7}) {
		t.Error("short vector should give the default", v)
	}
	if v := table.Int("RotationOrder", -1); v != 4 {
		t.Error("local value should shadow template", v)
	}
	if v := tmpl.Int("RotationOrder", -1); v != 0 {
		t.Error("template value", v)
	}
	if !table.Bool("Visibility", false) {
		t.Error("Visibility")
	}
	if v := table.String("Name", ""); v != "cube" {
		t.Error("Name", v)
	}
	if v := table.Float("Count", 0); v != 9 {
		t.Error("int read as float", v)
	}
	if v := table.Int64("Big", 0); v != 1<<40 {
		t.Error("Big", v)
	}
	if v := table.Float("Missing", 0.5); v != 0.5 {
		t.Error("Missing", v)
	}
	if table.Local("Lcl Scaling") != nil || table.Get("Lcl Scaling") == nil {
		t.Error("Local should not consult the template")
	}
	if table.Get("Broken") != nil {
		t.Error("malformed P entry should be skipped")
	}
	if table.Template() != tmpl {
		t.Error("Template")
	}

	want := []string{"Big", "Count", "Lcl Translation", "Name", "RotationOrder", "Short"}
	if diff := cmp.Diff(want, table.Names()); diff != "" {
		t.Error("Names (-want +got):\n", diff)
	}

	p := table.Get("Lcl Translation")
	if p.Type != "Lcl Translation" || p.Flags != "A" || len(p.Values) != 3 {
		t.Error("property fields", p)
	}
}

func TestPropertyTableNil(t *testing.T) {
	var table *PropertyTable
	if table.Get("X") != nil || table.Float("X", 2) != 2 || table.Names() != nil {
		t.Error("nil table should behave as empty")
	}
	empty := NewPropertyTable(nil, nil)
	if empty.Int("X", 3) != 3 || len(empty.Names()) != 0 {
		t.Error("table without element should be empty")
	}
}
