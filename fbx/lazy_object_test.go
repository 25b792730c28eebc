package fbx

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/japanese"
)

func TestLazyObjectMemoized(t *testing.T) {
	doc := loadDocument(t, nil,
		headerNode(7400),
		objectsNode(object("Model", 1, "Cube", "Mesh")),
	)
	lazy := doc.GetObject(1)
	if lazy.ID() != 1 || lazy.Element().Key() != "Model" {
		t.Error("lazy object fields", lazy.ID(), lazy.Element().Key())
	}
	first, err := lazy.Get(false)
	if err != nil || first == nil {
		t.Fatal(first, err)
	}
	second, _ := lazy.Get(true)
	if first != second {
		t.Error("Get should return the same instance")
	}
	if first.ID() != 1 || first.Name() != "Model::Cube" || first.Element() != lazy.Element() {
		t.Error("object fields", first.ID(), first.Name())
	}
	if KindOf(first) != KindModel || first.(*Model).ClassTag() != "Mesh" {
		t.Error("kind", KindOf(first))
	}
	if lazy.IsBeingConstructed() || lazy.FailedToConstruct() {
		t.Error("flags after construction")
	}
}

func TestLazyObjectCycle(t *testing.T) {
	settings, logs := testSettings()
	doc := loadDocument(t, settings,
		headerNode(7400),
		objectsNode(
			object("Model", 1, "A", "Null"),
			object("Material", 2, "M", "", node("ShadingModel", pS("lambert"))),
			object("Texture", 3, "T", ""),
		),
		connectionsNode(
			oo(2, 1),
			op(3, 2, "DiffuseColor"),
			oo(1, 3),
		),
	)

	ob, err := doc.GetObject(1).Get(true)
	if err != nil {
		t.Fatal(err)
	}
	a := ob.(*Model)
	if len(a.Materials()) != 1 {
		t.Fatal("material not linked")
	}
	m := a.Materials()[0]
	tex := m.GetTexture("DiffuseColor")
	if tex == nil || tex.ID() != 3 {
		t.Fatal("texture not linked", m.Textures())
	}
	if !strings.Contains(logs.String(), "failed to read source object 1") {
		t.Error("the cycle should be reported", logs.String())
	}

	// later requests see the finished objects
	if again, _ := doc.GetObject(1).Get(false); again != ob {
		t.Error("model was constructed twice")
	}
	if ob, _ := doc.GetObject(3).Get(false); ob != tex {
		t.Error("texture was constructed twice")
	}
	for _, id := range []uint64{1, 2, 3} {
		if l := doc.GetObject(id); l.IsBeingConstructed() || l.FailedToConstruct() {
			t.Errorf("object %d: bad flags", id)
		}
	}
}

func brokenGeometryDoc(t *testing.T, settings *ImportSettings) *Document {
	return loadDocument(t, settings,
		headerNode(7400),
		objectsNode(
			object("Model", 1, "m", "Mesh"),
			object("Geometry", 2, "g", "Mesh", node("PolygonVertexIndex", aI(false, 0, 1, -3))),
		),
		connectionsNode(oo(2, 1), oo(1, 0)),
	)
}

func TestLazyObjectFailure(t *testing.T) {
	settings, logs := testSettings()
	doc := brokenGeometryDoc(t, settings)

	ob, err := doc.GetObject(2).Get(false)
	if ob != nil || err != nil {
		t.Fatal("tolerant Get should give nil, nil", ob, err)
	}
	if !doc.GetObject(2).FailedToConstruct() {
		t.Error("failure not recorded")
	}
	if !strings.Contains(logs.String(), "Vertices") {
		t.Error("failure should be logged", logs.String())
	}
	if ob, err := doc.GetObject(2).Get(true); ob != nil || err != nil {
		t.Error("a failed object is not retried", ob, err)
	}

	// the model survives without its geometry
	m, err := doc.GetObject(1).Get(false)
	if err != nil || m == nil || len(m.(*Model).Geometry()) != 0 {
		t.Error("model with broken geometry", m, err)
	}

	doc = brokenGeometryDoc(t, quietSettings())
	_, err = doc.GetObject(2).Get(true)
	var derr *DOMError
	if !errors.As(err, &derr) || derr.Element.Key() != "Geometry" {
		t.Error("dieOnError should return the DOMError", err)
	}
}

func TestLazyObjectStrictMode(t *testing.T) {
	settings := quietSettings()
	settings.StrictMode = true
	doc := brokenGeometryDoc(t, settings)

	if _, err := doc.GetObject(2).Get(false); err == nil {
		t.Error("strict mode should return construction errors")
	}
	// the error propagates through the model's link resolution
	doc = brokenGeometryDoc(t, settings)
	if _, err := doc.GetObject(1).Get(false); err == nil {
		t.Error("strict mode should fail the model too")
	}
}

func TestLazyObjectPanic(t *testing.T) {
	doc := loadDocument(t, nil,
		headerNode(7400),
		objectsNode(object("Model", 1, "Cube", "Mesh")),
	)
	// without a document, construction dereferences nil
	lazy := newLazyObject(1, doc.GetObject(1).Element(), nil)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("panic did not reach the caller")
			}
		}()
		lazy.Get(false)
	}()
	if !lazy.FailedToConstruct() || lazy.IsBeingConstructed() {
		t.Error("flags after panic", lazy.FailedToConstruct(), lazy.IsBeingConstructed())
	}
	// a rebuild would panic again
	if ob, err := lazy.Get(true); ob != nil || err != nil {
		t.Error("a failed object is not retried", ob, err)
	}
}

func TestLazyObjectUnsupported(t *testing.T) {
	doc := loadDocument(t, nil,
		headerNode(7400),
		objectsNode(
			object("Model", 1, "ik", "IKEffector"),
			object("Pose", 2, "BindPose", "BindPose"),
			object("Geometry", 3, "nurbs", "Nurbs"),
			node("Model", pL(4)).with(),
		),
	)
	for _, id := range []uint64{0, 1, 2, 3} {
		ob, err := doc.GetObject(id).Get(true)
		if ob != nil || err != nil {
			t.Errorf("object %d: expected nil, nil, got %v, %v", id, ob, err)
		}
		if doc.GetObject(id).FailedToConstruct() {
			t.Errorf("object %d: unsupported is not a failure", id)
		}
	}
	if _, err := doc.GetObject(4).Get(true); err == nil {
		t.Error("object without name and class should fail")
	}
}

func TestDemangleBinaryName(t *testing.T) {
	cases := map[string]string{
		"Cube\x00\x01Model":  "Model::Cube",
		"\x00\x01Material":   "Material::",
		"a\x00\x01":          "::a",
		"Model::Cube":        "Model::Cube",
		"plain":              "plain",
		"a\x00b":             "a\x00b",
		"x\x00\x01y\x00\x01": "y\x00\x01::x",
	}
	for in, want := range cases {
		if got := demangleBinaryName(in); got != want {
			t.Errorf("demangleBinaryName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLazyObjectNameEncoding(t *testing.T) {
	sjis, err := japanese.ShiftJIS.NewEncoder().String("立方体")
	if err != nil {
		t.Fatal(err)
	}
	settings := quietSettings()
	settings.NameEncoding = "shift_jis"
	doc := loadDocument(t, settings,
		headerNode(7400),
		objectsNode(node("Model", pL(1), pS(sjis+"\x00\x01Model"), pS("Null")).with()),
	)
	if ob := getObject(t, doc, 1); ob.Name() != "Model::立方体" {
		t.Errorf("name %q", ob.Name())
	}

	settings.NameEncoding = "no-such-charset"
	if _, err := ParseBytes(buildFBX(7400, headerNode(7400), objectsNode()), settings); err == nil {
		t.Error("unknown encoding accepted")
	}
}
