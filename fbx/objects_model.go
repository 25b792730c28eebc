package fbx

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Model is a node of the scene hierarchy.
type Model struct {
	Obj
	doc      *Document
	classTag string
	culling  string
	props    *PropertyTable

	geometry   []Geometry
	materials  []*Material
	attributes []NodeAttribute
}

func newModel(id uint64, el *Element, doc *Document, name, classTag string) (*Model, error) {
	sc := scopeOf(el)
	m := &Model{
		Obj:      newObj(id, el, name),
		doc:      doc,
		classTag: classTag,
		culling:  optionalString(sc, "Culling", ""),
		props:    doc.propertyTable("Model.FbxNode", sc),
	}
	if err := m.resolveLinks(doc); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) resolveLinks(doc *Document) error {
	for _, c := range doc.GetConnectionsByDestinationSequenced(m.id, "Geometry", "Material", "NodeAttribute") {
		// OP links such as textures on model properties are not ours to resolve
		if c.PropertyName() != "" {
			continue
		}
		ob, err := c.SourceObject()
		if err != nil {
			return err
		}
		if ob == nil {
			doc.warnf("failed to load source object %d for model %d", c.SourceID(), m.id)
			continue
		}
		switch o := ob.(type) {
		case Geometry:
			m.geometry = append(m.geometry, o)
		case *Material:
			m.materials = append(m.materials, o)
		case NodeAttribute:
			m.attributes = append(m.attributes, o)
		}
	}
	return nil
}

// ClassTag is "Mesh", "Null", "LimbNode", "Camera", ...
func (m *Model) ClassTag() string {
	return m.classTag
}

func (m *Model) Culling() string {
	return m.culling
}

func (m *Model) Props() *PropertyTable {
	return m.props
}

func (m *Model) Geometry() []Geometry {
	return m.geometry
}

func (m *Model) Materials() []*Material {
	return m.materials
}

func (m *Model) Attributes() []NodeAttribute {
	return m.attributes
}

func (m *Model) Translation() r3.Vec {
	return m.props.Vector("Lcl Translation", r3.Vec{})
}

// Rotation is in euler degrees, applied in RotationOrder.
func (m *Model) Rotation() r3.Vec {
	return m.props.Vector("Lcl Rotation", r3.Vec{})
}

func (m *Model) Scaling() r3.Vec {
	return m.props.Vector("Lcl Scaling", r3.Vec{X: 1, Y: 1, Z: 1})
}

func (m *Model) PreRotation() r3.Vec {
	return m.props.Vector("PreRotation", r3.Vec{})
}

func (m *Model) PostRotation() r3.Vec {
	return m.props.Vector("PostRotation", r3.Vec{})
}

func (m *Model) RotationOrder() int {
	return m.props.Int("RotationOrder", 0)
}

func (m *Model) Visibility() bool {
	return m.props.Bool("Visibility", true)
}

// Children resolves the models attached below m. Unlike the links resolved at
// construction this is done on request, as parent and child refer to each other.
func (m *Model) Children() ([]*Model, error) {
	var r []*Model
	for _, c := range m.doc.GetConnectionsByDestinationSequenced(m.id, "Model") {
		if c.PropertyName() != "" {
			continue
		}
		ob, err := c.SourceObject()
		if err != nil {
			return nil, err
		}
		if child, ok := ob.(*Model); ok {
			r = append(r, child)
		}
	}
	return r, nil
}

// Parent returns nil for models attached to the root node.
func (m *Model) Parent() (*Model, error) {
	for _, c := range m.doc.GetConnectionsBySourceSequenced(m.id, "Model") {
		if c.PropertyName() != "" {
			continue
		}
		ob, err := c.DestinationObject()
		if err != nil {
			return nil, err
		}
		if p, ok := ob.(*Model); ok {
			return p, nil
		}
	}
	return nil, nil
}

// NodeAttribute is implemented by Null and LimbNode.
type NodeAttribute interface {
	Object
	ClassName() string
	Props() *PropertyTable
}

type nodeAttributeBase struct {
	Obj
	className string
	props     *PropertyTable
}

func newNodeAttributeBase(id uint64, el *Element, doc *Document, name, classTag string) nodeAttributeBase {
	return nodeAttributeBase{
		Obj:       newObj(id, el, name),
		className: classTag,
		props:     doc.propertyTable("NodeAttribute.Fbx"+classTag, scopeOf(el)),
	}
}

func (n *nodeAttributeBase) ClassName() string {
	return n.className
}

func (n *nodeAttributeBase) Props() *PropertyTable {
	return n.props
}

type Null struct {
	nodeAttributeBase
}

func newNull(id uint64, el *Element, doc *Document, name, classTag string) (*Null, error) {
	return &Null{newNodeAttributeBase(id, el, doc, name, classTag)}, nil
}

// LimbNode marks a model as a skeleton bone.
type LimbNode struct {
	nodeAttributeBase
}

func newLimbNode(id uint64, el *Element, doc *Document, name, classTag string) (*LimbNode, error) {
	return &LimbNode{newNodeAttributeBase(id, el, doc, name, classTag)}, nil
}

func (l *LimbNode) Size() float64 {
	return l.props.Float("Size", 1)
}
