package fbx

// TimeUnit is the number of KTime ticks in one second.
const TimeUnit = 46186158000

type AnimationStack struct {
	Obj
	props  *PropertyTable
	layers []*AnimationLayer
}

func newAnimationStack(id uint64, el *Element, doc *Document, name string) (*AnimationStack, error) {
	s := &AnimationStack{
		Obj:   newObj(id, el, name),
		props: doc.propertyTable("AnimationStack.FbxAnimStack", scopeOf(el)),
	}
	for _, c := range doc.GetConnectionsByDestinationSequenced(id, "AnimationLayer") {
		ob, err := resolveSource(doc, c, false, "AnimationLayer -> AnimationStack")
		if err != nil {
			return nil, err
		}
		if l, ok := ob.(*AnimationLayer); ok {
			s.layers = append(s.layers, l)
		}
	}
	return s, nil
}

func (s *AnimationStack) Props() *PropertyTable {
	return s.props
}

func (s *AnimationStack) LocalStart() int64 {
	return s.props.Int64("LocalStart", 0)
}

func (s *AnimationStack) LocalStop() int64 {
	return s.props.Int64("LocalStop", 0)
}

func (s *AnimationStack) ReferenceStart() int64 {
	return s.props.Int64("ReferenceStart", 0)
}

func (s *AnimationStack) ReferenceStop() int64 {
	return s.props.Int64("ReferenceStop", 0)
}

func (s *AnimationStack) Layers() []*AnimationLayer {
	return s.layers
}

type AnimationLayer struct {
	Obj
	doc   *Document
	props *PropertyTable
}

func newAnimationLayer(id uint64, el *Element, doc *Document, name string) (*AnimationLayer, error) {
	return &AnimationLayer{
		Obj:   newObj(id, el, name),
		doc:   doc,
		props: doc.propertyTable("AnimationLayer.FbxAnimLayer", scopeOf(el)),
	}, nil
}

func (l *AnimationLayer) Props() *PropertyTable {
	return l.props
}

// Nodes resolves the curve nodes of the layer. Curve nodes point at models
// which may in turn be reached from the layer, so this is not done eagerly.
func (l *AnimationLayer) Nodes() ([]*AnimationCurveNode, error) {
	var nodes []*AnimationCurveNode
	for _, c := range l.doc.GetConnectionsByDestinationSequenced(l.id, "AnimationCurveNode") {
		ob, err := resolveSource(l.doc, c, false, "AnimationCurveNode -> AnimationLayer")
		if err != nil {
			return nil, err
		}
		if n, ok := ob.(*AnimationCurveNode); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// AnimationCurve is a list of keyframes in KTime units.
type AnimationCurve struct {
	Obj
	keys      []int64
	values    []float64
	flags     []int32
	attrData  []float64
	attrCount []int32
}

func newAnimationCurve(id uint64, el *Element, doc *Document, name string) (*AnimationCurve, error) {
	sc, err := GetRequiredScope(el)
	if err != nil {
		return nil, err
	}
	c := &AnimationCurve{Obj: newObj(id, el, name)}

	kel, err := GetRequiredElement(sc, "KeyTime", el)
	if err != nil {
		return nil, err
	}
	t, err := GetRequiredToken(kel, 0)
	if err != nil {
		return nil, err
	}
	if c.keys, err = ParseInt64Array(t); err != nil {
		return nil, domErrorf(kel, "%v", err)
	}

	vel, err := GetRequiredElement(sc, "KeyValueFloat", el)
	if err != nil {
		return nil, err
	}
	if c.values, err = readFloats(vel); err != nil {
		return nil, err
	}
	if len(c.keys) != len(c.values) {
		return nil, domErrorf(el, "the key time array (%d) and the key value array (%d) have different size",
			len(c.keys), len(c.values))
	}
	for i := 1; i < len(c.keys); i++ {
		if c.keys[i] < c.keys[i-1] {
			return nil, domErrorf(kel, "the key time array is not sorted at index %d", i)
		}
	}

	if fel := sc.Get("KeyAttrFlags"); fel != nil {
		if c.flags, err = readInt32s(fel); err != nil {
			return nil, err
		}
	}
	if del := sc.Get("KeyAttrDataFloat"); del != nil {
		if c.attrData, err = readFloats(del); err != nil {
			return nil, err
		}
	}
	if rel := sc.Get("KeyAttrRefCount"); rel != nil {
		if c.attrCount, err = readInt32s(rel); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *AnimationCurve) Keys() []int64 {
	return c.keys
}

func (c *AnimationCurve) Values() []float64 {
	return c.values
}

func (c *AnimationCurve) AttributeFlags() []int32 {
	return c.flags
}

func (c *AnimationCurve) AttributeData() []float64 {
	return c.attrData
}

func (c *AnimationCurve) AttributeRefCounts() []int32 {
	return c.attrCount
}

// AnimationCurveNode groups the curves animating one property of a target,
// e.g. the X, Y and Z channels of "Lcl Translation".
type AnimationCurveNode struct {
	Obj
	doc        *Document
	props      *PropertyTable
	target     Object
	targetProp string
}

func newAnimationCurveNode(id uint64, el *Element, doc *Document, name string) (*AnimationCurveNode, error) {
	n := &AnimationCurveNode{
		Obj:   newObj(id, el, name),
		doc:   doc,
		props: doc.propertyTable("AnimationCurveNode.FbxAnimCurveNode", scopeOf(el)),
	}

	for _, c := range doc.GetConnectionsBySourceSequenced(id, "Model", "NodeAttribute", "Deformer") {
		if c.PropertyName() == "" {
			continue
		}
		ob, err := c.DestinationObject()
		if err != nil {
			return nil, err
		}
		if ob == nil {
			doc.warnf("failed to read destination object %d for AnimationCurveNode -> Model link, ignoring", c.DestinationID())
			continue
		}
		n.target = ob
		n.targetProp = c.PropertyName()
		break
	}
	if n.target == nil {
		doc.warnf("failed to resolve target Model/NodeAttribute/Deformer for AnimationCurveNode %d", id)
	}
	return n, nil
}

func (n *AnimationCurveNode) Props() *PropertyTable {
	return n.props
}

// Target is the animated object, nil if it could not be resolved.
func (n *AnimationCurveNode) Target() Object {
	return n.target
}

func (n *AnimationCurveNode) TargetProperty() string {
	return n.targetProp
}

// Curves maps channel names such as "d|X" to their curves.
func (n *AnimationCurveNode) Curves() (map[string]*AnimationCurve, error) {
	curves := map[string]*AnimationCurve{}
	for _, c := range n.doc.GetConnectionsByDestinationSequenced(n.id, "AnimationCurve") {
		ob, err := resolveSource(n.doc, c, true, "AnimationCurve -> AnimationCurveNode")
		if err != nil {
			return nil, err
		}
		if curve, ok := ob.(*AnimationCurve); ok {
			curves[c.PropertyName()] = curve
		}
	}
	return curves, nil
}
