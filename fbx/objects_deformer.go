package fbx

import (
	"gonum.org/v1/gonum/mat"
)

type deformerBase struct {
	Obj
	classTag string
	props    *PropertyTable
}

func (d *deformerBase) init(doc *Document, sc *Scope) {
	d.props = doc.propertyTable("Deformer.Fbx"+d.classTag, sc)
}

func (d *deformerBase) Props() *PropertyTable {
	return d.props
}

// Cluster binds a set of control points of a mesh to one bone (TargetNode).
type Cluster struct {
	deformerBase
	indices       []int32
	weights       []float64
	transform     *mat.Dense
	transformLink *mat.Dense
	node          *Model
}

func readMatrix(sc *Scope, name string, parent *Element) (*mat.Dense, error) {
	el, err := GetRequiredElement(sc, name, parent)
	if err != nil {
		return nil, err
	}
	v, err := readFloats(el)
	if err != nil {
		return nil, err
	}
	if len(v) != 16 {
		return nil, domErrorf(el, "expected 16 matrix elements, got %d", len(v))
	}
	// stored column by column
	return mat.DenseCopyOf(mat.NewDense(4, 4, v).T()), nil
}

func newCluster(id uint64, el *Element, doc *Document, name, classTag string) (*Cluster, error) {
	sc, err := GetRequiredScope(el)
	if err != nil {
		return nil, err
	}
	c := &Cluster{deformerBase: deformerBase{Obj: newObj(id, el, name), classTag: classTag}}
	c.init(doc, sc)

	iel, wel := sc.Get("Indexes"), sc.Get("Weights")
	if (iel == nil) != (wel == nil) {
		return nil, domErrorf(el, "either Indexes or Weights are missing from Cluster")
	}
	if iel != nil {
		if c.indices, err = readInt32s(iel); err != nil {
			return nil, err
		}
		if c.weights, err = readFloats(wel); err != nil {
			return nil, err
		}
		if len(c.indices) != len(c.weights) {
			return nil, domErrorf(el, "sizes of index and weight array don't match up")
		}
	}

	if c.transform, err = readMatrix(sc, "Transform", el); err != nil {
		return nil, err
	}
	if c.transformLink, err = readMatrix(sc, "TransformLink", el); err != nil {
		return nil, err
	}

	for _, con := range doc.GetConnectionsByDestinationSequenced(id, "Model") {
		ob, err := resolveSource(doc, con, false, "Model -> Cluster")
		if err != nil {
			return nil, err
		}
		if m, ok := ob.(*Model); ok {
			c.node = m
			break
		}
	}
	if c.node == nil {
		return nil, domErrorf(el, "failed to read target Node for Cluster")
	}
	return c, nil
}

func (c *Cluster) Indices() []int32 {
	return c.indices
}

func (c *Cluster) Weights() []float64 {
	return c.weights
}

// Transform is the mesh transform at bind time, translation in the last column.
func (c *Cluster) Transform() *mat.Dense {
	return c.transform
}

func (c *Cluster) TransformLink() *mat.Dense {
	return c.transformLink
}

func (c *Cluster) TargetNode() *Model {
	return c.node
}

type Skin struct {
	deformerBase
	accuracy     float64
	skinningType string
	clusters     []*Cluster
}

func newSkin(id uint64, el *Element, doc *Document, name, classTag string) (*Skin, error) {
	sc := scopeOf(el)
	s := &Skin{deformerBase: deformerBase{Obj: newObj(id, el, name), classTag: classTag}}
	s.init(doc, sc)

	var err error
	if acc := sc.Get("Link_DeformAcuracy"); acc != nil {
		if s.accuracy, err = requiredFloat(acc, 0); err != nil {
			return nil, err
		}
	}
	s.skinningType = optionalString(sc, "SkinningType", "")

	for _, con := range doc.GetConnectionsByDestinationSequenced(id, "Deformer") {
		ob, err := resolveSource(doc, con, false, "Cluster -> Skin")
		if err != nil {
			return nil, err
		}
		if cl, ok := ob.(*Cluster); ok {
			s.clusters = append(s.clusters, cl)
		}
	}
	return s, nil
}

func (s *Skin) DeformAccuracy() float64 {
	return s.accuracy
}

func (s *Skin) SkinningType() string {
	return s.skinningType
}

func (s *Skin) Clusters() []*Cluster {
	return s.clusters
}

type BlendShape struct {
	deformerBase
	channels []*BlendShapeChannel
}

func newBlendShape(id uint64, el *Element, doc *Document, name, classTag string) (*BlendShape, error) {
	b := &BlendShape{deformerBase: deformerBase{Obj: newObj(id, el, name), classTag: classTag}}
	b.init(doc, scopeOf(el))

	for _, con := range doc.GetConnectionsByDestinationSequenced(id, "Deformer") {
		ob, err := resolveSource(doc, con, false, "BlendShapeChannel -> BlendShape")
		if err != nil {
			return nil, err
		}
		if ch, ok := ob.(*BlendShapeChannel); ok {
			b.channels = append(b.channels, ch)
		}
	}
	return b, nil
}

func (b *BlendShape) Channels() []*BlendShapeChannel {
	return b.channels
}

type BlendShapeChannel struct {
	deformerBase
	percent     float64
	fullWeights []float64
	shapes      []*ShapeGeometry
}

func newBlendShapeChannel(id uint64, el *Element, doc *Document, name, classTag string) (*BlendShapeChannel, error) {
	sc := scopeOf(el)
	b := &BlendShapeChannel{deformerBase: deformerBase{Obj: newObj(id, el, name), classTag: classTag}}
	b.init(doc, sc)

	var err error
	if dp := sc.Get("DeformPercent"); dp != nil {
		if b.percent, err = requiredFloat(dp, 0); err != nil {
			return nil, err
		}
	}
	if fw := sc.Get("FullWeights"); fw != nil {
		if b.fullWeights, err = readFloats(fw); err != nil {
			return nil, err
		}
	}

	for _, con := range doc.GetConnectionsByDestinationSequenced(id, "Geometry") {
		ob, err := resolveSource(doc, con, false, "Shape -> BlendShapeChannel")
		if err != nil {
			return nil, err
		}
		if sg, ok := ob.(*ShapeGeometry); ok {
			b.shapes = append(b.shapes, sg)
		}
	}
	return b, nil
}

func (b *BlendShapeChannel) DeformPercent() float64 {
	return b.percent
}

func (b *BlendShapeChannel) FullWeights() []float64 {
	return b.fullWeights
}

func (b *BlendShapeChannel) Shapes() []*ShapeGeometry {
	return b.shapes
}
