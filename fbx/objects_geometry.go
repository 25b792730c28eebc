package fbx

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Geometry is implemented by MeshGeometry, ShapeGeometry and LineGeometry.
type Geometry interface {
	Object
	Skin() *Skin
	BlendShapes() []*BlendShape
}

type geometryBase struct {
	Obj
	skin        *Skin
	blendShapes []*BlendShape
}

func (g *geometryBase) Skin() *Skin {
	return g.skin
}

func (g *geometryBase) BlendShapes() []*BlendShape {
	return g.blendShapes
}

func (g *geometryBase) resolveDeformers(doc *Document) error {
	for _, c := range doc.GetConnectionsByDestinationSequenced(g.id, "Deformer") {
		ob, err := resolveSource(doc, c, false, "Deformer -> Geometry")
		if err != nil {
			return err
		}
		switch d := ob.(type) {
		case *Skin:
			g.skin = d
		case *BlendShape:
			g.blendShapes = append(g.blendShapes, d)
		}
	}
	return nil
}

type MappingType string

const (
	AllSame         MappingType = "AllSame"
	ByPolygon       MappingType = "ByPolygon"
	ByVertice       MappingType = "ByVertice"
	ByPolygonVertex MappingType = "ByPolygonVertex"
	ByControlPoint  MappingType = "ByControlPoint"
	ByEdge          MappingType = "ByEdge"
)

// LayerElement is one per-vertex or per-polygon data channel of a mesh.
type LayerElement struct {
	Name                     string
	TypedIndex               int
	MappingInformationType   MappingType
	ReferenceInformationType string
	// Data holds Components values per entry. Nil for material layers.
	Data       []float64
	Components int
	Indices    []int32
}

func (e *LayerElement) Len() int {
	if e == nil || e.Components == 0 {
		return 0
	}
	return len(e.Data) / e.Components
}

func optionalString(sc *Scope, name string, def string) string {
	if el := sc.Get(name); el != nil && len(el.Tokens()) > 0 {
		if s, err := ParseTokenAsString(el.Tokens()[0]); err == nil {
			return s
		}
	}
	return def
}

func readLayerElement(el *Element, dataName, indexName string, components int) (*LayerElement, error) {
	sc, err := GetRequiredScope(el)
	if err != nil {
		return nil, err
	}
	e := &LayerElement{
		Name:                     optionalString(sc, "Name", ""),
		MappingInformationType:   MappingType(optionalString(sc, "MappingInformationType", "")),
		ReferenceInformationType: optionalString(sc, "ReferenceInformationType", "Direct"),
		Components:               components,
	}
	if len(el.Tokens()) > 0 {
		e.TypedIndex, _ = ParseTokenAsInt(el.Tokens()[0])
	}

	if dataName != "" {
		del, err := GetRequiredElement(sc, dataName, el)
		if err != nil {
			return nil, err
		}
		t, err := GetRequiredToken(del, 0)
		if err != nil {
			return nil, err
		}
		if e.Data, err = ParseFloat64Array(t); err != nil {
			return nil, domErrorf(del, "%v", err)
		}
		if len(e.Data)%components != 0 {
			return nil, domErrorf(del, "%d values are not a multiple of %d", len(e.Data), components)
		}
	}

	iel := sc.Get(indexName)
	if iel == nil {
		if e.ReferenceInformationType == "IndexToDirect" || dataName == "" {
			return nil, domErrorf(el, "did not find required element %q", indexName)
		}
		return e, nil
	}
	t, err := GetRequiredToken(iel, 0)
	if err != nil {
		return nil, err
	}
	if e.Indices, err = ParseInt32Array(t); err != nil {
		return nil, domErrorf(iel, "%v", err)
	}
	return e, nil
}

func readVectors(el *Element) ([]r3.Vec, error) {
	t, err := GetRequiredToken(el, 0)
	if err != nil {
		return nil, err
	}
	v, err := ParseFloat64Array(t)
	if err != nil {
		return nil, domErrorf(el, "%v", err)
	}
	if len(v)%3 != 0 {
		return nil, domErrorf(el, "%d values are not a multiple of 3", len(v))
	}
	r := make([]r3.Vec, len(v)/3)
	for i := range r {
		r[i] = r3.Vec{X: v[i*3], Y: v[i*3+1], Z: v[i*3+2]}
	}
	return r, nil
}

func readInt32s(el *Element) ([]int32, error) {
	t, err := GetRequiredToken(el, 0)
	if err != nil {
		return nil, err
	}
	v, err := ParseInt32Array(t)
	if err != nil {
		return nil, domErrorf(el, "%v", err)
	}
	return v, nil
}

func readFloats(el *Element) ([]float64, error) {
	t, err := GetRequiredToken(el, 0)
	if err != nil {
		return nil, err
	}
	v, err := ParseFloat64Array(t)
	if err != nil {
		return nil, domErrorf(el, "%v", err)
	}
	return v, nil
}

type MeshGeometry struct {
	geometryBase
	vertices        []r3.Vec
	polygonVertices []int
	faceIndexCounts []int

	normals   *LayerElement
	tangents  *LayerElement
	binormals *LayerElement
	uvs       []*LayerElement
	colors    []*LayerElement
	materials *LayerElement
}

func newMeshGeometry(id uint64, el *Element, doc *Document, name string) (*MeshGeometry, error) {
	sc, err := GetRequiredScope(el)
	if err != nil {
		return nil, err
	}
	m := &MeshGeometry{geometryBase: geometryBase{Obj: newObj(id, el, name)}}

	vel, err := GetRequiredElement(sc, "Vertices", el)
	if err != nil {
		return nil, err
	}
	if m.vertices, err = readVectors(vel); err != nil {
		return nil, err
	}

	pel, err := GetRequiredElement(sc, "PolygonVertexIndex", el)
	if err != nil {
		return nil, err
	}
	indices, err := readInt32s(pel)
	if err != nil {
		return nil, err
	}
	// the last index of each polygon is stored as ^index
	count := 0
	m.polygonVertices = make([]int, len(indices))
	for i, index := range indices {
		absi := int(index)
		if index < 0 {
			absi = int(^index)
		}
		if absi >= len(m.vertices) {
			return nil, domErrorf(pel, "polygon vertex index %d out of range (%d vertices)", absi, len(m.vertices))
		}
		m.polygonVertices[i] = absi
		count++
		if index < 0 {
			m.faceIndexCounts = append(m.faceIndexCounts, count)
			count = 0
		}
	}
	if count != 0 {
		return nil, domErrorf(pel, "polygon vertex index list ends inside a polygon")
	}

	layers := []struct {
		name, data, index string
		components        int
		single            **LayerElement
		multi             *[]*LayerElement
	}{
		{"LayerElementNormal", "Normals", "NormalsIndex", 3, &m.normals, nil},
		{"LayerElementTangent", "Tangents", "TangentsIndex", 3, &m.tangents, nil},
		{"LayerElementBinormal", "Binormals", "BinormalsIndex", 3, &m.binormals, nil},
		{"LayerElementUV", "UV", "UVIndex", 2, nil, &m.uvs},
		{"LayerElementColor", "Colors", "ColorIndex", 4, nil, &m.colors},
		{"LayerElementMaterial", "", "Materials", 1, &m.materials, nil},
	}
	for _, l := range layers {
		for _, lel := range sc.GetCollection(l.name) {
			e, err := readLayerElement(lel, l.data, l.index, l.components)
			if err != nil {
				return nil, err
			}
			if l.multi != nil {
				*l.multi = append(*l.multi, e)
				continue
			}
			*l.single = e
			break
		}
	}

	if err := m.resolveDeformers(doc); err != nil {
		return nil, err
	}
	return m, nil
}

// Vertices returns the control points.
func (m *MeshGeometry) Vertices() []r3.Vec {
	return m.vertices
}

// PolygonVertices returns the control point index of every polygon vertex.
func (m *MeshGeometry) PolygonVertices() []int {
	return m.polygonVertices
}

func (m *MeshGeometry) FaceIndexCounts() []int {
	return m.faceIndexCounts
}

func (m *MeshGeometry) Normals() *LayerElement {
	return m.normals
}

func (m *MeshGeometry) Tangents() *LayerElement {
	return m.tangents
}

func (m *MeshGeometry) Binormals() *LayerElement {
	return m.binormals
}

func (m *MeshGeometry) UVs() []*LayerElement {
	return m.uvs
}

func (m *MeshGeometry) Colors() []*LayerElement {
	return m.colors
}

func (m *MeshGeometry) MaterialIndices() []int32 {
	if m.materials == nil {
		return nil
	}
	return m.materials.Indices
}

// ShapeGeometry is a blend shape target: sparse vertex offsets for the listed indices.
type ShapeGeometry struct {
	geometryBase
	vertices []r3.Vec
	normals  []r3.Vec
	indices  []int32
}

func newShapeGeometry(id uint64, el *Element, doc *Document, name string) (*ShapeGeometry, error) {
	sc, err := GetRequiredScope(el)
	if err != nil {
		return nil, err
	}
	s := &ShapeGeometry{geometryBase: geometryBase{Obj: newObj(id, el, name)}}

	vel, err := GetRequiredElement(sc, "Vertices", el)
	if err != nil {
		return nil, err
	}
	if s.vertices, err = readVectors(vel); err != nil {
		return nil, err
	}
	iel, err := GetRequiredElement(sc, "Indexes", el)
	if err != nil {
		return nil, err
	}
	if s.indices, err = readInt32s(iel); err != nil {
		return nil, err
	}
	if len(s.indices) != len(s.vertices) {
		return nil, domErrorf(el, "%d shape indexes for %d vertices", len(s.indices), len(s.vertices))
	}
	if nel := sc.Get("Normals"); nel != nil {
		if s.normals, err = readVectors(nel); err != nil {
			return nil, err
		}
	}

	if err := s.resolveDeformers(doc); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ShapeGeometry) Vertices() []r3.Vec {
	return s.vertices
}

func (s *ShapeGeometry) Normals() []r3.Vec {
	return s.normals
}

func (s *ShapeGeometry) Indices() []int32 {
	return s.indices
}

type LineGeometry struct {
	geometryBase
	points  []r3.Vec
	indices []int32
}

func newLineGeometry(id uint64, el *Element, doc *Document, name string) (*LineGeometry, error) {
	sc, err := GetRequiredScope(el)
	if err != nil {
		return nil, err
	}
	g := &LineGeometry{geometryBase: geometryBase{Obj: newObj(id, el, name)}}

	pel, err := GetRequiredElement(sc, "Points", el)
	if err != nil {
		return nil, err
	}
	if g.points, err = readVectors(pel); err != nil {
		return nil, err
	}
	iel, err := GetRequiredElement(sc, "PointsIndex", el)
	if err != nil {
		return nil, err
	}
	if g.indices, err = readInt32s(iel); err != nil {
		return nil, err
	}

	if err := g.resolveDeformers(doc); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *LineGeometry) Points() []r3.Vec {
	return g.points
}

// Indices ends each line segment strip with a negative (^index) entry.
func (g *LineGeometry) Indices() []int32 {
	return g.indices
}
