package fbx

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/blezek/tga"
	_ "github.com/oov/psd"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"gonum.org/v1/gonum/spatial/r3"
)

type Material struct {
	Obj
	shading    string
	multiLayer bool
	props      *PropertyTable

	textures        map[string]*Texture
	layeredTextures map[string]*LayeredTexture
}

func newMaterial(id uint64, el *Element, doc *Document, name string) (*Material, error) {
	sc := scopeOf(el)
	m := &Material{
		Obj:             newObj(id, el, name),
		textures:        map[string]*Texture{},
		layeredTextures: map[string]*LayeredTexture{},
	}

	if ml := sc.Get("MultiLayer"); ml != nil {
		v, err := requiredInt(ml, 0)
		if err != nil {
			return nil, err
		}
		m.multiLayer = v != 0
	}
	m.shading = optionalString(sc, "ShadingModel", "")
	if m.shading == "" {
		doc.warnf("shading mode not specified for material %d, assuming phong", id)
		m.shading = "phong"
	}

	templateName := ""
	switch strings.ToLower(m.shading) {
	case "phong":
		templateName = "Material.FbxSurfacePhong"
	case "lambert":
		templateName = "Material.FbxSurfaceLambert"
	default:
		doc.warnf("shading mode %q of material %d not recognized", m.shading, id)
	}
	m.props = doc.propertyTable(templateName, sc)

	// textures are bound to material properties through OP links
	for _, c := range doc.GetConnectionsByDestinationSequenced(id) {
		if c.PropertyName() == "" {
			continue
		}
		ob, err := c.SourceObject()
		if err != nil {
			return nil, err
		}
		if ob == nil {
			doc.warnf("failed to read source object %d for texture link, ignoring", c.SourceID())
			continue
		}
		prop := c.PropertyName()
		switch t := ob.(type) {
		case *Texture:
			if _, ok := m.textures[prop]; ok {
				doc.warnf("duplicate texture link %q on material %d", prop, id)
			}
			m.textures[prop] = t
		case *LayeredTexture:
			if _, ok := m.layeredTextures[prop]; ok {
				doc.warnf("duplicate layered texture link %q on material %d", prop, id)
			}
			m.layeredTextures[prop] = t
		}
	}
	return m, nil
}

func (m *Material) ShadingModel() string {
	return m.shading
}

func (m *Material) IsMultilayer() bool {
	return m.multiLayer
}

func (m *Material) Props() *PropertyTable {
	return m.props
}

func (m *Material) GetColor(name string, def r3.Vec) r3.Vec {
	return m.props.Vector(name, def)
}

func (m *Material) GetFactor(name string, def float64) float64 {
	return m.props.Float(name, def)
}

// Textures maps material property names such as "DiffuseColor" to textures.
func (m *Material) Textures() map[string]*Texture {
	return m.textures
}

func (m *Material) LayeredTextures() map[string]*LayeredTexture {
	return m.layeredTextures
}

func (m *Material) GetTexture(prop string) *Texture {
	return m.textures[prop]
}

type Texture struct {
	Obj
	typ              string
	fileName         string
	relativeFileName string
	alphaSource      string
	uvTranslation    [2]float64
	uvScaling        [2]float64
	crop             [4]int
	props            *PropertyTable
	media            *Video
}

func readFloatPair(el *Element, def [2]float64) ([2]float64, error) {
	if el == nil {
		return def, nil
	}
	var r [2]float64
	for i := range r {
		v, err := requiredFloat(el, i)
		if err != nil {
			return def, err
		}
		r[i] = v
	}
	return r, nil
}

func newTexture(id uint64, el *Element, doc *Document, name string) (*Texture, error) {
	sc := scopeOf(el)
	t := &Texture{
		Obj:              newObj(id, el, name),
		typ:              optionalString(sc, "Type", ""),
		fileName:         optionalString(sc, "FileName", ""),
		relativeFileName: optionalString(sc, "RelativeFilename", ""),
		alphaSource:      optionalString(sc, "Texture_Alpha_Source", ""),
		props:            doc.propertyTable("Texture.FbxFileTexture", sc),
	}

	var err error
	if t.uvTranslation, err = readFloatPair(sc.Get("ModelUVTranslation"), [2]float64{0, 0}); err != nil {
		return nil, err
	}
	if t.uvScaling, err = readFloatPair(sc.Get("ModelUVScaling"), [2]float64{1, 1}); err != nil {
		return nil, err
	}
	if cel := sc.Get("Cropping"); cel != nil {
		for i := range t.crop {
			if t.crop[i], err = requiredInt(cel, i); err != nil {
				return nil, err
			}
		}
	}

	for _, c := range doc.GetConnectionsByDestinationSequenced(id) {
		ob, err := c.SourceObject()
		if err != nil {
			return nil, err
		}
		if ob == nil {
			doc.warnf("failed to read source object %d for texture link, ignoring", c.SourceID())
			continue
		}
		if v, ok := ob.(*Video); ok {
			t.media = v
		}
	}
	return t, nil
}

func (t *Texture) Type() string {
	return t.typ
}

func (t *Texture) FileName() string {
	return t.fileName
}

func (t *Texture) RelativeFilename() string {
	return t.relativeFileName
}

func (t *Texture) AlphaSource() string {
	return t.alphaSource
}

func (t *Texture) UVTranslation() [2]float64 {
	return t.uvTranslation
}

func (t *Texture) UVScaling() [2]float64 {
	return t.uvScaling
}

func (t *Texture) Crop() [4]int {
	return t.crop
}

func (t *Texture) Props() *PropertyTable {
	return t.props
}

// Media returns the Video holding the image, or nil if not linked.
func (t *Texture) Media() *Video {
	return t.media
}

type LayeredTexture struct {
	Obj
	blendMode int
	alpha     float64
	textures  []*Texture
}

func newLayeredTexture(id uint64, el *Element, doc *Document, name string) (*LayeredTexture, error) {
	sc := scopeOf(el)
	t := &LayeredTexture{Obj: newObj(id, el, name), alpha: 1}

	var err error
	if bm := sc.Get("BlendModes"); bm != nil {
		if t.blendMode, err = requiredInt(bm, 0); err != nil {
			return nil, err
		}
	}
	if a := sc.Get("Alphas"); a != nil {
		if t.alpha, err = requiredFloat(a, 0); err != nil {
			return nil, err
		}
	}

	for _, c := range doc.GetConnectionsByDestinationSequenced(id, "Texture") {
		ob, err := resolveSource(doc, c, false, "Texture -> LayeredTexture")
		if err != nil {
			return nil, err
		}
		if tex, ok := ob.(*Texture); ok {
			t.textures = append(t.textures, tex)
		}
	}
	return t, nil
}

func (t *LayeredTexture) BlendMode() int {
	return t.blendMode
}

func (t *LayeredTexture) Alpha() float64 {
	return t.alpha
}

func (t *LayeredTexture) Textures() []*Texture {
	return t.textures
}

// Video is the media behind a texture, optionally with the file embedded.
type Video struct {
	Obj
	typ              string
	fileName         string
	relativeFileName string
	content          []byte
	props            *PropertyTable
}

func newVideo(id uint64, el *Element, doc *Document, name string) (*Video, error) {
	sc := scopeOf(el)
	v := &Video{
		Obj:              newObj(id, el, name),
		typ:              optionalString(sc, "Type", ""),
		fileName:         optionalString(sc, "FileName", ""),
		relativeFileName: optionalString(sc, "RelativeFilename", ""),
		props:            doc.propertyTable("Video.FbxVideo", sc),
	}
	if cel := sc.Get("Content"); cel != nil && len(cel.Tokens()) > 0 {
		content, err := ParseTokenAsBytes(cel.Tokens()[0])
		if err != nil {
			doc.warnf("video %d: cannot read embedded content: %v", id, err)
		} else if len(content) > 0 {
			v.content = content
		}
	}
	return v, nil
}

func (v *Video) Type() string {
	return v.typ
}

func (v *Video) FileName() string {
	return v.fileName
}

func (v *Video) RelativeFilename() string {
	return v.relativeFileName
}

func (v *Video) Props() *PropertyTable {
	return v.props
}

// Content returns the embedded file, nil if the media is external. The slice
// aliases the input buffer.
func (v *Video) Content() []byte {
	return v.content
}

// DecodeImage decodes the embedded file (png, jpeg, gif, bmp, psd or tga).
func (v *Video) DecodeImage() (image.Image, error) {
	if len(v.content) == 0 {
		return nil, errors.Errorf("video %q has no embedded content", v.name)
	}
	img, _, err := image.Decode(bytes.NewReader(v.content))
	if err != nil && v.isTGA() {
		// tga has no magic number, so it is not registered with image.Decode
		img, err = tga.Decode(bytes.NewReader(v.content))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode embedded image of %q", v.name)
	}
	return img, nil
}

func (v *Video) isTGA() bool {
	for _, n := range []string{v.fileName, v.relativeFileName} {
		if strings.ToLower(filepath.Ext(n)) == ".tga" {
			return true
		}
	}
	return false
}
