package fbx

import "fmt"

// Object is a typed scene object materialized from an element of the Objects section.
type Object interface {
	ID() uint64
	Name() string
	Element() *Element
}

// Obj holds what every typed object has in common.
type Obj struct {
	id      uint64
	name    string
	element *Element
}

func newObj(id uint64, element *Element, name string) Obj {
	return Obj{id: id, name: name, element: element}
}

func (o *Obj) ID() uint64 {
	return o.id
}

// Name is in "Class::Name" form.
func (o *Obj) Name() string {
	return o.name
}

func (o *Obj) Element() *Element {
	return o.element
}

type ObjectKind int

const (
	KindNone ObjectKind = iota
	KindMeshGeometry
	KindShapeGeometry
	KindLineGeometry
	KindNull
	KindLimbNode
	KindCluster
	KindSkin
	KindBlendShape
	KindBlendShapeChannel
	KindModel
	KindMaterial
	KindTexture
	KindLayeredTexture
	KindVideo
	KindAnimationStack
	KindAnimationLayer
	KindAnimationCurve
	KindAnimationCurveNode
)

var kindNames = [...]string{
	KindNone:               "None",
	KindMeshGeometry:       "MeshGeometry",
	KindShapeGeometry:      "ShapeGeometry",
	KindLineGeometry:       "LineGeometry",
	KindNull:               "Null",
	KindLimbNode:           "LimbNode",
	KindCluster:            "Cluster",
	KindSkin:               "Skin",
	KindBlendShape:         "BlendShape",
	KindBlendShapeChannel:  "BlendShapeChannel",
	KindModel:              "Model",
	KindMaterial:           "Material",
	KindTexture:            "Texture",
	KindLayeredTexture:     "LayeredTexture",
	KindVideo:              "Video",
	KindAnimationStack:     "AnimationStack",
	KindAnimationLayer:     "AnimationLayer",
	KindAnimationCurve:     "AnimationCurve",
	KindAnimationCurveNode: "AnimationCurveNode",
}

func (k ObjectKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ObjectKind(%d)", int(k))
}

// objectKindOf maps an element key and class tag to the object kind to build.
// KindNone means the combination is not modeled.
func objectKindOf(key, classTag string) ObjectKind {
	switch key {
	case "Geometry":
		switch classTag {
		case "Mesh":
			return KindMeshGeometry
		case "Shape":
			return KindShapeGeometry
		case "Line":
			return KindLineGeometry
		}
	case "NodeAttribute":
		switch classTag {
		case "Null":
			return KindNull
		case "LimbNode":
			return KindLimbNode
		}
	case "Deformer":
		switch classTag {
		case "Cluster":
			return KindCluster
		case "Skin":
			return KindSkin
		case "BlendShape":
			return KindBlendShape
		case "BlendShapeChannel":
			return KindBlendShapeChannel
		}
	case "Model":
		// FK and IK effectors are not supported
		if classTag != "IKEffector" && classTag != "FKEffector" {
			return KindModel
		}
	case "Material":
		return KindMaterial
	case "Texture":
		return KindTexture
	case "LayeredTexture":
		return KindLayeredTexture
	case "Video":
		return KindVideo
	case "AnimationStack":
		return KindAnimationStack
	case "AnimationLayer":
		return KindAnimationLayer
	case "AnimationCurve":
		return KindAnimationCurve
	case "AnimationCurveNode":
		return KindAnimationCurveNode
	}
	return KindNone
}

// newObject runs the constructor for kind. It returns a nil Object for KindNone.
func newObject(kind ObjectKind, id uint64, el *Element, doc *Document, name, classTag string) (Object, error) {
	var obj Object
	var err error
	switch kind {
	case KindMeshGeometry:
		obj, err = newMeshGeometry(id, el, doc, name)
	case KindShapeGeometry:
		obj, err = newShapeGeometry(id, el, doc, name)
	case KindLineGeometry:
		obj, err = newLineGeometry(id, el, doc, name)
	case KindNull:
		obj, err = newNull(id, el, doc, name, classTag)
	case KindLimbNode:
		obj, err = newLimbNode(id, el, doc, name, classTag)
	case KindCluster:
		obj, err = newCluster(id, el, doc, name, classTag)
	case KindSkin:
		obj, err = newSkin(id, el, doc, name, classTag)
	case KindBlendShape:
		obj, err = newBlendShape(id, el, doc, name, classTag)
	case KindBlendShapeChannel:
		obj, err = newBlendShapeChannel(id, el, doc, name, classTag)
	case KindModel:
		obj, err = newModel(id, el, doc, name, classTag)
	case KindMaterial:
		obj, err = newMaterial(id, el, doc, name)
	case KindTexture:
		obj, err = newTexture(id, el, doc, name)
	case KindLayeredTexture:
		obj, err = newLayeredTexture(id, el, doc, name)
	case KindVideo:
		obj, err = newVideo(id, el, doc, name)
	case KindAnimationStack:
		obj, err = newAnimationStack(id, el, doc, name)
	case KindAnimationLayer:
		obj, err = newAnimationLayer(id, el, doc, name)
	case KindAnimationCurve:
		obj, err = newAnimationCurve(id, el, doc, name)
	case KindAnimationCurveNode:
		obj, err = newAnimationCurveNode(id, el, doc, name)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// KindOf reports the kind of a constructed object.
func KindOf(o Object) ObjectKind {
	switch o.(type) {
	case *MeshGeometry:
		return KindMeshGeometry
	case *ShapeGeometry:
		return KindShapeGeometry
	case *LineGeometry:
		return KindLineGeometry
	case *Null:
		return KindNull
	case *LimbNode:
		return KindLimbNode
	case *Cluster:
		return KindCluster
	case *Skin:
		return KindSkin
	case *BlendShape:
		return KindBlendShape
	case *BlendShapeChannel:
		return KindBlendShapeChannel
	case *Model:
		return KindModel
	case *Material:
		return KindMaterial
	case *Texture:
		return KindTexture
	case *LayeredTexture:
		return KindLayeredTexture
	case *Video:
		return KindVideo
	case *AnimationStack:
		return KindAnimationStack
	case *AnimationLayer:
		return KindAnimationLayer
	case *AnimationCurve:
		return KindAnimationCurve
	case *AnimationCurveNode:
		return KindAnimationCurveNode
	}
	return KindNone
}

// scopeOf returns the element's nested scope, or an empty one.
func scopeOf(el *Element) *Scope {
	if sc := el.Compound(); sc != nil {
		return sc
	}
	return newScope()
}

// resolveSource returns the source object of an incoming link, or nil (with a
// warning) when it cannot be resolved. what names the link for the warning.
func resolveSource(doc *Document, c *Connection, objectProperty bool, what string) (Object, error) {
	if objectProperty && c.PropertyName() == "" {
		doc.warnf("expected incoming %s link to be an object-property connection, ignoring", what)
		return nil, nil
	}
	if !objectProperty && c.PropertyName() != "" {
		doc.warnf("expected incoming %s link to be an object-object connection, ignoring", what)
		return nil, nil
	}
	ob, err := c.SourceObject()
	if err != nil {
		return nil, err
	}
	if ob == nil {
		doc.warnf("failed to read source object %d for incoming %s link, ignoring", c.SourceID(), what)
	}
	return ob, nil
}
