package fbx

import (
	"bytes"

	"golang.org/x/text/transform"
)

type lazyFlags uint8

const (
	flagBeingConstructed lazyFlags = 1 << iota
	flagFailedToConstruct
	flagConstructed
)

// LazyObject defers construction of the typed object behind one entry of the
// Objects section until it is first requested.
type LazyObject struct {
	doc     *Document
	element *Element
	id      uint64
	flags   lazyFlags
	object  Object
}

func newLazyObject(id uint64, element *Element, doc *Document) *LazyObject {
	return &LazyObject{doc: doc, element: element, id: id}
}

func (l *LazyObject) ID() uint64 {
	return l.id
}

func (l *LazyObject) Element() *Element {
	return l.element
}

func (l *LazyObject) IsBeingConstructed() bool {
	return l.flags&flagBeingConstructed != 0
}

func (l *LazyObject) FailedToConstruct() bool {
	return l.flags&flagFailedToConstruct != 0
}

// Get constructs the object on first use and returns the same instance afterwards.
//
// A nil object with a nil error means the object is not available: its type is
// not modeled, it failed to construct, or it is currently being constructed
// further up the call stack (a connection cycle). Construction errors are
// returned only if dieOnError or the document's strict mode is set; otherwise
// they are logged and the object stays unresolved.
func (l *LazyObject) Get(dieOnError bool) (Object, error) {
	if l.flags&(flagBeingConstructed|flagFailedToConstruct) != 0 {
		return nil, nil
	}
	if l.flags&flagConstructed != 0 {
		return l.object, nil
	}

	l.flags |= flagBeingConstructed
	defer func() {
		if r := recover(); r != nil {
			l.flags &^= flagBeingConstructed
			l.flags |= flagFailedToConstruct
			panic(r)
		}
	}()

	obj, err := l.construct()
	l.flags &^= flagBeingConstructed
	if err != nil {
		l.flags |= flagFailedToConstruct
		if dieOnError || l.doc.settings.StrictMode {
			return nil, err
		}
		l.doc.warnf("failed to construct object %d: %v", l.id, err)
		return nil, nil
	}

	l.object = obj
	l.flags |= flagConstructed
	return obj, nil
}

func (l *LazyObject) construct() (Object, error) {
	tokens := l.element.Tokens()
	if l.id == 0 && l.element.Key() == "Objects" {
		// the implied root node has no element of its own
		return nil, nil
	}
	if len(tokens) < 3 {
		return nil, domErrorf(l.element, "expected name and class tag after object ID")
	}

	rawName, err := ParseTokenAsString(tokens[1])
	if err != nil {
		return nil, domErrorf(l.element, "invalid object name: %v", err)
	}
	name := demangleBinaryName(rawName)
	if l.doc.names != nil {
		if name, _, err = transform.String(l.doc.names, name); err != nil {
			return nil, domErrorf(l.element, "cannot decode object name: %v", err)
		}
	}
	classTag, err := ParseTokenAsString(tokens[2])
	if err != nil {
		return nil, domErrorf(l.element, "invalid class tag: %v", err)
	}

	return newObject(objectKindOf(l.element.Key(), classTag), l.id, l.element, l.doc, name, classTag)
}

// demangleBinaryName turns the binary "Name\x00\x01Class" form into "Class::Name".
func demangleBinaryName(name string) string {
	i := bytes.Index([]byte(name), []byte{0x00, 0x01})
	if i < 0 {
		return name
	}
	return name[i+2:] + "::" + name[:i]
}
