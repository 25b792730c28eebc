package fbx

// Connection is an edge from a source object to a destination object, or to a
// named property of the destination for "OP" links. It is immutable.
type Connection struct {
	insertionOrder uint64
	src            uint64
	dest           uint64
	prop           string
	doc            *Document
}

func (c *Connection) InsertionOrder() uint64 {
	return c.insertionOrder
}

func (c *Connection) SourceID() uint64 {
	return c.src
}

func (c *Connection) DestinationID() uint64 {
	return c.dest
}

// PropertyName is empty for object-object links.
func (c *Connection) PropertyName() string {
	return c.prop
}

func (c *Connection) LazySourceObject() *LazyObject {
	return c.doc.GetObject(c.src)
}

func (c *Connection) LazyDestinationObject() *LazyObject {
	return c.doc.GetObject(c.dest)
}

func (c *Connection) SourceObject() (Object, error) {
	return c.LazySourceObject().Get(false)
}

func (c *Connection) DestinationObject() (Object, error) {
	return c.LazyDestinationObject().Get(false)
}

// Compare reports whether c was read before other.
func (c *Connection) Compare(other *Connection) bool {
	return c.insertionOrder < other.insertionOrder
}
