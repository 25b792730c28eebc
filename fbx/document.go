package fbx

import (
	"sort"

	"golang.org/x/text/encoding"
)

const (
	lowerSupportedVersion = 7100
	upperSupportedVersion = 7400
)

// Document is the object graph of one FBX file. Objects are materialized on
// demand through their LazyObject; connections refer to objects by id only.
type Document struct {
	settings *ImportSettings
	parser   *Parser
	names    *encoding.Decoder

	fbxVersion        int
	creator           string
	creationTimeStamp [7]int
	creationTime      string
	fileID            []byte

	objects   map[uint64]*LazyObject
	templates map[string]*PropertyTable
	globals   *FileGlobalSettings

	srcConnections  map[uint64][]*Connection
	destConnections map[uint64][]*Connection

	animationStacks         []uint64
	animationStacksResolved []*AnimationStack
	animationStacksDone     bool
}

// NewDocument reads header, templates, global settings, objects and
// connections from the parsed element tree, in that order.
func NewDocument(p *Parser, settings *ImportSettings) (*Document, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	names, err := settings.nameDecoder()
	if err != nil {
		return nil, err
	}
	doc := &Document{
		settings:        settings,
		parser:          p,
		names:           names,
		objects:         map[uint64]*LazyObject{},
		templates:       map[string]*PropertyTable{},
		srcConnections:  map[uint64][]*Connection{},
		destConnections: map[uint64][]*Connection{},
	}

	if err := doc.readHeader(); err != nil {
		return nil, err
	}
	if err := doc.readPropertyTemplates(); err != nil {
		return nil, err
	}
	doc.readGlobalSettings()

	// connections are validated against the object table, so objects come first
	if err := doc.readObjects(); err != nil {
		return nil, err
	}
	if err := doc.readConnections(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) warnf(format string, a ...interface{}) {
	d.settings.logger().Printf("fbx: warning: "+format, a...)
}

func (d *Document) readHeader() error {
	sc := d.parser.RootScope()
	ehead, err := GetRequiredElement(sc, "FBXHeaderExtension", nil)
	if err != nil {
		return err
	}
	shead, err := GetRequiredScope(ehead)
	if err != nil {
		return err
	}

	ever, err := GetRequiredElement(shead, "FBXVersion", ehead)
	if err != nil {
		return err
	}
	if d.fbxVersion, err = requiredInt(ever, 0); err != nil {
		return err
	}
	if d.fbxVersion < lowerSupportedVersion || d.fbxVersion > upperSupportedVersion {
		// newer files share the 7.x layout, only older ones are refused
		if d.settings.StrictMode && d.fbxVersion < lowerSupportedVersion {
			return domErrorf(ever, "unsupported format version %d, supported are %d to %d",
				d.fbxVersion, lowerSupportedVersion, upperSupportedVersion)
		}
		d.warnf("format version %d is not in the tested range %d to %d, trying to read it nevertheless",
			d.fbxVersion, lowerSupportedVersion, upperSupportedVersion)
	}

	if ecreator := shead.Get("Creator"); ecreator != nil {
		if d.creator, err = requiredString(ecreator, 0); err != nil {
			return err
		}
	}

	if ets := shead.Get("CreationTimeStamp"); ets != nil && ets.Compound() != nil {
		sts := ets.Compound()
		for i, field := range []string{"Year", "Month", "Day", "Hour", "Minute", "Second", "Millisecond"} {
			el, err := GetRequiredElement(sts, field, ets)
			if err != nil {
				return err
			}
			if d.creationTimeStamp[i], err = requiredInt(el, 0); err != nil {
				return err
			}
		}
	}

	// top level extras written by every exporter, not required
	if el := sc.Get("FileId"); el != nil && len(el.Tokens()) > 0 {
		d.fileID, _ = ParseTokenAsBytes(el.Tokens()[0])
	}
	if el := sc.Get("CreationTime"); el != nil && len(el.Tokens()) > 0 {
		d.creationTime, _ = ParseTokenAsString(el.Tokens()[0])
	}
	return nil
}

func (d *Document) readPropertyTemplates() error {
	edefs := d.parser.RootScope().Get("Definitions")
	if edefs == nil || edefs.Compound() == nil {
		return nil
	}

	for _, el := range edefs.Compound().GetCollection("ObjectType") {
		sc := el.Compound()
		if sc == nil || len(el.Tokens()) == 0 {
			continue
		}
		oname, err := ParseTokenAsString(el.Tokens()[0])
		if err != nil {
			return domErrorf(el, "invalid object type name: %v", err)
		}

		for _, tmpl := range sc.GetCollection("PropertyTemplate") {
			if tmpl.Compound() == nil || len(tmpl.Tokens()) == 0 {
				continue
			}
			pname, err := ParseTokenAsString(tmpl.Tokens()[0])
			if err != nil {
				return domErrorf(tmpl, "invalid property template name: %v", err)
			}
			if p70 := tmpl.Compound().Get("Properties70"); p70 != nil {
				d.templates[oname+"."+pname] = NewPropertyTable(p70, nil)
			}
		}
	}
	return nil
}

func (d *Document) readGlobalSettings() {
	ehead := d.parser.RootScope().Get("GlobalSettings")
	if ehead == nil || ehead.Compound() == nil {
		d.globals = &FileGlobalSettings{props: NewPropertyTable(nil, nil)}
		return
	}
	d.globals = &FileGlobalSettings{props: d.propertyTable("", ehead.Compound())}
}

func (d *Document) readObjects() error {
	eobjects, err := GetRequiredElement(d.parser.RootScope(), "Objects", nil)
	if err != nil {
		return err
	}

	// the root node (id 0) is only implied by the file
	d.objects[0] = newLazyObject(0, eobjects, d)

	for _, el := range eobjects.Compound().Elements() {
		if len(el.Tokens()) == 0 {
			return domErrorf(el, "expected ID after object key")
		}
		id, err := ParseTokenAsID(el.Tokens()[0])
		if err != nil {
			return domErrorf(el, "failed to parse object ID: %v", err)
		}
		if id == 0 {
			d.warnf("ignoring %s object with reserved ID 0", el.Key())
			continue
		}
		// duplicates: last one wins
		d.objects[id] = newLazyObject(id, el, d)

		if el.Key() == "AnimationStack" && !containsID(d.animationStacks, id) {
			d.animationStacks = append(d.animationStacks, id)
		}
	}
	return nil
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (d *Document) readConnections() error {
	econns := d.parser.RootScope().Get("Connections")
	if econns == nil {
		return nil
	}

	var insertionOrder uint64
	for _, el := range econns.Compound().GetCollection("C") {
		typ, err := requiredString(el, 0)
		if err != nil {
			return err
		}
		// property-property links ("PP", id1, "prop1", id2, "prop2") are not supported
		if typ == "PP" {
			continue
		}

		src, err := requiredID(el, 1)
		if err != nil {
			return err
		}
		dest, err := requiredID(el, 2)
		if err != nil {
			return err
		}
		prop := ""
		if typ == "OP" {
			if prop, err = requiredString(el, 3); err != nil {
				return err
			}
		}

		if d.objects[src] == nil || d.objects[dest] == nil {
			if d.settings.Verbose {
				d.warnf("dropping %s connection %d -> %d with unknown endpoint", typ, src, dest)
			}
			continue
		}

		c := &Connection{insertionOrder: insertionOrder, src: src, dest: dest, prop: prop, doc: d}
		insertionOrder++
		d.srcConnections[src] = append(d.srcConnections[src], c)
		d.destConnections[dest] = append(d.destConnections[dest], c)
	}
	return nil
}

// propertyTable reads the Properties70 block of sc, falling back to the named template.
func (d *Document) propertyTable(templateName string, sc *Scope) *PropertyTable {
	var tmpl *PropertyTable
	if templateName != "" {
		tmpl = d.templates[templateName]
	}
	p70 := sc.Get("Properties70")
	if p70 == nil {
		if tmpl != nil {
			return tmpl
		}
		return NewPropertyTable(nil, nil)
	}
	return NewPropertyTable(p70, tmpl)
}

func (d *Document) Settings() *ImportSettings {
	return d.settings
}

func (d *Document) Parser() *Parser {
	return d.parser
}

func (d *Document) FBXVersion() int {
	return d.fbxVersion
}

func (d *Document) Creator() string {
	return d.creator
}

// CreationTimeStamp returns year, month, day, hour, minute, second and millisecond.
func (d *Document) CreationTimeStamp() [7]int {
	return d.creationTimeStamp
}

func (d *Document) CreationTime() string {
	return d.creationTime
}

func (d *Document) FileID() []byte {
	return d.fileID
}

func (d *Document) GlobalSettings() *FileGlobalSettings {
	return d.globals
}

func (d *Document) Templates() map[string]*PropertyTable {
	return d.templates
}

// Objects returns the object table, including the implicit root node with id 0.
func (d *Document) Objects() map[uint64]*LazyObject {
	return d.objects
}

// ObjectIDs returns all object ids in ascending order.
func (d *Document) ObjectIDs() []uint64 {
	ids := make([]uint64, 0, len(d.objects))
	for id := range d.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GetObject returns nil if id is unknown.
func (d *Document) GetObject(id uint64) *LazyObject {
	return d.objects[id]
}

func (d *Document) ConnectionsBySource() map[uint64][]*Connection {
	return d.srcConnections
}

func (d *Document) ConnectionsByDestination() map[uint64][]*Connection {
	return d.destConnections
}

// GetConnectionsBySourceSequenced returns the connections starting at src in
// insertion order. If classNames are given, only connections whose destination
// element key equals one of them are returned.
func (d *Document) GetConnectionsBySourceSequenced(src uint64, classNames ...string) []*Connection {
	return d.connectionsSequenced(d.srcConnections[src], true, classNames)
}

// GetConnectionsByDestinationSequenced is the counterpart of
// GetConnectionsBySourceSequenced, filtering on the source element key.
func (d *Document) GetConnectionsByDestinationSequenced(dest uint64, classNames ...string) []*Connection {
	return d.connectionsSequenced(d.destConnections[dest], false, classNames)
}

func (d *Document) connectionsSequenced(conns []*Connection, isSrc bool, classNames []string) []*Connection {
	r := make([]*Connection, 0, len(conns))
	for _, c := range conns {
		if len(classNames) > 0 {
			other := c.LazySourceObject()
			if isSrc {
				other = c.LazyDestinationObject()
			}
			if !matchesClass(other.Element().Key(), classNames) {
				continue
			}
		}
		r = append(r, c)
	}
	sort.Slice(r, func(i, j int) bool { return r[i].Compare(r[j]) })
	return r
}

func matchesClass(key string, classNames []string) bool {
	for _, n := range classNames {
		if key == n {
			return true
		}
	}
	return false
}

// AnimationStacks resolves every AnimationStack object in file order, each ID
// once at the position of its first occurrence. The result is cached once it
// has been computed without error.
func (d *Document) AnimationStacks() ([]*AnimationStack, error) {
	if d.animationStacksDone {
		return d.animationStacksResolved, nil
	}
	var stacks []*AnimationStack
	for _, id := range d.animationStacks {
		lazy := d.GetObject(id)
		if lazy == nil {
			continue
		}
		ob, err := lazy.Get(false)
		if err != nil {
			return nil, err
		}
		if stack, ok := ob.(*AnimationStack); ok {
			stacks = append(stacks, stack)
		}
	}
	d.animationStacksResolved = stacks
	d.animationStacksDone = true
	return stacks, nil
}

func requiredString(el *Element, index int) (string, error) {
	t, err := GetRequiredToken(el, index)
	if err != nil {
		return "", err
	}
	s, err := ParseTokenAsString(t)
	if err != nil {
		return "", domErrorf(el, "%v", err)
	}
	return s, nil
}

func requiredInt(el *Element, index int) (int, error) {
	t, err := GetRequiredToken(el, index)
	if err != nil {
		return 0, err
	}
	v, err := ParseTokenAsInt(t)
	if err != nil {
		return 0, domErrorf(el, "%v", err)
	}
	return v, nil
}

func requiredFloat(el *Element, index int) (float64, error) {
	t, err := GetRequiredToken(el, index)
	if err != nil {
		return 0, err
	}
	v, err := ParseTokenAsFloat(t)
	if err != nil {
		return 0, domErrorf(el, "%v", err)
	}
	return v, nil
}

func requiredID(el *Element, index int) (uint64, error) {
	t, err := GetRequiredToken(el, index)
	if err != nil {
		return 0, err
	}
	v, err := ParseTokenAsID(t)
	if err != nil {
		return 0, domErrorf(el, "%v", err)
	}
	return v, nil
}

// FileGlobalSettings wraps the GlobalSettings property table.
type FileGlobalSettings struct {
	props *PropertyTable
}

func (g *FileGlobalSettings) Props() *PropertyTable {
	return g.props
}

func (g *FileGlobalSettings) UpAxis() int              { return g.props.Int("UpAxis", 1) }
func (g *FileGlobalSettings) UpAxisSign() int          { return g.props.Int("UpAxisSign", 1) }
func (g *FileGlobalSettings) FrontAxis() int           { return g.props.Int("FrontAxis", 2) }
func (g *FileGlobalSettings) FrontAxisSign() int       { return g.props.Int("FrontAxisSign", 1) }
func (g *FileGlobalSettings) CoordAxis() int           { return g.props.Int("CoordAxis", 0) }
func (g *FileGlobalSettings) CoordAxisSign() int       { return g.props.Int("CoordAxisSign", 1) }
func (g *FileGlobalSettings) OriginalUpAxis() int      { return g.props.Int("OriginalUpAxis", 0) }
func (g *FileGlobalSettings) UnitScaleFactor() float64 { return g.props.Float("UnitScaleFactor", 1) }
func (g *FileGlobalSettings) TimeMode() int            { return g.props.Int("TimeMode", 0) }
func (g *FileGlobalSettings) TimeSpanStart() int64     { return g.props.Int64("TimeSpanStart", 0) }
func (g *FileGlobalSettings) TimeSpanStop() int64      { return g.props.Int64("TimeSpanStop", 0) }
func (g *FileGlobalSettings) CustomFrameRate() float64 { return g.props.Float("CustomFrameRate", -1) }
func (g *FileGlobalSettings) DefaultCamera() string    { return g.props.String("DefaultCamera", "") }
