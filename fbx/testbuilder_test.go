package fbx

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io/ioutil"
	"log"
	"math"
	"testing"
)

// tnode is a scope record used to assemble binary files in tests.
type tnode struct {
	name     string
	props    [][]byte
	children []*tnode
	block    bool
}

func node(name string, props ...[]byte) *tnode {
	return &tnode{name: name, props: props}
}

// with adds a nested block, even when no children are given.
func (n *tnode) with(children ...*tnode) *tnode {
	n.children = append(n.children, children...)
	n.block = true
	return n
}

func le(v interface{}) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, v)
	return b.Bytes()
}

func prop(code byte, payload ...[]byte) []byte {
	b := []byte{code}
	for _, p := range payload {
		b = append(b, p...)
	}
	return b
}

func pY(v int16) []byte   { return prop('Y', le(v)) }
func pC(v byte) []byte    { return []byte{'C', v} }
func pI(v int32) []byte   { return prop('I', le(v)) }
func pF(v float32) []byte { return prop('F', le(v)) }
func pD(v float64) []byte { return prop('D', le(v)) }
func pL(v int64) []byte   { return prop('L', le(v)) }
func pS(s string) []byte  { return prop('S', le(uint32(len(s))), []byte(s)) }
func pR(b []byte) []byte  { return prop('R', le(uint32(len(b))), b) }

func pArray(code byte, count int, raw []byte, compress bool) []byte {
	encoding := uint32(0)
	if compress {
		var z bytes.Buffer
		w := zlib.NewWriter(&z)
		w.Write(raw)
		w.Close()
		raw = z.Bytes()
		encoding = 1
	}
	return prop(code, le(uint32(count)), le(encoding), le(uint32(len(raw))), raw)
}

func aD(compress bool, v ...float64) []byte {
	return pArray('d', len(v), le(v), compress)
}

func aF(v ...float32) []byte {
	return pArray('f', len(v), le(v), false)
}

func aI(compress bool, v ...int32) []byte {
	return pArray('i', len(v), le(v), compress)
}

func aL(v ...int64) []byte {
	return pArray('l', len(v), le(v), false)
}

type fbxWriter struct {
	buf      bytes.Buffer
	is64bits bool
}

func (w *fbxWriter) offset(v uint64) {
	if w.is64bits {
		w.buf.Write(le(v))
	} else {
		w.buf.Write(le(uint32(v)))
	}
}

func (w *fbxWriter) node(n *tnode) {
	start := w.buf.Len()
	w.offset(0) // patched below
	plen := 0
	for _, p := range n.props {
		plen += len(p)
	}
	w.offset(uint64(len(n.props)))
	w.offset(uint64(plen))
	w.buf.WriteByte(byte(len(n.name)))
	w.buf.WriteString(n.name)
	for _, p := range n.props {
		w.buf.Write(p)
	}
	if n.block || len(n.children) > 0 {
		for _, c := range n.children {
			w.node(c)
		}
		w.buf.Write(make([]byte, sentinelLength(w.is64bits)))
	}
	end := uint64(w.buf.Len())
	b := w.buf.Bytes()
	if w.is64bits {
		binary.LittleEndian.PutUint64(b[start:], end)
	} else {
		binary.LittleEndian.PutUint32(b[start:], uint32(end))
	}
}

// buildFBX encodes nodes as a binary file terminated by a null record and some footer bytes.
func buildFBX(version uint32, nodes ...*tnode) []byte {
	w := &fbxWriter{is64bits: version >= binary64BitVersion}
	w.buf.WriteString(binaryMagic)
	w.buf.Write([]byte{0x20, 0x20, 0x00, 0x1a, 0x00})
	w.buf.Write(le(version))
	for _, n := range nodes {
		w.node(n)
	}
	w.buf.Write(make([]byte, sentinelLength(w.is64bits)))
	w.buf.Write([]byte{0xfa, 0xbc, 0xab, 0x09, 0xd0, 0xc8, 0xd4, 0x66, 0xb1, 0x76, 0xfb, 0x83, 0x1c, 0xf7, 0x26, 0x7e})
	return w.buf.Bytes()
}

func headerNode(version int32) *tnode {
	return node("FBXHeaderExtension").with(
		node("FBXHeaderVersion", pI(1003)),
		node("FBXVersion", pI(version)),
		node("CreationTimeStamp").with(
			node("Version", pI(1000)),
			node("Year", pI(2020)),
			node("Month", pI(4)),
			node("Day", pI(13)),
			node("Hour", pI(9)),
			node("Minute", pI(30)),
			node("Second", pI(15)),
			node("Millisecond", pI(250)),
		),
		node("Creator", pS("fbxgraph test")),
	)
}

func objectsNode(objs ...*tnode) *tnode {
	return node("Objects").with(objs...)
}

// object builds an Objects entry with the binary "Name\x00\x01Class" name.
func object(key string, id int64, name, classTag string, children ...*tnode) *tnode {
	return node(key, pL(id), pS(name+"\x00\x01"+key), pS(classTag)).with(children...)
}

func connectionsNode(conns ...*tnode) *tnode {
	return node("Connections").with(conns...)
}

func oo(src, dest int64) *tnode {
	return node("C", pS("OO"), pL(src), pL(dest))
}

func op(src, dest int64, prop string) *tnode {
	return node("C", pS("OP"), pL(src), pL(dest), pS(prop))
}

func props70(ps ...*tnode) *tnode {
	return node("Properties70").with(ps...)
}

func p70(name, typ string, values ...[]byte) *tnode {
	return node("P", append([][]byte{pS(name), pS(typ), pS(""), pS("A")}, values...)...)
}

// testSettings collects log output in the returned buffer.
func testSettings() (*ImportSettings, *bytes.Buffer) {
	var logs bytes.Buffer
	s := DefaultSettings()
	s.Logger = log.New(&logs, "", 0)
	return s, &logs
}

func quietSettings() *ImportSettings {
	s := DefaultSettings()
	s.Logger = log.New(ioutil.Discard, "", 0)
	return s
}

func loadDocument(t *testing.T, settings *ImportSettings, nodes ...*tnode) *Document {
	t.Helper()
	if settings == nil {
		settings = quietSettings()
	}
	doc, err := ParseBytes(buildFBX(7400, nodes...), settings)
	if err != nil {
		t.Fatalf("ParseBytes: %+v", err)
	}
	return doc
}

func getObject(t *testing.T, doc *Document, id uint64) Object {
	t.Helper()
	lazy := doc.GetObject(id)
	if lazy == nil {
		t.Fatalf("object %d not found", id)
	}
	ob, err := lazy.Get(true)
	if err != nil {
		t.Fatalf("object %d: %+v", id, err)
	}
	return ob
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
