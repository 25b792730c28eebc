package fbx

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func tokenSummary(tokens []Token) []string {
	r := make([]string, len(tokens))
	for i, t := range tokens {
		switch t.Type {
		case TokenKey:
			r[i] = "KEY:" + t.Text()
		case TokenData:
			r[i] = fmt.Sprintf("DATA:%c", t.Data[0])
		default:
			r[i] = t.Type.String()
		}
	}
	return r
}

func TestTokenizeBinary(t *testing.T) {
	buf := buildFBX(7400,
		node("A", pI(1), pS("x")).with(
			node("B"),
			node("C", pD(0.5)),
		),
		node("D"),
	)
	tokens, err := TokenizeBinary(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"KEY:A", "DATA:I", "COMMA", "DATA:S", "OPEN_BRACKET",
		"KEY:B",
		"KEY:C", "DATA:D",
		"CLOSE_BRACKET",
		"KEY:D",
	}
	if diff := cmp.Diff(want, tokenSummary(tokens)); diff != "" {
		t.Error("unexpected tokens (-want +got):\n", diff)
	}

	// KEY tokens point at the name bytes
	if tokens[0].Offset != binaryHeaderSize+4+13 || string(buf[tokens[0].Offset]) != "A" {
		t.Error("bad key offset", tokens[0].Offset)
	}

	again, err := TokenizeBinary(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tokens, again); diff != "" {
		t.Error("tokenizing twice differs:\n", diff)
	}
}

func TestTokenizeBinaryPropertySizes(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		size int
	}{
		{"Y", pY(-2), 3},
		{"C", pC(1), 2},
		{"I", pI(7), 5},
		{"F", pF(1.5), 5},
		{"D", pD(1.5), 9},
		{"L", pL(1 << 40), 9},
		{"R", pR([]byte{1, 2, 3}), 8},
		{"S", pS("abc"), 8},
		{"d", aD(false, 1, 2), 1 + 12 + 16},
		{"f", aF(1, 2, 3), 1 + 12 + 12},
		{"i", aI(false, 1), 1 + 12 + 4},
		{"l", aL(1, 2), 1 + 12 + 16},
		{"c", pArray('c', 3, []byte{1, 0, 1}, false), 1 + 12 + 3},
		{"b", []byte{'b', 9, 9, 9, 9, 9}, 6},
	}
	for _, c := range cases {
		tokens, err := TokenizeBinary(buildFBX(7400, node("N", c.data)), 0)
		if err != nil {
			t.Errorf("%s: %v", c.name, err)
			continue
		}
		if len(tokens) != 2 || tokens[1].Type != TokenData {
			t.Errorf("%s: unexpected tokens %v", c.name, tokens)
			continue
		}
		if len(tokens[1].Data) != c.size {
			t.Errorf("%s: data size %d, want %d", c.name, len(tokens[1].Data), c.size)
		}
	}
}

func TestTokenizeBinaryCompressedArrayIsNotInflated(t *testing.T) {
	data := aD(true, 1, 2, 3, 4)
	tokens, err := TokenizeBinary(buildFBX(7400, node("N", data, pI(3))), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 4 || len(tokens[1].Data) != len(data) {
		t.Fatal("unexpected tokens", tokens)
	}
	if v, err := ParseTokenAsInt(tokens[3]); err != nil || v != 3 {
		t.Error("property after compressed array", v, err)
	}
}

func TestTokenizeBinaryEmptyBlock(t *testing.T) {
	tokens, err := TokenizeBinary(buildFBX(7400, node("P").with(), node("Q")), 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"KEY:P", "OPEN_BRACKET", "CLOSE_BRACKET", "KEY:Q"}
	if diff := cmp.Diff(want, tokenSummary(tokens)); diff != "" {
		t.Error("unexpected tokens (-want +got):\n", diff)
	}
}

func TestTokenizeBinary64Bit(t *testing.T) {
	nodes := func() []*tnode {
		return []*tnode{
			node("Objects").with(
				node("Model", pL(1), pS("m"), pS("Mesh")).with(node("Version", pI(232))),
			),
		}
	}
	t32, err := TokenizeBinary(buildFBX(7400, nodes()...), 0)
	if err != nil {
		t.Fatal(err)
	}
	t64, err := TokenizeBinary(buildFBX(7500, nodes()...), 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tokenSummary(t32), tokenSummary(t64)); diff != "" {
		t.Error("32/64 bit token streams differ:\n", diff)
	}
	if t64[0].Offset != binaryHeaderSize+4+25 {
		t.Error("64 bit record header not 25 bytes", t64[0].Offset)
	}
}

func TestTokenizeBinaryFooter(t *testing.T) {
	buf := buildFBX(7400, node("A"))
	tokens, err := TokenizeBinary(buf, 0)
	if err != nil || len(tokens) != 1 {
		t.Fatal("footer was decoded", tokens, err)
	}

	// no null record, input ends right after the last scope
	w := &fbxWriter{}
	w.buf.Write(buf[:binaryHeaderSize+4])
	w.node(node("A"))
	w.buf.Write([]byte{1, 2})
	tokens, err = TokenizeBinary(w.buf.Bytes(), 0)
	if err != nil || len(tokens) != 1 {
		t.Error("short trailer", tokens, err)
	}
}

func TestTokenizeBinaryErrors(t *testing.T) {
	full := buildFBX(7400, node("A", pS("hello")).with(node("B", pI(1))))

	cases := map[string][]byte{
		"truncated":       full[:binaryHeaderSize+4+20],
		"unknown type":    buildFBX(7400, node("A", []byte{'Z', 1, 2, 3})),
		"truncated array": buildFBX(7400, node("A", prop('d', le(uint32(2)), le(uint32(0)), le(uint32(100))))),
	}
	for name, buf := range cases {
		_, err := TokenizeBinary(buf, 0)
		var derr *DecodeError
		if !errors.As(err, &derr) {
			t.Errorf("%s: expected DecodeError, got %v", name, err)
		}
	}

	if _, err := TokenizeBinary([]byte("; FBX 7.4.0 project file\n"), 0); err != ErrNotBinary {
		t.Error("expected ErrNotBinary", err)
	}
	if _, err := TokenizeBinary(full[:binaryHeaderSize], 0); err == nil {
		t.Error("missing version accepted")
	}
}

func TestTokenizeBinaryNestedNullRecord(t *testing.T) {
	buf := buildFBX(7400, node("A").with(node("B")))
	// zero the end offset of B, the first record inside A
	bpos := binaryHeaderSize + 4 + 13 + len("A")
	binary.LittleEndian.PutUint32(buf[bpos:], 0)

	tokens, err := TokenizeBinary(buf, 0)
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatal("a null record inside a block should fail", err)
	}
	if derr.Offset != bpos+4 {
		t.Errorf("error offset 0x%x, want 0x%x", derr.Offset, bpos+4)
	}
	if diff := cmp.Diff([]string{"KEY:A", "OPEN_BRACKET"}, tokenSummary(tokens)); diff != "" {
		t.Error("tokens (-want +got):\n", diff)
	}
}

func TestTokenizeBinaryPartialResult(t *testing.T) {
	buf := buildFBX(7400, node("A"), node("B", []byte{'Z'}))
	tokens, err := TokenizeBinary(buf, 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(tokens) < 1 || tokens[0].Text() != "A" {
		t.Error("tokens before the error are lost", tokens)
	}
}

func TestTokenizeBinaryMaxDepth(t *testing.T) {
	deep := node("L4")
	for _, name := range []string{"L3", "L2", "L1"} {
		deep = node(name).with(deep)
	}
	buf := buildFBX(7400, deep)

	if _, err := TokenizeBinary(buf, 4); err != nil {
		t.Error("depth 4 rejected", err)
	}
	_, err := TokenizeBinary(buf, 3)
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Error("depth limit not enforced", err)
	}
}
