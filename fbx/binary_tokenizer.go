package fbx

import (
	"bytes"
	"encoding/binary"
)

const (
	binaryMagic      = "Kaydara FBX Binary"
	binaryHeaderSize = 18 + 5
	// files from this version on use 8 byte offsets and counts
	binary64BitVersion = 7500
)

func sentinelLength(is64bits bool) int {
	if is64bits {
		return 8*3 + 1
	}
	return 4*3 + 1
}

type binaryTokenizer struct {
	input    []byte
	cursor   int
	is64bits bool
	maxDepth int
	tokens   []Token
	err      error
}

func (p *binaryTokenizer) fail(offset int, format string, a ...interface{}) {
	if p.err == nil {
		p.err = decodeErrorf(offset, format, a...)
	}
}

func (p *binaryTokenizer) remaining() int {
	return len(p.input) - p.cursor
}

func (p *binaryTokenizer) skip(n uint64) {
	if p.err != nil {
		return
	}
	if n > uint64(p.remaining()) {
		p.fail(p.cursor, "unexpected end of input: need %d bytes, %d left", n, p.remaining())
		return
	}
	p.cursor += int(n)
}

func (p *binaryTokenizer) readByte() uint8 {
	if p.err != nil {
		return 0
	}
	if p.remaining() < 1 {
		p.fail(p.cursor, "unexpected end of input reading byte")
		return 0
	}
	v := p.input[p.cursor]
	p.cursor++
	return v
}

func (p *binaryTokenizer) readWord() uint32 {
	if p.err != nil {
		return 0
	}
	if p.remaining() < 4 {
		p.fail(p.cursor, "unexpected end of input reading word")
		return 0
	}
	v := binary.LittleEndian.Uint32(p.input[p.cursor:])
	p.cursor += 4
	return v
}

func (p *binaryTokenizer) readDoubleWord() uint64 {
	if p.err != nil {
		return 0
	}
	if p.remaining() < 8 {
		p.fail(p.cursor, "unexpected end of input reading double word")
		return 0
	}
	v := binary.LittleEndian.Uint64(p.input[p.cursor:])
	p.cursor += 8
	return v
}

// readOffset reads an offset or count field, whose width depends on the file version.
func (p *binaryTokenizer) readOffset() uint64 {
	if p.is64bits {
		return p.readDoubleWord()
	}
	return uint64(p.readWord())
}

func (p *binaryTokenizer) readString(longLength bool) []byte {
	var length uint64
	if longLength {
		length = uint64(p.readWord())
	} else {
		length = uint64(p.readByte())
	}
	begin := p.cursor
	p.skip(length)
	if p.err != nil {
		return nil
	}
	return p.input[begin:p.cursor]
}

// readData skips over one property. The type code stays part of the token.
// propsEnd is the end of the enclosing property list.
func (p *binaryTokenizer) readData(propsEnd int) {
	typeOffset := p.cursor
	typ := p.readByte()
	if p.err != nil {
		return
	}

	switch typ {
	case 'Y':
		p.skip(2)
	case 'C':
		p.skip(1)
	case 'I', 'F':
		p.skip(4)
	case 'D', 'L':
		p.skip(8)
	case 'R':
		p.skip(uint64(p.readWord()))
	case 'b':
		// unknown layout, take everything up to the end of the property list
		if propsEnd < p.cursor {
			p.fail(typeOffset, "property list ends before 'b' property")
			return
		}
		p.skip(uint64(propsEnd - p.cursor))
	case 'f', 'd', 'l', 'i', 'c':
		p.readWord() // element count
		p.readWord() // encoding
		p.skip(uint64(p.readWord()))
	case 'S':
		p.readString(true)
	default:
		p.fail(typeOffset, "unknown property type code 0x%02x", typ)
	}
}

func (p *binaryTokenizer) emit(typ TokenType, begin, end int) {
	p.tokens = append(p.tokens, Token{Type: typ, Data: p.input[begin:end:end], Offset: begin})
}

// readScope decodes one scope record and its nested scopes. It returns false
// when there is nothing more to read at this level (a zero end offset) or on error.
func (p *binaryTokenizer) readScope(depth int, limit uint64) bool {
	if depth > p.maxDepth {
		p.fail(p.cursor, "scope nesting exceeds %d levels", p.maxDepth)
		return false
	}

	start := p.cursor
	endOffset := p.readOffset()
	if p.err != nil || endOffset == 0 {
		return false
	}
	propCount := p.readOffset()
	propLength := p.readOffset()
	nameOffset := p.cursor + 1
	name := p.readString(false)
	if p.err != nil {
		return false
	}
	if endOffset > limit || endOffset < uint64(p.cursor) {
		p.fail(start, "scope %q end offset 0x%x out of range", name, endOffset)
		return false
	}
	p.emit(TokenKey, nameOffset, nameOffset+len(name))

	propsBegin := p.cursor
	if propLength > endOffset-uint64(propsBegin) {
		p.fail(start, "scope %q property list length %d exceeds scope", name, propLength)
		return false
	}
	propsEnd := propsBegin + int(propLength)

	for i := uint64(0); i < propCount; i++ {
		begin := p.cursor
		p.readData(propsEnd)
		if p.err != nil {
			return false
		}
		p.emit(TokenData, begin, p.cursor)
		if i != propCount-1 {
			p.emit(TokenComma, p.cursor, p.cursor)
		}
	}
	if uint64(p.cursor) > endOffset {
		p.fail(start, "scope %q properties overrun end offset 0x%x", name, endOffset)
		return false
	}

	// A sentinel block distinguishes "P: {}" from a plain "P:".
	sentinel := uint64(sentinelLength(p.is64bits))
	if uint64(p.cursor) < endOffset {
		if endOffset-uint64(p.cursor) < sentinel {
			p.fail(p.cursor, "scope %q has no room for its sentinel block", name)
			return false
		}
		childEnd := endOffset - sentinel

		p.emit(TokenOpenBracket, p.cursor, p.cursor)
		for uint64(p.cursor) < childEnd {
			if !p.readScope(depth+1, childEnd) {
				// A null record only ends the top level. Inside a block it
				// leaves unread bytes before the sentinel.
				if p.err == nil {
					p.fail(p.cursor, "unexpected null record inside scope %q", name)
				}
				return false
			}
		}
		p.emit(TokenCloseBracket, p.cursor, p.cursor)
		p.skip(sentinel)
	}
	return p.err == nil
}

// TokenizeBinary splits a binary FBX buffer into a flat token list without
// building a tree. On a decode error the tokens read so far are returned
// together with the error. maxDepth <= 0 selects DefaultMaxScopeDepth.
func TokenizeBinary(input []byte, maxDepth int) ([]Token, error) {
	if len(input) < len(binaryMagic) || !bytes.Equal(input[:len(binaryMagic)], []byte(binaryMagic)) {
		return nil, ErrNotBinary
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxScopeDepth
	}
	p := &binaryTokenizer{input: input, cursor: binaryHeaderSize, maxDepth: maxDepth}
	if p.cursor > len(input) {
		return nil, decodeErrorf(len(input), "truncated file header")
	}
	version := p.readWord()
	if p.err != nil {
		return nil, p.err
	}
	p.is64bits = version >= binary64BitVersion

	wordSize := 4
	if p.is64bits {
		wordSize = 8
	}
	for p.cursor < len(input) {
		// the footer starts with a null record, anything shorter than
		// an offset field cannot be another scope either
		if p.remaining() < wordSize {
			break
		}
		if !p.readScope(1, uint64(len(input))) {
			break
		}
	}
	return p.tokens, p.err
}
