package fbx

import "fmt"

type TokenType int

const (
	TokenKey TokenType = iota
	TokenData
	TokenComma
	TokenOpenBracket
	TokenCloseBracket
)

func (t TokenType) String() string {
	switch t {
	case TokenKey:
		return "KEY"
	case TokenData:
		return "DATA"
	case TokenComma:
		return "COMMA"
	case TokenOpenBracket:
		return "OPEN_BRACKET"
	case TokenCloseBracket:
		return "CLOSE_BRACKET"
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a view into the input buffer. Data is never copied, so the buffer
// must outlive every token and everything built from them.
// For DATA tokens Data starts with the one-byte property type code.
type Token struct {
	Type   TokenType
	Data   []byte
	Offset int
}

func (t Token) Text() string {
	return string(t.Data)
}

func (t Token) String() string {
	if t.Type == TokenData && len(t.Data) > 0 {
		return fmt.Sprintf("%v[%c %d bytes]@0x%x", t.Type, t.Data[0], len(t.Data)-1, t.Offset)
	}
	return fmt.Sprintf("%v(%q)@0x%x", t.Type, t.Data, t.Offset)
}
