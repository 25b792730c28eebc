package fbx

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotBinary is returned when the input does not start with the binary FBX magic.
var ErrNotBinary = errors.New("unknown fbx format")

// DecodeError reports a malformed binary token stream.
type DecodeError struct {
	Offset int
	Msg    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("fbx: binary decode error at offset 0x%x: %s", e.Offset, e.Msg)
}

func decodeErrorf(offset int, format string, a ...interface{}) error {
	return &DecodeError{Offset: offset, Msg: fmt.Sprintf(format, a...)}
}

// DOMError reports missing or malformed structure while building the document.
type DOMError struct {
	Msg     string
	Element *Element
}

func (e *DOMError) Error() string {
	if e.Element == nil {
		return "fbx: " + e.Msg
	}
	return fmt.Sprintf("fbx: %s (element %q at offset 0x%x)", e.Msg, e.Element.Key(), e.Element.KeyToken().Offset)
}

func domErrorf(el *Element, format string, a ...interface{}) error {
	return errors.WithStack(&DOMError{Msg: fmt.Sprintf(format, a...), Element: el})
}
