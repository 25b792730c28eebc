package fbx

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
)

// Load reads a binary FBX file. settings may be nil.
func Load(path string, settings *ImportSettings) (*Document, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Parse(r, settings)
}

func Parse(r io.Reader, settings *ImportSettings) (*Document, error) {
	buf, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read fbx")
	}
	return ParseBytes(buf, settings)
}

// ParseBytes builds a Document from an in-memory file. Tokens, raw properties
// and embedded media alias buf, which must not be modified afterwards.
func ParseBytes(buf []byte, settings *ImportSettings) (*Document, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	tokens, err := TokenizeBinary(buf, settings.maxDepth())
	if err != nil {
		return nil, err
	}
	p, err := NewParser(tokens)
	if err != nil {
		return nil, err
	}
	return NewDocument(p, settings)
}
