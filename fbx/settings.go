package fbx

import (
	"io/ioutil"
	"log"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v2"
)

// DefaultMaxScopeDepth bounds the nesting of binary scopes. Real files stay below 16.
const DefaultMaxScopeDepth = 128

type ImportSettings struct {
	// StrictMode turns every object construction failure into a load error.
	// It also refuses files older than FBX 7.1.
	StrictMode bool `yaml:"strictMode"`

	MaxScopeDepth int `yaml:"maxScopeDepth"`

	// NameEncoding is an IANA/WHATWG charset name for object names written by
	// legacy exporters (e.g. "shift_jis"). Empty means UTF-8.
	NameEncoding string `yaml:"nameEncoding"`

	// Verbose also logs tolerated conditions such as dangling connections.
	Verbose bool `yaml:"verbose"`

	Logger *log.Logger `yaml:"-"`
}

func DefaultSettings() *ImportSettings {
	return &ImportSettings{
		MaxScopeDepth: DefaultMaxScopeDepth,
	}
}

func LoadSettings(path string) (*ImportSettings, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read settings %q", path)
	}
	return ParseSettings(b)
}

// ParseSettings decodes YAML on top of DefaultSettings, so omitted keys keep their defaults.
func ParseSettings(b []byte) (*ImportSettings, error) {
	s := DefaultSettings()
	if err := yaml.UnmarshalStrict(b, s); err != nil {
		return nil, errors.Wrap(err, "invalid import settings")
	}
	if s.MaxScopeDepth < 0 {
		return nil, errors.Errorf("invalid import settings: maxScopeDepth %d", s.MaxScopeDepth)
	}
	if _, err := s.nameDecoder(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ImportSettings) maxDepth() int {
	if s == nil || s.MaxScopeDepth <= 0 {
		return DefaultMaxScopeDepth
	}
	return s.MaxScopeDepth
}

func (s *ImportSettings) logger() *log.Logger {
	if s == nil || s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

func (s *ImportSettings) nameDecoder() (*encoding.Decoder, error) {
	if s == nil || s.NameEncoding == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(s.NameEncoding)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown name encoding %q", s.NameEncoding)
	}
	return enc.NewDecoder(), nil
}
