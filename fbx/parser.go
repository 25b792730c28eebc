package fbx

// Element is a key token with its property tokens and an optional nested scope.
type Element struct {
	key      Token
	tokens   []Token
	compound *Scope
}

func (e *Element) KeyToken() Token {
	return e.key
}

func (e *Element) Key() string {
	if e == nil {
		return ""
	}
	return e.key.Text()
}

// Tokens returns the DATA tokens of the element, separators removed.
func (e *Element) Tokens() []Token {
	if e == nil {
		return nil
	}
	return e.tokens
}

func (e *Element) Compound() *Scope {
	if e == nil {
		return nil
	}
	return e.compound
}

// Scope keeps elements in file order and indexes them by name.
type Scope struct {
	elements []*Element
	index    map[string][]*Element
}

func newScope() *Scope {
	return &Scope{index: map[string][]*Element{}}
}

func (s *Scope) add(e *Element) {
	s.elements = append(s.elements, e)
	name := e.Key()
	s.index[name] = append(s.index[name], e)
}

// Get returns the first element named name, or nil.
func (s *Scope) Get(name string) *Element {
	if s == nil {
		return nil
	}
	if c := s.index[name]; len(c) > 0 {
		return c[0]
	}
	return nil
}

func (s *Scope) GetCollection(name string) []*Element {
	if s == nil {
		return nil
	}
	return s.index[name]
}

func (s *Scope) Elements() []*Element {
	if s == nil {
		return nil
	}
	return s.elements
}

// Parser groups a flat token list into the element tree.
type Parser struct {
	tokens []Token
	pos    int
	root   *Scope
}

func NewParser(tokens []Token) (*Parser, error) {
	p := &Parser{tokens: tokens}
	root, err := p.parseScope(true)
	if err != nil {
		return nil, err
	}
	p.root = root
	return p, nil
}

func (p *Parser) RootScope() *Scope {
	return p.root
}

func (p *Parser) Tokens() []Token {
	return p.tokens
}

func (p *Parser) peek() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *Parser) next() (Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *Parser) parseScope(topLevel bool) (*Scope, error) {
	sc := newScope()
	for {
		t, ok := p.next()
		if !ok {
			if topLevel {
				return sc, nil
			}
			return nil, domErrorf(nil, "unexpected end of token stream, expected closing bracket")
		}
		switch t.Type {
		case TokenKey:
			el, err := p.parseElement(t)
			if err != nil {
				return nil, err
			}
			sc.add(el)
		case TokenCloseBracket:
			if topLevel {
				return nil, domErrorf(nil, "unexpected closing bracket at offset 0x%x", t.Offset)
			}
			return sc, nil
		default:
			return nil, domErrorf(nil, "unexpected %v token at offset 0x%x, expected a key", t.Type, t.Offset)
		}
	}
}

func (p *Parser) parseElement(key Token) (*Element, error) {
	el := &Element{key: key}
	for {
		t, ok := p.peek()
		if !ok {
			return el, nil
		}
		switch t.Type {
		case TokenData:
			p.pos++
			el.tokens = append(el.tokens, t)
			if n, ok := p.peek(); ok && n.Type == TokenComma {
				p.pos++
				if n, ok := p.peek(); !ok || n.Type != TokenData {
					return nil, domErrorf(el, "expected data token after comma at offset 0x%x", t.Offset)
				}
			}
		case TokenOpenBracket:
			p.pos++
			sc, err := p.parseScope(false)
			if err != nil {
				return nil, err
			}
			el.compound = sc
			return el, nil
		case TokenComma:
			return nil, domErrorf(el, "unexpected comma at offset 0x%x", t.Offset)
		default:
			return el, nil
		}
	}
}

// GetRequiredElement returns the first element named name or a DOMError naming parent.
func GetRequiredElement(sc *Scope, name string, parent *Element) (*Element, error) {
	el := sc.Get(name)
	if el == nil {
		return nil, domErrorf(parent, "did not find required element %q", name)
	}
	return el, nil
}

func GetRequiredScope(el *Element) (*Scope, error) {
	if el.Compound() == nil {
		return nil, domErrorf(el, "expected compound scope")
	}
	return el.Compound(), nil
}

func GetRequiredToken(el *Element, index int) (Token, error) {
	tokens := el.Tokens()
	if index >= len(tokens) {
		return Token{}, domErrorf(el, "missing token at index %d", index)
	}
	return tokens[index], nil
}
