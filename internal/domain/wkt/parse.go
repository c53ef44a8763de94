package wkt

import (
	"strings"

	"github.com/jobrunner/georef/internal/domain"
)

// Parse reads one node from text and returns it together with the
// unconsumed remainder. Whitespace outside quoted strings is ignored.
func Parse(text string) (*Node, string, error) {
	p := &parser{src: text}
	n, err := p.node(0)
	if err != nil {
		return nil, "", err
	}
	return n, text[p.pos:], nil
}

// ParseAll parses text and requires that only whitespace follows the root.
func ParseAll(text string) (*Node, error) {
	n, rest, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, &domain.ParseError{Offset: len(text) - len(rest), Message: "unexpected trailing text"}
	}
	return n, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(msg string) error {
	return &domain.ParseError{Offset: p.pos, Message: msg}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) node(depth int) (*Node, error) {
	if depth >= MaxDepth {
		return nil, p.errorf("nesting too deep")
	}
	tok, err := p.token()
	if err != nil {
		return nil, err
	}
	n := NewNode(tok)

	p.skipSpace()
	if p.pos >= len(p.src) {
		return n, nil
	}
	open := p.src[p.pos]
	if open != '[' && open != '(' {
		return n, nil
	}
	closer := byte(']')
	if open == '(' {
		closer = ')'
	}
	p.pos++

	for {
		child, err := p.node(depth + 1)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, child)
		child.parent = n

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unbalanced brackets")
		}
		switch c := p.src[p.pos]; {
		case c == ',':
			p.pos++
		case c == closer:
			p.pos++
			return n, nil
		case c == ']' || c == ')':
			return nil, p.errorf("mismatched closing bracket")
		default:
			return nil, p.errorf("expected ',' or closing bracket")
		}
	}
}

func (p *parser) token() (string, error) {
	var b strings.Builder
	inQuotes := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if inQuotes {
			if c == '"' {
				if p.pos+1 < len(p.src) && p.src[p.pos+1] == '"' {
					b.WriteByte('"')
					p.pos += 2
					continue
				}
				inQuotes = false
				p.pos++
				continue
			}
		} else {
			if c == '"' {
				inQuotes = true
				p.pos++
				continue
			}
			if isDelimiter(c) {
				break
			}
			if isSpace(c) {
				p.pos++
				continue
			}
		}
		if b.Len() >= MaxTokenLength {
			return "", p.errorf("token too long")
		}
		b.WriteByte(c)
		p.pos++
	}
	if inQuotes {
		return "", p.errorf("unterminated quoted string")
	}
	return b.String(), nil
}

func isDelimiter(c byte) bool {
	switch c {
	case '[', ']', '(', ')', ',':
		return true
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
