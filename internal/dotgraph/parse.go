package dotgraph

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// -----------------------------------------------------------------------
// Tokenizer
// -----------------------------------------------------------------------

type tokenKind int

const (
	tokWord   tokenKind = iota // identifier, keyword or bare number
	tokString                  // "…"
	tokArrow                   // ->
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokEqual
	tokSemi
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	val  string
	line int
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	line := 1
	i := 0
	for i < len(src) {
		ch := src[i]
		if ch == '\n' {
			line++
			i++
			continue
		}
		if unicode.IsSpace(rune(ch)) {
			i++
			continue
		}
		// Comments: //, # and /* */.
		if ch == '#' || (ch == '/' && i+1 < len(src) && src[i+1] == '/') {
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		}
		if ch == '/' && i+1 < len(src) && src[i+1] == '*' {
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("line %d: unterminated comment", line)
			}
			line += strings.Count(src[i:i+2+end], "\n")
			i += end + 4
			continue
		}
		switch ch {
		case '{':
			tokens = append(tokens, token{tokLBrace, "{", line})
			i++
			continue
		case '}':
			tokens = append(tokens, token{tokRBrace, "}", line})
			i++
			continue
		case '[':
			tokens = append(tokens, token{tokLBracket, "[", line})
			i++
			continue
		case ']':
			tokens = append(tokens, token{tokRBracket, "]", line})
			i++
			continue
		case '=':
			tokens = append(tokens, token{tokEqual, "=", line})
			i++
			continue
		case ';':
			tokens = append(tokens, token{tokSemi, ";", line})
			i++
			continue
		case ',':
			tokens = append(tokens, token{tokComma, ",", line})
			i++
			continue
		}
		if ch == '-' && i+1 < len(src) && src[i+1] == '>' {
			tokens = append(tokens, token{tokArrow, "->", line})
			i += 2
			continue
		}
		if ch == '-' && i+1 < len(src) && src[i+1] == '-' {
			return nil, fmt.Errorf("line %d: undirected edges are not supported", line)
		}
		// String literals.
		if ch == '"' {
			j := i + 1
			for j < len(src) && src[j] != '"' {
				if src[j] == '\\' {
					j++ // skip escaped char
				}
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("line %d: unterminated string", line)
			}
			inner := src[i+1 : j]
			inner = strings.ReplaceAll(inner, `\"`, `"`)
			inner = strings.ReplaceAll(inner, `\\`, `\`)
			tokens = append(tokens, token{tokString, inner, line})
			i = j + 1
			continue
		}
		// Words: identifiers and numerals.
		if isWordChar(ch) || (ch == '-' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))) {
			j := i + 1
			for j < len(src) && isWordChar(src[j]) {
				j++
			}
			tokens = append(tokens, token{tokWord, src[i:j], line})
			i = j
			continue
		}
		return nil, fmt.Errorf("line %d: unexpected character %q", line, ch)
	}
	tokens = append(tokens, token{tokEOF, "", line})
	return tokens, nil
}

func isWordChar(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch)) || ch == '_' || ch == '.'
}

// -----------------------------------------------------------------------
// Recursive-descent parser
// -----------------------------------------------------------------------

type parser struct {
	tokens []token
	pos    int
	g      *Graph
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) consume() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) expect(kind tokenKind, val string) error {
	t := p.peek()
	if t.kind != kind {
		return fmt.Errorf("line %d: expected %q but got %q", t.line, val, t.val)
	}
	p.consume()
	return nil
}

// ParseFile reads and parses a DOT file.
func ParseFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph %s: %w", path, err)
	}
	g, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse graph %s: %w", path, err)
	}
	return g, nil
}

// Parse parses the DOT subset:
//
//	graph     = [ "strict" ] "digraph" [ id ] "{" stmt* "}"
//	stmt      = ( edge_stmt | node_stmt | attr_stmt | id "=" id ) [ ";" ]
//	edge_stmt = id ( "->" id )+ [ attr_list ]
//	node_stmt = id [ attr_list ]
//	attr_stmt = ( "graph" | "node" | "edge" ) attr_list
//	attr_list = "[" ( id "=" id [ "," | ";" ] )* "]"
func Parse(src string) (*Graph, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens, g: newGraph()}
	if err := p.parseGraph(); err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("line %d: unexpected token %q after graph", p.peek().line, p.peek().val)
	}
	return p.g, nil
}

func (p *parser) parseGraph() error {
	t := p.peek()
	if t.kind == tokWord && strings.EqualFold(t.val, "strict") {
		p.consume()
		t = p.peek()
	}
	if t.kind != tokWord || !strings.EqualFold(t.val, "digraph") {
		return fmt.Errorf("line %d: expected \"digraph\" but got %q", t.line, t.val)
	}
	p.consume()
	if k := p.peek().kind; k == tokWord || k == tokString {
		p.g.Name = p.consume().val
	}
	if err := p.expect(tokLBrace, "{"); err != nil {
		return err
	}
	for p.peek().kind != tokRBrace {
		if p.peek().kind == tokEOF {
			return fmt.Errorf("line %d: missing closing \"}\"", p.peek().line)
		}
		if err := p.parseStmt(); err != nil {
			return err
		}
	}
	p.consume()
	return nil
}

func (p *parser) parseStmt() error {
	if p.peek().kind == tokSemi {
		p.consume()
		return nil
	}
	first, err := p.parseID()
	if err != nil {
		return err
	}

	switch strings.ToLower(first.val) {
	case "graph", "node", "edge":
		if first.kind == tokWord && p.peek().kind == tokLBracket {
			// Default attribute statements carry nothing this reader uses.
			_, err := p.parseAttrList()
			return err
		}
	}

	switch p.peek().kind {
	case tokEqual: // graph-level id = id
		p.consume()
		_, err := p.parseID()
		return err
	case tokArrow:
		chain := []string{first.val}
		for p.peek().kind == tokArrow {
			p.consume()
			next, err := p.parseID()
			if err != nil {
				return err
			}
			chain = append(chain, next.val)
		}
		attrs, err := p.parseOptionalAttrs()
		if err != nil {
			return err
		}
		weight, err := edgeWeight(attrs)
		if err != nil {
			return fmt.Errorf("line %d: %w", first.line, err)
		}
		for i := 0; i+1 < len(chain); i++ {
			p.g.addEdge(chain[i], chain[i+1], weight)
		}
		return nil
	default:
		attrs, err := p.parseOptionalAttrs()
		if err != nil {
			return err
		}
		p.g.declareNode(first.val, nodeKind(attrs))
		return nil
	}
}

func (p *parser) parseID() (token, error) {
	t := p.peek()
	if t.kind != tokWord && t.kind != tokString {
		return t, fmt.Errorf("line %d: expected identifier but got %q", t.line, t.val)
	}
	return p.consume(), nil
}

func (p *parser) parseOptionalAttrs() (map[string]string, error) {
	if p.peek().kind != tokLBracket {
		return nil, nil
	}
	return p.parseAttrList()
}

func (p *parser) parseAttrList() (map[string]string, error) {
	if err := p.expect(tokLBracket, "["); err != nil {
		return nil, err
	}
	attrs := make(map[string]string)
	for p.peek().kind != tokRBracket {
		key, err := p.parseID()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokEqual, "="); err != nil {
			return nil, err
		}
		val, err := p.parseID()
		if err != nil {
			return nil, err
		}
		attrs[strings.ToLower(key.val)] = val.val
		if k := p.peek().kind; k == tokComma || k == tokSemi {
			p.consume()
		}
	}
	p.consume()
	return attrs, nil
}

// edgeWeight reads the iteration distance from "weight", falling back to a
// numeric "label". Missing means 0.
func edgeWeight(attrs map[string]string) (int, error) {
	raw, ok := attrs["weight"]
	if !ok {
		raw, ok = attrs["label"]
		if _, err := strconv.Atoi(raw); err != nil {
			ok = false
		}
	}
	if !ok {
		return 0, nil
	}
	w, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid edge weight %q", raw)
	}
	if w < 0 {
		return 0, fmt.Errorf("edge weight %d must be >= 0", w)
	}
	return w, nil
}

func nodeKind(attrs map[string]string) string {
	if k := attrs["kind"]; k != "" {
		return k
	}
	return attrs["label"]
}
