// Package startup implements the startup script composition engine: a
// catalog of templated shell segments, a renderer that binds typed contexts
// to them, a composer that assembles the selected segments into one
// idempotent first-boot script, and a transport codec that wraps oversized
// scripts in a compressed, self-decoding bootstrap stub.
package startup

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a typed template context value. The concrete types are String,
// Int, Bool, List and Pairs.
type Value interface {
	typeName() string
}

// String is a scalar text value.
type String string

// Int is a scalar integer value.
type Int int

// Bool is a scalar boolean value.
type Bool bool

// List is an ordered sequence of values.
type List []Value

// Pair is one entry of an ordered key/value structure.
type Pair struct {
	Key   Value
	Value Value
}

// Pairs is an ordered key/value structure. Enumeration order is the order
// the entries were declared, which templates rely on.
type Pairs []Pair

func (String) typeName() string { return "string" }
func (Int) typeName() string    { return "int" }
func (Bool) typeName() string   { return "bool" }
func (List) typeName() string   { return "list" }
func (Pairs) typeName() string  { return "pairs" }

// Context holds the parameter values bound for a single segment render.
// A context is built fresh per request and never shared across segments.
type Context map[string]Value

// node is one element of a parsed template body.
type node interface {
	render(sb *strings.Builder, segment string, scope Context) error
}

// literal is a run of raw text emitted verbatim.
type literal string

// subst substitutes a scalar context value.
type subst struct {
	key string
}

// loop iterates a list (one variable) or ordered pairs (two variables).
type loop struct {
	vars []string
	key  string
	body []node
}

// cond includes its then-branch when the named value is truthy, and the
// else-branch otherwise.
type cond struct {
	key      string
	then     []node
	elseBody []node
}

// Template is a parsed segment body ready for rendering.
type Template struct {
	segment string
	nodes   []node
}

const (
	openSubst = "{{"
	openTag   = "{%"
)

// ParseTemplate parses a template body into its node representation.
// Syntax errors are reported with the byte offset of the offending tag so a
// catalog-wide validation pass can pinpoint broken segments at load time.
func ParseTemplate(segment, body string) (*Template, error) {
	p := &parser{segment: segment, src: body}
	nodes, err := p.parseNodes("")
	if err != nil {
		return nil, err
	}
	return &Template{segment: segment, nodes: nodes}, nil
}

// Render evaluates the template against ctx and returns the produced shell
// text. Rendering is pure: equal (template, context) pairs yield
// byte-identical output.
func (t *Template) Render(ctx Context) (string, error) {
	var sb strings.Builder
	for _, n := range t.nodes {
		if err := n.render(&sb, t.segment, ctx); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// parser walks the template source, splitting it into literal runs and tags.
type parser struct {
	segment string
	src     string
	pos     int

	// closed records which keyword terminated the most recent parseNodes
	// call, so if-blocks can distinguish else from endif.
	closed string
}

// parseNodes consumes nodes until the closing tag named by until ("endfor",
// "endif"/"else") or end of input when until is empty. It returns the parsed
// nodes; the closing tag itself is recorded in p.closed.
func (p *parser) parseNodes(until string) ([]node, error) {
	var nodes []node
	for p.pos < len(p.src) {
		next := p.nextTagIndex()
		if next < 0 {
			nodes = append(nodes, literal(p.src[p.pos:]))
			p.pos = len(p.src)
			break
		}
		if next > p.pos {
			text := p.src[p.pos:next]
			if p.isBlockTagAt(next) {
				text = trimTagIndent(text)
			}
			if text != "" {
				nodes = append(nodes, literal(text))
			}
			p.pos = next
		}
		if strings.HasPrefix(p.src[p.pos:], openSubst) {
			n, err := p.parseSubst()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
			continue
		}
		tagPos := p.pos
		keyword, args, err := p.parseTag()
		if err != nil {
			return nil, err
		}
		switch keyword {
		case "for":
			n, err := p.parseLoop(tagPos, args)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		case "if":
			n, err := p.parseCond(tagPos, args)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		case "endfor", "endif", "else":
			if until == "" || !closesBlock(until, keyword) {
				return nil, p.syntaxError(tagPos, fmt.Sprintf("unexpected %q", keyword))
			}
			p.closed = keyword
			return nodes, nil
		default:
			return nil, p.syntaxError(tagPos, fmt.Sprintf("unknown tag keyword %q", keyword))
		}
	}
	if until != "" {
		return nil, p.syntaxError(len(p.src), fmt.Sprintf("unclosed block: missing %q", until))
	}
	return nodes, nil
}

func closesBlock(until, keyword string) bool {
	if until == "endfor" {
		return keyword == "endfor"
	}
	// "if" blocks may close on else or endif.
	return keyword == "endif" || keyword == "else"
}

func (p *parser) parseLoop(tagPos int, args string) (node, error) {
	// for <var>[, <var>] in <key>
	fields := strings.SplitN(args, " in ", 2)
	if len(fields) != 2 {
		return nil, p.syntaxError(tagPos, "malformed for tag, want {% for x in seq %} or {% for k, v in pairs %}")
	}
	var vars []string
	for _, v := range strings.Split(fields[0], ",") {
		v = strings.TrimSpace(v)
		if !isIdent(v) {
			return nil, p.syntaxError(tagPos, fmt.Sprintf("invalid loop variable %q", v))
		}
		vars = append(vars, v)
	}
	if len(vars) > 2 {
		return nil, p.syntaxError(tagPos, "for tag supports at most two loop variables")
	}
	key := strings.TrimSpace(fields[1])
	if !isIdent(key) {
		return nil, p.syntaxError(tagPos, fmt.Sprintf("invalid iterable name %q", key))
	}
	body, err := p.parseNodes("endfor")
	if err != nil {
		return nil, err
	}
	return &loop{vars: vars, key: key, body: body}, nil
}

func (p *parser) parseCond(tagPos int, args string) (node, error) {
	key := strings.TrimSpace(args)
	if !isIdent(key) {
		return nil, p.syntaxError(tagPos, fmt.Sprintf("invalid condition %q", key))
	}
	then, err := p.parseNodes("endif")
	if err != nil {
		return nil, err
	}
	c := &cond{key: key, then: then}
	if p.closed == "else" {
		c.elseBody, err = p.parseNodes("endif")
		if err != nil {
			return nil, err
		}
		if p.closed == "else" {
			return nil, p.syntaxError(tagPos, "duplicate else in if block")
		}
	}
	return c, nil
}

func (p *parser) parseSubst() (node, error) {
	tagPos := p.pos
	end := strings.Index(p.src[p.pos:], "}}")
	if end < 0 {
		return nil, p.syntaxError(tagPos, "unterminated substitution")
	}
	inner := strings.TrimSpace(p.src[p.pos+2 : p.pos+end])
	if !isIdent(inner) {
		return nil, p.syntaxError(tagPos, fmt.Sprintf("invalid substitution %q", inner))
	}
	p.pos += end + 2
	return &subst{key: inner}, nil
}

// parseTag reads a {% keyword args %} tag and consumes a trailing newline so
// that block tags placed on their own lines leave no blank line behind.
func (p *parser) parseTag() (keyword, args string, err error) {
	tagPos := p.pos
	end := strings.Index(p.src[p.pos:], "%}")
	if end < 0 {
		return "", "", p.syntaxError(tagPos, "unterminated tag")
	}
	inner := strings.TrimSpace(p.src[p.pos+2 : p.pos+end])
	p.pos += end + 2
	if p.pos < len(p.src) && p.src[p.pos] == '\n' {
		p.pos++
	}
	keyword, args, _ = strings.Cut(inner, " ")
	if keyword == "" {
		return "", "", p.syntaxError(tagPos, "empty tag")
	}
	return keyword, strings.TrimSpace(args), nil
}

// nextTagIndex returns the absolute index of the next {{ or {% marker, or -1.
func (p *parser) nextTagIndex() int {
	rest := p.src[p.pos:]
	i := strings.Index(rest, openSubst)
	j := strings.Index(rest, openTag)
	switch {
	case i < 0 && j < 0:
		return -1
	case i < 0:
		return p.pos + j
	case j < 0:
		return p.pos + i
	case i < j:
		return p.pos + i
	default:
		return p.pos + j
	}
}

// isBlockTagAt reports whether the marker at the given absolute index starts
// a {% %} tag (as opposed to a substitution).
func (p *parser) isBlockTagAt(idx int) bool {
	return strings.HasPrefix(p.src[idx:], openTag)
}

// trimTagIndent strips trailing spaces and tabs from the final line of a
// literal run that precedes a block tag, so indented tags do not leak their
// indentation into the output.
func trimTagIndent(text string) string {
	i := len(text)
	for i > 0 && (text[i-1] == ' ' || text[i-1] == '\t') {
		i--
	}
	if i == 0 || text[i-1] == '\n' {
		return text[:i]
	}
	return text
}

func (p *parser) syntaxError(offset int, msg string) error {
	return &TemplateSyntaxError{Segment: p.segment, Offset: offset, Msg: msg}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (l literal) render(sb *strings.Builder, _ string, _ Context) error {
	sb.WriteString(string(l))
	return nil
}

func (s *subst) render(sb *strings.Builder, segment string, scope Context) error {
	v, ok := scope[s.key]
	if !ok {
		return &MissingContextKeyError{Segment: segment, Key: s.key}
	}
	switch val := v.(type) {
	case String:
		sb.WriteString(string(val))
	case Int:
		sb.WriteString(strconv.Itoa(int(val)))
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(val)))
	default:
		return &TypeMismatchError{Segment: segment, Key: s.key, Want: "scalar", Got: v.typeName()}
	}
	return nil
}

func (l *loop) render(sb *strings.Builder, segment string, scope Context) error {
	v, ok := scope[l.key]
	if !ok {
		return &MissingContextKeyError{Segment: segment, Key: l.key}
	}
	switch seq := v.(type) {
	case List:
		if len(l.vars) != 1 {
			return &TypeMismatchError{Segment: segment, Key: l.key, Want: "pairs (two loop variables)", Got: "list"}
		}
		for _, item := range seq {
			if err := l.renderBody(sb, segment, scope, map[string]Value{l.vars[0]: item}); err != nil {
				return err
			}
		}
	case Pairs:
		if len(l.vars) != 2 {
			return &TypeMismatchError{Segment: segment, Key: l.key, Want: "list (one loop variable)", Got: "pairs"}
		}
		for _, pair := range seq {
			bound := map[string]Value{l.vars[0]: pair.Key, l.vars[1]: pair.Value}
			if err := l.renderBody(sb, segment, scope, bound); err != nil {
				return err
			}
		}
	default:
		return &TypeMismatchError{Segment: segment, Key: l.key, Want: "list or pairs", Got: v.typeName()}
	}
	return nil
}

// renderBody evaluates the loop body in a child scope. The outer context is
// copied rather than mutated so loop variables never leak between segments
// or iterations.
func (l *loop) renderBody(sb *strings.Builder, segment string, outer Context, bound map[string]Value) error {
	scope := make(Context, len(outer)+len(bound))
	for k, v := range outer {
		scope[k] = v
	}
	for k, v := range bound {
		scope[k] = v
	}
	for _, n := range l.body {
		if err := n.render(sb, segment, scope); err != nil {
			return err
		}
	}
	return nil
}

func (c *cond) render(sb *strings.Builder, segment string, scope Context) error {
	v, ok := scope[c.key]
	if !ok {
		return &MissingContextKeyError{Segment: segment, Key: c.key}
	}
	branch := c.elseBody
	if truthy(v) {
		branch = c.then
	}
	for _, n := range branch {
		if err := n.render(sb, segment, scope); err != nil {
			return err
		}
	}
	return nil
}

func truthy(v Value) bool {
	switch val := v.(type) {
	case String:
		return val != ""
	case Int:
		return val != 0
	case Bool:
		return bool(val)
	case List:
		return len(val) > 0
	case Pairs:
		return len(val) > 0
	default:
		return false
	}
}
