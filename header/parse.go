package header

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/header/internal/token"
)

// ReturnParam is the parameter name under which Options.Semantics is asked
// about a function result.
const ReturnParam = "return"

// SemanticsFunc returns the pointer semantics for the outermost pointer of
// a parameter, struct field or result. owner is the function, function
// pointer or struct name. ok false keeps the default.
type SemanticsFunc func(owner, param string) (descriptor.PointerSemantics, bool)

// Options configures parsing.
type Options struct {
	// Semantics overrides pointer semantics per position.
	Semantics SemanticsFunc
	// Builder receives the declarations. A new one is used when nil.
	Builder *descriptor.Builder
	// APIGuard, when set, names a parsed uint64_t fn(void) that the binder
	// calls to check which surface the library implements.
	APIGuard *descriptor.APIGuard
}

// SemanticsMap adapts a map keyed by "owner.param" to a SemanticsFunc.
func SemanticsMap(m map[string]descriptor.PointerSemantics) SemanticsFunc {
	return func(owner, param string) (descriptor.PointerSemantics, bool) {
		s, ok := m[owner+"."+param]
		return s, ok
	}
}

// Parse reads header text into a descriptor.
func Parse(source string, opts Options) (*descriptor.Descriptor, error) {
	b := opts.Builder
	if b == nil {
		b = descriptor.NewBuilder()
	}
	p := &parser{
		tokens:    token.Tokenize(source),
		builder:   b,
		semantics: opts.Semantics,
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	if opts.APIGuard != nil {
		b.SetAPIGuard(opts.APIGuard.Func, opts.APIGuard.Hash)
	}
	return b.Build()
}

type parser struct {
	builder   *descriptor.Builder
	semantics SemanticsFunc
	tokens    []token.Token
	pos       int
	externs   int
}

// typeSpec is a parsed base type plus its pointer declarator.
type typeSpec struct {
	base     descriptor.Type
	stars    int
	nonnull  bool
	nullable bool
}

func (p *parser) peek() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *parser) peekAt(n int) *token.Token {
	if p.pos+n >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+n]
}

func (p *parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) line() int {
	if t := p.peek(); t != nil {
		return t.Line
	}
	if len(p.tokens) > 0 {
		return p.tokens[len(p.tokens)-1].Line
	}
	return 1
}

func (p *parser) expect(typ token.Type) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, errors.ParseFailed(p.line(), fmt.Sprintf("unexpected end of input, expected %v", typ))
	}
	if t.Type != typ {
		return nil, errors.ParseFailed(t.Line, fmt.Sprintf("expected %v, got %q", typ, t.Value))
	}
	return t, nil
}

func (p *parser) expectIdent(value string) error {
	t, err := p.expect(token.Ident)
	if err != nil {
		return err
	}
	if t.Value != value {
		return errors.ParseFailed(t.Line, fmt.Sprintf("expected %q, got %q", value, t.Value))
	}
	return nil
}

func (p *parser) isIdent(value string) bool {
	t := p.peek()
	return t != nil && t.Type == token.Ident && t.Value == value
}

func (p *parser) accept(typ token.Type) bool {
	if t := p.peek(); t != nil && t.Type == typ {
		p.pos++
		return true
	}
	return false
}

// declared wraps a builder error with the line it was raised on.
func (p *parser) declared(line int, err error) error {
	if err == nil {
		return nil
	}
	return errors.New(errors.PhaseParse, errors.KindInvalidData).
		Detail("line %d", line).
		Cause(err).
		Build()
}

func (p *parser) parse() error {
	if n := len(p.tokens); n > 0 && p.tokens[n-1].Type == token.Unterminated {
		return errors.ParseFailed(p.tokens[n-1].Line, "unterminated comment")
	}
	for p.peek() != nil {
		if err := p.parseTopLevel(); err != nil {
			return err
		}
	}
	if p.externs > 0 {
		return errors.ParseFailed(p.line(), "unterminated extern block")
	}
	return nil
}

func (p *parser) parseTopLevel() error {
	t := p.peek()

	switch {
	case t.Type == token.Define:
		return p.parseDefine()
	case t.Type == token.Semicolon:
		p.next()
		return nil
	case t.Type == token.RBrace && p.externs > 0:
		p.next()
		p.externs--
		return nil
	case t.Type == token.Ident && t.Value == "extern":
		p.next()
		if s := p.peek(); s != nil && s.Type == token.String {
			p.next()
			if p.accept(token.LBrace) {
				p.externs++
			}
			return nil
		}
		return p.parsePrototype()
	case t.Type == token.Ident && t.Value == "typedef":
		p.next()
		return p.parseTypedef()
	case t.Type == token.Ident && (t.Value == "struct" || t.Value == "enum") &&
		p.peekAt(1) != nil && p.peekAt(1).Type == token.Ident &&
		p.peekAt(2) != nil && (p.peekAt(2).Type == token.LBrace || p.peekAt(2).Type == token.Semicolon):
		return p.parseTagged()
	case t.Type == token.Ident:
		return p.parsePrototype()
	}
	return errors.ParseFailed(t.Line, fmt.Sprintf("unexpected %q", t.Value))
}

func (p *parser) parseDefine() error {
	def := p.next()
	name, err := p.expect(token.Ident)
	if err != nil {
		return err
	}
	value := p.peek()
	if value == nil || value.Line != def.Line {
		// Include guards and flags without a value.
		return nil
	}
	if value.Type != token.Number {
		// Non-integer macros are outside the surface.
		for t := p.peek(); t != nil && t.Line == def.Line; t = p.peek() {
			p.next()
		}
		return nil
	}
	p.next()

	v, err := parseInt(value.Value)
	if err != nil {
		return errors.ParseFailed(value.Line, fmt.Sprintf("invalid integer %q", value.Value))
	}
	_, err = p.builder.DeclareConstant(name.Value, v)
	return p.declared(def.Line, err)
}

func parseInt(s string) (int64, error) {
	s = strings.TrimRight(s, "uUlL")
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v, nil
	}
	u, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, err
	}
	return int64(u), nil
}

func (p *parser) parseTypedef() error {
	line := p.line()

	switch {
	case p.isIdent("enum"):
		p.next()
		if t := p.peek(); t != nil && t.Type == token.Ident {
			p.next()
		}
		return p.parseEnumBody(line)
	case p.isIdent("struct"):
		p.next()
		tag := ""
		if t := p.peek(); t != nil && t.Type == token.Ident {
			tag = p.next().Value
		}
		if p.peek() != nil && p.peek().Type == token.LBrace {
			return p.parseStructBody(line, "", true)
		}
		name, err := p.expect(token.Ident)
		if err != nil {
			return err
		}
		if tag != "" && tag != name.Value {
			return errors.ParseFailed(line, fmt.Sprintf("struct alias %s for %s is not supported", name.Value, tag))
		}
		if _, err := p.expect(token.Semicolon); err != nil {
			return err
		}
		_, err = p.builder.DeclareType(descriptor.Opaque(name.Value))
		return p.declared(line, err)
	}

	result, err := p.parseType()
	if err != nil {
		return err
	}
	if !p.accept(token.LParen) || !p.accept(token.Star) {
		return errors.ParseFailed(line, "only enum, struct and function pointer typedefs are supported")
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	params, err := p.parseParams(name.Value)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return err
	}

	res := p.resolveSpec(result, name.Value, ReturnParam)
	_, err = p.builder.DeclareType(descriptor.FuncPtr(name.Value, res, params...))
	return p.declared(line, err)
}

// parseTagged handles "struct Tag {...};", "struct Tag;" and "enum Tag {...};".
func (p *parser) parseTagged() error {
	line := p.line()
	kw := p.next().Value
	tag := p.next().Value

	if kw == "enum" {
		return p.parseEnumNamed(line, tag)
	}
	if p.accept(token.Semicolon) {
		_, err := p.builder.DeclareType(descriptor.Opaque(tag))
		return p.declared(line, err)
	}
	return p.parseStructBody(line, tag, false)
}

func (p *parser) parseEnumNamed(line int, tag string) error {
	members, err := p.parseEnumMembers()
	if err != nil {
		return err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return err
	}
	_, err = p.builder.DeclareType(descriptor.Enum(tag, members...))
	return p.declared(line, err)
}

func (p *parser) parseEnumBody(line int) error {
	members, err := p.parseEnumMembers()
	if err != nil {
		return err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return err
	}
	_, err = p.builder.DeclareType(descriptor.Enum(name.Value, members...))
	return p.declared(line, err)
}

func (p *parser) parseEnumMembers() ([]descriptor.EnumMember, error) {
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}

	var members []descriptor.EnumMember
	next := int64(0)
	for !p.accept(token.RBrace) {
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		value := next
		if p.accept(token.Assign) {
			num, err := p.expect(token.Number)
			if err != nil {
				return nil, err
			}
			value, err = parseInt(num.Value)
			if err != nil {
				return nil, errors.ParseFailed(num.Line, fmt.Sprintf("invalid integer %q", num.Value))
			}
		}
		members = append(members, descriptor.EnumMember{Name: name.Value, Value: value})
		next = value + 1

		if !p.accept(token.Comma) {
			if _, err := p.expect(token.RBrace); err != nil {
				return nil, err
			}
			break
		}
	}
	return members, nil
}

func (p *parser) parseStructBody(line int, tag string, typedef bool) error {
	if _, err := p.expect(token.LBrace); err != nil {
		return err
	}

	type pendingField struct {
		spec typeSpec
		name string
	}
	var fields []pendingField

	for !p.accept(token.RBrace) {
		spec, err := p.parseBaseType()
		if err != nil {
			return err
		}
		for {
			decl := spec
			if err := p.parseStars(&decl); err != nil {
				return err
			}
			name, err := p.expect(token.Ident)
			if err != nil {
				return err
			}
			fields = append(fields, pendingField{spec: decl, name: name.Value})
			if !p.accept(token.Comma) {
				break
			}
		}
		if _, err := p.expect(token.Semicolon); err != nil {
			return err
		}
	}

	name := tag
	if typedef {
		t, err := p.expect(token.Ident)
		if err != nil {
			return err
		}
		name = t.Value
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return err
	}

	out := make([]descriptor.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, descriptor.Field{Name: f.name, Type: p.resolveSpec(f.spec, name, f.name)})
	}
	_, err := p.builder.DeclareType(descriptor.Struct(name, out...))
	return p.declared(line, err)
}

func (p *parser) parsePrototype() error {
	line := p.line()

	result, err := p.parseType()
	if err != nil {
		return err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return err
	}
	params, err := p.parseParams(name.Value)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return err
	}

	res := p.resolveSpec(result, name.Value, ReturnParam)
	_, err = p.builder.DeclareFunction(name.Value, res, params...)
	return p.declared(line, err)
}

func (p *parser) parseParams(owner string) ([]descriptor.Param, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	if p.accept(token.RParen) {
		return nil, nil
	}
	if p.isIdent("void") && p.peekAt(1) != nil && p.peekAt(1).Type == token.RParen {
		p.pos += 2
		return nil, nil
	}

	var params []descriptor.Param
	for {
		spec, err := p.parseType()
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("x%d", len(params))
		if t := p.peek(); t != nil && t.Type == token.Ident {
			name = p.next().Value
		}
		params = append(params, descriptor.Param{Name: name, Type: p.resolveSpec(spec, owner, name)})

		if p.accept(token.RParen) {
			return params, nil
		}
		if _, err := p.expect(token.Comma); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseType() (typeSpec, error) {
	spec, err := p.parseBaseType()
	if err != nil {
		return spec, err
	}
	err = p.parseStars(&spec)
	return spec, err
}

func (p *parser) skipQualifiers() {
	for p.isIdent("const") || p.isIdent("volatile") || p.isIdent("restrict") {
		p.next()
	}
}

func (p *parser) parseBaseType() (typeSpec, error) {
	p.skipQualifiers()
	if p.isIdent("struct") || p.isIdent("enum") {
		p.next()
	}
	t, err := p.expect(token.Ident)
	if err != nil {
		return typeSpec{}, err
	}
	p.skipQualifiers()

	var base descriptor.Type
	switch t.Value {
	case "_Bool":
		base = descriptor.Bool
	default:
		if s, ok := descriptor.ScalarByName(t.Value); ok {
			base = s
		} else {
			base = descriptor.Ref(t.Value)
		}
	}
	return typeSpec{base: base}, nil
}

func (p *parser) parseStars(spec *typeSpec) error {
	for p.accept(token.Star) {
		spec.stars++
		spec.nonnull = false
		spec.nullable = false
	qualifiers:
		for {
			switch {
			case p.isIdent("const"), p.isIdent("volatile"), p.isIdent("restrict"):
				p.next()
			case p.isIdent("_Nonnull"):
				p.next()
				spec.nonnull = true
			case p.isIdent("_Nullable"):
				p.next()
				spec.nullable = true
			default:
				break qualifiers
			}
		}
	}
	return p.checkDeclarator()
}

func (p *parser) checkDeclarator() error {
	if t := p.peek(); t != nil && t.Type == token.Illegal {
		return errors.ParseFailed(t.Line, fmt.Sprintf("unsupported declarator %q", t.Value))
	}
	return nil
}

// resolveSpec turns a declarator into a descriptor type. Inner pointer levels
// are Optional; the outermost is DoubleIndirection for two or more levels.
func (p *parser) resolveSpec(spec typeSpec, owner, param string) descriptor.Type {
	t := spec.base
	if spec.stars == 0 {
		return t
	}
	for i := 1; i < spec.stars; i++ {
		t = descriptor.PointerTo(t, descriptor.Optional)
	}

	sem := descriptor.Optional
	switch {
	case spec.stars > 1:
		sem = descriptor.DoubleIndirection
	case spec.nonnull:
		sem = descriptor.Required
	case spec.nullable:
		sem = descriptor.Optional
	}
	if p.semantics != nil {
		if s, ok := p.semantics(owner, param); ok {
			sem = s
		}
	}
	return descriptor.PointerTo(t, sem)
}
