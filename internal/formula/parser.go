package formula

import "fmt"

// MaxDepth bounds expression nesting (parentheses, unary chains, calls).
const MaxDepth = 64

// Grammar:
//
//	expr    := term (('+' | '-') term)*
//	term    := unary (('*' | '/') unary)*
//	unary   := '-' unary | power
//	power   := primary ('^' unary)?          right-associative
//	primary := NUMBER | IDENT | IDENT '(' args ')' | '(' expr ')'
//	args    := expr (',' expr)*
//
// '^' binds tighter than unary minus, so -2^2 == -4 and 2^-1 == 0.5.
type parser struct {
	src   string
	toks  []token
	i     int
	depth int
}

func parse(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	if p.peek().kind == tokEOF {
		return nil, p.errAt(p.peek(), KindSyntax, "empty formula")
	}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errAt(t, KindSyntax, fmt.Sprintf("unexpected %q", t.text))
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errAt(t token, k Kind, msg string) *Error {
	return &Error{Kind: k, Formula: p.src, Pos: t.pos, Msg: msg}
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > MaxDepth {
		return p.errAt(p.peek(), KindTooComplex, "expression nested too deeply")
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) expr() (node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text[0], left: left, right: right, pos: t.pos}
	}
}

func (p *parser) term() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text[0], left: left, right: right, pos: t.pos}
	}
}

func (p *parser) unary() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if t := p.peek(); t.kind == tokOp && t.text == "-" {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &negNode{x: x}, nil
	}
	return p.power()
}

func (p *parser) power() (node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp && t.text == "^" {
		p.next()
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: '^', left: base, right: exp, pos: t.pos}, nil
	}
	return base, nil
}

func (p *parser) primary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &numberNode{v: t.num}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.call(t)
		}
		if _, reserved := functions[t.text]; reserved {
			return nil, &Error{Kind: KindSyntax, Formula: p.src, Pos: t.pos, Name: t.text, Msg: "function used without arguments"}
		}
		return &varNode{name: t.text, pos: t.pos}, nil
	case tokLParen:
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, p.errAt(c, KindSyntax, "expected ')'")
		}
		return n, nil
	case tokEOF:
		return nil, p.errAt(t, KindSyntax, "unexpected end of formula")
	default:
		return nil, p.errAt(t, KindSyntax, fmt.Sprintf("unexpected %q", t.text))
	}
}

func (p *parser) call(name token) (node, error) {
	fn, ok := functions[name.text]
	if !ok {
		return nil, &Error{Kind: KindUnknownFunction, Formula: p.src, Pos: name.pos, Name: name.text, Msg: "function is not allowed"}
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.next() // '('
	var args []node
	if p.peek().kind != tokRParen {
		for {
			a, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if c := p.next(); c.kind != tokRParen {
		return nil, p.errAt(c, KindSyntax, "expected ')' after arguments")
	}
	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, &Error{Kind: KindArity, Formula: p.src, Pos: name.pos, Name: name.text,
			Msg: fmt.Sprintf("got %d argument(s)", len(args))}
	}
	return &callNode{name: name.text, fn: fn, args: args, pos: name.pos}, nil
}
