package ir

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse parses a formula from concrete syntax.
//
// Grammar (loosest binding first):
//
//	formula  = implied
//	implied  = disj [ "->" implied ]            (right associative)
//	disj     = conj { "|" conj }
//	conj     = unary { "&" unary }
//	unary    = "!" unary | "exists" ident "." unary | primary
//	primary  = "true" | "false" | atom | "(" formula ")"
//	atom     = ident [ "(" term { "," term } ")" ]
//	term     = ident                            (Bound if an enclosing
//	                                             exists binds the name)
func Parse(input string) (Formula, error) {
	p := &parser{toks: lex(input)}
	f, err := p.parseFormula(nil)
	if err != nil {
		return nil, err
	}
	if !p.atEOF() {
		return nil, fmt.Errorf("parse %q: unexpected %q at offset %d", input, p.peek().text, p.peek().pos)
	}
	return f, nil
}

// ParseSequent parses "h1, h2 |- target" or a bare target formula.
func ParseSequent(input string) (Sequent, error) {
	parts := strings.SplitN(input, "|-", 2)
	if len(parts) == 1 {
		target, err := Parse(input)
		if err != nil {
			return Sequent{}, err
		}
		return Sequent{Target: target}, nil
	}

	var hyps []Formula
	lhs := strings.TrimSpace(parts[0])
	if lhs != "" {
		for _, h := range splitTopLevel(lhs) {
			f, err := Parse(h)
			if err != nil {
				return Sequent{}, fmt.Errorf("hypothesis %q: %w", h, err)
			}
			hyps = append(hyps, f)
		}
	}
	target, err := Parse(parts[1])
	if err != nil {
		return Sequent{}, fmt.Errorf("target %q: %w", strings.TrimSpace(parts[1]), err)
	}
	return Sequent{Hyps: hyps, Target: target}, nil
}

// splitTopLevel splits a hypothesis list on commas not nested in parentheses.
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokAnd
	tokOr
	tokArrow
	tokBang
	tokBad
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func lex(input string) []token {
	var toks []token
	i := 0
	for i < len(input) {
		r := rune(input[i])
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case r == '.':
			toks = append(toks, token{tokDot, ".", i})
			i++
		case r == '&':
			toks = append(toks, token{tokAnd, "&", i})
			i++
		case r == '|':
			toks = append(toks, token{tokOr, "|", i})
			i++
		case r == '!':
			toks = append(toks, token{tokBang, "!", i})
			i++
		case r == '-' && i+1 < len(input) && input[i+1] == '>':
			toks = append(toks, token{tokArrow, "->", i})
			i += 2
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(input) && (unicode.IsLetter(rune(input[j])) || unicode.IsDigit(rune(input[j])) || input[j] == '_') {
				j++
			}
			toks = append(toks, token{tokIdent, input[i:j], i})
			i = j
		default:
			toks = append(toks, token{tokBad, string(r), i})
			i++
		}
	}
	toks = append(toks, token{tokEOF, "", len(input)})
	return toks
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) atEOF() bool { return p.peek().kind == tokEOF }

func (p *parser) expect(kind tokKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return token{}, fmt.Errorf("expected %s at offset %d, got %q", what, t.pos, t.text)
	}
	return t, nil
}

// binders tracks exists-bound names from outermost to innermost.
func (p *parser) parseFormula(binders []string) (Formula, error) {
	left, err := p.parseDisj(binders)
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokArrow {
		p.next()
		right, err := p.parseFormula(binders)
		if err != nil {
			return nil, err
		}
		return Implies{Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseDisj(binders []string) (Formula, error) {
	left, err := p.parseConj(binders)
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseConj(binders)
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseConj(binders []string) (Formula, error) {
	left, err := p.parseUnary(binders)
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary(binders)
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary(binders []string) (Formula, error) {
	switch t := p.peek(); {
	case t.kind == tokBang:
		p.next()
		body, err := p.parseUnary(binders)
		if err != nil {
			return nil, err
		}
		return Not{Body: body}, nil
	case t.kind == tokIdent && t.text == "exists":
		p.next()
		name, err := p.expect(tokIdent, "binder name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokDot, `"."`); err != nil {
			return nil, err
		}
		body, err := p.parseUnary(append(binders, name.text))
		if err != nil {
			return nil, err
		}
		return Exists{Binder: name.text, Body: body}, nil
	default:
		return p.parsePrimary(binders)
	}
}

func (p *parser) parsePrimary(binders []string) (Formula, error) {
	t := p.next()
	switch t.kind {
	case tokLParen:
		f, err := p.parseFormula(binders)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return f, nil
	case tokIdent:
		switch t.text {
		case "true":
			return True{}, nil
		case "false":
			return False{}, nil
		}
		if p.peek().kind != tokLParen {
			return Atom{Pred: t.text}, nil
		}
		p.next()
		var args []Term
		for {
			at, err := p.expect(tokIdent, "term")
			if err != nil {
				return nil, err
			}
			args = append(args, p.resolveTerm(at.text, binders))
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return Atom{Pred: t.text, Args: args}, nil
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", t.text, t.pos)
	}
}

func (p *parser) resolveTerm(name string, binders []string) Term {
	// Innermost binder wins.
	for i := len(binders) - 1; i >= 0; i-- {
		if binders[i] == name {
			return Bound{Name: name}
		}
	}
	return Const{Name: name}
}
