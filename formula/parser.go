package formula

import (
	"strings"

	"github.com/openxlgo/xlcore/ref"
	"github.com/openxlgo/xlcore/value"
	"github.com/openxlgo/xlcore/xlerrors"
)

// Parser is a Pratt parser over a pre-lexed token stream, implementing
// the precedence ladder spec.md §4.9 specifies (low to high): comparison,
// concatenation (&), additive (+ -), multiplicative (* /), exponent (^,
// right-associative), unary (+ - %), reference (: space ,), atom.
type Parser struct {
	toks []Token
	pos  int // index into toks, may sit on a TokWhitespace
}

// Parse tokenizes and parses a full formula (without its leading "="),
// returning its AST root.
func Parse(src string) (Node, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind != TokEOF {
		return nil, xlerrors.FormulaParseError(tok.Pos, "unexpected trailing token "+tok.Text)
	}
	return n, nil
}

// --- token stream helpers ---

// rawAt returns the raw token (possibly whitespace) at pos+off.
func (p *Parser) rawAt(off int) Token {
	i := p.pos + off
	if i < 0 || i >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[i]
}

// skipWS advances pos past any whitespace token, returning whether any
// was skipped.
func (p *Parser) skipWS() bool {
	skipped := false
	for p.pos < len(p.toks) && p.toks[p.pos].Kind == TokWhitespace {
		p.pos++
		skipped = true
	}
	return skipped
}

// peek returns the next significant (non-whitespace) token without
// consuming it.
func (p *Parser) peek() Token {
	i := p.pos
	for i < len(p.toks) && p.toks[i].Kind == TokWhitespace {
		i++
	}
	if i >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[i]
}

// next consumes and returns the next significant token.
func (p *Parser) next() Token {
	p.skipWS()
	if p.pos >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	tok := p.toks[p.pos]
	p.pos++
	return tok
}

func (p *Parser) expect(k TokenKind, what string) (Token, error) {
	tok := p.next()
	if tok.Kind != k {
		return Token{}, xlerrors.FormulaParseError(tok.Pos, "expected "+what+", got "+tok.Text)
	}
	return tok, nil
}

// --- precedence ladder ---

func (p *Parser) parseExpr() (Node, error) { return p.parseComparison() }

func (p *Parser) parseComparison() (Node, error) {
	left, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case TokEq, TokNe, TokLt, TokLe, TokGt, TokGe:
			op := p.next()
			right, err := p.parseConcat()
			if err != nil {
				return nil, err
			}
			left = BinaryNode{Op: op.Kind, Left: left, Right: right}
			continue
		}
		return left, nil
	}
}

func (p *Parser) parseConcat() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokAmp {
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = BinaryNode{Op: TokAmp, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case TokPlus, TokMinus:
			op := p.next()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = BinaryNode{Op: op.Kind, Left: left, Right: right}
			continue
		}
		return left, nil
	}
}

func (p *Parser) parseMultiplicative() (Node, error) {
	left, err := p.parseExponent()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case TokStar, TokSlash:
			op := p.next()
			right, err := p.parseExponent()
			if err != nil {
				return nil, err
			}
			left = BinaryNode{Op: op.Kind, Left: left, Right: right}
			continue
		}
		return left, nil
	}
}

// parseExponent is right-associative: a^b^c == a^(b^c).
func (p *Parser) parseExponent() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == TokCaret {
		p.next()
		right, err := p.parseExponent()
		if err != nil {
			return nil, err
		}
		return BinaryNode{Op: TokCaret, Left: left, Right: right}, nil
	}
	return left, nil
}

// parseUnary handles prefix +/- (binding tighter than ^, per spec.md's
// precedence list and Excel's actual -2^2 == 4 behaviour) then postfix %.
func (p *Parser) parseUnary() (Node, error) {
	switch p.peek().Kind {
	case TokPlus, TokMinus:
		op := p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryNode{Op: op.Kind, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Node, error) {
	n, err := p.parseReference()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == TokPercent {
		p.next()
		n = UnaryNode{Op: TokPercent, Operand: n, Postfix: true}
	}
	return n, nil
}

// parseReference handles the reference-operator trio ': space ,' (tightest
// to loosest among themselves, per spec.md). Union (',') only applies
// inside an explicit parenthesized sub-expression — see parseParenOrUnion
// in atom.go — so this level only handles ':' range-join and whitespace
// intersection.
func (p *Parser) parseReference() (Node, error) {
	left, err := p.parseRangeJoin()
	if err != nil {
		return nil, err
	}
	for {
		// Intersection: a Ref/Range directly followed by whitespace and
		// another Ref/Range-shaped atom, with no operator between.
		if p.rawAt(0).Kind == TokWhitespace && startsReferenceAtom(p.peekAfterWS()) {
			save := p.pos
			p.skipWS()
			right, err := p.parseRangeJoin()
			if err != nil {
				p.pos = save
				break
			}
			left = IntersectNode{Left: left, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) peekAfterWS() Token {
	i := p.pos
	for i < len(p.toks) && p.toks[i].Kind == TokWhitespace {
		i++
	}
	if i >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[i]
}

func startsReferenceAtom(t Token) bool {
	switch t.Kind {
	case TokRef, TokSheetQualifier, TokLParen:
		return true
	}
	return false
}

func (p *Parser) parseRangeJoin() (Node, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == TokColon {
		p.next()
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return joinRange(left, right)
	}
	return left, nil
}

func joinRange(left, right Node) (Node, error) {
	lr, lok := asRefLike(left)
	rr, rok := asRefLike(right)
	if !lok || !rok {
		return nil, xlerrors.FormulaParseError(0, "':' requires reference operands")
	}
	sheet := lr.Sheet
	if sheet == "" {
		sheet = rr.Sheet
	}
	return RangeNode{Sheet: sheet, TopLeft: lr.Ref, BottomRight: rr.Ref}, nil
}

type refLike struct {
	Sheet string
	Ref   ref.Ref
}

func asRefLike(n Node) (refLike, bool) {
	switch v := n.(type) {
	case RefNode:
		return refLike{Sheet: v.Sheet, Ref: v.Ref}, true
	case RangeNode:
		// A range on one side of ':' joins at its corners (rare, but
		// Excel accepts A1:B2:C3 forms via successive range extension).
		return refLike{Sheet: v.Sheet, Ref: v.TopLeft}, true
	}
	return refLike{}, false
}

// formatNode reconstructs formula text from an AST, used for
// re-serialization (idempotence tests) and FORMULATEXT.
func formatNode(n Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case NumberLit:
		b.WriteString(value.ToText(value.Number(v.Value)))
	case StringLit:
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(v.Value, `"`, `""`))
		b.WriteByte('"')
	case BoolLit:
		if v.Value {
			b.WriteString("TRUE")
		} else {
			b.WriteString("FALSE")
		}
	case ErrorLit:
		b.WriteString(v.Kind.Token())
	case RefNode:
		if v.Sheet != "" {
			b.WriteString(ref.QuoteSheetName(v.Sheet))
			b.WriteByte('!')
		}
		b.WriteString(v.Ref.String())
	case RangeNode:
		if v.Sheet != "" {
			b.WriteString(ref.QuoteSheetName(v.Sheet))
			b.WriteByte('!')
		}
		b.WriteString(v.TopLeft.String())
		b.WriteByte(':')
		b.WriteString(v.BottomRight.String())
	case NameNode:
		b.WriteString(v.Name)
	case UnaryNode:
		if v.Postfix {
			writeNode(b, v.Operand)
			b.WriteByte('%')
		} else {
			if v.Op == TokMinus {
				b.WriteByte('-')
			} else {
				b.WriteByte('+')
			}
			writeNode(b, v.Operand)
		}
	case BinaryNode:
		writeNode(b, v.Left)
		b.WriteString(opText(v.Op))
		writeNode(b, v.Right)
	case IntersectNode:
		writeNode(b, v.Left)
		b.WriteByte(' ')
		writeNode(b, v.Right)
	case UnionNode:
		b.WriteByte('(')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteByte(',')
			}
			writeNode(b, it)
		}
		b.WriteByte(')')
	case FuncCall:
		b.WriteString(v.Name)
		b.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			writeNode(b, a)
		}
		b.WriteByte(')')
	case ArrayLit:
		b.WriteByte('{')
		for i, row := range v.Rows {
			if i > 0 {
				b.WriteByte(';')
			}
			for j, it := range row {
				if j > 0 {
					b.WriteByte(',')
				}
				writeNode(b, it)
			}
		}
		b.WriteByte('}')
	}
}

func opText(k TokenKind) string {
	switch k {
	case TokPlus:
		return "+"
	case TokMinus:
		return "-"
	case TokStar:
		return "*"
	case TokSlash:
		return "/"
	case TokCaret:
		return "^"
	case TokAmp:
		return "&"
	case TokEq:
		return "="
	case TokNe:
		return "<>"
	case TokLt:
		return "<"
	case TokLe:
		return "<="
	case TokGt:
		return ">"
	case TokGe:
		return ">="
	}
	return "?"
}
