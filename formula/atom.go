package formula

import (
	"strings"

	"github.com/openxlgo/xlcore/ref"
	"github.com/openxlgo/xlcore/xlerrors"
)

// parseAtom parses the highest-precedence grammar rule: literals,
// references, function calls, parenthesized (possibly union)
// expressions, and array literals.
func (p *Parser) parseAtom() (Node, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokNumber:
		p.next()
		return NumberLit{Value: tok.Num}, nil

	case TokString:
		p.next()
		return StringLit{Value: tok.Text}, nil

	case TokBoolean:
		p.next()
		return BoolLit{Value: tok.Bool}, nil

	case TokErrorLiteral:
		p.next()
		return ErrorLit{Kind: tok.Err}, nil

	case TokRef:
		p.next()
		r, err := ref.ParseRef(tok.Text)
		if err != nil {
			return nil, xlerrors.FormulaParseError(tok.Pos, "invalid reference "+tok.Text)
		}
		return RefNode{Ref: r}, nil

	case TokSheetQualifier:
		return p.parseSheetQualifiedRef()

	case TokFunctionName:
		return p.parseFuncCall()

	case TokIdent:
		p.next()
		return NameNode{Name: tok.Text}, nil

	case TokLParen:
		return p.parseParenOrUnion()

	case TokLBrace:
		return p.parseArrayLit()

	case TokMinus, TokPlus:
		// Unary inside a tighter context than parseUnary dispatched from
		// (e.g. as a function argument) — delegate back up.
		return p.parseUnary()

	default:
		return nil, xlerrors.FormulaParseError(tok.Pos, "unexpected token "+tok.Text)
	}
}

func (p *Parser) parseSheetQualifiedRef() (Node, error) {
	sheetTok := p.next() // TokSheetQualifier
	sheet := sheetTok.Text
	if _, err := p.expect(TokBang, "'!'"); err != nil {
		return nil, err
	}
	refTok, err := p.expect(TokRef, "cell reference")
	if err != nil {
		return nil, err
	}
	r1, err := ref.ParseRef(refTok.Text)
	if err != nil {
		return nil, xlerrors.FormulaParseError(refTok.Pos, "invalid reference "+refTok.Text)
	}
	if p.peek().Kind == TokColon {
		p.next()
		refTok2, err := p.expect(TokRef, "range end reference")
		if err != nil {
			return nil, err
		}
		r2, err := ref.ParseRef(refTok2.Text)
		if err != nil {
			return nil, xlerrors.FormulaParseError(refTok2.Pos, "invalid reference "+refTok2.Text)
		}
		return RangeNode{Sheet: sheet, TopLeft: r1, BottomRight: r2}, nil
	}
	return RefNode{Sheet: sheet, Ref: r1}, nil
}

func (p *Parser) parseFuncCall() (Node, error) {
	nameTok := p.next() // TokFunctionName
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return nil, err
	}
	var args []Node
	if p.peek().Kind != TokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().Kind == TokComma {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return nil, err
	}
	return FuncCall{Name: strings.ToUpper(nameTok.Text), Args: args}, nil
}

// parseParenOrUnion parses "(" expr ("," expr)* ")". A single expression
// is just a grouping parenthesis; more than one, comma-separated, forms
// the reference union operator (spec.md §4.9/§8 "Union uses ','").
func (p *Parser) parseParenOrUnion() (Node, error) {
	p.next() // consume '('
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != TokComma {
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return nil, err
		}
		return first, nil
	}
	items := []Node{first}
	for p.peek().Kind == TokComma {
		p.next()
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return nil, err
	}
	return UnionNode{Items: items}, nil
}

// parseArrayLit parses "{" row (";" row)* "}" where row is a
// comma-separated list of (typically literal) expressions.
func (p *Parser) parseArrayLit() (Node, error) {
	p.next() // consume '{'
	var rows [][]Node
	row, err := p.parseArrayRow()
	if err != nil {
		return nil, err
	}
	rows = append(rows, row)
	for p.peek().Kind == TokSemicolon {
		p.next()
		row, err := p.parseArrayRow()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return ArrayLit{Rows: rows}, nil
}

func (p *Parser) parseArrayRow() ([]Node, error) {
	var items []Node
	for {
		n, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
		if p.peek().Kind == TokComma {
			p.next()
			continue
		}
		break
	}
	return items, nil
}
