package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/strata/internal/queryir"
	"github.com/roach88/strata/value"
)

// Parse compiles a SQL string to its queryir form and validates it.
func Parse(sql string) (*queryir.Select, error) {
	p := &parser{lex: lexer{src: sql}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	sel, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errHere("trailing input %q", p.tok.text)
	}
	if err := queryir.Validate(sel); err != nil {
		return nil, err
	}
	return sel, nil
}

type parser struct {
	lex          lexer
	tok          token
	placeholders int
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errHere(format string, args ...any) error {
	return fmt.Errorf("sql position %d: %s", p.tok.pos, fmt.Sprintf(format, args...))
}

func (p *parser) expectKeyword(kw string) error {
	if !p.tok.keyword(kw) {
		return p.errHere("expected %s, got %q", kw, p.tok.text)
	}
	return p.advance()
}

func (p *parser) expectSymbol(sym string) error {
	if p.tok.kind != tokSymbol || p.tok.text != sym {
		return p.errHere("expected %q, got %q", sym, p.tok.text)
	}
	return p.advance()
}

func (p *parser) parseSelect() (*queryir.Select, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	sel := &queryir.Select{Limit: -1}
	for {
		col, err := p.parseSelectColumn()
		if err != nil {
			return nil, err
		}
		sel.Columns = append(sel.Columns, col)
		if p.tok.kind == tokSymbol && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	if p.tok.kind != tokIdent && p.tok.kind != tokQuotedIdent {
		return nil, p.errHere("expected table name, got %q", p.tok.text)
	}
	sel.From = p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.tok.keyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		for {
			pred, err := p.parsePredicate()
			if err != nil {
				return nil, err
			}
			sel.Where = append(sel.Where, pred)
			if p.tok.keyword("AND") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}

	if p.tok.keyword("ORDER") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		if p.tok.kind != tokIdent && p.tok.kind != tokQuotedIdent {
			return nil, p.errHere("expected ORDER BY column, got %q", p.tok.text)
		}
		ob := &queryir.OrderBy{Column: p.tok.text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch {
		case p.tok.keyword("ASC"):
			if err := p.advance(); err != nil {
				return nil, err
			}
		case p.tok.keyword("DESC"):
			ob.Desc = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		sel.OrderBy = ob
	}

	if p.tok.keyword("LIMIT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseNonNegativeInt("LIMIT")
		if err != nil {
			return nil, err
		}
		sel.Limit = n
		if p.tok.keyword("OFFSET") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			off, err := p.parseNonNegativeInt("OFFSET")
			if err != nil {
				return nil, err
			}
			sel.Offset = off
		}
	}

	return sel, nil
}

var aggKeywords = map[string]queryir.Agg{
	"COUNT": queryir.AggCount,
	"SUM":   queryir.AggSum,
	"MIN":   queryir.AggMin,
	"MAX":   queryir.AggMax,
	"AVG":   queryir.AggAvg,
}

func (p *parser) parseSelectColumn() (queryir.SelectColumn, error) {
	if p.tok.kind == tokSymbol && p.tok.text == "*" {
		if err := p.advance(); err != nil {
			return queryir.SelectColumn{}, err
		}
		return queryir.SelectColumn{Star: true}, nil
	}

	if p.tok.kind == tokIdent {
		if agg, ok := aggKeywords[strings.ToUpper(p.tok.text)]; ok {
			name := p.tok.text
			if err := p.advance(); err != nil {
				return queryir.SelectColumn{}, err
			}
			// A bare identifier that happens to spell an aggregate name is
			// a column unless a parenthesis follows.
			if p.tok.kind == tokSymbol && p.tok.text == "(" {
				if err := p.advance(); err != nil {
					return queryir.SelectColumn{}, err
				}
				col := queryir.SelectColumn{Agg: agg}
				if p.tok.kind == tokSymbol && p.tok.text == "*" {
					col.Star = true
					if err := p.advance(); err != nil {
						return queryir.SelectColumn{}, err
					}
				} else if p.tok.kind == tokIdent || p.tok.kind == tokQuotedIdent {
					col.Name = p.tok.text
					if err := p.advance(); err != nil {
						return queryir.SelectColumn{}, err
					}
				} else {
					return queryir.SelectColumn{}, p.errHere("expected column or * in %s(), got %q", agg, p.tok.text)
				}
				if err := p.expectSymbol(")"); err != nil {
					return queryir.SelectColumn{}, err
				}
				return col, nil
			}
			return queryir.SelectColumn{Name: name}, nil
		}
	}

	if p.tok.kind == tokIdent || p.tok.kind == tokQuotedIdent {
		col := queryir.SelectColumn{Name: p.tok.text}
		if err := p.advance(); err != nil {
			return queryir.SelectColumn{}, err
		}
		return col, nil
	}

	return queryir.SelectColumn{}, p.errHere("expected select column, got %q", p.tok.text)
}

func (p *parser) parsePredicate() (queryir.Predicate, error) {
	if p.tok.kind != tokIdent && p.tok.kind != tokQuotedIdent {
		return queryir.Predicate{}, p.errHere("expected column name, got %q", p.tok.text)
	}
	pred := queryir.Predicate{Column: p.tok.text}
	if err := p.advance(); err != nil {
		return queryir.Predicate{}, err
	}

	if p.tok.keyword("BETWEEN") {
		if err := p.advance(); err != nil {
			return queryir.Predicate{}, err
		}
		lo, err := p.parseExpr()
		if err != nil {
			return queryir.Predicate{}, err
		}
		if err := p.expectKeyword("AND"); err != nil {
			return queryir.Predicate{}, err
		}
		hi, err := p.parseExpr()
		if err != nil {
			return queryir.Predicate{}, err
		}
		pred.Op = queryir.OpBetween
		pred.Value = lo
		pred.Hi = hi
		return pred, nil
	}

	if p.tok.kind != tokSymbol {
		return queryir.Predicate{}, p.errHere("expected comparison operator, got %q", p.tok.text)
	}
	switch p.tok.text {
	case "=":
		pred.Op = queryir.OpEq
	case "<":
		pred.Op = queryir.OpLt
	case "<=":
		pred.Op = queryir.OpLe
	case ">":
		pred.Op = queryir.OpGt
	case ">=":
		pred.Op = queryir.OpGe
	default:
		return queryir.Predicate{}, p.errHere("unsupported operator %q", p.tok.text)
	}
	if err := p.advance(); err != nil {
		return queryir.Predicate{}, err
	}

	expr, err := p.parseExpr()
	if err != nil {
		return queryir.Predicate{}, err
	}
	pred.Value = expr
	return pred, nil
}

func (p *parser) parseExpr() (queryir.Expr, error) {
	switch {
	case p.tok.kind == tokPlaceholder:
		e := queryir.Expr{Placeholder: true, Index: p.placeholders}
		p.placeholders++
		return e, p.advance()

	case p.tok.kind == tokString:
		e := queryir.Expr{Literal: value.String(p.tok.text)}
		return e, p.advance()

	case p.tok.kind == tokNumber:
		return p.parseNumber(false)

	case p.tok.kind == tokSymbol && p.tok.text == "-":
		if err := p.advance(); err != nil {
			return queryir.Expr{}, err
		}
		if p.tok.kind != tokNumber {
			return queryir.Expr{}, p.errHere("expected number after -, got %q", p.tok.text)
		}
		return p.parseNumber(true)

	case p.tok.keyword("TRUE"):
		return queryir.Expr{Literal: value.Bool(true)}, p.advance()
	case p.tok.keyword("FALSE"):
		return queryir.Expr{Literal: value.Bool(false)}, p.advance()
	case p.tok.keyword("NULL"):
		return queryir.Expr{Literal: value.Null{}}, p.advance()
	}
	return queryir.Expr{}, p.errHere("expected value, got %q", p.tok.text)
}

func (p *parser) parseNumber(neg bool) (queryir.Expr, error) {
	text := p.tok.text
	if neg {
		text = "-" + text
	}
	if strings.Contains(text, ".") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return queryir.Expr{}, p.errHere("bad number %q", text)
		}
		return queryir.Expr{Literal: value.Float64(f)}, p.advance()
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return queryir.Expr{}, p.errHere("bad number %q", text)
	}
	return queryir.Expr{Literal: value.Int64(i)}, p.advance()
}

func (p *parser) parseNonNegativeInt(clause string) (int64, error) {
	if p.tok.kind != tokNumber {
		return 0, p.errHere("expected %s count, got %q", clause, p.tok.text)
	}
	n, err := strconv.ParseInt(p.tok.text, 10, 64)
	if err != nil || n < 0 {
		return 0, p.errHere("bad %s count %q", clause, p.tok.text)
	}
	return n, p.advance()
}
