package parser

import (
	"github.com/nrktql/fileql/expr"
)

// Parse parses a single SELECT statement and returns its AST. On
// any syntax error it returns a *ParseError and a nil Select;
// partial results are never returned.
func Parse(sql string) (*expr.Select, error) {
	p := &parser{lex: newLexer(sql)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	sel, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tEOF {
		return nil, p.errorf("unexpected trailing input")
	}
	return sel, nil
}

// Sources scans sql's token stream, without building an AST, for
// the single-quoted source paths named by the FROM clause and any
// JOINs, in appearance order. Callers use it to resolve and open
// readers for a query's sources before the full parse/plan cycle
// runs; a syntax error past the last source still yields the
// sources scanned so far, alongside the error.
func Sources(sql string) ([]string, error) {
	lex := newLexer(sql)
	var out []string
	inList := false // between FROM and the next clause keyword
	expect := false // the next string literal names a source
	for {
		t, err := lex.next()
		if err != nil {
			return out, err
		}
		switch t.kind {
		case tEOF:
			return out, nil
		case tKeyword:
			switch t.text {
			case "FROM":
				inList, expect = true, true
			case "JOIN":
				expect = true
			case "WHERE", "GROUP", "ORDER", "LIMIT", "ON":
				inList, expect = false, false
			}
		case tComma:
			if inList {
				expect = true
			}
		case tString:
			if expect {
				out = append(out, t.text)
				expect = false
			}
		case tIdent:
			if expect {
				// a bare-identifier source; its alias (if any) is
				// also an identifier and harmlessly re-clears expect
				expect = false
			}
		}
	}
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) errorf(format string, args ...any) error {
	return p.lex.errorf(p.tok.pos, format, args...)
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) isKeyword(kw string) bool {
	return p.tok.kind == tKeyword && p.tok.text == kw
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return p.errorf("expected %s", kw)
	}
	return p.advance()
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.tok.kind != k {
		return token{}, p.errorf("expected %s", what)
	}
	t := p.tok
	return t, p.advance()
}

func (p *parser) parseSelect() (*expr.Select, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	sel := &expr.Select{}
	if p.tok.kind == tStar {
		sel.Star = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		cols, err := p.parseProjectionList()
		if err != nil {
			return nil, err
		}
		sel.Columns = cols
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	sel.From = from

	for {
		kind, ok, err := p.tryJoinKind()
		if err != nil {
			return nil, err
		}
		if !ok {
			if p.tok.kind == tComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				t, err := p.parseTableRef()
				if err != nil {
					return nil, err
				}
				sel.Joins = append(sel.Joins, expr.Join{Kind: expr.CrossJoin, Table: t})
				continue
			}
			break
		}
		table, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}
		var on expr.Node
		if kind != expr.CrossJoin {
			if err := p.expectKeyword("ON"); err != nil {
				return nil, err
			}
			on, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		sel.Joins = append(sel.Joins, expr.Join{Kind: kind, Table: table, On: on})
	}

	if p.isKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Where = w
	}

	if p.isKeyword("GROUP") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		cols, err := p.parseColumnRefList()
		if err != nil {
			return nil, err
		}
		sel.GroupBy = cols
	}

	if p.isKeyword("ORDER") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		keys, err := p.parseSortKeys()
		if err != nil {
			return nil, err
		}
		sel.OrderBy = keys
	}

	if p.isKeyword("LIMIT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		t, err := p.expect(tInt, "integer")
		if err != nil {
			return nil, err
		}
		n, err := parseIntLiteral(t.text)
		if err != nil {
			return nil, p.lex.errorf(t.pos, "invalid LIMIT value")
		}
		sel.Limit = &n
	}

	return sel, nil
}

func (p *parser) tryJoinKind() (expr.JoinKind, bool, error) {
	switch {
	case p.isKeyword("JOIN"):
		return expr.InnerJoin, true, p.advance()
	case p.isKeyword("INNER"):
		if err := p.advance(); err != nil {
			return 0, false, err
		}
		return expr.InnerJoin, true, p.expectKeyword("JOIN")
	case p.isKeyword("LEFT"):
		if err := p.advance(); err != nil {
			return 0, false, err
		}
		return expr.LeftJoin, true, p.expectKeyword("JOIN")
	case p.isKeyword("RIGHT"):
		if err := p.advance(); err != nil {
			return 0, false, err
		}
		return expr.RightJoin, true, p.expectKeyword("JOIN")
	case p.isKeyword("FULL"):
		if err := p.advance(); err != nil {
			return 0, false, err
		}
		return expr.FullJoin, true, p.expectKeyword("JOIN")
	default:
		return 0, false, nil
	}
}

func (p *parser) parseTableRef() (expr.TableRef, error) {
	var ref expr.TableRef
	switch p.tok.kind {
	case tIdent:
		ref.Source = p.tok.text
		if err := p.advance(); err != nil {
			return ref, err
		}
	case tString:
		ref.Source = p.tok.text
		if err := p.advance(); err != nil {
			return ref, err
		}
	default:
		return ref, p.errorf("expected table reference")
	}
	if p.isKeyword("AS") {
		if err := p.advance(); err != nil {
			return ref, err
		}
		t, err := p.expect(tIdent, "alias")
		if err != nil {
			return ref, err
		}
		ref.Alias = t.text
	} else if p.tok.kind == tIdent {
		ref.Alias = p.tok.text
		if err := p.advance(); err != nil {
			return ref, err
		}
	}
	return ref, nil
}

func (p *parser) parseProjectionList() ([]expr.Binding, error) {
	var out []expr.Binding
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		b := expr.Bind(e, "")
		if p.isKeyword("AS") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			t, err := p.expect(tIdent, "column alias")
			if err != nil {
				return nil, err
			}
			b.As(t.text)
		}
		out = append(out, b)
		if p.tok.kind != tComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *parser) parseColumnRefList() ([]*expr.Column, error) {
	var out []*expr.Column
	for {
		c, err := p.parseColumnRef()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		if p.tok.kind != tComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *parser) parseSortKeys() ([]expr.SortKey, error) {
	var out []expr.SortKey
	for {
		c, err := p.parseColumnRef()
		if err != nil {
			return nil, err
		}
		key := expr.SortKey{Column: c}
		if p.isKeyword("ASC") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else if p.isKeyword("DESC") {
			key.Desc = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		out = append(out, key)
		if p.tok.kind != tComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *parser) parseColumnRef() (*expr.Column, error) {
	t, err := p.expect(tIdent, "column reference")
	if err != nil {
		return nil, err
	}
	c := &expr.Column{Name: t.text}
	if p.tok.kind == tDot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		t2, err := p.expect(tIdent, "column name")
		if err != nil {
			return nil, err
		}
		c.Table, c.Name = c.Name, t2.text
	}
	return c, nil
}

// Expression grammar, weakest binding first:
//
//	expr   := orExpr
//	orExpr := andExpr ("OR" andExpr)*
//	andExpr:= notExpr ("AND" notExpr)*
//	notExpr:= "NOT" notExpr | cmpExpr
//	cmpExpr:= addExpr (cmpOp addExpr | "IS" "NOT"? "NULL")?
//	addExpr:= mulExpr (("+"|"-") mulExpr)*
//	mulExpr:= primary (("*"|"/") primary)*
func (p *parser) parseExpr() (expr.Node, error) { return p.parseOr() }

func (p *parser) parseOr() (expr.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = expr.Or(left, right)
	}
	return left, nil
}

func (p *parser) parseAnd() (expr.Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = expr.And(left, right)
	}
	return left, nil
}

func (p *parser) parseNot() (expr.Node, error) {
	if p.isKeyword("NOT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &expr.Not{Expr: inner}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (expr.Node, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	if p.isKeyword("IS") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		not := false
		if p.isKeyword("NOT") {
			not = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		return &expr.IsNull{Expr: left, Not: not}, nil
	}
	op, ok := cmpOpFor(p.tok.kind)
	if !ok {
		return left, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	return expr.Compare(op, left, right), nil
}

func cmpOpFor(k tokenKind) (expr.CmpOp, bool) {
	switch k {
	case tEq:
		return expr.Equals, true
	case tNeq:
		return expr.NotEquals, true
	case tLt:
		return expr.Less, true
	case tLe:
		return expr.LessEquals, true
	case tGt:
		return expr.Greater, true
	case tGe:
		return expr.GreaterEquals, true
	default:
		return 0, false
	}
}

func (p *parser) parseAdd() (expr.Node, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tPlus || p.tok.kind == tMinus {
		op := expr.OpAdd
		if p.tok.kind == tMinus {
			op = expr.OpSub
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &expr.Arith{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMul() (expr.Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tStar || p.tok.kind == tSlash {
		op := expr.OpMul
		if p.tok.kind == tSlash {
			op = expr.OpDiv
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &expr.Arith{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePrimary() (expr.Node, error) {
	switch p.tok.kind {
	case tLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	case tMinus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &expr.Arith{Op: expr.OpSub, Left: expr.Integer(0), Right: e}, nil
	case tInt:
		n, err := parseIntLiteral(p.tok.text)
		if err != nil {
			return nil, p.errorf("invalid integer literal")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr.Integer(n), nil
	case tFloat:
		f, err := parseFloatLiteral(p.tok.text)
		if err != nil {
			return nil, p.errorf("invalid float literal")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr.Float(f), nil
	case tString:
		s := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr.String(s), nil
	case tKeyword:
		switch p.tok.text {
		case "TRUE":
			return expr.Bool(true), p.advance()
		case "FALSE":
			return expr.Bool(false), p.advance()
		case "NULL":
			return expr.Null{}, p.advance()
		case "COUNT", "SUM", "AVG", "MIN", "MAX":
			return p.parseAggregate()
		}
		return nil, p.errorf("unexpected keyword %s", p.tok.text)
	case tIdent:
		return p.parseColumnOrQualified()
	default:
		return nil, p.errorf("unexpected token in expression")
	}
}

func (p *parser) parseAggregate() (expr.Node, error) {
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tLParen, "("); err != nil {
		return nil, err
	}
	var agg *expr.Aggregate
	if name == "COUNT" && p.tok.kind == tStar {
		if err := p.advance(); err != nil {
			return nil, err
		}
		agg = expr.CountStar()
	} else {
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		switch name {
		case "COUNT":
			agg = expr.Count(inner)
		case "SUM":
			agg = expr.Sum(inner)
		case "AVG":
			agg = expr.Avg(inner)
		case "MIN":
			agg = expr.Min(inner)
		case "MAX":
			agg = expr.Max(inner)
		}
	}
	if _, err := p.expect(tRParen, ")"); err != nil {
		return nil, err
	}
	return agg, nil
}

func (p *parser) parseColumnOrQualified() (expr.Node, error) {
	first := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tDot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tStar {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return expr.Star{}, nil
		}
		t, err := p.expect(tIdent, "column name")
		if err != nil {
			return nil, err
		}
		return &expr.Column{Table: first, Name: t.text}, nil
	}
	return &expr.Column{Name: first}, nil
}
