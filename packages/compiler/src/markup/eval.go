package markup

import (
	"fmt"
	"strconv"
	"strings"
)

// After substitution, every expression this backend sees should reduce to
// host-language literals and operators over them. This evaluator folds
// that subset with JS semantics (truthiness, string coercion on +); it is
// not a JS engine, and anything it cannot fold is a compile error in the
// static context, reported by the caller with the node path.

// ValueKind identifies the runtime type of a folded value.
type ValueKind int

const (
	ValNumber ValueKind = iota
	ValString
	ValBool
	ValNull
	ValUndefined
)

// Value is one folded literal value.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Bool bool
}

// Truthy reports JS truthiness: false, 0, "", null and undefined are
// falsy, everything else truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case ValNumber:
		return v.Num != 0
	case ValString:
		return v.Str != ""
	case ValBool:
		return v.Bool
	}
	return false
}

// Text returns the value's string form as the DOM would coerce it.
func (v Value) Text() string {
	switch v.Kind {
	case ValNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValString:
		return v.Str
	case ValBool:
		return strconv.FormatBool(v.Bool)
	case ValNull:
		return "null"
	}
	return "undefined"
}

// Absent reports whether the value is the "no value" sentinel: attributes
// resolving to it are omitted entirely.
func (v Value) Absent() bool {
	return v.Kind == ValNull || v.Kind == ValUndefined
}

// Eval folds a substituted expression into a single literal value.
func Eval(expr string) (Value, error) {
	p := &evalParser{src: expr}
	v, err := p.ternary()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Value{}, fmt.Errorf("unexpected %q", p.src[p.pos:])
	}
	return v, nil
}

type evalParser struct {
	src string
	pos int
}

func (p *evalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *evalParser) peekOp(ops ...string) string {
	p.skipSpace()
	rest := p.src[p.pos:]
	for _, op := range ops {
		if strings.HasPrefix(rest, op) {
			return op
		}
	}
	return ""
}

func (p *evalParser) takeOp(ops ...string) string {
	op := p.peekOp(ops...)
	p.pos += len(op)
	return op
}

func (p *evalParser) ternary() (Value, error) {
	cond, err := p.nullish()
	if err != nil {
		return Value{}, err
	}
	// "?." and "??" must not be mistaken for the ternary question mark.
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '?' ||
		(p.pos+1 < len(p.src) && (p.src[p.pos+1] == '?' || p.src[p.pos+1] == '.')) {
		return cond, nil
	}
	p.pos++
	whenTrue, err := p.ternary()
	if err != nil {
		return Value{}, err
	}
	if p.takeOp(":") == "" {
		return Value{}, fmt.Errorf("expected ':' in conditional expression")
	}
	whenFalse, err := p.ternary()
	if err != nil {
		return Value{}, err
	}
	if cond.Truthy() {
		return whenTrue, nil
	}
	return whenFalse, nil
}

func (p *evalParser) nullish() (Value, error) {
	left, err := p.logicalOr()
	if err != nil {
		return Value{}, err
	}
	for p.takeOp("??") != "" {
		right, err := p.logicalOr()
		if err != nil {
			return Value{}, err
		}
		if left.Absent() {
			left = right
		}
	}
	return left, nil
}

func (p *evalParser) logicalOr() (Value, error) {
	left, err := p.logicalAnd()
	if err != nil {
		return Value{}, err
	}
	for p.peekOp("||") != "" {
		p.takeOp("||")
		right, err := p.logicalAnd()
		if err != nil {
			return Value{}, err
		}
		if !left.Truthy() {
			left = right
		}
	}
	return left, nil
}

func (p *evalParser) logicalAnd() (Value, error) {
	left, err := p.equality()
	if err != nil {
		return Value{}, err
	}
	for p.peekOp("&&") != "" {
		p.takeOp("&&")
		right, err := p.equality()
		if err != nil {
			return Value{}, err
		}
		if left.Truthy() {
			left = right
		}
	}
	return left, nil
}

func (p *evalParser) equality() (Value, error) {
	left, err := p.relational()
	if err != nil {
		return Value{}, err
	}
	for {
		op := p.takeOp("===", "!==", "==", "!=")
		if op == "" {
			return left, nil
		}
		right, err := p.relational()
		if err != nil {
			return Value{}, err
		}
		eq := left.Kind == right.Kind && left.Text() == right.Text()
		if op == "==" || op == "!=" {
			// Loose equality over literals: compare text forms, with
			// null and undefined equal to each other.
			eq = left.Text() == right.Text() || (left.Absent() && right.Absent())
		}
		if op == "!==" || op == "!=" {
			eq = !eq
		}
		left = Value{Kind: ValBool, Bool: eq}
	}
}

func (p *evalParser) relational() (Value, error) {
	left, err := p.additive()
	if err != nil {
		return Value{}, err
	}
	for {
		op := p.takeOp("<=", ">=", "<", ">")
		if op == "" {
			return left, nil
		}
		right, err := p.additive()
		if err != nil {
			return Value{}, err
		}
		var result bool
		if left.Kind == ValString && right.Kind == ValString {
			switch op {
			case "<":
				result = left.Str < right.Str
			case "<=":
				result = left.Str <= right.Str
			case ">":
				result = left.Str > right.Str
			case ">=":
				result = left.Str >= right.Str
			}
		} else {
			l, r := left.Num, right.Num
			switch op {
			case "<":
				result = l < r
			case "<=":
				result = l <= r
			case ">":
				result = l > r
			case ">=":
				result = l >= r
			}
		}
		left = Value{Kind: ValBool, Bool: result}
	}
}

func (p *evalParser) additive() (Value, error) {
	left, err := p.multiplicative()
	if err != nil {
		return Value{}, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return left, nil
		}
		ch := p.src[p.pos]
		if ch != '+' && ch != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.multiplicative()
		if err != nil {
			return Value{}, err
		}
		if ch == '+' {
			if left.Kind == ValString || right.Kind == ValString {
				left = Value{Kind: ValString, Str: left.Text() + right.Text()}
			} else {
				left = Value{Kind: ValNumber, Num: left.Num + right.Num}
			}
		} else {
			left = Value{Kind: ValNumber, Num: left.Num - right.Num}
		}
	}
}

func (p *evalParser) multiplicative() (Value, error) {
	left, err := p.unary()
	if err != nil {
		return Value{}, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return left, nil
		}
		ch := p.src[p.pos]
		if ch != '*' && ch != '/' && ch != '%' {
			return left, nil
		}
		p.pos++
		right, err := p.unary()
		if err != nil {
			return Value{}, err
		}
		switch ch {
		case '*':
			left = Value{Kind: ValNumber, Num: left.Num * right.Num}
		case '/':
			left = Value{Kind: ValNumber, Num: left.Num / right.Num}
		case '%':
			if right.Num != 0 {
				left = Value{Kind: ValNumber, Num: float64(int64(left.Num) % int64(right.Num))}
			} else {
				left = Value{Kind: ValNumber, Num: 0}
			}
		}
	}
}

func (p *evalParser) unary() (Value, error) {
	p.skipSpace()
	if p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '!':
			p.pos++
			v, err := p.unary()
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: ValBool, Bool: !v.Truthy()}, nil
		case '-':
			p.pos++
			v, err := p.unary()
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: ValNumber, Num: -v.Num}, nil
		case '+':
			p.pos++
			v, err := p.unary()
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: ValNumber, Num: v.Num}, nil
		}
	}
	return p.primary()
}

func (p *evalParser) primary() (Value, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return Value{}, fmt.Errorf("unexpected end of expression")
	}

	ch := p.src[p.pos]

	if ch == '(' {
		p.pos++
		v, err := p.ternary()
		if err != nil {
			return Value{}, err
		}
		if p.takeOp(")") == "" {
			return Value{}, fmt.Errorf("expected ')'")
		}
		return v, nil
	}

	if ch == '\'' || ch == '"' || ch == '`' {
		return p.stringLit(ch)
	}

	if ch >= '0' && ch <= '9' || (ch == '.' && p.pos+1 < len(p.src) && p.src[p.pos+1] >= '0' && p.src[p.pos+1] <= '9') {
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
			p.pos++
		}
		n, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return Value{}, fmt.Errorf("malformed number %q", p.src[start:p.pos])
		}
		return Value{Kind: ValNumber, Num: n}, nil
	}

	if isWordStart(ch) {
		start := p.pos
		for p.pos < len(p.src) && isWordPart(p.src[p.pos]) {
			p.pos++
		}
		switch p.src[start:p.pos] {
		case "true":
			return Value{Kind: ValBool, Bool: true}, nil
		case "false":
			return Value{Kind: ValBool, Bool: false}, nil
		case "null":
			return Value{Kind: ValNull}, nil
		case "undefined":
			return Value{Kind: ValUndefined}, nil
		}
		return Value{}, fmt.Errorf("%q does not resolve to a literal", p.src[start:p.pos])
	}

	return Value{}, fmt.Errorf("unexpected %q", string(ch))
}

func (p *evalParser) stringLit(quote byte) (Value, error) {
	p.pos++
	var out strings.Builder
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		if ch == '\\' && p.pos+1 < len(p.src) {
			next := p.src[p.pos+1]
			switch next {
			case 'n':
				out.WriteByte('\n')
			case 't':
				out.WriteByte('\t')
			default:
				out.WriteByte(next)
			}
			p.pos += 2
			continue
		}
		if ch == quote {
			p.pos++
			return Value{Kind: ValString, Str: out.String()}, nil
		}
		if quote == '`' && ch == '$' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '{' {
			return Value{}, fmt.Errorf("template literal with holes does not resolve to a literal")
		}
		out.WriteByte(ch)
		p.pos++
	}
	return Value{}, fmt.Errorf("unterminated string literal")
}

func isWordStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isWordPart(ch byte) bool {
	return isWordStart(ch) || (ch >= '0' && ch <= '9')
}
