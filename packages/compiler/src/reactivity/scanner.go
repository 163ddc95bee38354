package reactivity

// The scanner understands just enough of the host expression grammar to
// find cell reads and top-level operators without being fooled by string
// literals. Expressions arrive already syntactically valid (the front-end
// parser guarantees that), so error recovery is not a concern here; the
// same assumption is made by the template scanner in tmplx.

// codeMask returns a per-byte mask that is true where src is code and
// false inside string literals. The interior of a template literal is not
// code, but the expressions inside its ${...} holes are.
func codeMask(src string) []bool {
	mask := make([]bool, len(src))

	const (
		stCode = iota
		stSingle
		stDouble
		stTemplate
	)

	state := stCode
	// Each entry is the brace depth of one nested ${...} hole; holes can
	// contain further template literals.
	var holes []int

	for i := 0; i < len(src); i++ {
		ch := src[i]
		switch state {
		case stCode:
			mask[i] = true
			switch ch {
			case '\'':
				state = stSingle
				mask[i] = false
			case '"':
				state = stDouble
				mask[i] = false
			case '`':
				state = stTemplate
				mask[i] = false
			case '{':
				if len(holes) > 0 {
					holes[len(holes)-1]++
				}
			case '}':
				if len(holes) > 0 {
					holes[len(holes)-1]--
					if holes[len(holes)-1] == 0 {
						holes = holes[:len(holes)-1]
						state = stTemplate
						mask[i] = false
					}
				}
			}
		case stSingle:
			if ch == '\\' {
				i++
				continue
			}
			if ch == '\'' {
				state = stCode
			}
		case stDouble:
			if ch == '\\' {
				i++
				continue
			}
			if ch == '"' {
				state = stCode
			}
		case stTemplate:
			if ch == '\\' {
				i++
				continue
			}
			if ch == '`' {
				state = stCode
			} else if ch == '$' && i+1 < len(src) && src[i+1] == '{' {
				holes = append(holes, 1)
				state = stCode
				i++
			}
		}
	}

	return mask
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

// read is one identifier occurrence in code context.
type read struct {
	start int
	end   int // exclusive end of the identifier
	// callEnd is the exclusive end of a zero-argument call "()" directly
	// following the identifier, or -1 when the identifier is not read as
	// a cell.
	callEnd int
	// member is true when the identifier is a property access (preceded
	// by '.'), which is never a cell read.
	member bool
}

// scanReads returns every identifier occurrence in src, left to right.
func scanReads(src string) []read {
	mask := codeMask(src)
	var reads []read

	for i := 0; i < len(src); {
		if !mask[i] || !isIdentStart(src[i]) {
			i++
			continue
		}
		start := i
		for i < len(src) && mask[i] && isIdentPart(src[i]) {
			i++
		}
		r := read{start: start, end: i, callEnd: -1}

		// A preceding '.' (or identifier byte, for safety) makes this a
		// member access, not a bare read.
		for j := start - 1; j >= 0; j-- {
			if src[j] == ' ' || src[j] == '\t' || src[j] == '\n' {
				continue
			}
			if src[j] == '.' {
				r.member = true
			}
			break
		}

		// Look for a directly following zero-argument call.
		j := i
		for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
			j++
		}
		if j < len(src) && src[j] == '(' {
			k := j + 1
			for k < len(src) && (src[k] == ' ' || src[k] == '\t') {
				k++
			}
			if k < len(src) && src[k] == ')' {
				r.callEnd = k + 1
			}
		}

		reads = append(reads, r)
	}

	return reads
}

// topLevelAndSplits returns the byte offsets of every "&&" at paren,
// bracket and brace depth zero in code context.
func topLevelAndSplits(src string) []int {
	mask := codeMask(src)
	depth := 0
	var splits []int

	for i := 0; i < len(src); i++ {
		if !mask[i] {
			continue
		}
		switch src[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '&':
			if depth == 0 && i+1 < len(src) && src[i+1] == '&' && mask[i+1] {
				// Skip "&&&" (bitwise-and of a logical-and) and "&&="
				if i+2 < len(src) && (src[i+2] == '&' || src[i+2] == '=') {
					i += 2
					continue
				}
				splits = append(splits, i)
				i++
			}
		}
	}

	return splits
}

// ReplaceIdent replaces every bare occurrence of the identifier from with
// to, leaving member accesses and string contents untouched. The render
// backend uses it to rename the author's loop index to the private index
// binding.
func ReplaceIdent(src, from, to string) string {
	if from == "" || from == to {
		return src
	}
	var out []byte
	last := 0
	for _, r := range scanReads(src) {
		if r.member || src[r.start:r.end] != from {
			continue
		}
		out = append(out, src[last:r.start]...)
		out = append(out, to...)
		last = r.end
	}
	out = append(out, src[last:]...)
	return string(out)
}

// SplitArrow splits an arrow-function expression into its parameter list
// and body at the first top-level "=>". ok is false when src is not an
// arrow function.
func SplitArrow(src string) (params, body string, ok bool) {
	mask := codeMask(src)
	depth := 0
	for i := 0; i+1 < len(src); i++ {
		if !mask[i] {
			continue
		}
		switch src[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth == 0 && src[i+1] == '>' && mask[i+1] {
				return trim(src[:i]), trim(src[i+2:]), true
			}
		}
	}
	return "", "", false
}

// GuardedCall recognizes a handler body of the shape "cond && action"
// where action is the final top-level operand and is a call. The client
// backend rewrites such bodies into an explicit if statement so side
// effects stay guarded exactly as the source intended.
func GuardedCall(body string) (guard string, call string, ok bool) {
	splits := topLevelAndSplits(body)
	if len(splits) == 0 {
		return "", "", false
	}
	last := splits[len(splits)-1]
	guard = trim(body[:last])
	call = trim(body[last+2:])
	if guard == "" || !isCallExpr(call) {
		return "", "", false
	}
	return guard, call, true
}

// isCallExpr reports whether src is a single call expression: it ends with
// a ')' that closes a '(' opened after some callee text.
func isCallExpr(src string) bool {
	if len(src) < 3 || src[len(src)-1] != ')' {
		return false
	}
	mask := codeMask(src)
	depth := 0
	for i := 0; i < len(src); i++ {
		if !mask[i] {
			continue
		}
		switch src[i] {
		case '(':
			depth++
		case ')':
			depth--
			// A call closes only at the very end; "f() + g()" does not.
			if depth == 0 && i != len(src)-1 {
				return false
			}
		}
	}
	return depth == 0
}

func trim(s string) string {
	start := 0
	for start < len(s) && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n') {
		start++
	}
	end := len(s)
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n') {
		end--
	}
	return s[start:end]
}
