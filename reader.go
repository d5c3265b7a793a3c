package cellisp

import "strings"

// tokEOS marks the end of the token stream; atoms are never empty.
const tokEOS = ""

// reader walks a command as a token stream and materialises its parse
// tree directly in the arena, interning every atom it sees. The same
// tokeniser drives both the preprocessor rewrite and the parse
// proper.
type reader struct {
	arena *Arena
	syms  *SymTab
	input string
	pos   int
}

func newReader(arena *Arena, syms *SymTab, input string) *reader {
	return &reader{arena: arena, syms: syms, input: input}
}

// next extracts the following token: "(", ")", "'", an atom, or
// tokEOS. Whitespace separates. Numeric atoms come out canonicalised
// so that spellings differing only in trailing fractional zeros
// intern into the same slot.
func (r *reader) next() string {
	for r.pos < len(r.input) && r.input[r.pos] == ' ' {
		r.pos++
	}
	if r.pos >= len(r.input) {
		return tokEOS
	}
	switch c := r.input[r.pos]; c {
	case '(', ')', '\'':
		r.pos++
		return string(c)
	}
	start := r.pos
	for r.pos < len(r.input) {
		switch r.input[r.pos] {
		case ' ', '(', ')', '\'':
			return canonNumber(r.input[start:r.pos])
		}
		r.pos++
	}
	return canonNumber(r.input[start:])
}

// back rewinds the cursor to just before the last single-character
// token, so a nested "(" can be re-read by a recursive parse call.
func (r *reader) back() { r.pos-- }

// parse consumes one expression from the token stream and returns its
// tagged root: nil for an empty stream, a symbol for a bare atom, or
// the arena index of a freshly built list.
func (r *reader) parse() (Ptr, error) {
	switch tok := r.next(); tok {
	case tokEOS, ")":
		return NilPtr, nil
	case "(":
		return r.parseList()
	default:
		return r.syms.Intern(tok)
	}
}

// parseList builds a right-spined list: each element occupies the
// head of a fresh cell hanging off the previous cell's tail.
func (r *reader) parseList() (Ptr, error) {
	root := NilPtr
	cur := 0
	for {
		tok := r.next()
		if tok == ")" || tok == tokEOS {
			return root, nil
		}
		idx, err := r.arena.Alloc()
		if err != nil {
			return NilPtr, err
		}
		if root.IsNil() {
			root = PairPtr(idx)
		} else {
			r.arena.SetTail(cur, PairPtr(idx))
		}
		cur = idx

		if tok == "(" {
			r.back()
			sub, err := r.parse()
			if err != nil {
				return NilPtr, err
			}
			r.arena.SetHead(cur, sub)
			continue
		}
		sym, err := r.syms.Intern(tok)
		if err != nil {
			return NilPtr, err
		}
		r.arena.SetHead(cur, sym)
	}
}

// preprocess rewrites a raw command into the space-delimited token
// stream the parser consumes: ASCII letters are lower-cased, tabs
// become spaces, (define (f ...) ...) expands into a lambda define,
// and 'x expands into (quote x).
func preprocess(input string) string {
	mapped := strings.Map(func(c rune) rune {
		switch {
		case c == '\t':
			return ' '
		case c >= 'A' && c <= 'Z':
			return c + ('a' - 'A')
		}
		return c
	}, input)

	src := &reader{input: mapped}
	var out strings.Builder
	expand(src, &out)
	return out.String()
}

// expand copies tokens from src to out, rewriting the two surface
// forms. It recurses on function defines, so defines nested inside
// bodies expand too; the recursion drains the stream before closing
// the synthesised lambda, exactly one paren deeper than the form it
// replaced.
func expand(src *reader, out *strings.Builder) {
	emit := func(tok string) {
		out.WriteByte(' ')
		out.WriteString(tok)
	}

	for {
		tok := src.next()
		if tok == tokEOS {
			return
		}
		switch tok {
		case "define":
			emit(tok)
			tok = src.next()
			if tok == tokEOS {
				return
			}
			if tok != "(" {
				// non-function define
				emit(tok)
				continue
			}
			emit(src.next()) // function name
			emit("(")
			emit("lambda")
			emit("(")
			expand(src, out)
			emit(")")
		case "'":
			emit("(")
			emit("quote")
			depth := 0
			for {
				tok = src.next()
				if tok == tokEOS {
					break
				}
				emit(tok)
				if tok == "(" {
					depth++
				} else if tok == ")" {
					depth--
				}
				if depth <= 0 {
					break
				}
			}
			emit(")")
		default:
			emit(tok)
		}
	}
}
