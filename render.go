package cellisp

import "strings"

// Render spells a tagged value back out as source text: nil is the
// empty list, a symbol prints its interned text, and a pair prints as
// a parenthesised list along its tail spine. A symbol in tail
// position prints inline, without dot notation.
func Render(arena *Arena, syms *SymTab, p Ptr) string {
	var b strings.Builder
	renderValue(&b, arena, syms, p)
	return b.String()
}

func renderValue(b *strings.Builder, arena *Arena, syms *SymTab, p Ptr) {
	switch p.Kind {
	case KindNil:
		b.WriteString("()")
	case KindSym:
		b.WriteString(syms.Text(p))
	default:
		b.WriteByte('(')
		for {
			renderValue(b, arena, syms, arena.Head(p.Index))
			tail := arena.Tail(p.Index)
			switch tail.Kind {
			case KindNil:
				b.WriteByte(')')
				return
			case KindSym:
				b.WriteByte(' ')
				b.WriteString(syms.Text(tail))
				b.WriteByte(')')
				return
			}
			b.WriteByte(' ')
			p = tail
		}
	}
}
