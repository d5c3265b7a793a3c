package cellisp

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dump writes the arena and the symbol table as aligned tables, one
// row per live cell and one per occupied slot. Pair pointers print as
// #index so chains can be followed by eye.
func (in *Interp) Dump(w io.Writer) {
	a, s := in.arena, in.syms

	free := make([]bool, a.Cap())
	for i := a.FreeRoot(); i > 0 && i < a.Cap(); {
		free[i] = true
		next := a.Tail(i)
		if next.Kind != KindPair {
			break
		}
		i = next.Index
	}

	fmt.Fprintf(w, "Free list's root = %d\n", a.FreeRoot())
	fmt.Fprintf(w, "%d cells live, %d free\n\n", a.LiveCount(), a.FreeCount())

	rows := [][3]string{{"Index", "Head", "Tail"}}
	for i := 1; i < a.Cap(); i++ {
		if free[i] {
			continue
		}
		rows = append(rows, [3]string{
			strconv.Itoa(i),
			dumpText(s, a.Head(i)),
			dumpText(s, a.Tail(i)),
		})
	}
	fmt.Fprintln(w, "Node array:")
	writeColumns(w, rows)
	fmt.Fprintln(w)

	rows = [][3]string{{"Index", "Symbol", "Link"}}
	for i := 0; i < s.Size(); i++ {
		name, binding := s.Slot(i)
		if name == "" {
			continue
		}
		rows = append(rows, [3]string{strconv.Itoa(i), name, dumpText(s, binding)})
	}
	fmt.Fprintln(w, "Hash table:")
	writeColumns(w, rows)
	fmt.Fprintln(w)
}

func dumpText(s *SymTab, p Ptr) string {
	switch p.Kind {
	case KindNil:
		return "()"
	case KindSym:
		return s.Text(p)
	default:
		return "#" + strconv.Itoa(p.Index)
	}
}

// writeColumns right-aligns three columns to the widest entry of
// each, with a separator rule under the header row.
func writeColumns(w io.Writer, rows [][3]string) {
	var width [3]int
	for _, r := range rows {
		for c, text := range r {
			if len(text) > width[c] {
				width[c] = len(text)
			}
		}
	}
	for i, r := range rows {
		fmt.Fprintf(w, "%*s | %*s | %*s\n", width[0], r[0], width[1], r[1], width[2], r[2])
		if i == 0 {
			fmt.Fprintln(w, strings.Repeat("-", width[0]+width[1]+width[2]+6))
		}
	}
}
