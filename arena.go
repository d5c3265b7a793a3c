package cellisp

import "fmt"

// DefaultNodes is the default arena capacity.
const DefaultNodes = 2000

// Cell is a cons cell, the sole composite datum.
type Cell struct {
	Head Ptr
	Tail Ptr
}

// Arena is a fixed-capacity array of cons cells. Cell 0 is a reserved
// sentinel. Unused cells are chained into a free list through their
// Tail field; the terminator is a pair pointer one past the last
// valid index.
type Arena struct {
	cells     []Cell
	freeRoot  int
	liveCount int
	freeCount int
}

// NewArena allocates an arena of the given capacity with every cell
// on the free list.
func NewArena(nodes int) *Arena {
	a := &Arena{cells: make([]Cell, nodes)}
	a.Reset()
	return a
}

// Reset returns every cell to the free list, chained in ascending
// order 1 -> 2 -> ... -> capacity.
func (a *Arena) Reset() {
	n := len(a.cells)
	a.cells[0] = Cell{}
	for i := 1; i < n; i++ {
		a.cells[i] = Cell{Tail: PairPtr(i + 1)}
	}
	a.freeRoot = 1
	a.liveCount = 0
	a.freeCount = n - 1
}

// Alloc unlinks the head of the free list and hands it out zeroed.
// When at most one free cell would remain, the allocation is
// abandoned and errNeedGC comes back instead: the interpreter
// discards the current command, collects, and retries it, so the
// half-built parse tree owning the abandoned cells is reclaimed.
func (a *Arena) Alloc() (int, error) {
	idx := a.freeRoot
	if idx <= 0 || idx >= len(a.cells) {
		return 0, errNeedGC
	}
	a.freeRoot = a.cells[idx].Tail.Index
	a.cells[idx] = Cell{}
	a.liveCount++
	a.freeCount--
	if a.freeCount <= 1 {
		return 0, errNeedGC
	}
	return idx, nil
}

func (a *Arena) checkIndex(idx int) {
	if idx <= 0 || idx >= len(a.cells) {
		panic(fmt.Sprintf("arena index out of range: %d (capacity %d)", idx, len(a.cells)))
	}
}

// Head returns the head of the cell at idx.
func (a *Arena) Head(idx int) Ptr {
	a.checkIndex(idx)
	return a.cells[idx].Head
}

// Tail returns the tail of the cell at idx.
func (a *Arena) Tail(idx int) Ptr {
	a.checkIndex(idx)
	return a.cells[idx].Tail
}

// SetHead overwrites the head of the cell at idx.
func (a *Arena) SetHead(idx int, p Ptr) {
	a.checkIndex(idx)
	a.cells[idx].Head = p
}

// SetTail overwrites the tail of the cell at idx.
func (a *Arena) SetTail(idx int, p Ptr) {
	a.checkIndex(idx)
	a.cells[idx].Tail = p
}

// Collect runs mark-sweep over the arena. Every cell reachable from
// the given roots through pair pointers survives; the rest rebuild
// the free list in ascending index order, which keeps allocation
// deterministic after a collection. The sweep fails when nothing was
// freed.
func (a *Arena) Collect(roots []Ptr) error {
	n := len(a.cells)
	marked := make([]bool, n)
	for _, r := range roots {
		if r.Kind == KindPair {
			a.mark(marked, r.Index)
		}
	}

	a.freeRoot = 0
	a.freeCount = 0
	last := 0
	for i := 1; i < n; i++ {
		if marked[i] {
			continue
		}
		a.cells[i].Head = NilPtr
		if a.freeRoot == 0 {
			a.freeRoot = i
		} else {
			a.cells[last].Tail = PairPtr(i)
		}
		last = i
		a.freeCount++
	}
	if a.freeRoot == 0 {
		return ArenaExhaustedError{Size: n}
	}
	a.cells[last].Tail = PairPtr(n)
	a.liveCount = n - 1 - a.freeCount
	return nil
}

// mark walks the cell graph through pair pointers only; the visited
// bitmap keeps cycles through define-bound lambda bodies from
// looping.
func (a *Arena) mark(marked []bool, idx int) {
	if idx <= 0 || idx >= len(a.cells) || marked[idx] {
		return
	}
	marked[idx] = true
	if h := a.cells[idx].Head; h.Kind == KindPair {
		a.mark(marked, h.Index)
	}
	if t := a.cells[idx].Tail; t.Kind == KindPair {
		a.mark(marked, t.Index)
	}
}

// Cap returns the arena capacity, counting the sentinel cell.
func (a *Arena) Cap() int { return len(a.cells) }

// FreeRoot returns the index of the first free cell.
func (a *Arena) FreeRoot() int { return a.freeRoot }

// LiveCount returns the number of cells off the free list: the
// survivors of the last collection plus every cell handed out since.
func (a *Arena) LiveCount() int { return a.liveCount }

// FreeCount returns the number of cells on the free list.
func (a *Arena) FreeCount() int { return a.freeCount }

// Cells snapshots the whole cell array, sentinel included.
func (a *Arena) Cells() []Cell {
	out := make([]Cell, len(a.cells))
	copy(out, a.cells)
	return out
}
