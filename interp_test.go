package cellisp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertArenaPartition checks that, at a quiescent point, the free
// list and the cells reachable from the symbol-table roots are
// disjoint and together fit the arena.
func assertArenaPartition(t *testing.T, in *Interp) {
	t.Helper()
	a := in.Arena()

	free := map[int]bool{}
	for i := a.FreeRoot(); i > 0 && i < a.Cap(); {
		require.False(t, free[i], "free list revisits cell %d", i)
		free[i] = true
		next := a.Tail(i)
		if next.Kind != KindPair {
			break
		}
		i = next.Index
	}

	reachable := map[int]bool{}
	var walk func(p Ptr)
	walk = func(p Ptr) {
		if p.Kind != KindPair || reachable[p.Index] {
			return
		}
		reachable[p.Index] = true
		walk(a.Head(p.Index))
		walk(a.Tail(p.Index))
	}
	for _, r := range in.Symbols().Roots() {
		walk(r)
	}

	for i := range reachable {
		assert.False(t, free[i], "cell %d is both free and reachable", i)
	}
	assert.LessOrEqual(t, len(free)+len(reachable), a.Cap()-1)
}

func TestInterpReadBalancesParens(t *testing.T) {
	in := New(nil)

	assert.False(t, in.Read("(define (sq x)"))
	assert.True(t, in.InProgress())
	assert.True(t, in.Read("(* x x))"))

	out, err := in.Run()
	require.NoError(t, err)
	assert.Equal(t, "(define sq (lambda (x) (* x x)))", out)
	assert.False(t, in.InProgress())
}

func TestInterpScenarios(t *testing.T) {
	in := New(nil)

	steps := []struct {
		input    string
		expected string
	}{
		{"(+ 1 2)", "3"},
		{"(define (square x) (* x x))", "(define square (lambda (x) (* x x)))"},
		{"(square 5)", "25"},
		{"(define (fact n) (cond ((= n 0) 1) (else (* n (fact (- n 1))))))",
			"(define fact (lambda (n) (cond ((= n 0) 1) (else (* n (fact (- n 1)))))))"},
		{"(fact 5)", "120"},
		{"(cons 1 (cons 2 (cons 3 ())))", "(1 2 3)"},
		{"'(a b c)", "(a b c)"},
		{"(car '(a b c))", "a"},
		{"(cdr '(a b c))", "(b c)"},
	}
	for _, step := range steps {
		assert.Equal(t, step.expected, mustEval(t, in, step.input), "input: %s", step.input)
		assertArenaPartition(t, in)
	}
}

func TestInterpGCRetry(t *testing.T) {
	// A 31-cell arena forces collections every few commands; every
	// command must still succeed because its references are dropped
	// before the next one runs.
	cfg := NewConfig()
	cfg.SetInt("arena.nodes", 31)
	in := New(cfg)

	for i := 0; i < 10; i++ {
		out, err := feed(t, in, "(cons 1 (cons 2 (cons 3 ())))")
		require.NoError(t, err, "iteration %d", i)
		assert.Equal(t, "(1 2 3)", out)
		assertArenaPartition(t, in)
	}
}

func TestInterpGCPreservesDefinitions(t *testing.T) {
	cfg := NewConfig()
	cfg.SetInt("arena.nodes", 63)
	in := New(cfg)

	mustEval(t, in, "(define (square x) (* x x))")
	mustEval(t, in, "(define lst '(a b c))")

	// Spam allocations until collections have happened.
	for i := 0; i < 8; i++ {
		mustEval(t, in, "(cons 1 (cons 2 (cons 3 ())))")
	}

	assert.Equal(t, "(a b c)", mustEval(t, in, "lst"))
	assert.Equal(t, "49", mustEval(t, in, "(square 7)"))
	assertArenaPartition(t, in)
}

func TestInterpGCPreservesCellContents(t *testing.T) {
	in := New(nil)
	mustEval(t, in, "(define lst '(a (b) c))")

	before := mustEval(t, in, "lst")
	require.NoError(t, in.Arena().Collect(in.Symbols().Roots()))
	after := mustEval(t, in, "lst")

	assert.Equal(t, before, after)

	// A second collection with identical roots is a fixed point.
	cells := in.Arena().Cells()
	require.NoError(t, in.Arena().Collect(in.Symbols().Roots()))
	if diff := cmp.Diff(cells, in.Arena().Cells()); diff != "" {
		t.Errorf("repeated collection moved cells:\n%s", diff)
	}
}

func TestInterpArenaExhaustedIsFatal(t *testing.T) {
	// Too small for the command even after a collection.
	cfg := NewConfig()
	cfg.SetInt("arena.nodes", 4)
	in := New(cfg)

	_, err := feed(t, in, "(+ 1 2)")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestInterpReset(t *testing.T) {
	in := New(nil)
	mustEval(t, in, "(define x 5)")
	in.Read("(partial")

	in.Reset()

	assert.False(t, in.InProgress())
	assert.Equal(t, 1, in.Arena().FreeRoot())
	assert.Equal(t, "()", mustEval(t, in, "x"), "definitions are gone")
}

func TestInterpRecoverableErrorsKeepState(t *testing.T) {
	in := New(nil)
	mustEval(t, in, "(define x 41)")

	_, err := feed(t, in, "(car x)")
	require.Error(t, err)
	assert.False(t, IsFatal(err))

	// The session continues with its definitions intact.
	assert.Equal(t, "42", mustEval(t, in, "(+ x 1)"))
}
