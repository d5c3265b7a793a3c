package cellisp

import "errors"

// DefaultMaxParams is the default parameter limit per call frame.
const DefaultMaxParams = 5

// evaluator is the tree walker. It owns no storage of its own: every
// value lives in the arena or the symbol table, and user-defined
// calls work by saving and restoring symbol bindings rather than by
// building environment frames.
type evaluator struct {
	arena     *Arena
	syms      *SymTab
	maxParams int
}

// eval reduces a tagged expression to a tagged value. On a
// recoverable error the rendered expression is pushed onto the error
// stack, so the trace grows one frame per unwound call.
func (e *evaluator) eval(p Ptr) (Ptr, error) {
	v, err := e.evalExpr(p)
	if err != nil && !errors.Is(err, errNeedGC) && !IsFatal(err) {
		return NilPtr, pushFrame(err, e.render(p))
	}
	return v, err
}

// evalExpr applies the atom rule, then dispatches applications on the
// operator symbol.
func (e *evaluator) evalExpr(p Ptr) (Ptr, error) {
	switch p.Kind {
	case KindNil:
		return NilPtr, nil
	case KindSym:
		// Numbers evaluate to themselves; every other symbol is
		// auto-dereferenced to its binding.
		if isNumber(e.syms.Text(p)) {
			return p, nil
		}
		return e.syms.Value(p)
	default:
		return e.apply(p)
	}
}

func (e *evaluator) apply(p Ptr) (Ptr, error) {
	op := e.arena.Head(p.Index)
	if op.Kind != KindSym {
		return NilPtr, UnknownIdentifierError{Name: e.render(op)}
	}
	name := e.syms.Text(op)
	argv := e.arena.Tail(p.Index)

	switch name {
	case "+", "-", "*", "/":
		return e.evalArith(name, argv)
	case "%":
		// reserved in the dispatcher, nothing behind it
		return NilPtr, UnknownIdentifierError{Name: name}
	case "<", ">":
		return e.evalCompare(name, argv)
	case "=":
		return e.evalNumEq(argv)
	case "eq?":
		return e.evalEq(argv)
	case "equal?":
		return e.evalEqual(argv)
	case "number?":
		return e.evalIsNumber(argv)
	case "symbol?":
		return e.evalIsSymbol(argv)
	case "null?":
		return e.evalIsNull(argv)
	case "cons":
		return e.evalCons(argv)
	case "car", "cdr":
		return e.evalCarCdr(name, argv)
	case "quote":
		if err := e.checkArity(name, argv, 1); err != nil {
			return NilPtr, err
		}
		return e.arg(argv, 0), nil
	case "cond":
		return e.evalCond(argv)
	case "define":
		return e.evalDefine(p, argv)
	case "print", "display":
		if err := e.checkArity(name, argv, 1); err != nil {
			return NilPtr, err
		}
		return e.eval(e.arg(argv, 0))
	default:
		return e.applyUser(name, op, argv)
	}
}

func (e *evaluator) render(p Ptr) string {
	return Render(e.arena, e.syms, p)
}

// headOf and tailOf are nil-tolerant spine walkers: on anything that
// is not a pair they come back nil.
func (e *evaluator) headOf(p Ptr) Ptr {
	if p.Kind != KindPair {
		return NilPtr
	}
	return e.arena.Head(p.Index)
}

func (e *evaluator) tailOf(p Ptr) Ptr {
	if p.Kind != KindPair {
		return NilPtr
	}
	return e.arena.Tail(p.Index)
}

// listLen counts the elements along the tail spine.
func (e *evaluator) listLen(p Ptr) int {
	n := 0
	for p.Kind == KindPair {
		n++
		p = e.arena.Tail(p.Index)
	}
	return n
}

// arg returns the nth element of the argument list.
func (e *evaluator) arg(argv Ptr, n int) Ptr {
	for ; n > 0; n-- {
		argv = e.tailOf(argv)
	}
	return e.headOf(argv)
}

// checkArity walks the argument list and verifies its exact length.
func (e *evaluator) checkArity(name string, argv Ptr, want int) error {
	if got := e.listLen(argv); got != want {
		return ArityError{Name: name, Want: want, Got: got}
	}
	return nil
}

// boolean interns the printed truth values.
func (e *evaluator) boolean(v bool) (Ptr, error) {
	if v {
		return e.syms.Intern("#t")
	}
	return e.syms.Intern("#f")
}

// evalPair checks for exactly two arguments and evaluates both, the
// shape the arithmetic, comparison and equal? primitives share.
func (e *evaluator) evalPair(name string, argv Ptr) (Ptr, Ptr, error) {
	if err := e.checkArity(name, argv, 2); err != nil {
		return NilPtr, NilPtr, err
	}
	a, err := e.eval(e.arg(argv, 0))
	if err != nil {
		return NilPtr, NilPtr, err
	}
	b, err := e.eval(e.arg(argv, 1))
	if err != nil {
		return NilPtr, NilPtr, err
	}
	return a, b, nil
}

// coerce reads an operand's value text as a number; anything that is
// not a symbol, or has no numeric prefix, reads as zero.
func (e *evaluator) coerce(p Ptr) float64 {
	if p.Kind != KindSym {
		return 0
	}
	return numberValue(e.syms.Text(p))
}

// numeric insists the operand evaluated to a numeric symbol.
func (e *evaluator) numeric(p Ptr) (float64, error) {
	if p.Kind != KindSym || !isNumber(e.syms.Text(p)) {
		return 0, NotNumberError{Text: e.render(p)}
	}
	return numberValue(e.syms.Text(p)), nil
}

func (e *evaluator) evalArith(name string, argv Ptr) (Ptr, error) {
	a, b, err := e.evalPair(name, argv)
	if err != nil {
		return NilPtr, err
	}
	x, y := e.coerce(a), e.coerce(b)
	var v float64
	switch name {
	case "+":
		v = x + y
	case "-":
		v = x - y
	case "*":
		v = x * y
	case "/":
		v = x / y
	}
	return e.syms.Intern(formatNumber(v))
}

func (e *evaluator) evalCompare(name string, argv Ptr) (Ptr, error) {
	a, b, err := e.evalPair(name, argv)
	if err != nil {
		return NilPtr, err
	}
	x, err := e.numeric(a)
	if err != nil {
		return NilPtr, err
	}
	y, err := e.numeric(b)
	if err != nil {
		return NilPtr, err
	}
	if name == "<" {
		return e.boolean(x < y)
	}
	return e.boolean(x > y)
}

// evalNumEq implements =. Equality is symbol-tag identity, which
// relies on the tokeniser dropping trailing fractional zeros;
// spellings that differ in other ways, such as 02 and 2, compare
// unequal.
func (e *evaluator) evalNumEq(argv Ptr) (Ptr, error) {
	a, b, err := e.evalPair("=", argv)
	if err != nil {
		return NilPtr, err
	}
	if _, err := e.numeric(a); err != nil {
		return NilPtr, err
	}
	if _, err := e.numeric(b); err != nil {
		return NilPtr, err
	}
	return e.boolean(a == b)
}

// evalEq implements eq?: identity on the tagged operands after one
// level of binding dereference, without evaluating them.
func (e *evaluator) evalEq(argv Ptr) (Ptr, error) {
	if err := e.checkArity("eq?", argv, 2); err != nil {
		return NilPtr, err
	}
	deref := func(p Ptr) Ptr {
		if p.Kind == KindSym {
			if v, err := e.syms.Value(p); err == nil && !v.IsNil() {
				return v
			}
		}
		return p
	}
	return e.boolean(deref(e.arg(argv, 0)) == deref(e.arg(argv, 1)))
}

func (e *evaluator) evalEqual(argv Ptr) (Ptr, error) {
	a, b, err := e.evalPair("equal?", argv)
	if err != nil {
		return NilPtr, err
	}
	return e.boolean(e.structEq(a, b))
}

// structEq is recursive structural equality: equal nil, equal symbol
// tags, or pairwise equal heads and tails.
func (e *evaluator) structEq(a, b Ptr) bool {
	if a == b {
		return true
	}
	if a.Kind != KindPair || b.Kind != KindPair {
		return false
	}
	return e.structEq(e.arena.Head(a.Index), e.arena.Head(b.Index)) &&
		e.structEq(e.arena.Tail(a.Index), e.arena.Tail(b.Index))
}

func (e *evaluator) evalIsNumber(argv Ptr) (Ptr, error) {
	if err := e.checkArity("number?", argv, 1); err != nil {
		return NilPtr, err
	}
	v, err := e.eval(e.arg(argv, 0))
	if err != nil {
		return NilPtr, err
	}
	return e.boolean(v.Kind == KindSym && isNumber(e.syms.Text(v)))
}

// evalIsSymbol keeps the historical reading: a defined name counts,
// and so does a pair whose evaluation is non-nil. The argument itself
// is not evaluated when it is a symbol.
func (e *evaluator) evalIsSymbol(argv Ptr) (Ptr, error) {
	if err := e.checkArity("symbol?", argv, 1); err != nil {
		return NilPtr, err
	}
	switch a := e.arg(argv, 0); a.Kind {
	case KindSym:
		v, err := e.syms.Value(a)
		if err != nil {
			return NilPtr, err
		}
		return e.boolean(!v.IsNil())
	case KindPair:
		v, err := e.eval(a)
		if err != nil {
			return NilPtr, err
		}
		return e.boolean(!v.IsNil())
	default:
		return e.boolean(false)
	}
}

func (e *evaluator) evalIsNull(argv Ptr) (Ptr, error) {
	if argv.IsNil() {
		return e.boolean(true)
	}
	if err := e.checkArity("null?", argv, 1); err != nil {
		return NilPtr, err
	}
	v, err := e.eval(e.arg(argv, 0))
	if err != nil {
		return NilPtr, err
	}
	return e.boolean(v.IsNil())
}

func (e *evaluator) evalCons(argv Ptr) (Ptr, error) {
	if err := e.checkArity("cons", argv, 2); err != nil {
		return NilPtr, err
	}
	idx, err := e.arena.Alloc()
	if err != nil {
		return NilPtr, err
	}
	h, err := e.eval(e.arg(argv, 0))
	if err != nil {
		return NilPtr, err
	}
	t, err := e.eval(e.arg(argv, 1))
	if err != nil {
		return NilPtr, err
	}
	e.arena.SetHead(idx, h)
	e.arena.SetTail(idx, t)
	return PairPtr(idx), nil
}

func (e *evaluator) evalCarCdr(name string, argv Ptr) (Ptr, error) {
	if err := e.checkArity(name, argv, 1); err != nil {
		return NilPtr, err
	}
	v, err := e.eval(e.arg(argv, 0))
	if err != nil {
		return NilPtr, err
	}
	if v.Kind != KindPair {
		return NilPtr, NotPairError{Text: e.render(v)}
	}
	if name == "car" {
		return e.arena.Head(v.Index), nil
	}
	return e.arena.Tail(v.Index), nil
}

// evalCond walks the clause list. A clause whose test is the literal
// symbol else is the default; a clause matches when its test prints
// as #t.
func (e *evaluator) evalCond(argv Ptr) (Ptr, error) {
	if argv.IsNil() {
		return NilPtr, ArityError{Name: "cond", Want: 1, Got: 0}
	}
	for clause := argv; clause.Kind == KindPair; clause = e.arena.Tail(clause.Index) {
		c := e.arena.Head(clause.Index)
		if c.Kind != KindPair {
			return NilPtr, NotPairError{Text: e.render(c)}
		}
		test := e.arena.Head(c.Index)
		body := e.headOf(e.arena.Tail(c.Index))

		if test.Kind == KindSym && e.syms.Text(test) == "else" {
			return e.eval(body)
		}
		v, err := e.eval(test)
		if err != nil {
			return NilPtr, err
		}
		if v.Kind == KindSym && e.syms.Text(v) == "#t" {
			return e.eval(body)
		}
	}
	return NilPtr, NoMatchingClauseError{}
}

// evalDefine installs a permanent binding and returns the whole form.
// A lambda value binds as its unevaluated pair; a symbol value binds
// directly; any other pair evaluates first. Extra body forms after a
// desugared nested define ride along unevaluated, so the count check
// is a floor rather than an exact match.
func (e *evaluator) evalDefine(form, argv Ptr) (Ptr, error) {
	if got := e.listLen(argv); got < 2 {
		return NilPtr, ArityError{Name: "define", Want: 2, Got: got}
	}
	name := e.arg(argv, 0)
	value := e.arg(argv, 1)

	switch {
	case value.Kind == KindPair && e.isLambda(value):
		if err := e.syms.SetValue(name, value); err != nil {
			return NilPtr, err
		}
	case value.Kind == KindPair:
		v, err := e.eval(value)
		if err != nil {
			return NilPtr, err
		}
		if err := e.syms.SetValue(name, v); err != nil {
			return NilPtr, err
		}
	default:
		if err := e.syms.SetValue(name, value); err != nil {
			return NilPtr, err
		}
	}
	return form, nil
}

func (e *evaluator) isLambda(p Ptr) bool {
	h := e.arena.Head(p.Index)
	return h.Kind == KindSym && e.syms.Text(h) == "lambda"
}

// savedBinding remembers one symbol slot's previous contents so the
// call can unwind it.
type savedBinding struct {
	slot Ptr
	old  Ptr
}

// applyUser calls a user-defined function: formals and actuals walk
// in lockstep, every actual is computed before any slot changes (so
// argument expressions see the caller's bindings, not half-installed
// new ones), the body evaluates, and the saves drain in reverse.
func (e *evaluator) applyUser(name string, op Ptr, argv Ptr) (Ptr, error) {
	fn, err := e.syms.Value(op)
	if err != nil {
		return NilPtr, err
	}
	if fn.Kind != KindPair || !e.isLambda(fn) {
		return NilPtr, UnknownIdentifierError{Name: name}
	}

	// fn is (lambda (formals...) body)
	rest := e.tailOf(fn)
	params := e.headOf(rest)
	body := e.headOf(e.tailOf(rest))

	saves := make([]savedBinding, 0, e.maxParams)
	installs := make([]savedBinding, 0, e.maxParams)

	param, actual := params, argv
	for param.Kind == KindPair && actual.Kind == KindPair {
		if len(saves) >= e.maxParams {
			return NilPtr, StackOverflowError{Limit: e.maxParams}
		}
		formal := e.headOf(param)
		if formal.Kind != KindSym {
			return NilPtr, BadTagError{Ptr: formal}
		}
		old, err := e.syms.Value(formal)
		if err != nil {
			return NilPtr, err
		}
		saves = append(saves, savedBinding{slot: formal, old: old})

		v, err := e.eval(e.headOf(actual))
		if err != nil {
			return NilPtr, err
		}
		installs = append(installs, savedBinding{slot: formal, old: v})

		param = e.tailOf(param)
		actual = e.tailOf(actual)
	}
	if param.Kind == KindPair || actual.Kind == KindPair {
		return NilPtr, ArityError{Name: name, Want: e.listLen(params), Got: e.listLen(argv)}
	}

	for _, nb := range installs {
		if err := e.syms.SetValue(nb.slot, nb.old); err != nil {
			return NilPtr, err
		}
	}

	result, err := e.eval(body)

	for i := len(saves) - 1; i >= 0; i-- {
		if rerr := e.syms.SetValue(saves[i].slot, saves[i].old); rerr != nil && err == nil {
			err = rerr
		}
	}
	if err != nil {
		return NilPtr, err
	}
	return result, nil
}
