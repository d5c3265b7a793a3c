package cellisp

import "errors"

// Interp owns the arena and the symbol table and drives one command
// at a time through the reader and the evaluator.
type Interp struct {
	arena *Arena
	syms  *SymTab
	eval  *evaluator

	pending string
	balance int
}

// New builds an interpreter from cfg; nil means all defaults.
func New(cfg *Config) *Interp {
	if cfg == nil {
		cfg = NewConfig()
	}
	arena := NewArena(cfg.GetInt("arena.nodes"))
	syms := NewSymTab(cfg.GetInt("symtab.slots"), cfg.GetInt("symtab.max_symbol_len"))
	return &Interp{
		arena: arena,
		syms:  syms,
		eval: &evaluator{
			arena:     arena,
			syms:      syms,
			maxParams: cfg.GetInt("eval.max_params"),
		},
	}
}

// Read feeds one input line to the interpreter. It reports true when
// the accumulated input balances its parentheses, i.e. a command is
// ready to Run. Lines of a multi-line command are joined with a
// single space.
func (in *Interp) Read(line string) bool {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '(':
			in.balance++
		case ')':
			in.balance--
		}
	}
	if in.pending != "" {
		in.pending += " "
	}
	in.pending += line
	return in.balance == 0 && in.pending != ""
}

// InProgress reports whether a partial command is waiting for more
// lines.
func (in *Interp) InProgress() bool { return in.pending != "" }

// Run preprocesses, parses, and evaluates the pending command and
// returns its rendered result. When the arena runs low mid-command
// the whole command is discarded, a collection runs over the
// symbol-table roots (the in-flight parse tree is not rooted), and
// the command retries once from its saved text. A second shortfall is
// fatal.
func (in *Interp) Run() (string, error) {
	command := preprocess(in.pending)
	in.pending = ""
	in.balance = 0

	result, err := in.runOnce(command)
	if errors.Is(err, errNeedGC) {
		if cerr := in.arena.Collect(in.syms.Roots()); cerr != nil {
			return "", cerr
		}
		result, err = in.runOnce(command)
		if errors.Is(err, errNeedGC) {
			return "", ArenaExhaustedError{Size: in.arena.Cap()}
		}
	}
	return result, err
}

func (in *Interp) runOnce(command string) (string, error) {
	root, err := newReader(in.arena, in.syms, command).parse()
	if err != nil {
		return "", err
	}
	v, err := in.eval.eval(root)
	if err != nil {
		return "", err
	}
	return Render(in.arena, in.syms, v), nil
}

// Reset reinitialises the arena, the symbol table, and any partial
// input, as between interactive sessions.
func (in *Interp) Reset() {
	in.arena.Reset()
	in.syms.Clear()
	in.pending = ""
	in.balance = 0
}

// Arena exposes the node arena, mainly to the diagnostics dump and
// the property tests.
func (in *Interp) Arena() *Arena { return in.arena }

// Symbols exposes the symbol table.
func (in *Interp) Symbols() *SymTab { return in.syms }
