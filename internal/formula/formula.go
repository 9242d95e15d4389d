// Package formula evaluates the small arithmetic expressions stored in rebate
// configuration. Formulas are operator data: they are parsed against a fixed
// grammar and evaluated over an explicit variable map, never executed.
package formula

import (
	"math"
	"sort"
)

type function struct {
	minArgs int
	maxArgs int // -1 = variadic
	apply   func(args []float64) float64
}

var functions = map[string]function{
	"floor": {1, 1, func(a []float64) float64 { return math.Floor(a[0]) }},
	"ceil":  {1, 1, func(a []float64) float64 { return math.Ceil(a[0]) }},
	// round is half away from zero, which is half-up for the non-negative
	// amounts rebate formulas produce.
	"round": {1, 1, func(a []float64) float64 { return math.Round(a[0]) }},
	"abs":   {1, 1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"min": {1, -1, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			if v < m {
				m = v
			}
		}
		return m
	}},
	"max": {1, -1, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			if v > m {
				m = v
			}
		}
		return m
	}},
}

// Functions returns the allow-listed function names, sorted.
func Functions() []string {
	out := make([]string, 0, len(functions))
	for name := range functions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type evalEnv struct {
	src  string
	vars map[string]float64
}

type node interface {
	eval(env *evalEnv) (float64, error)
	collect(names map[string]struct{})
}

type numberNode struct{ v float64 }

func (n *numberNode) eval(*evalEnv) (float64, error) { return n.v, nil }
func (n *numberNode) collect(map[string]struct{})     {}

type varNode struct {
	name string
	pos  int
}

func (n *varNode) eval(env *evalEnv) (float64, error) {
	v, ok := env.vars[n.name]
	if !ok {
		return 0, &Error{Kind: KindUndefinedVariable, Formula: env.src, Pos: n.pos, Name: n.name, Msg: "variable is not defined"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &Error{Kind: KindNonFinite, Formula: env.src, Pos: n.pos, Name: n.name, Msg: "variable is not a finite number"}
	}
	return v, nil
}

func (n *varNode) collect(names map[string]struct{}) { names[n.name] = struct{}{} }

type negNode struct{ x node }

func (n *negNode) eval(env *evalEnv) (float64, error) {
	v, err := n.x.eval(env)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

func (n *negNode) collect(names map[string]struct{}) { n.x.collect(names) }

type binaryNode struct {
	op          byte
	left, right node
	pos         int
}

func (n *binaryNode) eval(env *evalEnv) (float64, error) {
	l, err := n.left.eval(env)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(env)
	if err != nil {
		return 0, err
	}
	// Explicit float64 conversions keep each step individually rounded
	// (no fused multiply-add), so results are identical on every platform.
	var v float64
	switch n.op {
	case '+':
		v = float64(l + r)
	case '-':
		v = float64(l - r)
	case '*':
		v = float64(l * r)
	case '/':
		if r == 0 {
			return 0, &Error{Kind: KindDivisionByZero, Formula: env.src, Pos: n.pos, Msg: "division by zero"}
		}
		v = float64(l / r)
	case '^':
		v = math.Pow(l, r)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &Error{Kind: KindNonFinite, Formula: env.src, Pos: n.pos, Msg: "result is not a finite number"}
	}
	return v, nil
}

func (n *binaryNode) collect(names map[string]struct{}) {
	n.left.collect(names)
	n.right.collect(names)
}

type callNode struct {
	name string
	fn   function
	args []node
	pos  int
}

func (n *callNode) eval(env *evalEnv) (float64, error) {
	vals := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(env)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	return n.fn.apply(vals), nil
}

func (n *callNode) collect(names map[string]struct{}) {
	for _, a := range n.args {
		a.collect(names)
	}
}

// Expr is a compiled formula. It is immutable and safe for concurrent use.
type Expr struct {
	src  string
	root node
	vars []string
}

// Compile parses src. The returned Expr can be evaluated any number of times.
func Compile(src string) (*Expr, error) {
	root, err := parse(src)
	if err != nil {
		return nil, err
	}
	names := map[string]struct{}{}
	root.collect(names)
	vars := make([]string, 0, len(names))
	for n := range names {
		vars = append(vars, n)
	}
	sort.Strings(vars)
	return &Expr{src: src, root: root, vars: vars}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level constants.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Expr) String() string { return e.src }

// Variables lists the identifiers the formula references, sorted.
func (e *Expr) Variables() []string {
	out := make([]string, len(e.vars))
	copy(out, e.vars)
	return out
}

// Eval evaluates the formula. Every referenced identifier must be present in
// vars; a missing one is an error, never zero.
func (e *Expr) Eval(vars map[string]float64) (float64, error) {
	v, err := e.root.eval(&evalEnv{src: e.src, vars: vars})
	if err != nil {
		return 0, err
	}
	if v == 0 {
		v = 0 // normalise -0
	}
	return v, nil
}

// Evaluate compiles and evaluates src in one step.
func Evaluate(src string, vars map[string]float64) (float64, error) {
	e, err := Compile(src)
	if err != nil {
		return 0, err
	}
	return e.Eval(vars)
}
