// Package irtext implements a small textual IR fixture grammar (spec.md
// §0 "loads a resolved-method fixture... or a small textual IR format")
// built with github.com/alecthomas/participle/v2, grounded in the
// teacher's grammar/lexer.go and grammar/grammar.go: a lexer.MustSimple
// rule table feeding a struct-tag EBNF grammar, repurposed here from the
// Kanso source language to a one-instruction-per-line straight-line IR
// fixture format for golden tests and the CLI (`cmd/jitcompile`).
//
// Only straight-line functions are representable: one parameter list,
// one basic block of value-producing instructions, and a single
// terminating return. Branches, merges and phis have no textual form
// here — a fixture exercising those builds its graph with
// internal/graph's constructors directly, the same as the rest of this
// module's own test suite does (spec.md §10.4).
package irtext

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var irLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Integer", Pattern: `-?[0-9]+`},
	{Name: "Percent", Pattern: `%`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Punct", Pattern: `[(){},:=]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

// Program is the root production: zero or more function fixtures.
type Program struct {
	Functions []*Function `@@*`
}

// Function declares a signature (for parameter typing) and a
// straight-line instruction body.
type Function struct {
	Name   string   `"func" @Ident "("`
	Params []*Param `[ @@ ( "," @@ )* ] ")"`
	Return *string  `[ "->" @Ident ]`
	Body   []*Instr `"{" @@* "}"`
}

// Param names and types one declared parameter; its type resolves the
// stamp given to the matching body "param N" instruction.
type Param struct {
	Name string `@Ident ":"`
	Type string `@Ident`
}

// ValueRef names a previously assigned instruction's result.
type ValueRef struct {
	Name string `"%" @Ident`
}

// Instr is either a value-assigning instruction or the block's
// terminating return.
type Instr struct {
	Assign *Assign `  @@`
	Return *Return `| @@`
}

// Assign binds a fresh value name to the result of one Rhs production.
type Assign struct {
	Dest string `"%" @Ident "="`
	Rhs  *Rhs   `@@`
}

// Return ends the block, yielding Value.
type Return struct {
	Value *ValueRef `"return" @@`
}

// Rhs is the disjunction of every supported instruction kind; each
// alternative starts with a distinct literal keyword, so one token of
// lookahead always picks the right arm.
type Rhs struct {
	Param *ParamRhs `  @@`
	Const *ConstRhs `| @@`
	Bin   *BinRhs   `| @@`
	Cmp   *CmpRhs   `| @@`
	Neg   *NegRhs   `| @@`
	Copy  *CopyRhs  `| @@`
}

// ParamRhs reads the Index'th declared function parameter.
type ParamRhs struct {
	Index int `"param" @Integer`
}

// ConstRhs is a 32-bit signed integer literal constant.
type ConstRhs struct {
	Value int64 `"const" @Integer`
}

// BinRhs is a two-operand arithmetic/logic instruction.
type BinRhs struct {
	Op    string    `@("add" | "sub" | "mul" | "div" | "and" | "or" | "xor" | "shl" | "shr")`
	Left  *ValueRef `@@`
	Right *ValueRef `"," @@`
}

// CmpRhs is a two-operand comparison, producing a 1-bit result.
type CmpRhs struct {
	Op    string    `"cmp" @("eq" | "ne" | "lt" | "le" | "gt" | "ge")`
	Left  *ValueRef `@@`
	Right *ValueRef `"," @@`
}

// NegRhs negates its operand.
type NegRhs struct {
	Value *ValueRef `"neg" @@`
}

// CopyRhs is a non-negating unary pass-through.
type CopyRhs struct {
	Value *ValueRef `"copy" @@`
}

var programParser = participle.MustBuild[Program](
	participle.Lexer(irLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses src into a Program. The filename is used only to
// annotate error positions.
func Parse(filename, src string) (*Program, error) {
	return programParser.ParseString(filename, src)
}
