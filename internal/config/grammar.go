package config

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// optionLexer tokenizes "scope.name=value" assignment lists, grounded
// on the teacher's grammar/lexer.go KansoLexer (a participle
// lexer.StatefulDefinition built from a rule table) — repurposed here
// from the Kanso source grammar to a tiny option-assignment grammar.
var optionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Number", Pattern: `-?[0-9]+(\.[0-9]+)?`},
	{Name: "String", Pattern: `"(\\"|[^"])*"`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Equals", Pattern: `=`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// assignment is one "path.to.option=value" entry; Path holds every
// dotted segment: the final one names the option itself, the ones
// before it its owning scope.
type assignment struct {
	Path  []string `@Ident ("." @Ident)*`
	Value string   `"=" @(Ident | Number | String)`
}

type assignmentList struct {
	Assignments []*assignment `@@ ("," @@)*`
}

var assignmentParser = participle.MustBuild[assignmentList](
	participle.Lexer(optionLexer),
	participle.Elide("Whitespace"),
)

// ParseOverrides parses a comma-separated "scope.name=value,..." string
// into Override values (spec.md §6 "explicit scope override"). The
// last segment of each dotted path is the option name; everything
// before it is the scope path the override applies within.
func ParseOverrides(src string) ([]Override, error) {
	if src == "" {
		return nil, nil
	}
	list, err := assignmentParser.ParseString("", src)
	if err != nil {
		return nil, err
	}
	out := make([]Override, 0, len(list.Assignments))
	for _, a := range list.Assignments {
		if len(a.Path) == 0 {
			continue
		}
		name := a.Path[len(a.Path)-1]
		scopePath := a.Path[:len(a.Path)-1]
		out = append(out, Override{
			ScopePath: scopePath,
			Name:      name,
			RawValue:  unquote(a.Value),
		})
	}
	return out, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
