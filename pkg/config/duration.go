package config

import (
	"fmt"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// durationLiteral is the tiny embedded grammar for config-document duration
// values: an integer magnitude followed by one of the fixed unit suffixes
// {ns, us, ms, s, m, h, d}, e.g. "250ms", "30s", "7d". Modeled directly on
// the teacher's own small-sub-language technique in src/parser/grammar.go
// (a lexer.MustSimple token set plus a participle struct-tag grammar) --
// the one piece of the config format that is a genuine embedded grammar
// rather than a plain YAML key-value tree.
type durationLiteral struct {
	Magnitude int    `@Int`
	Unit      string `@Ident`
}

var durationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z]+`},
	{Name: "whitespace", Pattern: `\s+`},
})

var durationParser = func() *participle.Parser[durationLiteral] {
	p, err := participle.Build[durationLiteral](
		participle.Lexer(durationLexer),
	)
	if err != nil {
		panic(fmt.Sprintf("config: duration grammar failed to build: %v", err))
	}
	return p
}()

var durationUnits = map[string]time.Duration{
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
}

// ParseDuration parses one config-document duration literal, e.g. "500ms"
// or "7d". Unlike time.ParseDuration, it has no compound-literal support
// ("1h30m") and adds the "d" (day) unit, per spec.md §4.4's fixed unit set.
func ParseDuration(s string) (time.Duration, error) {
	lit, err := durationParser.ParseString("", s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid duration literal %q: %w", s, err)
	}
	unit, ok := durationUnits[lit.Unit]
	if !ok {
		return 0, fmt.Errorf("config: invalid duration literal %q: unknown unit %q", s, lit.Unit)
	}
	return time.Duration(lit.Magnitude) * unit, nil
}
