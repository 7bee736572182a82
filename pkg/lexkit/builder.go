package lexkit

import (
	"errors"
	"fmt"
)

// ErrIgnoreExperimental guards Ignore: stripping ignored text desynchronises
// buffer advancement from the matched text, so the caller must opt in.
var ErrIgnoreExperimental = errors.New("ignore rules are experimental and can derail position tracking")

// Builder accumulates rules in declaration order and produces a Lexer.
// Position 0 always holds the hidden line-break rule; every dependent rule
// registered through the builder gets that rule prepended to an owned copy
// of its chain.
type Builder struct {
	rules   []*Rule
	skips   []*Rule
	ignores []*Rule
	errSpec *ErrorSpec
}

// NewBuilder returns a builder whose line-break rule matches "\n".
func NewBuilder() *Builder {
	return NewBuilderWithLineBreak(`\n`)
}

// NewBuilderWithLineBreak returns a builder with a custom line-break
// pattern. The pattern also delimits the offending-text snippet in errors.
func NewBuilderWithLineBreak(pattern string) *Builder {
	b := &Builder{}
	b.rules = append(b.rules, NewRule(JumpLineType, pattern).Hide())
	return b
}

// OnError sets the error reported when no rule matches and the failing rule
// carries no error of its own.
func (b *Builder) OnError(spec *ErrorSpec) *Builder {
	b.errSpec = spec
	return b
}

// LineBreakRule returns the rule installed at position 0.
func (b *Builder) LineBreakRule() *Rule {
	return b.rules[0]
}

// Add registers a visible rule for the given patterns and returns its
// position in the rule list. Later rules win ties: when several rules match
// the same text, the token comes from the last one registered.
func (b *Builder) Add(typ TokenType, patterns ...string) int {
	return b.AddRule(NewRule(typ, patterns...).AcceptSkips(true))
}

// AddRule registers a prepared rule and returns its position. The builder
// takes ownership: a dependent rule's chain gains the line-break rule at
// position 0.
func (b *Builder) AddRule(r *Rule) int {
	b.normalizeDeps(r)
	b.rules = append(b.rules, r)
	return len(b.rules) - 1
}

// Skip registers a hidden rule whose matches are consumed silently, and
// returns its position in the main rule list. Skip rules land in both the
// main rule list and the skip list that Build injects into dependency
// resolution.
func (b *Builder) Skip(patterns ...string) int {
	return b.SkipRule(NewRule(SkippedType, patterns...).AcceptSkips(true))
}

// SkipRule registers a prepared rule as a skip rule, forcing its type and
// hiding it. Use this form to give a skip rule dependencies or a transform;
// skip-rule transforms run for their side effects only.
func (b *Builder) SkipRule(r *Rule) int {
	r.Type = SkippedType
	r.visible = false
	b.normalizeDeps(r)
	b.skips = append(b.skips, r)
	b.rules = append(b.rules, r)
	return len(b.rules) - 1
}

// Load registers prepared rules, premade or otherwise, and returns their
// positions. Dependent rules are normalized the same way Add normalizes
// them; skip acceptance is left as constructed.
func (b *Builder) Load(rules ...*Rule) []int {
	positions := make([]int, 0, len(rules))
	for _, r := range rules {
		b.normalizeDeps(r)
		positions = append(positions, len(b.rules))
		b.rules = append(b.rules, r)
	}
	return positions
}

// LoadWithoutTransforms registers prepared rules with their transforms
// stripped, so tokens keep their matched text as the value.
func (b *Builder) LoadWithoutTransforms(rules ...*Rule) []int {
	for _, r := range rules {
		r.transform = nil
	}
	return b.Load(rules...)
}

// Ignore registers a rule whose matches are stripped from candidate text
// before other rules run, and consumed outright when found at the front of
// the input. It returns the rule's position in the ignore list. Stripping
// can make the matched text diverge from the buffer, so the call fails
// unless force is set.
func (b *Builder) Ignore(pattern string, force bool) (int, error) {
	if !force {
		return 0, fmt.Errorf("%w: pass force=true to register %q anyway", ErrIgnoreExperimental, pattern)
	}
	b.ignores = append(b.ignores, NewRule(IgnoredType, pattern))
	return len(b.ignores) - 1, nil
}

// normalizeDeps gives a dependent rule an owned chain copy led by the
// line-break rule. Empty chains stay empty: such a rule resolves to a group
// holding only its own token.
func (b *Builder) normalizeDeps(r *Rule) {
	if r.deps == nil || len(r.deps.Chain) == 0 {
		return
	}
	r.deps = r.deps.withLineBreak(b.rules[0])
}

// Build finalises the rule set and returns the engine. Every rule that
// accepts skips gets the builder's skip list attached for dependency
// resolution. The builder remains usable afterwards.
func (b *Builder) Build() *Lexer {
	return b.build(true)
}

// BuildWithoutSkipInjection builds the engine without attaching skip rules
// to dependency resolution.
func (b *Builder) BuildWithoutSkipInjection() *Lexer {
	return b.build(false)
}

func (b *Builder) build(injectSkips bool) *Lexer {
	if injectSkips {
		for _, r := range b.rules {
			if r.acceptSkips {
				r.skips = b.skips
			}
		}
	}
	return newLexer(b.rules, b.ignores, b.errSpec)
}

// Evaluate builds the engine and tokenizes text in one call.
func (b *Builder) Evaluate(text string) ([]Entry, error) {
	return b.Build().Evaluate(text)
}
