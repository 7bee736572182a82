package lexkit

import (
	"fmt"
	"regexp"
	"strings"
)

// Transform maps matched text to a token value. Returning ok=false keeps the
// matched text as the value.
type Transform func(text string) (value any, ok bool)

// Rule recognises one kind of token. Patterns are tried in order and always
// match from the start of the candidate text; the first pattern that fits
// wins within the rule.
type Rule struct {
	Type TokenType

	patterns []string
	compiled []*regexp.Regexp // anchored forms, used for matching
	search   []*regexp.Regexp // unanchored forms, used for stripping and splitting

	group       int
	transform   Transform
	visible     bool
	acceptSkips bool
	deps        *Dependencies
	errSpec     *ErrorSpec
	skips       []*Rule
}

// NewRule builds a visible rule for the given patterns. Invalid patterns
// panic, mirroring regexp.MustCompile; use a rules file for validated
// construction from configuration.
func NewRule(typ TokenType, patterns ...string) *Rule {
	if len(patterns) == 0 {
		panic(fmt.Sprintf("lexkit: rule %q needs at least one pattern", typ))
	}
	r := &Rule{
		Type:     typ,
		patterns: make([]string, len(patterns)),
		compiled: make([]*regexp.Regexp, len(patterns)),
		search:   make([]*regexp.Regexp, len(patterns)),
		visible:  true,
	}
	for i, pat := range patterns {
		r.patterns[i] = pat
		r.compiled[i] = regexp.MustCompile(anchor(pat))
		r.search[i] = regexp.MustCompile(pat)
	}
	return r
}

// anchor pins a pattern to the start of the candidate text without
// disturbing its capturing-group numbering.
func anchor(pattern string) string {
	if strings.HasPrefix(pattern, "^") {
		return pattern
	}
	return "^(?:" + pattern + ")"
}

// WithTransform attaches a value transform to the rule.
func (r *Rule) WithTransform(fn Transform) *Rule {
	r.transform = fn
	return r
}

// WithGroup selects which capturing group of the pattern becomes the token
// value. Group 0, the default, is the whole match.
func (r *Rule) WithGroup(group int) *Rule {
	r.group = group
	return r
}

// WithDeps makes the rule dependent: a match must be followed by one token
// per chain step. Registration with a builder prepends the builder's
// line-break rule to an owned copy of the chain. Dependent rules accept
// skip-rule injection unless AcceptSkips(false) is set afterwards.
func (r *Rule) WithDeps(deps *Dependencies) *Rule {
	r.deps = deps
	r.acceptSkips = deps != nil
	return r
}

// WithError sets the error reported when a dependency step led by this rule
// cannot be matched.
func (r *Rule) WithError(spec *ErrorSpec) *Rule {
	r.errSpec = spec
	return r
}

// AcceptSkips controls whether Build injects the skip rules into this rule's
// dependency resolution.
func (r *Rule) AcceptSkips(accept bool) *Rule {
	r.acceptSkips = accept
	return r
}

// Hide makes the rule's matches consume text without surfacing as tokens.
func (r *Rule) Hide() *Rule {
	r.visible = false
	return r
}

// Patterns returns a copy of the rule's patterns.
func (r *Rule) Patterns() []string {
	out := make([]string, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// Visible reports whether matches surface in the token stream.
func (r *Rule) Visible() bool {
	return r.visible
}

// AcceptsSkips reports whether Build injects skip rules into the rule.
func (r *Rule) AcceptsSkips() bool {
	return r.acceptSkips
}

// Deps returns the rule's dependency chain, or nil.
func (r *Rule) Deps() *Dependencies {
	return r.deps
}

// CustomError returns the rule's error spec, or nil.
func (r *Rule) CustomError() *ErrorSpec {
	return r.errSpec
}

// Equal reports whether both rules share a type and pattern set.
func (r *Rule) Equal(other *Rule) bool {
	if other == nil || r.Type != other.Type || len(r.patterns) != len(other.patterns) {
		return false
	}
	for i, pat := range r.patterns {
		if other.patterns[i] != pat {
			return false
		}
	}
	return true
}

func (r *Rule) String() string {
	return fmt.Sprintf("rule(type: %q, patterns: %q)", r.Type, r.patterns)
}

// stripAll removes every occurrence of the rule's patterns from text. Used
// for ignore rules, whose matches are cut out of candidate text wholesale.
func (r *Rule) stripAll(text string) string {
	for _, re := range r.search {
		text = re.ReplaceAllString(text, "")
	}
	return text
}

// splitFirst returns the text up to the rule's first match. When the rule
// matches nowhere, the whole text comes back.
func (r *Rule) splitFirst(text string) string {
	if len(r.search) == 0 {
		return text
	}
	return r.search[0].Split(text, 2)[0]
}

// match tries the rule's patterns against text and compiles a token on
// success. Zero-length matches never fit: a token that consumes nothing
// would stall the engine.
func (r *Rule) match(text string, line, col, legacy int) (*Token, bool) {
	for _, re := range r.compiled {
		m := re.FindStringSubmatch(text)
		if m == nil || m[0] == "" {
			continue
		}
		if r.group >= len(m) {
			continue
		}
		return r.compileToken(m, line, col, legacy), true
	}
	return nil, false
}

// compileToken turns a pattern match into a token. Skip rules run their
// transform for its side effects only; the matched text stays the value.
func (r *Rule) compileToken(m []string, line, col, legacy int) *Token {
	raw := m[r.group]
	tok := &Token{
		Type:       r.Type,
		Value:      raw,
		Raw:        raw,
		Line:       line,
		Col:        col,
		LegacyLine: legacy,
		Visible:    r.visible,
		rule:       r,
		deps:       r.deps,
		skips:      r.skips,
	}
	if r.group > 0 {
		tok.Original = m[0]
	}
	if r.transform != nil {
		if r.Type == SkippedType {
			r.transform(raw)
		} else if v, ok := r.transform(raw); ok {
			tok.Value = v
		}
	}
	return tok
}

// ChainStep is one step of a dependency chain: a single required rule, or a
// group of candidate rules of which one must match. Build steps with Step
// and OneOf.
type ChainStep interface {
	chainStep()
}

type singleStep struct {
	rule *Rule
}

type choiceStep struct {
	rules []*Rule
}

func (*singleStep) chainStep() {}
func (*choiceStep) chainStep() {}

// Step makes a chain step that requires the given rule to match next.
func Step(r *Rule) ChainStep {
	return &singleStep{rule: r}
}

// OneOf makes a chain step satisfied by whichever of the given rules
// matches; when several do, the last one declared wins.
func OneOf(rules ...*Rule) ChainStep {
	return &choiceStep{rules: rules}
}

// Dependencies lists what must follow a dependent token: one matched token
// per chain step, with the Ignore rules stripped from candidate text while
// the chain resolves.
type Dependencies struct {
	Chain  []ChainStep
	Ignore []*Rule
}

// Chain builds a Dependencies from the given steps.
func Chain(steps ...ChainStep) *Dependencies {
	return &Dependencies{Chain: steps}
}

// WithIgnore sets the rules stripped from candidate text during chain
// resolution.
func (d *Dependencies) WithIgnore(rules ...*Rule) *Dependencies {
	d.Ignore = rules
	return d
}

// withLineBreak returns an owned copy of d whose chain starts with the
// given line-break rule. Copying keeps registration from mutating a
// Dependencies value shared between rules; prepending is skipped when a
// line-break rule already leads the chain.
func (d *Dependencies) withLineBreak(lineBreak *Rule) *Dependencies {
	out := &Dependencies{
		Chain:  make([]ChainStep, 0, len(d.Chain)+1),
		Ignore: make([]*Rule, len(d.Ignore)),
	}
	copy(out.Ignore, d.Ignore)
	if _, ok := chainLineBreak(d.Chain); !ok {
		out.Chain = append(out.Chain, Step(lineBreak))
	}
	out.Chain = append(out.Chain, d.Chain...)
	return out
}

// chainLineBreak returns the line-break rule leading the chain, if any. The
// second result reports whether the chain starts with one.
func chainLineBreak(chain []ChainStep) (*Rule, bool) {
	if len(chain) == 0 {
		return nil, false
	}
	if s, ok := chain[0].(*singleStep); ok && s.rule.Type == JumpLineType {
		return s.rule, true
	}
	return nil, false
}
