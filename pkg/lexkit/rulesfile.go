package lexkit

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"gopkg.in/yaml.v3"
)

// RulesFile is the YAML description of a rule set. Rule order in the file is
// declaration order, so later rules win ties exactly as with Builder.Add.
type RulesFile struct {
	// LineBreak overrides the line-break pattern, "\n" when empty.
	LineBreak string `yaml:"linebreak,omitempty"`

	// Error is the engine-level error template, with [[LINE]] and [[TEXT]]
	// markers.
	Error string `yaml:"error,omitempty"`

	// Premade pulls named rules out of the library before the file's own
	// rules are added.
	Premade []string `yaml:"premade,omitempty"`

	Rules  []RuleDef   `yaml:"rules"`
	Skips  []SkipDef   `yaml:"skips,omitempty"`
	Ignore []IgnoreDef `yaml:"ignore,omitempty"`
}

// RuleDef describes one rule.
type RuleDef struct {
	Type     string   `yaml:"type"`
	Patterns []string `yaml:"patterns"`

	// Transform names a value transform from the library.
	Transform string `yaml:"transform,omitempty"`

	Group  int    `yaml:"group,omitempty"`
	Hidden bool   `yaml:"hidden,omitempty"`
	Error  string `yaml:"error,omitempty"`

	// AcceptSkips overrides skip injection. Unset, dependent rules accept
	// skips and independent rules do not.
	AcceptSkips *bool `yaml:"accept_skips,omitempty"`

	Dependencies *DepsDef `yaml:"dependencies,omitempty"`
}

// DepsDef describes a dependency chain.
type DepsDef struct {
	Chain []ChainDef `yaml:"chain"`

	// Ignore lists patterns stripped from candidate text while the chain
	// resolves.
	Ignore []string `yaml:"ignore,omitempty"`
}

// ChainDef is one chain step: a reference to a rule defined elsewhere in the
// file, a one-of group, or an inline rule definition.
type ChainDef struct {
	Ref     string    `yaml:"ref,omitempty"`
	OneOf   []RuleDef `yaml:"oneof,omitempty"`
	RuleDef `yaml:",inline"`
}

// SkipDef describes a skip rule.
type SkipDef struct {
	Patterns []string `yaml:"patterns"`
}

// IgnoreDef describes an ignore rule. Force must be set, matching the
// Builder.Ignore gate.
type IgnoreDef struct {
	Pattern string `yaml:"pattern"`
	Force   bool   `yaml:"force,omitempty"`
}

// Library holds the named resources a rules file may reference. Rule values
// are handed to the builder as-is, so a library meant for reuse should
// produce fresh rules per lookup.
type Library struct {
	Transforms map[string]Transform
	Rules      map[string]*Rule
}

// LoadRulesFile loads and parses a YAML rules file.
func LoadRulesFile(filename string) (*RulesFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file '%s': %w", filename, err)
	}

	var rf RulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in rules file '%s': %w", filename, err)
	}
	return &rf, nil
}

// NewBuilder turns the file into a ready-to-build Builder. The library
// resolves premade and transform names; pass nil when the file uses
// neither. Unknown names are reported with a nearest-match suggestion.
func (f *RulesFile) NewBuilder(lib *Library) (*Builder, error) {
	var b *Builder
	if f.LineBreak != "" {
		if _, err := regexp.Compile(f.LineBreak); err != nil {
			return nil, fmt.Errorf("invalid linebreak pattern: %w", err)
		}
		b = NewBuilderWithLineBreak(f.LineBreak)
	} else {
		b = NewBuilder()
	}

	if f.Error != "" {
		b.OnError(ErrorTemplate(f.Error))
	}

	for _, name := range f.Premade {
		r, ok := lookupRule(lib, name)
		if !ok {
			return nil, unknownName("premade rule", name, ruleNames(lib))
		}
		b.Load(r)
	}

	defined := make(map[string]*Rule)
	for _, def := range f.Rules {
		r, err := def.build(lib, defined)
		if err != nil {
			return nil, err
		}
		if _, dup := defined[def.Type]; dup {
			return nil, fmt.Errorf("rule type %q is defined twice", def.Type)
		}
		defined[def.Type] = r
		b.AddRule(r)
	}

	for _, def := range f.Skips {
		if err := validatePatterns("skip rule", def.Patterns); err != nil {
			return nil, err
		}
		b.Skip(def.Patterns...)
	}

	for _, def := range f.Ignore {
		if _, err := regexp.Compile(def.Pattern); err != nil {
			return nil, fmt.Errorf("ignore rule: invalid pattern %q: %w", def.Pattern, err)
		}
		if _, err := b.Ignore(def.Pattern, def.Force); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// build constructs the rule a definition describes. Chain references
// resolve against rules defined earlier in the file.
func (d *RuleDef) build(lib *Library, defined map[string]*Rule) (*Rule, error) {
	if d.Type == "" {
		return nil, fmt.Errorf("rule definition is missing a type")
	}
	if err := validatePatterns(fmt.Sprintf("rule %q", d.Type), d.Patterns); err != nil {
		return nil, err
	}

	r := NewRule(TokenType(d.Type), d.Patterns...)
	if d.Hidden {
		r.Hide()
	}
	if d.Group > 0 {
		if d.Group > maxGroups(d.Patterns) {
			return nil, fmt.Errorf("rule %q: group %d exceeds the capturing groups of its patterns", d.Type, d.Group)
		}
		r.WithGroup(d.Group)
	}
	if d.Error != "" {
		r.WithError(ErrorTemplate(d.Error))
	}
	if d.Transform != "" {
		fn, ok := lookupTransform(lib, d.Transform)
		if !ok {
			return nil, unknownName("transform", d.Transform, transformNames(lib))
		}
		r.WithTransform(fn)
	}

	if d.Dependencies != nil {
		deps, err := d.Dependencies.build(lib, defined)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", d.Type, err)
		}
		r.WithDeps(deps)
	}
	if d.AcceptSkips != nil {
		r.AcceptSkips(*d.AcceptSkips)
	}
	return r, nil
}

func (d *DepsDef) build(lib *Library, defined map[string]*Rule) (*Dependencies, error) {
	steps := make([]ChainStep, 0, len(d.Chain))
	for i, entry := range d.Chain {
		step, err := entry.build(lib, defined)
		if err != nil {
			return nil, fmt.Errorf("chain step %d: %w", i, err)
		}
		steps = append(steps, step)
	}

	deps := Chain(steps...)
	for _, pat := range d.Ignore {
		if _, err := regexp.Compile(pat); err != nil {
			return nil, fmt.Errorf("chain ignore: invalid pattern %q: %w", pat, err)
		}
		deps.Ignore = append(deps.Ignore, NewRule(IgnoredType, pat))
	}
	return deps, nil
}

func (d *ChainDef) build(lib *Library, defined map[string]*Rule) (ChainStep, error) {
	if d.Ref != "" {
		r, err := resolveChainRef(d.Ref, lib, defined)
		if err != nil {
			return nil, err
		}
		return Step(r), nil
	}

	if len(d.OneOf) > 0 {
		rules := make([]*Rule, 0, len(d.OneOf))
		for _, def := range d.OneOf {
			r, err := buildChainRule(&def, lib, defined)
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		}
		return OneOf(rules...), nil
	}

	r, err := buildChainRule(&d.RuleDef, lib, defined)
	if err != nil {
		return nil, err
	}
	return Step(r), nil
}

// buildChainRule builds an inline chain rule. Chains cannot nest: a chain
// rule with dependencies of its own would never have them resolved.
func buildChainRule(d *RuleDef, lib *Library, defined map[string]*Rule) (*Rule, error) {
	if d.Dependencies != nil {
		return nil, fmt.Errorf("chain rule %q: chain rules cannot have dependencies of their own", d.Type)
	}
	return d.build(lib, defined)
}

func resolveChainRef(name string, lib *Library, defined map[string]*Rule) (*Rule, error) {
	if r, ok := defined[name]; ok {
		return r, nil
	}
	if r, ok := lookupRule(lib, name); ok {
		return r, nil
	}
	known := make([]string, 0, len(defined))
	for n := range defined {
		known = append(known, n)
	}
	known = append(known, ruleNames(lib)...)
	return nil, unknownName("chain reference", name, known)
}

func validatePatterns(what string, patterns []string) error {
	if len(patterns) == 0 {
		return fmt.Errorf("%s has no patterns", what)
	}
	for _, pat := range patterns {
		if _, err := regexp.Compile(pat); err != nil {
			return fmt.Errorf("%s: invalid pattern %q: %w", what, pat, err)
		}
	}
	return nil
}

func maxGroups(patterns []string) int {
	max := 0
	for _, pat := range patterns {
		if re, err := regexp.Compile(pat); err == nil && re.NumSubexp() > max {
			max = re.NumSubexp()
		}
	}
	return max
}

func lookupRule(lib *Library, name string) (*Rule, bool) {
	if lib == nil || lib.Rules == nil {
		return nil, false
	}
	r, ok := lib.Rules[name]
	return r, ok
}

func lookupTransform(lib *Library, name string) (Transform, bool) {
	if lib == nil || lib.Transforms == nil {
		return nil, false
	}
	fn, ok := lib.Transforms[name]
	return fn, ok
}

func ruleNames(lib *Library) []string {
	if lib == nil {
		return nil
	}
	names := make([]string, 0, len(lib.Rules))
	for name := range lib.Rules {
		names = append(names, name)
	}
	return names
}

func transformNames(lib *Library) []string {
	if lib == nil {
		return nil
	}
	names := make([]string, 0, len(lib.Transforms))
	for name := range lib.Transforms {
		names = append(names, name)
	}
	return names
}

// unknownName reports an unresolved name with a nearest-match hint when the
// known names contain something close.
func unknownName(what, name string, known []string) error {
	ranks := fuzzy.RankFindNormalizedFold(name, known)
	if len(ranks) == 0 {
		return fmt.Errorf("unknown %s %q", what, name)
	}
	sort.Sort(ranks)
	return fmt.Errorf("unknown %s %q (did you mean %q?)", what, name, ranks[0].Target)
}

// DefaultRulesFile returns a starter configuration covering a small
// expression language. It references the transform names of the premade
// library. The generic rules come first so the specific literal rules win
// the overlaps.
func DefaultRulesFile() *RulesFile {
	return &RulesFile{
		Rules: []RuleDef{
			{Type: "IDENTIFIER", Patterns: []string{`([a-zA-Z]|_[a-zA-Z]){1}[a-zA-Z0-9_]*`}},
			{Type: "OPERATOR", Patterns: []string{`[\+\-\*\%\=\&\|\~\^\<\>\?\:\!\/]+`}},
			{Type: "INT", Patterns: []string{`[0-9]+`}, Transform: "int"},
			{Type: "FLOAT", Patterns: []string{`([0-9]+|)(\.|\,)[0-9]+`}, Transform: "float"},
			{Type: "BOOL", Patterns: []string{`(True|False)+`}, Transform: "bool"},
			{Type: "STRING", Patterns: []string{`"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`}, Transform: "string"},
			{Type: "COMMENT", Patterns: []string{`\/\*[\s\S]*?\*\/|\/\/.*`}, Hidden: true},
		},
		Skips: []SkipDef{
			{Patterns: []string{`[ \t]+`}},
		},
	}
}
