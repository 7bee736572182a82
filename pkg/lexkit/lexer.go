package lexkit

import (
	"fmt"
	"strings"
)

// Lexer converts text into a token stream using the rule list it was built
// with. The rule list is read-only once built; Evaluate resets all
// positional state on entry, so one engine can process any number of texts.
type Lexer struct {
	original  string
	remaining string
	pos       int // absolute position in original
	col       int // position within the current line
	line      int
	legacy    int // superseded token-based line counter
	done      bool

	rules     []*Rule
	ignores   []*Rule
	errSpec   *ErrorSpec
	lineBreak *Rule
}

// MatchResult is the outcome of analysing a stretch of text against a rule
// list. When several rules match, the last one declared is the one reported.
type MatchResult struct {
	Matched bool
	Rule    *Rule
	Token   *Token
}

func newLexer(rules, ignores []*Rule, errSpec *ErrorSpec) *Lexer {
	return &Lexer{
		rules:     rules,
		ignores:   ignores,
		errSpec:   errSpec,
		lineBreak: rules[0],
		legacy:    -1,
		done:      true,
	}
}

// OriginalText returns the text loaded by the last Evaluate call.
func (lx *Lexer) OriginalText() string {
	return lx.original
}

func (lx *Lexer) String() string {
	if !lx.done {
		firstLine := lx.remaining
		if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
			firstLine = firstLine[:i]
		}
		return fmt.Sprintf("Lexer(current_text: %q, pos: %d, line: %d)", firstLine, lx.pos, lx.line)
	}
	return fmt.Sprintf("Lexer(loaded_text: %q)", lx.original)
}

func (lx *Lexer) reset() {
	lx.pos = 0
	lx.col = 0
	lx.line = 0
	lx.legacy = -1
}

func (lx *Lexer) load(text string) {
	lx.original = text
	lx.remaining = text
	lx.done = len(text) == 0
}

// Evaluate converts text to a stream of entries: plain tokens, and one group
// per dependent token holding the trigger followed by its resolved chain.
func (lx *Lexer) Evaluate(text string) ([]Entry, error) {
	lx.reset()
	lx.load(text)

	stream := []Entry{}
	for !lx.done {
		tok, err := lx.nextToken(lx.rules, lx.ignores, lx.errSpec)
		if err != nil {
			return nil, err
		}
		if tok.Type == eofType {
			break
		}
		if tok.IsDependent() {
			group, err := lx.resolveDependents(tok)
			if err != nil {
				return nil, err
			}
			stream = append(stream, Entry{Group: group})
			continue
		}
		stream = append(stream, Entry{Token: tok})
	}
	return stream, nil
}

// resolveDependents matches one token per chain step of a freshly matched
// dependent token and returns the group, trigger first. Chain entries of
// the line-break type are subset members rather than steps. Each step is
// matched against the chain's line-break rule, the carried skip rules, and
// the step's own candidates, so later candidates win ties as usual.
func (lx *Lexer) resolveDependents(trigger *Token) ([]*Token, error) {
	deps := trigger.Dependencies()
	group := []*Token{trigger}
	lineBreak, _ := chainLineBreak(deps.Chain)

	for _, step := range deps.Chain {
		var candidates []*Rule
		var errSpec *ErrorSpec

		switch s := step.(type) {
		case *singleStep:
			if s.rule.Type == JumpLineType {
				continue
			}
			candidates = []*Rule{s.rule}
			errSpec = s.rule.errSpec
		case *choiceStep:
			if len(s.rules) == 0 {
				continue
			}
			candidates = s.rules
			errSpec = s.rules[0].errSpec
		}
		if errSpec == nil {
			errSpec = lx.errSpec
		}

		subset := make([]*Rule, 0, 1+len(trigger.skips)+len(candidates))
		if lineBreak != nil {
			subset = append(subset, lineBreak)
		}
		subset = append(subset, trigger.skips...)
		subset = append(subset, candidates...)

		tok, err := lx.nextToken(subset, deps.Ignore, errSpec)
		if err != nil {
			return nil, err
		}
		if tok.Type == eofType {
			return nil, errSpec.render(lx.errorContext())
		}
		group = append(group, tok)
	}
	return group, nil
}

// nextToken pulls the next visible token out of the remaining input.
// Ignore rules act as primary matchers first: text they match at the front
// is consumed outright. Invisible matches are consumed and skipped over.
// Exhaustion surfaces as the internal end-of-input token.
func (lx *Lexer) nextToken(rules, ignores []*Rule, errSpec *ErrorSpec) (*Token, error) {
	for !lx.done {
		if res := lx.Analyze(lx.remaining, ignores, nil); res.Matched {
			lx.consume(res.Token.advanceText())
			continue
		}

		res := lx.Analyze(lx.remaining, rules, ignores)
		if !res.Matched {
			return nil, errSpec.render(lx.errorContext())
		}

		raw := res.Token.advanceText()
		if n := strings.Count(raw, "\n"); n > 0 {
			lx.line += n
			lx.col = 0
		}
		lx.consume(raw)

		if !res.Token.Visible {
			continue
		}
		return res.Token, nil
	}
	return &Token{Type: eofType, Line: lx.line, LegacyLine: lx.legacy}, nil
}

// Analyze matches text against a rule list and reports the winning match.
// Every rule is tried and the last match overwrites earlier ones; ignore
// rules are stripped from the candidate text first. Transforms of losing
// matches still run.
func (lx *Lexer) Analyze(text string, rules []*Rule, ignores []*Rule) MatchResult {
	candidate := text
	for _, ig := range ignores {
		candidate = ig.stripAll(candidate)
	}

	result := MatchResult{}
	for _, r := range rules {
		tok, ok := r.match(candidate, lx.line, lx.col, lx.legacy)
		if !ok {
			continue
		}
		if r.Type == JumpLineType && r.transform == nil {
			lx.legacy++
		}
		result = MatchResult{Matched: true, Rule: r, Token: tok}
	}
	return result
}

// consume advances the absolute and in-line positions by the matched text.
// The buffer is sliced forward only when the match is its literal prefix;
// after ignore stripping the match can diverge from the buffer, and then
// the absolute position alone carries termination.
func (lx *Lexer) consume(raw string) {
	lx.pos += len(raw)
	lx.col += len(raw)
	if lx.pos >= len(lx.original) {
		lx.done = true
		return
	}
	if strings.HasPrefix(lx.remaining, raw) {
		lx.remaining = lx.remaining[len(raw):]
	}
}

// errorContext captures the failure position and the offending text, cut at
// the first line break so the snippet stays readable.
func (lx *Lexer) errorContext() ErrorContext {
	return ErrorContext{
		Line: lx.line,
		Pos:  lx.pos,
		Text: lx.lineBreak.splitFirst(lx.remaining),
	}
}
