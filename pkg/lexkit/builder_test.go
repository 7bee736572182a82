package lexkit

import (
	"errors"
	"testing"
)

func TestBuilderPositions(t *testing.T) {
	b := NewBuilder()

	if b.LineBreakRule().Type != JumpLineType {
		t.Fatalf("Expected position 0 to hold the line-break rule, got %s", b.LineBreakRule().Type)
	}
	if b.LineBreakRule().Visible() {
		t.Errorf("Expected the line-break rule to be hidden")
	}

	if pos := b.Add("A", `a`); pos != 1 {
		t.Errorf("Expected position 1, got %d", pos)
	}
	if pos := b.Skip(`[ \t]+`); pos != 2 {
		t.Errorf("Expected position 2, got %d", pos)
	}
	if got := b.Load(NewRule("B", `b`), NewRule("C", `c`)); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("Expected positions [3 4], got %v", got)
	}
}

func TestBuilderEvaluate(t *testing.T) {
	b := NewBuilder()
	b.Add("WORD", `[a-z]+`)
	b.Skip(`[ \t]+`)

	entries, err := b.Evaluate("foo bar")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Token.Raw != "foo" || entries[1].Token.Raw != "bar" {
		t.Errorf("Expected tokens 'foo' and 'bar', got %q and %q", entries[0].Token.Raw, entries[1].Token.Raw)
	}
}

func TestBuildWithoutSkipInjection(t *testing.T) {
	build := func(inject bool) ([]Entry, error) {
		b := NewBuilder()
		b.AddRule(NewRule("PAIR", `key`).WithDeps(Chain(Step(NewRule("VALUE", `value`)))))
		b.Skip(`[ \t]+`)
		if inject {
			return b.Build().Evaluate("key value")
		}
		return b.BuildWithoutSkipInjection().Evaluate("key value")
	}

	entries, err := build(true)
	if err != nil {
		t.Fatalf("Unexpected error with skip injection: %v", err)
	}
	if len(entries) != 1 || !entries[0].IsGroup() || len(entries[0].Group) != 2 {
		t.Fatalf("Expected one group of 2 tokens, got %+v", entries)
	}

	_, err = build(false)
	if err == nil {
		t.Fatalf("Expected the chain to fail without skip injection")
	}
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Errorf("Expected a LexError, got %T", err)
	}
}

func TestIgnoreForceGate(t *testing.T) {
	b := NewBuilder()

	if _, err := b.Ignore(`noise`, false); !errors.Is(err, ErrIgnoreExperimental) {
		t.Errorf("Expected ErrIgnoreExperimental without force, got %v", err)
	}

	pos, err := b.Ignore(`noise`, true)
	if err != nil {
		t.Fatalf("Unexpected error with force: %v", err)
	}
	if pos != 0 {
		t.Errorf("Expected ignore position 0, got %d", pos)
	}

	pos, err = b.Ignore(`static`, true)
	if err != nil {
		t.Fatalf("Unexpected error with force: %v", err)
	}
	if pos != 1 {
		t.Errorf("Expected ignore position 1, got %d", pos)
	}
}

func TestLoadWithoutTransforms(t *testing.T) {
	r := NewRule("CONST", `seven`).WithTransform(func(string) (any, bool) { return 7, true })

	b := NewBuilder()
	b.LoadWithoutTransforms(r)

	entries, err := b.Evaluate("seven")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if entries[0].Token.Value != "seven" {
		t.Errorf("Expected the raw text as value, got %v", entries[0].Token.Value)
	}
}

func TestOnErrorTemplate(t *testing.T) {
	b := NewBuilder()
	b.Add("A", `a`)
	b.OnError(ErrorTemplate("line [[LINE]] broke on [[TEXT]]"))

	_, err := b.Evaluate("zzz")
	if err == nil {
		t.Fatalf("Expected an error")
	}
	if err.Error() != "line 0 broke on zzz" {
		t.Errorf("Expected rendered template, got %q", err.Error())
	}

	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("Expected a LexError, got %T", err)
	}
	if lexErr.Line != 0 || lexErr.Text != "zzz" {
		t.Errorf("Expected line 0 and text 'zzz', got line %d and %q", lexErr.Line, lexErr.Text)
	}
}

func TestOnErrorHandler(t *testing.T) {
	var captured []ErrorContext
	b := NewBuilder()
	b.Add("A", `a`)
	b.OnError(ErrorHandler(func(ctx ErrorContext) {
		captured = append(captured, ctx)
	}))

	_, err := b.Evaluate("??")
	if err == nil {
		t.Fatalf("Expected evaluation to fail after the handler runs")
	}
	if err.Error() != `lexing error at line 0, pos 0: no rule matches "??"` {
		t.Errorf("Expected the default message after a handler, got %q", err.Error())
	}
	if len(captured) != 1 {
		t.Fatalf("Expected the handler to run once, ran %d times", len(captured))
	}
	if captured[0].Text != "??" || captured[0].Line != 0 {
		t.Errorf("Expected context for '??' at line 0, got %+v", captured[0])
	}
}

func TestChainFallsBackToEngineError(t *testing.T) {
	b := NewBuilder()
	b.OnError(ErrorTemplate("engine says [[TEXT]]"))
	b.AddRule(NewRule("T", `t`).WithDeps(Chain(Step(NewRule("U", `u`)))))

	_, err := b.Evaluate("tx")
	if err == nil {
		t.Fatalf("Expected an error")
	}
	if err.Error() != "engine says x" {
		t.Errorf("Expected the engine error inside the chain, got %q", err.Error())
	}
}

func TestSkipRuleKeepsPreparedAcceptance(t *testing.T) {
	r := NewRule("ANY", `\s+`).AcceptSkips(false)
	b := NewBuilder()
	b.SkipRule(r)

	if r.Type != SkippedType {
		t.Errorf("Expected SkipRule to force the skipped type, got %s", r.Type)
	}
	if r.Visible() {
		t.Errorf("Expected SkipRule to hide the rule")
	}
	if r.AcceptsSkips() {
		t.Errorf("Expected the prepared acceptance to survive SkipRule")
	}
}
