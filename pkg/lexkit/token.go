package lexkit

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// TokenType names the kind of text a rule recognises. Most values are chosen
// freely by the caller; the constants below are reserved by the toolkit.
type TokenType string

const (
	// JumpLineType marks the line-break rule installed at position 0 of
	// every builder. Chain entries of this type are never matching steps.
	JumpLineType TokenType = "JUMP_LINE"

	// SkippedType marks rules registered through Skip. Their matches are
	// consumed without surfacing in the token stream.
	SkippedType TokenType = "SKIPPED"

	// IgnoredType marks rules registered through Ignore. Their matches are
	// stripped from candidate text before other rules run.
	IgnoredType TokenType = "IGNORED"

	// eofType signals input exhaustion inside the engine. It never appears
	// in a returned stream.
	eofType TokenType = "EOF"
)

// Token is a single recognised piece of input.
type Token struct {
	Type  TokenType `json:"type"`
	Value any       `json:"value"`

	// Raw is the matched text before any transform ran. When a capturing
	// group narrows the match, Raw holds the group text and Original the
	// whole match.
	Raw      string `json:"raw"`
	Original string `json:"original,omitempty"`

	Line int `json:"line"`
	Col  int `json:"col"`

	// LegacyLine is the value of the superseded token-based line counter,
	// kept for output compatibility. It starts at -1 and advances once per
	// matched line-break token. Use Line instead.
	LegacyLine int `json:"-"`

	Visible bool `json:"-"`

	rule  *Rule
	deps  *Dependencies
	skips []*Rule
}

// IsDependent reports whether the token still needs its dependency chain
// resolved before it is complete.
func (t *Token) IsDependent() bool {
	return t.deps != nil
}

// Dependencies returns the chain the token carries, or nil.
func (t *Token) Dependencies() *Dependencies {
	return t.deps
}

// Parent returns the rule that produced the token.
func (t *Token) Parent() *Rule {
	return t.rule
}

// advanceText is the text the engine consumes for this token: the whole
// match when a capturing group narrowed the value, the match itself
// otherwise.
func (t *Token) advanceText() string {
	if t.Original != "" {
		return t.Original
	}
	return t.Raw
}

// Equal reports whether both tokens have the same type and value.
func (t *Token) Equal(other *Token) bool {
	if other == nil {
		return false
	}
	return t.Type == other.Type && reflect.DeepEqual(t.Value, other.Value)
}

// StrictEqual additionally compares visibility and the recorded positions.
func (t *Token) StrictEqual(other *Token) bool {
	if !t.Equal(other) {
		return false
	}
	return t.Visible == other.Visible &&
		t.Line == other.Line &&
		t.Col == other.Col &&
		t.LegacyLine == other.LegacyLine
}

func (t *Token) String() string {
	if raw, ok := t.Value.(string); !ok || raw != t.Raw {
		return fmt.Sprintf("token(type: %q, value: %#v, raw: %q, line: %d)", t.Type, t.Value, t.Raw, t.Line)
	}
	return fmt.Sprintf("token(type: %q, value: %#v, line: %d)", t.Type, t.Value, t.Line)
}

// Entry is one element of the token stream: either a single token or the
// resolved group of a dependent token, trigger first.
type Entry struct {
	Token *Token
	Group []*Token
}

// IsGroup reports whether the entry holds a dependent-token group.
func (e Entry) IsGroup() bool {
	return e.Group != nil
}

// Tokens returns the entry's tokens regardless of form.
func (e Entry) Tokens() []*Token {
	if e.Group != nil {
		return e.Group
	}
	if e.Token != nil {
		return []*Token{e.Token}
	}
	return nil
}

// MarshalJSON encodes a single token as an object and a group as an array.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Group != nil {
		return json.Marshal(e.Group)
	}
	return json.Marshal(e.Token)
}

// UnmarshalJSON accepts both encodings produced by MarshalJSON.
func (e *Entry) UnmarshalJSON(data []byte) error {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			e.Token = nil
			return json.Unmarshal(data, &e.Group)
		default:
			e.Group = nil
			return json.Unmarshal(data, &e.Token)
		}
	}
	return fmt.Errorf("empty stream entry")
}
