package lexkit

import (
	"encoding/json"
	"testing"
)

func TestTokenEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  *Token
		equal bool
	}{
		{"Same type and value", &Token{Type: "WORD", Value: "hi"}, &Token{Type: "WORD", Value: "hi"}, true},
		{"Positions are ignored", &Token{Type: "WORD", Value: "hi"}, &Token{Type: "WORD", Value: "hi", Line: 3, Col: 7}, true},
		{"Different type", &Token{Type: "WORD", Value: "hi"}, &Token{Type: "NAME", Value: "hi"}, false},
		{"Different value", &Token{Type: "WORD", Value: "hi"}, &Token{Type: "WORD", Value: "ho"}, false},
		{"Container values compare deeply", &Token{Type: "LIST", Value: []any{1, 2}}, &Token{Type: "LIST", Value: []any{1, 2}}, true},
		{"Nil other", &Token{Type: "WORD", Value: "hi"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Expected Equal to be %v, got %v", tt.equal, got)
			}
		})
	}
}

func TestTokenStrictEqual(t *testing.T) {
	base := &Token{Type: "WORD", Value: "hi", Visible: true, Line: 1, Col: 2, LegacyLine: 0}

	tests := []struct {
		name  string
		other *Token
		equal bool
	}{
		{"Identical", &Token{Type: "WORD", Value: "hi", Visible: true, Line: 1, Col: 2, LegacyLine: 0}, true},
		{"Moved", &Token{Type: "WORD", Value: "hi", Visible: true, Line: 2, Col: 0, LegacyLine: 1}, false},
		{"Hidden", &Token{Type: "WORD", Value: "hi", Visible: false, Line: 1, Col: 2, LegacyLine: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.StrictEqual(tt.other); got != tt.equal {
				t.Errorf("Expected StrictEqual to be %v, got %v", tt.equal, got)
			}
			if tt.other != nil && !base.Equal(tt.other) {
				t.Errorf("Expected Equal to hold regardless of positions")
			}
		})
	}
}

func TestEntryTokens(t *testing.T) {
	single := Entry{Token: &Token{Type: "A", Raw: "a"}}
	if single.IsGroup() {
		t.Errorf("Expected single entry not to be a group")
	}
	if got := single.Tokens(); len(got) != 1 || got[0].Type != "A" {
		t.Errorf("Expected one token of type A, got %v", got)
	}

	group := Entry{Group: []*Token{{Type: "A"}, {Type: "B"}}}
	if !group.IsGroup() {
		t.Errorf("Expected group entry to be a group")
	}
	if got := group.Tokens(); len(got) != 2 {
		t.Errorf("Expected 2 tokens, got %d", len(got))
	}

	var empty Entry
	if got := empty.Tokens(); got != nil {
		t.Errorf("Expected no tokens, got %v", got)
	}
}

func TestEntryJSONRoundTrip(t *testing.T) {
	single := Entry{Token: &Token{Type: "INT", Value: 42, Raw: "42", Line: 0, Col: 0}}
	data, err := json.Marshal(single)
	if err != nil {
		t.Fatalf("Failed to serialize single entry: %v", err)
	}
	if data[0] != '{' {
		t.Errorf("Expected single entry to encode as an object, got %s", data)
	}

	var back Entry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Failed to deserialize single entry: %v", err)
	}
	if back.IsGroup() {
		t.Errorf("Expected single entry after round-trip, got a group")
	}
	if back.Token.Type != "INT" || back.Token.Raw != "42" {
		t.Errorf("Entry mismatch after round-trip: got %+v", back.Token)
	}

	group := Entry{Group: []*Token{
		{Type: "KEY", Raw: "key", Value: "key"},
		{Type: "VALUE", Raw: "7", Value: 7},
	}}
	data, err = json.Marshal(group)
	if err != nil {
		t.Fatalf("Failed to serialize group entry: %v", err)
	}
	if data[0] != '[' {
		t.Errorf("Expected group entry to encode as an array, got %s", data)
	}

	var backGroup Entry
	if err := json.Unmarshal(data, &backGroup); err != nil {
		t.Fatalf("Failed to deserialize group entry: %v", err)
	}
	if !backGroup.IsGroup() || len(backGroup.Group) != 2 {
		t.Errorf("Expected a group of 2 tokens after round-trip, got %+v", backGroup)
	}
	if backGroup.Group[0].Type != "KEY" || backGroup.Group[1].Type != "VALUE" {
		t.Errorf("Group types mismatch after round-trip: got %+v", backGroup.Group)
	}

	var bad Entry
	if err := json.Unmarshal([]byte("   "), &bad); err == nil {
		t.Errorf("Expected an error for a blank entry")
	}
}

func TestTokenJSONShape(t *testing.T) {
	tok := &Token{Type: "MUFFIN", Value: "Muffin", Raw: "Muffin", Original: "KadMuffin", Line: 1, Col: 4, LegacyLine: 0, Visible: true}
	data, err := json.Marshal(tok)
	if err != nil {
		t.Fatalf("Failed to serialize token: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Failed to decode token JSON: %v", err)
	}
	for _, key := range []string{"type", "value", "raw", "original", "line", "col"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("Expected field %q in token JSON, got %s", key, data)
		}
	}
	if _, ok := fields["original"]; !ok {
		t.Errorf("Expected original to be present for a narrowed match")
	}

	plain := &Token{Type: "WORD", Value: "hi", Raw: "hi"}
	data, err = json.Marshal(plain)
	if err != nil {
		t.Fatalf("Failed to serialize token: %v", err)
	}
	fields = map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Failed to decode token JSON: %v", err)
	}
	if _, ok := fields["original"]; ok {
		t.Errorf("Expected original to be omitted for a whole match, got %s", data)
	}
}
