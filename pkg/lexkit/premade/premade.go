// Package premade provides ready-made rules for common token shapes:
// numbers, strings, booleans, flat containers, comments, identifiers and
// operators. Every constructor returns a fresh rule, so callers can attach
// errors or dependencies without affecting other users.
package premade

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spicery/lexkit/pkg/lexkit"
)

// Token types produced by the premade rules.
const (
	IntType                lexkit.TokenType = "INT"
	FloatType              lexkit.TokenType = "FLOAT"
	BoolType               lexkit.TokenType = "BOOL"
	StringType             lexkit.TokenType = "STRING"
	ListType               lexkit.TokenType = "LIST"
	TupleType              lexkit.TokenType = "TUPLE"
	DictionaryType         lexkit.TokenType = "DICTIONARY"
	CommentType            lexkit.TokenType = "COMMENT"
	IdentifierType         lexkit.TokenType = "IDENTIFIER"
	OperatorType           lexkit.TokenType = "OPERATOR"
	ArithmeticOperatorType lexkit.TokenType = "OPERATOR_ARITHMETIC"
	VarDeclarationType     lexkit.TokenType = "VAR_DECLARATION"
	EqOperatorType         lexkit.TokenType = "EQ_OPERATOR"
	ExpressionType         lexkit.TokenType = "EXPRESSION"
)

const (
	intPattern        = `[0-9]+`
	floatPattern      = `([0-9]+|)(\.|\,)[0-9]+`
	boolPattern       = `(True|False)+`
	stringPattern     = `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`
	commentPattern    = `\/\*[\s\S]*?\*\/|\/\/.*`
	identifierPattern = `([a-zA-Z]|_[a-zA-Z]){1}[a-zA-Z0-9_]*`
	operatorPattern   = `[\+\-\*\%\=\&\|\~\^\<\>\?\:\!\/]+`
	arithmeticPattern = `\*|\+|\-|\/`

	// arithExprPattern only matches when it consumes the whole remaining
	// text, so it cannot cut an expression short.
	arithExprPattern = `^[\d ()+-\/\*]+$`

	// Containers hold flat scalar items. Keys in dictionaries are strings.
	itemPattern  = `(?:[+-]?[0-9]+\.[0-9]+|[+-]?[0-9]+|True|False|` + stringPattern + `)`
	pairPattern  = `(?:` + stringPattern + `)\s*:\s*` + itemPattern
	listPattern  = `\[\s*(?:` + itemPattern + `(?:\s*,\s*` + itemPattern + `)*(?:\s*,)?)?\s*\]`
	tuplePattern = `\(\s*(?:` + itemPattern + `(?:\s*,\s*` + itemPattern + `)*(?:\s*,)?)?\s*\)`
	dictPattern  = `\{\s*(?:` + pairPattern + `(?:\s*,\s*` + pairPattern + `)*(?:\s*,)?)?\s*\}`
)

// Int matches unsigned digit runs and yields int values.
func Int() *lexkit.Rule {
	return lexkit.NewRule(IntType, intPattern).WithTransform(intValue)
}

// Float matches decimal numbers, accepting both "." and "," as the decimal
// separator, and yields float64 values.
func Float() *lexkit.Rule {
	return lexkit.NewRule(FloatType, floatPattern).WithTransform(floatValue)
}

// Bool matches True and False and yields bool values.
func Bool() *lexkit.Rule {
	return lexkit.NewRule(BoolType, boolPattern).WithTransform(boolValue)
}

// String matches single- or double-quoted strings with backslash escapes
// and yields the unquoted text.
func String() *lexkit.Rule {
	return lexkit.NewRule(StringType, stringPattern).WithTransform(stringValue)
}

// List matches flat bracketed lists of scalars and yields []any values.
func List() *lexkit.Rule {
	return lexkit.NewRule(ListType, listPattern).WithTransform(literalValue)
}

// Tuple matches flat parenthesised tuples of scalars. A parenthesised
// single value without a trailing comma yields the value itself.
func Tuple() *lexkit.Rule {
	return lexkit.NewRule(TupleType, tuplePattern).WithTransform(tupleValue)
}

// Dict matches flat braced dictionaries with string keys and yields
// map[string]any values.
func Dict() *lexkit.Rule {
	return lexkit.NewRule(DictionaryType, dictPattern).WithTransform(literalValue)
}

// Comment matches block and line comments. The rule is hidden. Block
// comments carry their inner text, stripped of asterisks, as value.
func Comment() *lexkit.Rule {
	return lexkit.NewRule(CommentType, commentPattern).WithTransform(commentValue).Hide()
}

// Identifier matches names starting with a letter or an underscore
// followed by a letter.
func Identifier() *lexkit.Rule {
	return lexkit.NewRule(IdentifierType, identifierPattern)
}

// Operator matches runs of symbolic operator characters.
func Operator() *lexkit.Rule {
	return lexkit.NewRule(OperatorType, operatorPattern)
}

// ArithmeticOperator matches a single arithmetic operator.
func ArithmeticOperator() *lexkit.Rule {
	return lexkit.NewRule(ArithmeticOperatorType, arithmeticPattern)
}

// VarDeclaration matches the var keyword and then requires an identifier,
// an equals sign and a literal expression to follow.
func VarDeclaration() *lexkit.Rule {
	expression := lexkit.NewRule(ExpressionType,
		arithExprPattern,
		stringPattern,
		floatPattern,
		intPattern,
		listPattern,
		tuplePattern,
		dictPattern,
		boolPattern,
	).WithTransform(expressionValue).
		WithError(lexkit.ErrorTemplate("expected a literal expression at line [[LINE]], got '[[TEXT]]'"))

	return lexkit.NewRule(VarDeclarationType, `var`).WithDeps(lexkit.Chain(
		lexkit.Step(lexkit.NewRule(IdentifierType, identifierPattern).
			WithError(lexkit.ErrorTemplate("expected an identifier at line [[LINE]], got '[[TEXT]]'"))),
		lexkit.Step(lexkit.NewRule(EqOperatorType, `=`).
			WithError(lexkit.ErrorTemplate("expected '=' at line [[LINE]], got '[[TEXT]]'"))),
		lexkit.Step(expression),
	))
}

// Rules returns the premade rules keyed by the names rules files use.
// Every call builds fresh rules.
func Rules() map[string]*lexkit.Rule {
	return map[string]*lexkit.Rule{
		"int":                 Int(),
		"float":               Float(),
		"bool":                Bool(),
		"string":              String(),
		"list":                List(),
		"tuple":               Tuple(),
		"dict":                Dict(),
		"comment":             Comment(),
		"identifier":          Identifier(),
		"operator":            Operator(),
		"operator_arithmetic": ArithmeticOperator(),
		"var_declaration":     VarDeclaration(),
	}
}

// Transforms returns the premade value transforms keyed by the names rules
// files use.
func Transforms() map[string]lexkit.Transform {
	return map[string]lexkit.Transform{
		"int":        intValue,
		"float":      floatValue,
		"bool":       boolValue,
		"string":     stringValue,
		"literal":    literalValue,
		"expression": expressionValue,
		"comment":    commentValue,
	}
}

// Library bundles Rules and Transforms for RulesFile.NewBuilder.
func Library() *lexkit.Library {
	return &lexkit.Library{
		Transforms: Transforms(),
		Rules:      Rules(),
	}
}

func intValue(text string) (any, bool) {
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil, false
	}
	return n, true
}

func floatValue(text string) (any, bool) {
	f, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64)
	if err != nil {
		return nil, false
	}
	return f, true
}

func boolValue(text string) (any, bool) {
	switch text {
	case "True":
		return true, true
	case "False":
		return false, true
	}
	return nil, false
}

func stringValue(text string) (any, bool) {
	if len(text) < 2 {
		return nil, false
	}
	_, seg := convertQuoted(text, 0)
	var s string
	if err := json.Unmarshal([]byte(seg), &s); err != nil {
		return nil, false
	}
	return s, true
}

func commentValue(text string) (any, bool) {
	if strings.HasPrefix(text, "/*") && strings.HasSuffix(text, "*/") && len(text) >= 4 {
		inner := text[2 : len(text)-2]
		return strings.ReplaceAll(inner, "*", ""), true
	}
	return nil, false
}

func tupleValue(text string) (any, bool) {
	v, ok := literalValue(text)
	if !ok {
		return nil, false
	}
	if items, isList := v.([]any); isList && len(items) == 1 && !strings.Contains(text, ",") {
		return items[0], true
	}
	return v, true
}

// expressionValue decodes like literalValue, except that a parenthesised
// single value without a trailing comma yields the value itself.
func expressionValue(text string) (any, bool) {
	if strings.HasPrefix(strings.TrimSpace(text), "(") {
		return tupleValue(text)
	}
	return literalValue(text)
}

// literalValue decodes a literal: a number, a boolean, a quoted string or a
// flat container. Text that is not a literal, arithmetic expressions
// included, is declined and keeps its raw form.
func literalValue(text string) (any, bool) {
	dec := json.NewDecoder(strings.NewReader(pythonStyleToJSON(text)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return normalizeNumbers(v), true
}

// pythonStyleToJSON rewrites a literal into JSON form: single quotes become
// double quotes, True/False/None become their JSON spellings, tuple
// parentheses become brackets and trailing commas are dropped. Quoted
// segments are copied without interpretation.
func pythonStyleToJSON(text string) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\'' || c == '"':
			end, seg := convertQuoted(text, i)
			out.WriteString(seg)
			i = end
		case c == ',':
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			if j < len(text) && (text[j] == ')' || text[j] == ']' || text[j] == '}') {
				i++
				continue
			}
			out.WriteByte(c)
			i++
		case c == '(':
			out.WriteByte('[')
			i++
		case c == ')':
			out.WriteByte(']')
			i++
		case c == '+':
			// JSON has no unary plus. Dropping it in prefix position keeps
			// infix pluses intact, so arithmetic still fails to decode.
			if i+1 < len(text) && isDigit(text[i+1]) && unaryContext(out.String()) {
				i++
				continue
			}
			out.WriteByte(c)
			i++
		case strings.HasPrefix(text[i:], "True"):
			out.WriteString("true")
			i += 4
		case strings.HasPrefix(text[i:], "False"):
			out.WriteString("false")
			i += 5
		case strings.HasPrefix(text[i:], "None"):
			out.WriteString("null")
			i += 4
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// convertQuoted copies the quoted segment starting at start into a JSON
// double-quoted string, returning the index just past the closing quote.
func convertQuoted(text string, start int) (int, string) {
	quote := text[start]
	var b strings.Builder
	b.WriteByte('"')
	i := start + 1
	for i < len(text) {
		c := text[i]
		if c == '\\' && i+1 < len(text) {
			next := text[i+1]
			if next == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			i += 2
			continue
		}
		if c == quote {
			i++
			break
		}
		if c == '"' {
			b.WriteString(`\"`)
		} else {
			b.WriteByte(c)
		}
		i++
	}
	b.WriteByte('"')
	return i, b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// unaryContext reports whether a sign written at the end of the output so
// far would be a prefix sign rather than an infix operator.
func unaryContext(written string) bool {
	for i := len(written) - 1; i >= 0; i-- {
		c := written[i]
		if isSpace(c) {
			continue
		}
		return c == '[' || c == '{' || c == ',' || c == ':'
	}
	return true
}

// normalizeNumbers rewrites json.Number values into int where the number is
// integral and float64 otherwise.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := strconv.Atoi(x.String()); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(x.String(), 64); err == nil {
			return f
		}
		return x.String()
	case []any:
		for i := range x {
			x[i] = normalizeNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeNumbers(x[k])
		}
		return x
	}
	return v
}
