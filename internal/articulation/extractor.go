package articulation

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// =============================================================================
// MESSAGE EXTRACTOR - Raw model output → display text
// =============================================================================
// Model output is unreliable text, not a trusted machine format. Extraction
// degrades through decreasing levels of structural assumption:
//
//	fenced/bare JSON envelope → balanced-scan recovery → envelope pattern → prose
//
// and never fails.

// ParseMethod names the strategy that produced an extraction.
type ParseMethod string

const (
	MethodEmpty   ParseMethod = "empty"            // blank input
	MethodJSON    ParseMethod = "json"             // body parsed directly
	MethodScanned ParseMethod = "json_scanned"     // balanced object recovered from mixed content
	MethodPattern ParseMethod = "envelope_pattern" // literal {"type","message"} shape matched
	MethodPlain   ParseMethod = "plain"            // no structure recognized
)

// maxNestedUnwraps bounds how many extra envelope layers are peeled off after
// the first. Backends double-wrap, never triple-wrap.
const maxNestedUnwraps = 1

var (
	errNotJSON        = errors.New("not a JSON document")
	errNoMessageField = errors.New("no string message or content field")
)

// envelopePattern matches the literal envelope shape and captures the still
// escaped message value.
var envelopePattern = regexp.MustCompile(`\{\s*"type"\s*:\s*"(?:[^"\\]|\\.)*"\s*,\s*"message"\s*:\s*"((?:[^"\\]|\\.)*)"\s*\}`)

// Extraction is the result of one extraction pass.
type Extraction struct {
	Text   string      // escape-normalized display text
	Method ParseMethod // strategy that produced Text
	Layers int         // envelopes unwrapped (0, 1 or 2)
	Fenced bool        // an outer markdown fence was stripped
}

// Extractor turns raw model output into display text. The zero value disables
// the pattern fallback; use DefaultExtractor for the full fallback chain.
// Extractor holds no mutable state and is safe for concurrent use.
type Extractor struct {
	// PatternFallback enables the last-resort envelope regular expression.
	PatternFallback bool
}

// DefaultExtractor returns an Extractor with every fallback enabled.
func DefaultExtractor() Extractor {
	return Extractor{PatternFallback: true}
}

// Extract returns the best-effort display text for raw.
func Extract(raw string) string {
	return DefaultExtractor().Extract(raw).Text
}

// Extract runs the fallback chain over raw.
func (e Extractor) Extract(raw string) Extraction {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Extraction{Method: MethodEmpty}
	}

	body, fenced := stripOuterFence(trimmed)
	res := Extraction{Fenced: fenced}

	text, layers, err := unwrapEnvelope(body)
	switch {
	case err == nil:
		res.Method = MethodJSON
	case errors.Is(err, errNotJSON):
		text, layers, err = recoverEnvelope(body)
		if err == nil {
			res.Method = MethodScanned
		}
	}

	if err != nil && e.PatternFallback {
		if m := envelopePattern.FindStringSubmatch(body); m != nil {
			text, layers, err = patternUnescaper.Replace(m[1]), 1, nil
			res.Method = MethodPattern
		}
	}

	if err != nil {
		res.Method = MethodPlain
		text = body
	}

	res.Text = NormalizeEscapes(text)
	res.Layers = layers
	return res
}

// stripOuterFence removes a ```json or bare ``` fence wrapping the whole
// message. Fences tagged with another language are left alone, and so is an
// opening fence that closes before the end of the message.
func stripOuterFence(s string) (string, bool) {
	if len(s) < 6 || !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") {
		return s, false
	}

	inner := s[3 : len(s)-3]
	if strings.Contains(inner, "```") {
		return s, false
	}
	if len(inner) >= 4 && strings.EqualFold(inner[:4], "json") {
		inner = inner[4:]
	}

	// Anything else glued to the opening fence is a language tag.
	if inner != "" && !isSpace(inner[0]) && inner[0] != '{' && inner[0] != '[' {
		return s, false
	}
	return strings.TrimSpace(inner), true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// unwrapEnvelope decodes s as an envelope and then peels at most
// maxNestedUnwraps further layers off a double-encoded message.
func unwrapEnvelope(s string) (string, int, error) {
	text, err := decodeEnvelope(s)
	if err != nil {
		return "", 0, err
	}
	return unwrapNested(text, 1)
}

// recoverEnvelope runs balanced-scan recovery over mixed content.
func recoverEnvelope(s string) (string, int, error) {
	obj, ok := scanBalancedObject(s)
	if !ok {
		return "", 0, errNotJSON
	}
	return unwrapEnvelope(obj)
}

// unwrapNested re-parses a candidate that itself looks like a serialized
// envelope. The loop is bounded; a layer that does not decode stops it and the
// last successful layer wins.
func unwrapNested(text string, layers int) (string, int, error) {
	for i := 0; i < maxNestedUnwraps; i++ {
		candidate := strings.TrimSpace(text)
		if !strings.HasPrefix(candidate, `{"`) {
			break
		}
		inner, err := decodeEnvelope(candidate)
		if err != nil {
			break
		}
		text = inner
		layers++
	}
	return text, layers, nil
}

// decodeEnvelope parses s into a generic JSON value and probes it for a
// string-typed "message" field, then "content". No fixed schema is assumed.
func decodeEnvelope(s string) (string, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return "", errNotJSON
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return "", errNoMessageField
	}
	if msg, ok := obj["message"].(string); ok {
		return msg, nil
	}
	if content, ok := obj["content"].(string); ok {
		return content, nil
	}
	return "", errNoMessageField
}
