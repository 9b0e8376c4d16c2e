package articulation

// scanBalancedObject locates the first '{' in s and returns the substring up to
// and including the '}' that brings the brace depth back to zero.
//
// The scan is a byte-level state machine tracking brace depth, whether the
// cursor is inside a JSON string, and whether the previous byte inside a string
// was a backslash. Braces inside string values are ignored, so values such as
// "costs $5 {special}" or "say \"}\"" do not end the object early.
//
// It is safe to iterate bytes for the ASCII delimiters ({, }, ", \) because
// UTF-8 guarantees that ASCII bytes never appear inside a multi-byte sequence.
//
// ok is false when s has no '{' or the object starting there never closes.
func scanBalancedObject(s string) (obj string, ok bool) {
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}

	var depth int
	var inString bool
	var escape bool

	for i := start; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
