// Package markup is a small scanner over HTML embedded in markdown.
//
// It is not a parser: it walks text ranges looking for the handful of constructs
// a README table is made of (headings, elements, attributes) and never fails,
// lookups that find nothing return ok = false.
package markup

import (
	"strings"
)

// StripTags removes every `<...>` substring and trims surrounding whitespace.
// An unterminated `<` is kept as text. Entities are left as-is.
func StripTags(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != '<' {
			out.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i+1:], '>')
		if end < 0 {
			out.WriteString(s[i:])
			break
		}
		i += end + 2
	}

	return strings.TrimSpace(out.String())
}

// Section returns the part of a markdown document that starts at the first heading
// whose text begins with `heading` (case-insensitive, leading '#' marks ignored on both sides)
// and runs up to the next heading of level 1 or 2, or the end of the document.
func Section(doc, heading string) (string, bool) {
	target := strings.ToLower(headingText(heading))
	if target == "" {
		return "", false
	}

	start := -1
	for offset := 0; offset < len(doc); {
		line, next := lineAt(doc, offset)
		if start < 0 {
			if level := headingLevel(line); level > 0 &&
				strings.HasPrefix(strings.ToLower(headingText(line)), target) {
				start = offset
			}
		} else if level := headingLevel(line); level > 0 && level <= 2 {
			return doc[start:offset], true
		}
		offset = next
	}

	if start < 0 {
		return "", false
	}
	return doc[start:], true
}

// lineAt returns the line beginning at offset (without its newline) and the offset of the next line.
func lineAt(doc string, offset int) (string, int) {
	end := strings.IndexByte(doc[offset:], '\n')
	if end < 0 {
		return doc[offset:], len(doc)
	}
	return doc[offset : offset+end], offset + end + 1
}

// headingLevel is the number of leading '#' marks of an ATX heading line, 0 if it is not one.
func headingLevel(line string) int {
	line = strings.TrimLeft(line, " ")
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0
	}
	if level < len(line) && line[level] != ' ' && line[level] != '\t' {
		return 0
	}
	return level
}

func headingText(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#")
	return strings.TrimSpace(line)
}

// Elements returns the inner contents of every `<name ...>...</name>` element in s,
// in document order. Tag names match case-insensitively and elements are assumed not
// to nest; an element missing its closing tag is dropped.
func Elements(s, name string) []string {
	lower := asciiLower(s)
	var out []string
	for offset := 0; offset < len(s); {
		inner, next, ok := nextElement(s, lower, name, offset)
		if !ok {
			break
		}
		out = append(out, inner)
		offset = next
	}
	return out
}

// FirstElement returns the inner contents of the first `<name>` element in s.
func FirstElement(s, name string) (string, bool) {
	inner, _, ok := nextElement(s, asciiLower(s), name, 0)
	return inner, ok
}

// nextElement scans s from offset for the next `name` element. lower must be asciiLower(s).
func nextElement(s, lower, name string, offset int) (inner string, next int, ok bool) {
	name = asciiLower(name)
	closing := "</" + name

	openStart := offset
	for {
		idx := strings.Index(lower[openStart:], "<"+name)
		if idx < 0 {
			return "", len(s), false
		}
		openStart += idx
		after := openStart + 1 + len(name)
		if after < len(s) && isTagBoundary(s[after]) {
			break
		}
		openStart = after
	}

	openEnd := strings.IndexByte(s[openStart:], '>')
	if openEnd < 0 {
		return "", len(s), false
	}
	contentStart := openStart + openEnd + 1

	closeIdx := strings.Index(lower[contentStart:], closing)
	if closeIdx < 0 {
		return "", len(s), false
	}
	contentEnd := contentStart + closeIdx

	closeEnd := strings.IndexByte(s[contentEnd:], '>')
	if closeEnd < 0 {
		return s[contentStart:contentEnd], len(s), true
	}
	return s[contentStart:contentEnd], contentEnd + closeEnd + 1, true
}

func isTagBoundary(c byte) bool {
	switch c {
	case '>', ' ', '\t', '\n', '\r', '/':
		return true
	}
	return false
}

// Attr returns the value of the first non-empty `name="..."` (or single quoted)
// attribute found anywhere in s.
func Attr(s, name string) (string, bool) {
	lower := asciiLower(s)
	key := asciiLower(name) + "="

	for offset := 0; offset < len(s); {
		idx := strings.Index(lower[offset:], key)
		if idx < 0 {
			return "", false
		}
		pos := offset + idx
		valueStart := pos + len(key)
		offset = valueStart

		if pos > 0 && !isAttrBoundary(s[pos-1]) {
			continue
		}
		if valueStart >= len(s) {
			return "", false
		}
		quote := s[valueStart]
		if quote != '"' && quote != '\'' {
			continue
		}
		end := strings.IndexByte(s[valueStart+1:], quote)
		if end < 0 {
			return "", false
		}
		value := s[valueStart+1 : valueStart+1+end]
		offset = valueStart + end + 2
		if value == "" {
			continue
		}
		return value, true
	}
	return "", false
}

func isAttrBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// asciiLower lowercases ASCII letters only so byte offsets stay valid in the original string.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
