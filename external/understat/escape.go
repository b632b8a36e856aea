package understat

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// unescapeJSString decodes the escape sequences of a single-quoted JavaScript
// string literal. \xNN and \uNNNN denote code points, not bytes.
func unescapeJSString(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' {
			b.WriteByte(ch)
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("dangling escape at offset %d", i)
		}

		i++
		switch s[i] {
		case 'x':
			r, err := parseHex(s, i+1, 2)
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			i += 2
		case 'u':
			r, err := parseHex(s, i+1, 4)
			if err != nil {
				return "", err
			}
			i += 4
			if utf16.IsSurrogate(r) && i+6 < len(s) && s[i+1] == '\\' && s[i+2] == 'u' {
				if low, err := parseHex(s, i+3, 4); err == nil {
					if pair := utf16.DecodeRune(r, low); pair != utf8.RuneError {
						r = pair
						i += 6
					}
				}
			}
			if !utf8.ValidRune(r) {
				r = utf8.RuneError
			}
			b.WriteRune(r)
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

func parseHex(s string, start, width int) (rune, error) {
	if start+width > len(s) {
		return 0, fmt.Errorf("truncated escape at offset %d", start)
	}
	value, err := strconv.ParseUint(s[start:start+width], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid escape %q: %w", s[start:start+width], err)
	}
	return rune(value), nil
}
