package playermap

import (
	"regexp"
	"strings"
)

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "ã", "a", "â", "a", "ä", "a", "å", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "õ", "o", "ô", "o", "ö", "o", "ø", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ç", "c", "ñ", "n", "ß", "ss", "ł", "l", "ć", "c", "š", "s", "ž", "z",
)

var (
	nameSuffixRegex    = regexp.MustCompile(`\s+(jr|sr|i{1,3}|iv)\.?$`)
	middleInitialRegex = regexp.MustCompile(`\s+[a-z]\.?\s+`)
	whitespaceRegex    = regexp.MustCompile(`\s+`)
)

// CleanName folds accents, drops generational suffixes and middle initials.
// It is only used to give reviewers a second opinion on near misses; the
// matcher itself scores raw display names.
func CleanName(name string) string {
	out := strings.ToLower(strings.TrimSpace(name))
	out = accentReplacer.Replace(out)
	out = nameSuffixRegex.ReplaceAllString(out, "")
	out = middleInitialRegex.ReplaceAllString(out, " ")
	out = whitespaceRegex.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
