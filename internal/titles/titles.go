// Package titles implements the shared title convention for disruption
// records: an optional leading run of "/"-joined line tokens followed by a
// colon, e.g. "U1/U3: Bauarbeiten". The fuzzy merge engine and the identity
// resolver both parse titles through this package so they agree on what a
// line token is.
package titles

import (
	"regexp"
	"strings"
)

// A line token is either 1-3 digits with an optional trailing uppercase
// letter (74, 74A) or 1-4 uppercase letters with an optional 0-3 digit
// suffix (D, U1, WLB). At most 20 tokens may precede the colon.
const tokenPattern = `(?:[0-9]{1,3}[A-Z]?|[A-Z]{1,4}[0-9]{0,3})`

// Prefix matching is case-insensitive so that cosmetic case edits to a
// title ("u1/u3: ...") still yield the same token set; tokens are returned
// in their canonical uppercase form.
var prefixRe = regexp.MustCompile(`(?i)^(` + tokenPattern + `(?:/` + tokenPattern + `){0,19}):\s*`)

// Split separates a title into its line tokens and the event name. Titles
// without a matching prefix yield an empty token set and the whole title as
// the name.
func Split(title string) ([]string, string) {
	title = strings.TrimSpace(title)
	m := prefixRe.FindStringSubmatch(title)
	if m == nil {
		return nil, title
	}
	tokens := strings.Split(strings.ToUpper(m[1]), "/")
	return tokens, title[len(m[0]):]
}

// Join rebuilds a title from sorted tokens and a name. With no tokens the
// name stands alone.
func Join(tokens []string, name string) string {
	if len(tokens) == 0 {
		return name
	}
	return strings.Join(tokens, "/") + ": " + name
}

// Sorted returns a copy of tokens in natural order: digit runs compare
// numerically, non-digit runs lexically, so "2" sorts before "10" and "U1"
// before "U10".
func Sorted(tokens []string) []string {
	out := make([]string, len(tokens))
	copy(out, tokens)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && NaturalLess(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// NaturalLess reports whether a sorts before b in natural order.
func NaturalLess(a, b string) bool {
	for a != "" && b != "" {
		aRun, aNum, aRest := nextRun(a)
		bRun, bNum, bRest := nextRun(b)

		if aNum && bNum {
			av, bv := numValue(aRun), numValue(bRun)
			if av != bv {
				return av < bv
			}
		} else if aNum != bNum {
			// Digits sort before letters, matching how line numbers
			// precede lettered lines in published route lists.
			return aNum
		} else if aRun != bRun {
			return aRun < bRun
		}
		a, b = aRest, bRest
	}
	return a == "" && b != ""
}

// nextRun splits off the leading run of digits or non-digits.
func nextRun(s string) (run string, numeric bool, rest string) {
	numeric = isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == numeric {
		i++
	}
	return s[:i], numeric, s[i:]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func numValue(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}
