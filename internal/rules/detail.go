package rules

import (
	"fmt"
	"strings"
)

// formatDetail substitutes {var} and {var:%verb} placeholders in a
// factor description template with activation values.
// "Ubicación a {distance_km:%.1f} km" -> "Ubicación a 132.4 km".
func formatDetail(template string, vars map[string]any) string {
	var b strings.Builder
	rest := template

	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		close := strings.IndexByte(rest[open:], '}')
		if close < 0 {
			b.WriteString(rest)
			break
		}
		close += open

		b.WriteString(rest[:open])

		name := rest[open+1 : close]
		verb := "%v"
		if i := strings.IndexByte(name, ':'); i >= 0 {
			verb = name[i+1:]
			name = name[:i]
		}

		if val, ok := vars[name]; ok {
			b.WriteString(fmt.Sprintf(verb, val))
		} else {
			// Unknown placeholder passes through untouched.
			b.WriteString(rest[open : close+1])
		}

		rest = rest[close+1:]
	}

	return b.String()
}
