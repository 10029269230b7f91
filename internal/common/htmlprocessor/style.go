package htmlprocessor

import (
	"regexp"
	"strings"
)

var (
	displayVarPattern     = regexp.MustCompile(`display\s*:\s*var\(`)
	displayVarDeclPattern = regexp.MustCompile(`display\s*:\s*var\([^)]*\)\s*;?`)
)

// hasDisplayVariable reports whether an inline style sets display from a CSS variable.
func hasDisplayVariable(style string) bool {
	return displayVarPattern.MatchString(style)
}

// stripDisplayVariable removes every display: var(...) declaration and trims the rest.
// A fallback containing its own parentheses, like var(--a, var(--b)), leaves the
// trailing ")" behind.
func stripDisplayVariable(style string) string {
	return strings.TrimSpace(displayVarDeclPattern.ReplaceAllString(style, ""))
}

// setStyleDeclaration sets property to value in an inline style, replacing any
// existing declarations of that property. Other declarations keep their text.
// The result uses the "name: value;" form the CSSOM writes back.
func setStyleDeclaration(style, property, value string) string {
	var kept []string
	for _, decl := range splitDeclarations(style) {
		name, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(name), property) {
			continue
		}
		kept = append(kept, decl)
	}
	kept = append(kept, property+": "+value)
	return strings.Join(kept, "; ") + ";"
}

// splitDeclarations splits inline style text on top-level semicolons.
// Semicolons inside quotes or parentheses (data URIs in url()) do not split.
// Empty declarations are dropped and the rest are trimmed.
func splitDeclarations(style string) []string {
	var (
		decls []string
		depth int
		quote byte
		start int
	)

	flush := func(end int) {
		if decl := strings.TrimSpace(style[start:end]); decl != "" {
			decls = append(decls, decl)
		}
		start = end + 1
	}

	for i := 0; i < len(style); i++ {
		c := style[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == ';' && depth == 0:
			flush(i)
		}
	}
	flush(len(style))

	return decls
}
