package tsindex

import (
	"regexp"
	"strings"
)

// Entity kinds.
const (
	KindFunction    = "function"
	KindClass       = "class"
	KindInterface   = "interface"
	KindType        = "type"
	KindEnum        = "enum"
	KindConst       = "const"
	KindState       = "state"
	KindStateSetter = "state_setter"
)

// Entity is a named declaration found in a source file.
type Entity struct {
	Name    string // As written in the source
	Kind    string
	Line    int // 1-based
	Preview string
}

// Recognizer maps the lines of a file to entities keyed by normalized name.
// Implementations may be line heuristics or real parsers.
type Recognizer interface {
	Recognize(lines []string) map[string]Entity
}

const ident = `[A-Za-z_$][\w$]*`

var (
	statePattern = regexp.MustCompile(
		`^\s*(?:export\s+)?(?:const|let|var)\s+\[\s*(` + ident + `)\s*(?:,\s*(` + ident + `))?[^\]]*\]\s*=\s*(?:React\.)?use(?:State|Reducer)\b`)
	// Applied to the second destructured element only.
	setterPattern = regexp.MustCompile(`^set([A-Za-z0-9_]+)$`)

	declPatterns = []struct {
		kind string
		re   *regexp.Regexp
	}{
		{KindFunction, regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(` + ident + `)`)},
		{KindClass, regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(` + ident + `)`)},
		{KindInterface, regexp.MustCompile(`^\s*(?:export\s+)?(?:declare\s+)?interface\s+(` + ident + `)`)},
		{KindType, regexp.MustCompile(`^\s*(?:export\s+)?(?:declare\s+)?type\s+(` + ident + `)\s*(?:<[^=]*>)?\s*=`)},
		{KindEnum, regexp.MustCompile(`^\s*(?:export\s+)?(?:declare\s+)?(?:const\s+)?enum\s+(` + ident + `)`)},
		{KindConst, regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(` + ident + `)`)},
	}
)

// Heuristic recognizes declarations line by line. It does not parse TypeScript:
// multi-line declarations, nested scopes and string contents are not understood.
type Heuristic struct{}

// Recognize implements Recognizer. The first declaration of a normalized name wins.
func (Heuristic) Recognize(lines []string) map[string]Entity {
	entities := make(map[string]Entity)

	add := func(name, kind string, idx int) {
		key := Normalize(name)
		if key == "" {
			return
		}
		if _, taken := entities[key]; taken {
			return
		}
		entities[key] = Entity{
			Name:    name,
			Kind:    kind,
			Line:    idx + 1,
			Preview: Window(lines, idx),
		}
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}

		if m := statePattern.FindStringSubmatch(line); m != nil {
			add(m[1], KindState, i)
			if setterPattern.MatchString(m[2]) {
				add(m[2], KindStateSetter, i)
			}
			continue
		}

		for _, p := range declPatterns {
			if m := p.re.FindStringSubmatch(line); m != nil {
				add(m[1], p.kind, i)
				break
			}
		}
	}

	return entities
}

func isComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*")
}

// Normalize lowercases a symbol and strips call parentheses and whitespace.
func Normalize(symbol string) string {
	s := strings.TrimSpace(symbol)
	s = strings.TrimSuffix(s, "()")
	s = strings.Join(strings.Fields(s), "")
	return strings.ToLower(s)
}
