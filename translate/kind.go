package translate

import "github.com/Mulet-J/desktopeye/errors"

// Kind selects a translation backend.
type Kind int

const (
	Glossary Kind = iota
	Script
	LLM
)

// DefaultKind is created when no backend is configured.
const DefaultKind = Glossary

var kindNames = map[Kind]string{
	Glossary: "glossary",
	Script:   "script",
	LLM:      "llm",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// ParseKind maps a config name to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, errors.InvalidInput("translate backend", "unknown translator "+s)
}

// Kinds lists every known kind.
func Kinds() []Kind { return []Kind{Glossary, Script, LLM} }
