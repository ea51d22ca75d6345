package translate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/provider"
)

// GlossaryFile is the YAML layout of a phrase table:
//
//	pairs:
//	  - source: en
//	    target: de
//	    phrases:
//	      good morning: guten Morgen
//	      file: Datei
type GlossaryFile struct {
	Pairs []GlossaryPair `yaml:"pairs"`
}

// GlossaryPair holds the phrases for one direction.
type GlossaryPair struct {
	Source  string            `yaml:"source"`
	Target  string            `yaml:"target"`
	Phrases map[string]string `yaml:"phrases"`
}

type phraseTable struct {
	source, target language.Base
	// anySource is set for pairs declared with source und.
	anySource bool
	phrases   map[string]string
	longest   int
}

// GlossaryTranslator replaces known phrases, longest match first, and keeps
// every other word as it is.
type GlossaryTranslator struct {
	path string
	gate provider.LoadGate

	mu     sync.RWMutex
	tables []phraseTable
}

// NewGlossaryTranslator creates an unloaded translator for the YAML file
// at path.
func NewGlossaryTranslator(path string) *GlossaryTranslator {
	return &GlossaryTranslator{path: path}
}

func (g *GlossaryTranslator) LoadRequired(ctx context.Context, _ string) (bool, error) {
	return g.gate.Load(ctx, func(ctx context.Context) (bool, error) {
		if g.path == "" {
			return false, fmt.Errorf("glossary path is not configured")
		}
		data, err := os.ReadFile(g.path)
		if err != nil {
			return false, err
		}
		tables, err := parseGlossary(data)
		if err != nil {
			return false, err
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}

		g.mu.Lock()
		g.tables = tables
		g.mu.Unlock()
		return true, nil
	})
}

func (g *GlossaryTranslator) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	if ok, err := g.LoadRequired(ctx, ""); !ok {
		return "", loadError(Glossary, err)
	}

	g.mu.RLock()
	table, ok := g.lookup(source, target)
	g.mu.RUnlock()
	if !ok {
		return "", errors.InvalidInput("target", fmt.Sprintf("no glossary from %s to %s", source, target))
	}
	return table.apply(text), nil
}

func (g *GlossaryTranslator) Close() error {
	g.mu.Lock()
	g.tables = nil
	g.mu.Unlock()
	return nil
}

// lookup picks the table for the direction. An undetermined source matches
// the first table with the right target, and so does a table declared with
// source und.
func (g *GlossaryTranslator) lookup(source, target language.Tag) (phraseTable, bool) {
	anySource := undetermined(source)
	for _, t := range g.tables {
		if t.target == base(target) && (anySource || t.anySource || t.source == base(source)) {
			return t, true
		}
	}
	return phraseTable{}, false
}

func parseGlossary(data []byte) ([]phraseTable, error) {
	var file GlossaryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse glossary: %w", err)
	}
	tables := make([]phraseTable, 0, len(file.Pairs))
	for i, p := range file.Pairs {
		src, err := language.Parse(p.Source)
		if err != nil {
			return nil, fmt.Errorf("glossary pair %d source: %w", i, err)
		}
		dst, err := language.Parse(p.Target)
		if err != nil {
			return nil, fmt.Errorf("glossary pair %d target: %w", i, err)
		}
		if undetermined(dst) {
			return nil, fmt.Errorf("glossary pair %d target %q names no language", i, p.Target)
		}
		t := phraseTable{
			source:    base(src),
			target:    base(dst),
			anySource: undetermined(src),
			phrases:   make(map[string]string, len(p.Phrases)),
		}
		for from, to := range p.Phrases {
			key := strings.Join(strings.Fields(strings.ToLower(from)), " ")
			if key == "" {
				continue
			}
			t.phrases[key] = to
			if n := len(strings.Fields(key)); n > t.longest {
				t.longest = n
			}
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// apply translates text word by word, trying the longest phrase at each
// position. Punctuation around a word is kept.
func (t phraseTable) apply(text string) string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		matched := false
		for n := min(t.longest, len(words)-i); n > 0; n-- {
			lead, _, _ := splitPunct(words[i])
			_, _, trail := splitPunct(words[i+n-1])
			parts := make([]string, n)
			for j := range parts {
				_, core, _ := splitPunct(words[i+j])
				parts[j] = strings.ToLower(core)
			}
			if to, ok := t.phrases[strings.Join(parts, " ")]; ok {
				out = append(out, lead+matchCase(words[i], to)+trail)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, words[i])
			i++
		}
	}
	return strings.Join(out, " ")
}

// splitPunct separates leading and trailing punctuation from a word.
func splitPunct(w string) (lead, core, trail string) {
	isP := func(r rune) bool { return unicode.IsPunct(r) }
	core = strings.TrimLeftFunc(w, isP)
	lead = w[:len(w)-len(core)]
	trimmed := strings.TrimRightFunc(core, isP)
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}

// matchCase capitalizes the replacement when the source word was.
func matchCase(src, to string) string {
	_, core, _ := splitPunct(src)
	r := []rune(core)
	if len(r) == 0 || !unicode.IsUpper(r[0]) {
		return to
	}
	out := []rune(to)
	if len(out) > 0 {
		out[0] = unicode.ToUpper(out[0])
	}
	return string(out)
}
