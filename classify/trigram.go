package classify

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/provider"
)

//go:embed seeds/*.txt
var seeds embed.FS

const (
	// profileSize is the number of ranked n-grams kept per profile.
	profileSize = 300
	maxGram     = 5
	// minLetters is the shortest text the trigram backend will rank.
	minLetters = 3
)

// profile maps an n-gram to its frequency rank, 0 being the most frequent.
type profile map[string]int

// TrigramClassifier ranks text against n-gram profiles using the out-of-place
// distance. Profiles are built on first use from the embedded seed corpora,
// then from ProfilesDir where a <lang>.txt file replaces or adds a language.
type TrigramClassifier struct {
	cfg  config.ClassifyConfig
	gate provider.LoadGate

	mu       sync.RWMutex
	profiles map[language.Tag]profile
}

// NewTrigramClassifier creates an unloaded trigram classifier.
func NewTrigramClassifier(cfg config.ClassifyConfig) *TrigramClassifier {
	return &TrigramClassifier{cfg: cfg}
}

// Languages lists the loaded profiles, sorted.
func (c *TrigramClassifier) Languages() []language.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tags := make([]language.Tag, 0, len(c.profiles))
	for t := range c.profiles {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].String() < tags[j].String() })
	return tags
}

func (c *TrigramClassifier) LoadRequired(ctx context.Context, _ string) (bool, error) {
	return c.gate.Load(ctx, func(ctx context.Context) (bool, error) {
		profiles := make(map[language.Tag]profile)
		if err := loadProfiles(ctx, seeds, "seeds", profiles); err != nil {
			return false, err
		}
		if c.cfg.ProfilesDir != "" {
			if err := loadProfiles(ctx, os.DirFS(c.cfg.ProfilesDir), ".", profiles); err != nil {
				return false, err
			}
		}
		if len(profiles) == 0 {
			return false, fmt.Errorf("no language profiles found")
		}

		c.mu.Lock()
		c.profiles = profiles
		c.mu.Unlock()
		return true, nil
	})
}

func (c *TrigramClassifier) ClassifyText(ctx context.Context, text string) (*Result, error) {
	if ok, err := c.LoadRequired(ctx, ""); !ok {
		if errors.IsContext(err) {
			return nil, errors.FromContext(err)
		}
		return nil, errors.LoadFailed(Trigram.String(), err)
	}

	res := &Result{Language: language.Und, Backend: Trigram.String()}
	doc := buildProfile(text)
	if countLetters(text) < minLetters || len(doc) == 0 {
		return res, nil
	}

	c.mu.RLock()
	maxDist := len(doc) * profileSize
	for tag, p := range c.profiles {
		score := 1 - float64(distance(doc, p))/float64(maxDist)
		res.Candidates = append(res.Candidates, Candidate{Language: tag, Score: score})
	}
	c.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(err)
	}
	sortCandidates(res.Candidates)
	if best := res.Candidates[0]; best.Score >= c.cfg.MinConfidence {
		res.Language = best.Language
		res.Confidence = best.Score
	}
	return res, nil
}

func (c *TrigramClassifier) Close() error {
	c.mu.Lock()
	c.profiles = nil
	c.mu.Unlock()
	return nil
}

// loadProfiles reads every <lang>.txt under dir of fsys into out.
func loadProfiles(ctx context.Context, fsys fs.FS, dir string, out map[language.Tag]profile) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".txt" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		tag, err := language.Parse(strings.TrimSuffix(e.Name(), ".txt"))
		if err != nil {
			return fmt.Errorf("profile %s: %w", e.Name(), err)
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		out[tag] = buildProfile(string(data))
	}
	return nil
}

// buildProfile ranks the 1..5-grams of text. Words are padded with '_' so
// word boundaries count; ties rank alphabetically.
func buildProfile(text string) profile {
	text = cases.Lower(language.Und).String(norm.NFC.String(text))
	counts := make(map[string]int)
	for _, word := range strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) }) {
		runes := []rune("_" + word + "_")
		for n := 1; n <= maxGram; n++ {
			for i := 0; i+n <= len(runes); i++ {
				g := string(runes[i : i+n])
				if g == "_" {
					continue
				}
				counts[g]++
			}
		}
	}

	grams := make([]string, 0, len(counts))
	for g := range counts {
		grams = append(grams, g)
	}
	sort.Slice(grams, func(i, j int) bool {
		if counts[grams[i]] != counts[grams[j]] {
			return counts[grams[i]] > counts[grams[j]]
		}
		return grams[i] < grams[j]
	})
	if len(grams) > profileSize {
		grams = grams[:profileSize]
	}

	p := make(profile, len(grams))
	for rank, g := range grams {
		p[g] = rank
	}
	return p
}

// distance is the out-of-place measure of doc against lang. A missing
// n-gram costs profileSize.
func distance(doc, lang profile) int {
	d := 0
	for g, rank := range doc {
		lr, ok := lang[g]
		if !ok {
			d += profileSize
			continue
		}
		if lr > rank {
			d += lr - rank
		} else {
			d += rank - lr
		}
	}
	return d
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
