package classify

import (
	"context"
	"sort"
	"unicode"

	"golang.org/x/text/language"
)

// scriptLanguages maps a Unicode script to the language it most likely
// means on a desktop. Scripts shared by many languages map to und-<Script>.
var scriptLanguages = []struct {
	table *unicode.RangeTable
	name  string
	tag   language.Tag
}{
	{unicode.Hiragana, "Hiragana", language.Japanese},
	{unicode.Katakana, "Katakana", language.Japanese},
	{unicode.Hangul, "Hangul", language.Korean},
	{unicode.Han, "Han", language.Chinese},
	{unicode.Cyrillic, "Cyrillic", language.Russian},
	{unicode.Greek, "Greek", language.Greek},
	{unicode.Hebrew, "Hebrew", language.Hebrew},
	{unicode.Arabic, "Arabic", language.Arabic},
	{unicode.Thai, "Thai", language.Thai},
	{unicode.Devanagari, "Devanagari", language.Hindi},
	{unicode.Georgian, "Georgian", language.Georgian},
	{unicode.Armenian, "Armenian", language.Armenian},
	{unicode.Latin, "Latin", language.Make("und-Latn")},
}

// ScriptClassifier guesses the language from the dominant Unicode script.
// Han text with any kana is Japanese.
type ScriptClassifier struct {
	minConfidence float64
}

// NewScriptClassifier creates a script heuristic. Results below
// minConfidence report language.Und.
func NewScriptClassifier(minConfidence float64) *ScriptClassifier {
	return &ScriptClassifier{minConfidence: minConfidence}
}

func (s *ScriptClassifier) ClassifyText(ctx context.Context, text string) (*Result, error) {
	counts := make(map[language.Tag]int)
	letters := 0
	kana := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		for _, sl := range scriptLanguages {
			if unicode.Is(sl.table, r) {
				counts[sl.tag]++
				if sl.table == unicode.Hiragana || sl.table == unicode.Katakana {
					kana++
				}
				break
			}
		}
	}

	res := &Result{Language: language.Und, Backend: Script.String()}
	if letters == 0 {
		return res, nil
	}
	if kana > 0 {
		counts[language.Japanese] += counts[language.Chinese]
		delete(counts, language.Chinese)
	}

	for tag, n := range counts {
		res.Candidates = append(res.Candidates, Candidate{Language: tag, Score: float64(n) / float64(letters)})
	}
	sortCandidates(res.Candidates)

	if len(res.Candidates) == 0 {
		return res, nil
	}
	if best := res.Candidates[0]; best.Score >= s.minConfidence {
		res.Language = best.Language
		res.Confidence = best.Score
	}
	return res, nil
}

func sortCandidates(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Score != c[j].Score {
			return c[i].Score > c[j].Score
		}
		return c[i].Language.String() < c[j].Language.String()
	})
}
