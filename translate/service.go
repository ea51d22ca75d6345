package translate

import (
	"context"

	"golang.org/x/text/language"

	"github.com/Mulet-J/desktopeye/errors"
)

// Service is implemented by every translation backend. source may be
// language.Und when the caller does not know it.
type Service interface {
	Translate(ctx context.Context, text string, source, target language.Tag) (string, error)
}

func loadError(k Kind, err error) error {
	if errors.IsContext(err) {
		return errors.FromContext(err)
	}
	return errors.LoadFailed(k.String(), err)
}

// base reduces a tag to its base language, e.g. de-CH to de.
func base(t language.Tag) language.Base {
	b, _ := t.Base()
	return b
}

// undetermined reports whether t names no base language. Base guesses one
// for und and und-Latn, so only an exact base counts.
func undetermined(t language.Tag) bool {
	_, c := t.Base()
	return c != language.Exact
}
