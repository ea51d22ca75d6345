package classify

import (
	"context"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/provider"
)

// NewLocator creates an empty classifier locator.
func NewLocator() *provider.Locator[Service, Kind] {
	return provider.NewLocator[Service, Kind](config.CapabilityClassify)
}

// Deps carries what the classifier factories need.
type Deps struct {
	Config config.ClassifyConfig
}

// Register binds both classifiers on loc.
func Register(loc *provider.Locator[Service, Kind], deps Deps) {
	loc.Register(Script, func(context.Context) (Service, error) {
		return NewScriptClassifier(deps.Config.MinConfidence), nil
	})
	loc.Register(Trigram, func(context.Context) (Service, error) {
		return NewTrigramClassifier(deps.Config), nil
	})
}
