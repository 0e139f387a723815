package portal

import (
	"fmt"
	"strings"

	"github.com/kpant2190/Opportender-Backend/internal/retry"
)

// constructors maps portal names to scraper factories.
var constructors = map[string]func(ScrapeConfig) retry.Source{
	"static_example": func(ScrapeConfig) retry.Source { return NewStaticFeed() },
	"austender":      func(c ScrapeConfig) retry.Source { return NewAusTender(c) },
	"qtenders":       func(c ScrapeConfig) retry.Source { return NewQTenders(c) },
}

// Names returns every registered portal name.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	return names
}

// Build resolves a comma-separated portal selection ("austender,qtenders",
// or "all") into scraper instances. Unknown names are an error so config
// typos fail fast.
func Build(selection string, config ScrapeConfig) ([]retry.Source, error) {
	selection = strings.TrimSpace(selection)
	if selection == "" || strings.EqualFold(selection, "all") {
		sources := make([]retry.Source, 0, len(constructors))
		for _, name := range []string{"static_example", "austender", "qtenders"} {
			sources = append(sources, constructors[name](config))
		}
		return sources, nil
	}

	var sources []retry.Source
	for _, name := range strings.Split(selection, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		ctor, ok := constructors[name]
		if !ok {
			return nil, fmt.Errorf("unknown portal %q (known: %s)", name, strings.Join(Names(), ", "))
		}
		sources = append(sources, ctor(config))
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no portals selected")
	}
	return sources, nil
}
