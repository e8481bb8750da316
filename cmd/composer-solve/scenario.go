package main

import (
	"fmt"

	"github.com/Masterminds/semver"

	composer "github.com/stloyd/composer"
)

// scenarioLink mirrors composer.Link in a form viper/mapstructure can
// decode straight from YAML/TOML: a bare target name plus an optional
// range expression understood by Masterminds/semver.
type scenarioLink struct {
	Target     string `mapstructure:"target"`
	Constraint string `mapstructure:"constraint"`
}

type scenarioPackage struct {
	Name      string         `mapstructure:"name"`
	Version   string         `mapstructure:"version"`
	Repo      string         `mapstructure:"repo"`
	Requires  []scenarioLink `mapstructure:"requires"`
	Conflicts []scenarioLink `mapstructure:"conflicts"`
	Provides  []scenarioLink `mapstructure:"provides"`
	Replaces  []scenarioLink `mapstructure:"replaces"`
	Dev       bool           `mapstructure:"dev"`
}

type scenarioRepo struct {
	Name      string `mapstructure:"name"`
	Priority  int    `mapstructure:"priority"`
	Installed bool   `mapstructure:"installed"`
}

type scenarioJob struct {
	Kind       string `mapstructure:"kind"`
	Name       string `mapstructure:"name"`
	Constraint string `mapstructure:"constraint"`
}

// scenario is the demonstration Installer shell's config file shape: a
// whole Pool build plus a Request and Policy options, decoded in one
// viper.Unmarshal call.
type scenario struct {
	Repositories []scenarioRepo    `mapstructure:"repositories"`
	Packages     []scenarioPackage `mapstructure:"packages"`
	Jobs         []scenarioJob     `mapstructure:"jobs"`
	Policy       composer.Options  `mapstructure:"policy"`
}

func (sc *scenario) build() (*composer.Pool, *composer.Request, error) {
	repos := make(map[string]*composer.Repository, len(sc.Repositories))
	for _, r := range sc.Repositories {
		repos[r.Name] = &composer.Repository{Name: r.Name, Priority: r.Priority, Installed: r.Installed}
	}

	byRepo := make(map[string][]*composer.Package)
	for _, p := range sc.Packages {
		if _, ok := repos[p.Repo]; !ok {
			return nil, nil, fmt.Errorf("composer-solve: package %q references unknown repository %q", p.Name, p.Repo)
		}
		version, err := semver.NewVersion(p.Version)
		if err != nil {
			return nil, nil, fmt.Errorf("composer-solve: package %q has invalid version %q: %w", p.Name, p.Version, err)
		}
		stability := composer.Stable
		if p.Dev {
			stability = composer.Dev
		}
		pkg := &composer.Package{
			Name:      p.Name,
			Version:   version,
			Dev:       p.Dev,
			Stability: stability,
			Requires:  mustLinks(p.Requires),
			Conflicts: mustLinks(p.Conflicts),
			Provides:  mustLinks(p.Provides),
			Replaces:  mustLinks(p.Replaces),
		}
		byRepo[p.Repo] = append(byRepo[p.Repo], pkg)
	}

	builder := composer.NewBuilder()
	for _, r := range sc.Repositories {
		builder.AddRepository(repos[r.Name], byRepo[r.Name]...)
	}

	req := composer.NewRequest()
	for _, j := range sc.Jobs {
		switch j.Kind {
		case "install":
			c, err := composer.NewConstraint(j.Constraint)
			if err != nil {
				return nil, nil, err
			}
			req.Install(j.Name, c)
		case "update":
			req.Update(j.Name)
		case "remove":
			req.Remove(j.Name)
		case "update-all":
			req.UpdateAll()
		default:
			return nil, nil, fmt.Errorf("composer-solve: unknown job kind %q", j.Kind)
		}
	}

	return builder.Build(), req, nil
}

func mustLinks(links []scenarioLink) []composer.Link {
	if len(links) == 0 {
		return nil
	}
	out := make([]composer.Link, len(links))
	for i, l := range links {
		c := composer.Any
		if l.Constraint != "" {
			parsed, err := composer.NewConstraint(l.Constraint)
			if err != nil {
				panic(err) // malformed scenario file: same class as InvalidPool; nothing recovers this panic
			}
			c = parsed
		}
		out[i] = composer.Link{Target: l.Target, Constraint: c}
	}
	return out
}
