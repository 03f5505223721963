package subscription

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/PratikDhanave/epcis-query-service/internal/query"
)

const defaultQueryName = "SimpleEventQuery"

// Subscription is a standing query re-run on a schedule and whenever new
// events are captured.
type Subscription struct {
	Name          string        `yaml:"name"`
	QueryName     string        `yaml:"query"`
	ReportIfEmpty bool          `yaml:"reportIfEmpty"`
	Interval      time.Duration `yaml:"interval"`
	Parameters    []Parameter   `yaml:"parameters"`
}

// Parameter is one query parameter as written in the subscriptions file.
type Parameter struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

type file struct {
	Subscriptions []Subscription `yaml:"subscriptions"`
}

// LoadFile reads subscription definitions from a YAML file. Every
// definition must carry a unique name and a parameter list the query
// engine accepts.
func LoadFile(path string) ([]Subscription, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read subscriptions file %q", path)
	}

	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to decode subscriptions file %q", path)
	}

	seen := map[string]struct{}{}
	for i := range f.Subscriptions {
		sub := &f.Subscriptions[i]
		if sub.Name == "" {
			return nil, errors.Errorf("subscription %d has no name", i+1)
		}
		if _, dup := seen[sub.Name]; dup {
			return nil, errors.Errorf("duplicate subscription %q", sub.Name)
		}
		seen[sub.Name] = struct{}{}

		if sub.QueryName == "" {
			sub.QueryName = defaultQueryName
		}
		if _, err := query.Build(sub.params()); err != nil {
			return nil, errors.Wrapf(err, "subscription %q", sub.Name)
		}
	}
	return f.Subscriptions, nil
}

func (s Subscription) params() []query.Parameter {
	out := make([]query.Parameter, len(s.Parameters))
	for i, p := range s.Parameters {
		out[i] = query.NewParameter(p.Name, p.Values...)
	}
	return out
}
