package routes

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/marcelsud/sumit-gateway/sumit"
	"gopkg.in/yaml.v3"
)

/* Loader holds the catalog read from routes.yaml:
 * gateway endpoint policies and outbound webhook routes
 * It is read-only after Load and safe for concurrent lookups
 */

// Config represents the structure of routes.yaml
type Config struct {
	Endpoints []EndpointConfig `yaml:"endpoints"`
	Routes    []RouteConfig    `yaml:"routes"`
}

// EndpointConfig represents a gateway endpoint policy in the YAML file
type EndpointConfig struct {
	Path             string `yaml:"path"`
	Family           string `yaml:"family"` // numeric, string or either
	Key              string `yaml:"key"`    // private or public
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	Mutation         *bool  `yaml:"mutation"` // Default: true
	RetryOnRejection bool   `yaml:"retry_on_rejection"`
}

// RouteConfig represents a single webhook target in the YAML file
type RouteConfig struct {
	TargetID       string   `yaml:"target_id"`
	TargetURL      string   `yaml:"target_url"`
	SigningSecret  string   `yaml:"signing_secret"`
	EventTypes     []string `yaml:"event_types"`
	ExpectedStatus int      `yaml:"expected_status"` // Default: 200
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Loader holds the loaded routes and endpoint policies
type Loader struct {
	routes    map[string]*Route
	endpoints map[string]sumit.Policy
}

// NewLoader creates a new loader seeded with the built-in endpoint policies
func NewLoader() *Loader {
	l := &Loader{
		routes:    make(map[string]*Route),
		endpoints: make(map[string]sumit.Policy),
	}
	for path, pol := range sumit.DefaultPolicies() {
		l.endpoints[path] = pol
	}
	return l
}

// Load reads and parses the routes.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading routes file: %w", err)
	}
	return l.Parse(data)
}

// Parse loads the catalog from YAML bytes
func (l *Loader) Parse(data []byte) error {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing routes YAML: %w", err)
	}

	endpoints := make(map[string]sumit.Policy, len(config.Endpoints))
	for _, ec := range config.Endpoints {
		mutation := true
		if ec.Mutation != nil {
			mutation = *ec.Mutation
		}
		pol := sumit.Policy{
			Path:             ec.Path,
			Family:           sumit.NewFamily(ec.Family),
			Key:              sumit.NewKeyKind(ec.Key),
			Timeout:          time.Duration(ec.TimeoutSeconds) * time.Second,
			Mutation:         mutation,
			RetryOnRejection: ec.RetryOnRejection,
		}
		if err := pol.Validate(); err != nil {
			return fmt.Errorf("validating endpoint: %w", err)
		}
		if _, dup := endpoints[pol.Path]; dup {
			return fmt.Errorf("validating endpoint: duplicate path %s", pol.Path)
		}
		endpoints[pol.Path] = pol
	}

	routes := make(map[string]*Route, len(config.Routes))
	for _, rc := range config.Routes {
		expectedStatus := rc.ExpectedStatus
		if expectedStatus == 0 {
			expectedStatus = 200
		}

		route := &Route{
			TargetID:       rc.TargetID,
			TargetURL:      rc.TargetURL,
			SigningSecret:  rc.SigningSecret,
			EventTypes:     rc.EventTypes,
			ExpectedStatus: expectedStatus,
			Timeout:        time.Duration(rc.TimeoutSeconds) * time.Second,
		}
		if err := route.Validate(); err != nil {
			return fmt.Errorf("validating route: %w", err)
		}
		if _, dup := routes[route.TargetID]; dup {
			return fmt.Errorf("validating route: duplicate target_id %s", route.TargetID)
		}
		routes[route.TargetID] = route
	}

	for path, pol := range endpoints {
		l.endpoints[path] = pol
	}
	for id, route := range routes {
		l.routes[id] = route
	}
	return nil
}

// Get retrieves a route by its target ID
func (l *Loader) Get(targetID string) (*Route, error) {
	route, exists := l.routes[targetID]
	if !exists {
		return nil, fmt.Errorf("route not found: %s", targetID)
	}
	return route, nil
}

// List returns all loaded routes ordered by target ID
func (l *Loader) List() []*Route {
	routes := make([]*Route, 0, len(l.routes))
	for _, route := range l.routes {
		routes = append(routes, route)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].TargetID < routes[j].TargetID })
	return routes
}

// Exists checks if a target ID exists
func (l *Loader) Exists(targetID string) bool {
	_, exists := l.routes[targetID]
	return exists
}

// Match returns the routes that accept eventType, ordered by target ID
func (l *Loader) Match(eventType string) []*Route {
	var out []*Route
	for _, route := range l.List() {
		if route.Accepts(eventType) {
			out = append(out, route)
		}
	}
	return out
}

// Policy returns the endpoint policy for a gateway path
func (l *Loader) Policy(path string) (sumit.Policy, bool) {
	pol, ok := l.endpoints[path]
	return pol, ok
}

// Endpoints returns all endpoint policies ordered by path
func (l *Loader) Endpoints() []sumit.Policy {
	out := make([]sumit.Policy, 0, len(l.endpoints))
	for _, pol := range l.endpoints {
		out = append(out, pol)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
