package refinery

import (
	"sort"
	"sync"

	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

// RefineryFactory builds a refinery from optional custom config
type RefineryFactory func(config map[string]interface{}) BaseRefinery

// Info describes a registered refinery
type Info struct {
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases"`
	Steps       []string `json:"steps"`
}

// Registry maps versions and aliases to refinery factories
type Registry struct {
	mu         sync.RWMutex
	refineries map[string]RefineryFactory
	aliases    map[string]string
}

var globalRegistry = &Registry{
	refineries: make(map[string]RefineryFactory),
	aliases:    make(map[string]string),
}

// Register adds a refinery under version. Re-registering a version or an
// alias replaces the previous binding.
func Register(version string, factory RefineryFactory, aliases ...string) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	globalRegistry.refineries[version] = factory
	for _, alias := range aliases {
		globalRegistry.aliases[alias] = version
	}
}

// resolveLocked requires r.mu
func (r *Registry) resolveLocked(identifier string) (string, RefineryFactory, bool) {
	version := identifier
	if v, ok := r.aliases[identifier]; ok {
		version = v
	}
	factory, ok := r.refineries[version]
	return version, factory, ok
}

// Resolve returns the version an identifier (version or alias) points to
func Resolve(identifier string) (string, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	version, _, ok := globalRegistry.resolveLocked(identifier)
	return version, ok
}

// Get returns the factory for a version or alias. Unknown identifiers
// fail with REFINERY_NOT_FOUND.
func Get(identifier string) (RefineryFactory, error) {
	globalRegistry.mu.RLock()
	_, factory, ok := globalRegistry.resolveLocked(identifier)
	globalRegistry.mu.RUnlock()

	if !ok {
		return nil, apperrors.RefineryNotFound(identifier, ListAvailable())
	}
	return factory, nil
}

// Create builds a refinery instance
func Create(identifier string, config map[string]interface{}) (BaseRefinery, error) {
	factory, err := Get(identifier)
	if err != nil {
		return nil, err
	}
	return factory(config), nil
}

// ListAvailable returns all registered versions, sorted
func ListAvailable() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	versions := make([]string, 0, len(globalRegistry.refineries))
	for version := range globalRegistry.refineries {
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions
}

// Describe returns one Info per registered version, sorted by version
func Describe() []Info {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	aliases := make(map[string][]string)
	for alias, version := range globalRegistry.aliases {
		aliases[version] = append(aliases[version], alias)
	}

	infos := make([]Info, 0, len(globalRegistry.refineries))
	for version, factory := range globalRegistry.refineries {
		instance := factory(nil)
		sort.Strings(aliases[version])
		infos = append(infos, Info{
			Version:     version,
			Name:        instance.GetName(),
			Description: instance.GetDescription(),
			Aliases:     aliases[version],
			Steps:       instance.GetPipelineSteps(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Version < infos[j].Version })
	return infos
}

// ListAvailableWithMetadata returns Describe keyed by version
func ListAvailableWithMetadata() map[string]map[string]interface{} {
	result := make(map[string]map[string]interface{})
	for _, info := range Describe() {
		result[info.Version] = map[string]interface{}{
			"name":        info.Name,
			"description": info.Description,
			"aliases":     info.Aliases,
			"steps":       info.Steps,
		}
	}
	return result
}

func init() {
	Register("v1", func(config map[string]interface{}) BaseRefinery {
		return NewRefineryV1Vietnamese(config)
	}, "vietnamese", "vi", "reviews")
}
