// Package registry maps format names to reader and writer factories.
// Format packages register themselves from init functions; the asciidata
// command imports them for their side effect.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/oneminimax/AsciiDataFile/pkg/logger"
	"go.uber.org/zap"
)

// Registry manages format registration and instantiation
type Registry struct {
	sources      map[string]SourceFactory
	destinations map[string]DestinationFactory
	mu           sync.RWMutex
}

// SourceFactory creates a reader for one instrument format.
type SourceFactory func(config *config.BaseConfig) (core.Source, error)

// DestinationFactory creates a writer for one output format.
type DestinationFactory func(config *config.BaseConfig) (core.Destination, error)

var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sources:      make(map[string]SourceFactory),
		destinations: make(map[string]DestinationFactory),
	}
}

// RegisterSource registers a source factory
func (r *Registry) RegisterSource(name string, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source format %s already registered", name))
	}

	r.sources[name] = factory
	logger.Debug("source format registered", zap.String("name", name))
	return nil
}

// RegisterDestination registers a destination factory
func (r *Registry) RegisterDestination(name string, factory DestinationFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.destinations[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("destination format %s already registered", name))
	}

	r.destinations[name] = factory
	logger.Debug("destination format registered", zap.String("name", name))
	return nil
}

// CreateSource creates a reader for the named format
func (r *Registry) CreateSource(name string, config *config.BaseConfig) (core.Source, error) {
	r.mu.RLock()
	factory, exists := r.sources[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeCapability, fmt.Sprintf("source format %s not found", name))
	}

	source, err := factory(config)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create source %s", name))
	}

	return source, nil
}

// CreateDestination creates a writer for the named format
func (r *Registry) CreateDestination(name string, config *config.BaseConfig) (core.Destination, error) {
	r.mu.RLock()
	factory, exists := r.destinations[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeCapability, fmt.Sprintf("destination format %s not found", name))
	}

	destination, err := factory(config)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create destination %s", name))
	}

	return destination, nil
}

// ListSources returns the registered source formats, sorted
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]string, 0, len(r.sources))
	for name := range r.sources {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	return sources
}

// ListDestinations returns the registered destination formats, sorted
func (r *Registry) ListDestinations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	destinations := make([]string, 0, len(r.destinations))
	for name := range r.destinations {
		destinations = append(destinations, name)
	}
	sort.Strings(destinations)
	return destinations
}

// HasSource checks if a source format is registered
func (r *Registry) HasSource(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sources[name]
	return exists
}

// HasDestination checks if a destination format is registered
func (r *Registry) HasDestination(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.destinations[name]
	return exists
}

// Clear removes all registered formats (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources = make(map[string]SourceFactory)
	r.destinations = make(map[string]DestinationFactory)
}

// Global registry functions

// RegisterSource registers a source format in the global registry
func RegisterSource(name string, factory SourceFactory) error {
	return globalRegistry.RegisterSource(name, factory)
}

// RegisterDestination registers a destination format in the global registry
func RegisterDestination(name string, factory DestinationFactory) error {
	return globalRegistry.RegisterDestination(name, factory)
}

// CreateSource creates a source from the global registry
func CreateSource(name string, config *config.BaseConfig) (core.Source, error) {
	return globalRegistry.CreateSource(name, config)
}

// CreateDestination creates a destination from the global registry
func CreateDestination(name string, config *config.BaseConfig) (core.Destination, error) {
	return globalRegistry.CreateDestination(name, config)
}

// ListSources returns registered sources from the global registry
func ListSources() []string {
	return globalRegistry.ListSources()
}

// ListDestinations returns registered destinations from the global registry
func ListDestinations() []string {
	return globalRegistry.ListDestinations()
}

// HasSource checks if a source is registered in the global registry
func HasSource(name string) bool {
	return globalRegistry.HasSource(name)
}

// HasDestination checks if a destination is registered in the global registry
func HasDestination(name string) bool {
	return globalRegistry.HasDestination(name)
}

// GetRegistry returns the global registry instance.
func GetRegistry() *Registry {
	return globalRegistry
}

// FormatInfo describes a registered format for listings.
type FormatInfo struct {
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Description  string            `json:"description"`
	Extensions   []string          `json:"extensions,omitempty"`
	Capabilities []string          `json:"capabilities,omitempty"`
	Options      map[string]string `json:"options,omitempty"`
}

// Catalog manages format metadata
type Catalog struct {
	formats map[string]*FormatInfo
	mu      sync.RWMutex
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		formats: make(map[string]*FormatInfo),
	}
}

func catalogKey(info *FormatInfo) string {
	return info.Type + "/" + info.Name
}

// Register adds a format to the catalog
func (c *Catalog) Register(info *FormatInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := catalogKey(info)
	if _, exists := c.formats[key]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("format %s already in catalog", key))
	}

	c.formats[key] = info
	return nil
}

// Get retrieves format information by type ("source" or "destination") and name
func (c *Catalog) Get(typ, name string) (*FormatInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, exists := c.formats[typ+"/"+name]
	if !exists {
		return nil, errors.New(errors.ErrorTypeCapability, fmt.Sprintf("format %s/%s not found in catalog", typ, name))
	}

	return info, nil
}

// List returns all formats in the catalog sorted by type then name
func (c *Catalog) List() []*FormatInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	infos := make([]*FormatInfo, 0, len(c.formats))
	for _, info := range c.formats {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return catalogKey(infos[i]) < catalogKey(infos[j])
	})
	return infos
}

var globalCatalog = NewCatalog()

// RegisterFormatInfo registers format information in the global catalog
func RegisterFormatInfo(info *FormatInfo) error {
	return globalCatalog.Register(info)
}

// GetFormatInfo retrieves format information from the global catalog
func GetFormatInfo(typ, name string) (*FormatInfo, error) {
	return globalCatalog.Get(typ, name)
}

// ListFormatInfo lists all formats in the global catalog
func ListFormatInfo() []*FormatInfo {
	return globalCatalog.List()
}
