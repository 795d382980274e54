package asr

import (
	"fmt"
	"sort"
	"strings"

	"scribe/internal/config"
	"scribe/internal/services"
)

// Registry holds the configured transcription back-ends keyed by name.
type Registry struct {
	plugins       map[string]Plugin
	defaultMethod string
}

// NewRegistry builds a registry from configuration. Every registered
// back-end is validated eagerly; an unusable default back-end is a
// configuration error.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	registry := &Registry{
		plugins:       make(map[string]Plugin),
		defaultMethod: cfg.ASR.DefaultMethod,
	}

	registry.plugins["whisper"] = NewWhisperPlugin(cfg.ASR.Whisper)
	registry.plugins["qwen-asr"] = NewQwenPlugin(cfg.ASR.Qwen)

	def, ok := registry.plugins[cfg.ASR.DefaultMethod]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "asr", "registry",
			fmt.Sprintf("unknown default method %q", cfg.ASR.DefaultMethod), nil)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	return registry, nil
}

// Names returns the registered back-end names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the configured default back-end name.
func (r *Registry) Default() string {
	return r.defaultMethod
}

// Describe returns descriptors for all registered back-ends in name order.
func (r *Registry) Describe() []Descriptor {
	names := r.Names()
	descriptors := make([]Descriptor, 0, len(names))
	for _, name := range names {
		descriptors = append(descriptors, r.plugins[name].Describe())
	}
	return descriptors
}

// Resolve returns the named back-end after validating its configuration.
// An empty name resolves to the default back-end.
func (r *Registry) Resolve(name string) (Plugin, error) {
	key := strings.TrimSpace(name)
	if key == "" {
		key = r.defaultMethod
	}
	plugin, ok := r.plugins[key]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "asr", "resolve",
			fmt.Sprintf("unknown transcription method %q", key), nil)
	}
	if err := plugin.Validate(); err != nil {
		return nil, err
	}
	return plugin, nil
}
