package recognition

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"reelscribe/internal/config"
	"reelscribe/internal/language"
	"reelscribe/internal/services"
)

// EngineSpec is the recognition configuration for one language.
type EngineSpec struct {
	Language  string
	Backend   string
	ModelPath string
	ModelName string
}

func (s EngineSpec) String() string {
	switch s.Backend {
	case config.EngineWhisperX:
		return fmt.Sprintf("%s (%s)", s.Backend, s.ModelName)
	default:
		return fmt.Sprintf("%s (%s)", s.Backend, s.ModelPath)
	}
}

// Registry is an immutable language to engine table.
type Registry struct {
	specs    map[string]EngineSpec
	unusable map[string]string
	warnings []string
}

// RegistryOption customizes registry construction.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	available map[string]bool
}

// WithAvailableBackends overrides the set of engine backends this binary can
// serve. The default is AvailableBackends().
func WithAvailableBackends(backends ...string) RegistryOption {
	return func(o *registryOptions) {
		o.available = make(map[string]bool, len(backends))
		for _, b := range backends {
			o.available[b] = true
		}
	}
}

// AvailableBackends lists the engine backends compiled into this binary.
func AvailableBackends() []string {
	backends := []string{config.EngineWhisperX}
	if VoskAvailable() {
		backends = append(backends, config.EngineVosk)
	}
	return backends
}

// NewRegistry resolves the configured models. Entries that cannot be used
// are recorded with a reason and reported through Warnings; accepted
// languages without any entry are reported as well.
func NewRegistry(cfg config.Languages, opts ...RegistryOption) *Registry {
	var o registryOptions
	WithAvailableBackends(AvailableBackends()...)(&o)
	for _, opt := range opts {
		opt(&o)
	}
	r := &Registry{
		specs:    make(map[string]EngineSpec, len(cfg.Models)),
		unusable: make(map[string]string),
	}

	codes := make([]string, 0, len(cfg.Models))
	for code := range cfg.Models {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		model := cfg.Models[code]
		tag := language.ToISO2(code)
		if tag == "" {
			r.warnings = append(r.warnings, fmt.Sprintf("languages.models.%s: unrecognised language code; entry ignored", code))
			continue
		}
		spec := EngineSpec{
			Language:  tag,
			Backend:   strings.ToLower(strings.TrimSpace(model.Engine)),
			ModelPath: strings.TrimSpace(model.Path),
			ModelName: strings.TrimSpace(model.Model),
		}
		if reason := usability(spec, o.available); reason != "" {
			r.unusable[tag] = reason
			r.warnings = append(r.warnings, fmt.Sprintf("%s: %s", tag, reason))
			continue
		}
		r.specs[tag] = spec
	}

	for _, code := range language.NormalizeList(cfg.Accepted) {
		if _, ok := r.specs[code]; ok {
			continue
		}
		if _, ok := r.unusable[code]; ok {
			continue
		}
		r.unusable[code] = "no recognition model configured"
		r.warnings = append(r.warnings, fmt.Sprintf("%s: accepted language has no recognition model configured", code))
	}
	return r
}

func usability(spec EngineSpec, available map[string]bool) string {
	if !available[spec.Backend] {
		if spec.Backend == config.EngineVosk {
			return "vosk engine unavailable in this build (rebuild with -tags vosk)"
		}
		return fmt.Sprintf("unknown engine %q", spec.Backend)
	}
	switch spec.Backend {
	case config.EngineVosk:
		if spec.ModelPath == "" {
			return "vosk model path not set"
		}
		info, err := os.Stat(spec.ModelPath)
		if err != nil {
			return fmt.Sprintf("vosk model not found at %s", spec.ModelPath)
		}
		if !info.IsDir() {
			return fmt.Sprintf("vosk model path %s is not a directory", spec.ModelPath)
		}
	case config.EngineWhisperX:
		if spec.ModelName == "" {
			return "whisperx model name not set"
		}
	}
	return ""
}

// Lookup returns the engine specification for tag. A missing or unusable
// entry yields a configuration error.
func (r *Registry) Lookup(tag string) (EngineSpec, error) {
	code := language.ToISO2(tag)
	if spec, ok := r.specs[code]; ok {
		return spec, nil
	}
	reason, ok := r.unusable[code]
	if !ok {
		reason = "no recognition model configured"
	}
	return EngineSpec{}, services.Wrap(services.ErrConfiguration, "transcribe", "registry lookup", fmt.Sprintf("%s: %s", tag, reason), nil)
}

// Warnings returns the problems found while building the registry.
func (r *Registry) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// Specs returns the usable entries ordered by language.
func (r *Registry) Specs() []EngineSpec {
	out := make([]EngineSpec, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Language < out[j].Language })
	return out
}

// Unusable returns the reason each unusable language was rejected.
func (r *Registry) Unusable() map[string]string {
	out := make(map[string]string, len(r.unusable))
	for k, v := range r.unusable {
		out[k] = v
	}
	return out
}

// UsesBackend reports whether any usable entry is served by backend.
func (r *Registry) UsesBackend(backend string) bool {
	for _, spec := range r.specs {
		if spec.Backend == backend {
			return true
		}
	}
	return false
}
