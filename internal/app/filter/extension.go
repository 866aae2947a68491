package filter

import (
	"context"
	"strings"

	"github.com/osa030/bragi/internal/domain/track"
)

// ExtensionConfig represents the configuration for ExtensionFilter.
type ExtensionConfig struct {
	Extensions []string `yaml:"extensions" mapstructure:"extensions" default:"[\"mp3\",\"flac\",\"wav\",\"ogg\"]" validate:"min=1,dive,required"`
}

// ExtensionFilter only admits files with an allowed extension.
type ExtensionFilter struct {
	allowed map[string]struct{}
}

// NewExtensionFilter creates a new extension filter allowing exts.
func NewExtensionFilter(exts ...string) *ExtensionFilter {
	f := &ExtensionFilter{}
	f.setAllowed(exts)
	return f
}

func (f *ExtensionFilter) setAllowed(exts []string) {
	f.allowed = make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		f.allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
}

func (f *ExtensionFilter) Name() string {
	return "extension_filter"
}

func (f *ExtensionFilter) Description() string {
	return "Rejects files whose extension is not in the allowed list"
}

func (f *ExtensionFilter) ReturnCodes() []string {
	return []string{"unsupported_extension"}
}

func (f *ExtensionFilter) ValidateConfig(settings map[string]any) error {
	var config ExtensionConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.setAllowed(config.Extensions)
	return nil
}

func (f *ExtensionFilter) AppliesTo(origin Origin) bool {
	// Applies to every origin
	return true
}

func (f *ExtensionFilter) Check(ctx context.Context, t track.Track) Result {
	if len(f.allowed) == 0 {
		return Accept()
	}
	if _, ok := f.allowed[t.Ext()]; !ok {
		return Reject("unsupported_extension")
	}
	return Accept()
}

func init() {
	Register("extension_filter", func(Deps) Filter {
		return &ExtensionFilter{}
	})
}
