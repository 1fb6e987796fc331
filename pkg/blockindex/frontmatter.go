package blockindex

import (
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Meta is the subset of the YAML header the bridge cares about. Every other
// key lands in Extra.
type Meta struct {
	Title   string         `yaml:"title,omitempty"`
	Format  any            `yaml:"format,omitempty"`
	Engine  string         `yaml:"engine,omitempty"`
	Jupyter any            `yaml:"jupyter,omitempty"`
	Extra   map[string]any `yaml:",inline"`
}

// KernelLanguage returns the language named by the jupyter key, which may be
// a kernel name string or a kernelspec map.
func (m *Meta) KernelLanguage() string {
	switch j := m.Jupyter.(type) {
	case string:
		return j
	case map[string]any:
		if spec, ok := j["kernelspec"].(map[string]any); ok {
			if lang, ok := spec["language"].(string); ok {
				return lang
			}
		}
	}
	return ""
}

// FrontMatter decodes the front-matter block, if the document has one.
func FrontMatter(blocks []Block) (*Meta, bool, error) {
	for _, b := range blocks {
		if b.Kind != KindFrontMatter {
			continue
		}
		var meta Meta
		if err := yaml.Unmarshal([]byte(b.Content), &meta); err != nil {
			return nil, true, errors.Errorf("decoding front matter: %w", err)
		}
		return &meta, true, nil
	}
	return nil, false, nil
}
