// Package config loads the optional .embedls configuration file.
package config

import (
	"bytes"
	"io"
	"io/fs"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/embedls/pkg/embedded"
)

var ErrUnknownFormat = errors.New("unknown config format")

const (
	KeyingRequest  = "request"
	KeyingDocument = "document"
)

// FileNames are looked up, in order, by Discover.
var FileNames = []string{".embedls.yaml", ".embedls.yml", ".embedls.hcl"}

var DefaultDocuments = []string{"**/*.qmd", "**/*.md", "**/*.rmd"}

type Config struct {
	TempDir       string           `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty" hcl:"temp_dir,optional"`
	ContentKeying string           `json:"content_keying,omitempty" yaml:"content_keying,omitempty" hcl:"content_keying,optional"`
	Documents     []string         `json:"documents,omitempty" yaml:"documents,omitempty" hcl:"documents,optional"`
	Languages     []*LanguageBlock `json:"languages,omitempty" yaml:"languages,omitempty" hcl:"language,block"`
}

// LanguageBlock overrides or adds one embedded language. Unset fields keep
// the built-in value when the id names a built-in language.
type LanguageBlock struct {
	ID           string       `json:"id" yaml:"id" hcl:"id,label"`
	Aliases      []string     `json:"aliases,omitempty" yaml:"aliases,omitempty" hcl:"aliases,optional"`
	Extension    string       `json:"extension,omitempty" yaml:"extension,omitempty" hcl:"extension,optional"`
	Strategy     string       `json:"strategy,omitempty" yaml:"strategy,omitempty" hcl:"strategy,optional"`
	TriggerChars []string     `json:"trigger_chars,omitempty" yaml:"trigger_chars,omitempty" hcl:"trigger_chars,optional"`
	Preamble     []string     `json:"preamble,omitempty" yaml:"preamble,omitempty" hcl:"preamble,optional"`
	ReuseHandle  *bool        `json:"reuse_handle,omitempty" yaml:"reuse_handle,omitempty" hcl:"reuse_handle,optional"`
	Disabled     bool         `json:"disabled,omitempty" yaml:"disabled,omitempty" hcl:"disabled,optional"`
	Server       *ServerBlock `json:"server,omitempty" yaml:"server,omitempty" hcl:"server,block"`
}

type ServerBlock struct {
	Command string   `json:"command" yaml:"command" hcl:"command,attr"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty" hcl:"args,optional"`
}

func Default() *Config {
	return &Config{
		ContentKeying: KeyingRequest,
		Documents:     append([]string{}, DefaultDocuments...),
	}
}

// LoadConfig reads a YAML or HCL config, chosen by file extension. A missing
// file yields the defaults.
func LoadConfig(afs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(afs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var cfg Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	case ".hcl":
		parser := hclparse.NewParser()
		hclFile, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return nil, errors.Errorf("parsing HCL: %s", diags.Error())
		}

		ctx := &hcl.EvalContext{
			Variables: map[string]cty.Value{},
		}

		diags = gohcl.DecodeBody(hclFile.Body, ctx, &cfg)
		if diags.HasErrors() {
			return nil, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	default:
		return nil, errors.Errorf("loading %s: %w", path, ErrUnknownFormat)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating %s: %w", path, err)
	}
	return &cfg, nil
}

// Discover loads the first config file found in dir, or the defaults.
func Discover(afs afero.Fs, dir string) (*Config, string, error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if ok, _ := afero.Exists(afs, p); ok {
			cfg, err := LoadConfig(afs, p)
			return cfg, p, err
		}
	}
	return Default(), "", nil
}

func (c *Config) applyDefaults() {
	if c.ContentKeying == "" {
		c.ContentKeying = KeyingRequest
	}
	if len(c.Documents) == 0 {
		c.Documents = append([]string{}, DefaultDocuments...)
	}
}

func (c *Config) Validate() error {
	var merr *multierror.Error
	if c.ContentKeying != KeyingRequest && c.ContentKeying != KeyingDocument {
		merr = multierror.Append(merr, errors.Errorf("content_keying must be %q or %q, got %q", KeyingRequest, KeyingDocument, c.ContentKeying))
	}
	for _, pattern := range c.Documents {
		if !doublestar.ValidatePattern(pattern) {
			merr = multierror.Append(merr, errors.Errorf("invalid document pattern %q", pattern))
		}
	}
	for i, l := range c.Languages {
		if l.ID == "" {
			merr = multierror.Append(merr, errors.Errorf("language %d has no id", i))
		}
		if l.Strategy != "" && !embedded.Strategy(l.Strategy).Valid() {
			merr = multierror.Append(merr, errors.Errorf("language %q has unknown strategy %q", l.ID, l.Strategy))
		}
		if l.Server != nil && l.Server.Command == "" {
			merr = multierror.Append(merr, errors.Errorf("language %q has an empty server command", l.ID))
		}
	}
	return merr.ErrorOrNil()
}

// Registry layers the configured languages over base.
func (c *Config) Registry(base *embedded.Registry) (*embedded.Registry, error) {
	var overrides []*embedded.Language
	var disabled []string
	for _, block := range c.Languages {
		if block.Disabled {
			disabled = append(disabled, block.ID)
			continue
		}
		overrides = append(overrides, block.apply(base))
	}
	return base.With(overrides, disabled)
}

func (b *LanguageBlock) apply(base *embedded.Registry) *embedded.Language {
	l := &embedded.Language{IDs: []string{b.ID}}
	if existing, ok := base.ByID(b.ID); ok {
		l = existing.Clone()
	}
	for _, alias := range b.Aliases {
		if !l.Matches(alias) {
			l.IDs = append(l.IDs, alias)
		}
	}
	if b.Extension != "" {
		l.Extension = b.Extension
	}
	if b.Strategy != "" {
		l.Strategy = embedded.Strategy(b.Strategy)
	}
	if b.TriggerChars != nil {
		l.TriggerChars = b.TriggerChars
	}
	if b.Preamble != nil {
		l.Preamble = b.Preamble
	}
	if b.ReuseHandle != nil {
		l.ReuseHandle = *b.ReuseHandle
	}
	if b.Server != nil {
		l.Server = &embedded.ServerCommand{Command: b.Server.Command, Args: b.Server.Args}
	}
	return l
}

// ClaimsDocument reports whether a host document URI matches one of the
// configured document patterns.
func (c *Config) ClaimsDocument(documentURI string) bool {
	p := documentURI
	if u, err := url.Parse(documentURI); err == nil && u.Scheme != "" {
		p = u.Path
		if p == "" {
			p = u.Opaque
		}
	}
	p = strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "/")
	for _, pattern := range c.Documents {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}
