package embedded

import (
	"slices"

	"github.com/hashicorp/go-multierror"
	"gitlab.com/tozd/go/errors"
)

// Registry is the ordered set of known languages. Lookups return the first
// language that claims an id.
type Registry struct {
	languages []*Language
}

func NewRegistry(langs ...*Language) (*Registry, error) {
	r := &Registry{}
	var merr *multierror.Error
	for _, l := range langs {
		if err := Validate(l); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		r.languages = append(r.languages, l)
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, errors.Errorf("building language registry: %w", err)
	}
	return r, nil
}

// Validate checks a single entry.
func Validate(l *Language) error {
	if l == nil {
		return errors.New("nil language")
	}
	var merr *multierror.Error
	if len(l.IDs) == 0 {
		merr = multierror.Append(merr, errors.New("language has no ids"))
	}
	if l.Extension == "" {
		merr = multierror.Append(merr, errors.Errorf("language %q has no file extension", l.ID()))
	}
	if !l.Strategy.Valid() {
		merr = multierror.Append(merr, errors.Errorf("language %q has unknown strategy %q", l.ID(), l.Strategy))
	}
	if l.Server != nil && l.Server.Command == "" {
		merr = multierror.Append(merr, errors.Errorf("language %q has an empty server command", l.ID()))
	}
	return merr.ErrorOrNil()
}

// ByID returns the language claiming id, if any.
func (r *Registry) ByID(id string) (*Language, bool) {
	if r == nil {
		return nil, false
	}
	for _, l := range r.languages {
		if l.Matches(id) {
			return l, true
		}
	}
	return nil, false
}

// ByExtension returns the language using ext, if any.
func (r *Registry) ByExtension(ext string) (*Language, bool) {
	if r == nil {
		return nil, false
	}
	for _, l := range r.languages {
		if l.Extension == ext {
			return l, true
		}
	}
	return nil, false
}

func (r *Registry) All() []*Language {
	if r == nil {
		return nil
	}
	return slices.Clone(r.languages)
}

// TriggerChars is the sorted union of every language's trigger characters.
func (r *Registry) TriggerChars() []string {
	var out []string
	for _, l := range r.All() {
		for _, ch := range l.TriggerChars {
			if !slices.Contains(out, ch) {
				out = append(out, ch)
			}
		}
	}
	slices.Sort(out)
	return out
}

// With returns a registry where each override replaces the entry sharing its
// first id, or is appended when no entry does. Entries named in disabled are
// removed.
func (r *Registry) With(overrides []*Language, disabled []string) (*Registry, error) {
	langs := make([]*Language, 0, len(r.languages)+len(overrides))
	for _, l := range r.languages {
		langs = append(langs, l.Clone())
	}

	for _, o := range overrides {
		idx := slices.IndexFunc(langs, func(l *Language) bool { return l.Matches(o.ID()) })
		if idx >= 0 {
			langs[idx] = o
		} else {
			langs = append(langs, o)
		}
	}

	langs = slices.DeleteFunc(langs, func(l *Language) bool {
		return slices.ContainsFunc(disabled, l.Matches)
	})

	return NewRegistry(langs...)
}
