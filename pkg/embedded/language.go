// Package embedded describes the languages that may appear inside a host
// document and how each one is exposed to its own tooling.
package embedded

import (
	"slices"
	"strings"
)

// Strategy selects how a virtual document is materialized.
type Strategy string

const (
	// StrategyContent serves the virtual document from memory under a
	// dedicated URI scheme.
	StrategyContent Strategy = "content"
	// StrategyTempFile writes the virtual document to a single file per
	// language extension.
	StrategyTempFile Strategy = "tempfile"
)

func (s Strategy) Valid() bool {
	return s == StrategyContent || s == StrategyTempFile
}

// ServerCommand starts the language server that analyzes a language.
type ServerCommand struct {
	Command string
	Args    []string
}

// Language is one registry entry.
type Language struct {
	// IDs are the aliases a block's language id is matched against. The
	// first one is the LSP languageId sent downstream.
	IDs          []string
	Extension    string
	Strategy     Strategy
	TriggerChars []string
	// Preamble lines are prepended to every virtual document.
	Preamble    []string
	ReuseHandle bool
	Server      *ServerCommand
}

func (l *Language) ID() string {
	if l == nil || len(l.IDs) == 0 {
		return ""
	}
	return l.IDs[0]
}

func (l *Language) PreambleLength() int {
	if l == nil {
		return 0
	}
	return len(l.Preamble)
}

// Matches reports whether id names this language.
func (l *Language) Matches(id string) bool {
	if l == nil || id == "" {
		return false
	}
	return slices.ContainsFunc(l.IDs, func(alias string) bool {
		return strings.EqualFold(alias, id)
	})
}

// Triggers reports whether ch is one of the completion trigger characters.
func (l *Language) Triggers(ch string) bool {
	return slices.Contains(l.TriggerChars, ch)
}

func (l *Language) Clone() *Language {
	c := *l
	c.IDs = slices.Clone(l.IDs)
	c.TriggerChars = slices.Clone(l.TriggerChars)
	c.Preamble = slices.Clone(l.Preamble)
	if l.Server != nil {
		s := *l.Server
		s.Args = slices.Clone(l.Server.Args)
		c.Server = &s
	}
	return &c
}
