// Package quickfix offers the "learn more" actions attached to findings.
package quickfix

import (
	"github.com/sambabib/sustainable-electron/pkg/document"
	"github.com/sambabib/sustainable-electron/pkg/finding"
)

// OpenHelpCommand is the command id executed by every action.
const OpenHelpCommand = "sustainable-electronjs.openWiki"

// Action kinds, as understood by LSP clients.
const (
	KindQuickFix = "quickfix"
	KindEmpty    = ""
)

// Command describes what invoking an action runs.
type Command struct {
	ID      string
	Title   string
	Tooltip string
}

// Action is one user-invocable code action.
type Action struct {
	Title     string
	Kind      string
	Command   Command
	Preferred bool
	Finding   *finding.Finding // nil for the generic action
}

// Provider turns findings at a location into actions. It never has side effects.
type Provider struct {
	codes map[string]bool
}

// NewProvider offers a finding-bound action for findings with one of codes.
// Without codes it matches elem_mention and high-dependency-count-detected.
func NewProvider(codes ...string) *Provider {
	if len(codes) == 0 {
		codes = []string{finding.CodeElemMention, finding.CodeHighDependencyCount}
	}
	p := &Provider{codes: make(map[string]bool, len(codes))}
	for _, c := range codes {
		p.codes[c] = true
	}
	return p
}

func learnMore(tooltip string) Command {
	return Command{
		ID:      OpenHelpCommand,
		Title:   "Learn more about modern css",
		Tooltip: tooltip,
	}
}

// Actions returns one preferred quick fix per matching finding, followed by the
// generic action when doc is a script.
func (p *Provider) Actions(doc *document.Snapshot, findings []finding.Finding) []Action {
	actions := []Action{}
	for i := range findings {
		if !p.codes[findings[i].Code] {
			continue
		}
		f := findings[i]
		actions = append(actions, Action{
			Title:     "Learn more...",
			Kind:      KindQuickFix,
			Command:   learnMore("This will take you to the Sustainable WIKI to learn more."),
			Preferred: true,
			Finding:   &f,
		})
	}
	if doc != nil && doc.IsScript() {
		actions = append(actions, Action{
			Title:   "Learn more...",
			Kind:    KindEmpty,
			Command: learnMore("This will take you to the Sustainable WIKI website to learn more."),
		})
	}
	return actions
}
