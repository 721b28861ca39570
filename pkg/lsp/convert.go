package lsp

import (
	"fmt"

	"go.lsp.dev/protocol"

	"github.com/sambabib/sustainable-electron/pkg/finding"
	"github.com/sambabib/sustainable-electron/pkg/quickfix"
)

func toSeverity(s finding.Severity) protocol.DiagnosticSeverity {
	switch s {
	case finding.Error:
		return protocol.DiagnosticSeverityError
	case finding.Warning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityInformation
	}
}

func fromSeverity(s protocol.DiagnosticSeverity) finding.Severity {
	switch s {
	case protocol.DiagnosticSeverityError:
		return finding.Error
	case protocol.DiagnosticSeverityWarning:
		return finding.Warning
	default:
		return finding.Information
	}
}

func toDiagnostic(f finding.Finding) protocol.Diagnostic {
	d := protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(f.Location.Line), Character: uint32(f.Location.StartColumn)},
			End:   protocol.Position{Line: uint32(f.Location.Line), Character: uint32(f.Location.EndColumn)},
		},
		Severity: toSeverity(f.Severity),
		Code:     f.Code,
		Source:   f.Source,
		Message:  f.Message,
	}
	if f.HelpLink != "" {
		d.CodeDescription = &protocol.CodeDescription{Href: protocol.URI(f.HelpLink)}
	}
	return d
}

func toDiagnostics(findings []finding.Finding) []protocol.Diagnostic {
	diags := make([]protocol.Diagnostic, 0, len(findings))
	for _, f := range findings {
		diags = append(diags, toDiagnostic(f))
	}
	return diags
}

// fromDiagnostic recovers the finding a client echoes back in a code action request.
func fromDiagnostic(d protocol.Diagnostic) finding.Finding {
	f := finding.Finding{
		Location: finding.Location{
			Line:        int(d.Range.Start.Line),
			StartColumn: int(d.Range.Start.Character),
			EndColumn:   int(d.Range.End.Character),
		},
		Message:  d.Message,
		Severity: fromSeverity(d.Severity),
		Source:   d.Source,
	}
	switch code := d.Code.(type) {
	case nil:
	case string:
		f.Code = code
	default:
		f.Code = fmt.Sprint(code)
	}
	if d.CodeDescription != nil {
		f.HelpLink = string(d.CodeDescription.Href)
	}
	return f
}

func toCodeAction(a quickfix.Action) protocol.CodeAction {
	ca := protocol.CodeAction{
		Title:       a.Title,
		Kind:        protocol.CodeActionKind(a.Kind),
		IsPreferred: a.Preferred,
		Command: &protocol.Command{
			Title:   a.Command.Title,
			Command: a.Command.ID,
		},
	}
	if a.Finding != nil {
		ca.Diagnostics = []protocol.Diagnostic{toDiagnostic(*a.Finding)}
	}
	return ca
}
