package output

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sambabib/sustainable-electron/pkg/finding"
)

// SARIF format specification: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

// SarifReport represents the top-level SARIF report structure
type SarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SarifRun `json:"runs"`
}

// SarifRun represents a single run of the analysis tool
type SarifRun struct {
	Tool               SarifTool                        `json:"tool"`
	AutomationDetails  SarifAutomationDetails           `json:"automationDetails"`
	Results            []SarifResult                    `json:"results"`
	Invocations        []SarifInvocation                `json:"invocations"`
	ColumnKind         string                           `json:"columnKind"`
	OriginalURIBaseIDs map[string]SarifArtifactLocation `json:"originalUriBaseIds,omitempty"`
}

// SarifTool represents the tool that performed the analysis
type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

// SarifDriver represents the driver of the tool
type SarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []SarifRule `json:"rules"`
}

// SarifRule represents a rule that was evaluated during the analysis
type SarifRule struct {
	ID                   string            `json:"id"`
	ShortDescription     SarifMessage      `json:"shortDescription"`
	FullDescription      SarifMessage      `json:"fullDescription"`
	Help                 SarifMessage      `json:"help"`
	DefaultConfiguration SarifRuleConfig   `json:"defaultConfiguration"`
	Properties           map[string]string `json:"properties,omitempty"`
}

// SarifRuleConfig carries the default level of a rule
type SarifRuleConfig struct {
	Level string `json:"level"`
}

// SarifAutomationDetails identifies one run among many
type SarifAutomationDetails struct {
	ID string `json:"id"`
}

// SarifResult represents a result of the analysis
type SarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   SarifMessage    `json:"message"`
	Locations []SarifLocation `json:"locations"`
}

// SarifMessage represents a message in the SARIF report
type SarifMessage struct {
	Text string `json:"text"`
}

// SarifLocation represents a location in the code
type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

// SarifPhysicalLocation represents a physical location in the code
type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifactLocation `json:"artifactLocation"`
	Region           SarifRegion           `json:"region"`
}

// SarifArtifactLocation represents the location of an artifact
type SarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

// SarifRegion represents a region in the code. Lines and columns are one-based.
type SarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndColumn   int `json:"endColumn"`
}

// SarifInvocation represents an invocation of the tool
type SarifInvocation struct {
	ExecutionSuccessful bool   `json:"executionSuccessful"`
	StartTimeUtc        string `json:"startTimeUtc"`
	EndTimeUtc          string `json:"endTimeUtc"`
}

var sarifRules = []SarifRule{
	{
		ID:                   finding.CodeElemMention,
		ShortDescription:     SarifMessage{Text: "DOM lookup by id"},
		FullDescription:      SarifMessage{Text: "The line looks an element up by id from script. Styling and layout work done this way can often move to CSS."},
		Help:                 SarifMessage{Text: "Consider replacing the lookup with modern CSS selectors and rules."},
		DefaultConfiguration: SarifRuleConfig{Level: "note"},
	},
	{
		ID:                   finding.CodeHighDependencyCount,
		ShortDescription:     SarifMessage{Text: "Dependency with many dependencies"},
		FullDescription:      SarifMessage{Text: "The declared package has at least the configured number of direct dependencies of its own."},
		Help:                 SarifMessage{Text: "If possible consider replacing it with a leaner alternative."},
		DefaultConfiguration: SarifRuleConfig{Level: "warning"},
	},
	{
		ID:                   finding.CodeDependencyCountUnknown,
		ShortDescription:     SarifMessage{Text: "Dependency count unknown"},
		FullDescription:      SarifMessage{Text: "The registry could not tell how many dependencies the declared package has."},
		Help:                 SarifMessage{Text: "Check the package name and the registry configuration."},
		DefaultConfiguration: SarifRuleConfig{Level: "note"},
	},
}

func sarifLevel(s finding.Severity) string {
	switch s {
	case finding.Error:
		return "error"
	case finding.Warning:
		return "warning"
	default:
		return "note"
	}
}

// GenerateSarifReport converts scan results to SARIF format. Paths are
// reported relative to projectPath.
func GenerateSarifReport(results []FileResult, projectPath, version string, started time.Time) ([]byte, error) {
	results = Sorted(results)

	sarifResults := make([]SarifResult, 0, Count(results))
	for _, r := range results {
		for _, f := range r.Findings {
			sarifResults = append(sarifResults, SarifResult{
				RuleID:  f.Code,
				Level:   sarifLevel(f.Severity),
				Message: SarifMessage{Text: f.Message},
				Locations: []SarifLocation{
					{
						PhysicalLocation: SarifPhysicalLocation{
							ArtifactLocation: SarifArtifactLocation{URI: r.Path, URIBaseID: "PROJECTROOT"},
							Region: SarifRegion{
								StartLine:   f.Location.Line + 1,
								StartColumn: f.Location.StartColumn + 1,
								EndColumn:   f.Location.EndColumn + 1,
							},
						},
					},
				},
			})
		}
	}

	now := time.Now().UTC()
	sarifReport := SarifReport{
		Schema:  "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json",
		Version: "2.1.0",
		Runs: []SarifRun{
			{
				Tool: SarifTool{
					Driver: SarifDriver{
						Name:           "sustainable",
						Version:        version,
						InformationURI: "https://github.com/sambabib/sustainable-electron",
						Rules:          sarifRules,
					},
				},
				AutomationDetails: SarifAutomationDetails{ID: "sustainable/" + uuid.NewString()},
				Results:           sarifResults,
				ColumnKind:        "utf16CodeUnits",
				OriginalURIBaseIDs: map[string]SarifArtifactLocation{
					"PROJECTROOT": {URI: projectPath},
				},
				Invocations: []SarifInvocation{
					{
						ExecutionSuccessful: true,
						StartTimeUtc:        started.UTC().Format(time.RFC3339),
						EndTimeUtc:          now.Format(time.RFC3339),
					},
				},
			},
		},
	}

	return json.MarshalIndent(sarifReport, "", "  ")
}
