package output

import (
	"encoding/json"
)

type jsonReport struct {
	Files []FileResult `json:"files"`
	Total int          `json:"total"`
}

// GenerateJSONReport converts scan results to JSON format
func GenerateJSONReport(results []FileResult) ([]byte, error) {
	results = Sorted(results)
	return json.MarshalIndent(jsonReport{Files: results, Total: Count(results)}, "", "  ")
}
