package decompose

import (
	"encoding/json"
	"strings"

	"github.com/ShayCichocki/vibeman/internal/errs"
)

// subTaskDescriptor is the model's wire format for one proposed sub-task.
type subTaskDescriptor struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Type               string   `json:"type"`
	Priority           string   `json:"priority"`
	EstimatedHours     float64  `json:"estimatedHours"`
	FilePaths          []string `json:"filePaths"`
	AcceptanceCriteria []string `json:"acceptanceCriteria"`
	Tags               []string `json:"tags"`
	Dependencies       []string `json:"dependencies"`
}

// parseSplitResponse extracts the JSON array of sub-task descriptors from a
// model response.
func parseSplitResponse(response string) ([]subTaskDescriptor, error) {
	jsonStart := strings.Index(response, "[")
	jsonEnd := strings.LastIndex(response, "]")
	if jsonStart == -1 || jsonEnd <= jsonStart {
		preview := response
		if len(preview) > 200 {
			preview = preview[:200] + "... (truncated)"
		}
		return nil, errs.E(errs.KindParsing, "decompose.parseSplitResponse",
			"no JSON array in response: "+preview)
	}

	var descriptors []subTaskDescriptor
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &descriptors); err != nil {
		return nil, errs.Wrap(errs.KindParsing, "decompose.parseSplitResponse", err)
	}
	if len(descriptors) == 0 {
		return nil, errs.E(errs.KindParsing, "decompose.parseSplitResponse", "empty sub-task list")
	}
	return descriptors, nil
}
