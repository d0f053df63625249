package summary

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnrecognizedResponse is returned when no known response shape matches.
var ErrUnrecognizedResponse = errors.New("summary: unrecognized webhook response")

// Shape names an accepted webhook response layout.
type Shape string

const (
	ShapeSummary     Shape = "summary"      // {"summary": "..."}
	ShapeOutputText  Shape = "output_text"  // {"output_text": "..."}
	ShapeChatChoices Shape = "chat_choices" // {"choices":[{"message":{"content":"..."}}]}
	ShapeOutputList  Shape = "output_list"  // [{"output": "..."}]
)

type extractor struct {
	shape   Shape
	extract func(body []byte) (string, bool)
}

// extractors are tried in order; the first that decodes a non-empty text wins.
var extractors = []extractor{
	{ShapeSummary, func(b []byte) (string, bool) {
		var r struct {
			Summary *string `json:"summary"`
		}
		if json.Unmarshal(b, &r) != nil || r.Summary == nil {
			return "", false
		}
		return *r.Summary, true
	}},
	{ShapeOutputText, func(b []byte) (string, bool) {
		var r struct {
			OutputText *string `json:"output_text"`
		}
		if json.Unmarshal(b, &r) != nil || r.OutputText == nil {
			return "", false
		}
		return *r.OutputText, true
	}},
	{ShapeChatChoices, func(b []byte) (string, bool) {
		var r struct {
			Choices []struct {
				Message struct {
					Content *string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if json.Unmarshal(b, &r) != nil || len(r.Choices) == 0 || r.Choices[0].Message.Content == nil {
			return "", false
		}
		return *r.Choices[0].Message.Content, true
	}},
	{ShapeOutputList, func(b []byte) (string, bool) {
		var r []struct {
			Output *string `json:"output"`
		}
		if json.Unmarshal(b, &r) != nil || len(r) == 0 || r[0].Output == nil {
			return "", false
		}
		return *r[0].Output, true
	}},
}

// Extract decodes body against each accepted shape in order.
func Extract(body []byte) (string, Shape, error) {
	for _, e := range extractors {
		if text, ok := e.extract(body); ok {
			if text = strings.TrimSpace(text); text != "" {
				return text, e.shape, nil
			}
		}
	}
	return "", "", ErrUnrecognizedResponse
}
