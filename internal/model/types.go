package model

import "time"

// Label is the user's decision on a training example.
type Label int

const (
	Negative Label = 0 // junk
	Positive Label = 1 // approved
)

func (l Label) String() string {
	if l == Positive {
		return "approved"
	}
	return "junk"
}

// ParseLabel accepts "approved"/"positive" and "junk"/"negative".
func ParseLabel(s string) (Label, bool) {
	switch s {
	case "approved", "positive", "approve":
		return Positive, true
	case "junk", "negative", "reject", "rejected":
		return Negative, true
	}
	return Negative, false
}

// Article is a candidate item to be scored.
type Article struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	SourceName  string    `json:"source_name,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// TrainingExample is a labeled article. Notes are the user's own annotations
// and are only present on examples that went through review.
type TrainingExample struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	SourceName  string `json:"source_name,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Label       Label  `json:"label"`
}

// Approved builds a positive example.
func Approved(title, description string) TrainingExample {
	return TrainingExample{Title: title, Description: description, Label: Positive}
}

// Junk builds a negative example.
func Junk(title, description string) TrainingExample {
	return TrainingExample{Title: title, Description: description, Label: Negative}
}

// Split partitions examples by label, preserving order.
func Split(examples []TrainingExample) (approved, junk []TrainingExample) {
	for _, e := range examples {
		if e.Label == Positive {
			approved = append(approved, e)
		} else {
			junk = append(junk, e)
		}
	}
	return approved, junk
}

// CountLabels returns the number of approved and junk examples.
func CountLabels(examples []TrainingExample) (approved, junk int) {
	for _, e := range examples {
		if e.Label == Positive {
			approved++
		} else {
			junk++
		}
	}
	return approved, junk
}

// MinPerClass is the training-data gate for any network path.
const MinPerClass = 2

// Sufficient reports whether both classes meet MinPerClass.
func Sufficient(examples []TrainingExample) bool {
	a, j := CountLabels(examples)
	return a >= MinPerClass && j >= MinPerClass
}
