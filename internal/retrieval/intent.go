// Package retrieval provides query routing between the structured catalog
// pipeline and the unstructured FAQ pipeline.
package retrieval

// Intent is the routing classification of a question.
type Intent string

const (
	// IntentStructured routes to the SQL catalog pipeline.
	IntentStructured Intent = "structured"

	// IntentUnstructured routes to the semantic FAQ pipeline.
	IntentUnstructured Intent = "unstructured"

	// IntentUnknown is returned for unrecognized or ambiguous questions.
	IntentUnknown Intent = "unknown"
)

// String returns the intent label.
func (i Intent) String() string {
	return string(i)
}
