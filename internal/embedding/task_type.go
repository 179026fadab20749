package embedding

import "strings"

// =============================================================================
// TASK TYPES
// =============================================================================

// GenAI embedding task types.
const (
	TaskSemanticSimilarity = "SEMANTIC_SIMILARITY"
	TaskClassification     = "CLASSIFICATION"
	TaskClustering         = "CLUSTERING"
	TaskRetrievalDocument  = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery     = "RETRIEVAL_QUERY"
)

// NormalizeTaskType maps a configured task type onto one GenAI accepts.
// Unknown values fall back to CLUSTERING, which is what comment grouping wants.
func NormalizeTaskType(taskType string) string {
	switch t := strings.ToUpper(strings.TrimSpace(taskType)); t {
	case TaskSemanticSimilarity, TaskClassification, TaskClustering,
		TaskRetrievalDocument, TaskRetrievalQuery:
		return t
	default:
		return TaskClustering
	}
}
