package llm

import "strings"

// taskRoutes maps task-type hints to a preferred provider. Anything not
// listed goes to PrimaryReasoning.
var taskRoutes = map[string]ProviderID{
	"fast":       Fast,
	"realtime":   Fast,
	"vision":     Vision,
	"multimodal": Vision,
}

// SelectProvider returns the preferred provider for a task-type hint.
// It never fails and does not consult availability.
func SelectProvider(taskType string) ProviderID {
	if id, ok := taskRoutes[strings.ToLower(strings.TrimSpace(taskType))]; ok {
		return id
	}
	return PrimaryReasoning
}
