package dto

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type ChatMessage struct {
	Role    string
	Content string
}

type CompletionRequest struct {
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}

// FunctionSpec describes a single function the model is forced to call.
// Parameters is a JSON schema object.
type FunctionSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}
