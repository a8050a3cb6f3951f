package models

import "encoding/json"

// Tool types supported by OpenAI assistants.
const (
	ToolCodeInterpreter = "code_interpreter"
	ToolRetrieval       = "retrieval"
	ToolFunction        = "function"
)

// DefaultModel is used when the backend omits an assistant's model.
const DefaultModel = "gpt-4-turbo"

// Tool is one capability enabled on an official assistant. Function is set
// only for function tools.
type Tool struct {
	Type     string       `json:"type"`
	Function *FunctionDef `json:"function,omitempty"`
}

// FunctionDef describes a callable function; Parameters is a JSON schema
// object.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Label is a short human-readable tool name.
func (t Tool) Label() string {
	if t.Type == ToolFunction && t.Function != nil {
		return "function:" + t.Function.Name
	}
	return t.Type
}

// OfficialAssistant is an OpenAI Assistants-API assistant managed through the
// backend.
type OfficialAssistant struct {
	ID           FlexString `json:"id,omitempty"`
	Name         string     `json:"name"`
	Instructions string     `json:"instructions"`
	Model        string     `json:"model"`
	APIKeyID     FlexString `json:"openaiCredsId"`
	Tools        []Tool     `json:"tools"`
	Temperature  *float64   `json:"temperature,omitempty"`
	TopP         *float64   `json:"top_p,omitempty"`
	CreatedAt    FlexTime   `json:"created_at,omitempty"`
	UpdatedAt    FlexTime   `json:"updatedAt,omitempty"`
}

// Normalize applies defaults to a listed assistant. filterKey is the key id
// used to query the list; it stands in when the record lacks one.
func (o OfficialAssistant) Normalize(filterKey string) OfficialAssistant {
	if o.Name == "" {
		o.Name = DefaultAssistantName
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.APIKeyID == "" {
		o.APIKeyID = FlexString(filterKey)
	}
	if o.Tools == nil {
		o.Tools = []Tool{}
	}
	if o.Temperature == nil {
		o.Temperature = ptr(1.0)
	}
	if o.TopP == nil {
		o.TopP = ptr(1.0)
	}
	return o
}

// OfficialAssistantPayload is the create/update request body.
type OfficialAssistantPayload struct {
	InstanceName string     `json:"instance_name"`
	ID           FlexString `json:"id,omitempty"`
	Name         string     `json:"name"`
	Instructions string     `json:"instructions"`
	Model        string     `json:"model"`
	APIKeyID     FlexString `json:"openaiCredsId"`
	Tools        []Tool     `json:"tools"`
	Temperature  *float64   `json:"temperature,omitempty"`
	TopP         *float64   `json:"top_p,omitempty"`
}

// Payload builds the request body for the given instance.
func (o OfficialAssistant) Payload(instanceName string) OfficialAssistantPayload {
	tools := o.Tools
	if tools == nil {
		tools = []Tool{}
	}
	return OfficialAssistantPayload{
		InstanceName: instanceName,
		ID:           o.ID,
		Name:         o.Name,
		Instructions: o.Instructions,
		Model:        o.Model,
		APIKeyID:     o.APIKeyID,
		Tools:        tools,
		Temperature:  o.Temperature,
		TopP:         o.TopP,
	}
}
