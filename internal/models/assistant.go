package models

import "fmt"

// TriggerType decides which inbound messages start an assistant session.
type TriggerType string

const (
	TriggerKeyword  TriggerType = "keyword"
	TriggerAll      TriggerType = "all"
	TriggerNone     TriggerType = "none"
	TriggerAdvanced TriggerType = "advanced"
)

// TriggerCondition is the comparison used by keyword and advanced triggers.
type TriggerCondition string

const (
	ConditionContains   TriggerCondition = "contains"
	ConditionEquals     TriggerCondition = "equals"
	ConditionStartsWith TriggerCondition = "startsWith"
	ConditionEndsWith   TriggerCondition = "endsWith"
	ConditionRegex      TriggerCondition = "regex"
)

// NeedsValue reports whether the trigger type carries an operator and value.
func (t TriggerType) NeedsValue() bool {
	return t == TriggerKeyword || t == TriggerAdvanced
}

// Defaults applied when the backend omits a custom assistant field.
const (
	DefaultAssistantName   = "Sin nombre"
	DefaultExpireMinutes   = 60
	DefaultStopKeyword     = "#stop"
	DefaultMessageDelayMs  = 1500
	DefaultUnknownMessage  = "No puedo entender aún este tipo de mensajes"
	DefaultDebounceSeconds = 6
	DefaultTimePerChar     = 10
	timePerCharScale       = 10
	customAssistantBotType = "assistant"
)

// Assistant is an instance-level bot configuration linked to an OpenAI
// assistant, with trigger and timing rules.
type Assistant struct {
	ID                string
	Name              string
	Instructions      string
	APIKeyID          string
	CreatedAt         string
	UpdatedAt         string
	AssistantID       string
	WebhookURL        string
	TriggerType       TriggerType
	TriggerCondition  TriggerCondition
	TriggerValue      string
	ExpirationMinutes int
	StopKeyword       string
	MessageDelayMs    int
	UnknownMessage    string
	ListenToOwner     bool
	StopByOwner       bool
	KeepSessionOpen   bool
	DebounceSeconds   int
	SeparateMessages  bool
	SecondsPerMessage float64
}

// NewAssistant returns an assistant carrying the backend defaults, the
// starting point for a create form.
func NewAssistant() Assistant {
	return AssistantRecord{}.Assistant()
}

// AssistantRecord is the wire shape of a custom assistant.
type AssistantRecord struct {
	ID              FlexString `json:"id,omitempty"`
	InstanceName    string     `json:"instance_name,omitempty"`
	Description     string     `json:"description"`
	OpenAICredsID   FlexString `json:"openaiCredsId"`
	AssistantID     string     `json:"assistantId"`
	FunctionURL     string     `json:"functionUrl"`
	TriggerType     string     `json:"triggerType"`
	TriggerOperator string     `json:"triggerOperator,omitempty"`
	TriggerValue    string     `json:"triggerValue,omitempty"`
	Expire          *int       `json:"expire,omitempty"`
	KeywordFinish   *string    `json:"keywordFinish,omitempty"`
	DelayMessage    *int       `json:"delayMessage,omitempty"`
	UnknownMessage  *string    `json:"unknownMessage,omitempty"`
	ListeningFromMe *bool      `json:"listeningFromMe,omitempty"`
	StopBotFromMe   *bool      `json:"stopBotFromMe,omitempty"`
	KeepOpen        *bool      `json:"keepOpen,omitempty"`
	DebounceTime    *int       `json:"debounceTime,omitempty"`
	SplitMessages   *bool      `json:"splitMessages,omitempty"`
	TimePerChar     *float64   `json:"timePerChar,omitempty"`
	BotType         string     `json:"botType,omitempty"`
	CreatedAt       FlexTime   `json:"createdAt,omitempty"`
	UpdatedAt       FlexTime   `json:"updatedAt,omitempty"`
}

// Assistant converts the wire record, applying defaults for missing or
// zero values. Booleans default to true only when absent.
func (r AssistantRecord) Assistant() Assistant {
	a := Assistant{
		ID:                string(r.ID),
		Name:              orString(r.Description, DefaultAssistantName),
		APIKeyID:          string(r.OpenAICredsID),
		CreatedAt:         string(r.CreatedAt),
		UpdatedAt:         string(r.UpdatedAt),
		AssistantID:       r.AssistantID,
		WebhookURL:        r.FunctionURL,
		TriggerType:       TriggerType(orString(r.TriggerType, string(TriggerAll))),
		TriggerCondition:  TriggerCondition(orString(r.TriggerOperator, string(ConditionContains))),
		TriggerValue:      r.TriggerValue,
		ExpirationMinutes: orInt(r.Expire, DefaultExpireMinutes),
		StopKeyword:       orString(deref(r.KeywordFinish), DefaultStopKeyword),
		MessageDelayMs:    orInt(r.DelayMessage, DefaultMessageDelayMs),
		UnknownMessage:    orString(deref(r.UnknownMessage), DefaultUnknownMessage),
		ListenToOwner:     orBool(r.ListeningFromMe, false),
		StopByOwner:       orBool(r.StopBotFromMe, true),
		KeepSessionOpen:   orBool(r.KeepOpen, true),
		DebounceSeconds:   orInt(r.DebounceTime, DefaultDebounceSeconds),
		SeparateMessages:  orBool(r.SplitMessages, true),
		SecondsPerMessage: float64(DefaultTimePerChar) / timePerCharScale,
	}
	if r.TimePerChar != nil && *r.TimePerChar != 0 {
		a.SecondsPerMessage = *r.TimePerChar / timePerCharScale
	}
	return a
}

// Record converts the assistant to its wire shape for create and update.
// The trigger operator and value are only sent for trigger types that use
// them.
func (a Assistant) Record(instanceName string) AssistantRecord {
	r := AssistantRecord{
		ID:              FlexString(a.ID),
		InstanceName:    instanceName,
		Description:     a.Name,
		OpenAICredsID:   FlexString(a.APIKeyID),
		AssistantID:     a.AssistantID,
		FunctionURL:     a.WebhookURL,
		TriggerType:     string(a.TriggerType),
		Expire:          ptr(a.ExpirationMinutes),
		KeywordFinish:   ptr(a.StopKeyword),
		DelayMessage:    ptr(a.MessageDelayMs),
		UnknownMessage:  ptr(a.UnknownMessage),
		ListeningFromMe: ptr(a.ListenToOwner),
		StopBotFromMe:   ptr(a.StopByOwner),
		KeepOpen:        ptr(a.KeepSessionOpen),
		DebounceTime:    ptr(a.DebounceSeconds),
		SplitMessages:   ptr(a.SeparateMessages),
		TimePerChar:     ptr(a.SecondsPerMessage * timePerCharScale),
		BotType:         customAssistantBotType,
	}
	if a.TriggerType.NeedsValue() {
		r.TriggerOperator = string(a.TriggerCondition)
		r.TriggerValue = a.TriggerValue
	}
	return r
}

// TriggerSummary renders the trigger rule for list views.
func (a Assistant) TriggerSummary() string {
	if a.TriggerType.NeedsValue() {
		return fmt.Sprintf("%s %s %q", a.TriggerType, a.TriggerCondition, a.TriggerValue)
	}
	return string(a.TriggerType)
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orInt(v *int, def int) int {
	if v == nil || *v == 0 {
		return def
	}
	return *v
}

func orBool(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func ptr[T any](v T) *T { return &v }
