package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists every problem found in a submitted form.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// IsValidationError reports whether err came from form validation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InstanceForm is the create/edit form for an instance.
type InstanceForm struct {
	Alias        string `validate:"required" msg:"El alias es requerido"`
	UserID       string `validate:"required_without=IsMainDevice" msg:"Debe seleccionar un usuario"`
	IsMainDevice bool
	FacebookAds  bool
	Webhook      string `validate:"omitempty,startswith=http" msg:"El webhook debe ser una URL válida"`
	ActiveIA     bool
}

// Validate checks the form. hasMainDevice reports whether another instance
// of the location is already the main device.
func (f *InstanceForm) Validate(hasMainDevice bool) error {
	f.Alias = strings.TrimSpace(f.Alias)
	f.Webhook = strings.TrimSpace(f.Webhook)
	problems := structProblems(f)
	if f.IsMainDevice && hasMainDevice {
		problems = append(problems, "Ya existe un dispositivo principal")
	}
	return problemsErr(problems)
}

// Config converts the form into the API payload. The user is dropped for
// main devices.
func (f InstanceForm) Config() InstanceConfig {
	cfg := InstanceConfig{
		Alias:        f.Alias,
		UserID:       f.UserID,
		IsMainDevice: f.IsMainDevice,
		FacebookAds:  f.FacebookAds,
		Webhook:      f.Webhook,
		ActiveIA:     f.ActiveIA,
	}
	if f.IsMainDevice {
		cfg.UserID = ""
	}
	return cfg
}

// CredentialForm adds an OpenAI key to an instance.
type CredentialForm struct {
	Name   string `validate:"required" msg:"El nombre es requerido"`
	APIKey string `validate:"required,startswith=sk-" msg:"La clave API es requerida y debe comenzar con 'sk-'"`
}

// Validate checks the form.
func (f *CredentialForm) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.APIKey = strings.TrimSpace(f.APIKey)
	return problemsErr(structProblems(f))
}

// AssistantForm is the create/edit form for a custom assistant.
type AssistantForm struct {
	Name             string           `validate:"required" msg:"El nombre del asistente es requerido"`
	APIKeyID         string           `validate:"required" msg:"Debe seleccionar una credencial de OpenAI"`
	AssistantID      string           `validate:"required" msg:"El ID del asistente de OpenAI es requerido"`
	WebhookURL       string           `validate:"omitempty,url" msg:"El Webhook URL debe ser una URL válida"`
	TriggerType      TriggerType      `validate:"oneof=keyword all none advanced" msg:"Tipo de trigger inválido"`
	TriggerCondition TriggerCondition `validate:"omitempty,oneof=contains equals startsWith endsWith regex" msg:"Condición de trigger inválida"`
	TriggerValue     string
	Assistant        Assistant `validate:"-"`
}

// Validate checks the form and copies the edited fields into Assistant.
func (f *AssistantForm) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.AssistantID = strings.TrimSpace(f.AssistantID)
	f.WebhookURL = strings.TrimSpace(f.WebhookURL)
	f.TriggerValue = strings.TrimSpace(f.TriggerValue)
	problems := structProblems(f)
	if f.TriggerType.NeedsValue() && f.TriggerValue == "" {
		problems = append(problems, `Debe especificar un valor para el tipo de trigger "`+string(f.TriggerType)+`"`)
	}
	if err := problemsErr(problems); err != nil {
		return err
	}
	f.Assistant.Name = f.Name
	f.Assistant.APIKeyID = f.APIKeyID
	f.Assistant.AssistantID = f.AssistantID
	f.Assistant.WebhookURL = f.WebhookURL
	f.Assistant.TriggerType = f.TriggerType
	f.Assistant.TriggerCondition = f.TriggerCondition
	if f.Assistant.TriggerCondition == "" {
		f.Assistant.TriggerCondition = ConditionContains
	}
	f.Assistant.TriggerValue = f.TriggerValue
	return nil
}

// OfficialForm is the create/edit form for an official assistant.
type OfficialForm struct {
	Name         string  `validate:"required" msg:"El nombre es requerido"`
	Instructions string  `validate:"required" msg:"Las instrucciones son requeridas"`
	Model        string  `validate:"required" msg:"El modelo es requerido"`
	APIKeyID     string  `validate:"required" msg:"Debe seleccionar una credencial de OpenAI"`
	Temperature  float64 `validate:"gte=0,lte=2" msg:"La temperatura debe estar entre 0 y 2"`
	TopP         float64 `validate:"gte=0,lte=1" msg:"Top P debe estar entre 0 y 1"`
	Tools        []Tool  `validate:"-"`
}

// Validate checks the form, including every function tool definition.
func (f *OfficialForm) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.Instructions = strings.TrimSpace(f.Instructions)
	problems := structProblems(f)
	for _, t := range f.Tools {
		if err := ValidateTool(t); err != nil {
			problems = append(problems, err.Error())
		}
	}
	return problemsErr(problems)
}

// Assistant builds the assistant value from a validated form.
func (f OfficialForm) Assistant(id string) OfficialAssistant {
	return OfficialAssistant{
		ID:           FlexString(id),
		Name:         f.Name,
		Instructions: f.Instructions,
		Model:        f.Model,
		APIKeyID:     FlexString(f.APIKeyID),
		Tools:        f.Tools,
		Temperature:  ptr(f.Temperature),
		TopP:         ptr(f.TopP),
	}
}

// ValidateTool checks a single tool definition.
func ValidateTool(t Tool) error {
	switch t.Type {
	case ToolCodeInterpreter, ToolRetrieval:
		return nil
	case ToolFunction:
		if t.Function == nil || strings.TrimSpace(t.Function.Name) == "" {
			return errors.New("La función requiere un nombre")
		}
		if !isJSONObject(t.Function.Parameters) {
			return errors.New("Parámetros JSON inválidos para la función " + t.Function.Name)
		}
		return nil
	}
	return errors.New("Tipo de herramienta desconocido: " + t.Type)
}

// NewFunctionTool builds a function tool from raw form input.
func NewFunctionTool(name, description, parameters string) (Tool, error) {
	t := Tool{Type: ToolFunction, Function: &FunctionDef{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Parameters:  json.RawMessage(strings.TrimSpace(parameters)),
	}}
	return t, ValidateTool(t)
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	var m map[string]any
	return json.Unmarshal(raw, &m) == nil
}

// structProblems runs the tag validators and translates each failure into
// the field's msg tag.
func structProblems(form any) []string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	typ := reflect.Indirect(reflect.ValueOf(form)).Type()
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Error()
		if f, ok := typ.FieldByName(fe.StructField()); ok {
			if m := f.Tag.Get("msg"); m != "" {
				msg = m
			}
		}
		problems = append(problems, msg)
	}
	return problems
}

func problemsErr(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// Form returns an edit form prefilled from a.
func (a Assistant) Form() AssistantForm {
	return AssistantForm{
		Name:             a.Name,
		APIKeyID:         a.APIKeyID,
		AssistantID:      a.AssistantID,
		WebhookURL:       a.WebhookURL,
		TriggerType:      a.TriggerType,
		TriggerCondition: a.TriggerCondition,
		TriggerValue:     a.TriggerValue,
		Assistant:        a,
	}
}

// Form returns an edit form prefilled from o. Missing sampling values fall
// back to 1.
func (o OfficialAssistant) Form() OfficialForm {
	f := OfficialForm{
		Name:         o.Name,
		Instructions: o.Instructions,
		Model:        o.Model,
		APIKeyID:     string(o.APIKeyID),
		Tools:        o.Tools,
		Temperature:  1,
		TopP:         1,
	}
	if o.Temperature != nil {
		f.Temperature = *o.Temperature
	}
	if o.TopP != nil {
		f.TopP = *o.TopP
	}
	return f
}
