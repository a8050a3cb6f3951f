package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Operation names, used in errors and to pick the generic failure text.
const (
	OpListUsers         = "list users"
	OpListInstances     = "list instances"
	OpGetInstanceConfig = "get instance config"
	OpCreateInstance    = "create instance"
	OpEditInstance      = "edit instance"
	OpDeleteInstance    = "delete instance"
	OpTurnOffInstance   = "turn off instance"
	OpRefreshQR         = "refresh qr"
	OpInstanceData      = "instance data"
	OpGetCredentials    = "get credentials"
	OpCreateCredential  = "create credential"
	OpDeleteCredential  = "delete credential"
	OpListAssistants    = "list assistants"
	OpGetAssistant      = "get assistant"
	OpCreateAssistant   = "create assistant"
	OpUpdateAssistant   = "update assistant"
	OpDeleteAssistant   = "delete assistant"
	OpListSessions      = "list sessions"
	OpUpdateSession     = "update session"
	OpListOfficial      = "list official assistants"
	OpCreateOfficial    = "create official assistant"
	OpUpdateOfficial    = "update official assistant"
	OpDeleteOfficial    = "delete official assistant"
)

var failureText = map[string]string{
	OpListUsers:         "Error al obtener los usuarios",
	OpListInstances:     "Error al obtener las instancias",
	OpGetInstanceConfig: "Error al obtener la configuración de la instancia",
	OpCreateInstance:    "Error al crear la instancia de WhatsApp",
	OpEditInstance:      "Error al actualizar la configuración de la instancia",
	OpDeleteInstance:    "Error al eliminar la instancia",
	OpTurnOffInstance:   "Error al desconectar la instancia",
	OpRefreshQR:         "Error al obtener el código QR.",
	OpInstanceData:      "Error al obtener el estado de la instancia",
	OpGetCredentials:    "Error al obtener las credenciales de OpenAI",
	OpCreateCredential:  "Error al crear la credencial de OpenAI",
	OpDeleteCredential:  "Error al eliminar la credencial de OpenAI",
	OpListAssistants:    "Error al obtener los asistentes personalizados",
	OpGetAssistant:      "Error al obtener el asistente de OpenAI",
	OpCreateAssistant:   "Error al crear el asistente de OpenAI",
	OpUpdateAssistant:   "Error al actualizar el asistente de OpenAI",
	OpDeleteAssistant:   "Error al eliminar el asistente de OpenAI",
	OpListSessions:      "Error al obtener las sesiones del asistente",
	OpUpdateSession:     "Error al actualizar la sesión",
	OpListOfficial:      "Error al obtener los asistentes oficiales de OpenAI",
	OpCreateOfficial:    "Error al crear el asistente oficial de OpenAI",
	OpUpdateOfficial:    "Error al actualizar el asistente oficial de OpenAI",
	OpDeleteOfficial:    "Error al eliminar el asistente oficial de OpenAI",
}

// FailureText returns the generic user-facing text for a failed operation.
func FailureText(op string) string {
	if s, ok := failureText[op]; ok {
		return s
	}
	return "Error inesperado"
}

// Error is returned by every Client method. Status is zero when the request
// never produced an HTTP response.
type Error struct {
	Op        string
	Status    int
	Message   string // server-provided message, if any
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("api: %s: %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Message)
	case e.Status != 0:
		return fmt.Sprintf("api: %s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("api: %s: %v", e.Op, e.Err)
	}
	return "api: " + e.Op + ": failed"
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text to show an operator: the server message when
// present, the generic failure text otherwise.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return FailureText(e.Op)
}

// IsNotFound reports whether err is an HTTP 404 from the backend. List and
// get operations treat it as "no data".
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

// UserMessage extracts the operator-facing text from any error.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.UserMessage()
	}
	return err.Error()
}
