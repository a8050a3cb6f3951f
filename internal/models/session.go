package models

import (
	"encoding/json"
	"fmt"
)

// SessionStatus is the lifecycle state of an assistant conversation.
type SessionStatus string

const (
	SessionOpened SessionStatus = "opened"
	SessionPaused SessionStatus = "paused"
	SessionClosed SessionStatus = "closed"
)

// SessionAction is a lifecycle command sent to the sessions endpoint.
type SessionAction string

const (
	ActionOpen   SessionAction = "opened"
	ActionPause  SessionAction = "paused"
	ActionClose  SessionAction = "closed"
	ActionDelete SessionAction = "delete"
)

// ParseSessionAction maps user input ("open", "pause", ...) to an action.
func ParseSessionAction(s string) (SessionAction, error) {
	switch s {
	case "open", "opened":
		return ActionOpen, nil
	case "pause", "paused":
		return ActionPause, nil
	case "close", "closed":
		return ActionClose, nil
	case "delete":
		return ActionDelete, nil
	}
	return "", fmt.Errorf("unknown session action %q", s)
}

// SuccessText is the toast shown when the server does not send a message.
func (a SessionAction) SuccessText() string {
	switch a {
	case ActionOpen:
		return "Sesión abierta correctamente"
	case ActionPause:
		return "Sesión pausada correctamente"
	case ActionClose:
		return "Sesión cerrada correctamente"
	case ActionDelete:
		return "Sesión eliminada correctamente"
	}
	return "Sesión actualizada"
}

// FailureText is the generic error toast for the action.
func (a SessionAction) FailureText() string {
	switch a {
	case ActionOpen:
		return "Error al abrir la sesión"
	case ActionPause:
		return "Error al pausar la sesión"
	case ActionClose:
		return "Error al cerrar la sesión"
	case ActionDelete:
		return "Error al eliminar la sesión"
	}
	return "Error al actualizar la sesión"
}

// Session is one conversation handled by a custom assistant.
type Session struct {
	ID         FlexString      `json:"id"`
	SessionID  string          `json:"sessionId"`
	RemoteJID  string          `json:"remoteJid"`
	PushName   string          `json:"pushName"`
	Status     SessionStatus   `json:"status"`
	AwaitUser  bool            `json:"awaitUser"`
	Context    json.RawMessage `json:"context,omitempty"`
	Type       string          `json:"type"`
	CreatedAt  FlexTime        `json:"createdAt"`
	UpdatedAt  FlexTime        `json:"updatedAt"`
	InstanceID FlexString      `json:"instanceId"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	BotID      FlexString      `json:"botId"`
}

// Actions lists the transitions offered for the session's current status.
func (s Session) Actions() []SessionAction {
	switch s.Status {
	case SessionOpened:
		return []SessionAction{ActionPause, ActionClose, ActionDelete}
	case SessionPaused:
		return []SessionAction{ActionOpen, ActionClose, ActionDelete}
	default:
		return []SessionAction{ActionOpen, ActionDelete}
	}
}
