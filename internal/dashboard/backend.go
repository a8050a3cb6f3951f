package dashboard

import (
	"context"

	"github.com/zulandar/wapanel/internal/api"
	"github.com/zulandar/wapanel/internal/models"
)

// Backend is the remote API surface the dashboard drives. *api.Client
// implements it.
type Backend interface {
	ListUsers(ctx context.Context, locationID string) ([]models.User, error)
	ListInstances(ctx context.Context, locationID string) ([]models.Instance, error)
	GetInstanceConfig(ctx context.Context, locationID, instanceID string) (*models.Instance, error)
	CreateInstance(ctx context.Context, locationID string, cfg models.InstanceConfig, user *api.UserData) (string, error)
	EditInstance(ctx context.Context, locationID, instanceName string, cfg models.InstanceConfig) (string, error)
	DeleteInstance(ctx context.Context, locationID, instanceName string) (string, error)
	TurnOffInstance(ctx context.Context, locationID, instanceName string) (string, error)
	RefreshQR(ctx context.Context, locationID, instanceName string) (models.QRStatus, error)
	InstanceData(ctx context.Context, locationID, instanceName string) models.InstanceData

	GetCredentials(ctx context.Context, instanceName string) (models.CredentialSet, error)
	CreateCredential(ctx context.Context, instanceName, name, apiKey string) (string, error)
	DeleteCredential(ctx context.Context, instanceName, credentialID string) (string, error)

	ListAssistants(ctx context.Context, instanceName string) ([]models.Assistant, error)
	GetAssistant(ctx context.Context, instanceName, id string) (models.Assistant, error)
	CreateAssistant(ctx context.Context, instanceName string, a models.Assistant) (string, error)
	UpdateAssistant(ctx context.Context, instanceName string, a models.Assistant) (string, error)
	DeleteAssistant(ctx context.Context, instanceName, id string) (string, error)

	ListSessions(ctx context.Context, instanceName, assistantID string) ([]models.Session, error)
	UpdateSession(ctx context.Context, instanceName, assistantID, sessionID, remoteJID string, action models.SessionAction) (string, error)

	ListOfficialAssistants(ctx context.Context, instanceName, apiKeyID string) ([]models.OfficialAssistant, error)
	CreateOfficialAssistant(ctx context.Context, instanceName string, o models.OfficialAssistant) (string, error)
	UpdateOfficialAssistant(ctx context.Context, instanceName string, o models.OfficialAssistant) (string, error)
	DeleteOfficialAssistant(ctx context.Context, instanceName, id, apiKeyID string) (string, error)
}

// Prefs is the local state the dashboard reads and writes. *store.Store
// implements it.
type Prefs interface {
	LocationID(ctx context.Context) (string, error)
	SetLocationID(ctx context.Context, id string) error
	TermsAccepted(ctx context.Context) (bool, error)
	AcceptTerms(ctx context.Context) error
	TakeUnseen(ctx context.Context, locationID string) ([]models.Activity, error)
}

var _ Backend = (*api.Client)(nil)
