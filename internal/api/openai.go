package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/zulandar/wapanel/internal/models"
)

// GetCredentials returns the OpenAI keys stored for an instance. A 404
// means the instance has none yet and yields an empty set.
func (c *Client) GetCredentials(ctx context.Context, instanceName string) (models.CredentialSet, error) {
	data, err := c.do(ctx, request{
		op:     OpGetCredentials,
		method: http.MethodGet,
		url:    c.ai("/creds"),
		query:  url.Values{"instance_name": {instanceName}},
	})
	if IsNotFound(err) {
		return models.EmptyCredentialSet(instanceName), nil
	}
	if err != nil {
		c.fail(ctx, err)
		return models.CredentialSet{}, err
	}
	var set models.CredentialSet
	if err := decode(OpGetCredentials, data, &set); err != nil {
		c.fail(ctx, err)
		return models.CredentialSet{}, err
	}
	if set.APIKeys == nil {
		set.APIKeys = []models.APIKey{}
	}
	return set, nil
}

// CreateCredential stores a new OpenAI key for an instance.
func (c *Client) CreateCredential(ctx context.Context, instanceName, name, apiKey string) (string, error) {
	return c.mutate(ctx, request{
		op:     OpCreateCredential,
		method: http.MethodPost,
		url:    c.ai("/creds"),
		body: map[string]string{
			"instance_name": instanceName,
			"name":          name,
			"apikey":        apiKey,
		},
	})
}

// DeleteCredential removes a stored key.
func (c *Client) DeleteCredential(ctx context.Context, instanceName, credentialID string) (string, error) {
	return c.mutate(ctx, request{
		op:     OpDeleteCredential,
		method: http.MethodDelete,
		url:    c.ai("/creds"),
		query:  url.Values{"instance_name": {instanceName}, "id": {credentialID}},
	})
}

// ListAssistants returns the custom assistants of an instance. A 404
// yields an empty list.
func (c *Client) ListAssistants(ctx context.Context, instanceName string) ([]models.Assistant, error) {
	data, err := c.do(ctx, request{
		op:     OpListAssistants,
		method: http.MethodGet,
		url:    c.ai("/assistants"),
		query:  url.Values{"instance_name": {instanceName}},
	})
	if IsNotFound(err) {
		return []models.Assistant{}, nil
	}
	if err != nil {
		c.fail(ctx, err)
		return nil, err
	}
	var env dataEnvelope[[]models.AssistantRecord]
	if err := decode(OpListAssistants, data, &env); err != nil {
		c.fail(ctx, err)
		return nil, err
	}
	out := make([]models.Assistant, 0, len(env.Data))
	for _, r := range env.Data {
		out = append(out, r.Assistant())
	}
	return out, nil
}

// GetAssistant fetches one custom assistant by record id.
func (c *Client) GetAssistant(ctx context.Context, instanceName, id string) (models.Assistant, error) {
	data, err := c.do(ctx, request{
		op:     OpGetAssistant,
		method: http.MethodGet,
		url:    c.ai("/agent"),
		query:  url.Values{"instance_name": {instanceName}, "id": {id}},
	})
	if err != nil {
		c.fail(ctx, err)
		return models.Assistant{}, err
	}
	var rec *models.AssistantRecord
	if err := decode(OpGetAssistant, data, &rec); err != nil {
		c.fail(ctx, err)
		return models.Assistant{}, err
	}
	if rec == nil {
		err := &Error{Op: OpGetAssistant, Message: "La respuesta no contiene datos"}
		c.fail(ctx, err)
		return models.Assistant{}, err
	}
	return rec.Assistant(), nil
}

// CreateAssistant stores a new custom assistant.
func (c *Client) CreateAssistant(ctx context.Context, instanceName string, a models.Assistant) (string, error) {
	rec := a.Record(instanceName)
	rec.ID = ""
	return c.mutate(ctx, request{
		op:     OpCreateAssistant,
		method: http.MethodPost,
		url:    c.ai("/assistants"),
		body:   rec,
	})
}

// UpdateAssistant replaces a custom assistant; a.ID selects the record.
func (c *Client) UpdateAssistant(ctx context.Context, instanceName string, a models.Assistant) (string, error) {
	return c.mutate(ctx, request{
		op:     OpUpdateAssistant,
		method: http.MethodPut,
		url:    c.ai("/assistants"),
		body:   a.Record(instanceName),
	})
}

// DeleteAssistant removes a custom assistant.
func (c *Client) DeleteAssistant(ctx context.Context, instanceName, id string) (string, error) {
	return c.mutate(ctx, request{
		op:     OpDeleteAssistant,
		method: http.MethodDelete,
		url:    c.ai("/assistants"),
		query:  url.Values{"instance_name": {instanceName}, "id": {id}},
	})
}

// ListSessions returns the conversations of a custom assistant. A 404
// yields an empty list.
func (c *Client) ListSessions(ctx context.Context, instanceName, assistantID string) ([]models.Session, error) {
	data, err := c.do(ctx, request{
		op:     OpListSessions,
		method: http.MethodGet,
		url:    c.ai("/sessions"),
		query:  url.Values{"instance_name": {instanceName}, "id": {assistantID}},
	})
	if IsNotFound(err) {
		return []models.Session{}, nil
	}
	if err != nil {
		c.fail(ctx, err)
		return nil, err
	}
	var env dataEnvelope[[]models.Session]
	if err := decode(OpListSessions, data, &env); err != nil {
		c.fail(ctx, err)
		return nil, err
	}
	if env.Data == nil {
		env.Data = []models.Session{}
	}
	return env.Data, nil
}

// UpdateSession applies a lifecycle action to a session. A success toast is
// always raised, with a per-action text when the server sends none.
func (c *Client) UpdateSession(ctx context.Context, instanceName, assistantID, sessionID, remoteJID string, action models.SessionAction) (string, error) {
	data, err := c.do(ctx, request{
		op:     OpUpdateSession,
		method: http.MethodPost,
		url:    c.ai("/sessions"),
		body: map[string]string{
			"instance_name": instanceName,
			"id":            assistantID,
			"sessionId":     sessionID,
			"remoteJid":     remoteJID,
			"action":        string(action),
		},
	})
	if err != nil {
		logFailure(err)
		msg := action.FailureText()
		if e, ok := err.(*Error); ok && e.Message != "" {
			msg = e.Message
		}
		c.notify.Error(ctx, msg)
		return "", err
	}
	msg := serverMessage(data)
	if msg == "" {
		msg = action.SuccessText()
	}
	c.notify.Success(ctx, msg)
	return msg, nil
}

// OpenSession resumes a session.
func (c *Client) OpenSession(ctx context.Context, instanceName, assistantID, sessionID, remoteJID string) (string, error) {
	return c.UpdateSession(ctx, instanceName, assistantID, sessionID, remoteJID, models.ActionOpen)
}

// PauseSession pauses a session.
func (c *Client) PauseSession(ctx context.Context, instanceName, assistantID, sessionID, remoteJID string) (string, error) {
	return c.UpdateSession(ctx, instanceName, assistantID, sessionID, remoteJID, models.ActionPause)
}

// CloseSession closes a session.
func (c *Client) CloseSession(ctx context.Context, instanceName, assistantID, sessionID, remoteJID string) (string, error) {
	return c.UpdateSession(ctx, instanceName, assistantID, sessionID, remoteJID, models.ActionClose)
}

// DeleteSession deletes a session.
func (c *Client) DeleteSession(ctx context.Context, instanceName, assistantID, sessionID, remoteJID string) (string, error) {
	return c.UpdateSession(ctx, instanceName, assistantID, sessionID, remoteJID, models.ActionDelete)
}

// ListOfficialAssistants returns the official assistants of an instance,
// optionally filtered by credential id. A 404 yields an empty list without
// a toast.
func (c *Client) ListOfficialAssistants(ctx context.Context, instanceName, apiKeyID string) ([]models.OfficialAssistant, error) {
	q := url.Values{"instance_name": {instanceName}}
	if apiKeyID != "" {
		q.Set("openaiCredsId", apiKeyID)
	}
	data, err := c.do(ctx, request{
		op:     OpListOfficial,
		method: http.MethodGet,
		url:    c.ai("/official-assistants"),
		query:  q,
	})
	if IsNotFound(err) {
		return []models.OfficialAssistant{}, nil
	}
	if err != nil {
		c.fail(ctx, err)
		return nil, err
	}
	var env struct {
		Data *[]models.OfficialAssistant `json:"data"`
	}
	if err := decode(OpListOfficial, data, &env); err != nil || env.Data == nil {
		if err == nil {
			err = &Error{Op: OpListOfficial, Message: "Estructura de respuesta inesperada al obtener asistentes oficiales"}
		}
		c.fail(ctx, err)
		return nil, err
	}
	out := make([]models.OfficialAssistant, 0, len(*env.Data))
	for _, o := range *env.Data {
		out = append(out, o.Normalize(apiKeyID))
	}
	return out, nil
}

// CreateOfficialAssistant creates an official assistant.
func (c *Client) CreateOfficialAssistant(ctx context.Context, instanceName string, o models.OfficialAssistant) (string, error) {
	p := o.Payload(instanceName)
	p.ID = ""
	return c.mutate(ctx, request{
		op:     OpCreateOfficial,
		method: http.MethodPost,
		url:    c.ai("/official-assistants"),
		body:   p,
	})
}

// UpdateOfficialAssistant replaces an official assistant; o.ID selects it.
func (c *Client) UpdateOfficialAssistant(ctx context.Context, instanceName string, o models.OfficialAssistant) (string, error) {
	return c.mutate(ctx, request{
		op:     OpUpdateOfficial,
		method: http.MethodPut,
		url:    c.ai("/official-assistants"),
		body:   o.Payload(instanceName),
	})
}

// DeleteOfficialAssistant removes an official assistant.
func (c *Client) DeleteOfficialAssistant(ctx context.Context, instanceName, id, apiKeyID string) (string, error) {
	return c.mutate(ctx, request{
		op:     OpDeleteOfficial,
		method: http.MethodDelete,
		url:    c.ai("/official-assistants"),
		query:  url.Values{"instance_name": {instanceName}, "id": {id}, "openaiCredsId": {apiKeyID}},
	})
}
