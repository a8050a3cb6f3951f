package api

import (
	"context"
	"log"
	"net/http"
	"net/url"

	"github.com/zulandar/wapanel/internal/models"
)

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// ListUsers returns the users of a location.
func (c *Client) ListUsers(ctx context.Context, locationID string) ([]models.User, error) {
	data, err := c.do(ctx, request{
		op:     OpListUsers,
		method: http.MethodGet,
		url:    c.wa("/get-users"),
		query:  url.Values{"locationId": {locationID}},
	})
	if err != nil {
		logFailure(err)
		return nil, err
	}
	var list models.UserList
	if err := decode(OpListUsers, data, &list); err != nil {
		logFailure(err)
		return nil, err
	}
	return list.Data, nil
}

// ListInstances returns the instances of a location.
func (c *Client) ListInstances(ctx context.Context, locationID string) ([]models.Instance, error) {
	data, err := c.do(ctx, request{
		op:     OpListInstances,
		method: http.MethodGet,
		url:    c.wa("/ver-instancias"),
		query:  url.Values{"locationId": {locationID}},
	})
	if err != nil {
		logFailure(err)
		return nil, err
	}
	var env dataEnvelope[[]models.Instance]
	if err := decode(OpListInstances, data, &env); err != nil {
		logFailure(err)
		return nil, err
	}
	return env.Data, nil
}

// GetInstanceConfig returns the stored configuration of one instance.
func (c *Client) GetInstanceConfig(ctx context.Context, locationID, instanceID string) (*models.Instance, error) {
	data, err := c.do(ctx, request{
		op:     OpGetInstanceConfig,
		method: http.MethodGet,
		url:    c.wa("/ver-instancia"),
		query:  url.Values{"locationId": {locationID}, "instanceId": {instanceID}},
	})
	if err != nil {
		c.fail(ctx, err)
		return nil, err
	}
	var env dataEnvelope[*models.Instance]
	if err := decode(OpGetInstanceConfig, data, &env); err != nil {
		c.fail(ctx, err)
		return nil, err
	}
	if env.Data == nil {
		err := &Error{Op: OpGetInstanceConfig, Message: "No se encontró la configuración de la instancia"}
		c.fail(ctx, err)
		return nil, err
	}
	return env.Data, nil
}

// UserData identifies the user an instance is created for.
type UserData struct {
	Name  string `json:"user_name,omitempty"`
	Email string `json:"user_email,omitempty"`
	Phone string `json:"user_phone,omitempty"`
}

type instancePayload struct {
	LocationID   string `json:"locationId"`
	InstanceName string `json:"instanceName,omitempty"`
	models.InstanceConfig
}

// CreateInstance provisions a new instance. user may be nil.
func (c *Client) CreateInstance(ctx context.Context, locationID string, cfg models.InstanceConfig, user *UserData) (string, error) {
	if user != nil {
		cfg.UserName, cfg.UserEmail, cfg.UserPhone = user.Name, user.Email, user.Phone
	}
	return c.mutate(ctx, request{
		op:     OpCreateInstance,
		method: http.MethodPost,
		url:    c.wa("/create-instance"),
		body:   instancePayload{LocationID: locationID, InstanceConfig: cfg},
	})
}

// EditInstance updates an instance's configuration.
func (c *Client) EditInstance(ctx context.Context, locationID, instanceName string, cfg models.InstanceConfig) (string, error) {
	return c.mutate(ctx, request{
		op:     OpEditInstance,
		method: http.MethodPut,
		url:    c.wa("/edit-instance"),
		body:   instancePayload{LocationID: locationID, InstanceName: instanceName, InstanceConfig: cfg},
	})
}

type instanceRef struct {
	LocationID   string `json:"locationId"`
	InstanceName string `json:"instanceName"`
}

// DeleteInstance removes an instance. The identifiers travel in the body.
func (c *Client) DeleteInstance(ctx context.Context, locationID, instanceName string) (string, error) {
	return c.mutate(ctx, request{
		op:     OpDeleteInstance,
		method: http.MethodDelete,
		url:    c.wa("/delete-instance"),
		body:   instanceRef{locationID, instanceName},
	})
}

// TurnOffInstance logs the paired device out.
func (c *Client) TurnOffInstance(ctx context.Context, locationID, instanceName string) (string, error) {
	return c.mutate(ctx, request{
		op:     OpTurnOffInstance,
		method: http.MethodPost,
		url:    c.wa("/turn-off"),
		body:   instanceRef{locationID, instanceName},
	})
}

// RefreshQR asks for the connection state and, while unpaired, a new login
// code. It raises no toasts; the QR poller reports failures itself.
func (c *Client) RefreshQR(ctx context.Context, locationID, instanceName string) (models.QRStatus, error) {
	data, err := c.do(ctx, request{
		op:     OpRefreshQR,
		method: http.MethodPost,
		url:    c.wa("/get-qr"),
		body:   instanceRef{locationID, instanceName},
	})
	if err != nil {
		logFailure(err)
		return models.QRStatus{}, err
	}
	var st models.QRStatus
	if err := decode(OpRefreshQR, data, &st); err != nil {
		logFailure(err)
		return models.QRStatus{}, err
	}
	return st, nil
}

// InstanceData checks the live state of an instance. When the state is
// missing or closed, get-qr is consulted for a fresher state and login code.
// It never fails: on error the state is "error".
func (c *Client) InstanceData(ctx context.Context, locationID, instanceName string) models.InstanceData {
	data, err := c.do(ctx, request{
		op:     OpInstanceData,
		method: http.MethodPost,
		url:    c.wa("/get-instance-data"),
		body:   instanceRef{locationID, instanceName},
	})
	var out models.InstanceData
	if err == nil {
		err = decode(OpInstanceData, data, &out)
	}
	if err != nil {
		logFailure(err)
		return models.InstanceData{State: models.StateError}
	}

	if out.State == "" || out.State == models.StateClose {
		st, err := c.RefreshQR(ctx, locationID, instanceName)
		if err != nil {
			log.Printf("api: instance data: keeping state %q, get-qr failed", out.State)
			return out
		}
		if st.State != "" {
			out.State = st.State
		}
		if st.QRCode != "" {
			out.QRCode = st.QRCode
		}
	}
	return out
}
