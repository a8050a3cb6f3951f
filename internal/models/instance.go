package models

import "strings"

// Connection states reported by the WhatsApp backend.
const (
	StateOpen       = "open"
	StateConnecting = "connecting"
	StateClose      = "close"
	StateError      = "error"
)

// Instance is a managed WhatsApp connection as listed by ver-instancias.
type Instance struct {
	ID               FlexString `json:"id"`
	InstanceID       int        `json:"instance_id"`
	Name             string     `json:"instance_name"`
	Alias            string     `json:"instance_alias"`
	MainDevice       bool       `json:"main_device"`
	FacebookAds      bool       `json:"fb_ads"`
	Webhook          string     `json:"n8n_webhook,omitempty"`
	ActiveIA         bool       `json:"active_ia,omitempty"`
	APIKey           string     `json:"apikey"`
	LocationID       string     `json:"location_id"`
	Token            string     `json:"token"`
	Status           string     `json:"status,omitempty"`
	ConnectionStatus string     `json:"connectionStatus,omitempty"`
	QRCode           string     `json:"qrcode,omitempty"`
	UserID           FlexString `json:"userId,omitempty"`
	OwnerJID         string     `json:"ownerJid,omitempty"`
	ProfilePicURL    string     `json:"profilePicUrl,omitempty"`
	Photo            string     `json:"photo,omitempty"`
}

// Connected reports whether the instance is paired and online.
func (i Instance) Connected() bool {
	return i.ConnectionStatus == StateOpen
}

// DisplayName returns the alias, falling back to the instance name.
func (i Instance) DisplayName() string {
	if strings.TrimSpace(i.Alias) != "" {
		return i.Alias
	}
	return i.Name
}

// Picture returns the best available avatar URL.
func (i Instance) Picture() string {
	if i.ProfilePicURL != "" {
		return i.ProfilePicURL
	}
	return i.Photo
}

// InstanceConfig is the payload for creating or editing an instance.
type InstanceConfig struct {
	Alias        string `json:"alias"`
	UserID       string `json:"userId,omitempty"`
	IsMainDevice bool   `json:"isMainDevice"`
	FacebookAds  bool   `json:"facebookAds"`
	Webhook      string `json:"n8n_webhook,omitempty"`
	ActiveIA     bool   `json:"active_ia"`
	InstanceName string `json:"instance_name,omitempty"`
	UserName     string `json:"user_name,omitempty"`
	UserEmail    string `json:"user_email,omitempty"`
	UserPhone    string `json:"user_phone,omitempty"`
}

// InstanceData is the live state returned by get-instance-data.
type InstanceData struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	Photo  string `json:"photo"`
	State  string `json:"state"`
	QRCode string `json:"qrcode,omitempty"`
}

// QRStatus is the response of get-qr: a connection state and, while the
// device is unpaired, a fresh login code.
type QRStatus struct {
	State   string `json:"state,omitempty"`
	QRCode  string `json:"qrcode,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Terminal reports whether the state rules out further automatic polling.
func (s QRStatus) Terminal() bool {
	return s.State == StateClose || s.State == StateError
}

// MainDeviceTaken reports whether an instance other than except is already
// the location's main device.
func MainDeviceTaken(instances []Instance, except string) bool {
	for _, inst := range instances {
		if inst.MainDevice && inst.Name != except {
			return true
		}
	}
	return false
}
