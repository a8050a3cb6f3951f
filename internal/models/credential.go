package models

import "strings"

// CredentialSet is the collection of OpenAI keys stored for an instance.
type CredentialSet struct {
	ID      FlexString `json:"id"`
	Name    string     `json:"name"`
	Token   string     `json:"token"`
	APIKeys []APIKey   `json:"apiKeys"`
}

// APIKey is one stored OpenAI key. The backend returns it masked.
type APIKey struct {
	ID     FlexString `json:"id"`
	Name   string     `json:"name"`
	APIKey string     `json:"apiKey"`
}

// EmptyCredentialSet is what an instance without stored keys looks like.
func EmptyCredentialSet(instanceName string) CredentialSet {
	return CredentialSet{ID: FlexString(instanceName), Name: "Default", APIKeys: []APIKey{}}
}

// Find returns the key with the given id.
func (c CredentialSet) Find(id string) (APIKey, bool) {
	for _, k := range c.APIKeys {
		if string(k.ID) == id {
			return k, true
		}
	}
	return APIKey{}, false
}

// MaskKey hides all but the prefix and the last four characters of a key.
// Keys the backend already masked are returned unchanged.
func MaskKey(key string) string {
	if strings.Contains(key, "*") || len(key) <= 8 {
		return key
	}
	prefix := "sk-"
	if !strings.HasPrefix(key, prefix) {
		prefix = ""
	}
	return prefix + strings.Repeat("*", 8) + key[len(key)-4:]
}
