// Package model defines the data structures used throughout the application.
package model

// User is a person who logged in through the identity provider at least once.
//
// ID is our own xid, stable across logins and independent of the provider.
// OAuth is the provider's subject id. Email is stored lower-cased and is
// unique in the store; it may be empty when the provider withholds it.
type User struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	OAuth    string `json:"oauth"`
	Picture  string `json:"picture,omitempty"`
	DeviceID string `json:"deviceId,omitempty"`
}
