package jwt

import "github.com/golang-jwt/jwt"

const (
	// UserTypeRegistered marks tokens issued after a successful login or registration.
	UserTypeRegistered = "registered"

	// UserTypeGuest marks the guest markers handed to WebSocket sessions. They never
	// authenticate an HTTP request.
	UserTypeGuest = "guest"
)

// Payload is the claim set of a hallchat session token.
type Payload struct {
	jwt.StandardClaims

	// ID is the registered user's id as stored by the identity provider, or the guest id.
	ID string `json:"id"`

	// Username is informational; the chat re-reads the user record on connect.
	Username string `json:"username"`

	// UserType is UserTypeRegistered or UserTypeGuest.
	UserType string `json:"user_type"`
}
