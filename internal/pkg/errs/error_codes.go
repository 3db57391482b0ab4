/*
Package errs provides the client-facing error type and the application error code table.

Codes are grouped by range so clients can branch on them without parsing messages:
1xxx request handling, 2xxx chat feed, 3xxx identity and security, 5xxx internal.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body is not valid JSON for the endpoint.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the caller's IP exceeded its request budget.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Chat Feed Errors
const (
	// ErrDuplicateConnection indicates that a connection id collided with a live connection.
	ErrDuplicateConnection = 2101

	// ErrServerShuttingDown indicates that the chat is no longer accepting connections.
	ErrServerShuttingDown = 2102

	// ErrMessageContentTooLong indicates that the message text exceeded the maximum length.
	ErrMessageContentTooLong = 2201

	// ErrMessageNotDelivered indicates that the message could not be stored and was not broadcast.
	ErrMessageNotDelivered = 2202

	// ErrMessageRateLimited indicates that the connection is sending faster than allowed.
	ErrMessageRateLimited = 2203

	// ErrHistoryExportUnavailable indicates that no archive storage is configured.
	ErrHistoryExportUnavailable = 2301

	// ErrHistoryExportFailed indicates that writing the archive failed.
	ErrHistoryExportFailed = 2302
)

// 3xxx: Identity, Session, and Security Errors
const (
	// ErrPowChallengeRequired indicates the client must complete a Proof-of-Work challenge first.
	ErrPowChallengeRequired = 3001

	// ErrPowChallengeInvalid indicates that the PoW proof is invalid, expired or already used.
	ErrPowChallengeInvalid = 3002

	// ErrAlreadyLoggedIn indicates that a signed-in caller attempted to register or log in again.
	ErrAlreadyLoggedIn = 3101

	// ErrInvalidUsername indicates that the username does not match the allowed pattern.
	ErrInvalidUsername = 3102

	// ErrInvalidPassword indicates that the password length is outside the allowed range.
	ErrInvalidPassword = 3103

	// ErrUserAlreadyExists indicates that the username is taken.
	ErrUserAlreadyExists = 3104

	// ErrInvalidCredentials indicates a failed username/password verification.
	ErrInvalidCredentials = 3105

	// ErrUnauthorized indicates the endpoint requires a registered identity.
	ErrUnauthorized = 3106
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified server error.
	ErrUnknown = 5000
)
