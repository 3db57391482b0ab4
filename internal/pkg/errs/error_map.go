package errs

import "net/http"

// errorMap holds the template for every known code. A zero Status means HTTP 200 with the
// code carried in the JSON envelope, matching how the web client reads responses.
var errorMap = map[int]CustomError{
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	ErrDuplicateConnection:      {Code: ErrDuplicateConnection, Message: "Connection is already open.", Status: http.StatusConflict},
	ErrServerShuttingDown:       {Code: ErrServerShuttingDown, Message: "Chat is restarting. Please reconnect shortly.", Status: http.StatusServiceUnavailable},
	ErrMessageContentTooLong:    {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d bytes)."},
	ErrMessageNotDelivered:      {Code: ErrMessageNotDelivered, Message: "Message could not be delivered. Please try again."},
	ErrMessageRateLimited:       {Code: ErrMessageRateLimited, Message: "You are sending messages too quickly."},
	ErrHistoryExportUnavailable: {Code: ErrHistoryExportUnavailable, Message: "History export is not enabled.", Status: http.StatusNotImplemented},
	ErrHistoryExportFailed:      {Code: ErrHistoryExportFailed, Message: "History export failed. Please try again."},

	ErrPowChallengeRequired: {Code: ErrPowChallengeRequired, Message: "Verification required. Please try again."},
	ErrPowChallengeInvalid:  {Code: ErrPowChallengeInvalid, Message: "Verification failed. Please try again."},
	ErrAlreadyLoggedIn:      {Code: ErrAlreadyLoggedIn, Message: "You are already signed in."},
	ErrInvalidUsername:      {Code: ErrInvalidUsername, Message: "Invalid username."},
	ErrInvalidPassword:      {Code: ErrInvalidPassword, Message: "Invalid password."},
	ErrUserAlreadyExists:    {Code: ErrUserAlreadyExists, Message: "Username is already taken."},
	ErrInvalidCredentials:   {Code: ErrInvalidCredentials, Message: "Incorrect username or password."},
	ErrUnauthorized:         {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
