package constants

const (
	// ContextKeyUserID is the session and gin context key for the
	// authenticated user's ID.
	ContextKeyUserID = "user_id"
	// ContextKeyUser is the gin context key for the loaded user record.
	ContextKeyUser = "user"

	// SessionCookieName is the session cookie issued on login.
	SessionCookieName = "taskdesk_session"

	MinPasswordLength = 8

	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxImportErrors caps the row-level error strings returned by a CSV
	// import.
	MaxImportErrors = 20
)
