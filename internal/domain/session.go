package domain

// SessionState tracks where the process stands in the login lifecycle.
type SessionState string

const (
	SessionUnauthenticated SessionState = "unauthenticated"
	SessionAwaitingScan    SessionState = "awaiting_scan"
	SessionAuthenticated   SessionState = "authenticated"
	SessionExpired         SessionState = "expired"
)

// QR poll status codes as reported by the platform.
const (
	QRPollConfirmed int64 = 0
	QRPollExpired   int64 = 86038
)

// QRChallenge is one scannable login challenge: the URL the operator scans
// and the opaque key used to poll for confirmation.
type QRChallenge struct {
	URL     string
	PollKey string
}

// QRPollResult is the outcome of a single poll against an open challenge.
// Credential is only populated when Code is QRPollConfirmed.
type QRPollResult struct {
	Code       int64
	Message    string
	Credential string
}
