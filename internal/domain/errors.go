package domain

import "errors"

var (
	// ErrNotAuthenticated means the platform answered the liveness probe
	// well-formed with a non-zero code; the session is expired or absent.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrQRChallengeExpired means the platform invalidated the login
	// challenge before it was confirmed; a new challenge must be issued.
	ErrQRChallengeExpired = errors.New("qr challenge expired")
	// ErrNoCredential means no credential has ever been persisted.
	ErrNoCredential = errors.New("no stored credential")
	// ErrUnsupportedItemID means an item identifier does not use the BV
	// prefix this tool knows how to turn into a watch URL.
	ErrUnsupportedItemID = errors.New("unsupported item id format")
)
