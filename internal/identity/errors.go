package identity

import "errors"

var (
	// ErrMissingClientID is returned by Start when no client identifier is configured.
	ErrMissingClientID = errors.New("identity: client id not configured")
	// ErrScriptLoad reports that the sign-in script could not be loaded.
	ErrScriptLoad = errors.New("identity: sign-in script failed to load")
	// ErrMalformedCredential reports an assertion that could not be decoded.
	ErrMalformedCredential = errors.New("identity: malformed credential")
	// ErrInvalidCredential reports an assertion that failed signature or claim checks.
	ErrInvalidCredential = errors.New("identity: credential rejected")
	// ErrTimedOut is attached to TimedOut events.
	ErrTimedOut = errors.New("identity: sign-in timed out")
	// ErrAlreadyStarted is returned when Start is called twice on one bridge.
	ErrAlreadyStarted = errors.New("identity: bridge already started")
)
