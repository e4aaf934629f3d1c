package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// State describes the usability of a session credential.
type State int

const (
	// StateNoCredential means no credential has ever been stored.
	StateNoCredential State = iota

	// StateValid means the access token is present and not expired.
	StateValid

	// StateExpiredRefreshable means the access token is expired or missing
	// but a refresh token is available.
	StateExpiredRefreshable

	// StateExpiredTerminal means the access token is expired and there is
	// no refresh token; only a new interactive grant can recover.
	StateExpiredTerminal

	// StateAwaitingGrant means an interactive authorization-code grant is
	// required before any remote operation can proceed.
	StateAwaitingGrant
)

func (s State) String() string {
	switch s {
	case StateNoCredential:
		return "no-credential"
	case StateValid:
		return "valid"
	case StateExpiredRefreshable:
		return "expired-refreshable"
	case StateExpiredTerminal:
		return "expired-terminal"
	case StateAwaitingGrant:
		return "awaiting-grant"
	default:
		return "unknown"
	}
}

// expirySkew is subtracted from the token expiry so a token about to expire
// mid-call is treated as expired already.
const expirySkew = 30 * time.Second

// Classify determines the state of a stored credential at the given time.
// A credential is usable iff its access token is present and not expired,
// or it is expired but carries a refresh token.
func Classify(tok *oauth2.Token, now time.Time) State {
	if tok == nil {
		return StateNoCredential
	}
	if tok.AccessToken != "" && (tok.Expiry.IsZero() || now.Add(expirySkew).Before(tok.Expiry)) {
		return StateValid
	}
	if tok.RefreshToken != "" {
		return StateExpiredRefreshable
	}
	if tok.AccessToken == "" {
		return StateNoCredential
	}
	return StateExpiredTerminal
}
