package identity

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Profile is the subset of the identity assertion the funnel uses.
type Profile struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Picture    string `json:"picture"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// DecodeCredential extracts the profile from the payload segment of a
// signed assertion without checking the signature.
func DecodeCredential(token string) (*Profile, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 || parts[1] == "" {
		return nil, fmt.Errorf("%w: expected three segments", ErrMalformedCredential)
	}

	segment := strings.NewReplacer("-", "+", "_", "/").Replace(parts[1])
	if rem := len(segment) % 4; rem != 0 {
		segment += strings.Repeat("=", 4-rem)
	}

	raw, err := base64.StdEncoding.DecodeString(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: payload is not utf-8", ErrMalformedCredential)
	}

	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}
	return &profile, nil
}
