package student

import "regexp"

var usernameRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// validateUsername checks presence and shape of a requested username. Length
// bounds are left to the identity provider.
func validateUsername(username string) error {
	if username == "" {
		return ErrMissingUsername
	}
	if !usernameRegexp.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}
