package reconcile

import (
	"strings"

	"github.com/platinummonkey/grafana-sync/pkg/auth0"
	"github.com/platinummonkey/grafana-sync/pkg/grafana"
)

// IsMalformed reports whether a Grafana user needs repair: its email is empty, has
// no @, or equals its login.
func IsMalformed(user grafana.User) bool {
	return user.Email == "" || !strings.Contains(user.Email, "@") || user.Email == user.Login
}

// FilterMalformed returns the malformed users in listing order
func FilterMalformed(users []grafana.User) []grafana.User {
	var malformed []grafana.User
	for _, user := range users {
		if IsMalformed(user) {
			malformed = append(malformed, user)
		}
	}
	return malformed
}

// LookupQuery builds the Auth0 search for user: by exact email when the email
// contains @, otherwise by login as nickname.
func LookupQuery(user grafana.User) string {
	if strings.Contains(user.Email, "@") {
		return auth0.EmailQuery(user.Email)
	}
	return auth0.NicknameQuery(user.Login)
}
