// Package template renders the plain-text mail bodies sent to account holders.
//
// Supported placeholders:
//
//	{{account.email}}, {{password}}, {{issued_at}}
package template

import (
	"strings"
	"time"
)

// DefaultResetBody is the password reset mail body.
const DefaultResetBody = "Your password has been reset.\n\n" +
	"Your new password is: {{password}}\n\n" +
	"Please sign in as {{account.email}} and change it as soon as possible.\n"

// ResetData fills a password reset body.
type ResetData struct {
	Email    string
	Password string
	IssuedAt time.Time
}

// RenderBody replaces the known placeholders in body. Unknown placeholders are
// left as written.
func RenderBody(body string, data ResetData) string {
	issuedAt := ""
	if !data.IssuedAt.IsZero() {
		issuedAt = data.IssuedAt.UTC().Format(time.RFC3339)
	}
	return strings.NewReplacer(
		"{{account.email}}", data.Email,
		"{{password}}", data.Password,
		"{{issued_at}}", issuedAt,
	).Replace(body)
}
