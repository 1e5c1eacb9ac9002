// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// PasswordResetData holds data for the password reset email.
type PasswordResetData struct {
	SiteName  string
	ResetLink string
	ExpiresIn string // e.g., "1 hour"
}

// BuildPasswordResetEmail creates a password reset email with both HTML and text bodies.
func BuildPasswordResetEmail(data PasswordResetData) Email {
	return Email{
		To:       "", // Set by caller
		Subject:  fmt.Sprintf("Reset your %s password", data.SiteName),
		TextBody: buildResetText(data),
		HTMLBody: buildResetHTML(data),
	}
}

func buildResetText(data PasswordResetData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Someone asked to reset the password for your %s account.\n\n", data.SiteName)
	buf.WriteString("Open this link to choose a new password:\n")
	buf.WriteString(data.ResetLink + "\n\n")
	fmt.Fprintf(&buf, "The link expires in %s.\n\n", data.ExpiresIn)
	buf.WriteString("If you did not ask for this, you can ignore this email; your password stays the same.\n")
	return buf.String()
}

var resetHTML = template.Must(template.New("reset").Parse(resetHTMLTemplate))

func buildResetHTML(data PasswordResetData) string {
	var buf bytes.Buffer
	_ = resetHTML.Execute(&buf, data)
	return buf.String()
}

const resetHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Password Reset</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #fdf2f2;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 28px 32px; text-align: center; border-bottom: 1px solid #f3d4d4;">
              <h1 style="margin: 0; font-size: 22px; color: #c0392b;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px; font-size: 15px; color: #374151; line-height: 1.5;">
              <p style="margin: 0 0 24px;">Someone asked to reset the password for your account.</p>
              <p style="margin: 0 0 24px; text-align: center;">
                <a href="{{.ResetLink}}" style="display: inline-block; padding: 12px 28px; background-color: #c0392b; color: #ffffff; text-decoration: none; border-radius: 6px;">Choose a new password</a>
              </p>
              <p style="margin: 0; font-size: 13px; color: #9ca3af; text-align: center;">The link expires in {{.ExpiresIn}}.</p>
            </td>
          </tr>
          <tr>
            <td style="padding: 20px 32px; background-color: #fafafa; font-size: 12px; color: #9ca3af; text-align: center;">
              If you did not ask for this, you can ignore this email.
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
