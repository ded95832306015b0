// Package email sends party invitations through Resend.
package email

import (
	"fmt"

	"github.com/resendlabs/resend-go"
)

// Client wraps the Resend API. A nil *Client is a valid no-op sender, used
// when email is disabled by configuration.
type Client struct {
	resend    *resend.Client
	fromEmail string
	fromName  string
}

// NewClient creates the email client.
func NewClient(apiKey, fromEmail, fromName string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	return &Client{
		resend:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// SendPartyInvite emails one player an invitation to join an adventure.
func (c *Client) SendPartyInvite(toEmail, adventureTitle, joinURL string) error {
	if c == nil {
		return nil
	}

	subject := fmt.Sprintf("You're invited to join %s", adventureTitle)
	html := fmt.Sprintf(`<p>A party is forming for <strong>%s</strong>.</p>
<p><a href="%s">Join the adventure</a> and create your character before the game master begins.</p>`,
		adventureTitle, joinURL)

	request := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    html,
	}

	if _, err := c.resend.Emails.Send(request); err != nil {
		return fmt.Errorf("failed to send party invite: %w", err)
	}

	return nil
}
