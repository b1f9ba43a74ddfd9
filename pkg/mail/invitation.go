package mail

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/camarasaas/portal/pkg/tenant"
)

// InvitationTag labels invitation messages in the provider dashboard.
const InvitationTag = "tenant-invitation"

// InvitationMessage composes the invitation sent to a new tenant's
// administrator. link is the password setup URL on the tenant's own domain.
func InvitationMessage(ctx context.Context, t *tenant.Tenant, link string) (Message, error) {
	html, err := Render(ctx, invitationHTML(t.Name, link))
	if err != nil {
		return Message{}, fmt.Errorf("render invitation: %w", err)
	}

	return Message{
		To:      t.AdminEmail,
		Subject: "Bem-vindo ao portal da " + t.Name,
		HTML:    html,
		Text: fmt.Sprintf(
			"O portal da %s foi criado.\n\nDefina sua senha de administrador em:\n%s\n",
			t.Name, link,
		),
		Tag: InvitationTag,
	}, nil
}

func invitationHTML(name, link string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html><body><h1>%s</h1><p>O portal da %s foi criado.</p>`+
				`<p><a href="%s">Definir senha de administrador</a></p></body></html>`,
			templ.EscapeString(name), templ.EscapeString(name), templ.EscapeString(string(templ.URL(link))),
		)
		return err
	})
}

// Render renders a templ component to a string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
