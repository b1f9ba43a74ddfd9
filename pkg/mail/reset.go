package mail

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/camarasaas/portal/pkg/tenant"
)

const PasswordResetTag = "password-reset"

// PasswordResetMessage composes the reset email for a tenant user. ttl is
// shown to the user as the link lifetime.
func PasswordResetMessage(ctx context.Context, t *tenant.Tenant, email, link string, ttl time.Duration) (Message, error) {
	minutes := int(ttl.Minutes())
	html, err := Render(ctx, passwordResetHTML(t.Name, link, minutes))
	if err != nil {
		return Message{}, fmt.Errorf("render password reset: %w", err)
	}

	return Message{
		To:      email,
		Subject: "Redefinição de senha - " + t.Name,
		HTML:    html,
		Text: fmt.Sprintf(
			"Recebemos um pedido de redefinição de senha no portal da %s.\n\n"+
				"Use o link abaixo em até %d minutos:\n%s\n\nSe você não fez o pedido, ignore esta mensagem.\n",
			t.Name, minutes, link,
		),
		Tag: PasswordResetTag,
	}, nil
}

func passwordResetHTML(name, link string, minutes int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html><body><h1>%s</h1><p>Recebemos um pedido de redefinição de senha.</p>`+
				`<p><a href="%s">Redefinir senha</a></p><p>O link expira em %d minutos.</p></body></html>`,
			templ.EscapeString(name), templ.EscapeString(string(templ.URL(link))), minutes,
		)
		return err
	})
}
