package mail_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camarasaas/portal/pkg/mail"
	"github.com/camarasaas/portal/pkg/tenant"
	"github.com/camarasaas/portal/pkg/validator"
)

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	valid := mail.Message{To: "admin@cmx.gov", Subject: "Oi", Text: "corpo"}
	assert.NoError(t, valid.Validate())

	err := mail.Message{To: "not-an-email"}.Validate()
	require.Error(t, err)
	errs := validator.ExtractValidationErrors(err)
	assert.ElementsMatch(t, []string{"to", "subject", "body"}, errs.Fields())
}

func TestNewSender(t *testing.T) {
	t.Parallel()

	t.Run("dev sender without token", func(t *testing.T) {
		t.Parallel()

		s, err := mail.NewSender(mail.Config{DevDir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &mail.DevSender{}, s)
	})

	t.Run("dev sender requires a directory", func(t *testing.T) {
		t.Parallel()

		_, err := mail.NewSender(mail.Config{})
		assert.ErrorIs(t, err, mail.ErrInvalidConfig)
	})

	t.Run("postmark sender with token", func(t *testing.T) {
		t.Parallel()

		s, err := mail.NewSender(mail.Config{
			PostmarkServerToken: "server-token",
			SenderEmail:         "no-reply@portal.gov.br",
			SupportEmail:        "suporte@portal.gov.br",
		})
		require.NoError(t, err)
		assert.IsType(t, &mail.PostmarkSender{}, s)
	})

	t.Run("postmark sender rejects bad addresses", func(t *testing.T) {
		t.Parallel()

		_, err := mail.NewPostmarkSender(mail.Config{PostmarkServerToken: "x", SenderEmail: "nope", SupportEmail: "suporte@portal.gov.br"})
		assert.ErrorIs(t, err, mail.ErrInvalidConfig)

		_, err = mail.NewPostmarkSender(mail.Config{SenderEmail: "a@b.c", SupportEmail: "a@b.c"})
		assert.ErrorIs(t, err, mail.ErrInvalidConfig)
	})

	t.Run("postmark sender validates before sending", func(t *testing.T) {
		t.Parallel()

		s, err := mail.NewPostmarkSender(mail.Config{PostmarkServerToken: "x", SenderEmail: "a@b.com", SupportEmail: "c@d.com"})
		require.NoError(t, err)
		err = s.Send(context.Background(), mail.Message{})
		assert.True(t, validator.IsValidationError(err))
	})
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "outbox")
	s := mail.NewDevSender(dir)

	msg := mail.Message{To: "admin@cmx.gov", Subject: "Convite", HTML: "<p>oi</p>", Text: "oi", Tag: "Invite Test"}
	require.NoError(t, s.Send(context.Background(), msg))
	require.NoError(t, s.Send(context.Background(), msg))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 6, "two messages with html, text and json each")

	var meta map[string]string
	for _, e := range entries {
		assert.Contains(t, e.Name(), "invite_test")
		if strings.HasSuffix(e.Name(), ".json") && meta == nil {
			raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &meta))
		}
	}
	assert.Equal(t, "admin@cmx.gov", meta["to"])
	assert.Equal(t, "Convite", meta["subject"])

	err = s.Send(context.Background(), mail.Message{To: "bad"})
	assert.True(t, validator.IsValidationError(err))
}

func TestInvitationMessage(t *testing.T) {
	t.Parallel()

	cmx := &tenant.Tenant{Name: "Câmara <X>", RoutingKey: "cmx", AdminEmail: "admin@cmx.gov"}
	link := "https://cmx.portal.gov.br/password/reset?token=abc&email=admin%40cmx.gov"

	msg, err := mail.InvitationMessage(context.Background(), cmx, link)
	require.NoError(t, err)
	require.NoError(t, msg.Validate())

	assert.Equal(t, "admin@cmx.gov", msg.To)
	assert.Equal(t, mail.InvitationTag, msg.Tag)
	assert.Contains(t, msg.Subject, "Câmara <X>")
	assert.Contains(t, msg.Text, link)
	assert.Contains(t, msg.HTML, "Câmara &lt;X&gt;")
	assert.Contains(t, msg.HTML, "https://cmx.portal.gov.br/password/reset?token=abc&amp;email=admin%40cmx.gov")
}

func TestPasswordResetMessage(t *testing.T) {
	t.Parallel()

	cmx := &tenant.Tenant{Name: "Câmara X", RoutingKey: "cmx"}
	link := "https://cmx.portal.gov.br/password/reset?token=abc&email=ana%40cmx.gov"

	msg, err := mail.PasswordResetMessage(context.Background(), cmx, "ana@cmx.gov", link, time.Hour)
	require.NoError(t, err)
	require.NoError(t, msg.Validate())

	assert.Equal(t, "ana@cmx.gov", msg.To)
	assert.Equal(t, mail.PasswordResetTag, msg.Tag)
	assert.Contains(t, msg.Text, "60 minutos")
	assert.Contains(t, msg.Text, link)
	assert.Contains(t, msg.HTML, "token=abc&amp;email=ana%40cmx.gov")
}
