// Package mail sends transactional messages such as tenant invitations.
//
// Sender is implemented by PostmarkSender for production delivery and by
// DevSender, which writes every message to a directory for inspection.
// NewSender picks Postmark when a server token is configured.
//
//	sender, err := mail.NewSender(cfg)
//	msg, err := mail.InvitationMessage(ctx, t, link)
//	err = sender.Send(ctx, msg)
package mail
