package mail

// Config holds outbound mail settings. Without a Postmark server token
// messages are written to DevDir instead of being delivered.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
	DevDir               string `env:"MAIL_DEV_DIR" envDefault:"./tmp/mail"`
}
