package config

import "time"

type AppConfig struct {
	APIPort        string   `env:"PORT" envDefault:"8000"`
	APIKey         string   `env:"API_KEY"`
	TestMode       bool     `env:"TEST_MODE" envDefault:"false"`
	ClassifierMode string   `env:"CLASSIFIER_MODE" envDefault:"llm"`
	Sinks          []string `env:"SINKS" envSeparator:"," envDefault:"notion"`
	RabbitMQURL    string   `env:"RABBITMQ_URL"`
}

type OpenAIConfig struct {
	ApiKey           string        `env:"OPENAI_API_KEY"`
	Model            string        `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	BaseURL          string        `env:"OPENAI_BASE_URL"`
	Timeout          time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	SummaryMaxTokens int           `env:"SUMMARY_MAX_TOKENS" envDefault:"200"`
}

type NotionConfig struct {
	Url        string        `env:"NOTION_URL" envDefault:"https://api.notion.com"`
	ApiKey     string        `env:"NOTION_KEY"`
	DatabaseID string        `env:"NOTION_DATABASE_ID"`
	Version    string        `env:"NOTION_VERSION" envDefault:"2022-06-28"`
	Timeout    time.Duration `env:"NOTION_TIMEOUT" envDefault:"30s"`
}

type MailConfig struct {
	Source     string `env:"MAIL_SOURCE" envDefault:"imap"`
	Address    string `env:"EMAIL_ADDRESS"`
	Password   string `env:"EMAIL_PASSWORD"`
	ImapServer string `env:"IMAP_SERVER" envDefault:"imap.gmail.com"`
	ImapPort   int    `env:"IMAP_PORT" envDefault:"993"`
	ImapTLS    bool   `env:"IMAP_TLS" envDefault:"true"`
	Mailbox    string `env:"IMAP_MAILBOX" envDefault:"INBOX"`
}

type GmailConfig struct {
	CredentialsFile string `env:"GMAIL_CREDENTIALS_FILE" envDefault:"credentials.json"`
	TokenDir        string `env:"GMAIL_TOKEN_DIR" envDefault:"~/.config/maildigest/credentials"`
	TokenPassword   string `env:"GMAIL_TOKEN_PASSWORD" envDefault:"maildigest-file-key"`
	RedirectPort    int    `env:"GMAIL_REDIRECT_PORT" envDefault:"8765"`
	Endpoint        string `env:"GMAIL_ENDPOINT"`
}

type DatabaseConfig struct {
	Host            string `env:"POSTGRES_HOST"`
	Port            string `env:"POSTGRES_PORT" envDefault:"5432"`
	User            string `env:"POSTGRES_USER"`
	DBName          string `env:"POSTGRES_DB_NAME"`
	Password        string `env:"POSTGRES_PASSWORD"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN" envDefault:"10"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN" envDefault:"5"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
}

// Enabled reports whether the result archive is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c != nil && c.Host != ""
}
