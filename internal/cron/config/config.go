package cron_config

type Config struct {
	// Mailbox poll, every five minutes
	CronSchedulePoll string `env:"POLL_SCHEDULE" envDefault:"@every 300s"`
	MaxResults       int    `env:"POLL_MAX_RESULTS" envDefault:"10"`
	RunOnStart       bool   `env:"POLL_RUN_ON_START" envDefault:"true"`
	// Enabled starts the poller next to the HTTP server
	Enabled bool `env:"POLL_ENABLED" envDefault:"false"`
}
