// Package config loads the relay configuration from a TOML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath       = "config.toml"
	DefaultHTTPAddr         = ":8080"
	DefaultLedgerPath       = "data/processed_messages.txt"
	DefaultAttachmentDir    = "data/attachments"
	DefaultSubjectTag       = "inreach"
	DefaultInreachSender    = "no.reply.inreach@garmin.com"
	DefaultReplyURLHost     = "explore.garmin.com"
	DefaultSaildocsQuery    = "query@saildocs.com"
	DefaultSaildocsReply    = "query-reply@saildocs.com"
	DefaultMistralBaseURL   = "https://api.mistral.ai/v1"
	DefaultMistralModel     = "magistral-small-2506"
	DefaultChatChunkSize    = 150
	DefaultGribChunkSize    = 120
	DefaultChunkDelaySecs   = 5
	DefaultPollIntervalSecs = 60
	DefaultMatchAttempts    = 60
	DefaultMatchIntervalSec = 10
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Mailbox  MailboxConfig  `toml:"mailbox"`
	Relay    RelayConfig    `toml:"relay"`
	Saildocs SaildocsConfig `toml:"saildocs"`
	Mistral  MistralConfig  `toml:"mistral"`
	Inreach  InreachConfig  `toml:"inreach"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// MailboxConfig holds the IMAP/SMTP credentials for the single mailbox
// identity the relay serves.
type MailboxConfig struct {
	Address      string `toml:"address"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	IMAPHost     string `toml:"imap_host"`
	IMAPPort     int    `toml:"imap_port"`
	IMAPSecurity string `toml:"imap_security"`
	SMTPHost     string `toml:"smtp_host"`
	SMTPPort     int    `toml:"smtp_port"`
	SMTPSecurity string `toml:"smtp_security"`
}

type RelayConfig struct {
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	SubjectTag          string `toml:"subject_tag"`
	SenderAddress       string `toml:"sender_address"`
	LedgerPath          string `toml:"ledger_path"`
	AttachmentDir       string `toml:"attachment_dir"`
}

func (c RelayConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

type SaildocsConfig struct {
	QueryAddress        string `toml:"query_address"`
	ReplyAddress        string `toml:"reply_address"`
	MaxAttempts         int    `toml:"max_attempts"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

func (c SaildocsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

type MistralConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	MaxTokens      int    `toml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func (c MistralConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// InreachConfig controls the outbound chunked transport.
type InreachConfig struct {
	ChatChunkSize     int    `toml:"chat_chunk_size"`
	GribChunkSize     int    `toml:"grib_chunk_size"`
	ChunkDelaySeconds int    `toml:"chunk_delay_seconds"`
	ReplyURLHost      string `toml:"reply_url_host"`
}

func (c InreachConfig) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelaySeconds) * time.Second
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Mailbox: MailboxConfig{
			IMAPPort:     993,
			IMAPSecurity: "tls",
			SMTPPort:     587,
			SMTPSecurity: "starttls",
		},
		Relay: RelayConfig{
			PollIntervalSeconds: DefaultPollIntervalSecs,
			SubjectTag:          DefaultSubjectTag,
			SenderAddress:       DefaultInreachSender,
			LedgerPath:          DefaultLedgerPath,
			AttachmentDir:       DefaultAttachmentDir,
		},
		Saildocs: SaildocsConfig{
			QueryAddress:        DefaultSaildocsQuery,
			ReplyAddress:        DefaultSaildocsReply,
			MaxAttempts:         DefaultMatchAttempts,
			PollIntervalSeconds: DefaultMatchIntervalSec,
		},
		Mistral: MistralConfig{
			BaseURL:        DefaultMistralBaseURL,
			Model:          DefaultMistralModel,
			MaxTokens:      320,
			TimeoutSeconds: 30,
		},
		Inreach: InreachConfig{
			ChatChunkSize:     DefaultChatChunkSize,
			GribChunkSize:     DefaultGribChunkSize,
			ChunkDelaySeconds: DefaultChunkDelaySecs,
			ReplyURLHost:      DefaultReplyURLHost,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate reports configuration required at startup.
func (c Config) Validate() error {
	if c.Mailbox.Username == "" || c.Mailbox.Password == "" {
		return fmt.Errorf("mailbox username/password are required")
	}
	if c.Mailbox.IMAPHost == "" || c.Mailbox.SMTPHost == "" {
		return fmt.Errorf("mailbox imap_host/smtp_host are required")
	}
	if c.Mailbox.Address == "" {
		return fmt.Errorf("mailbox address is required")
	}
	return nil
}
