// Package config manages application configuration from default values,
// config.yaml, and BOT_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config defines the application configuration for all components of the
// page counter bot.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bot       BotConfig       `mapstructure:"bot"`
	Catalog   []CatalogBook   `mapstructure:"catalog"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot identity and webhook registration settings.
type TelegramConfig struct {
	Token      string `mapstructure:"token"       validate:"required"`
	WebhookURL string `mapstructure:"webhook_url" validate:"required,url"`
}

// ServerConfig holds the inbound HTTP server settings.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"      validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s,max=1m"`
}

// DatabaseConfig holds the SQLite database settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// BotConfig groups the command vocabulary, reply texts, and UX pacing. The
// command set has been renamed before (/listbooks → /books, /ktb_ → /sb_),
// so none of it is hard-coded.
type BotConfig struct {
	Commands CommandsConfig `mapstructure:"commands"`
	Messages MessagesConfig `mapstructure:"messages"`

	// SelectPrefix prefixes book ids in selection callback payloads and in
	// the equivalent text command.
	SelectPrefix string `mapstructure:"select_prefix" validate:"required,startswith=/"`

	// TypingDelay and UploadDelay pace the fallback and audio replies.
	// Zero disables the pause; correctness does not depend on them.
	TypingDelay time.Duration `mapstructure:"typing_delay" validate:"max=5s"`
	UploadDelay time.Duration `mapstructure:"upload_delay" validate:"max=5s"`

	// AudioFileID is the Telegram file id of the pre-uploaded audio
	// attachment served by the audio command.
	AudioFileID string `mapstructure:"audio_file_id"`
}

// CommandsConfig names the bot commands, without the leading slash.
type CommandsConfig struct {
	Start      string `mapstructure:"start"      validate:"required"`
	Books      string `mapstructure:"books"      validate:"required"`
	Stats      string `mapstructure:"stats"      validate:"required"`
	Entries    string `mapstructure:"entries"    validate:"required"`
	MyBook     string `mapstructure:"mybook"     validate:"required"`
	Checkpoint string `mapstructure:"checkpoint" validate:"required"`
	Audio      string `mapstructure:"audio"      validate:"required"`
}

// MessagesConfig holds every user-facing reply text. Verb substitutions use
// fmt format specifiers.
type MessagesConfig struct {
	Welcome            string `mapstructure:"welcome"              validate:"required"`
	WelcomeBack        string `mapstructure:"welcome_back"         validate:"required"`
	UnknownBook        string `mapstructure:"unknown_book"         validate:"required"`
	BookSet            string `mapstructure:"book_set"             validate:"required"`
	BookAlreadySet     string `mapstructure:"book_already_set"     validate:"required"`
	MisunderstoodPages string `mapstructure:"misunderstood_pages"  validate:"required"`
	NoCurrentBook      string `mapstructure:"no_current_book"      validate:"required"`
	PagesLogged        string `mapstructure:"pages_logged"         validate:"required"`
	EmptyMonth         string `mapstructure:"empty_month"          validate:"required"`
	NoBookGuidance     string `mapstructure:"no_book_guidance"     validate:"required"`
	CurrentBook        string `mapstructure:"current_book"         validate:"required"`
	FirstCheckpoint    string `mapstructure:"first_checkpoint"     validate:"required"`
	NewCheckpoint      string `mapstructure:"new_checkpoint"       validate:"required"`
	UnnamedCheckpoint  string `mapstructure:"unnamed_checkpoint"   validate:"required"`
	Misunderstood      string `mapstructure:"misunderstood"        validate:"required"`
	AudioCaption       string `mapstructure:"audio_caption"        validate:"required"`
}

// CatalogBook is one book of the configured catalog seed.
type CatalogBook struct {
	Author string `mapstructure:"author" validate:"required"`
	Title  string `mapstructure:"title"  validate:"required"`
	Year   int    `mapstructure:"year"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a scheduled task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Validate checks the configuration against the struct validation tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
