package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Load loads and validates configuration from, in order of precedence:
// BOT_* environment variables, the config file at path, default values.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; defaults plus env have to suffice then.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Registered empty so AutomaticEnv can bind BOT_TELEGRAM_* even when
	// the config file is absent.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.webhook_url", "")

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultLogJSON)

	v.SetDefault("server.listen_addr", DefaultListenAddr)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("bot.select_prefix", DefaultSelectPrefix)
	v.SetDefault("bot.typing_delay", DefaultTypingDelay)
	v.SetDefault("bot.upload_delay", DefaultUploadDelay)
	v.SetDefault("bot.audio_file_id", DefaultAudioFileID)

	v.SetDefault("bot.commands.start", DefaultCommands.Start)
	v.SetDefault("bot.commands.books", DefaultCommands.Books)
	v.SetDefault("bot.commands.stats", DefaultCommands.Stats)
	v.SetDefault("bot.commands.entries", DefaultCommands.Entries)
	v.SetDefault("bot.commands.mybook", DefaultCommands.MyBook)
	v.SetDefault("bot.commands.checkpoint", DefaultCommands.Checkpoint)
	v.SetDefault("bot.commands.audio", DefaultCommands.Audio)

	v.SetDefault("bot.messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("bot.messages.welcome_back", DefaultMessages.WelcomeBack)
	v.SetDefault("bot.messages.unknown_book", DefaultMessages.UnknownBook)
	v.SetDefault("bot.messages.book_set", DefaultMessages.BookSet)
	v.SetDefault("bot.messages.book_already_set", DefaultMessages.BookAlreadySet)
	v.SetDefault("bot.messages.misunderstood_pages", DefaultMessages.MisunderstoodPages)
	v.SetDefault("bot.messages.no_current_book", DefaultMessages.NoCurrentBook)
	v.SetDefault("bot.messages.pages_logged", DefaultMessages.PagesLogged)
	v.SetDefault("bot.messages.empty_month", DefaultMessages.EmptyMonth)
	v.SetDefault("bot.messages.no_book_guidance", DefaultMessages.NoBookGuidance)
	v.SetDefault("bot.messages.current_book", DefaultMessages.CurrentBook)
	v.SetDefault("bot.messages.first_checkpoint", DefaultMessages.FirstCheckpoint)
	v.SetDefault("bot.messages.new_checkpoint", DefaultMessages.NewCheckpoint)
	v.SetDefault("bot.messages.unnamed_checkpoint", DefaultMessages.UnnamedCheckpoint)
	v.SetDefault("bot.messages.misunderstood", DefaultMessages.Misunderstood)
	v.SetDefault("bot.messages.audio_caption", DefaultMessages.AudioCaption)
}
