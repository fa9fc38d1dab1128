package config

import "time"

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultListenAddr      = ":5000"
	DefaultShutdownTimeout = 10 * time.Second

	DefaultDBPath = "resources/data.db"

	DefaultSelectPrefix = "/sb_"
	DefaultTypingDelay  = 400 * time.Millisecond
	DefaultUploadDelay  = 500 * time.Millisecond

	// File id of the audio easter egg served by the audio command.
	DefaultAudioFileID = "CQADAgADvAMAArCqWEsSWuzVBRHRfRYE"
)

// DefaultCommands is the current command vocabulary. Earlier generations
// used /listbooks and /ktb_; renames are config edits, not code changes.
var DefaultCommands = CommandsConfig{
	Start:      "start",
	Books:      "books",
	Stats:      "stats",
	Entries:    "sayfa",
	MyBook:     "mybook",
	Checkpoint: "checkpoint",
	Audio:      "audio",
}

// DefaultMessages holds the default reply texts.
var DefaultMessages = MessagesConfig{
	Welcome:            "Welcome, %s",
	WelcomeBack:        "Welcome back, %s",
	UnknownBook:        "unknown book: %s",
	BookSet:            "`%s` is set as your default book",
	BookAlreadySet:     "`%s` is already your default book",
	MisunderstoodPages: "misunderstood your sayfa value: `%s`",
	NoCurrentBook:      "you haven't set your current book yet",
	PagesLogged:        "you've read %d sayfa of %s, Allah kabul etsin!",
	EmptyMonth:         "you have not read this month",
	NoBookGuidance:     "you haven't set your book yet (use /%s to see available books)",
	CurrentBook:        "your current book is `%s`",
	FirstCheckpoint:    "you created your first checkpoint: %s",
	NewCheckpoint:      "new checkpoint created: %s",
	UnnamedCheckpoint:  "no name",
	Misunderstood:      "misunderstood: %s",
	AudioCaption:       "Hicranda gonlum",
}
