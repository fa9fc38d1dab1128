package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents a command handler together with the pattern
// and match type it is registered under.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands initializes and returns a map of all bot commands,
// keyed by their slash form. Command names and the book-select prefix come
// from configuration; the implicit numeric command and the fallback are
// handled by the default handler (see NewDefaultHandler).
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	commands := deps.Config.Bot.Commands
	handlers := make(map[string]RegisteredHandler)

	command := func(pattern string, handler tgbot.HandlerFunc) RegisteredHandler {
		return RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     pattern,
			Handler:     handler,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
		}
	}

	handlers["/"+commands.Start] = command(commands.Start, NewStartHandler(deps))
	handlers["/"+commands.Books] = command(commands.Books, NewBooksHandler(deps))
	handlers["/"+commands.Stats] = command(commands.Stats, NewStatsHandler(deps))
	handlers["/"+commands.Entries] = command(commands.Entries, NewEntriesHandler(deps))
	handlers["/"+commands.MyBook] = command(commands.MyBook, NewMyBookHandler(deps))
	handlers["/"+commands.Checkpoint] = command(commands.Checkpoint, NewCheckpointHandler(deps))
	handlers["/"+commands.Audio] = command(commands.Audio, NewAudioHandler(deps))

	// Book selection arrives both as a text command and as callback data,
	// both shaped <prefix><book-id>.
	prefix := deps.Config.Bot.SelectPrefix
	handlers[prefix+"text"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     prefix,
		Handler:     NewSetBookMessageHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}
	handlers[prefix+"callback"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     prefix,
		Handler:     NewSetBookCallbackHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}

	return handlers
}
