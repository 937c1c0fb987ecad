package models

import "strings"

// CommandType enumerates supported chat command categories.
type CommandType string

const (
	CommandMilk    CommandType = "milk"
	CommandTotal   CommandType = "total"
	CommandReport  CommandType = "report"
	CommandHelp    CommandType = "help"
	CommandUnknown CommandType = "unknown"
)

// Command represents a parsed instruction extracted from a chat message.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
// Only the command word is case-insensitive; farm ids keep their case.
func ParseCommand(message string) Command {
	tokens := strings.Fields(message)
	cmd := Command{Raw: message}

	if len(tokens) == 0 {
		cmd.Type = CommandUnknown
		return cmd
	}

	head := strings.TrimPrefix(strings.ToLower(tokens[0]), "/")
	switch head {
	case string(CommandMilk):
		cmd.Type = CommandMilk
	case string(CommandTotal):
		cmd.Type = CommandTotal
	case string(CommandReport):
		cmd.Type = CommandReport
	case string(CommandHelp):
		cmd.Type = CommandHelp
	default:
		cmd.Type = CommandUnknown
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
