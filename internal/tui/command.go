package tui

import "strings"

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// Commands accepted in : mode. Aliases map to their canonical name.
var commandAliases = map[string]string{
	"q":    "quit",
	"quit": "quit",
	"h":    "help",
	"help": "help",
	"n":    "new",
	"new":  "new",
	"pair": "pair",
}

// ParseCommand parses a command string (without the leading ':'). Known
// aliases are expanded; unknown names are returned as typed.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), ":"))
	name, args, _ := strings.Cut(input, " ")
	cmd := Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}
	if canonical, ok := commandAliases[cmd.Name]; ok {
		cmd.Name = canonical
	}
	return cmd
}

// Known reports whether the command name is recognised.
func (c Command) Known() bool {
	_, ok := commandAliases[c.Name]
	return ok
}
