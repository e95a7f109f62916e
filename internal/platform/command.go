package platform

// OptionType is the value type of a command option.
type OptionType int

const (
	OptionString OptionType = iota + 1
	OptionRole
)

// CommandOption is one argument of a slash command.
type CommandOption struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
}

// Command is a slash command definition.
type Command struct {
	Name        string
	Description string
	Options     []CommandOption
	// AdminOnly hides the command from members without administrator rights.
	AdminOnly bool
}
