package platform

// ButtonStyle selects the colour of a button.
type ButtonStyle int

const (
	StylePrimary ButtonStyle = iota + 1
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// Component is an interactive control inside a Row.
type Component interface {
	component()
}

// Row is a horizontal group of up to five components.
type Row []Component

// Button is a clickable control.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
	Disabled bool
}

// SelectMenu is a single-choice dropdown.
type SelectMenu struct {
	CustomID    string
	Placeholder string
	Options     []string
	Disabled    bool
}

// TextInput is a modal text field.
type TextInput struct {
	CustomID  string
	Label     string
	Paragraph bool
	Required  bool
	MaxLength int
}

func (Button) component()     {}
func (SelectMenu) component() {}
func (TextInput) component()  {}

// Modal is a popup form of text inputs.
type Modal struct {
	CustomID string
	Title    string
	Inputs   []TextInput
}

// DisableAll returns a copy of rows with every control disabled.
func DisableAll(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		cp := make(Row, 0, len(row))
		for _, c := range row {
			switch v := c.(type) {
			case Button:
				v.Disabled = true
				cp = append(cp, v)
			case SelectMenu:
				v.Disabled = true
				cp = append(cp, v)
			default:
				cp = append(cp, c)
			}
		}
		out = append(out, cp)
	}
	return out
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
