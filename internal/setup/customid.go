package setup

import (
	"fmt"
	"strings"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
)

const (
	prefix = "setup"

	actionAdd    = "add"
	actionSubmit = "submit"
	actionSave   = "save"
)

// Handles reports whether customID belongs to a setup wizard.
func Handles(customID string) bool {
	return strings.HasPrefix(customID, prefix+":")
}

type customID struct {
	wizard string
	action string
	kind   models.QuestionKind
}

func (c customID) String() string {
	if c.action == actionSave {
		return fmt.Sprintf("%s:%s:%s", prefix, c.wizard, c.action)
	}
	return fmt.Sprintf("%s:%s:%s:%s", prefix, c.wizard, c.action, c.kind)
}

func parseCustomID(raw string) (customID, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 || parts[0] != prefix || parts[1] == "" {
		return customID{}, fmt.Errorf("malformed custom id %q", raw)
	}
	c := customID{wizard: parts[1], action: parts[2]}
	switch c.action {
	case actionSave:
		if len(parts) != 3 {
			return customID{}, fmt.Errorf("malformed custom id %q", raw)
		}
	case actionAdd, actionSubmit:
		if len(parts) != 4 {
			return customID{}, fmt.Errorf("malformed custom id %q", raw)
		}
		c.kind = models.QuestionKind(parts[3])
		switch c.kind {
		case models.KindText, models.KindSelect, models.KindRadio:
		default:
			return customID{}, fmt.Errorf("%w: %q", models.ErrUnknownKind, parts[3])
		}
	default:
		return customID{}, fmt.Errorf("unknown action in %q", raw)
	}
	return c, nil
}
