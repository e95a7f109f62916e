package verify

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	prefix = "verify"
	// StartID is the custom id of the persistent Verify Identity button.
	StartID = prefix + ":start"

	actionAnswer = "answer"
	actionText   = "text"
	actionSelect = "select"
	actionRadio  = "radio"

	answerInputID = "answer"
)

// Handles reports whether customID belongs to the flow engine.
func Handles(customID string) bool {
	return strings.HasPrefix(customID, prefix+":")
}

// componentID identifies a control bound to one step of one session.
type componentID struct {
	session string
	step    int
	action  string
	option  int
}

func (c componentID) String() string {
	id := fmt.Sprintf("%s:%s:%d:%s", prefix, c.session, c.step, c.action)
	if c.action == actionRadio {
		id += ":" + strconv.Itoa(c.option)
	}
	return id
}

func parseComponentID(raw string) (componentID, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 4 || parts[0] != prefix {
		return componentID{}, fmt.Errorf("malformed custom id %q", raw)
	}
	step, err := strconv.Atoi(parts[2])
	if err != nil || step < 0 {
		return componentID{}, fmt.Errorf("malformed step in %q", raw)
	}
	c := componentID{session: parts[1], step: step, action: parts[3]}
	switch c.action {
	case actionAnswer, actionText, actionSelect:
		if len(parts) != 4 {
			return componentID{}, fmt.Errorf("malformed custom id %q", raw)
		}
	case actionRadio:
		if len(parts) != 5 {
			return componentID{}, fmt.Errorf("malformed custom id %q", raw)
		}
		c.option, err = strconv.Atoi(parts[4])
		if err != nil || c.option < 0 {
			return componentID{}, fmt.Errorf("malformed option in %q", raw)
		}
	default:
		return componentID{}, fmt.Errorf("unknown action in %q", raw)
	}
	return c, nil
}
