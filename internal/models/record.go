package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultWelcomeMessage is used when the record carries no template.
const DefaultWelcomeMessage = "Welcome {user} to {server}! Please verify to gain access."

// Snowflake is a Discord id. Records written by older deployments stored ids
// as JSON numbers, so both encodings are accepted on read.
type Snowflake string

// UnmarshalJSON accepts "123" and 123.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Snowflake(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("snowflake: %w", err)
	}
	*s = Snowflake(n.String())
	return nil
}

// String returns the id.
func (s Snowflake) String() string { return string(s) }

// ConfigRecord is the single committed configuration document.
type ConfigRecord struct {
	UnverifiedRoleID Snowflake `json:"unverified_role_id,omitempty" yaml:"unverified_role_id,omitempty"`
	Questions        Questions `json:"questions" yaml:"questions"`
	WelcomeMessage   string    `json:"welcome_message,omitempty" yaml:"welcome_message,omitempty"`
}

// Spec returns the verification part of the record.
func (r *ConfigRecord) Spec() VerificationSpec {
	if r == nil {
		return VerificationSpec{}
	}
	return VerificationSpec{RoleID: r.UnverifiedRoleID, Questions: r.Questions}
}

// SetSpec replaces the verification part and keeps the rest of the record.
func (r *ConfigRecord) SetSpec(spec VerificationSpec) {
	r.UnverifiedRoleID = spec.RoleID
	r.Questions = spec.Questions
}

// Welcome renders the welcome template. {user} is the member mention,
// {server} the guild name and {name} the plain username.
func (r *ConfigRecord) Welcome(mention, server, name string) string {
	tmpl := DefaultWelcomeMessage
	if r != nil && strings.TrimSpace(r.WelcomeMessage) != "" {
		tmpl = r.WelcomeMessage
	}
	return strings.NewReplacer(
		"{user}", mention,
		"{server}", server,
		"{name}", name,
		"{user_name}", name,
	).Replace(tmpl)
}

// VerificationSpec is a question set plus the role removed on completion.
type VerificationSpec struct {
	RoleID    Snowflake
	Questions Questions
}

// Validate reports whether the spec can drive a verification session.
func (s VerificationSpec) Validate() error {
	if len(s.Questions) == 0 {
		return ErrNoQuestions
	}
	if len(s.Questions) > MaxQuestions {
		return ErrTooManyQuestions
	}
	for i, q := range s.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

// Clone copies the spec so a session cannot observe later edits.
func (s VerificationSpec) Clone() VerificationSpec {
	out := VerificationSpec{RoleID: s.RoleID, Questions: make(Questions, 0, len(s.Questions))}
	for _, q := range s.Questions {
		switch v := q.(type) {
		case SelectQuestion:
			v.Options = append([]string(nil), v.Options...)
			out.Questions = append(out.Questions, v)
		case RadioQuestion:
			v.Options = append([]string(nil), v.Options...)
			out.Questions = append(out.Questions, v)
		default:
			out.Questions = append(out.Questions, q)
		}
	}
	return out
}
