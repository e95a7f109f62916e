package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// QuestionKind is the wire tag of a question variant.
type QuestionKind string

const (
	KindText   QuestionKind = "text"
	KindSelect QuestionKind = "select"
	KindRadio  QuestionKind = "radio"
)

// Platform limits for the controls a question renders into.
const (
	MaxSelectOptions = 25
	MaxRadioOptions  = 5
	MaxQuestions     = 25
	MaxPromptLength  = 256

	// Discord caps select option values at 100 characters and button
	// labels at 80; longer options could never be matched on submission.
	MaxSelectOptionLength = 100
	MaxRadioOptionLength  = 80
)

var (
	ErrNoQuestions      = errors.New("verification has no questions")
	ErrTooManyQuestions = fmt.Errorf("verification has more than %d questions", MaxQuestions)
	ErrEmptyPrompt      = errors.New("question prompt is empty")
	ErrNoOptions        = errors.New("question has no options")
	ErrTooManyOptions   = errors.New("question has too many options")
	ErrUnknownKind      = errors.New("unknown question type")
	ErrDuplicateOptions = errors.New("question has duplicate options")
	ErrOptionTooLong    = errors.New("question option is too long")
	ErrPromptTooLong    = fmt.Errorf("question prompt exceeds %d characters", MaxPromptLength)
)

// Question is one step of a verification questionnaire.
// The concrete types are TextQuestion, SelectQuestion and RadioQuestion.
type Question interface {
	Kind() QuestionKind
	Prompt() string
	Validate() error
}

// TextQuestion asks for free-form input through a modal.
type TextQuestion struct {
	Text string
}

// SelectQuestion asks for a single choice from a dropdown.
type SelectQuestion struct {
	Text    string
	Options []string
}

// RadioQuestion asks for a single choice from a row of buttons.
type RadioQuestion struct {
	Text    string
	Options []string
}

func (q TextQuestion) Kind() QuestionKind   { return KindText }
func (q SelectQuestion) Kind() QuestionKind { return KindSelect }
func (q RadioQuestion) Kind() QuestionKind  { return KindRadio }

func (q TextQuestion) Prompt() string   { return q.Text }
func (q SelectQuestion) Prompt() string { return q.Text }
func (q RadioQuestion) Prompt() string  { return q.Text }

func (q TextQuestion) Validate() error {
	return validatePrompt(q.Text)
}

func (q SelectQuestion) Validate() error {
	if err := validatePrompt(q.Text); err != nil {
		return err
	}
	return validateOptions(q.Options, MaxSelectOptions, MaxSelectOptionLength)
}

func (q RadioQuestion) Validate() error {
	if err := validatePrompt(q.Text); err != nil {
		return err
	}
	return validateOptions(q.Options, MaxRadioOptions, MaxRadioOptionLength)
}

func validatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	if len([]rune(prompt)) > MaxPromptLength {
		return ErrPromptTooLong
	}
	return nil
}

func validateOptions(options []string, limit, maxLen int) error {
	if len(options) == 0 {
		return ErrNoOptions
	}
	if len(options) > limit {
		return fmt.Errorf("%w: %d > %d", ErrTooManyOptions, len(options), limit)
	}
	seen := make(map[string]bool, len(options))
	for _, opt := range options {
		if strings.TrimSpace(opt) == "" {
			return ErrNoOptions
		}
		if n := utf8.RuneCountInString(opt); n > maxLen {
			return fmt.Errorf("%w: %d > %d characters", ErrOptionTooLong, n, maxLen)
		}
		if seen[opt] {
			return fmt.Errorf("%w: %q", ErrDuplicateOptions, opt)
		}
		seen[opt] = true
	}
	return nil
}

// OptionsOf returns the options of a choice question, nil for text questions.
func OptionsOf(q Question) []string {
	switch v := q.(type) {
	case SelectQuestion:
		return v.Options
	case RadioQuestion:
		return v.Options
	default:
		return nil
	}
}

// NewQuestion builds the variant for kind.
func NewQuestion(kind QuestionKind, prompt string, options []string) (Question, error) {
	var q Question
	switch kind {
	case KindText:
		q = TextQuestion{Text: prompt}
	case KindSelect:
		q = SelectQuestion{Text: prompt, Options: options}
	case KindRadio:
		q = RadioQuestion{Text: prompt, Options: options}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// ParseOptions splits a comma or newline separated option list.
func ParseOptions(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	options := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			options = append(options, f)
		}
	}
	return options
}

// questionJSON is the persisted shape of a question.
type questionJSON struct {
	Type    QuestionKind `json:"type" yaml:"type"`
	Prompt  string       `json:"prompt" yaml:"prompt"`
	Options []string     `json:"options,omitempty" yaml:"options,omitempty"`
}

// Questions is an ordered question sequence with a tagged wire encoding.
type Questions []Question

// MarshalJSON encodes each question as {type, prompt, options}.
func (qs Questions) MarshalJSON() ([]byte, error) {
	return json.Marshal(qs.wire())
}

// UnmarshalJSON decodes tagged questions. Unknown types are rejected; option
// limits are left to Validate so that a misconfigured record can still be read.
func (qs *Questions) UnmarshalJSON(data []byte) error {
	var raw []questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return qs.fromWire(raw)
}

// MarshalYAML encodes questions for operator files.
func (qs Questions) MarshalYAML() (interface{}, error) {
	return qs.wire(), nil
}

// UnmarshalYAML decodes questions from operator files.
func (qs *Questions) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw []questionJSON
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return qs.fromWire(raw)
}

func (qs Questions) wire() []questionJSON {
	out := make([]questionJSON, 0, len(qs))
	for _, q := range qs {
		out = append(out, questionJSON{Type: q.Kind(), Prompt: q.Prompt(), Options: OptionsOf(q)})
	}
	return out
}

func (qs *Questions) fromWire(raw []questionJSON) error {
	out := make(Questions, 0, len(raw))
	for i, r := range raw {
		switch r.Type {
		case KindText:
			out = append(out, TextQuestion{Text: r.Prompt})
		case KindSelect:
			out = append(out, SelectQuestion{Text: r.Prompt, Options: r.Options})
		case KindRadio:
			out = append(out, RadioQuestion{Text: r.Prompt, Options: r.Options})
		default:
			return fmt.Errorf("question %d: %w: %q", i+1, ErrUnknownKind, r.Type)
		}
	}
	*qs = out
	return nil
}
