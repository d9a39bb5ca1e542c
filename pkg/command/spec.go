// Package command describes the commands a module exposes to chat users.
//
// A Spec is a value: every builder method returns a modified copy, so a Spec
// handed to the registry can never be changed behind its back.
package command

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"unicode/utf8"
)

// Platform limits for slash-command declarations.
const (
	MaxNameLength        = 32
	MaxDescriptionLength = 100
	MaxChoices           = 25
	MaxOptions           = 25
)

var (
	// ErrInvalidSpec is returned when a command declaration is malformed.
	ErrInvalidSpec = errors.New("invalid command spec")

	// ErrMissingOption is returned when a required option has no value.
	ErrMissingOption = errors.New("missing required option")

	// ErrInvalidChoice is returned when a value is not one of the declared choices.
	ErrInvalidChoice = errors.New("value is not an allowed choice")
)

var namePattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// Access is the role requirement attached to a command.
type Access string

const (
	// AccessPublic lets anyone run the command.
	AccessPublic Access = "public"

	// AccessMemberOnly restricts the command to holders of the member role.
	AccessMemberOnly Access = "member-only"
)

// OptionKind is the value type of an option.
type OptionKind string

const (
	OptionText OptionKind = "text"
	OptionUser OptionKind = "user"
)

// Option is one typed argument of a command.
type Option struct {
	Key      string
	Prompt   string
	Kind     OptionKind
	Choices  []string
	Required bool
}

// Allows reports whether value is acceptable for this option's choices.
func (o Option) Allows(value string) bool {
	if len(o.Choices) == 0 {
		return true
	}
	return slices.Contains(o.Choices, value)
}

// Spec is the declaration of a single command.
type Spec struct {
	name        string
	description string
	options     []Option
	access      Access
}

// New starts a public command declaration.
func New(name, description string) Spec {
	return Spec{name: name, description: description, access: AccessPublic}
}

// Name returns the unique command name.
func (s Spec) Name() string { return s.name }

// Description returns the help text.
func (s Spec) Description() string { return s.description }

// Access returns the role requirement.
func (s Spec) Access() Access { return s.access }

// Options returns a copy of the declared options in declaration order.
func (s Spec) Options() []Option {
	out := make([]Option, len(s.options))
	for i, opt := range s.options {
		opt.Choices = slices.Clone(opt.Choices)
		out[i] = opt
	}
	return out
}

// Option looks up an option by key.
func (s Spec) Option(key string) (Option, bool) {
	for _, opt := range s.options {
		if opt.Key == key {
			opt.Choices = slices.Clone(opt.Choices)
			return opt, true
		}
	}
	return Option{}, false
}

// WithText returns a copy with a required text option appended.
// An empty choices list means free text.
func (s Spec) WithText(key, prompt string, choices ...string) Spec {
	return s.with(Option{Key: key, Prompt: prompt, Kind: OptionText, Choices: choices, Required: true})
}

// WithOptionalText returns a copy with an optional free-text option appended.
func (s Spec) WithOptionalText(key, prompt string) Spec {
	return s.with(Option{Key: key, Prompt: prompt, Kind: OptionText})
}

// WithUser returns a copy with a required user option appended.
func (s Spec) WithUser(key, prompt string) Spec {
	return s.with(Option{Key: key, Prompt: prompt, Kind: OptionUser, Required: true})
}

// MemberOnly returns a copy restricted to members.
func (s Spec) MemberOnly() Spec {
	s.options = slices.Clone(s.options)
	s.access = AccessMemberOnly
	return s
}

func (s Spec) with(opt Option) Spec {
	opt.Choices = slices.Clone(opt.Choices)
	s.options = append(slices.Clone(s.options), opt)
	return s
}

// Validate checks the declaration against platform constraints.
func (s Spec) Validate() error {
	if !namePattern.MatchString(s.name) {
		return fmt.Errorf("%w: name %q must match %s", ErrInvalidSpec, s.name, namePattern)
	}
	if n := utf8.RuneCountInString(s.description); n == 0 || n > MaxDescriptionLength {
		return fmt.Errorf("%w: %s: description must be 1-%d characters", ErrInvalidSpec, s.name, MaxDescriptionLength)
	}
	switch s.access {
	case AccessPublic, AccessMemberOnly:
	default:
		return fmt.Errorf("%w: %s: unknown access %q", ErrInvalidSpec, s.name, s.access)
	}
	if len(s.options) > MaxOptions {
		return fmt.Errorf("%w: %s: at most %d options", ErrInvalidSpec, s.name, MaxOptions)
	}

	seen := make(map[string]struct{}, len(s.options))
	optionalSeen := false
	for _, opt := range s.options {
		if !namePattern.MatchString(opt.Key) {
			return fmt.Errorf("%w: %s: option key %q", ErrInvalidSpec, s.name, opt.Key)
		}
		if _, dup := seen[opt.Key]; dup {
			return fmt.Errorf("%w: %s: option %q declared twice", ErrInvalidSpec, s.name, opt.Key)
		}
		seen[opt.Key] = struct{}{}
		if opt.Prompt == "" {
			return fmt.Errorf("%w: %s: option %q has no prompt", ErrInvalidSpec, s.name, opt.Key)
		}
		if len(opt.Choices) > MaxChoices {
			return fmt.Errorf("%w: %s: option %q has more than %d choices", ErrInvalidSpec, s.name, opt.Key, MaxChoices)
		}
		// The platform rejects required options declared after optional ones.
		if opt.Required && optionalSeen {
			return fmt.Errorf("%w: %s: required option %q follows an optional one", ErrInvalidSpec, s.name, opt.Key)
		}
		if !opt.Required {
			optionalSeen = true
		}
	}
	return nil
}

// Check validates invocation values against the declared options. A value
// outside its option's choices is reported before a missing required value,
// so callers that tolerate absent options can still rely on choice checks.
func (s Spec) Check(values map[string]string) error {
	for _, opt := range s.options {
		if v := values[opt.Key]; v != "" && !opt.Allows(v) {
			return fmt.Errorf("%w: %s=%q", ErrInvalidChoice, opt.Key, v)
		}
	}
	for _, opt := range s.options {
		if opt.Required && values[opt.Key] == "" {
			return fmt.Errorf("%w: %s", ErrMissingOption, opt.Key)
		}
	}
	return nil
}
