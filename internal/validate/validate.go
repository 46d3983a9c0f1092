// Package validate screens proposed commands and arguments before they reach
// classification or execution. Rejection is all-or-nothing: an argument that
// carries a shell control sequence rejects the whole action, it is never
// sanitized and retried.
package validate

import (
	"fmt"
	"strings"

	"github.com/vinayprograms/agentkit/logging"
)

// Category identifies why an action was rejected.
type Category string

const (
	CategoryEmptyCommand      Category = "empty_command"
	CategoryUnknownCommand    Category = "unknown_command"
	CategoryForbiddenToken    Category = "forbidden_token"
	CategoryOversizedArgument Category = "oversized_argument"
)

// Rejection describes a failed validation. Token carries the offending
// sequence or argument so the caller can report it without re-scanning.
type Rejection struct {
	Category Category
	Token    string
	Reason   string
}

// Message renders the rejection for an error envelope.
func (r *Rejection) Message() string {
	return fmt.Sprintf("validation failed (%s): %s", r.Category, r.Reason)
}

// DefaultForbiddenTokens are the sequences that would chain or escape
// single-command execution: statement separators, pipes, logical operators,
// and subshell substitution markers. The doubled operators precede the
// single-character ones so a rejection names the full operator it matched.
var DefaultForbiddenTokens = []string{"&&", "||", ";", "|", "`", "$("}

// DefaultMaxArgumentLength bounds a single argument string.
const DefaultMaxArgumentLength = 4096

// Config holds validator settings. Zero values fall back to defaults; an
// empty AllowedCommands list means the validator accepts any non-empty
// command identifier and leaves command gating to the classifier.
type Config struct {
	AllowedCommands   []string
	ForbiddenTokens   []string
	MaxArgumentLength int
}

// Validator screens one action at a time. It holds no per-action state and
// is safe to share across sessions.
type Validator struct {
	allowed   map[string]struct{}
	tokens    []string
	maxArgLen int
	logger    *logging.Logger
}

// New creates a validator from cfg.
func New(cfg Config) *Validator {
	tokens := cfg.ForbiddenTokens
	if len(tokens) == 0 {
		tokens = DefaultForbiddenTokens
	}
	maxArgLen := cfg.MaxArgumentLength
	if maxArgLen <= 0 {
		maxArgLen = DefaultMaxArgumentLength
	}

	var allowed map[string]struct{}
	if len(cfg.AllowedCommands) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedCommands))
		for _, command := range cfg.AllowedCommands {
			allowed[command] = struct{}{}
		}
	}

	return &Validator{
		allowed:   allowed,
		tokens:    tokens,
		maxArgLen: maxArgLen,
		logger:    logging.New().WithComponent("validator"),
	}
}

// Validate checks a proposed command and its arguments. A nil return means
// the action may proceed to classification. Validate never panics and never
// partially accepts an action.
func (v *Validator) Validate(command string, args []string) *Rejection {
	if strings.TrimSpace(command) == "" {
		return v.reject(&Rejection{
			Category: CategoryEmptyCommand,
			Reason:   "command identifier is empty",
		})
	}

	if v.allowed != nil {
		if _, ok := v.allowed[command]; !ok {
			return v.reject(&Rejection{
				Category: CategoryUnknownCommand,
				Token:    command,
				Reason:   fmt.Sprintf("command %q is not on the allow-list", command),
			})
		}
	}

	// The command identifier is scanned too; an identifier is planner
	// input like any other token.
	if token := firstForbidden(command, v.tokens); token != "" {
		return v.reject(&Rejection{
			Category: CategoryForbiddenToken,
			Token:    token,
			Reason:   fmt.Sprintf("command contains forbidden sequence %q", token),
		})
	}

	for _, arg := range args {
		if len(arg) > v.maxArgLen {
			return v.reject(&Rejection{
				Category: CategoryOversizedArgument,
				Token:    abbreviate(arg, 32),
				Reason:   fmt.Sprintf("argument length %d exceeds limit %d", len(arg), v.maxArgLen),
			})
		}
		if token := firstForbidden(arg, v.tokens); token != "" {
			return v.reject(&Rejection{
				Category: CategoryForbiddenToken,
				Token:    token,
				Reason:   fmt.Sprintf("argument contains forbidden sequence %q", token),
			})
		}
	}

	return nil
}

// reject logs and returns the rejection.
func (v *Validator) reject(r *Rejection) *Rejection {
	v.logger.Warn("action rejected", map[string]interface{}{
		"category": string(r.Category),
		"token":    r.Token,
	})
	return r
}

// abbreviate shortens s to at most n bytes, appending an ellipsis when cut.
func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// firstForbidden returns the first forbidden token found in s, or "".
func firstForbidden(s string, tokens []string) string {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return token
		}
	}
	return ""
}
