// Package envelope defines the stable result contract returned for every
// mediated action: success or error, with explicit, idempotent truncation.
package envelope

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// DefaultMaxChars bounds a success payload when the caller does not
// configure a limit.
const DefaultMaxChars = 4000

// Envelope is the structured result of one completed action. Truncation and
// failure are distinct: a truncated payload is still a success.
type Envelope struct {
	Success         bool     `json:"success"`
	Payload         string   `json:"payload,omitempty"`
	Error           string   `json:"error,omitempty"`
	Truncated       bool     `json:"truncated"`
	TruncatedFields []string `json:"truncated_fields,omitempty"`
}

// The truncation marker is part of the payload itself so a consumer that
// reads only the payload string still learns content was dropped.
const markerFormat = "\n... [TRUNCATED %d chars] ..."

var markerSuffix = regexp.MustCompile(`\n\.\.\. \[TRUNCATED \d+ chars\] \.\.\.$`)

// Wrap builds a success envelope around raw output, truncating head-biased
// to maxChars. Wrapping an already-truncated payload again is a no-op: the
// marker is recognized and never doubled. maxChars <= 0 selects
// DefaultMaxChars.
func Wrap(raw string, maxChars int) Envelope {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	if markerSuffix.MatchString(raw) {
		return Envelope{
			Success:         true,
			Payload:         raw,
			Truncated:       true,
			TruncatedFields: []string{"payload"},
		}
	}

	if len(raw) <= maxChars {
		return Envelope{Success: true, Payload: raw}
	}

	// Back the cut up to a rune boundary so a multi-byte character is
	// never split in half.
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	omitted := len(raw) - cut
	return Envelope{
		Success:         true,
		Payload:         raw[:cut] + fmt.Sprintf(markerFormat, omitted),
		Truncated:       true,
		TruncatedFields: []string{"payload"},
	}
}

// WrapError builds a failure envelope. Error messages are never truncated:
// the failure category must survive intact, and error text is bounded by
// construction upstream.
func WrapError(message string) Envelope {
	if message == "" {
		message = "unspecified error"
	}
	return Envelope{Success: false, Error: message}
}
