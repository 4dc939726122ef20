package channel

import (
	"regexp"
	"strings"
)

// PublicBaseURL is where public channel landing pages live.
const PublicBaseURL = "https://t.me"

var (
	linkRe    = regexp.MustCompile(`(?i)(?:t\.me|telegram\.me|telegram\.dog)/([A-Za-z0-9_]+)`)
	mentionRe = regexp.MustCompile(`@([A-Za-z0-9_]+)`)
	bareRe    = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// Handle is a canonical channel username: one or more of [A-Za-z0-9_].
type Handle string

// ExtractHandle normalizes a free-form channel reference into a Handle.
// Links win over @mentions, mentions win over bare names. Case is preserved.
func ExtractHandle(input string) (Handle, error) {
	s := strings.TrimSpace(input)
	if m := linkRe.FindStringSubmatch(s); m != nil {
		return Handle(m[1]), nil
	}
	if m := mentionRe.FindStringSubmatch(s); m != nil {
		return Handle(m[1]), nil
	}
	if bareRe.MatchString(s) {
		return Handle(s), nil
	}
	return "", ErrNotFound
}

func (h Handle) String() string { return string(h) }

// Link returns the public link of the channel.
func (h Handle) Link() string { return PublicBaseURL + "/" + string(h) }
