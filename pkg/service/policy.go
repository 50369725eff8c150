package service

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// WritePolicy governs whether agents may write facts.
type WritePolicy string

const (
	// PolicyAllow stores new facts as active.
	PolicyAllow WritePolicy = "allow"

	// PolicyDeny refuses every write.
	PolicyDeny WritePolicy = "deny"

	// PolicyAsk stores new facts as pending review.
	PolicyAsk WritePolicy = "ask"
)

// ErrUnknownPolicy is returned by ParseWritePolicy.
var ErrUnknownPolicy = errors.New("unknown write policy")

// ParseWritePolicy parses s case-insensitively. Empty means allow.
func ParseWritePolicy(s string) (WritePolicy, error) {
	switch p := WritePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyAllow, nil
	case PolicyAllow, PolicyDeny, PolicyAsk:
		return p, nil
	default:
		return "", errors.WithHint(
			errors.Wrapf(ErrUnknownPolicy, "%q", s),
			"valid policies are allow, deny and ask",
		)
	}
}

func (p WritePolicy) String() string { return string(p) }

func (p WritePolicy) checkWrite() error {
	if p == PolicyDeny {
		return errors.WithHint(ErrWriteDenied, "set write.policy to allow or ask to enable writes")
	}
	return nil
}
