package meetings

import (
	"fmt"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ParseInviteEmails splits a comma-separated invite list, trims each entry
// and validates it. Every invalid address is named in the returned error so
// the caller can fix exactly the entries that failed.
func ParseInviteEmails(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var valid, invalid []string
	for _, part := range strings.Split(raw, ",") {
		addr := strings.TrimSpace(part)
		if addr == "" {
			continue
		}
		if !emailPattern.MatchString(addr) {
			invalid = append(invalid, addr)
			continue
		}
		valid = append(valid, addr)
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: invalid email addresses: %s", ErrValidation, strings.Join(invalid, ", "))
	}
	return valid, nil
}
