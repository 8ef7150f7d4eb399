package meetings

import (
	"fmt"
	"net/url"
	"strings"
)

const meetingRoutePrefix = "/meeting/"

// ResolveMeetingLink normalizes user-pasted join input into a meeting route.
// Accepted forms: a full URL, an absolute /meeting/... path, or a bare call
// id. Anything else is a validation error; no call is touched.
func ResolveMeetingLink(raw string) (string, error) {
	path := strings.TrimSpace(raw)
	if path == "" {
		return "", fmt.Errorf("%w: please enter a meeting link", ErrValidation)
	}

	if strings.Contains(path, "http") {
		u, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("%w: invalid meeting link, please check and try again", ErrValidation)
		}
		path = u.Path
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
	}

	if !strings.Contains(path, "/") {
		path = meetingRoutePrefix + path
	}

	if !strings.HasPrefix(path, meetingRoutePrefix) {
		return "", fmt.Errorf("%w: invalid meeting link format", ErrValidation)
	}
	return path, nil
}

// MeetingIDFromRoute extracts the call id from a normalized meeting route.
func MeetingIDFromRoute(route string) string {
	rest := strings.TrimPrefix(route, meetingRoutePrefix)
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
