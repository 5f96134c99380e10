package schema

import (
	"fmt"
	"strings"
)

// ParseSessionID validates a session id typed by the user.
// Allowed characters: A-Z, a-z, 0-9, '.', '_', '-'. Ids decoded from backend
// payloads are not restricted.
func ParseSessionID(value string) (SessionID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", ErrInvalidSession
	}
	for _, r := range trimmed {
		if r == '.' || r == '_' || r == '-' {
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		return "", ErrInvalidSession
	}
	return SessionID(trimmed), nil
}

// ParseRole validates a role string.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, value)
	}
}
