package persistence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

const (
	minSubdomainLen = 3
	maxSubdomainLen = 63
)

// NormalizeSubdomain trims and lowercases input and checks it is a valid DNS
// label of 3 to 63 characters (letters, digits, inner hyphens).
func NormalizeSubdomain(input string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", errors.New("subdomain is required")
	}
	if len(normalized) < minSubdomainLen || len(normalized) > maxSubdomainLen {
		return "", fmt.Errorf("subdomain must be %d to %d characters", minSubdomainLen, maxSubdomainLen)
	}
	if !subdomainPattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid subdomain %q: use lowercase letters, digits and inner hyphens", input)
	}
	return normalized, nil
}
