package auth

import "strings"

// CredentialHeader is the transport header carrying credential pairs.
const CredentialHeader = "Cookie"

// Credential pair names. Case-sensitive.
const (
	pairToken   = "token"
	pairSession = "sessionId"
)

// Credentials holds the raw credential material extracted from one request.
// Either field may be empty.
type Credentials struct {
	Token         string
	SessionHandle string
}

// Empty reports whether no credential was presented at all.
func (c Credentials) Empty() bool { return c.Token == "" && c.SessionHandle == "" }

// ParseCredentialHeader splits a header of semicolon-delimited name=value
// pairs and picks out the recognized credential names. Unrecognized pairs and
// malformed fragments are ignored. The last occurrence of a name wins.
func ParseCredentialHeader(header string) Credentials {
	var c Credentials
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch name {
		case pairToken:
			c.Token = value
		case pairSession:
			c.SessionHandle = value
		}
	}
	return c
}
