// Package token issues and verifies the signed identity tokens handed out at
// login. Tokens are PASETO v4.local envelopes sealed with a process-wide
// symmetric key; the only identity claim they carry is the account email.
package token
