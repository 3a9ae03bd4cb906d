// Package session tracks the opaque session handles issued alongside login
// tokens. A handle is pure random entropy; the store maps it to the account
// email it was minted for. Expiry is enforced on the cookie carrying the
// handle, not server side, so logout is the only way a live handle dies.
package session
