package pkw

import "errors"

// ErrTagIllegal wraps pprf.ErrPunctured/ErrTagTooLong at the PKW boundary
// (spec §7's TagException).
var ErrTagIllegal = errors.New("pkw: tag is illegal (punctured or out of range)")

// ErrAuth is returned when AEAD verification fails on unwrap (spec §7's
// AuthException).
var ErrAuth = errors.New("pkw: authentication failed")

// ErrImport is returned when a password-sealed key blob fails to decrypt
// or parse (spec §7's ImportException).
var ErrImport = errors.New("pkw: failed to import key")
