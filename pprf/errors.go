package pprf

import "errors"

// ErrPunctured is returned by Eval when the requested tag (or a prefix
// containing it) has already been punctured. Punc treats an
// already-punctured tag as a no-op instead.
var ErrPunctured = errors.New("pprf: tag is punctured or out of range")

// ErrTagTooLong is returned when a tag's length exceeds the key's TagLen.
var ErrTagTooLong = errors.New("pprf: tag exceeds key's configured tag length")
