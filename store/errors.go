package store

import "errors"

// ErrDuplicateJoinCode signals a (match_id, join_code) collision on
// team creation. The join-code generator retries on it.
var ErrDuplicateJoinCode = errors.New("join code already taken for this match")
