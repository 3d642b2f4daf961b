package repository

import "errors"

// ErrDuplicateKey reports an insert that collided with a unique index.
var ErrDuplicateKey = errors.New("duplicate key")
