package users

import "errors"

// ErrUserNotFound is returned by repos whose foreign key to users fails.
var ErrUserNotFound = errors.New("user not found")
