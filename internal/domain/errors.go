package domain

import "errors"

// ErrConnectionGone indicates the push target no longer exists. The
// broadcaster treats it as a signal to reap the registry entry.
var ErrConnectionGone = errors.New("connection gone")
