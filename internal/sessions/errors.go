package sessions

import "errors"

var (
	ErrNotFound   = errors.New("session not found")
	ErrStoreWrite = errors.New("session store write failed")
	ErrStoreRead  = errors.New("session store read failed")
)
