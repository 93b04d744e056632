package recorders

import (
	"errors"

	"github.com/bililive-go/shadowreplay/src/archive"
)

var (
	ErrAlreadyExists    = errors.New("recorder already exists")
	ErrNotFound         = errors.New("Not found")
	ErrPlatformRejected = errors.New("platform rejected the room")
	ErrTransientNetwork = errors.New("transient network error")
	ErrAlreadyRunning   = errors.New("recorder already running")
	ErrArchiveActive    = errors.New("archive is still being recorded")

	ErrSessionNotFound = archive.ErrSessionNotFound
	ErrSegmentWrite    = archive.ErrSegmentWrite
)
