package srtm

import "errors"

var (
	ErrNotFound    = errors.New("tile not found")
	ErrFilesize    = errors.New("unknown tile file size")
	ErrCorrupt     = errors.New("corrupt tile file")
	ErrParseLatLon = errors.New("cannot parse latitude and longitude from tile name")
	ErrRead        = errors.New("cannot read tile samples")
	ErrOutOfRange  = errors.New("coordinate out of range")
)
