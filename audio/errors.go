package audio

import "fmt"

// UnsupportedFormatError means the input could not be converted to the
// canonical WAV container.
type UnsupportedFormatError struct {
	Path string
	Err  error
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported audio format %s: %v", e.Path, e.Err)
}

func (e *UnsupportedFormatError) Unwrap() error { return e.Err }

// ChannelReadError means the WAV header was malformed or unreadable.
type ChannelReadError struct {
	Path string
	Err  error
}

func (e *ChannelReadError) Error() string {
	return fmt.Sprintf("read wav header %s: %v", e.Path, e.Err)
}

func (e *ChannelReadError) Unwrap() error { return e.Err }
