package media

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for extensions outside wav, mp3, mp4, mov and avi.
	ErrUnsupportedFormat = errors.New("unsupported media format")
	// ErrVideoUnsupported is returned for video uploads when ffmpeg is not available.
	ErrVideoUnsupported = errors.New("video support is not available on this server")
	// ErrNoAudioTrack matches every *NoAudioTrackError.
	ErrNoAudioTrack = errors.New("no audio track")
)

// MediaDecodeError reports that an upload could not be turned into PCM.
type MediaDecodeError struct {
	Extension string
	Err       error
}

func (e *MediaDecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s media: %v", e.Extension, e.Err)
}

func (e *MediaDecodeError) Unwrap() error { return e.Err }

// NoAudioTrackError reports a video container without any audio stream.
type NoAudioTrackError struct {
	Extension string
}

func (e *NoAudioTrackError) Error() string {
	return fmt.Sprintf("%s file has no audio track", e.Extension)
}

func (e *NoAudioTrackError) Is(target error) bool { return target == ErrNoAudioTrack }
