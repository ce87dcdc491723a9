//go:build !vosk

package recognizer

// VoskAvailable reports whether the Vosk engine is compiled in.
const VoskAvailable = false

// LoadVosk always fails in builds without the vosk tag.
func LoadVosk(path string) (Model, error) {
	return nil, ErrUnavailable
}
