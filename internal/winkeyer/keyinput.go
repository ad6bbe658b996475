package winkeyer

import (
	"fmt"
	"strings"
)

// KeyInput is the paddle state carried by DoKey.
type KeyInput uint8

const (
	KeyRelease KeyInput = 0x00
	KeyDit     KeyInput = 0x01
	KeyDah     KeyInput = 0x02
	// KeyBoth presses both paddles; the keyer resolves it per its iambic mode.
	KeyBoth KeyInput = 0x03
)

var keyInputNames = map[KeyInput]string{
	KeyRelease: "release",
	KeyDit:     "dit",
	KeyDah:     "dah",
	KeyBoth:    "both",
}

// Byte returns the wire value of the key state.
func (k KeyInput) Byte() byte {
	return byte(k)
}

// Valid reports whether k is one of the four declared key states.
func (k KeyInput) Valid() bool {
	_, ok := keyInputNames[k]
	return ok
}

func (k KeyInput) String() string {
	if name, ok := keyInputNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KeyInput(0x%02x)", byte(k))
}

// ParseKeyInput parses release, dit, dah or both (case-insensitive).
func ParseKeyInput(s string) (KeyInput, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range keyInputNames {
		if name == want {
			return k, nil
		}
	}
	return KeyRelease, fmt.Errorf("unknown key input %q, must be one of: release, dit, dah, both", s)
}
