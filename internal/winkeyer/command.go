package winkeyer

import "fmt"

// Opcode is the leading byte of a host command frame.
type Opcode byte

// Host command opcodes.
const (
	OpAdmin                          Opcode = 0x00
	OpSidetoneControl                Opcode = 0x01
	OpSetSpeedWPM                    Opcode = 0x02
	OpSetWeighting                   Opcode = 0x03
	OpSetPTTLeadAndTail              Opcode = 0x04
	OpSetSpeedPOT                    Opcode = 0x05
	OpSetPaused                      Opcode = 0x06
	OpGetSpeedPOT                    Opcode = 0x07
	OpDropSerialInputBufferCharacter Opcode = 0x08
	OpSetPinConfig                   Opcode = 0x09
	OpBufferClearBuffer              Opcode = 0x0a
	OpSetKeyDown                     Opcode = 0x0b
	OpSetHighSpeedCW                 Opcode = 0x0c
	OpSetSpeedFarnsworthWPM          Opcode = 0x0d
	OpSetKeyerMode                   Opcode = 0x0e
	OpLoadSettings                   Opcode = 0x0f
	OpSetKeyingExtendedFirstSend     Opcode = 0x10
	OpSetKeyingCompensation          Opcode = 0x11
	OpSetPaddleSwitchpoint           Opcode = 0x12
	OpNoOp                           Opcode = 0x13
	OpDoKey                          Opcode = 0x14
	OpGetKeyerStatus                 Opcode = 0x15
	OpSetInputBufferCursor           Opcode = 0x16
	OpSetKeyerDitDahRatio            Opcode = 0x17
	OpBufferDoPTT                    Opcode = 0x18
	OpBufferAssertKey                Opcode = 0x19
	OpBufferSleep                    Opcode = 0x1a
	OpBufferMergeLetters             Opcode = 0x1b
	OpBufferSetSpeedWPM              Opcode = 0x1c
	OpBufferSetHighSpeedCW           Opcode = 0x1d
	OpBufferCancelSpeedChange        Opcode = 0x1e
	OpBufferedNoOp                   Opcode = 0x1f
)

var opcodeNames = map[Opcode]string{
	OpAdmin:                          "Admin",
	OpSidetoneControl:                "SidetoneControl",
	OpSetSpeedWPM:                    "SetSpeedWPM",
	OpSetWeighting:                   "SetWeighting",
	OpSetPTTLeadAndTail:              "SetPTTLeadAndTail",
	OpSetSpeedPOT:                    "SetSpeedPOT",
	OpSetPaused:                      "SetPaused",
	OpGetSpeedPOT:                    "GetSpeedPOT",
	OpDropSerialInputBufferCharacter: "DropSerialInputBufferCharacter",
	OpSetPinConfig:                   "SetPinConfig",
	OpBufferClearBuffer:              "BufferClearBuffer",
	OpSetKeyDown:                     "SetKeyDown",
	OpSetHighSpeedCW:                 "SetHighSpeedCW",
	OpSetSpeedFarnsworthWPM:          "SetSpeedFarnsworthWPM",
	OpSetKeyerMode:                   "SetKeyerMode",
	OpLoadSettings:                   "LoadSettings",
	OpSetKeyingExtendedFirstSend:     "SetKeyingExtendedFirstSend",
	OpSetKeyingCompensation:          "SetKeyingCompensation",
	OpSetPaddleSwitchpoint:           "SetPaddleSwitchpoint",
	OpNoOp:                           "NoOp",
	OpDoKey:                          "DoKey",
	OpGetKeyerStatus:                 "GetKeyerStatus",
	OpSetInputBufferCursor:           "SetInputBufferCursor",
	OpSetKeyerDitDahRatio:            "SetKeyerDitDahRatio",
	OpBufferDoPTT:                    "BufferDoPTT",
	OpBufferAssertKey:                "BufferAssertKey",
	OpBufferSleep:                    "BufferSleep",
	OpBufferMergeLetters:             "BufferMergeLetters",
	OpBufferSetSpeedWPM:              "BufferSetSpeedWPM",
	OpBufferSetHighSpeedCW:           "BufferSetHighSpeedCW",
	OpBufferCancelSpeedChange:        "BufferCancelSpeedChange",
	OpBufferedNoOp:                   "BufferedNoOp",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(0x%02x)", byte(op))
}

// Command is a host-to-keyer operation. The set of implementations is
// closed: every variant in this package encodes itself, so a variant
// without an encoding does not compile.
type Command interface {
	Opcode() Opcode
	appendTo(dst []byte) ([]byte, error)
}

// Encode returns the complete frame for c. On error no bytes are returned.
func Encode(c Command) ([]byte, error) {
	if c == nil {
		return nil, ErrNilCommand
	}
	frame, err := c.appendTo(make([]byte, 0, 4))
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// Name returns a short label for c, used in logs and audit records.
func Name(c Command) string {
	switch v := c.(type) {
	case nil:
		return "<nil>"
	case Other:
		return fmt.Sprintf("Other(0x%02x)", v.Code)
	case Admin:
		if v.Command == nil {
			return OpAdmin.String()
		}
		return OpAdmin.String() + "/" + v.Command.Opcode().String()
	}
	return c.Opcode().String()
}

// Admin wraps an administrative command.
type Admin struct {
	Command AdminCommand
}

func (Admin) Opcode() Opcode { return OpAdmin }
func (c Admin) appendTo(dst []byte) ([]byte, error) {
	if c.Command == nil {
		return nil, ErrNilCommand
	}
	return c.Command.appendAdmin(append(dst, byte(c.Opcode())))
}

type SidetoneControl struct {
	Value byte
}

func (SidetoneControl) Opcode() Opcode { return OpSidetoneControl }
func (c SidetoneControl) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Value), nil
}

type SetSpeedWPM struct {
	WPM byte
}

func (SetSpeedWPM) Opcode() Opcode { return OpSetSpeedWPM }
func (c SetSpeedWPM) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.WPM), nil
}

type SetWeighting struct {
	Weight byte
}

func (SetWeighting) Opcode() Opcode { return OpSetWeighting }
func (c SetWeighting) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Weight), nil
}

// SetPTTLeadAndTail sets PTT lead-in and tail times, in 10 ms units.
type SetPTTLeadAndTail struct {
	Lead byte
	Tail byte
}

func (SetPTTLeadAndTail) Opcode() Opcode { return OpSetPTTLeadAndTail }
func (c SetPTTLeadAndTail) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Lead, c.Tail), nil
}

// SetSpeedPOT maps the speed pot onto MinWPM..MinWPM+WPMRange. The third
// byte is unused by WK2 and later and is sent as given.
type SetSpeedPOT struct {
	MinWPM   byte
	WPMRange byte
	Reserved byte
}

func (SetSpeedPOT) Opcode() Opcode { return OpSetSpeedPOT }
func (c SetSpeedPOT) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.MinWPM, c.WPMRange, c.Reserved), nil
}

type SetPaused struct {
	Paused byte
}

func (SetPaused) Opcode() Opcode { return OpSetPaused }
func (c SetPaused) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Paused), nil
}

type GetSpeedPOT struct{}

func (GetSpeedPOT) Opcode() Opcode { return OpGetSpeedPOT }
func (c GetSpeedPOT) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// DropSerialInputBufferCharacter backspaces the input buffer by one.
type DropSerialInputBufferCharacter struct{}

func (DropSerialInputBufferCharacter) Opcode() Opcode { return OpDropSerialInputBufferCharacter }
func (c DropSerialInputBufferCharacter) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

type SetPinConfig struct {
	Value byte
}

func (SetPinConfig) Opcode() Opcode { return OpSetPinConfig }
func (c SetPinConfig) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Value), nil
}

type BufferClearBuffer struct{}

func (BufferClearBuffer) Opcode() Opcode { return OpBufferClearBuffer }
func (c BufferClearBuffer) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// SetKeyDown asserts (1) or releases (0) the key output immediately.
type SetKeyDown struct {
	Down byte
}

func (SetKeyDown) Opcode() Opcode { return OpSetKeyDown }
func (c SetKeyDown) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Down), nil
}

type SetHighSpeedCW struct {
	Value byte
}

func (SetHighSpeedCW) Opcode() Opcode { return OpSetHighSpeedCW }
func (c SetHighSpeedCW) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Value), nil
}

type SetSpeedFarnsworthWPM struct {
	WPM byte
}

func (SetSpeedFarnsworthWPM) Opcode() Opcode { return OpSetSpeedFarnsworthWPM }
func (c SetSpeedFarnsworthWPM) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.WPM), nil
}

// SetKeyerMode loads the keyer mode register.
type SetKeyerMode struct {
	Mode byte
}

func (SetKeyerMode) Opcode() Opcode { return OpSetKeyerMode }
func (c SetKeyerMode) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Mode), nil
}

// LoadSettings loads every operating parameter in one block. Issue it
// right after opening the host connection and never while transmitting.
type LoadSettings struct {
	Settings Settings
}

func (LoadSettings) Opcode() Opcode { return OpLoadSettings }
func (c LoadSettings) appendTo(dst []byte) ([]byte, error) {
	dst = append(dst, byte(c.Opcode()))
	return c.Settings.appendTo(dst), nil
}

type SetKeyingExtendedFirstSend struct {
	Value byte
}

func (SetKeyingExtendedFirstSend) Opcode() Opcode { return OpSetKeyingExtendedFirstSend }
func (c SetKeyingExtendedFirstSend) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Value), nil
}

type SetKeyingCompensation struct {
	Value byte
}

func (SetKeyingCompensation) Opcode() Opcode { return OpSetKeyingCompensation }
func (c SetKeyingCompensation) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Value), nil
}

// SetPaddleSwitchpoint sets the paddle memory switchpoint.
type SetPaddleSwitchpoint struct {
	Value byte
}

func (SetPaddleSwitchpoint) Opcode() Opcode { return OpSetPaddleSwitchpoint }
func (c SetPaddleSwitchpoint) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Value), nil
}

// NoOp is the null command.
type NoOp struct{}

func (NoOp) Opcode() Opcode { return OpNoOp }
func (c NoOp) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// DoKey drives the software paddle.
type DoKey struct {
	Input KeyInput
}

func (DoKey) Opcode() Opcode { return OpDoKey }
func (c DoKey) appendTo(dst []byte) ([]byte, error) {
	if !c.Input.Valid() {
		return nil, invalidPayload("DoKey", "Input", "%v is not a key state", c.Input)
	}
	return append(dst, byte(c.Opcode()), c.Input.Byte()), nil
}

type GetKeyerStatus struct{}

func (GetKeyerStatus) Opcode() Opcode { return OpGetKeyerStatus }
func (c GetKeyerStatus) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

type SetInputBufferCursor struct {
	Value byte
}

func (SetInputBufferCursor) Opcode() Opcode { return OpSetInputBufferCursor }
func (c SetInputBufferCursor) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Value), nil
}

type SetKeyerDitDahRatio struct{}

func (SetKeyerDitDahRatio) Opcode() Opcode { return OpSetKeyerDitDahRatio }
func (c SetKeyerDitDahRatio) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

type BufferDoPTT struct {
	On byte
}

func (BufferDoPTT) Opcode() Opcode { return OpBufferDoPTT }
func (c BufferDoPTT) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.On), nil
}

type BufferAssertKey struct {
	Down byte
}

func (BufferAssertKey) Opcode() Opcode { return OpBufferAssertKey }
func (c BufferAssertKey) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Down), nil
}

// BufferSleep pauses buffered sending for Seconds.
type BufferSleep struct {
	Seconds byte
}

func (BufferSleep) Opcode() Opcode { return OpBufferSleep }
func (c BufferSleep) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Seconds), nil
}

// BufferMergeLetters sends First and Second as one prosign.
type BufferMergeLetters struct {
	First  byte
	Second byte
}

func (BufferMergeLetters) Opcode() Opcode { return OpBufferMergeLetters }
func (c BufferMergeLetters) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.First, c.Second), nil
}

type BufferSetSpeedWPM struct {
	WPM byte
}

func (BufferSetSpeedWPM) Opcode() Opcode { return OpBufferSetSpeedWPM }
func (c BufferSetSpeedWPM) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.WPM), nil
}

type BufferSetHighSpeedCW struct {
	Value byte
}

func (BufferSetHighSpeedCW) Opcode() Opcode { return OpBufferSetHighSpeedCW }
func (c BufferSetHighSpeedCW) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Value), nil
}

type BufferCancelSpeedChange struct{}

func (BufferCancelSpeedChange) Opcode() Opcode { return OpBufferCancelSpeedChange }
func (c BufferCancelSpeedChange) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

type BufferedNoOp struct{}

func (BufferedNoOp) Opcode() Opcode { return OpBufferedNoOp }
func (c BufferedNoOp) appendTo(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// Other sends Code as a bare opcode. It covers opcodes this package does
// not model and is never rejected.
type Other struct {
	Code byte
}

func (c Other) Opcode() Opcode { return Opcode(c.Code) }
func (c Other) appendTo(dst []byte) ([]byte, error) {
	return append(dst, c.Code), nil
}
