package winkeyer

import "fmt"

// AdminOpcode is the second byte of an admin frame.
type AdminOpcode byte

// Admin sub-opcodes. The numbering space is separate from Opcode.
const (
	AdminCalibrate               AdminOpcode = 0x00
	AdminResetKeyer              AdminOpcode = 0x01
	AdminOpenHostConnection      AdminOpcode = 0x02
	AdminCloseHostConnection     AdminOpcode = 0x03
	AdminEchoTest                AdminOpcode = 0x04
	AdminPaddleA2D               AdminOpcode = 0x05
	AdminSpeedA2D                AdminOpcode = 0x06
	AdminGetValues               AdminOpcode = 0x07
	AdminDebugInternal           AdminOpcode = 0x08
	AdminGetFirmwareMajorVersion AdminOpcode = 0x09
	AdminSetReportingV1          AdminOpcode = 0x10
	AdminSetReportingV2          AdminOpcode = 0x11
	AdminDumpEEPROM              AdminOpcode = 0x12
	AdminLoadEEPROM              AdminOpcode = 0x13
	AdminSendMessageByID         AdminOpcode = 0x14
	AdminLoadExtensionR1         AdminOpcode = 0x15
	AdminFirmwareUpdate          AdminOpcode = 0x16
	AdminSetBaudRateLow          AdminOpcode = 0x17
	AdminSetBaudRateHigh         AdminOpcode = 0x18
	AdminSetRTTYRegisters        AdminOpcode = 0x19
	AdminSetReportingV3          AdminOpcode = 0x20
	AdminReadBackVcc             AdminOpcode = 0x21
	AdminLoadExtensionR2         AdminOpcode = 0x22
	AdminGetFirmwareMinorVersion AdminOpcode = 0x23
	AdminSetSidetoneVolume       AdminOpcode = 0x24
)

var adminOpcodeNames = map[AdminOpcode]string{
	AdminCalibrate:               "Calibrate",
	AdminResetKeyer:              "ResetKeyer",
	AdminOpenHostConnection:      "OpenHostConnection",
	AdminCloseHostConnection:     "CloseHostConnection",
	AdminEchoTest:                "EchoTest",
	AdminPaddleA2D:               "PaddleA2D",
	AdminSpeedA2D:                "SpeedA2D",
	AdminGetValues:               "GetValues",
	AdminDebugInternal:           "DebugInternal",
	AdminGetFirmwareMajorVersion: "GetFirmwareMajorVersion",
	AdminSetReportingV1:          "SetReportingV1",
	AdminSetReportingV2:          "SetReportingV2",
	AdminDumpEEPROM:              "DumpEEPROM",
	AdminLoadEEPROM:              "LoadEEPROM",
	AdminSendMessageByID:         "SendMessageByID",
	AdminLoadExtensionR1:         "LoadExtensionR1",
	AdminFirmwareUpdate:          "FirmwareUpdate",
	AdminSetBaudRateLow:          "SetBaudRateLow",
	AdminSetBaudRateHigh:         "SetBaudRateHigh",
	AdminSetRTTYRegisters:        "SetRTTYRegisters",
	AdminSetReportingV3:          "SetReportingV3",
	AdminReadBackVcc:             "ReadBackVcc",
	AdminLoadExtensionR2:         "LoadExtensionR2",
	AdminGetFirmwareMinorVersion: "GetFirmwareMinorVersion",
	AdminSetSidetoneVolume:       "SetSidetoneVolume",
}

func (op AdminOpcode) String() string {
	if name, ok := adminOpcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("AdminOpcode(0x%02x)", byte(op))
}

// EEPROMSize is the size of the keyer's EEPROM image in bytes.
const EEPROMSize = 256

// Sidetone volume levels accepted by SetSidetoneVolume.
const (
	SidetoneVolumeLow  byte = 0x01
	SidetoneVolumeHigh byte = 0x04
)

// AdminCommand is an administrative operation. It reaches the wire only
// wrapped in Admin.
type AdminCommand interface {
	Opcode() AdminOpcode
	appendAdmin(dst []byte) ([]byte, error)
}

// EncodeAdmin returns the admin sub-frame for c: its sub-opcode followed by
// its payload. The Admin command opcode is not included.
func EncodeAdmin(c AdminCommand) ([]byte, error) {
	if c == nil {
		return nil, ErrNilCommand
	}
	frame, err := c.appendAdmin(make([]byte, 0, 2))
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// Calibrate is only meaningful on WK1; later keyers ignore it.
type Calibrate struct{}

func (Calibrate) Opcode() AdminOpcode { return AdminCalibrate }
func (c Calibrate) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// ResetKeyer cold-reboots the keyer processor.
type ResetKeyer struct{}

func (ResetKeyer) Opcode() AdminOpcode { return AdminResetKeyer }
func (c ResetKeyer) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// OpenHostConnection enables host mode. The keyer answers with its
// firmware revision, which the host must wait for.
type OpenHostConnection struct{}

func (OpenHostConnection) Opcode() AdminOpcode { return AdminOpenHostConnection }
func (c OpenHostConnection) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// CloseHostConnection returns the keyer to standby.
type CloseHostConnection struct{}

func (CloseHostConnection) Opcode() AdminOpcode { return AdminCloseHostConnection }
func (c CloseHostConnection) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// EchoTest asks the keyer to echo Value back to the host.
type EchoTest struct {
	Value byte
}

func (EchoTest) Opcode() AdminOpcode { return AdminEchoTest }
func (c EchoTest) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Value), nil
}

// PaddleA2D is historical; WK3 always answers 0.
type PaddleA2D struct{}

func (PaddleA2D) Opcode() AdminOpcode { return AdminPaddleA2D }
func (c PaddleA2D) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// SpeedA2D is historical; WK3 always answers 0.
type SpeedA2D struct{}

func (SpeedA2D) Opcode() AdminOpcode { return AdminSpeedA2D }
func (c SpeedA2D) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// GetValues is historical; WK3 always answers 0.
type GetValues struct{}

func (GetValues) Opcode() AdminOpcode { return AdminGetValues }
func (c GetValues) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// DebugInternal is reserved for the manufacturer.
type DebugInternal struct{}

func (DebugInternal) Opcode() AdminOpcode { return AdminDebugInternal }
func (c DebugInternal) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

type GetFirmwareMajorVersion struct{}

func (GetFirmwareMajorVersion) Opcode() AdminOpcode { return AdminGetFirmwareMajorVersion }
func (c GetFirmwareMajorVersion) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// SetReportingV1 selects WK1 mode, pushbutton reporting off.
type SetReportingV1 struct{}

func (SetReportingV1) Opcode() AdminOpcode { return AdminSetReportingV1 }
func (c SetReportingV1) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// SetReportingV2 selects WK2 mode, pushbutton reporting on.
type SetReportingV2 struct{}

func (SetReportingV2) Opcode() AdminOpcode { return AdminSetReportingV2 }
func (c SetReportingV2) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// DumpEEPROM asks for all EEPROMSize bytes of the keyer EEPROM.
type DumpEEPROM struct{}

func (DumpEEPROM) Opcode() AdminOpcode { return AdminDumpEEPROM }
func (c DumpEEPROM) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// LoadEEPROM downloads a full EEPROM image. Image must be exactly
// EEPROMSize bytes and is sent in order.
type LoadEEPROM struct {
	Image []byte
}

func (LoadEEPROM) Opcode() AdminOpcode { return AdminLoadEEPROM }
func (c LoadEEPROM) appendAdmin(dst []byte) ([]byte, error) {
	if len(c.Image) != EEPROMSize {
		return nil, invalidPayload("Admin/LoadEEPROM", "Image", "has %d bytes, want %d", len(c.Image), EEPROMSize)
	}
	dst = append(dst, byte(c.Opcode()))
	return append(dst, c.Image...), nil
}

// SendMessageByID starts one of the keyer's stored messages. Only the
// opcode is encoded here; the caller must send the message number byte
// next, or the keyer consumes the following opcode as the number.
type SendMessageByID struct{}

func (SendMessageByID) Opcode() AdminOpcode { return AdminSendMessageByID }
func (c SendMessageByID) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// LoadExtensionR1 loads the X1MODE register. Bit meanings differ between
// WK2 and WK3 mode.
type LoadExtensionR1 struct {
	Value byte
}

func (LoadExtensionR1) Opcode() AdminOpcode { return AdminLoadExtensionR1 }
func (c LoadExtensionR1) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Value), nil
}

// FirmwareUpdate starts a protected image upload.
type FirmwareUpdate struct{}

func (FirmwareUpdate) Opcode() AdminOpcode { return AdminFirmwareUpdate }
func (c FirmwareUpdate) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// SetBaudRateLow switches the keyer serial line to 1200 baud.
type SetBaudRateLow struct{}

func (SetBaudRateLow) Opcode() AdminOpcode { return AdminSetBaudRateLow }
func (c SetBaudRateLow) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// SetBaudRateHigh switches the keyer serial line to 9600 baud.
type SetBaudRateHigh struct{}

func (SetBaudRateHigh) Opcode() AdminOpcode { return AdminSetBaudRateHigh }
func (c SetBaudRateHigh) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// SetRTTYRegisters selects the RTTY register set (WK3.1 only). Only the
// opcode is encoded here; the caller must send the P1 and P2 bytes next,
// or the keyer consumes the following bytes as the register values.
type SetRTTYRegisters struct{}

func (SetRTTYRegisters) Opcode() AdminOpcode { return AdminSetRTTYRegisters }
func (c SetRTTYRegisters) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// SetReportingV3 enables WK3 functions and the X2MODE register.
type SetReportingV3 struct{}

func (SetReportingV3) Opcode() AdminOpcode { return AdminSetReportingV3 }
func (c SetReportingV3) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// ReadBackVcc asks for the supply voltage byte (26214/value = volts*100).
type ReadBackVcc struct{}

func (ReadBackVcc) Opcode() AdminOpcode { return AdminReadBackVcc }
func (c ReadBackVcc) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// LoadExtensionR2 loads the X2MODE register (WK3 mode only).
type LoadExtensionR2 struct {
	Value byte
}

func (LoadExtensionR2) Opcode() AdminOpcode { return AdminLoadExtensionR2 }
func (c LoadExtensionR2) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode()), c.Value), nil
}

type GetFirmwareMinorVersion struct{}

func (GetFirmwareMinorVersion) Opcode() AdminOpcode { return AdminGetFirmwareMinorVersion }
func (c GetFirmwareMinorVersion) appendAdmin(dst []byte) ([]byte, error) {
	return append(dst, byte(c.Opcode())), nil
}

// SetSidetoneVolume sets the sidetone level. Only SidetoneVolumeLow and
// SidetoneVolumeHigh are accepted.
type SetSidetoneVolume struct {
	Level byte
}

func (SetSidetoneVolume) Opcode() AdminOpcode { return AdminSetSidetoneVolume }
func (c SetSidetoneVolume) appendAdmin(dst []byte) ([]byte, error) {
	if c.Level != SidetoneVolumeLow && c.Level != SidetoneVolumeHigh {
		return nil, invalidPayload("Admin/SetSidetoneVolume", "Level", "0x%02x is not 0x%02x (low) or 0x%02x (high)",
			c.Level, SidetoneVolumeLow, SidetoneVolumeHigh)
	}
	return append(dst, byte(c.Opcode()), c.Level), nil
}
