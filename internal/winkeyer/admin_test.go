package winkeyer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eepromImage(prefix ...byte) []byte {
	image := bytes.Repeat([]byte{0xff}, EEPROMSize)
	copy(image, prefix)
	return image
}

// allAdminCommands lists one value of every admin variant with its frame.
func allAdminCommands() []struct {
	command AdminCommand
	want    []byte
} {
	image := eepromImage(0xf0, 0xe0, 0xd0)
	return []struct {
		command AdminCommand
		want    []byte
	}{
		{Calibrate{}, []byte{0x00}},
		{ResetKeyer{}, []byte{0x01}},
		{OpenHostConnection{}, []byte{0x02}},
		{CloseHostConnection{}, []byte{0x03}},
		{EchoTest{Value: 0x88}, []byte{0x04, 0x88}},
		{PaddleA2D{}, []byte{0x05}},
		{SpeedA2D{}, []byte{0x06}},
		{GetValues{}, []byte{0x07}},
		{DebugInternal{}, []byte{0x08}},
		{GetFirmwareMajorVersion{}, []byte{0x09}},
		{SetReportingV1{}, []byte{0x10}},
		{SetReportingV2{}, []byte{0x11}},
		{DumpEEPROM{}, []byte{0x12}},
		{LoadEEPROM{Image: image}, append([]byte{0x13}, image...)},
		{SendMessageByID{}, []byte{0x14}},
		{LoadExtensionR1{Value: 0x5a}, []byte{0x15, 0x5a}},
		{FirmwareUpdate{}, []byte{0x16}},
		{SetBaudRateLow{}, []byte{0x17}},
		{SetBaudRateHigh{}, []byte{0x18}},
		{SetRTTYRegisters{}, []byte{0x19}},
		{SetReportingV3{}, []byte{0x20}},
		{ReadBackVcc{}, []byte{0x21}},
		{LoadExtensionR2{Value: 0xa5}, []byte{0x22, 0xa5}},
		{GetFirmwareMinorVersion{}, []byte{0x23}},
		{SetSidetoneVolume{Level: SidetoneVolumeHigh}, []byte{0x24, 0x04}},
	}
}

func TestEncodeAdminEveryVariant(t *testing.T) {
	for _, tc := range allAdminCommands() {
		t.Run(tc.command.Opcode().String(), func(t *testing.T) {
			frame, err := EncodeAdmin(tc.command)
			require.NoError(t, err)
			assert.Equal(t, tc.want, frame)
			assert.Equal(t, byte(tc.command.Opcode()), frame[0])
		})
	}
}

func TestAdminOpcodesAreUnique(t *testing.T) {
	seen := make(map[AdminOpcode]string)
	for _, tc := range allAdminCommands() {
		op := tc.command.Opcode()
		if other, dup := seen[op]; dup {
			t.Fatalf("opcode 0x%02x shared by %s and %s", byte(op), other, op)
		}
		seen[op] = op.String()
	}
	assert.Len(t, seen, len(adminOpcodeNames), "every named admin opcode has a variant")
}

func TestEncodeAdminEchoTest(t *testing.T) {
	frame, err := Encode(Admin{Command: EchoTest{Value: 0x88}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x04, 0x88}, frame)
}

func TestLoadEEPROMLength(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"three bytes", 3},
		{"one short", EEPROMSize - 1},
		{"one over", EEPROMSize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := EncodeAdmin(LoadEEPROM{Image: make([]byte, tt.size)})
			require.Error(t, err)
			assert.Nil(t, frame, "no partial frame on rejection")
			assert.True(t, errors.Is(err, ErrInvalidPayload))

			var payloadErr *PayloadError
			require.True(t, errors.As(err, &payloadErr))
			assert.Equal(t, "Admin/LoadEEPROM", payloadErr.Command)
			assert.Equal(t, "Image", payloadErr.Field)
		})
	}
}

func TestLoadEEPROMPreservesOrder(t *testing.T) {
	image := make([]byte, EEPROMSize)
	for i := range image {
		image[i] = byte(EEPROMSize - 1 - i)
	}

	frame, err := EncodeAdmin(LoadEEPROM{Image: image})
	require.NoError(t, err)
	require.Len(t, frame, EEPROMSize+1)
	assert.Equal(t, image, frame[1:])
}

func TestSetSidetoneVolumeLevels(t *testing.T) {
	for level := 0; level <= 0xff; level++ {
		frame, err := EncodeAdmin(SetSidetoneVolume{Level: byte(level)})
		switch byte(level) {
		case SidetoneVolumeLow, SidetoneVolumeHigh:
			require.NoError(t, err)
			assert.Equal(t, []byte{0x24, byte(level)}, frame)
		default:
			require.ErrorIs(t, err, ErrInvalidPayload, "level 0x%02x", level)
			assert.Nil(t, frame)
		}
	}
}

func TestEncodeAdminNil(t *testing.T) {
	frame, err := EncodeAdmin(nil)
	assert.ErrorIs(t, err, ErrNilCommand)
	assert.Nil(t, frame)
}

func TestAdminOpcodeString(t *testing.T) {
	assert.Equal(t, "OpenHostConnection", AdminOpenHostConnection.String())
	assert.Equal(t, "AdminOpcode(0x7e)", AdminOpcode(0x7e).String())
}

func TestEncodeAdminFollowUpBytesAreCallerOwned(t *testing.T) {
	// The message number and RTTY registers travel as separate writes.
	for _, cmd := range []AdminCommand{SendMessageByID{}, SetRTTYRegisters{}} {
		frame, err := EncodeAdmin(cmd)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(cmd.Opcode())}, frame)
	}
}
