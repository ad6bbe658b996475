package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radio-control/keyer/internal/serialport"
	"github.com/radio-control/keyer/internal/winkeyer"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestLogFrame(t *testing.T) {
	logger, err := NewLogger(t.TempDir(), "/dev/ttyUSB0", Options{MaxSizeMB: 1})
	require.NoError(t, err)

	ctx := context.Background()
	logger.LogFrame(ctx, "DoKey", []byte{0x14, 0x02}, nil)
	logger.LogFrame(ctx, "Admin/LoadEEPROM", nil, &winkeyer.PayloadError{Command: "Admin/LoadEEPROM", Field: "Image", Reason: "short"})
	require.NoError(t, logger.Close())

	entries := readEntries(t, logger.GetFilePath())
	require.Len(t, entries, 2)

	assert.Equal(t, "/dev/ttyUSB0", entries[0].Port)
	assert.Equal(t, "DoKey", entries[0].Action)
	assert.Equal(t, "0x14", entries[0].Opcode)
	assert.Equal(t, "1402", entries[0].Frame)
	assert.Equal(t, "SUCCESS", entries[0].Outcome)
	assert.Equal(t, "SUCCESS", entries[0].Code)
	assert.False(t, entries[0].Timestamp.IsZero())

	assert.Equal(t, "ERROR", entries[1].Outcome)
	assert.Equal(t, "INVALID_PAYLOAD", entries[1].Code)
	assert.Empty(t, entries[1].Frame)
	assert.NotEmpty(t, entries[1].Error)
}

func TestLogFrameCancelled(t *testing.T) {
	logger, err := NewLogger(t.TempDir(), "dry-run", Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	logger.LogFrame(ctx, "NoOp", []byte{0x13}, ctx.Err())
	require.NoError(t, logger.Close())

	entries := readEntries(t, logger.GetFilePath())
	require.Len(t, entries, 1)
	assert.Equal(t, "CANCELLED", entries[0].Outcome)
	assert.Equal(t, "CANCELLED", entries[0].Code)
}

func TestCodeFromError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "SUCCESS"},
		{winkeyer.ErrNilCommand, "NIL_COMMAND"},
		{fmt.Errorf("encode: %w", winkeyer.ErrInvalidPayload), "INVALID_PAYLOAD"},
		{context.DeadlineExceeded, "CANCELLED"},
		{&serialport.PortError{Code: serialport.ErrUnavailable, Original: errors.New("EIO")}, "UNAVAILABLE"},
		{&serialport.PortError{Code: serialport.ErrBusy, Original: errors.New("EBUSY")}, "BUSY"},
		{&serialport.PortError{Code: serialport.ErrInternal, Original: errors.New("framing")}, "INTERNAL"},
		{fmt.Errorf("open: %w", serialport.ErrUnsupported), "UNSUPPORTED"},
		{errors.New("boom"), "ERROR"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CodeFromError(tt.err), "%v", tt.err)
	}
}

func TestRotateKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "p", Options{MaxBackups: 2})
	require.NoError(t, err)

	logger.LogFrame(context.Background(), "NoOp", []byte{0x13}, nil)
	require.NoError(t, logger.Rotate())
	logger.LogFrame(context.Background(), "BufferedNoOp", []byte{0x1f}, nil)
	require.NoError(t, logger.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "audit*.jsonl"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	entries := readEntries(t, logger.GetFilePath())
	require.Len(t, entries, 1)
	assert.Equal(t, "BufferedNoOp", entries[0].Action)

	assert.Error(t, logger.Rotate(), "rotate after close")
}
