package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/radio-control/keyer/internal/serialport/fake"
	"github.com/radio-control/keyer/internal/winkeyer"
)

func TestRunFrameSequence(t *testing.T) {
	port := fake.NewPort()
	s := New(port, zaptest.NewLogger(t))

	err := s.Run(context.Background(), Plan{Repeat: 3, Key: winkeyer.KeyDah})
	require.NoError(t, err)

	want := [][]byte{{0x00, 0x02}}
	for i := 0; i < 3; i++ {
		want = append(want, []byte{0x14, 0x02}, []byte{0x14, 0x00})
	}
	want = append(want, []byte{0x00, 0x03})
	assert.Equal(t, want, port.Frames())
	assert.False(t, s.Status().Open)
}

func TestRunLoadsSettings(t *testing.T) {
	port := fake.NewPort()
	s := New(port, nil)
	settings := &winkeyer.Settings{SpeedWPM: 20, PinConfig: 0x05}

	require.NoError(t, s.Run(context.Background(), Plan{Repeat: 1, Key: winkeyer.KeyDit, Settings: settings}))

	frames := port.Frames()
	require.Len(t, frames, 5)
	block := settings.Bytes()
	assert.Equal(t, append([]byte{0x0f}, block[:]...), frames[1])
	assert.Equal(t, []byte{0x14, 0x01}, frames[2])
}

func TestRunZeroRepeat(t *testing.T) {
	port := fake.NewPort()
	s := New(port, nil)

	require.NoError(t, s.Run(context.Background(), Plan{Key: winkeyer.KeyDah}))
	assert.Equal(t, [][]byte{{0x00, 0x02}, {0x00, 0x03}}, port.Frames())
}

// cancelOnKeyDown cancels the run as soon as the key goes down.
type cancelOnKeyDown struct {
	*fake.Port
	once   sync.Once
	cancel context.CancelFunc
}

func (p *cancelOnKeyDown) Write(b []byte) (int, error) {
	n, err := p.Port.Write(b)
	if len(b) == 2 && b[0] == byte(winkeyer.OpDoKey) && b[1] != 0 {
		p.once.Do(p.cancel)
	}
	return n, err
}

func TestRunCancelledReleasesAndCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	port := &cancelOnKeyDown{Port: fake.NewPort(), cancel: cancel}
	s := New(port, zaptest.NewLogger(t))

	err := s.Run(ctx, Plan{Repeat: 5, Key: winkeyer.KeyDah, Hold: time.Hour, Gap: time.Hour})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, [][]byte{
		{0x00, 0x02},
		{0x14, 0x02},
		{0x14, 0x00},
		{0x00, 0x03},
	}, port.Frames())
	assert.False(t, s.Status().Open)
}

func TestRunCancelledDuringGap(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	port := fake.NewPort()
	s := New(port, nil)

	err := s.Run(ctx, Plan{Repeat: 2, Key: winkeyer.KeyDit, Gap: time.Hour})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	frames := port.Frames()
	require.Len(t, frames, 4)
	assert.Equal(t, []byte{0x00, 0x03}, frames[3], "key already released, only close is sent")
}

func TestRunPortFailureStops(t *testing.T) {
	port := fake.NewPort()
	port.SetErrorSimulation("UNAVAILABLE")
	s := New(port, zaptest.NewLogger(t))

	err := s.Run(context.Background(), Plan{Repeat: 3, Key: winkeyer.KeyDah})
	assert.Error(t, err)
	assert.Empty(t, port.Frames())
}

func TestShutdownReleasesAndCloses(t *testing.T) {
	port := fake.NewPort()
	s := New(port, nil)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Open(ctx))
	require.NoError(t, s.Key(ctx, winkeyer.KeyDah))
	cancel()

	require.NoError(t, s.Shutdown(ctx))
	assert.Equal(t, [][]byte{
		{0x00, 0x02},
		{0x14, 0x02},
		{0x14, 0x00},
		{0x00, 0x03},
	}, port.Frames())

	// Nothing left to undo.
	require.NoError(t, s.Shutdown(context.Background()))
	assert.Len(t, port.Frames(), 4)
}

func TestShutdownIdleSessionSendsNothing(t *testing.T) {
	port := fake.NewPort()
	s := New(port, nil)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Empty(t, port.Frames())
}
