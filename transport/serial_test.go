package transport

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/moffa90/go-r503/sensor"
)

// fakePort hands out queued chunks, one per Read, and returns 0 bytes once
// they run out, as a serial port does when its read timeout passes.
type fakePort struct {
	chunks   [][]byte
	written  bytes.Buffer
	timeouts []time.Duration
	resets   int
	readErr  error
	closed   bool
}

func (f *fakePort) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, f.chunks[0])
	if n < len(f.chunks[0]) {
		f.chunks[0] = f.chunks[0][n:]
	} else {
		f.chunks = f.chunks[1:]
	}
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) { return f.written.Write(p) }

func (f *fakePort) ResetInputBuffer() error {
	f.resets++
	f.chunks = nil
	return nil
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.timeouts = append(f.timeouts, t)
	return nil
}

func (f *fakePort) Close() error {
	f.closed = true
	return nil
}

func TestSerialReadFull(t *testing.T) {
	tests := []struct {
		name    string
		chunks  [][]byte
		size    int
		want    []byte
		timeout bool
	}{
		{
			name:   "single read",
			chunks: [][]byte{{0xEF, 0x01, 0xFF}},
			size:   3,
			want:   []byte{0xEF, 0x01, 0xFF},
		},
		{
			name:   "assembled from pieces",
			chunks: [][]byte{{0xEF}, {0x01, 0xFF}, {0xFF, 0xFF}},
			size:   5,
			want:   []byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF},
		},
		{
			name:    "short reply times out",
			chunks:  [][]byte{{0xEF, 0x01}},
			size:    4,
			want:    []byte{0xEF, 0x01},
			timeout: true,
		},
		{
			name:    "silence times out",
			size:    2,
			want:    []byte{},
			timeout: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := &fakePort{chunks: tt.chunks}
			s := newSerial(fp, "test", nil)

			buf := make([]byte, tt.size)
			n, err := s.ReadFull(buf, time.Second)

			assert.Equal(t, tt.want, buf[:n])
			if tt.timeout {
				assert.ErrorIs(t, err, sensor.ErrTimeout)
			} else {
				assert.NoError(t, err)
			}
			for _, d := range fp.timeouts {
				assert.LessOrEqual(t, d, time.Second)
			}
		})
	}
}

func TestSerialReadError(t *testing.T) {
	fp := &fakePort{readErr: errors.New("device unplugged")}
	s := newSerial(fp, "test", nil)

	_, err := s.ReadFull(make([]byte, 4), time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, sensor.ErrTimeout)
}

func TestSerialWriteFlushClose(t *testing.T) {
	fp := &fakePort{chunks: [][]byte{{0x01, 0x02}}}
	s := newSerial(fp, "test", nil)

	n, err := s.Write([]byte{0xEF, 0x01})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0xEF, 0x01}, fp.written.Bytes())

	require.NoError(t, s.Flush())
	assert.Equal(t, 1, fp.resets)
	assert.Empty(t, fp.chunks)

	require.NoError(t, s.Close())
	assert.True(t, fp.closed)
}

func TestDescribePortError(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, plain, describePortError(plain))

	_, err := serial.Open("/dev/does-not-exist-r503", &serial.Mode{BaudRate: DefaultBaudRate})
	require.Error(t, err)

	described := describePortError(err)
	assert.ErrorIs(t, described, err)
}

var _ sensor.Transport = (*Serial)(nil)
var _ sensor.Flusher = (*Serial)(nil)
var _ sensor.Presence = (*WakeupPin)(nil)
