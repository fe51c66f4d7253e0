package simulator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-r503/protocol"
	"github.com/moffa90/go-r503/sensor"
)

// exchange writes one command and reads the whole reply.
func exchange(t *testing.T, d *Device, frame []byte) *protocol.Response {
	t.Helper()

	_, err := d.Write(frame)
	require.NoError(t, err)

	buf := make([]byte, d.Pending())
	n, err := d.ReadFull(buf, time.Second)
	require.NoError(t, err)

	resp, err := protocol.ParseResponse(buf[:n], protocol.DefaultAddress)
	require.NoError(t, err)
	return resp
}

func TestDeviceGenImgFollowsTouches(t *testing.T) {
	d := New()
	d.QueueTouches(NoTouch, 7, Smudge)

	want := []byte{protocol.CodeNoFinger, protocol.CodeOK, protocol.CodeImageFail, protocol.CodeNoFinger}
	for i, code := range want {
		resp := exchange(t, d, must(protocol.BuildGenImgCmd(protocol.DefaultAddress)))
		assert.Equal(t, code, resp.Code, "GenImg #%d", i+1)
	}

	d.PlaceFinger(4)
	assert.True(t, d.WaitForFinger(0))
	resp := exchange(t, d, must(protocol.BuildGenImgCmd(protocol.DefaultAddress)))
	assert.Equal(t, byte(protocol.CodeOK), resp.Code)

	d.LiftFinger()
	assert.False(t, d.WaitForFinger(0))
}

func TestDeviceAutoTouchAlternates(t *testing.T) {
	d := New(WithAutoTouch(9))

	var codes []byte
	for i := 0; i < 4; i++ {
		resp := exchange(t, d, must(protocol.BuildGenImgCmd(protocol.DefaultAddress)))
		codes = append(codes, resp.Code)
	}
	assert.Equal(t, []byte{protocol.CodeOK, protocol.CodeNoFinger, protocol.CodeOK, protocol.CodeNoFinger}, codes)
}

func TestDeviceRegModel(t *testing.T) {
	tests := []struct {
		name    string
		touches []Touch
		want    byte
	}{
		{"two samples of one finger", []Touch{5, 5}, protocol.CodeOK},
		{"different fingers", []Touch{5, 6}, protocol.CodeEnrollMismatch},
		{"single sample", []Touch{5}, protocol.CodeEnrollMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			for i, touch := range tt.touches {
				d.QueueTouches(touch)
				exchange(t, d, must(protocol.BuildGenImgCmd(protocol.DefaultAddress)))
				exchange(t, d, must(protocol.BuildGenCharCmd(protocol.DefaultAddress, i+1)))
			}

			resp := exchange(t, d, must(protocol.BuildRegModelCmd(protocol.DefaultAddress)))
			assert.Equal(t, tt.want, resp.Code)
		})
	}
}

func TestDeviceLibraryCommands(t *testing.T) {
	d := New(WithTemplates(map[int]Touch{2: 8, 9: 3}))

	resp := exchange(t, d, must(protocol.BuildTemplateNumCmd(protocol.DefaultAddress)))
	count, err := protocol.ParseTemplateCountResponse(resp.Data)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	resp = exchange(t, d, must(protocol.BuildReadIndexTableCmd(protocol.DefaultAddress, 0)))
	slots, err := protocol.ParseIndexTableResponse(0, resp.Data)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 9}, slots)

	resp = exchange(t, d, must(protocol.BuildDeleteCharCmd(protocol.DefaultAddress, 2, 1)))
	assert.Equal(t, byte(protocol.CodeOK), resp.Code)
	assert.Equal(t, map[int]Touch{9: 3}, d.Library())

	resp = exchange(t, d, must(protocol.BuildDeleteCharCmd(protocol.DefaultAddress, 199, 2)))
	assert.Equal(t, byte(protocol.CodeBadLocation), resp.Code)

	resp = exchange(t, d, must(protocol.BuildEmptyCmd(protocol.DefaultAddress)))
	assert.Equal(t, byte(protocol.CodeOK), resp.Code)
	assert.Empty(t, d.Library())
}

func TestDeviceSearch(t *testing.T) {
	d := New(WithTemplates(map[int]Touch{4: 1, 11: 2}), WithSecurityLevel(2))

	d.QueueTouches(2)
	exchange(t, d, must(protocol.BuildGenImgCmd(protocol.DefaultAddress)))
	exchange(t, d, must(protocol.BuildGenCharCmd(protocol.DefaultAddress, 1)))

	resp := exchange(t, d, must(protocol.BuildSearchCmd(protocol.DefaultAddress, 1, 0, 200)))
	require.Equal(t, byte(protocol.CodeOK), resp.Code)
	match, err := protocol.ParseSearchResponse(resp.Data)
	require.NoError(t, err)
	assert.Equal(t, 11, match.Slot)
	assert.Equal(t, 160, match.Confidence)

	resp = exchange(t, d, must(protocol.BuildSearchCmd(protocol.DefaultAddress, 1, 0, 10)))
	assert.Equal(t, byte(protocol.CodeNotFound), resp.Code)

	exchange(t, d, must(protocol.BuildEmptyCmd(protocol.DefaultAddress)))
	resp = exchange(t, d, must(protocol.BuildSearchCmd(protocol.DefaultAddress, 1, 0, 200)))
	assert.Equal(t, byte(protocol.CodeLibraryEmpty), resp.Code)
}

func TestDeviceSysParams(t *testing.T) {
	d := New(WithCapacity(300), WithPassword(0x1234))

	resp := exchange(t, d, must(protocol.BuildVerifyPasswordCmd(protocol.DefaultAddress, 0)))
	assert.Equal(t, byte(protocol.CodePasswordFail), resp.Code)
	resp = exchange(t, d, must(protocol.BuildVerifyPasswordCmd(protocol.DefaultAddress, 0x1234)))
	assert.Equal(t, byte(protocol.CodeOK), resp.Code)

	resp = exchange(t, d, must(protocol.BuildSetSysParaCmd(protocol.DefaultAddress, protocol.ParamSecurityLevel, 5)))
	assert.Equal(t, byte(protocol.CodeOK), resp.Code)

	resp = exchange(t, d, must(protocol.BuildReadSysParaCmd(protocol.DefaultAddress)))
	params, err := protocol.ParseSysParamsResponse(resp.Data)
	require.NoError(t, err)
	assert.Equal(t, 300, params.Capacity)
	assert.Equal(t, 5, params.SecurityLevel)
	assert.Equal(t, 57600, params.BaudRate())
	assert.Equal(t, 128, params.PacketSize())
}

func TestDeviceLED(t *testing.T) {
	d := New()
	pattern := protocol.LedPattern{Mode: protocol.LedBreathing, Speed: 0x80, Color: protocol.LedBlue, Cycles: 3}

	resp := exchange(t, d, must(protocol.BuildAuraLedConfigCmd(protocol.DefaultAddress, pattern)))
	assert.Equal(t, byte(protocol.CodeOK), resp.Code)
	assert.Equal(t, []protocol.LedPattern{pattern}, d.LEDs())
}

func TestDeviceRejectsBadFrames(t *testing.T) {
	d := New()

	frame := must(protocol.BuildGenImgCmd(protocol.DefaultAddress))
	frame[len(frame)-1] ^= 0xFF
	_, err := d.Write(frame)
	require.NoError(t, err)

	buf := make([]byte, protocol.MinFrameSize)
	_, err = d.ReadFull(buf, time.Second)
	require.NoError(t, err)
	resp, err := protocol.ParseResponse(buf, protocol.DefaultAddress)
	require.NoError(t, err)
	assert.Equal(t, byte(protocol.CodePacketError), resp.Code)
	assert.Empty(t, d.Commands())
}

func TestDeviceFaults(t *testing.T) {
	genImg := must(protocol.BuildGenImgCmd(protocol.DefaultAddress))

	t.Run("fail next", func(t *testing.T) {
		d := New()
		d.PlaceFinger(1)
		d.FailNext(protocol.CmdGenImg, protocol.CodeImageFail)

		assert.Equal(t, byte(protocol.CodeImageFail), exchange(t, d, genImg).Code)
		assert.Equal(t, byte(protocol.CodeOK), exchange(t, d, genImg).Code)
	})

	t.Run("delay next", func(t *testing.T) {
		d := New()
		d.DelayNext()
		_, _ = d.Write(genImg)

		buf := make([]byte, protocol.MinFrameSize)
		n, err := d.ReadFull(buf, time.Millisecond)
		assert.Equal(t, 0, n)
		assert.True(t, errors.Is(err, sensor.ErrTimeout))
		assert.Equal(t, protocol.MinFrameSize, d.Pending())

		require.NoError(t, d.Flush())
		assert.Zero(t, d.Pending())
	})

	t.Run("hold next", func(t *testing.T) {
		d := New()
		d.HoldNext()
		_, _ = d.Write(genImg)
		assert.Equal(t, protocol.MinFrameSize, d.Pending())

		buf := make([]byte, protocol.MinFrameSize)
		n, err := d.ReadFull(buf, time.Millisecond)
		assert.Equal(t, 0, n)
		assert.ErrorIs(t, err, sensor.ErrTimeout)

		require.NoError(t, d.Flush())
		assert.Equal(t, protocol.MinFrameSize, d.Pending(), "a held reply is still in flight")

		_, _ = d.Write(genImg)
		buf = make([]byte, 2*protocol.MinFrameSize)
		n, err = d.ReadFull(buf, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.Zero(t, d.Pending())
	})

	t.Run("drop next", func(t *testing.T) {
		d := New()
		d.DropNext()
		_, _ = d.Write(genImg)
		assert.Zero(t, d.Pending())
		assert.Equal(t, []byte{protocol.CmdGenImg}, d.Commands())
	})

	t.Run("truncate next", func(t *testing.T) {
		d := New()
		d.TruncateNext(5)
		_, _ = d.Write(genImg)

		buf := make([]byte, protocol.HeaderSize)
		n, err := d.ReadFull(buf, time.Millisecond)
		assert.Equal(t, 5, n)
		assert.ErrorIs(t, err, sensor.ErrTimeout)
	})

	t.Run("corrupt next", func(t *testing.T) {
		d := New()
		d.CorruptNext()
		_, _ = d.Write(genImg)

		buf := make([]byte, protocol.MinFrameSize)
		_, err := d.ReadFull(buf, time.Millisecond)
		require.NoError(t, err)
		_, err = protocol.ParseResponse(buf, protocol.DefaultAddress)
		assert.ErrorIs(t, err, &protocol.FrameError{Kind: protocol.ChecksumMismatch})
	})
}

func TestEnrollTouches(t *testing.T) {
	assert.Equal(t, []Touch{3}, EnrollTouches(3, 1))
	assert.Equal(t, []Touch{3, NoTouch, 3, NoTouch, 3}, EnrollTouches(3, 3))
}

func must(frame []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return frame
}
