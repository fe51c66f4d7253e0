package protocol

import (
	"bytes"
	"errors"
	"testing"
)

// Helper function to build a valid acknowledge frame for testing
func buildTestResponse(code byte, data []byte) []byte {
	frame, err := BuildFrame(DefaultAddress, PIDAck, append([]byte{code}, data...))
	if err != nil {
		panic(err)
	}
	return frame
}

func TestParseResponse(t *testing.T) {
	valid := buildTestResponse(CodeOK, nil)

	tests := []struct {
		name     string
		frame    []byte
		wantCode byte
		wantData int
		wantKind FrameErrorKind
	}{
		{
			name:     "valid response with no data",
			frame:    valid,
			wantCode: CodeOK,
		},
		{
			name:     "valid response with data",
			frame:    buildTestResponse(CodeOK, []byte{0x00, 0x05, 0x00, 0x64}),
			wantCode: CodeOK,
			wantData: 4,
		},
		{
			name:     "error code is returned, not interpreted",
			frame:    buildTestResponse(CodeNoFinger, nil),
			wantCode: CodeNoFinger,
		},
		{
			name:     "undocumented code is returned raw",
			frame:    buildTestResponse(0x77, nil),
			wantCode: 0x77,
		},
		{
			name:     "header too short",
			frame:    valid[:5],
			wantKind: Truncated,
		},
		{
			name:     "body shorter than declared",
			frame:    valid[:len(valid)-1],
			wantKind: Truncated,
		},
		{
			name:     "trailing bytes",
			frame:    append(append([]byte{}, valid...), 0x00),
			wantKind: LengthMismatch,
		},
		{
			name:     "bad header",
			frame:    append([]byte{0xEF, 0x02}, valid[2:]...),
			wantKind: BadHeader,
		},
		{
			name:     "other address",
			frame:    append([]byte{0xEF, 0x01, 0x00, 0x00, 0x00, 0x01}, valid[6:]...),
			wantKind: BadAddress,
		},
		{
			name:     "checksum mismatch",
			frame:    []byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x07, 0x00, 0x03, 0x00, 0xFF, 0xFF},
			wantKind: ChecksumMismatch,
		},
		{
			name:     "command packet instead of ack",
			frame:    mustBuild(BuildGenImgCmd(DefaultAddress)),
			wantKind: UnexpectedPacket,
		},
		{
			name:     "ack without confirmation code",
			frame:    []byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x07, 0x00, 0x02, 0x00, 0x09},
			wantKind: EmptyPayload,
		},
		{
			name:     "declared length beyond maximum",
			frame:    []byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x07, 0xFF, 0xFF},
			wantKind: LengthMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse(tt.frame, DefaultAddress)

			if tt.wantKind != 0 {
				if err == nil {
					t.Fatalf("expected %s, got nil", tt.wantKind)
				}
				if !errors.Is(err, &FrameError{Kind: tt.wantKind}) {
					t.Errorf("error = %v, want kind %s", err, tt.wantKind)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = 0x%02X, want 0x%02X", resp.Code, tt.wantCode)
			}
			if len(resp.Data) != tt.wantData {
				t.Errorf("data length = %d, want %d", len(resp.Data), tt.wantData)
			}
		})
	}
}

func TestParseResponseSingleBitFlip(t *testing.T) {
	frame := buildTestResponse(CodeOK, []byte{0x00, 0x03, 0x00, 0x64})

	for i := 0; i < len(frame); i++ {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte{}, frame...)
			corrupt[i] ^= 1 << bit

			_, err := ParseResponse(corrupt, DefaultAddress)
			if err == nil {
				t.Fatalf("byte %d bit %d: corrupted frame decoded without error", i, bit)
			}

			// PID, payload and checksum flips can only be caught by the checksum
			covered := i == 6 || i >= HeaderSize
			if covered && !errors.Is(err, &FrameError{Kind: ChecksumMismatch}) {
				t.Errorf("byte %d bit %d: error = %v, want checksum mismatch", i, bit, err)
			}
		}
	}
}

func TestParseSearchResponse(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    SearchResult
		wantErr bool
	}{
		{
			name: "match in slot 5 with score 100",
			data: []byte{0x00, 0x05, 0x00, 0x64},
			want: SearchResult{Slot: 5, Confidence: 100},
		},
		{
			name: "big-endian fields",
			data: []byte{0x01, 0x02, 0x03, 0x04},
			want: SearchResult{Slot: 0x0102, Confidence: 0x0304},
		},
		{
			name:    "too short",
			data:    []byte{0x00, 0x05},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSearchResponse(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("result = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestParseIndexTableResponse(t *testing.T) {
	data := make([]byte, IndexTableResponseSize)
	data[0] = 0x0A  // slots 1 and 3
	data[1] = 0x80  // slot 15
	data[31] = 0x80 // slot 255

	slots, err := ParseIndexTableResponse(0, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 3, 15, 255}
	if len(slots) != len(want) {
		t.Fatalf("slots = %v, want %v", slots, want)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Errorf("slots[%d] = %d, want %d", i, slots[i], want[i])
		}
	}

	slots, err = ParseIndexTableResponse(1, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots[0] != 257 {
		t.Errorf("first slot on page 1 = %d, want 257", slots[0])
	}

}

func TestEncodeIndexTableRoundTrip(t *testing.T) {
	in := []int{0, 3, 8, 199, 300}
	data := EncodeIndexTable(0, in)

	out, err := ParseIndexTableResponse(0, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{0, 3, 8, 199}
	if len(out) != len(want) {
		t.Fatalf("slots = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("slots[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestParseSysParamsResponse(t *testing.T) {
	data := []byte{
		0x00, 0x00, // status
		0x00, 0x09, // system id
		0x00, 0xC8, // library size 200
		0x00, 0x03, // security level
		0xFF, 0xFF, 0xFF, 0xFF, // address
		0x00, 0x03, // packet size code (256 bytes)
		0x00, 0x06, // baud 57600
	}

	p, err := ParseSysParamsResponse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Capacity != 200 {
		t.Errorf("Capacity = %d, want 200", p.Capacity)
	}
	if p.SecurityLevel != 3 {
		t.Errorf("SecurityLevel = %d, want 3", p.SecurityLevel)
	}
	if p.Address != DefaultAddress {
		t.Errorf("Address = 0x%08X, want 0x%08X", p.Address, uint32(DefaultAddress))
	}
	if p.PacketSize() != 256 {
		t.Errorf("PacketSize() = %d, want 256", p.PacketSize())
	}
	if p.BaudRate() != 57600 {
		t.Errorf("BaudRate() = %d, want 57600", p.BaudRate())
	}
	if !bytes.Equal(EncodeSysParams(*p), data) {
		t.Errorf("EncodeSysParams() = % X, want % X", EncodeSysParams(*p), data)
	}

}

func TestParseTemplateCountResponse(t *testing.T) {
	n, err := ParseTemplateCountResponse([]byte{0x00, 0x0C})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 12 {
		t.Errorf("count = %d, want 12", n)
	}
}

func TestParseResponseDataLength(t *testing.T) {
	tests := []struct {
		name  string
		op    byte
		parse func([]byte) error
	}{
		{"search", CmdSearch, func(d []byte) error { _, err := ParseSearchResponse(d); return err }},
		{"index table", CmdReadIndexTable, func(d []byte) error { _, err := ParseIndexTableResponse(0, d); return err }},
		{"system parameters", CmdReadSysPara, func(d []byte) error { _, err := ParseSysParamsResponse(d); return err }},
		{"template count", CmdTemplateNum, func(d []byte) error { _, err := ParseTemplateCountResponse(d); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := ResponseDataSize(tt.op)
			if size == 0 {
				t.Fatalf("ResponseDataSize(0x%02X) = 0", tt.op)
			}

			for _, n := range []int{0, size - 1, size + 2} {
				err := tt.parse(make([]byte, n))
				if !errors.Is(err, &FrameError{Kind: LengthMismatch}) {
					t.Errorf("%d bytes: got %v, want length mismatch", n, err)
				}
			}
			if err := tt.parse(make([]byte, size)); err != nil {
				t.Errorf("%d bytes: unexpected error: %v", size, err)
			}
		})
	}

	for _, op := range []byte{CmdGenImg, CmdStore, CmdVerifyPassword, CmdAuraLedConfig} {
		if n := ResponseDataSize(op); n != 0 {
			t.Errorf("ResponseDataSize(0x%02X) = %d, want 0", op, n)
		}
	}
}

func mustBuild(frame []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return frame
}
