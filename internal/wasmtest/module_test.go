package wasmtest

import (
	"bytes"
	"testing"
)

func TestLEB128(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{name: "uleb zero", got: uleb(nil, 0), want: []byte{0x00}},
		{name: "uleb 127", got: uleb(nil, 127), want: []byte{0x7f}},
		{name: "uleb 624485", got: uleb(nil, 624485), want: []byte{0xe5, 0x8e, 0x26}},
		{name: "sleb -1", got: sleb(nil, -1), want: []byte{0x7f}},
		{name: "sleb 64", got: sleb(nil, 64), want: []byte{0xc0, 0x00}},
		{name: "sleb -123456", got: sleb(nil, -123456), want: []byte{0xc0, 0xbb, 0x78}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !bytes.Equal(tt.got, tt.want) {
				t.Errorf("got % x, want % x", tt.got, tt.want)
			}
		})
	}
}

func TestEncodeHeader(t *testing.T) {
	out := (&Module{}).Encode()
	if !bytes.HasPrefix(out, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}) {
		t.Errorf("missing Wasm preamble: % x", out)
	}

	if bytes.Equal(LensGuest(GuestOptions{}), LensGuest(GuestOptions{NoAllocator: true})) {
		t.Error("NoAllocator should change the module")
	}
}

func TestEncodeWithoutMemory(t *testing.T) {
	withMemory := (&Module{MemoryPages: 1}).Encode()
	if !bytes.Contains(withMemory, []byte("memory")) {
		t.Fatal("memory export missing from default module")
	}

	out := MemorylessGuest()
	if bytes.Contains(out, []byte("memory")) {
		t.Error("memoryless guest exports memory")
	}
	if !bytes.Contains(out, []byte(ExportLenses)) {
		t.Errorf("memoryless guest does not export %s", ExportLenses)
	}
}
