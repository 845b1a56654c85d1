package wire

import (
	"fmt"
	"io"
	"os"
	"testing"
)

type testObject uint32

func (obj testObject) ID() uint32                        { return uint32(obj) }
func (obj testObject) SetID(uint32)                      {}
func (obj testObject) Delete()                           {}
func (obj testObject) Dispatch(msg *MessageBuffer) error { return nil }
func (obj testObject) MethodName(op uint16) string       { return fmt.Sprintf("op%v", op) }
func (obj testObject) String() string                    { return fmt.Sprintf("test@%v", uint32(obj)) }

func pair(t *testing.T) (*Conn, *Conn) {
	t.Helper()

	a, b, err := Socketpair()
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestMessageRoundTrip(t *testing.T) {
	a, b := pair(t)

	mb := NewMessage(testObject(3), 7)
	mb.WriteUint(42)
	mb.WriteInt(-1)
	mb.WriteString("wl_compositor")
	mb.WriteArray([]byte{1, 2, 3})
	mb.WriteFixed(FixedFloat(1.5))
	mb.WriteNewID(NewID{Interface: "wl_output", Version: 4, ID: 9})
	err := mb.Build(a)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	msg, err := b.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if (msg.Sender() != 3) || (msg.Op() != 7) {
		t.Fatalf("header: sender %v, op %v", msg.Sender(), msg.Op())
	}
	if msg.Size()%4 != 0 {
		t.Fatalf("size %v is not 32-bit aligned", msg.Size())
	}

	if v := msg.ReadUint(); v != 42 {
		t.Errorf("uint: %v", v)
	}
	if v := msg.ReadInt(); v != -1 {
		t.Errorf("int: %v", v)
	}
	if v := msg.ReadString(); v != "wl_compositor" {
		t.Errorf("string: %q", v)
	}
	if v := msg.ReadArray(); string(v) != "\x01\x02\x03" {
		t.Errorf("array: %v", v)
	}
	if v := msg.ReadFixed(); v.Float() != 1.5 {
		t.Errorf("fixed: %v", v)
	}
	if v := msg.ReadNewID(); v != (NewID{Interface: "wl_output", Version: 4, ID: 9}) {
		t.Errorf("new_id: %v", v)
	}
	if err := msg.Err(); err != nil {
		t.Errorf("decode: %v", err)
	}
}

func TestReadPastEnd(t *testing.T) {
	a, b := pair(t)

	mb := NewMessage(testObject(1), 0)
	mb.WriteUint(1)
	if err := mb.Build(a); err != nil {
		t.Fatalf("build: %v", err)
	}

	msg, err := b.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg.ReadUint()
	msg.ReadUint()
	if err := msg.Err(); err != io.ErrUnexpectedEOF {
		t.Fatalf("expected unexpected EOF, got %v", err)
	}
}

func TestFileDescriptorsFollowTheirMessage(t *testing.T) {
	a, b := pair(t)

	plain := NewMessage(testObject(2), 0)
	plain.WriteUint(1)
	if err := plain.Build(a); err != nil {
		t.Fatalf("build plain: %v", err)
	}

	file, err := os.CreateTemp(t.TempDir(), "fd")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	defer file.Close()
	file.WriteString("shared")

	withFD := NewMessage(testObject(2), 1)
	withFD.WriteFile(file)
	withFD.WriteInt(6)
	if err := withFD.Build(a); err != nil {
		t.Fatalf("build fd: %v", err)
	}

	first, err := b.ReadMessage()
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if v := first.ReadUint(); v != 1 {
		t.Fatalf("first message: %v", v)
	}

	second, err := b.ReadMessage()
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	got := second.ReadFile()
	size := second.ReadInt()
	if err := second.Err(); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	defer got.Close()

	buf := make([]byte, size)
	_, err = got.ReadAt(buf, 0)
	if err != nil {
		t.Fatalf("read received fd: %v", err)
	}
	if string(buf) != "shared" {
		t.Fatalf("received fd contents: %q", buf)
	}
}

func TestPeerClose(t *testing.T) {
	a, b := pair(t)
	a.Close()

	_, err := b.ReadMessage()
	if err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestFixed(t *testing.T) {
	tests := []struct {
		in    float64
		str   string
		whole int
	}{
		{1, "1", 1},
		{0.5, "0.5", 0},
		{-1.5, "-1.5", -2},
		{256.25, "256.25", 256},
	}

	for _, test := range tests {
		f := FixedFloat(test.in)
		if f.Float() != test.in {
			t.Errorf("%v: float round trip gave %v", test.in, f.Float())
		}
		if f.String() != test.str {
			t.Errorf("%v: string %q", test.in, f.String())
		}
		if f.Int() != test.whole {
			t.Errorf("%v: int %v", test.in, f.Int())
		}
	}

	if FixedInt(3).Float() != 3 {
		t.Errorf("FixedInt(3) = %v", FixedInt(3))
	}
}
