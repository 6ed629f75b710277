package cotp

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
)

func parseHexString(s string) []byte {
	data, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		panic(err)
	}
	return data
}

// fakeConn is a scripted byte stream: reads come from the preloaded
// frames, writes are captured for inspection.
type fakeConn struct {
	in     bytes.Buffer
	out    bytes.Buffer
	closed bool
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.in.Len() == 0 {
		return 0, io.EOF
	}
	return c.in.Read(p)
}

func (c *fakeConn) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// splitFrames cuts a capture of written bytes back into TPKT frames.
func splitFrames(t *testing.T, raw []byte) [][]byte {
	t.Helper()
	var frames [][]byte
	for len(raw) > 0 {
		if len(raw) < 4 || raw[0] != 0x03 {
			t.Fatalf("invalid TPKT header % x", raw)
		}
		length := int(raw[2])<<8 | int(raw[3])
		if length > len(raw) {
			t.Fatalf("frame length %d overruns capture", length)
		}
		frames = append(frames, raw[4:length])
		raw = raw[length:]
	}
	return frames
}

func TestConnect(t *testing.T) {
	conn := &fakeConn{}
	// CC from a wireshark capture: TPDU size 8192, both selectors 0001.
	conn.in.Write(parseHexString("03 00 00 16 11 d0 00 01 00 01 00 c0 01 0d c2 02 00 01 c1 02 00 01"))

	c := NewConnection(conn)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if got := c.TpduSize(); got != 8192 {
		t.Errorf("TpduSize() = %d, want 8192", got)
	}

	frames := splitFrames(t, conn.out.Bytes())
	if len(frames) != 1 {
		t.Fatalf("wrote %d frames, want 1", len(frames))
	}
	cr := frames[0]
	if cr[1] != tpduConnectRequest {
		t.Errorf("TPDU type = 0x%02x, want CR 0x%02x", cr[1], tpduConnectRequest)
	}
	if int(cr[0]) != len(cr)-1 {
		t.Errorf("length indicator = %d, want %d", cr[0], len(cr)-1)
	}
	// Proposed TPDU size 8192 and the default selectors.
	for _, option := range [][]byte{
		parseHexString("c0 01 0d"),
		parseHexString("c2 02 00 01"),
		parseHexString("c1 02 00 01"),
	} {
		if !bytes.Contains(cr, option) {
			t.Errorf("CR % x misses option % x", cr, option)
		}
	}
}

func TestConnectNegotiatesSmallerTpdu(t *testing.T) {
	conn := &fakeConn{}
	conn.in.Write(parseHexString("03 00 00 0e 09 d0 00 01 00 01 00 c0 01 0a"))

	c := NewConnection(conn, WithTpduSize(8192))
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if got := c.TpduSize(); got != 1024 {
		t.Errorf("TpduSize() = %d, want 1024", got)
	}
}

func TestTinyTpduSizeClamped(t *testing.T) {
	conn := &fakeConn{}
	c := NewConnection(conn, WithTpduSize(2))

	// Below the class-0 minimum the DT header alone would overrun the
	// TPDU; the size is raised to 128 instead.
	if got := c.TpduSize(); got != 128 {
		t.Errorf("TpduSize() = %d, want 128", got)
	}
	if err := c.Send([]byte{0x01, 0x02, 0x03, 0x04}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	frames := splitFrames(t, conn.out.Bytes())
	if len(frames) != 1 {
		t.Fatalf("wrote %d frames, want 1", len(frames))
	}
}

func TestConnectRefused(t *testing.T) {
	conn := &fakeConn{}
	conn.in.Write(parseHexString("03 00 00 0b 06 80 00 00 00 01 00"))

	c := NewConnection(conn)
	if err := c.Connect(); !errors.Is(err, ErrConnectionRefused) {
		t.Errorf("Connect() error = %v, want ErrConnectionRefused", err)
	}
}

func TestConnectUnexpectedTPDU(t *testing.T) {
	conn := &fakeConn{}
	conn.in.Write(parseHexString("03 00 00 0b 06 f0 80 00 00 01 00"))

	c := NewConnection(conn)
	if err := c.Connect(); !errors.Is(err, ErrProtocol) {
		t.Errorf("Connect() error = %v, want ErrProtocol", err)
	}
}

func TestReceiveReassemblesFragments(t *testing.T) {
	conn := &fakeConn{}
	// Two DT TPDUs, end-of-TSDU only on the second.
	conn.in.Write(parseHexString("03 00 00 0a 02 f0 00 aa bb cc"))
	conn.in.Write(parseHexString("03 00 00 09 02 f0 80 dd ee"))

	c := NewConnection(conn)
	payload, err := c.Receive()
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if want := parseHexString("aa bb cc dd ee"); !bytes.Equal(payload, want) {
		t.Errorf("Receive() = % x, want % x", payload, want)
	}
}

func TestReceiveDisconnect(t *testing.T) {
	conn := &fakeConn{}
	conn.in.Write(parseHexString("03 00 00 0b 06 80 00 00 00 01 00"))

	c := NewConnection(conn)
	if _, err := c.Receive(); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Receive() error = %v, want ErrDisconnected", err)
	}
}

func TestReceiveClosedStream(t *testing.T) {
	c := NewConnection(&fakeConn{})
	if _, err := c.Receive(); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Receive() error = %v, want ErrDisconnected", err)
	}
}

func TestReceiveBadTPKT(t *testing.T) {
	conn := &fakeConn{}
	conn.in.Write(parseHexString("04 00 00 09 02 f0 80 dd ee"))

	c := NewConnection(conn)
	if _, err := c.Receive(); !errors.Is(err, ErrProtocol) {
		t.Errorf("Receive() error = %v, want ErrProtocol", err)
	}
}

func TestSendFragments(t *testing.T) {
	conn := &fakeConn{}
	c := NewConnection(conn, WithTpduSize(128))

	payload := bytes.Repeat([]byte{0x5A}, 300)
	if err := c.Send(payload); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	frames := splitFrames(t, conn.out.Bytes())
	if len(frames) != 3 {
		t.Fatalf("wrote %d frames, want 3", len(frames))
	}

	var reassembled []byte
	for i, frame := range frames {
		if frame[1] != tpduData {
			t.Fatalf("frame %d type = 0x%02x, want DT", i, frame[1])
		}
		last := i == len(frames)-1
		if eot := frame[2]&0x80 != 0; eot != last {
			t.Errorf("frame %d end-of-TSDU = %v, want %v", i, eot, last)
		}
		if len(frame)-dataHeaderSize > 128-dataHeaderSize {
			t.Errorf("frame %d exceeds negotiated TPDU size", i)
		}
		reassembled = append(reassembled, frame[dataHeaderSize:]...)
	}
	if !bytes.Equal(reassembled, payload) {
		t.Errorf("reassembled %d bytes, want %d", len(reassembled), len(payload))
	}
}

func TestClose(t *testing.T) {
	conn := &fakeConn{}
	c := NewConnection(conn)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !conn.closed {
		t.Error("Close() did not close the underlying stream")
	}
}
