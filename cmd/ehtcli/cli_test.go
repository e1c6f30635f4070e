package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
	"testing/iotest"

	"eht-attack/internal/prng"
)

func TestWriteSigned(t *testing.T) {
	sm := []byte{0x00, 0x2f, 0xff, '\n'}
	var buf bytes.Buffer
	if err := writeSigned(&buf, sm, false); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), hex.EncodeToString(sm)+"\n"; got != want {
		t.Fatalf("hex output %q, want %q", got, want)
	}
	buf.Reset()
	if err := writeSigned(&buf, sm, true); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), sm) {
		t.Fatalf("raw output %x, want %x", buf.Bytes(), sm)
	}
}

func TestRandomMessage(t *testing.T) {
	a, err := randomMessage(prng.FromInt(1), 16)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := randomMessage(prng.FromInt(1), 16)
	if len(a) != 32 || !bytes.Equal(a, b) {
		t.Fatalf("messages %q and %q", a, b)
	}
	if _, err := hex.DecodeString(string(a)); err != nil {
		t.Fatalf("message is not hex: %v", err)
	}

	boom := errors.New("entropy gone")
	if _, err := randomMessage(iotest.ErrReader(boom), 16); !errors.Is(err, boom) {
		t.Fatalf("read failure not reported: %v", err)
	}
}
