package packet

import (
	"bytes"
	"testing"
	"time"

	"github.com/coilhq/interledger-relay/internal/ilpaddr"
)

func TestPrepareRoundTrip(t *testing.T) {
	p := &Prepare{
		Amount:      100,
		Expiry:      time.Now().UTC().Truncate(time.Millisecond),
		Destination: ilpaddr.Address("private.moneyd.foo"),
		Data:        []byte("hello"),
	}
	p.Condition[0] = 0xAB

	got, err := DecodePrepare(EncodePrepare(p))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if got.Amount != p.Amount {
		t.Errorf("amount = %d, want %d", got.Amount, p.Amount)
	}
	if !got.Expiry.Equal(p.Expiry) {
		t.Errorf("expiry = %v, want %v", got.Expiry, p.Expiry)
	}
	if got.Destination != p.Destination {
		t.Errorf("destination = %q, want %q", got.Destination, p.Destination)
	}
	if !bytes.Equal(got.Data, p.Data) {
		t.Errorf("data = %q, want %q", got.Data, p.Data)
	}
	if got.Condition != p.Condition {
		t.Errorf("condition mismatch")
	}
}

func TestFulfillRoundTrip(t *testing.T) {
	f := &Fulfill{Data: []byte("streamdata")}
	f.Fulfillment[0] = 0xCD

	got, err := DecodeFulfill(EncodeFulfill(f))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if got.Fulfillment != f.Fulfillment {
		t.Error("fulfillment mismatch")
	}
	if !bytes.Equal(got.Data, f.Data) {
		t.Errorf("data = %q, want %q", got.Data, f.Data)
	}
}

func TestRejectRoundTrip(t *testing.T) {
	j := &Reject{
		Code:        CodeUnreachable,
		TriggeredBy: ilpaddr.Address("private.moneyd"),
		Message:     "no route",
		Data:        []byte{},
	}

	got, err := DecodeReject(EncodeReject(j))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if got.Code != j.Code {
		t.Errorf("code = %q, want %q", got.Code, j.Code)
	}
	if got.TriggeredBy != j.TriggeredBy {
		t.Errorf("triggeredBy = %q, want %q", got.TriggeredBy, j.TriggeredBy)
	}
	if got.Message != j.Message {
		t.Errorf("message = %q, want %q", got.Message, j.Message)
	}
}

func TestDecodePrepareRejectsInvalidDestination(t *testing.T) {
	p := &Prepare{
		Amount:      1,
		Expiry:      time.Now().UTC(),
		Destination: "placeholder",
	}
	b := EncodePrepare(p)
	// Corrupt: replace the destination's var-octet length+content with an
	// invalid character, keeping framing consistent.
	bad := bytes.Replace(b, []byte("placeholder"), []byte("bad char!!!"), 1)
	if _, err := DecodePrepare(bad); err == nil {
		t.Error("expected decode error for invalid destination charset")
	}
}

func TestDecodePrepareRejectsTruncatedInput(t *testing.T) {
	p := &Prepare{Amount: 1, Expiry: time.Now().UTC(), Destination: "a.b"}
	b := EncodePrepare(p)
	if _, err := DecodePrepare(b[:len(b)-5]); err == nil {
		t.Error("expected decode error for truncated input")
	}
}

func TestDecodeRejectsWrongType(t *testing.T) {
	p := &Prepare{Amount: 1, Expiry: time.Now().UTC(), Destination: "a.b"}
	b := EncodePrepare(p)
	if _, err := DecodeFulfill(b); err == nil {
		t.Error("expected error decoding a Prepare as a Fulfill")
	}
}

func TestILDCPResponseRoundTrip(t *testing.T) {
	want := &ILDCPResponse{
		Address:    "private.moneyd",
		AssetScale: 9,
		AssetCode:  "USD",
	}
	got, err := DecodeILDCPResponse(EncodeILDCPResponse(want))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
