// Package packet implements the ILP Prepare/Fulfill/Reject wire codec:
// canonical variable-length binary encoding (OER/ASN.1 BER-derived) and
// the structural invariants the relay enforces on decode.
package packet

import (
	"time"

	"github.com/coilhq/interledger-relay/internal/ilpaddr"
	pkgerrors "github.com/pkg/errors"
)

// Packet type octets, matching the wire values used by ILP implementations.
const (
	TypePrepare      byte = 12
	TypeFulfill      byte = 13
	TypeReject       byte = 14
	TypeILDCPRequest byte = 22
)

// MaxDataLength is the largest a Prepare/Fulfill/Reject data field may be.
const MaxDataLength = 32767

// MaxMessageLength is the largest a Reject message may be, in UTF-8 bytes.
const MaxMessageLength = 8192

// generalizedTimeLayout is the wire form for Expiry: ASN.1 GeneralizedTime,
// millisecond precision, UTC only.
const generalizedTimeLayout = "20060102150405.000Z"

// DecodeError reports a structural problem found while decoding a packet.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "packet: decode error: " + e.Reason
}

// Prepare is an ILP Prepare packet.
type Prepare struct {
	Amount      uint64
	Expiry      time.Time
	Condition   [32]byte
	Destination ilpaddr.Address
	Data        []byte
}

// Fulfill is an ILP Fulfill packet.
type Fulfill struct {
	Fulfillment [32]byte
	Data        []byte
}

// RejectCode is one of the three-character ILP reject codes: one uppercase
// category letter followed by two digits.
type RejectCode string

// Reject codes used by this relay (spec.md §7).
const (
	CodeBadRequest        RejectCode = "F00"
	CodeUnreachable       RejectCode = "F02"
	CodeUnexpectedPayment RejectCode = "F06"
	CodeTransferTimedOut  RejectCode = "R00"
	CodeInsufficientTimeout RejectCode = "R01"
	CodeInternalError     RejectCode = "T00"
	CodePeerUnreachable   RejectCode = "T01"
)

// Reject is an ILP Reject packet.
type Reject struct {
	Code        RejectCode
	TriggeredBy ilpaddr.Address
	Message     string
	Data        []byte
}

// EncodePrepare serializes p to its canonical binary form.
func EncodePrepare(p *Prepare) []byte {
	w := newByteWriter()
	w.writeUint64(p.Amount)
	w.writeBytes([]byte(p.Expiry.UTC().Format(generalizedTimeLayout)))
	w.writeBytes(p.Condition[:])
	w.writeVarOctets([]byte(p.Destination))
	w.writeVarOctets(p.Data)
	return envelope(TypePrepare, w.bytes())
}

// DecodePrepare parses a canonical Prepare packet, enforcing the
// structural invariants from spec.md §4.1: destination charset/length,
// a parseable expiry, and no unconsumed trailing bytes within the
// declared content length.
func DecodePrepare(b []byte) (*Prepare, error) {
	content, err := unwrap(TypePrepare, b)
	if err != nil {
		return nil, err
	}
	r := newByteReader(content)
	amount := r.readUint64()
	expiryBytes := r.readBytes(len(generalizedTimeLayout))
	condition := r.readBytes(32)
	dest := r.readVarOctets()
	data := r.readVarOctets()
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() != 0 {
		return nil, &DecodeError{Reason: "trailing data after Prepare content"}
	}
	expiry, err := time.Parse(generalizedTimeLayout, string(expiryBytes))
	if err != nil {
		return nil, &DecodeError{Reason: "invalid expiry: " + err.Error()}
	}
	destAddr := ilpaddr.Address(dest)
	if !destAddr.Valid() {
		return nil, &DecodeError{Reason: "invalid destination address"}
	}
	if len(data) > MaxDataLength {
		return nil, &DecodeError{Reason: "data exceeds maximum length"}
	}
	p := &Prepare{
		Amount:      amount,
		Expiry:      expiry.UTC(),
		Destination: destAddr,
		Data:        data,
	}
	copy(p.Condition[:], condition)
	return p, nil
}

// EncodeFulfill serializes f to its canonical binary form.
func EncodeFulfill(f *Fulfill) []byte {
	w := newByteWriter()
	w.writeBytes(f.Fulfillment[:])
	w.writeVarOctets(f.Data)
	return envelope(TypeFulfill, w.bytes())
}

// DecodeFulfill parses a canonical Fulfill packet.
func DecodeFulfill(b []byte) (*Fulfill, error) {
	content, err := unwrap(TypeFulfill, b)
	if err != nil {
		return nil, err
	}
	r := newByteReader(content)
	fulfillment := r.readBytes(32)
	data := r.readVarOctets()
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() != 0 {
		return nil, &DecodeError{Reason: "trailing data after Fulfill content"}
	}
	f := &Fulfill{Data: data}
	copy(f.Fulfillment[:], fulfillment)
	return f, nil
}

// EncodeReject serializes j to its canonical binary form.
func EncodeReject(j *Reject) []byte {
	w := newByteWriter()
	w.writeBytes([]byte(j.Code))
	w.writeVarOctets([]byte(j.TriggeredBy))
	w.writeVarOctets([]byte(j.Message))
	w.writeVarOctets(j.Data)
	return envelope(TypeReject, w.bytes())
}

// DecodeReject parses a canonical Reject packet.
func DecodeReject(b []byte) (*Reject, error) {
	content, err := unwrap(TypeReject, b)
	if err != nil {
		return nil, err
	}
	r := newByteReader(content)
	code := r.readBytes(3)
	triggeredBy := r.readVarOctets()
	message := r.readVarOctets()
	data := r.readVarOctets()
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() != 0 {
		return nil, &DecodeError{Reason: "trailing data after Reject content"}
	}
	if len(message) > MaxMessageLength {
		return nil, &DecodeError{Reason: "message exceeds maximum length"}
	}
	return &Reject{
		Code:        RejectCode(code),
		TriggeredBy: ilpaddr.Address(triggeredBy),
		Message:     string(message),
		Data:        data,
	}, nil
}

// envelope wraps content in the [type][varOctets length][content] framing
// shared by every packet kind.
func envelope(t byte, content []byte) []byte {
	w := newByteWriter()
	w.writeByte(t)
	w.writeVarOctets(content)
	return w.bytes()
}

// unwrap validates the outer [type][length][content] framing and returns
// the content bytes for a packet of the expected type. Per spec.md §4.1,
// a declared length that exceeds the remaining input is always rejected;
// trailing junk after the declared content is rejected unless the
// top-level length says otherwise (it never does in this relay's wire
// format, since the length prefix is authoritative for the whole packet).
func unwrap(want byte, b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, &DecodeError{Reason: "empty packet"}
	}
	r := newByteReader(b)
	got := r.readByte()
	if r.err != nil {
		return nil, r.err
	}
	if got != want {
		return nil, pkgerrors.Wrapf(&DecodeError{Reason: "unexpected packet type"}, "got %d want %d", got, want)
	}
	content := r.readVarOctets()
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() != 0 {
		return nil, &DecodeError{Reason: "trailing bytes after top-level packet"}
	}
	return content, nil
}

// PeekType reports the packet type octet without fully decoding the body.
func PeekType(b []byte) (byte, error) {
	if len(b) == 0 {
		return 0, &DecodeError{Reason: "empty packet"}
	}
	return b[0], nil
}
