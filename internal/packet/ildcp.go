package packet

import "github.com/coilhq/interledger-relay/internal/ilpaddr"

// PeerConfigAddress is the well-known ILDCP request destination.
const PeerConfigAddress ilpaddr.Address = "peer.config"

// ILDCPResponse carries the address and asset info a child learns from
// its parent via ILDCP (spec.md §4.8).
type ILDCPResponse struct {
	Address    ilpaddr.Address
	AssetScale uint8
	AssetCode  string
}

// EncodeILDCPResponse serializes r as Fulfill data.
func EncodeILDCPResponse(r *ILDCPResponse) []byte {
	w := newByteWriter()
	w.writeVarOctets([]byte(r.Address))
	w.writeByte(r.AssetScale)
	w.writeVarOctets([]byte(r.AssetCode))
	return w.bytes()
}

// DecodeILDCPResponse parses Fulfill data carrying an ILDCP response.
func DecodeILDCPResponse(data []byte) (*ILDCPResponse, error) {
	r := newByteReader(data)
	address := r.readVarOctets()
	scale := r.readByte()
	code := r.readVarOctets()
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() != 0 {
		return nil, &DecodeError{Reason: "trailing data after ILDCP response"}
	}
	addr := ilpaddr.Address(address)
	if !addr.Valid() {
		return nil, &DecodeError{Reason: "invalid ILDCP address"}
	}
	return &ILDCPResponse{
		Address:    addr,
		AssetScale: scale,
		AssetCode:  string(code),
	}, nil
}
