// Package publisher implements the proof publisher (C6): hashing the proof
// into a content-addressed identifier, publishing it on a named topic over
// a brokerless PUB/ROUTER IPC bus, and serving request/reply RPCs on a
// companion socket.
package publisher

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gogo/protobuf/proto"
)

// TlsProof is the published proof envelope. Field tags follow gogo's v1
// reflection-based marshaling — no protoc codegen is required.
type TlsProof struct {
	Id      string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Data    string `protobuf:"bytes,2,opt,name=data,proto3" json:"data,omitempty"`
	Stream  string `protobuf:"bytes,3,opt,name=stream,proto3" json:"stream,omitempty"`
	Process string `protobuf:"bytes,4,opt,name=process,proto3" json:"process,omitempty"`
}

func (m *TlsProof) Reset()         { *m = TlsProof{} }
func (m *TlsProof) String() string { return proto.CompactTextString(m) }
func (*TlsProof) ProtoMessage()    {}

// TlsProofFilter is reserved for future subscriber-side filtering; it
// currently carries no fields.
type TlsProofFilter struct{}

func (m *TlsProofFilter) Reset()         { *m = TlsProofFilter{} }
func (m *TlsProofFilter) String() string { return proto.CompactTextString(m) }
func (*TlsProofFilter) ProtoMessage()    {}

// ValidationResult is returned by the default "validate" RPC handler.
type ValidationResult struct {
	Valid  bool   `protobuf:"varint,1,opt,name=valid,proto3" json:"valid,omitempty"`
	Detail string `protobuf:"bytes,2,opt,name=detail,proto3" json:"detail,omitempty"`
}

func (m *ValidationResult) Reset()         { *m = ValidationResult{} }
func (m *ValidationResult) String() string { return proto.CompactTextString(m) }
func (*ValidationResult) ProtoMessage()    {}

// ComputeID returns the content-addressed identifier for data: the
// lowercase hex SHA-256 of data, prefixed "0x".
func ComputeID(data string) string {
	sum := sha256.Sum256([]byte(data))
	return "0x" + hex.EncodeToString(sum[:])
}

// NewTlsProof builds the published envelope, computing Id from data.
func NewTlsProof(data, stream, process string) *TlsProof {
	return &TlsProof{
		Id:      ComputeID(data),
		Data:    data,
		Stream:  stream,
		Process: process,
	}
}

// Marshal encodes m using the length-delimited, field-tagged wire format.
func Marshal(m proto.Message) ([]byte, error) {
	return proto.Marshal(m)
}

// Unmarshal decodes into m using the length-delimited, field-tagged wire format.
func Unmarshal(data []byte, m proto.Message) error {
	return proto.Unmarshal(data, m)
}
