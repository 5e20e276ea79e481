package encoding

import (
	"encoding/json"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/synheart/synheart-stress/internal/models"
)

// ProtobufEncoder encodes snapshots as a google.protobuf.Struct carrying the
// same field names as the JSON form.
type ProtobufEncoder struct{}

func NewProtobufEncoder() *ProtobufEncoder {
	return &ProtobufEncoder{}
}

func (e *ProtobufEncoder) Encode(snap models.Snapshot) ([]byte, error) {
	pb, err := snapshotToProto(snap)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(pb)
}

func (e *ProtobufEncoder) ContentType() string {
	return "application/x-protobuf"
}

func snapshotToProto(snap models.Snapshot) (*structpb.Struct, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

// DecodeProtobuf is the inverse of ProtobufEncoder.Encode. Integer vitals come
// back as float64, as with any JSON decode into a map.
func DecodeProtobuf(data []byte) (map[string]interface{}, error) {
	var pb structpb.Struct
	if err := proto.Unmarshal(data, &pb); err != nil {
		return nil, err
	}
	return pb.AsMap(), nil
}
