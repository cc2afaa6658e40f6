package content

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yndnr/chatmesh-go/internal/core/domain"
	"github.com/yndnr/chatmesh-go/internal/mesh/vclock"
)

const (
	fieldKind protowire.Number = 1

	fieldSender    protowire.Number = 2
	fieldText      protowire.Number = 3
	fieldInitiator protowire.Number = 3
	fieldID        protowire.Number = 4
	fieldClock     protowire.Number = 5

	fieldClockProcess protowire.Number = 1
	fieldClockCounter protowire.Number = 2
)

// Marshal encodes c.
func Marshal(c Content) ([]byte, error) {
	if c == nil {
		return nil, domain.ErrMalformedAction.WithDetails("nil content")
	}
	b := appendInt32(nil, fieldKind, int32(c.Kind()))

	switch v := c.(type) {
	case *Chat:
		b = appendInt32(b, fieldSender, v.Sender)
		b = protowire.AppendTag(b, fieldText, protowire.BytesType)
		b = protowire.AppendString(b, v.Text)
		if v.ID != "" {
			b = protowire.AppendTag(b, fieldID, protowire.BytesType)
			b = protowire.AppendString(b, v.ID)
		}
		for _, id := range v.Clock.IDs() {
			var entry []byte
			entry = appendInt32(entry, fieldClockProcess, id)
			entry = appendInt32(entry, fieldClockCounter, v.Clock.Get(id))
			b = protowire.AppendTag(b, fieldClock, protowire.BytesType)
			b = protowire.AppendBytes(b, entry)
		}
	case *ElectionToken:
		b = appendInt32(b, fieldSender, v.Sender)
		b = appendInt32(b, fieldInitiator, v.Initiator)
	case *ElectionLeader:
		b = appendInt32(b, fieldSender, v.Sender)
		b = appendInt32(b, fieldInitiator, v.Initiator)
	default:
		return nil, domain.ErrMalformedAction.WithDetails(fmt.Sprintf("unsupported content %T", c))
	}
	return b, nil
}

// MustMarshal is Marshal for contents known to be valid.
func MustMarshal(c Content) []byte {
	b, err := Marshal(c)
	if err != nil {
		panic(err)
	}
	return b
}

// Unmarshal decodes a payload produced by Marshal. Unknown fields are
// skipped; an unknown kind or malformed bytes yield ErrMalformedAction.
func Unmarshal(b []byte) (Content, error) {
	fields, err := scan(b)
	if err != nil {
		return nil, err
	}

	kind := Kind(fields.int32(fieldKind))
	switch kind {
	case KindChat:
		msg := &Chat{
			Sender: fields.int32(fieldSender),
			Text:   string(fields.bytes[fieldText]),
			ID:     string(fields.bytes[fieldID]),
			Clock:  vclock.New(),
		}
		for _, entry := range fields.repeated {
			sub, err := scan(entry)
			if err != nil {
				return nil, err
			}
			if err := msg.Clock.Set(sub.int32(fieldClockProcess), sub.int32(fieldClockCounter)); err != nil {
				return nil, domain.ErrMalformedAction.WithCause(err)
			}
		}
		return msg, nil
	case KindElectionToken:
		return &ElectionToken{Sender: fields.int32(fieldSender), Initiator: fields.int32(fieldInitiator)}, nil
	case KindElectionLeader:
		return &ElectionLeader{Sender: fields.int32(fieldSender), Initiator: fields.int32(fieldInitiator)}, nil
	default:
		return nil, domain.ErrMalformedAction.WithDetails("unknown content " + kind.String())
	}
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

type scanned struct {
	varints map[protowire.Number]uint64
	bytes   map[protowire.Number][]byte
	// repeated collects the clock entries, the only repeated field.
	repeated [][]byte
}

func (s *scanned) int32(num protowire.Number) int32 {
	return int32(int64(s.varints[num]))
}

func scan(b []byte) (*scanned, error) {
	s := &scanned{
		varints: make(map[protowire.Number]uint64),
		bytes:   make(map[protowire.Number][]byte),
	}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(n)
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, malformed(n)
			}
			s.varints[num] = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, malformed(n)
			}
			if num == fieldClock {
				s.repeated = append(s.repeated, v)
			} else {
				s.bytes[num] = v
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformed(n)
			}
			b = b[n:]
		}
	}
	return s, nil
}

func malformed(n int) error {
	return domain.ErrMalformedAction.WithCause(protowire.ParseError(n))
}
