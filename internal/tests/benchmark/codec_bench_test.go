package benchmark

import (
	"bytes"
	"testing"

	"github.com/yndnr/chatmesh-go/internal/mesh/content"
	"github.com/yndnr/chatmesh-go/internal/mesh/wire"
)

func BenchmarkContent_MarshalChat(b *testing.B) {
	msg := chatFrom(b, 101, 7)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := content.Marshal(msg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkContent_UnmarshalChat(b *testing.B) {
	payload := content.MustMarshal(chatFrom(b, 101, 7))
	b.ReportAllocs()
	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := content.Unmarshal(payload); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWire_EncodeDecode(b *testing.B) {
	payload := content.MustMarshal(chatFrom(b, 101, 7))
	frame := wire.Frame{Type: 1000, Sender: 101, Seq: 7, Payload: payload}
	encoded := wire.Encode(frame)
	dec := wire.NewDecoder()
	var r bytes.Reader

	b.ReportAllocs()
	b.SetBytes(int64(len(encoded)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Reset(wire.AppendFrame(encoded[:0], frame))
		if st := dec.Decode(&r); st != wire.PayloadComplete {
			b.Fatalf("decode status = %v", st)
		}
	}
}
