package benchmark

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/yndnr/chatmesh-go/internal/mesh/content"
	"github.com/yndnr/chatmesh-go/internal/mesh/vclock"
)

// ClientCounts are the numbers of distinct senders exercised.
var ClientCounts = []int{2, 10, 100}

// chatFrom builds the n-th message of sender, causally after the first
// n-1 ones.
func chatFrom(b *testing.B, sender int32, n int32) *content.Chat {
	b.Helper()
	clock, err := vclock.FromMap(map[int32]int32{sender: n})
	if err != nil {
		b.Fatal(err)
	}
	return content.NewChat(sender, "benchmark message text", clock)
}

// reportMemory reports heap usage after a collection.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
}

func runWithClientCounts(b *testing.B, benchFn func(b *testing.B, clients int)) {
	for _, n := range ClientCounts {
		b.Run(fmt.Sprintf("clients_%d", n), func(b *testing.B) {
			benchFn(b, n)
		})
	}
}
