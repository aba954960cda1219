// Package harness provides the "testing N" payload source/sink fixture
// used by integration tests to drive a pkg/rdt.Conn end to end without
// hand-writing byte slices at every call site. It is not part of the
// public library surface — only _test.go files and cmd/rdt's --demo mode
// import it.
package harness

import "fmt"

// Payload returns the conventional fixture payload for sequence index n,
// matching the "testing N" convention used throughout the test suite.
func Payload(n int) []byte {
	return []byte(fmt.Sprintf("testing %d", n))
}

// Payloads returns count fixture payloads starting at start.
func Payloads(start, count int) [][]byte {
	out := make([][]byte, count)
	for i := 0; i < count; i++ {
		out[i] = Payload(start + i)
	}
	return out
}

// Collector accumulates delivered payloads in arrival order, for tests
// that just need to assert on the final sequence received.
type Collector struct {
	got [][]byte
}

// Add appends a delivered payload.
func (c *Collector) Add(payload []byte) {
	c.got = append(c.got, payload)
}

// Strings returns every collected payload as a string, in arrival order.
func (c *Collector) Strings() []string {
	out := make([]string, len(c.got))
	for i, p := range c.got {
		out[i] = string(p)
	}
	return out
}

// Len reports how many payloads have been collected.
func (c *Collector) Len() int {
	return len(c.got)
}
