package compliance

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const bucketCount = 60

// bucket holds one minute's aggregate for one user.
type bucket struct {
	minute int64 // unix-minute this bucket currently represents; 0 == empty
	counts map[string]int
	volume map[string]decimal.Decimal
}

func newBucket() *bucket {
	return &bucket{counts: map[string]int{}, volume: map[string]decimal.Decimal{}}
}

func (b *bucket) reset(minute int64) {
	b.minute = minute
	b.counts = map[string]int{}
	b.volume = map[string]decimal.Decimal{}
}

// Window is the per-user sliding-window aggregate of §3.5: a ring of
// 60 one-minute buckets holding transaction count and per-asset
// volume, indexed by unix_minute mod 60. Guarded by a single mutex per
// the teacher's single-writer convention (§5) — the window is a small,
// frequently-read structure, not worth the atomic-publish pattern used
// for the router's much larger, append-mostly route table.
type Window struct {
	mu      sync.Mutex
	buckets map[string][]*bucket // keyed by user_id
}

func NewWindow() *Window {
	return &Window{buckets: map[string][]*bucket{}}
}

func unixMinute(t time.Time) int64 { return t.Unix() / 60 }

func (w *Window) userBuckets(userID string) []*bucket {
	b, ok := w.buckets[userID]
	if !ok {
		b = make([]*bucket, bucketCount)
		for i := range b {
			b[i] = newBucket()
		}
		w.buckets[userID] = b
	}
	return b
}

// rotate clears any bucket whose minute has fallen bucketCount or more
// minutes behind now, per §4.2.3 "bucket rotation clears
// all expired buckets at read time".
func rotate(buckets []*bucket, nowMinute int64) {
	for _, b := range buckets {
		if nowMinute-b.minute >= bucketCount {
			b.reset(0)
		}
	}
}

// Record adds one transaction observation to a user's window (§4.2.3).
func (w *Window) Record(userID, asset string, amount decimal.Decimal, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	minute := unixMinute(at)
	buckets := w.userBuckets(userID)
	rotate(buckets, minute)

	idx := minute % bucketCount
	b := buckets[idx]
	if b.minute != minute {
		b.reset(minute)
	}
	b.counts[asset]++
	b.volume[asset] = b.volume[asset].Add(amount)
}

// Summarize returns the transaction count and per-asset volume over
// the trailing windowMinutes (<= 60), as of the current wall clock.
func (w *Window) Summarize(userID, asset string, windowMinutes int) (int, decimal.Decimal) {
	return w.summarizeAt(userID, asset, windowMinutes, time.Now())
}

func (w *Window) summarizeAt(userID, asset string, windowMinutes int, now time.Time) (int, decimal.Decimal) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if windowMinutes > bucketCount {
		windowMinutes = bucketCount
	}
	buckets, ok := w.buckets[userID]
	if !ok {
		return 0, decimal.Zero
	}
	nowMinute := unixMinute(now)
	rotate(buckets, nowMinute)

	count := 0
	volume := decimal.Zero
	for i := 0; i < windowMinutes; i++ {
		minute := nowMinute - int64(i)
		b := buckets[minute%bucketCount]
		if b.minute != minute {
			continue
		}
		count += b.counts[asset]
		volume = volume.Add(b.volume[asset])
	}
	return count, volume
}
