// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instrument

import (
	"math"
	"time"
)

// PollHistogram is a bucketed distribution of poll durations. Buckets
// are ordered by UpperBound; a sample d falls into the first bucket
// with d <= UpperBound. Samples above the last bound count only toward
// Max and Overflow.
type PollHistogram struct {
	Buckets  []HistogramBucket `cbor:"buckets"`
	Overflow uint64            `cbor:"overflow,omitempty"`
	Max      time.Duration     `cbor:"max"`
}

// HistogramBucket counts samples up to and including UpperBound.
type HistogramBucket struct {
	UpperBound time.Duration `cbor:"upper"`
	Count      uint64        `cbor:"count"`
}

// NewPollHistogram returns an empty histogram over the given ascending
// bucket bounds.
func NewPollHistogram(bounds []time.Duration) PollHistogram {
	buckets := make([]HistogramBucket, len(bounds))
	for i, bound := range bounds {
		buckets[i].UpperBound = bound
	}
	return PollHistogram{Buckets: buckets}
}

// DefaultPollBounds spans 1µs to ~1s in powers of two.
func DefaultPollBounds() []time.Duration {
	var bounds []time.Duration
	for bound := time.Microsecond; bound <= time.Second; bound *= 2 {
		bounds = append(bounds, bound)
	}
	return bounds
}

// Record adds one sample.
func (h *PollHistogram) Record(d time.Duration) {
	if d > h.Max {
		h.Max = d
	}
	for i := range h.Buckets {
		if d <= h.Buckets[i].UpperBound {
			h.Buckets[i].Count++
			return
		}
	}
	h.Overflow++
}

// Count returns the number of recorded samples.
func (h PollHistogram) Count() uint64 {
	total := h.Overflow
	for _, bucket := range h.Buckets {
		total += bucket.Count
	}
	return total
}

// Percentile returns the upper bound of the bucket holding the p-th
// percentile sample (0 < p <= 100). Percentiles landing in the
// overflow region report Max. An empty histogram reports zero.
func (h PollHistogram) Percentile(p float64) time.Duration {
	total := h.Count()
	if total == 0 {
		return 0
	}
	rank := uint64(math.Ceil(p / 100 * float64(total)))
	if rank == 0 {
		rank = 1
	}
	var seen uint64
	for _, bucket := range h.Buckets {
		seen += bucket.Count
		if seen >= rank {
			return min(bucket.UpperBound, h.Max)
		}
	}
	return h.Max
}
