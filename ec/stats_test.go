// Copyright 2026 The go-ec Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ec

import (
	"bytes"
	"strings"
	"testing"
)

func TestStatsRates(t *testing.T) {
	for _, tc := range []struct {
		name string
		st   Stats
		rate float64
		avg  float64
		ok   bool
	}{
		{
			name: "empty",
			st:   Stats{},
			ok:   false,
		},
		{
			name: "all-good",
			st:   Stats{Reads: 4},
			rate: 100,
			avg:  0,
			ok:   true,
		},
		{
			name: "half",
			st:   Stats{Reads: 2, Fails: 2, Retries: 6},
			rate: 50,
			avg:  1.5,
			ok:   true,
		},
		{
			name: "all-bad",
			st:   Stats{Fails: 3, Retries: 6},
			rate: 0,
			avg:  2,
			ok:   true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rate, ok := tc.st.SuccessRate()
			if ok != tc.ok {
				t.Fatalf("invalid success-rate definedness: got=%v, want=%v", ok, tc.ok)
			}
			if ok && rate != tc.rate {
				t.Fatalf("invalid success rate: got=%v, want=%v", rate, tc.rate)
			}

			avg, ok := tc.st.AvgRetries()
			if ok != tc.ok {
				t.Fatalf("invalid avg-retries definedness: got=%v, want=%v", ok, tc.ok)
			}
			if ok && avg != tc.avg {
				t.Fatalf("invalid avg retries: got=%v, want=%v", avg, tc.avg)
			}
		})
	}
}

func TestStatsFormat(t *testing.T) {
	st := Stats{
		Reads: 3, Fails: 1, Retries: 2,
		LockRetries: 1, LockFails: 1,
	}

	t.Run("with-lock", func(t *testing.T) {
		buf := new(bytes.Buffer)
		st.Format(buf, true)
		for _, want := range []string{
			"successful reads: 3",
			"failed reads:     1",
			"retry attempts:   2",
			"lock retries:     1",
			"lock failures:    1",
			"success rate:     75.0%",
			"avg retries:      0.50 per operation",
		} {
			if !strings.Contains(buf.String(), want) {
				t.Fatalf("missing %q in report:\n%s", want, buf.String())
			}
		}
	})

	t.Run("without-lock", func(t *testing.T) {
		buf := new(bytes.Buffer)
		st.Format(buf, false)
		if strings.Contains(buf.String(), "lock") {
			t.Fatalf("unexpected lock counters in report:\n%s", buf.String())
		}
	})

	t.Run("empty", func(t *testing.T) {
		buf := new(bytes.Buffer)
		Stats{}.Format(buf, false)
		if strings.Contains(buf.String(), "success rate") {
			t.Fatalf("unexpected undefined rate in report:\n%s", buf.String())
		}
	})
}
