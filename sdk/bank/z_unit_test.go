// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bank

import (
	"math"
	"testing"

	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/payout"
)

func newTestBank(t *testing.T, seed int64, pool int) *Bank {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PoolSize = pool
	b, err := New(cfg, payout.Default(), core.New(core.Default().New(seed)))
	if err != nil {
		t.Fatalf("new bank: %v", err)
	}
	return b
}

func sumWins(o payout.Outcome) float64 {
	s := 0.0
	for _, w := range o.Wins {
		s += w.PayoutMultiplier
	}
	return s
}

func TestOutcomeAtMostOneWinAllLevels(t *testing.T) {
	b := newTestBank(t, 42, 500)
	for lv := 1; lv <= 15; lv++ {
		for range 400 {
			o := b.Outcome(lv)
			if len(o.Wins) > 1 {
				t.Fatalf("level %d: %d wins\n%s", lv, len(o.Wins), o.Grid)
			}
			if math.Abs(o.TotalMultiplier-sumWins(o)) > 1e-12 {
				t.Fatalf("level %d: total %v != sum %v", lv, o.TotalMultiplier, sumWins(o))
			}
			again := b.Evaluator().Outcome(o.Grid)
			if len(again.Wins) != len(o.Wins) {
				t.Fatalf("stored wins disagree with evaluator\n%s", o.Grid)
			}
		}
	}
}

func TestDrawTiers(t *testing.T) {
	b := newTestBank(t, 7, 10)
	for range 300 {
		if o := b.Draw(TierMiss); o.IsWin() {
			t.Fatalf("miss tier produced a win\n%s", o.Grid)
		}
		o := b.Draw(TierSmall)
		if len(o.Wins) != 1 || (o.Wins[0].Target != payout.Low && o.Wins[0].Target != payout.Mid) {
			t.Fatalf("small tier: %+v", o.Wins)
		}
		o = b.Draw(TierMid)
		if len(o.Wins) != 1 || o.Wins[0].Target != payout.High {
			t.Fatalf("mid tier: %+v", o.Wins)
		}
		o = b.Draw(TierBig)
		if len(o.Wins) != 1 || (o.Wins[0].Target != payout.Wild && o.Wins[0].Target != payout.High) {
			t.Fatalf("big tier: %+v", o.Wins)
		}
	}
}

func TestTierDistribution(t *testing.T) {
	b := newTestBank(t, 3, 20000)
	wins := 0
	const n = 20000
	for range n {
		if b.Outcome(1).IsWin() {
			wins++
		}
	}
	rate := float64(wins) / n
	if math.Abs(rate-0.8) > 0.02 {
		t.Fatalf("level 1 hit rate want ~0.80 got %.3f", rate)
	}
}

func TestHitRateFallsWithLevel(t *testing.T) {
	b := newTestBank(t, 5, 5000)
	rate := func(lv int) float64 {
		w := 0
		for range 5000 {
			if b.Outcome(lv).IsWin() {
				w++
			}
		}
		return float64(w) / 5000
	}
	if lo, hi := rate(12), rate(1); lo >= hi {
		t.Fatalf("level 12 hit rate %.3f should be below level 1 %.3f", lo, hi)
	}
}

func TestScales(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		lv        int
		hit, down float64
	}{
		{0, 1, 0},
		{1, 1, 0},
		{2, 0.94, 0.08},
		{5, 0.76, 0.32},
		{20, 0.35, 0.55},
	}
	for _, tc := range cases {
		if math.Abs(cfg.HitScale(tc.lv)-tc.hit) > 1e-9 || math.Abs(cfg.Downgrade(tc.lv)-tc.down) > 1e-9 {
			t.Fatalf("lv %d: hit %v down %v", tc.lv, cfg.HitScale(tc.lv), cfg.Downgrade(tc.lv))
		}
	}
}

func TestDeterministicAndRefill(t *testing.T) {
	a := newTestBank(t, 99, 8)
	b := newTestBank(t, 99, 8)
	for i := range 30 {
		oa, ob := a.Outcome(3), b.Outcome(3)
		if oa.Grid != ob.Grid {
			t.Fatalf("round %d diverged", i)
		}
	}
	if a.Remaining() < 0 || a.Remaining() >= 8 {
		t.Fatalf("remaining after refills: %d", a.Remaining())
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoolSize = 0
	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatalf("zero pool must fail")
	}
	cfg = DefaultConfig()
	cfg.SafeFill = []payout.Symbol{payout.Wild}
	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatalf("wild safe fill must fail")
	}
	if _, err := ParseTier("BIG"); err != nil {
		t.Fatalf("parse tier: %v", err)
	}
	if _, err := ParseTier("jackpot"); err == nil {
		t.Fatalf("unknown tier must fail")
	}
}
