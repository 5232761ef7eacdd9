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

package jackpot

import (
	"math"
	"testing"
)

func TestCalcDamage(t *testing.T) {
	cases := []struct {
		bet, win, gain, want float64
	}{
		{0, 0, 1, 1.9 + 0.16},
		{100, 5, 1, 1.9 + 1.6 + 0.6},
		{10000, 1, 1, 5.5},
		{100, 0, 2, (1.9 + 1.6) * 2},
	}
	for _, tc := range cases {
		if got := CalcDamage(tc.bet, tc.win, tc.gain); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("bet %v win %v gain %v: want %v got %v", tc.bet, tc.win, tc.gain, tc.want, got)
		}
	}
	if CalcBonus(10) != 100 || CalcBonus(2.6) != 70 {
		t.Fatalf("bonus: %v %v", CalcBonus(10), CalcBonus(2.6))
	}
}

func TestKillAndRespawn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartHP = 5
	b := New(cfg, nil)
	h := b.Apply(1, 0) // 2.06
	if h.Killed || h.Bonus != 0 {
		t.Fatalf("first hit must not kill: %+v", h)
	}
	h = b.Apply(1, 0)
	if h.Killed {
		t.Fatalf("second hit leaves ~0.88 hp: %+v", h)
	}
	h = b.Apply(1, 0)
	if !h.Killed || h.Bonus != 64 {
		t.Fatalf("third hit must kill with bonus 64: %+v", h)
	}
	if s := b.State(); s.HP != s.MaxHP || s.Kills != 1 {
		t.Fatalf("respawn: %+v", s)
	}
}

func TestSetLevelHP(t *testing.T) {
	b := New(DefaultConfig(), nil)
	b.SetLevel(1)
	if s := b.State(); s.MaxHP != 260 || s.HP != 260 {
		t.Fatalf("lv1: %+v", s)
	}
	b.SetLevel(4)
	if s := b.State(); s.MaxHP != 590 || s.Name != "Lv4 Bio Hound King" {
		t.Fatalf("lv4: %+v", s)
	}
	b.SetLevel(50)
	if s := b.State(); s.MaxHP != 1600 {
		t.Fatalf("cap: %+v", s)
	}
}

func TestOverloadAndPower(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartHP = 20
	gain := 1.0
	b := New(cfg, func() float64 { return gain })
	if b.IsOverloadReady() {
		t.Fatalf("full hp must not be ready")
	}
	gain = 3
	for !b.IsOverloadReady() {
		if h := b.Apply(1, 0); h.Killed {
			t.Fatalf("boss died before overload window")
		}
	}
	s := b.State()
	want := math.Round((s.MaxHP - s.HP) * 0.1 * 1.5)
	if got := b.Power(0.5); got != want {
		t.Fatalf("power want %v got %v", want, got)
	}
	if b.State().HP != s.HP {
		t.Fatalf("reading power must not change hp")
	}
}
