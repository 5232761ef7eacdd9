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

package turn

import (
	"testing"

	"github.com/zintix-labs/slotstrike/sdk/modifier"
	"github.com/zintix-labs/slotstrike/sdk/payout"
)

type fakeBoss struct {
	ready bool
	power float64
	bonus float64
}

func (f *fakeBoss) IsOverloadReady() bool { return f.ready }
func (f *fakeBoss) Power(b float64) float64 {
	f.bonus = b
	return f.power
}

func win(idx int, s ...payout.Symbol) payout.WinLine {
	return payout.WinLine{LineIndex: idx, Symbols: [3]payout.Symbol{s[0], s[1], s[2]}, PayoutMultiplier: 1}
}

func TestShootWithWild(t *testing.T) {
	o := payout.Outcome{Wins: []payout.WinLine{win(0, payout.Low, payout.Low, payout.Wild)}}
	plan := NewPlanner(DefaultConfig()).Build(o, modifier.Zero(), 10, nil)
	if len(plan.Events) != 1 {
		t.Fatalf("want 1 event got %v", plan.Events)
	}
	ev := plan.Events[0]
	if ev.Kind != Shoot || ev.Dmg != 15 || ev.Count != 2 {
		t.Fatalf("want Shoot{15,2} got %v", ev)
	}
}

func TestAllWildLineProducesNoEvents(t *testing.T) {
	o := payout.Outcome{Wins: []payout.WinLine{win(6, payout.Wild, payout.Wild, payout.Wild)}}
	plan := NewPlanner(DefaultConfig()).Build(o, modifier.Zero(), 10, &fakeBoss{})
	if len(plan.Events) != 0 {
		t.Fatalf("all-wild line must not create events: %v", plan.Events)
	}
}

func TestEventOrderAndOverloadLast(t *testing.T) {
	o := payout.Outcome{Wins: []payout.WinLine{
		win(1, payout.High, payout.Wild, payout.High),
		win(4, payout.Mid, payout.Mid, payout.Mid),
	}}
	boss := &fakeBoss{ready: true, power: 42}
	mods := modifier.Modifiers{AoeScale: 1, OverloadBonus: 0.3}
	plan := NewPlanner(DefaultConfig()).Build(o, mods, 2, boss)
	want := []Event{
		{Kind: Missile, Dmg: 2 * 3 * 1.5, Splash: 120},
		{Kind: Grenade, Dmg: 2 * 2, Radius: 90},
		{Kind: Overload, Power: 42},
	}
	if len(plan.Events) != len(want) {
		t.Fatalf("events: %v", plan.Events)
	}
	for i := range want {
		if plan.Events[i] != want[i] {
			t.Fatalf("event %d: want %v got %v", i, want[i], plan.Events[i])
		}
	}
	if boss.bonus != 0.3 {
		t.Fatalf("overload bonus not forwarded: %v", boss.bonus)
	}
	if plan.Modifiers != mods || plan.FinalWin != 0 {
		t.Fatalf("plan fields: %+v", plan)
	}
}

func TestWithOriginCopies(t *testing.T) {
	ev := Event{Kind: Shoot, Dmg: 1, Count: 1}
	moved := ev.WithOrigin(Point{X: 3, Y: 4})
	if ev.Origin != nil || moved.Origin == nil || moved.Origin.X != 3 {
		t.Fatalf("origin injection must not mutate source")
	}
}

type fixedMods modifier.Modifiers

func (f fixedMods) Modifiers() modifier.Modifiers { return modifier.Modifiers(f) }

func TestBuilderDiagonalWilds(t *testing.T) {
	var g payout.Grid
	g[0][0], g[1][1], g[2][2] = payout.Wild, payout.Wild, payout.Wild
	o := payout.Default().Outcome(g)
	combo := fixedMods{Pierce: 4, Chain: 0, AoeScale: 1.3, ExtraProjectiles: 1}
	plan := NewBuilder(nil, nil, combo, &fakeBoss{}).BuildPlan(o, 10)
	if plan.Modifiers.Archetype != modifier.WildOverdrive {
		t.Fatalf("archetype: %v", plan.Modifiers.Archetype)
	}
	if len(plan.Events) != 0 {
		t.Fatalf("all-wild line must not create events: %v", plan.Events)
	}
	m := plan.Modifiers
	if m.Pierce != 4 || m.Chain != 2 || m.ExtraProjectiles != 2 {
		t.Fatalf("merge: %+v", m)
	}
}
