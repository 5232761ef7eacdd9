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

package field

import (
	"context"
	"testing"
	"time"

	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/modifier"
	"github.com/zintix-labs/slotstrike/sdk/turn"
	"github.com/zintix-labs/slotstrike/sdk/upgrade"
)

// noCrit 基礎暴擊率為 0，讓傷害可預期
func noCrit() *upgrade.Balance {
	cfg := upgrade.DefaultBalanceConfig()
	cfg.Base[upgrade.StatCritChance] = 0
	return upgrade.NewBalance(cfg)
}

func newField() *Field {
	return New(DefaultConfig(), noCrit(), core.New(core.Default().New(1)))
}

func TestSpawnHP(t *testing.T) {
	f := newField()
	f.Spawn(0, 0, "walker", 1)
	f.Spawn(1, 0, "walker", 3)
	f.Spawn(2, 0, "ghoul", 1)
	es := f.Enemies()
	if es[0].MaxHP != 600 || es[1].MaxHP != 816 || es[2].MaxHP != 100 {
		t.Fatalf("hp: %v %v %v", es[0].MaxHP, es[1].MaxHP, es[2].MaxHP)
	}
}

func TestShootFrontAndPierce(t *testing.T) {
	f := newField()
	var kills, hits int
	f.OnKilled = func(Enemy) { kills++ }
	f.OnDamage = func(float64) { hits++ }
	f.Spawn(0, 3, "walker", 1)
	f.Spawn(0, 5, "walker", 1)
	f.Spawn(4, 1, "walker", 1)

	ev := turn.Event{Kind: turn.Shoot, Dmg: 6, Count: 1}
	if err := f.PlayCombatEvent(context.Background(), ev, modifier.Zero()); err != nil {
		t.Fatalf("play: %v", err)
	}
	if kills != 1 || hits != 1 {
		t.Fatalf("kills %d hits %d", kills, hits)
	}
	for _, e := range f.Enemies() {
		if e.Row == 5 {
			t.Fatalf("front enemy should be dead")
		}
	}
	f.Spawn(0, 6, "walker", 1)
	mods := modifier.Zero()
	mods.Pierce = 1
	if err := f.PlayCombatEvent(context.Background(), ev, mods); err != nil {
		t.Fatalf("play: %v", err)
	}
	if kills != 3 || len(f.Enemies()) != 1 {
		t.Fatalf("pierce should kill both in column 0: kills %d alive %d", kills, len(f.Enemies()))
	}
}

func TestShootExtraProjectiles(t *testing.T) {
	f := newField()
	for c := range 4 {
		f.Spawn(c, 2, "runner", 1)
	}
	mods := modifier.Zero()
	mods.ExtraProjectiles = 2
	f.PlayCombatEvent(context.Background(), turn.Event{Kind: turn.Shoot, Dmg: 3, Count: 1}, mods)
	if n := len(f.Enemies()); n != 1 {
		t.Fatalf("three shots should kill three runners, alive %d", n)
	}
}

func TestGrenadeRadius(t *testing.T) {
	f := newField()
	f.Spawn(5, 5, "tank", 1)
	f.Spawn(6, 5, "tank", 1)
	f.Spawn(9, 5, "tank", 1)
	f.PlayCombatEvent(context.Background(), turn.Event{Kind: turn.Grenade, Dmg: 4, Radius: 90}, modifier.Zero())
	es := f.Enemies()
	// 4*100 = 400 on target, 200 on the neighbour, nothing at distance 4
	want := map[int]float64{5: 1400, 6: 1600, 9: 1800}
	for _, e := range es {
		if e.HP != want[e.Col] {
			t.Fatalf("col %d hp want %v got %v", e.Col, want[e.Col], e.HP)
		}
	}
	if s := f.Stats(); s.Damage != 600 || s.Crits != 0 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestChainSkipsLastTarget(t *testing.T) {
	f := newField()
	f.Spawn(0, 5, "tank", 1)
	f.Spawn(11, 0, "tank", 1)
	mods := modifier.Zero()
	mods.Chain = 1
	f.PlayCombatEvent(context.Background(), turn.Event{Kind: turn.Missile, Dmg: 2, Splash: 0}, mods)
	for _, e := range f.Enemies() {
		if e.Col == 11 && e.HP != 1800-100 {
			t.Fatalf("chain must bounce to the other enemy at half damage, hp %v", e.HP)
		}
	}
}

func TestOverloadAndStep(t *testing.T) {
	f := newField()
	f.Spawn(0, 8, "walker", 1)
	f.Spawn(3, 2, "runner", 1)
	if f.Step() {
		t.Fatalf("row 9 is still on the field")
	}
	if !f.Step() || !f.HasReachedBottom() {
		t.Fatalf("row 10 reaches the bottom")
	}
	f.PlayCombatEvent(context.Background(), turn.Event{Kind: turn.Overload, Power: 10}, modifier.Zero())
	if !f.IsAllEnemiesDead() {
		t.Fatalf("overload power 10 should clear the field")
	}
	if s := f.Stats(); s.Killed != 2 || s.Spawned != 2 || s.Alive != 0 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestEventDelayHonoursContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EventDelay = time.Hour
	f := New(cfg, noCrit(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.PlayCombatEvent(ctx, turn.Event{Kind: turn.Shoot, Dmg: 1, Count: 1}, modifier.Zero()); err == nil {
		t.Fatalf("cancelled context must abort the event")
	}
}
