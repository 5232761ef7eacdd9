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

package level

import (
	"slices"
	"testing"
	"time"

	"github.com/zintix-labs/slotstrike/sdk/core"
)

type fakeField struct {
	cols, rows int
	steps      int
	bottomAt   int // 第幾次 Step 觸底，0 代表永不
	spawned    []string
	maxRow     int
}

func (f *fakeField) Step() bool {
	f.steps++
	return f.bottomAt > 0 && f.steps >= f.bottomAt
}

func (f *fakeField) Spawn(col, row int, kind string, level int) {
	f.spawned = append(f.spawned, kind)
	f.maxRow = max(f.maxRow, row)
}

func (f *fakeField) Columns() int { return f.cols }
func (f *fakeField) Rows() int    { return f.rows }

func newTracker(t *testing.T, cfg Config, f *fakeField) *Tracker {
	t.Helper()
	tr, err := New(cfg, f, core.New(core.Default().New(1)), nil)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	return tr
}

func TestKillsSetStickyChoiceFlag(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KillsToAdvance = 3
	tr := newTracker(t, cfg, &fakeField{cols: 12, rows: 10})
	var changed []int
	tr.OnLevelChange(func(lv int) { changed = append(changed, lv) })

	for range 3 {
		tr.RecordKill()
	}
	if !tr.ShouldOfferChoice() {
		t.Fatalf("choice flag should be set")
	}
	tr.Advance()
	if !tr.ShouldOfferChoice() {
		t.Fatalf("advance must not clear the choice flag")
	}
	tr.CompleteUpgradeChoice()
	p := tr.Snapshot()
	if p.AwaitingChoice || p.Level != 2 || p.Kills != 0 || p.Rounds != 1 {
		t.Fatalf("after choice: %+v", p)
	}
	if !slices.Equal(changed, []int{2}) {
		t.Fatalf("listeners: %v", changed)
	}
}

func TestSpinBatchCadence(t *testing.T) {
	f := &fakeField{cols: 12, rows: 10}
	tr := newTracker(t, DefaultConfig(), f)
	batches := 0
	for range 50 {
		before := len(f.spawned)
		tr.OnSpin()
		if n := len(f.spawned) - before; n > 0 {
			batches++
			if n < 8 || n > 26 {
				t.Fatalf("batch size out of range: %d", n)
			}
		}
	}
	// 每 3~5 次 spin 一批
	if batches < 10 || batches > 17 {
		t.Fatalf("unexpected batch count %d", batches)
	}
	if f.maxRow > 2 {
		t.Fatalf("batch rows must stay within 0..2, got %d", f.maxRow)
	}
	if f.steps != 0 {
		t.Fatalf("no step during grace period, got %d", f.steps)
	}
}

func TestStepAfterGraceAndGameOver(t *testing.T) {
	f := &fakeField{cols: 12, rows: 10, bottomAt: 2}
	cfg := DefaultConfig()
	cfg.SpawnOnSpinOnly = true
	tr := newTracker(t, cfg, f)
	tr.Update(7 * time.Second)
	for range 4 {
		tr.OnSpin()
	}
	if f.steps != 2 || !tr.IsGameOver() {
		t.Fatalf("steps %d over %v", f.steps, tr.IsGameOver())
	}
	tr.OnSpin()
	if f.steps != 2 {
		t.Fatalf("spins after game over must be ignored")
	}
	if tr.ShouldOfferChoice() {
		t.Fatalf("no choice after game over")
	}
}

func TestTimeWaves(t *testing.T) {
	f := &fakeField{cols: 12, rows: 10}
	tr := newTracker(t, DefaultConfig(), f)
	tr.Update(5 * time.Second)
	if len(f.spawned) != 0 {
		t.Fatalf("no waves during grace")
	}
	tr.Update(2600 * time.Millisecond)
	if f.steps != 1 || len(f.spawned) < 2 || len(f.spawned) > 7 {
		t.Fatalf("one wave expected: steps %d spawned %d", f.steps, len(f.spawned))
	}
	tr.SetPaused(true)
	tr.Update(10 * time.Second)
	if f.steps != 1 {
		t.Fatalf("paused tracker must not spawn waves")
	}
}

func TestFormulas(t *testing.T) {
	if WaveInterval(1) != 2600*time.Millisecond || WaveInterval(100) != 900*time.Millisecond || WaveInterval(5) != 2240*time.Millisecond {
		t.Fatalf("wave interval")
	}
	if BatchSize(1) != 8 || BatchSize(3) != 9 || BatchSize(30) != 18 {
		t.Fatalf("batch size %d %d %d", BatchSize(1), BatchSize(3), BatchSize(30))
	}
	cfg := DefaultConfig()
	if got := cfg.EnemyPool(1); !slices.Equal(got, []string{"walker", "runner"}) {
		t.Fatalf("pool lv1: %v", got)
	}
	if got := cfg.EnemyPool(9); len(got) != 10 {
		t.Fatalf("pool lv9: %v", got)
	}
}

func TestSpawnInitial(t *testing.T) {
	f := &fakeField{cols: 12, rows: 10}
	tr := newTracker(t, DefaultConfig(), f)
	n := tr.SpawnInitial()
	if n != len(f.spawned) || n < 30 || n > 60 {
		t.Fatalf("initial spawn %d (recorded %d)", n, len(f.spawned))
	}
	if f.maxRow > 5 {
		t.Fatalf("initial rows must stay within 0..5")
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enemies = []Unlock{{"tank", 4}}
	if _, err := New(cfg, &fakeField{cols: 1, rows: 1}, nil, nil); err == nil {
		t.Fatalf("no level 1 enemy must fail")
	}
	if _, err := New(DefaultConfig(), nil, nil, nil); err == nil {
		t.Fatalf("nil field must fail")
	}
}
