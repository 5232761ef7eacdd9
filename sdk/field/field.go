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

// Package field 無畫面的敵人場地，同時扮演戰鬥結算者。
//
// 敵人在 Columns x Rows 的格子上由上往下推進；戰鬥事件依修飾值與升級數值對敵人造成傷害。
package field

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/zintix-labs/slotstrike/sdk/async"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/modifier"
	"github.com/zintix-labs/slotstrike/sdk/turn"
	"github.com/zintix-labs/slotstrike/sdk/upgrade"
)

// Config 場地參數
type Config struct {
	Columns     int                `yaml:"columns" json:"columns"`
	Rows        int                `yaml:"rows" json:"rows"`
	CombatScale float64            `yaml:"combat_scale" json:"combat_scale"` // 事件傷害與敵人血量的放大倍率
	CellSize    float64            `yaml:"cell_size" json:"cell_size"`       // 一格對應的半徑單位，radius/splash 以此換算成格數
	LevelHPStep float64            `yaml:"level_hp_step" json:"level_hp_step"`
	LevelHPCap  float64            `yaml:"level_hp_cap" json:"level_hp_cap"`
	HP          map[string]float64 `yaml:"hp" json:"hp"`
	EventDelay  time.Duration      `yaml:"event_delay" json:"event_delay"` // 每個事件的模擬播放時間
}

func DefaultConfig() Config {
	return Config{
		Columns:     12,
		Rows:        10,
		CombatScale: 100,
		CellSize:    60,
		LevelHPStep: 0.18,
		LevelHPCap:  4,
		HP: map[string]float64{
			"walker": 6, "runner": 3, "tank": 18, "spitter": 5, "brute": 12,
			"glitch": 9, "bomber": 4, "shield": 14, "phantom": 7, "flyer": 5,
		},
	}
}

// Enemy 場上的敵人
type Enemy struct {
	ID    int     `json:"id"`
	Kind  string  `json:"kind"`
	Col   int     `json:"col"`
	Row   int     `json:"row"`
	HP    float64 `json:"hp"`
	MaxHP float64 `json:"max_hp"`
}

// Stats 場地統計
type Stats struct {
	Alive   int     `json:"alive"`
	Spawned int     `json:"spawned"`
	Killed  int     `json:"killed"`
	Damage  float64 `json:"damage"`
	Crits   int     `json:"crits"`
	Bottom  bool    `json:"bottom"`
}

// Field 並發安全；OnKilled/OnDamage 在釋放鎖之後才呼叫
type Field struct {
	mu      sync.Mutex
	cfg     Config
	c       *core.Core
	bal     *upgrade.Balance
	enemies []*Enemy
	nextID  int
	stats   Stats

	OnKilled func(Enemy)
	OnDamage func(amount float64)
}

func New(cfg Config, bal *upgrade.Balance, c *core.Core) *Field {
	if bal == nil {
		bal = upgrade.NewBalance(upgrade.DefaultBalanceConfig())
	}
	if c == nil {
		c = core.NewSeeded(core.RandomSeed())
	}
	if cfg.CellSize <= 0 {
		cfg.CellSize = 60
	}
	return &Field{cfg: cfg, c: c, bal: bal}
}

func (f *Field) Columns() int { return f.cfg.Columns }
func (f *Field) Rows() int    { return f.cfg.Rows }

// Spawn 生成一隻敵人，血量 = 種類血量 * CombatScale * min(cap, 1+(lv-1)*step)
func (f *Field) Spawn(col, row int, kind string, level int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base, ok := f.cfg.HP[kind]
	if !ok {
		base = 1
	}
	scale := math.Min(f.cfg.LevelHPCap, 1+float64(max(1, level)-1)*f.cfg.LevelHPStep)
	hp := math.Max(1, math.Round(base*f.cfg.CombatScale*scale))
	f.nextID++
	f.enemies = append(f.enemies, &Enemy{ID: f.nextID, Kind: kind, Col: col, Row: row, HP: hp, MaxHP: hp})
	f.stats.Spawned++
}

// Step 全體前進一列；任一敵人到達 Rows 即觸底
func (f *Field) Step() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	bottom := false
	for _, e := range f.enemies {
		e.Row++
		if e.Row >= f.cfg.Rows {
			bottom = true
		}
	}
	if bottom {
		f.stats.Bottom = true
	}
	return bottom
}

// HasReachedBottom 是否曾經觸底
func (f *Field) HasReachedBottom() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats.Bottom
}

func (f *Field) IsAllEnemiesDead() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enemies) == 0
}

// Enemies 場上敵人快照
func (f *Field) Enemies() []Enemy {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Enemy, len(f.enemies))
	for i, e := range f.enemies {
		out[i] = *e
	}
	return out
}

func (f *Field) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.stats
	s.Alive = len(f.enemies)
	return s
}

// hitLog 鎖內累積的回呼
type hitLog struct {
	damage []float64
	killed []Enemy
}

// PlayCombatEvent 結算一個戰鬥事件
func (f *Field) PlayCombatEvent(ctx context.Context, ev turn.Event, mods modifier.Modifiers) error {
	if err := async.Delay(ctx, f.cfg.EventDelay); err != nil {
		return err
	}
	var log hitLog
	f.mu.Lock()
	switch ev.Kind {
	case turn.Shoot:
		f.shoot(ev, mods, &log)
	case turn.Grenade:
		f.blast(ev.Dmg, ev.Radius, 0.5, 0.5, mods, &log)
	case turn.Missile:
		f.blast(ev.Dmg, ev.Splash, 0.85, 0.45, mods, &log)
	case turn.Overload:
		dmg := ev.Power * f.cfg.CombatScale
		for _, e := range slices.Clone(f.enemies) {
			f.hit(e, dmg, &log)
		}
	}
	f.mu.Unlock()

	for _, d := range log.damage {
		if f.OnDamage != nil {
			f.OnDamage(d)
		}
	}
	for _, e := range log.killed {
		if f.OnKilled != nil {
			f.OnKilled(e)
		}
	}
	return nil
}

// front 最靠近底部的敵人（同列取最左），呼叫端需持鎖
func (f *Field) front() *Enemy {
	if len(f.enemies) == 0 {
		return nil
	}
	return slices.MinFunc(f.enemies, func(a, b *Enemy) int {
		if a.Row != b.Row {
			return b.Row - a.Row
		}
		return cmp.Or(a.Col-b.Col, a.ID-b.ID)
	})
}

// base 事件傷害換算成實際數值並擲暴擊
func (f *Field) base(dmg float64, mods modifier.Modifiers) (float64, bool) {
	v := dmg * f.cfg.CombatScale * f.bal.DamageFactor()
	crit := f.bal.Get(upgrade.StatCritChance) + mods.CritChance
	if f.c.Chance(crit) {
		return v * f.bal.Get(upgrade.StatCritMultiplier), true
	}
	return v, false
}

// shoot 每發子彈打最前方的敵人，pierce 讓子彈再穿過同一行後方的敵人
func (f *Field) shoot(ev turn.Event, mods modifier.Modifiers, log *hitLog) {
	shots := ev.Count + mods.ExtraProjectiles + f.bal.BulletCount()
	for range shots {
		target := f.front()
		if target == nil {
			return
		}
		dmg, crit := f.base(ev.Dmg, mods)
		if crit {
			f.stats.Crits++
		}
		behind := f.column(target)
		f.hit(target, dmg, log)
		for i := 0; i < mods.Pierce && i < len(behind); i++ {
			f.hit(behind[i], dmg, log)
		}
	}
}

// column 與 target 同一行、在其後方的敵人，由近到遠
func (f *Field) column(target *Enemy) []*Enemy {
	var out []*Enemy
	for _, e := range f.enemies {
		if e != target && e.Col == target.Col && e.Row <= target.Row {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *Enemy) int { return cmp.Or(b.Row-a.Row, a.ID-b.ID) })
	return out
}

// blast 打最前方的敵人，半徑內的其他敵人受 near(一格內)/far 比例傷害，chain 再彈到最近的敵人
func (f *Field) blast(dmg, radius, nearRatio, farRatio float64, mods modifier.Modifiers, log *hitLog) {
	target := f.front()
	if target == nil {
		return
	}
	v, crit := f.base(dmg, mods)
	if crit {
		f.stats.Crits++
	}
	r := radius * unit(mods.AoeScale) * f.bal.AoeFactor() / f.cfg.CellSize
	tc, tr := target.Col, target.Row
	victims := slices.Clone(f.enemies)
	for _, e := range victims {
		if e == target {
			continue
		}
		d := math.Hypot(float64(e.Col-tc), float64(e.Row-tr))
		if d > r {
			continue
		}
		ratio := farRatio
		if d <= 1 {
			ratio = nearRatio
		}
		f.hit(e, v*ratio, log)
	}
	f.hit(target, v, log)

	last := target
	for range mods.Chain {
		next := f.nearest(tc, tr, last)
		if next == nil {
			return
		}
		tc, tr, last = next.Col, next.Row, next
		f.hit(next, v*0.5, log)
	}
}

// nearest 離 (c,r) 最近且不是 skip 的敵人
func (f *Field) nearest(c, r int, skip *Enemy) *Enemy {
	var best *Enemy
	bestD := math.Inf(1)
	for _, e := range f.enemies {
		if e == skip {
			continue
		}
		if d := math.Hypot(float64(e.Col-c), float64(e.Row-r)); d < bestD {
			best, bestD = e, d
		}
	}
	return best
}

// hit 扣血，死亡時移出場地；呼叫端需持鎖
func (f *Field) hit(e *Enemy, dmg float64, log *hitLog) {
	if dmg <= 0 || e.HP <= 0 {
		return
	}
	e.HP = math.Max(0, e.HP-dmg)
	f.stats.Damage += dmg
	log.damage = append(log.damage, dmg)
	if e.HP > 0 {
		return
	}
	f.stats.Killed++
	log.killed = append(log.killed, *e)
	f.enemies = slices.DeleteFunc(f.enemies, func(x *Enemy) bool { return x == e })
}

func unit(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
