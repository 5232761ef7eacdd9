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

// Package combo 連擊數與熱度計量。
//
// 時間以遊戲時鐘計算：只有 Update(dt) 會推進時間，模擬與測試不依賴牆上時鐘。
package combo

import (
	"slices"
	"sync"
	"time"

	"github.com/zintix-labs/slotstrike/sdk/modifier"
)

// Buff 連擊門檻獎勵
type Buff struct {
	Threshold int                `yaml:"threshold" json:"threshold"`
	Name      string             `yaml:"name" json:"name"`
	Mods      modifier.Modifiers `yaml:"mods" json:"mods"`
}

// Config 熱度參數
type Config struct {
	HeatMax                   float64       `yaml:"heat_max" json:"heat_max"`
	HeatPerWin                float64       `yaml:"heat_per_win" json:"heat_per_win"`
	HeatPerDamage             float64       `yaml:"heat_per_damage" json:"heat_per_damage"`
	DecayPerSecond            float64       `yaml:"decay_per_second" json:"decay_per_second"`
	DecayDelay                time.Duration `yaml:"decay_delay" json:"decay_delay"`
	OverdriveThreshold        float64       `yaml:"overdrive_threshold" json:"overdrive_threshold"`
	OverdriveDuration         time.Duration `yaml:"overdrive_duration" json:"overdrive_duration"`
	OverdriveExtraProjectiles int           `yaml:"overdrive_extra_projectiles" json:"overdrive_extra_projectiles"`
	OverdriveAoeScale         float64       `yaml:"overdrive_aoe_scale" json:"overdrive_aoe_scale"`
	Buffs                     []Buff        `yaml:"buffs" json:"buffs"`
}

// DefaultConfig 預設調校
func DefaultConfig() Config {
	return Config{
		HeatMax:                   100,
		HeatPerWin:                25,
		HeatPerDamage:             0.05,
		DecayPerSecond:            8,
		DecayDelay:                2000 * time.Millisecond,
		OverdriveThreshold:        100,
		OverdriveDuration:         6000 * time.Millisecond,
		OverdriveExtraProjectiles: 1,
		OverdriveAoeScale:         1.3,
		Buffs: []Buff{
			{Threshold: 3, Name: "spark", Mods: modifier.Modifiers{ExtraProjectiles: 1, CritChance: 0.05}},
			{Threshold: 6, Name: "flame", Mods: modifier.Modifiers{ExtraProjectiles: 2, CritChance: 0.1, AoeScale: 1.1}},
			{Threshold: 10, Name: "blaze", Mods: modifier.Modifiers{ExtraProjectiles: 3, CritChance: 0.15, AoeScale: 1.2, Pierce: 1}},
			{Threshold: 15, Name: "inferno", Mods: modifier.Modifiers{ExtraProjectiles: 4, CritChance: 0.2, AoeScale: 1.3, Pierce: 2, Lifesteal: 0.05}},
			{Threshold: 20, Name: "hellfire", Mods: modifier.Modifiers{ExtraProjectiles: 5, CritChance: 0.3, AoeScale: 1.5, Pierce: 3, Lifesteal: 0.1, Chain: 1}},
		},
	}
}

// State 對外快照
type State struct {
	ComboCount      int           `json:"combo_count"`
	Heat            float64       `json:"heat"`
	OverdriveActive bool          `json:"overdrive_active"`
	OverdriveLeft   time.Duration `json:"overdrive_left"`
	Buff            string        `json:"buff,omitempty"`
}

// Tracker 連擊/熱度狀態機，並發安全
type Tracker struct {
	mu  sync.Mutex
	cfg Config

	now        time.Duration
	combo      int
	heat       float64
	lastDamage time.Duration
	damaged    bool

	overdrive    bool
	overdriveEnd time.Duration
	buff         *Buff
}

// New 建立 tracker，buff 表依門檻排序
func New(cfg Config) *Tracker {
	cfg.Buffs = slices.Clone(cfg.Buffs)
	slices.SortFunc(cfg.Buffs, func(a, b Buff) int { return a.Threshold - b.Threshold })
	return &Tracker{cfg: cfg}
}

// RecordWin 連擊 +1、加熱，並重新挑選 buff
func (t *Tracker) RecordWin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.combo++
	t.addHeat(t.cfg.HeatPerWin)
	t.buff = nil
	for i := range t.cfg.Buffs {
		if t.combo >= t.cfg.Buffs[i].Threshold {
			t.buff = &t.cfg.Buffs[i]
		}
	}
}

// RecordLoss 連擊歸零並清掉連擊 buff 與進行中的 overdrive；熱度保留
func (t *Tracker) RecordLoss() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.combo = 0
	t.buff = nil
	t.overdrive = false
}

// RecordDamage 依傷害加熱，並重設衰減延遲
func (t *Tracker) RecordDamage(amount float64) {
	if amount <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addHeat(amount * t.cfg.HeatPerDamage)
	t.lastDamage = t.now
	t.damaged = true
}

// Update 推進遊戲時鐘；衰減延遲過後線性降溫，overdrive 到期關閉
func (t *Tracker) Update(dt time.Duration) {
	if dt <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now += dt
	if !t.damaged || t.now-t.lastDamage > t.cfg.DecayDelay {
		t.heat = max(0, t.heat-t.cfg.DecayPerSecond*dt.Seconds())
	}
	if t.overdrive && t.now >= t.overdriveEnd {
		t.overdrive = false
	}
}

// addHeat 由下往上穿過門檻時啟動 overdrive；呼叫端需持鎖
func (t *Tracker) addHeat(v float64) {
	prev := t.heat
	t.heat = min(t.cfg.HeatMax, max(0, t.heat+v))
	if prev < t.cfg.OverdriveThreshold && t.heat >= t.cfg.OverdriveThreshold {
		t.overdrive = true
		t.overdriveEnd = t.now + t.cfg.OverdriveDuration
	}
}

// Modifiers overdrive 固定加成疊上目前 buff
func (t *Tracker) Modifiers() modifier.Modifiers {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := modifier.Zero()
	if t.overdrive {
		m = modifier.StackBuff(m, modifier.Modifiers{
			ExtraProjectiles: t.cfg.OverdriveExtraProjectiles,
			AoeScale:         t.cfg.OverdriveAoeScale,
		})
	}
	if t.buff != nil {
		m = modifier.StackBuff(m, t.buff.Mods)
	}
	return m
}

// State 目前狀態快照
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := State{ComboCount: t.combo, Heat: t.heat, OverdriveActive: t.overdrive}
	if t.overdrive {
		s.OverdriveLeft = max(0, t.overdriveEnd-t.now)
	}
	if t.buff != nil {
		s.Buff = t.buff.Name
	}
	return s
}

// Reset 新遊戲
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.combo, t.heat = 0, 0
	t.lastDamage, t.damaged = 0, false
	t.overdrive, t.overdriveEnd = false, 0
	t.buff = nil
}
