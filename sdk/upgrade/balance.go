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

package upgrade

import (
	"math"
	"sync"
)

// Stat 戰鬥數值名稱
type Stat string

const (
	StatDamage         Stat = "damage"
	StatCritChance     Stat = "crit_chance"
	StatCritMultiplier Stat = "crit_multiplier"
	StatSpeed          Stat = "speed"
	StatAoeRadius      Stat = "aoe_radius"
	StatPierceCount    Stat = "pierce_count"
	StatChainCount     Stat = "chain_count"
	StatMaxHP          Stat = "max_hp"
	StatFireInterval   Stat = "fire_interval"
)

// Stats 報表輸出順序
var Stats = []Stat{
	StatDamage, StatCritChance, StatCritMultiplier, StatSpeed, StatAoeRadius,
	StatPierceCount, StatChainCount, StatMaxHP, StatFireInterval,
}

// BalanceConfig 基礎數值與上下限
type BalanceConfig struct {
	Base            map[Stat]float64 `yaml:"base" json:"base"`
	MaxCritChance   float64          `yaml:"max_crit_chance" json:"max_crit_chance"`
	MinFireInterval float64          `yaml:"min_fire_interval" json:"min_fire_interval"`
	MaxSpeed        float64          `yaml:"max_speed" json:"max_speed"`
	DamagePerLevel  float64          `yaml:"damage_per_level" json:"damage_per_level"`
}

func DefaultBalanceConfig() BalanceConfig {
	return BalanceConfig{
		Base: map[Stat]float64{
			StatDamage:         1000, // 戰鬥數值以 x100 計
			StatCritChance:     0.05,
			StatCritMultiplier: 2.0,
			StatSpeed:          26,
			StatAoeRadius:      80,
			StatPierceCount:    0,
			StatChainCount:     0,
			StatMaxHP:          220,
			StatFireInterval:   1.0,
		},
		MaxCritChance:   1.0,
		MinFireInterval: 0.1,
		MaxSpeed:        50,
		DamagePerLevel:  0.1,
	}
}

// StatRow 報表列
type StatRow struct {
	Stat     Stat    `json:"stat"`
	Base     float64 `json:"base"`
	Current  float64 `json:"current"`
	Modifier float64 `json:"modifier"`
}

// Balance 升級累積出的數值修正。
// 乘法修正以 1.0 起算（+value）；暴擊率與暴擊倍率是加在基礎值上的加法修正。
type Balance struct {
	mu          sync.RWMutex
	cfg         BalanceConfig
	level       int
	mult        map[Stat]float64
	add         map[Stat]float64
	bullets     int
	jackpotGain float64
}

func NewBalance(cfg BalanceConfig) *Balance {
	b := &Balance{cfg: cfg, level: 1, jackpotGain: 1}
	b.reset()
	return b
}

func (b *Balance) reset() {
	b.mult = make(map[Stat]float64, len(Stats))
	for _, s := range Stats {
		b.mult[s] = 1
	}
	b.add = make(map[Stat]float64)
	b.bullets = 0
	b.jackpotGain = 1
}

// SetLevel 傷害隨關卡成長
func (b *Balance) SetLevel(lv int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = max(1, lv)
}

// Get 目前數值：base * 關卡成長(僅傷害) * 乘法修正 + 加法修正，再套上限
func (b *Balance) Get(s Stat) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.get(s)
}

func (b *Balance) get(s Stat) float64 {
	base, ok := b.cfg.Base[s]
	if !ok {
		return 0
	}
	v := base
	if s == StatDamage {
		v *= 1 + float64(b.level-1)*b.cfg.DamagePerLevel
	}
	v *= b.mult[s]
	v += b.add[s]
	switch s {
	case StatCritChance:
		v = math.Min(b.cfg.MaxCritChance, v)
	case StatSpeed:
		v = math.Min(b.cfg.MaxSpeed, v)
	case StatFireInterval:
		v = math.Max(b.cfg.MinFireInterval, v)
	}
	return v
}

// Damage 依押注縮放的基礎傷害
func (b *Balance) Damage(bet float64) float64 {
	return b.Get(StatDamage) * bet / 10
}

// DamageFactor 傷害相對於基礎值的倍率（含關卡成長）
func (b *Balance) DamageFactor() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	base := b.cfg.Base[StatDamage]
	if base == 0 {
		return 1
	}
	return b.get(StatDamage) / base
}

// AoeFactor AOE 半徑相對於基礎值的倍率
func (b *Balance) AoeFactor() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mult[StatAoeRadius]
}

// BulletCount 升級給的額外子彈
func (b *Balance) BulletCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bullets
}

// JackpotGain boss 傷害倍率
func (b *Balance) JackpotGain() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.jackpotGain
}

// Report 各數值的基礎/目前/乘法修正
func (b *Balance) Report() []StatRow {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rows := make([]StatRow, 0, len(Stats))
	for _, s := range Stats {
		rows = append(rows, StatRow{Stat: s, Base: b.cfg.Base[s], Current: b.get(s), Modifier: b.mult[s]})
	}
	return rows
}

func (b *Balance) mulAdd(s Stat, v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mult[s] += v
}

func (b *Balance) flatAdd(s Stat, v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.add[s] += v
}
