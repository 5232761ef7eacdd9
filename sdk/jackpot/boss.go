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

// Package jackpot 彩金 boss：每次 spin 扣血，擊倒時給 bonus 並以滿血重生。
package jackpot

import (
	"fmt"
	"math"
	"sync"
)

// Config boss 參數
type Config struct {
	StartHP       float64  `yaml:"start_hp" json:"start_hp"`
	BaseHP        float64  `yaml:"base_hp" json:"base_hp"`
	HPPerLevel    float64  `yaml:"hp_per_level" json:"hp_per_level"`
	MaxHPCap      float64  `yaml:"max_hp_cap" json:"max_hp_cap"`
	OverloadRatio float64  `yaml:"overload_ratio" json:"overload_ratio"` // hp 低於 maxHP*ratio 時可過載
	PowerFactor   float64  `yaml:"power_factor" json:"power_factor"`
	Variants      []string `yaml:"variants" json:"variants"`
}

func DefaultConfig() Config {
	return Config{
		StartHP:       220,
		BaseHP:        260,
		HPPerLevel:    110,
		MaxHPCap:      1600,
		OverloadRatio: 0.25,
		PowerFactor:   0.1,
		Variants: []string{
			"Block Tyrant", "Mech Colossus", "Ghost Lord", "Bio Hound King",
			"Iron Maniac", "Blast Core", "Shadow Bat King", "Shield Regent",
		},
	}
}

// Hit 一次 spin 的結果
type Hit struct {
	Damage float64 `json:"damage"`
	Bonus  float64 `json:"bonus"`
	Killed bool    `json:"killed"`
}

// State boss 快照
type State struct {
	Name  string  `json:"name"`
	Level int     `json:"level"`
	HP    float64 `json:"hp"`
	MaxHP float64 `json:"max_hp"`
	Kills int     `json:"kills"`
}

// Boss 並發安全
type Boss struct {
	mu    sync.Mutex
	cfg   Config
	level int
	hp    float64
	maxHP float64
	kills int
	gain  func() float64
}

// New gain 為傷害倍率來源（升級的 jackpotGain），nil 時固定為 1
func New(cfg Config, gain func() float64) *Boss {
	if gain == nil {
		gain = func() float64 { return 1 }
	}
	return &Boss{cfg: cfg, level: 1, hp: cfg.StartHP, maxHP: cfg.StartHP, gain: gain}
}

// SetLevel 依關卡重設血量上限並補滿
func (b *Boss) SetLevel(lv int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = max(1, lv)
	b.maxHP = clampF(b.cfg.BaseHP+float64(b.level-1)*b.cfg.HPPerLevel, b.cfg.BaseHP, b.cfg.MaxHPCap)
	b.hp = b.maxHP
}

// CalcDamage clamp(1.9 + sqrt(max(1,bet))*0.16 + (win>0 ? 0.6 : 0), 0.9, 5.5) * gain
func CalcDamage(bet, win, gain float64) float64 {
	base := 1.9 + math.Sqrt(math.Max(1, bet))*0.16
	if win > 0 {
		base += 0.6
	}
	return clampF(base, 0.9, 5.5) * gain
}

// CalcBonus round(60 + bet*4)
func CalcBonus(bet float64) float64 {
	return math.Round(60 + bet*4)
}

// Apply 扣血；血量歸零時回傳 bonus 並滿血重生
func (b *Boss) Apply(bet, win float64) Hit {
	g := b.gain()
	b.mu.Lock()
	defer b.mu.Unlock()
	dmg := CalcDamage(bet, win, g)
	b.hp = clampF(b.hp-dmg, 0, b.maxHP)
	if b.hp > 0 {
		return Hit{Damage: dmg}
	}
	b.kills++
	b.hp = b.maxHP
	return Hit{Damage: dmg, Bonus: CalcBonus(bet), Killed: true}
}

// IsOverloadReady hp 在 (0, maxHP*ratio] 之間
func (b *Boss) IsOverloadReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hp > 0 && b.hp <= b.maxHP*b.cfg.OverloadRatio
}

// Power round((maxHP-hp) * factor * (1+overloadBonus))；只讀取不扣血
func (b *Boss) Power(overloadBonus float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return math.Round((b.maxHP - b.hp) * b.cfg.PowerFactor * (1 + overloadBonus))
}

func (b *Boss) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	name := "BOSS"
	if n := len(b.cfg.Variants); n > 0 {
		name = fmt.Sprintf("Lv%d %s", b.level, b.cfg.Variants[(b.level-1)%n])
	}
	return State{Name: name, Level: b.level, HP: b.hp, MaxHP: b.maxHP, Kills: b.kills}
}

func clampF(v, lo, hi float64) float64 { return math.Min(hi, math.Max(lo, v)) }
