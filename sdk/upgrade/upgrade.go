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

// Package upgrade 關卡之間的升級選擇與其累積效果。
package upgrade

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/sampler"
)

// Rarity 稀有度
type Rarity string

const (
	Common Rarity = "common"
	Rare   Rarity = "rare"
	Epic   Rarity = "epic"
)

// Effect 升級效果種類
type Effect string

const (
	EffectDamage      Effect = "damage"
	EffectBulletCount Effect = "bulletCount"
	EffectCrit        Effect = "crit"
	EffectCritDamage  Effect = "critDamage"
	EffectAoe         Effect = "aoe"
	EffectJackpotGain Effect = "jackpotGain"
	EffectMaxHP       Effect = "maxHP"
	EffectSpeed       Effect = "speed"
	EffectFireRate    Effect = "fireRate"
)

// Upgrade 一個升級選項
type Upgrade struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Rarity      Rarity  `yaml:"rarity" json:"rarity"`
	Effect      Effect  `yaml:"effect" json:"effect"`
	Value       float64 `yaml:"value" json:"value"`
}

// Config 升級池
type Config struct {
	Pool    []Upgrade      `yaml:"pool" json:"pool"`
	Weights map[Rarity]int `yaml:"weights" json:"weights"`
	Offer   int            `yaml:"offer" json:"offer"` // 每次提供幾個選項
}

func DefaultConfig() Config {
	return Config{
		Pool: []Upgrade{
			{"damage_boost", "Incendiary Rounds", "bullet damage +20%", Common, EffectDamage, 0.2},
			{"bullet_count", "Multi Shot", "+1 bullet per shot", Common, EffectBulletCount, 1},
			{"crit_chance", "Precision Strike", "crit chance +15%", Rare, EffectCrit, 0.15},
			{"crit_damage", "Lethal Blow", "crit damage +50%", Rare, EffectCritDamage, 0.5},
			{"aoe_radius", "Wide Blast", "AOE radius +20%", Common, EffectAoe, 0.2},
			{"jackpot_gain", "Fortune Boost", "jackpot damage +25%", Rare, EffectJackpotGain, 0.25},
			{"max_hp_boost", "Vital Surge", "max HP +30%", Common, EffectMaxHP, 0.3},
			{"speed_boost", "Swift Rounds", "bullet speed +30%", Common, EffectSpeed, 0.3},
			{"fire_rate", "Quick Reload", "fire interval -15%", Rare, EffectFireRate, -0.15},
			{"mega_damage", "Annihilation", "bullet damage +50%", Epic, EffectDamage, 0.5},
			{"jackpot_mega", "Boss Bane", "jackpot damage +60%", Epic, EffectJackpotGain, 0.6},
			{"triple_shot", "Triple Play", "+2 bullets per shot", Epic, EffectBulletCount, 2},
		},
		Weights: map[Rarity]int{Common: 60, Rare: 30, Epic: 10},
		Offer:   3,
	}
}

// System 升級池與已套用的升級，並發安全
type System struct {
	mu      sync.Mutex
	cfg     Config
	weights []int
	bal     *Balance
	c       *core.Core
	log     *slog.Logger
	counts  map[Effect]int
	applied []string
}

// New 建立升級系統；效果寫入 bal
func New(cfg Config, bal *Balance, c *core.Core, log *slog.Logger) (*System, error) {
	if len(cfg.Pool) == 0 {
		return nil, errs.Configf("upgrade: empty pool")
	}
	if bal == nil {
		return nil, errs.NewCode(errs.Fatal, errs.CodeMissing, "upgrade: nil balance")
	}
	if c == nil {
		c = core.NewSeeded(core.RandomSeed())
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	weights := make([]int, len(cfg.Pool))
	seen := make(map[string]bool, len(cfg.Pool))
	for i, u := range cfg.Pool {
		if seen[u.ID] {
			return nil, errs.Configf("upgrade: duplicate id %q", u.ID)
		}
		seen[u.ID] = true
		if !knownEffect(u.Effect) {
			return nil, errs.Configf("upgrade: %s has unknown effect %q", u.ID, u.Effect)
		}
		w, ok := cfg.Weights[u.Rarity]
		if !ok || w < 0 {
			return nil, errs.Configf("upgrade: %s has unknown rarity %q", u.ID, u.Rarity)
		}
		weights[i] = w
	}
	if cfg.Offer <= 0 {
		cfg.Offer = 3
	}
	return &System{cfg: cfg, weights: weights, bal: bal, c: c, log: log, counts: make(map[Effect]int)}, nil
}

func knownEffect(e Effect) bool {
	switch e {
	case EffectDamage, EffectBulletCount, EffectCrit, EffectCritDamage, EffectAoe,
		EffectJackpotGain, EffectMaxHP, EffectSpeed, EffectFireRate:
		return true
	}
	return false
}

// Balance 升級寫入的數值
func (s *System) Balance() *Balance { return s.bal }

// RollOptions 依稀有度權重不放回抽出最多 Offer 個不同的升級
func (s *System) RollOptions() []Upgrade {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := sampler.WeightedSample(s.c, s.weights, s.cfg.Offer)
	out := make([]Upgrade, len(idx))
	for i, j := range idx {
		out[i] = s.cfg.Pool[j]
	}
	return out
}

// Apply 套用升級
func (s *System) Apply(u Upgrade) error {
	switch u.Effect {
	case EffectDamage:
		s.bal.mulAdd(StatDamage, u.Value)
	case EffectBulletCount:
		s.bal.mu.Lock()
		s.bal.bullets += int(u.Value)
		s.bal.mu.Unlock()
	case EffectCrit:
		s.bal.flatAdd(StatCritChance, u.Value)
	case EffectCritDamage:
		s.bal.flatAdd(StatCritMultiplier, u.Value)
	case EffectAoe:
		s.bal.mulAdd(StatAoeRadius, u.Value)
	case EffectJackpotGain:
		s.bal.mu.Lock()
		s.bal.jackpotGain += u.Value
		s.bal.mu.Unlock()
	case EffectMaxHP:
		s.bal.mulAdd(StatMaxHP, u.Value)
	case EffectSpeed:
		s.bal.mulAdd(StatSpeed, u.Value)
	case EffectFireRate:
		s.bal.mulAdd(StatFireInterval, u.Value)
	default:
		return errs.Warnf("upgrade: unknown effect %q", u.Effect)
	}
	s.mu.Lock()
	s.counts[u.Effect]++
	s.applied = append(s.applied, u.ID)
	s.mu.Unlock()
	s.log.Info("upgrade.applied", slog.String("id", u.ID), slog.String("effect", string(u.Effect)), slog.Float64("value", u.Value))
	return nil
}

// Counts 各效果已套用次數
func (s *System) Counts() map[Effect]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.counts)
}

// Applied 已套用的升級 id（依順序）
func (s *System) Applied() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.applied...)
}
