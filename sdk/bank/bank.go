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

// Package bank 預先產生的盤面池。
//
// 每個盤面依 tier 權重建構，非 miss 盤面只放一條中獎線；取用時再依關卡降低命中率與符號等級。
package bank

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/payout"
	"github.com/zintix-labs/slotstrike/sdk/sampler"
)

// Tier 盤面等級
type Tier int8

const (
	TierMiss Tier = iota
	TierSmall
	TierMid
	TierBig
)

// NumTiers tier 數量
const NumTiers = 4

var tierNames = [NumTiers]string{"miss", "small", "mid", "big"}

func (t Tier) String() string {
	if t < 0 || int(t) >= NumTiers {
		return fmt.Sprintf("Tier(%d)", int8(t))
	}
	return tierNames[t]
}

// ParseTier 名稱轉 tier
func ParseTier(name string) (Tier, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, v := range tierNames {
		if v == n {
			return Tier(i), nil
		}
	}
	return TierMiss, errs.NewCode(errs.Warn, errs.CodeNotFound, fmt.Sprintf("unknown tier %q", name))
}

// Config 盤面池參數
type Config struct {
	PoolSize         int             `yaml:"pool_size" json:"pool_size"`
	TierWeights      [NumTiers]int   `yaml:"tier_weights" json:"tier_weights"`
	SmallLowChance   float64         `yaml:"small_low_chance" json:"small_low_chance"` // small tier 放 bullet 的機率，否則 grenade
	BigWildChance    float64         `yaml:"big_wild_chance" json:"big_wild_chance"`   // big tier 放 wild 的機率，否則 missile
	SafeFill         []payout.Symbol `yaml:"safe_fill" json:"safe_fill"`
	HitScaleFloor    float64         `yaml:"hit_scale_floor" json:"hit_scale_floor"`
	HitScaleStep     float64         `yaml:"hit_scale_step" json:"hit_scale_step"`
	DowngradeCap     float64         `yaml:"downgrade_cap" json:"downgrade_cap"`
	DowngradeStep    float64         `yaml:"downgrade_step" json:"downgrade_step"`
	HighDemoteChance float64         `yaml:"high_demote_chance" json:"high_demote_chance"` // 降級時 missile 變 grenade 的機率
}

// DefaultConfig 預設調校
func DefaultConfig() Config {
	return Config{
		PoolSize:         20000,
		TierWeights:      [NumTiers]int{20, 55, 20, 5},
		SmallLowChance:   0.45,
		BigWildChance:    0.7,
		SafeFill:         []payout.Symbol{payout.Empty, payout.Empty, payout.Empty, payout.Low, payout.Mid},
		HitScaleFloor:    0.35,
		HitScaleStep:     0.06,
		DowngradeCap:     0.55,
		DowngradeStep:    0.08,
		HighDemoteChance: 0.6,
	}
}

// Validate 檢查設定是否可用
func (cfg Config) Validate() error { return cfg.valid() }

func (cfg Config) valid() error {
	if cfg.PoolSize <= 0 {
		return errs.Configf("bank: pool_size must be > 0, got %d", cfg.PoolSize)
	}
	sum := 0
	for _, w := range cfg.TierWeights {
		if w < 0 {
			return errs.Configf("bank: negative tier weight")
		}
		sum += w
	}
	if sum == 0 {
		return errs.Configf("bank: tier weights are all zero")
	}
	if len(cfg.SafeFill) == 0 {
		return errs.Configf("bank: safe_fill is empty")
	}
	for _, s := range cfg.SafeFill {
		if !s.Valid() || s == payout.Wild {
			return errs.Configf("bank: safe_fill symbol %v not allowed", s)
		}
	}
	return nil
}

type entry struct {
	tier Tier
	out  payout.Outcome
}

// Bank 盤面池，並發安全
type Bank struct {
	mu   sync.Mutex
	cfg  Config
	eval *payout.Evaluator
	c    *core.Core
	lut  sampler.LUT
	pool []entry
}

// New 建立盤面池；池在第一次取用時才產生
func New(cfg Config, eval *payout.Evaluator, c *core.Core) (*Bank, error) {
	if err := cfg.valid(); err != nil {
		return nil, err
	}
	if eval == nil {
		eval = payout.Default()
	}
	if c == nil {
		c = core.NewSeeded(core.RandomSeed())
	}
	return &Bank{
		cfg:  cfg,
		eval: eval,
		c:    c,
		lut:  sampler.BuildLUT(cfg.TierWeights[:]),
	}, nil
}

// Evaluator 盤面池使用的計分器
func (b *Bank) Evaluator() *payout.Evaluator { return b.eval }

// HitScale 命中保留率 max(floor, 1-(lv-1)*step)
func (cfg Config) HitScale(level int) float64 {
	lv := max(1, level)
	return math.Max(cfg.HitScaleFloor, 1-float64(lv-1)*cfg.HitScaleStep)
}

// Downgrade 降級機率 min(cap, (lv-1)*step)
func (cfg Config) Downgrade(level int) float64 {
	lv := max(1, level)
	return math.Min(cfg.DowngradeCap, float64(lv-1)*cfg.DowngradeStep)
}

// PayoutScale 現場結算的倍率縮放，與 HitScale 相同
func (b *Bank) PayoutScale(level int) float64 { return b.cfg.HitScale(level) }

// Outcome 取出一個盤面並套用關卡調整
func (b *Bank) Outcome(level int) payout.Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()

	lv := max(1, level)
	if len(b.pool) == 0 {
		b.generate()
	}
	base := b.pool[len(b.pool)-1]
	b.pool = b.pool[:len(b.pool)-1]

	if !base.out.IsWin() {
		return base.out
	}
	if b.c.Float64() > b.cfg.HitScale(lv) {
		return b.eval.Outcome(b.missGrid())
	}
	if lv > 1 && b.c.Float64() < b.cfg.Downgrade(lv) {
		return b.demote(base.out.Grid)
	}
	return base.out
}

// Draw 直接建構一個指定 tier 的盤面，不經過盤面池與關卡調整
func (b *Bank) Draw(t Tier) payout.Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eval.Outcome(b.build(t))
}

// Remaining 盤面池剩餘數量
func (b *Bank) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pool)
}

func (b *Bank) generate() {
	n := b.cfg.PoolSize
	fresh := make([]entry, n)
	for i := range fresh {
		t := Tier(b.lut.Pick(b.c))
		fresh[i] = entry{tier: t, out: b.eval.Outcome(b.build(t))}
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	b.c.ShuffleInts(order)
	b.pool = make([]entry, n)
	for i, j := range order {
		b.pool[i] = fresh[j]
	}
}

func (b *Bank) intended(t Tier) payout.Symbol {
	switch t {
	case TierSmall:
		if b.c.Chance(b.cfg.SmallLowChance) {
			return payout.Low
		}
		return payout.Mid
	case TierMid:
		return payout.High
	default:
		if b.c.Chance(b.cfg.BigWildChance) {
			return payout.Wild
		}
		return payout.High
	}
}

func (b *Bank) safeFill() payout.Symbol {
	return b.cfg.SafeFill[b.c.IntN(len(b.cfg.SafeFill))]
}

// build 非 miss：放一條目標線，其餘格子用 safe fill；意外多線就清空只留目標線
func (b *Bank) build(t Tier) payout.Grid {
	if t == TierMiss {
		return b.missGrid()
	}
	line := b.eval.Line(b.c.IntN(b.eval.NumLines()))
	sym := b.intended(t)

	var g payout.Grid
	place := func() {
		for _, cell := range line {
			g[cell.C][cell.R] = sym
		}
	}
	place()
	for c := range payout.Cols {
		for r := range payout.Rows {
			if g[c][r] == payout.Empty {
				g[c][r] = b.safeFill()
			}
		}
	}
	if len(b.eval.Evaluate(g)) > 1 {
		g.Fill(payout.Empty)
		place()
	}
	return g
}

// missGrid 隨機填充後逐一打斷中獎線直到沒有任何線中獎
func (b *Bank) missGrid() payout.Grid {
	var g payout.Grid
	for c := range payout.Cols {
		for r := range payout.Rows {
			g[c][r] = b.safeFill()
		}
	}
	for {
		wins := b.eval.Evaluate(g)
		if len(wins) == 0 {
			return g
		}
		cell := b.eval.Line(wins[0].LineIndex)[b.c.IntN(payout.Cols)]
		g[cell.C][cell.R] = payout.Empty
	}
}

// demote wild→missile、missile→grenade（機率），重新計分；多線時只保留第一條
func (b *Bank) demote(g payout.Grid) payout.Outcome {
	for c := range payout.Cols {
		for r := range payout.Rows {
			switch g[c][r] {
			case payout.Wild:
				g[c][r] = payout.High
			case payout.High:
				if b.c.Chance(b.cfg.HighDemoteChance) {
					g[c][r] = payout.Mid
				}
			}
		}
	}
	out := b.eval.Outcome(g)
	if len(out.Wins) <= 1 {
		return out
	}
	keep := b.eval.Line(out.Wins[0].LineIndex)
	var scrubbed payout.Grid
	for _, cell := range keep {
		scrubbed[cell.C][cell.R] = g[cell.C][cell.R]
	}
	return b.eval.Outcome(scrubbed)
}
