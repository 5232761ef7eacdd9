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

// Package modifier 回合修飾值與其合併規則。
//
// 不同來源的合併規則不一樣（加、取最大、相乘），每個合併點各自用具名函式表達，不做通用 combine。
package modifier

import (
	"fmt"
	"strings"

	"github.com/zintix-labs/slotstrike/sdk/payout"
)

// Archetype 依中獎符號組成判定的流派
type Archetype int8

const (
	Balanced Archetype = iota
	BulletFocus
	GrenadeFocus
	MissileFocus
	WildOverdrive
)

var archetypeNames = [...]string{"BALANCED", "BULLET_FOCUS", "GRENADE_FOCUS", "MISSILE_FOCUS", "WILD_OVERDRIVE"}

func (a Archetype) String() string {
	if a < 0 || int(a) >= len(archetypeNames) {
		return fmt.Sprintf("Archetype(%d)", int8(a))
	}
	return archetypeNames[a]
}

// MarshalText 讓 JSON/YAML 以名稱輸出
func (a Archetype) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText 名稱轉 Archetype
func (a *Archetype) UnmarshalText(b []byte) error {
	n := strings.ToUpper(strings.TrimSpace(string(b)))
	for i, v := range archetypeNames {
		if v == n {
			*a = Archetype(i)
			return nil
		}
	}
	return fmt.Errorf("unknown archetype %q", string(b))
}

// Modifiers 一回合的戰鬥修飾值
type Modifiers struct {
	Archetype        Archetype `json:"archetype" yaml:"-"`
	ExtraProjectiles int       `json:"extra_projectiles" yaml:"extra_projectiles"`
	Pierce           int       `json:"pierce" yaml:"pierce"`
	Chain            int       `json:"chain" yaml:"chain"`
	AoeScale         float64   `json:"aoe_scale" yaml:"aoe_scale"`
	CritChance       float64   `json:"crit_chance" yaml:"crit_chance"`
	Lifesteal        float64   `json:"lifesteal" yaml:"lifesteal"`
	OverloadBonus    float64   `json:"overload_bonus" yaml:"overload_bonus"`
}

// Zero 無任何加成（AoeScale 為乘法單位元 1）
func Zero() Modifiers { return Modifiers{AoeScale: 1} }

// IsZero 是否等於 Zero()（忽略 Archetype）
func (m Modifiers) IsZero() bool {
	m.Archetype = Balanced
	return m == Zero()
}

// MergeBuildAndCombo 流派修飾值疊上 combo/heat 修飾值：
// archetype 取 build；pierce 與 chain 取最大；aoeScale 相乘；其餘相加。
func MergeBuildAndCombo(build, combo Modifiers) Modifiers {
	return Modifiers{
		Archetype:        build.Archetype,
		ExtraProjectiles: build.ExtraProjectiles + combo.ExtraProjectiles,
		Pierce:           max(build.Pierce, combo.Pierce),
		Chain:            max(build.Chain, combo.Chain),
		AoeScale:         unit(build.AoeScale) * unit(combo.AoeScale),
		CritChance:       build.CritChance + combo.CritChance,
		Lifesteal:        build.Lifesteal + combo.Lifesteal,
		OverloadBonus:    build.OverloadBonus + combo.OverloadBonus,
	}
}

// StackBuff 把一組 buff 疊到 base 上：整數與機率相加，aoeScale 相乘。
// combo 的 overdrive 與連擊 buff 用這個規則合併。
func StackBuff(base, buff Modifiers) Modifiers {
	base.ExtraProjectiles += buff.ExtraProjectiles
	base.Pierce += buff.Pierce
	base.Chain += buff.Chain
	base.AoeScale = unit(base.AoeScale) * unit(buff.AoeScale)
	base.CritChance += buff.CritChance
	base.Lifesteal += buff.Lifesteal
	base.OverloadBonus += buff.OverloadBonus
	return base
}

// unit 未設定的倍率視為 1
func unit(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// Rules 流派判定與基礎數值
type Rules struct {
	FocusThreshold     float64      `yaml:"focus_threshold" json:"focus_threshold"`           // 單一符號佔比門檻
	WildOverdriveCount int          `yaml:"wild_overdrive_count" json:"wild_overdrive_count"` // wild 數量門檻
	BulletsPerExtra    int          `yaml:"bullets_per_extra" json:"bullets_per_extra"`       // bullet 流每 N 個 bullet +1 彈幕
	CritPerWild        float64      `yaml:"crit_per_wild" json:"crit_per_wild"`               // 每個 wild 的暴擊加成
	OverloadPerWild    float64      `yaml:"overload_per_wild" json:"overload_per_wild"`       // 每個 wild 的過載加成
	Rows               [5]Modifiers `yaml:"rows" json:"rows"`                                 // 以 Archetype 為索引
}

// DefaultRules 預設流派表
func DefaultRules() Rules {
	return Rules{
		FocusThreshold:     0.5,
		WildOverdriveCount: 3,
		BulletsPerExtra:    5,
		CritPerWild:        0.05,
		OverloadPerWild:    0.1,
		Rows: [5]Modifiers{
			Balanced:      {AoeScale: 1.0, CritChance: 0.05},
			BulletFocus:   {ExtraProjectiles: 2, AoeScale: 0.8, CritChance: 0.15},
			GrenadeFocus:  {Chain: 1, AoeScale: 1.5, CritChance: 0.1, Lifesteal: 0.05},
			MissileFocus:  {Pierce: 2, AoeScale: 1.2, CritChance: 0.25, OverloadBonus: 0.2},
			WildOverdrive: {ExtraProjectiles: 1, Pierce: 1, Chain: 2, AoeScale: 1.3, CritChance: 0.35, Lifesteal: 0.1, OverloadBonus: 0.5},
		},
	}
}

// Composer 依 spin 結果產出流派修飾值；無狀態，可共用
type Composer struct {
	rules Rules
}

func NewComposer(r Rules) *Composer {
	return &Composer{rules: r}
}

// Classify 流派判定：wild 數量優先，其次單一符號佔比，否則 Balanced
func (c *Composer) Classify(cnt [payout.NumSymbols]int) Archetype {
	total := 0
	for _, v := range cnt {
		total += v
	}
	if total == 0 {
		return Balanced
	}
	if cnt[payout.Wild] >= c.rules.WildOverdriveCount {
		return WildOverdrive
	}
	share := func(s payout.Symbol) float64 { return float64(cnt[s]) / float64(total) }
	switch {
	case share(payout.Low) >= c.rules.FocusThreshold:
		return BulletFocus
	case share(payout.Mid) >= c.rules.FocusThreshold:
		return GrenadeFocus
	case share(payout.High) >= c.rules.FocusThreshold:
		return MissileFocus
	}
	return Balanced
}

// Analyze 統計所有中獎線的符號並產出修飾值
func (c *Composer) Analyze(o payout.Outcome) Modifiers {
	cnt := o.WinSymbolCount()
	arch := c.Classify(cnt)
	m := c.rules.Rows[arch]
	m.Archetype = arch
	if m.AoeScale == 0 {
		m.AoeScale = 1
	}
	if arch == BulletFocus && c.rules.BulletsPerExtra > 0 {
		m.ExtraProjectiles += cnt[payout.Low] / c.rules.BulletsPerExtra
	}
	if w := cnt[payout.Wild]; w > 0 {
		m.CritChance += float64(w) * c.rules.CritPerWild
		m.OverloadBonus += float64(w) * c.rules.OverloadPerWild
	}
	return m
}
