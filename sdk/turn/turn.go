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

// Package turn 把 spin 結果轉成依序執行的戰鬥事件。
package turn

import (
	"fmt"

	"github.com/zintix-labs/slotstrike/sdk/modifier"
	"github.com/zintix-labs/slotstrike/sdk/payout"
)

// Kind 戰鬥事件種類
type Kind int8

const (
	Shoot Kind = iota
	Grenade
	Missile
	Overload
)

var kindNames = [...]string{"Shoot", "Grenade", "Missile", "Overload"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int8(k))
	}
	return kindNames[k]
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Point 事件發射座標（由戰鬥狀態在派送前注入）
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Event 戰鬥事件。依 Kind 使用不同欄位：
//
//	Shoot    Dmg, Count
//	Grenade  Dmg, Radius
//	Missile  Dmg, Splash
//	Overload Power
type Event struct {
	Kind   Kind    `json:"kind"`
	Dmg    float64 `json:"dmg,omitempty"`
	Count  int     `json:"count,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	Splash float64 `json:"splash,omitempty"`
	Power  float64 `json:"power,omitempty"`
	Origin *Point  `json:"origin,omitempty"`
}

// WithOrigin 回傳注入座標後的副本，原事件不變
func (e Event) WithOrigin(p Point) Event {
	e.Origin = &p
	return e
}

func (e Event) String() string {
	switch e.Kind {
	case Shoot:
		return fmt.Sprintf("Shoot{dmg=%g count=%d}", e.Dmg, e.Count)
	case Grenade:
		return fmt.Sprintf("Grenade{dmg=%g radius=%g}", e.Dmg, e.Radius)
	case Missile:
		return fmt.Sprintf("Missile{dmg=%g splash=%g}", e.Dmg, e.Splash)
	case Overload:
		return fmt.Sprintf("Overload{power=%g}", e.Power)
	}
	return e.Kind.String()
}

// Plan 一回合的戰鬥計畫。Resolving 建立、Combat 讀取、進入 Advance 後丟棄。
type Plan struct {
	Spin      payout.Outcome     `json:"spin"`
	Events    []Event            `json:"events"`
	Modifiers modifier.Modifiers `json:"modifiers"`
	FinalWin  float64            `json:"final_win"`
}

// OverloadSource boss 的過載狀態
type OverloadSource interface {
	IsOverloadReady() bool
	Power(overloadBonus float64) float64
}

// Config 事件參數
type Config struct {
	ShootMul      float64 `yaml:"shoot_mul" json:"shoot_mul"`
	GrenadeMul    float64 `yaml:"grenade_mul" json:"grenade_mul"`
	MissileMul    float64 `yaml:"missile_mul" json:"missile_mul"`
	WildBonus     float64 `yaml:"wild_bonus" json:"wild_bonus"` // 每個 wild 的傷害加成
	GrenadeRadius float64 `yaml:"grenade_radius" json:"grenade_radius"`
	MissileSplash float64 `yaml:"missile_splash" json:"missile_splash"`
}

func DefaultConfig() Config {
	return Config{
		ShootMul:      1,
		GrenadeMul:    2,
		MissileMul:    3,
		WildBonus:     0.5,
		GrenadeRadius: 90,
		MissileSplash: 120,
	}
}

// Planner 建立 Plan，無狀態
type Planner struct {
	cfg Config
}

func NewPlanner(cfg Config) *Planner {
	return &Planner{cfg: cfg}
}

// Build 每條中獎線依出現的符號種類各產生一個事件（bullet→Shoot、grenade→Grenade、missile→Missile），
// 傷害 = bet * 種類倍率 * (1 + 線上 wild 數 * WildBonus)。
// 所有線處理完後，若 boss 過載就緒則最後附上 Overload。
func (p *Planner) Build(o payout.Outcome, mods modifier.Modifiers, bet float64, boss OverloadSource) *Plan {
	var events []Event
	for _, w := range o.Wins {
		var cnt [payout.NumSymbols]int
		for _, s := range w.Symbols {
			if s.Valid() {
				cnt[s]++
			}
		}
		wm := 1 + float64(cnt[payout.Wild])*p.cfg.WildBonus
		if n := cnt[payout.Low]; n > 0 {
			events = append(events, Event{Kind: Shoot, Dmg: bet * p.cfg.ShootMul * wm, Count: n})
		}
		if cnt[payout.Mid] > 0 {
			events = append(events, Event{Kind: Grenade, Dmg: bet * p.cfg.GrenadeMul * wm, Radius: p.cfg.GrenadeRadius})
		}
		if cnt[payout.High] > 0 {
			events = append(events, Event{Kind: Missile, Dmg: bet * p.cfg.MissileMul * wm, Splash: p.cfg.MissileSplash})
		}
	}
	if boss != nil && boss.IsOverloadReady() {
		events = append(events, Event{Kind: Overload, Power: boss.Power(mods.OverloadBonus)})
	}
	return &Plan{Spin: o, Events: events, Modifiers: mods}
}
