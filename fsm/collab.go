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

package fsm

import (
	"context"

	"github.com/zintix-labs/slotstrike/sdk/async"
	"github.com/zintix-labs/slotstrike/sdk/modifier"
	"github.com/zintix-labs/slotstrike/sdk/payout"
	"github.com/zintix-labs/slotstrike/sdk/turn"
	"github.com/zintix-labs/slotstrike/sdk/upgrade"
)

// Settlement 轉輪停下後的結算。Outcome 以評估器為準，FxDone 為 nil 視同已完成。
type Settlement struct {
	Outcome  payout.Outcome `json:"outcome"`
	TotalWin float64        `json:"total_win"`
	FxDone   async.Signal   `json:"-"`
}

// SpinPresenter 轉輪展示
type SpinPresenter interface {
	StartSpin()
	StopSpin(ctx context.Context, grid payout.Grid, bet float64) (Settlement, error)
	IsSpinning() bool
	ReleaseSpin()
	// PayoutOrigin 戰鬥事件的發射座標，沒有則 ok=false
	PayoutOrigin() (turn.Point, bool)
}

// OutcomeSource 下一把盤面
type OutcomeSource interface {
	Outcome(level int) payout.Outcome
}

// PlanBuilder 盤面 → 戰鬥計畫
type PlanBuilder interface {
	BuildPlan(o payout.Outcome, bet float64) *turn.Plan
}

// CombatResolver 執行戰鬥事件
type CombatResolver interface {
	PlayCombatEvent(ctx context.Context, ev turn.Event, mods modifier.Modifiers) error
	IsAllEnemiesDead() bool
}

// BossHit 一次 spin 對 boss 的結算
type BossHit struct {
	Bonus  float64
	FxDone async.Signal
}

// Boss 每次 spin 後的 jackpot 傷害
type Boss interface {
	ApplySpin(bet, win float64) BossHit
}

// Progression 關卡與升級
type Progression interface {
	Level() int
	OnSpin()
	Advance()
	IsGameOver() bool
	ShouldOfferChoice() bool
	RollUpgradeOptions() []upgrade.Upgrade
	ApplyUpgrade(u upgrade.Upgrade) error
	CompleteUpgradeChoice()
	SetPaused(p bool)
}

// UpgradeChooser 玩家選擇，nil 代表略過
type UpgradeChooser interface {
	OpenChoice(ctx context.Context, opts []upgrade.Upgrade) (*upgrade.Upgrade, error)
}

// HUD 介面顯示
type HUD interface {
	Bet() float64
	SetSpinEnabled(on bool)
	ShowSpinResult(o payout.Outcome)
	ShowGameOver()
	Refresh()
}

// Effects 中獎線特效
type Effects interface {
	PlayWinLines(ctx context.Context, o payout.Outcome) error
}

// ComboRecorder 每回合輸贏
type ComboRecorder interface {
	RecordWin()
	RecordLoss()
}

// RoundLedger 回合帳本
type RoundLedger interface {
	StartRound(bet float64)
	FinishRound(win float64)
}

// 空物件：缺少的協作者以最小行為代替，狀態機不需判斷 nil

// DefaultBet 沒有 HUD 時的押注
const DefaultBet = 10.0

type nopPresenter struct{}

func (nopPresenter) StartSpin() {}
func (nopPresenter) StopSpin(_ context.Context, g payout.Grid, _ float64) (Settlement, error) {
	return Settlement{Outcome: payout.Outcome{Grid: g}, FxDone: async.Done()}, nil
}
func (nopPresenter) IsSpinning() bool                 { return false }
func (nopPresenter) ReleaseSpin()                     {}
func (nopPresenter) PayoutOrigin() (turn.Point, bool) { return turn.Point{}, false }

type nopSource struct{}

func (nopSource) Outcome(int) payout.Outcome { return payout.Outcome{} }

type nopPlanner struct{}

func (nopPlanner) BuildPlan(o payout.Outcome, _ float64) *turn.Plan {
	return &turn.Plan{Spin: o, Modifiers: modifier.Zero()}
}

type nopCombat struct{}

func (nopCombat) PlayCombatEvent(context.Context, turn.Event, modifier.Modifiers) error { return nil }
func (nopCombat) IsAllEnemiesDead() bool                                                { return false }

type nopBoss struct{}

func (nopBoss) ApplySpin(float64, float64) BossHit { return BossHit{FxDone: async.Done()} }

type nopProgression struct{}

func (nopProgression) Level() int                            { return 1 }
func (nopProgression) OnSpin()                               {}
func (nopProgression) Advance()                              {}
func (nopProgression) IsGameOver() bool                      { return false }
func (nopProgression) ShouldOfferChoice() bool               { return false }
func (nopProgression) RollUpgradeOptions() []upgrade.Upgrade { return nil }
func (nopProgression) ApplyUpgrade(upgrade.Upgrade) error    { return nil }
func (nopProgression) CompleteUpgradeChoice()                {}
func (nopProgression) SetPaused(bool)                        {}

type nopChooser struct{}

func (nopChooser) OpenChoice(context.Context, []upgrade.Upgrade) (*upgrade.Upgrade, error) {
	return nil, nil
}

type nopHUD struct{}

func (nopHUD) Bet() float64                  { return DefaultBet }
func (nopHUD) SetSpinEnabled(bool)           {}
func (nopHUD) ShowSpinResult(payout.Outcome) {}
func (nopHUD) ShowGameOver()                 {}
func (nopHUD) Refresh()                      {}

type nopEffects struct{}

func (nopEffects) PlayWinLines(context.Context, payout.Outcome) error { return nil }

type nopCombo struct{}

func (nopCombo) RecordWin()  {}
func (nopCombo) RecordLoss() {}

type nopLedger struct{}

func (nopLedger) StartRound(float64)  {}
func (nopLedger) FinishRound(float64) {}
