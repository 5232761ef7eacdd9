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
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/sdk/turn"
)

// Timeouts 每個外部等待的上限
type Timeouts struct {
	StopSpin    time.Duration `yaml:"stop_spin" json:"stop_spin"`
	Fx          time.Duration `yaml:"fx" json:"fx"`
	WinLines    time.Duration `yaml:"win_lines" json:"win_lines"`
	CombatEvent time.Duration `yaml:"combat_event" json:"combat_event"`
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		StopSpin:    2500 * time.Millisecond,
		Fx:          1000 * time.Millisecond,
		WinLines:    1500 * time.Millisecond,
		CombatEvent: 1600 * time.Millisecond,
	}
}

// Budget 一個沒有戰鬥事件的回合最長等待時間；每個事件再加 CombatEvent
func (t Timeouts) Budget(events int) time.Duration {
	return t.StopSpin + t.Fx + t.WinLines + time.Duration(events)*t.CombatEvent
}

// Context 狀態共用的協作者與回合資料。nil 協作者在 New 時換成空物件。
type Context struct {
	Log      *slog.Logger
	Timeouts Timeouts

	Presenter SpinPresenter
	Source    OutcomeSource
	Planner   PlanBuilder
	Combat    CombatResolver
	Boss      Boss
	Progress  Progression
	Chooser   UpgradeChooser
	HUD       HUD
	Effects   Effects
	Combo     ComboRecorder
	Ledger    RoundLedger

	// OnResolved 計畫定案（含 boss 加成）後呼叫
	OnResolved func(plan *turn.Plan)
	OnGameOver func()

	Machine *Machine

	mu       sync.Mutex
	lastSpin *Settlement
	plan     *turn.Plan
}

// New 補齊空物件、建立狀態機並註冊預設狀態
func New(c *Context) *Machine {
	if c.Log == nil {
		c.Log = slog.New(slog.DiscardHandler)
	}
	if c.Timeouts == (Timeouts{}) {
		c.Timeouts = DefaultTimeouts()
	}
	if c.Presenter == nil {
		c.Presenter = nopPresenter{}
	}
	if c.Source == nil {
		c.Source = nopSource{}
	}
	if c.Planner == nil {
		c.Planner = nopPlanner{}
	}
	if c.Combat == nil {
		c.Combat = nopCombat{}
	}
	if c.Boss == nil {
		c.Boss = nopBoss{}
	}
	if c.Progress == nil {
		c.Progress = nopProgression{}
	}
	if c.Chooser == nil {
		c.Chooser = nopChooser{}
	}
	if c.HUD == nil {
		c.HUD = nopHUD{}
	}
	if c.Effects == nil {
		c.Effects = nopEffects{}
	}
	if c.Combo == nil {
		c.Combo = nopCombo{}
	}
	if c.Ledger == nil {
		c.Ledger = nopLedger{}
	}
	m := newMachine(c)
	c.Machine = m
	m.Register(Idle, idleState{})
	m.Register(Spinning, spinningState{})
	m.Register(Resolving, resolvingState{})
	m.Register(Combat, combatState{})
	m.Register(Advance, advanceState{})
	m.Register(Choice, choiceState{})
	m.Register(GameOver, gameOverState{})
	return m
}

// LastSpin 最近一次 spin 的結算
func (c *Context) LastSpin() *Settlement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSpin
}

func (c *Context) setLastSpin(s *Settlement) {
	c.mu.Lock()
	c.lastSpin = s
	c.mu.Unlock()
}

// Plan 目前回合的戰鬥計畫，Advance 後清空
func (c *Context) Plan() *turn.Plan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plan
}

func (c *Context) setPlan(p *turn.Plan) {
	c.mu.Lock()
	c.plan = p
	c.mu.Unlock()
}

// stale await 之後檢查：ctx 已取消或 epoch 已前進，結果作廢
func (c *Context) stale(ctx context.Context, ep uint64) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	if c.Machine.Epoch() != ep {
		return errs.NewCode(errs.Log, errs.CodeState, "stale transition")
	}
	return nil
}

// awaited 處理一次有上限等待的錯誤：逾時記 Warn 並回傳 nil，其餘原樣回傳
func (c *Context) awaited(ctx context.Context, label string, d time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errs.Timeout) && ctx.Err() == nil {
		c.Log.Warn("async.timeout", "label", label, "after", d)
		return nil
	}
	return err
}
