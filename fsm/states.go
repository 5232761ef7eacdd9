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
	"fmt"
	"time"

	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/sdk/async"
	"github.com/zintix-labs/slotstrike/sdk/payout"
)

// base 預設 Update/Exit 皆為空
type base struct{}

func (base) Update(time.Duration, *Context) {}
func (base) Exit(*Context)                  {}

// ---- Idle ----

type idleState struct{ base }

func (idleState) Enter(_ context.Context, c *Context, _ any) error {
	c.Presenter.ReleaseSpin()
	c.HUD.SetSpinEnabled(true)
	return nil
}

func (idleState) Exit(c *Context) {
	c.HUD.SetSpinEnabled(false)
}

// ---- Spinning ----

type spinningState struct{ base }

func (spinningState) Enter(ctx context.Context, c *Context, _ any) error {
	ep := c.Machine.Epoch()
	bet := c.HUD.Bet()
	c.Presenter.StartSpin()
	c.Ledger.StartRound(bet)
	out := c.Source.Outcome(c.Progress.Level())

	// 展示層卡住時以 miss 結算，回合照常進行
	fallback := Settlement{Outcome: payout.Outcome{Grid: out.Grid}, FxDone: async.Done()}
	c.Machine.setLabel("stopSpin")
	st, err := async.WithTimeout(ctx, c.Timeouts.StopSpin, fallback, func(ctx context.Context) (Settlement, error) {
		return c.Presenter.StopSpin(ctx, out.Grid, bet)
	})
	if err = c.awaited(ctx, "stopSpin", c.Timeouts.StopSpin, err); err != nil {
		return err
	}
	if err := c.stale(ctx, ep); err != nil {
		return err
	}
	if st.FxDone == nil {
		st.FxDone = async.Done()
	}
	c.setLastSpin(&st)
	c.Progress.OnSpin()
	return c.Machine.Change(Resolving, nil)
}

// ---- Resolving ----

type resolvingState struct{ base }

func (resolvingState) Enter(ctx context.Context, c *Context, _ any) error {
	ep := c.Machine.Epoch()
	spin := c.LastSpin()
	if spin == nil {
		c.Log.Warn("fsm.resolving", "reason", "no spin result")
		return c.Machine.Change(Combat, nil)
	}
	bet := c.HUD.Bet()
	plan := c.Planner.BuildPlan(spin.Outcome, bet)
	if n := len(plan.Spin.Wins); n > 1 {
		c.Log.Warn("spin.invariant", "err", errs.NewCode(errs.Log, errs.CodeInvariant, fmt.Sprintf("%d winning lines", n)))
	}
	c.HUD.ShowSpinResult(plan.Spin)

	total := spin.TotalWin
	hit := c.Boss.ApplySpin(bet, total)
	total += hit.Bonus

	c.Machine.setLabel("fxDone+bossFxDone")
	err := async.WaitAll(ctx, c.Timeouts.Fx, spin.FxDone, hit.FxDone)
	if err = c.awaited(ctx, "fxDone+bossFxDone", c.Timeouts.Fx, err); err != nil {
		return err
	}

	c.Machine.setLabel("playWinLines")
	_, err = async.WithTimeout(ctx, c.Timeouts.WinLines, struct{}{}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.Effects.PlayWinLines(ctx, plan.Spin)
	})
	if err = c.awaited(ctx, "playWinLines", c.Timeouts.WinLines, err); err != nil {
		return err
	}
	if err := c.stale(ctx, ep); err != nil {
		return err
	}

	c.Ledger.FinishRound(total)
	plan.FinalWin = total
	if total > 0 {
		c.Combo.RecordWin()
	} else {
		c.Combo.RecordLoss()
	}
	c.setPlan(plan)
	if c.OnResolved != nil {
		c.OnResolved(plan)
	}
	return c.Machine.Change(Combat, nil)
}

// ---- Combat ----

type combatState struct{ base }

func (combatState) Enter(ctx context.Context, c *Context, _ any) error {
	ep := c.Machine.Epoch()
	plan := c.Plan()
	if plan == nil {
		c.Log.Warn("fsm.combat", "reason", "no plan")
		return c.Machine.Change(Advance, nil)
	}
	n := len(plan.Events)
	for i, ev := range plan.Events {
		if p, ok := c.Presenter.PayoutOrigin(); ok {
			ev = ev.WithOrigin(p)
		}
		label := fmt.Sprintf("playCombatEvent[%d/%d]", i+1, n)
		c.Machine.setLabel(label)
		_, err := async.WithTimeout(ctx, c.Timeouts.CombatEvent, struct{}{}, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.Combat.PlayCombatEvent(ctx, ev, plan.Modifiers)
		})
		if err = c.awaited(ctx, label, c.Timeouts.CombatEvent, err); err != nil {
			return err
		}
		if err := c.stale(ctx, ep); err != nil {
			return err
		}
		if c.Combat.IsAllEnemiesDead() {
			break
		}
	}
	return c.Machine.Change(Advance, nil)
}

// ---- Advance ----

type advanceState struct{ base }

func (advanceState) Enter(_ context.Context, c *Context, _ any) error {
	c.Progress.Advance()
	c.HUD.Refresh()
	c.setPlan(nil)
	switch {
	case c.Progress.IsGameOver():
		return c.Machine.Change(GameOver, nil)
	case c.Progress.ShouldOfferChoice():
		return c.Machine.Change(Choice, nil)
	}
	return c.Machine.Change(Idle, nil)
}

// ---- Choice ----

type choiceState struct{ base }

func (choiceState) Enter(ctx context.Context, c *Context, _ any) error {
	opts := c.Progress.RollUpgradeOptions()
	if len(opts) == 0 {
		c.Log.Warn("fsm.choice", "reason", "no upgrade options")
		c.Progress.CompleteUpgradeChoice()
		return c.Machine.Change(Idle, nil)
	}
	// 玩家選擇沒有上限，卡住由 watchdog 處理
	c.Machine.setLabel("openChoice")
	sel, err := c.Chooser.OpenChoice(ctx, opts)
	if err != nil {
		c.Progress.CompleteUpgradeChoice()
		return err
	}
	if sel != nil {
		if err := c.Progress.ApplyUpgrade(*sel); err != nil {
			c.Log.Warn("fsm.choice", "upgrade", sel.ID, "err", err)
		}
	}
	c.Progress.CompleteUpgradeChoice()
	return c.Machine.Change(Idle, nil)
}

// ---- GameOver ----

type gameOverState struct{ base }

func (gameOverState) Enter(_ context.Context, c *Context, _ any) error {
	c.Progress.SetPaused(true)
	c.HUD.SetSpinEnabled(false)
	c.HUD.ShowGameOver()
	if c.OnGameOver != nil {
		c.OnGameOver()
	}
	return nil
}
