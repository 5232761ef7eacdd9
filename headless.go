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
package slotstrike

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/fsm"
	"github.com/zintix-labs/slotstrike/sdk/async"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/jackpot"
	"github.com/zintix-labs/slotstrike/sdk/level"
	"github.com/zintix-labs/slotstrike/sdk/payout"
	"github.com/zintix-labs/slotstrike/sdk/turn"
	"github.com/zintix-labs/slotstrike/sdk/upgrade"
)

// 無頭（headless）協作者：沒有畫面時由這些實作接上狀態機，伺服器與模擬器共用。

// presenter 立即停輪，贏分 = 倍率 * 押注 * payout scale
type presenter struct {
	eval     *payout.Evaluator
	scale    func() float64
	origin   turn.Point
	spinning atomic.Bool
}

func (p *presenter) StartSpin() { p.spinning.Store(true) }

func (p *presenter) StopSpin(_ context.Context, g payout.Grid, bet float64) (fsm.Settlement, error) {
	o := p.eval.Outcome(g)
	p.spinning.Store(false)
	return fsm.Settlement{
		Outcome:  o,
		TotalWin: o.TotalMultiplier * bet * p.scale(),
		FxDone:   async.Done(),
	}, nil
}

func (p *presenter) IsSpinning() bool                 { return p.spinning.Load() }
func (p *presenter) ReleaseSpin()                     { p.spinning.Store(false) }
func (p *presenter) PayoutOrigin() (turn.Point, bool) { return p.origin, true }

// hud 押注與最後一次顯示的內容
type hud struct {
	mu      sync.Mutex
	bet     float64
	enabled bool
	last    payout.Outcome
	over    bool
}

func (h *hud) Bet() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bet
}

func (h *hud) setBet(b float64) {
	h.mu.Lock()
	h.bet = b
	h.mu.Unlock()
}

func (h *hud) SetSpinEnabled(on bool) {
	h.mu.Lock()
	h.enabled = on
	h.mu.Unlock()
}

func (h *hud) ShowSpinResult(o payout.Outcome) {
	h.mu.Lock()
	h.last = o
	h.mu.Unlock()
}

func (h *hud) ShowGameOver() {
	h.mu.Lock()
	h.over = true
	h.mu.Unlock()
}

func (h *hud) Refresh() {}

func (h *hud) spinEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// chooser 等待外部 Choose；auto 非 nil 時隨機挑一個（模擬器用）
type chooser struct {
	mu     sync.Mutex
	auto   *core.Core
	opened chan struct{}
	opts   []upgrade.Upgrade
	reply  chan int
}

// arm 回傳本回合「選單已開啟」的通知
func (c *chooser) arm() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened = make(chan struct{})
	return c.opened
}

func (c *chooser) OpenChoice(ctx context.Context, opts []upgrade.Upgrade) (*upgrade.Upgrade, error) {
	if c.auto != nil {
		u := opts[c.auto.IntN(len(opts))]
		return &u, nil
	}
	reply := make(chan int, 1)
	c.mu.Lock()
	c.opts = slices.Clone(opts)
	c.reply = reply
	if c.opened != nil {
		close(c.opened)
		c.opened = nil
	}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.opts, c.reply = nil, nil
		c.mu.Unlock()
	}()

	select {
	case i := <-reply:
		if i < 0 {
			return nil, nil
		}
		u := opts[i]
		return &u, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// answer -1 表示放棄
func (c *chooser) answer(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reply == nil {
		return errs.NewCode(errs.Warn, errs.CodeBusy, "no pending choice")
	}
	if i < -1 || i >= len(c.opts) {
		return errs.Warnf("choice index %d out of range, %d options", i, len(c.opts))
	}
	c.reply <- i
	c.reply = nil
	return nil
}

func (c *chooser) pending() []upgrade.Upgrade {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.opts)
}

// progression 關卡 + 升級池
type progression struct {
	lv  *level.Tracker
	ups *upgrade.System
}

func (p progression) Level() int                            { return p.lv.Level() }
func (p progression) OnSpin()                               { p.lv.OnSpin() }
func (p progression) Advance()                              { p.lv.Advance() }
func (p progression) IsGameOver() bool                      { return p.lv.IsGameOver() }
func (p progression) ShouldOfferChoice() bool               { return p.lv.ShouldOfferChoice() }
func (p progression) RollUpgradeOptions() []upgrade.Upgrade { return p.ups.RollOptions() }
func (p progression) ApplyUpgrade(u upgrade.Upgrade) error  { return p.ups.Apply(u) }
func (p progression) CompleteUpgradeChoice()                { p.lv.CompleteUpgradeChoice() }
func (p progression) SetPaused(paused bool)                 { p.lv.SetPaused(paused) }

// bossHook 把 jackpot 結果轉給狀態機，並留給 session 做回合紀錄
type bossHook struct {
	boss  *jackpot.Boss
	onHit func(jackpot.Hit)
}

func (b bossHook) ApplySpin(bet, win float64) fsm.BossHit {
	h := b.boss.Apply(bet, win)
	if b.onHit != nil {
		b.onHit(h)
	}
	return fsm.BossHit{Bonus: h.Bonus, FxDone: async.Done()}
}

// repairTarget watchdog 的修復對象
type repairTarget struct {
	m *fsm.Machine
	p *presenter
}

func (r repairTarget) Current() fsm.Key      { return r.m.Current() }
func (r repairTarget) Force(k fsm.Key) error { return r.m.Force(k) }
func (r repairTarget) ReleaseSpin()          { r.p.ReleaseSpin() }
