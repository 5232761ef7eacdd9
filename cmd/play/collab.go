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
package main

import (
	"context"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/zintix-labs/slotstrike"
	"github.com/zintix-labs/slotstrike/sdk/payout"
	"github.com/zintix-labs/slotstrike/sdk/upgrade"
)

// 畫面 goroutine 之外送回主迴圈的事件（包在 tcell.EventInterrupt 裡）
type (
	redraw     struct{}
	choiceOpen struct{ opts []upgrade.Upgrade }
	roundDone  struct {
		s   *slotstrike.Session
		err error
	}
)

// post 畫面已關閉時 PostEvent 會失敗，忽略即可
func post(scr tcell.Screen, v any) {
	_ = scr.PostEvent(tcell.NewEventInterrupt(v))
}

// prompt 升級選單：OpenChoice 在狀態機 goroutine 上阻塞，直到主迴圈送回按鍵
type prompt struct {
	scr   tcell.Screen
	mu    sync.Mutex
	reply chan int
}

func (p *prompt) OpenChoice(ctx context.Context, opts []upgrade.Upgrade) (*upgrade.Upgrade, error) {
	reply := make(chan int, 1)
	p.mu.Lock()
	p.reply = reply
	p.mu.Unlock()
	post(p.scr, choiceOpen{opts: opts})

	select {
	case i := <-reply:
		if i < 0 || i >= len(opts) {
			return nil, nil
		}
		u := opts[i]
		return &u, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// answer 沒有開啟中的選單時回傳 false
func (p *prompt) answer(i int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reply == nil {
		return false
	}
	p.reply <- i
	p.reply = nil
	return true
}

// flash 中獎線閃爍。hold 需小於 timeouts.win_lines，否則會被狀態機當成逾時。
type flash struct {
	scr  tcell.Screen
	eval *payout.Evaluator
	hold time.Duration

	mu    sync.Mutex
	grid  payout.Grid
	cells map[payout.Cell]bool
}

func (f *flash) PlayWinLines(ctx context.Context, o payout.Outcome) error {
	cells := make(map[payout.Cell]bool)
	for _, w := range o.Wins {
		for _, c := range f.eval.Line(w.LineIndex) {
			cells[c] = true
		}
	}
	f.mu.Lock()
	f.grid, f.cells = o.Grid, cells
	f.mu.Unlock()
	post(f.scr, redraw{})
	if len(cells) == 0 {
		return nil
	}

	t := time.NewTimer(f.hold)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	f.mu.Lock()
	f.cells = nil
	f.mu.Unlock()
	post(f.scr, redraw{})
	return nil
}

// shown 目前應顯示的盤面與高亮格
func (f *flash) shown() (payout.Grid, map[payout.Cell]bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grid, f.cells
}
