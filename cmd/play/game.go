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
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/zintix-labs/slotstrike"
	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/fsm"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/upgrade"
)

// tickEvery 即時模式的時鐘步進：combo 衰減、關卡波次
const tickEvery = 200 * time.Millisecond

// game 主迴圈狀態。除了 session 與 collaborators，欄位只在主 goroutine 讀寫。
type game struct {
	scr tcell.Screen
	lab *slotstrike.Slotstrike

	ctx    context.Context
	cancel context.CancelFunc

	s      *slotstrike.Session
	pr     *prompt
	fx     *flash
	stop   context.CancelFunc
	ticker sync.WaitGroup

	bets   []float64
	betIdx int
	busy   bool
	choice []upgrade.Upgrade
	msg    string
}

func newGame(scr tcell.Screen, lab *slotstrike.Slotstrike, seed int64) (*game, error) {
	gs := lab.Setting()
	g := &game{
		scr:    scr,
		lab:    lab,
		bets:   slices.Clone(gs.BetUnits),
		betIdx: max(0, slices.Index(gs.BetUnits, gs.DefaultBet)),
	}
	g.ctx, g.cancel = context.WithCancel(context.Background())
	if err := g.start(seed); err != nil {
		g.cancel()
		return nil, err
	}
	return g, nil
}

// start 建立新的一局並啟動時鐘；seed 為 0 時隨機
func (g *game) start(seed int64) error {
	if seed == 0 {
		seed = core.RandomSeed()
	}
	gs := g.lab.Setting()
	g.pr = &prompt{scr: g.scr}
	g.fx = &flash{scr: g.scr, eval: gs.Evaluator(), hold: min(600*time.Millisecond, gs.Timeouts.WinLines/2)}
	s, err := g.lab.NewSessionWithSeed(seed, slotstrike.WithChooser(g.pr), slotstrike.WithEffects(g.fx))
	if err != nil {
		return err
	}
	g.s = s
	g.busy, g.choice = false, nil
	g.msg = fmt.Sprintf("seed %d  ·  SPACE to spin", seed)

	ctx, stop := context.WithCancel(g.ctx)
	g.stop = stop
	g.ticker.Add(1)
	go g.tick(ctx, s)
	return nil
}

func (g *game) tick(ctx context.Context, s *slotstrike.Session) {
	defer g.ticker.Done()
	t := time.NewTicker(tickEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Tick(tickEvery)
			post(g.scr, redraw{})
		}
	}
}

// end 停止時鐘並關閉目前的 session
func (g *game) end() {
	g.stop()
	g.ticker.Wait()
	g.s.Close()
}

func (g *game) close() {
	g.cancel()
	g.end()
}

func (g *game) loop() error {
	g.draw()
	for {
		switch ev := g.scr.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			g.scr.Sync()
		case *tcell.EventKey:
			if g.key(ev) {
				return nil
			}
		case *tcell.EventInterrupt:
			g.interrupt(ev.Data())
		}
		g.draw()
	}
}

// key 回傳 true 表示離開
func (g *game) key(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyEnter:
		g.spin()
		return false
	case tcell.KeyRune:
	default:
		return false
	}
	switch r := ev.Rune(); {
	case r == 'q':
		return true
	case r == ' ':
		g.spin()
	case r == '+' || r == '=':
		g.shiftBet(1)
	case r == '-':
		g.shiftBet(-1)
	case r >= '1' && r <= '9':
		g.choose(int(r - '1'))
	case r == '0' || r == 's':
		g.choose(-1)
	case r == 'r':
		g.restart()
	}
	return false
}

func (g *game) spin() {
	if g.busy {
		return
	}
	switch st := g.s.State(); st {
	case fsm.Idle:
	case fsm.GameOver:
		g.msg = "game over  ·  r to restart"
		return
	default:
		g.msg = "machine busy: " + st.String()
		return
	}
	g.busy = true
	s, bet := g.s, g.bets[g.betIdx]
	go func() {
		_, err := s.Spin(g.ctx, bet)
		post(g.scr, roundDone{s: s, err: err})
	}()
}

func (g *game) choose(i int) {
	if g.choice == nil {
		return
	}
	if i >= len(g.choice) {
		g.msg = fmt.Sprintf("pick 1-%d, 0 to skip", len(g.choice))
		return
	}
	if g.pr.answer(i) {
		g.choice = nil
	}
}

func (g *game) shiftBet(d int) {
	g.betIdx = min(max(g.betIdx+d, 0), len(g.bets)-1)
}

func (g *game) restart() {
	if g.busy && g.s.State() != fsm.GameOver {
		g.msg = "finish the round first"
		return
	}
	g.end()
	if err := g.start(0); err != nil {
		g.msg = err.Error()
	}
}

func (g *game) interrupt(data any) {
	switch d := data.(type) {
	case choiceOpen:
		g.choice = d.opts
		g.msg = "level clear!  pick an upgrade"
	case roundDone:
		if d.s != g.s {
			// restart 前發出的回合
			return
		}
		g.busy = false
		switch {
		case errs.HasCode(d.err, errs.CodeBusy):
			g.msg = "machine busy"
		case d.err != nil:
			g.msg = d.err.Error()
		default:
			g.msg = g.roundMsg()
		}
	}
}

func (g *game) roundMsg() string {
	v := g.s.View()
	if v.Last == nil {
		return ""
	}
	l := v.Last
	switch {
	case l.GameOver:
		return "the line broke  ·  r to restart"
	case l.BossKill:
		return fmt.Sprintf("BOSS DOWN  +%.0f  ·  total %.0f", l.BossBonus, l.TotalWin)
	case l.TotalWin > 0:
		return fmt.Sprintf("win %.0f  ·  %d kills", l.TotalWin, l.Kills)
	}
	return fmt.Sprintf("no win  ·  %d kills", l.Kills)
}
