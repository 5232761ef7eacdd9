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
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/zintix-labs/slotstrike"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/payout"
	"github.com/zintix-labs/slotstrike/sdk/upgrade"
	"github.com/zintix-labs/slotstrike/server/logger"
	"github.com/zintix-labs/slotstrike/spec"
)

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	scr := tcell.NewSimulationScreen("UTF-8")
	if err := scr.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	scr.SetSize(100, 30)
	t.Cleanup(scr.Fini)
	return scr
}

func newLab(t *testing.T) *slotstrike.Slotstrike {
	t.Helper()
	log, done := logger.New(logger.Options{Mode: logger.ModeSilence})
	t.Cleanup(done)
	lab, err := slotstrike.New(core.Default(), spec.Default(), log)
	if err != nil {
		t.Fatalf("new lab: %v", err)
	}
	return lab
}

func screenText(scr tcell.SimulationScreen) string {
	cells, w, _ := scr.GetContents()
	var b strings.Builder
	for i, c := range cells {
		if i > 0 && i%w == 0 {
			b.WriteByte('\n')
		}
		if len(c.Runes) == 0 {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(c.Runes[0])
	}
	return b.String()
}

func TestDraw(t *testing.T) {
	scr := newScreen(t)
	g, err := newGame(scr, newLab(t), 42)
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	defer g.close()

	g.draw()
	out := screenText(scr)
	for _, want := range []string{"SLOTSTRIKE", "Level 1", "Bet 10", "seed 42", "Boss", "SPACE spin"} {
		if !strings.Contains(out, want) {
			t.Fatalf("screen missing %q:\n%s", want, out)
		}
	}

	g.choice = []upgrade.Upgrade{{Name: "Hollow Point", Rarity: upgrade.Common, Description: "more damage"}}
	g.draw()
	if out := screenText(scr); !strings.Contains(out, "1) Hollow Point") || !strings.Contains(out, "0) skip") {
		t.Fatalf("choice overlay not drawn:\n%s", out)
	}
}

func TestShiftBet(t *testing.T) {
	g := &game{bets: []float64{1, 2, 5}, betIdx: 1}
	g.shiftBet(5)
	if g.betIdx != 2 {
		t.Fatalf("betIdx = %d, want 2", g.betIdx)
	}
	g.shiftBet(-9)
	if g.betIdx != 0 {
		t.Fatalf("betIdx = %d, want 0", g.betIdx)
	}
}

func TestPromptAnswer(t *testing.T) {
	p := &prompt{scr: newScreen(t)}
	if p.answer(0) {
		t.Fatalf("answer without open choice should fail")
	}

	opts := []upgrade.Upgrade{{ID: "a"}, {ID: "b"}}
	type result struct {
		u   *upgrade.Upgrade
		err error
	}
	pick := func(i int) result {
		ch := make(chan result, 1)
		go func() {
			u, err := p.OpenChoice(context.Background(), opts)
			ch <- result{u, err}
		}()
		deadline := time.Now().Add(2 * time.Second)
		for !p.answer(i) {
			if time.Now().After(deadline) {
				t.Fatalf("choice never opened")
			}
			time.Sleep(time.Millisecond)
		}
		return <-ch
	}

	if r := pick(1); r.err != nil || r.u == nil || r.u.ID != "b" {
		t.Fatalf("pick(1) = %+v", r)
	}
	if r := pick(-1); r.err != nil || r.u != nil {
		t.Fatalf("skip = %+v", r)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.OpenChoice(ctx, opts); err == nil {
		t.Fatalf("cancelled choice should return error")
	}
}

func TestFlash(t *testing.T) {
	gs := spec.Default()
	f := &flash{scr: newScreen(t), eval: gs.Evaluator(), hold: 5 * time.Millisecond}

	var grid payout.Grid
	grid[0][0] = payout.Wild
	o := payout.Outcome{Grid: grid, Wins: []payout.WinLine{{LineIndex: 0}}}
	if err := f.PlayWinLines(context.Background(), o); err != nil {
		t.Fatalf("play: %v", err)
	}
	got, hot := f.shown()
	if got != grid || hot != nil {
		t.Fatalf("after hold: grid %v hot %v", got, hot)
	}

	if err := f.PlayWinLines(context.Background(), payout.Outcome{Grid: grid}); err != nil {
		t.Fatalf("play no win: %v", err)
	}
	if _, hot := f.shown(); hot == nil || len(hot) != 0 {
		t.Fatalf("no-win flash should leave an empty highlight set, got %v", hot)
	}
}
