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
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/slotstrike/dto"
	"github.com/zintix-labs/slotstrike/sdk/field"
	"github.com/zintix-labs/slotstrike/sdk/payout"
)

// 版面（終端機格）
const (
	gridX, gridY = 2, 2
	cellW        = 10
	hudY         = 10
	fieldX       = 38
	fieldY       = 2
)

var (
	stDefault = tcell.StyleDefault
	stTitle   = stDefault.Foreground(tcell.ColorAqua).Bold(true)
	stDim     = stDefault.Foreground(tcell.ColorGray)
	stWarn    = stDefault.Foreground(tcell.ColorRed).Bold(true)
	stGood    = stDefault.Foreground(tcell.ColorGreen).Bold(true)
	stPick    = stDefault.Foreground(tcell.ColorYellow).Bold(true)

	symbolStyle = [payout.NumSymbols]tcell.Style{
		stDim,
		stDefault.Foreground(tcell.ColorWhite),
		stDefault.Foreground(tcell.ColorGreen),
		stDefault.Foreground(tcell.ColorOrange),
		stDefault.Foreground(tcell.ColorYellow).Bold(true),
	}
	symbolGlyph = [payout.NumSymbols]string{"·", "BULLET", "GRENADE", "MISSILE", "★ WILD"}
)

// text 以 runewidth 計算寬度，回傳結束的 x
func text(scr tcell.Screen, x, y int, st tcell.Style, s string) int {
	for _, r := range s {
		scr.SetContent(x, y, r, nil, st)
		x += max(1, runewidth.RuneWidth(r))
	}
	return x
}

// bar [####----]
func bar(ratio float64, width int) string {
	ratio = min(max(ratio, 0), 1)
	n := int(ratio*float64(width) + 0.5)
	return "[" + strings.Repeat("#", n) + strings.Repeat("-", width-n) + "]"
}

func (g *game) draw() {
	g.scr.Clear()
	v := g.s.View()
	w, h := g.scr.Size()

	text(g.scr, gridX, 0, stTitle, fmt.Sprintf("SLOTSTRIKE  %s", v.Game))
	g.drawGrid(v)
	g.drawField(v)
	g.drawHUD(v)
	if g.choice != nil {
		g.drawChoice()
	}

	msgSt := stDefault
	if v.State == "GameOver" {
		msgSt = stWarn
	}
	text(g.scr, gridX, h-2, msgSt, runewidth.Truncate(g.msg, max(0, w-gridX-1), "…"))
	text(g.scr, gridX, h-1, stDim, "SPACE spin  +/- bet  1-3 pick  0 skip  r restart  q quit")
	g.scr.Show()
}

func (g *game) drawGrid(v dto.SessionView) {
	grid, hot := g.fx.shown()
	if hot == nil && v.Last != nil {
		grid = v.Last.Grid
	}
	for r := range payout.Rows {
		y := gridY + r*2
		for c := range payout.Cols {
			sym := grid[c][r]
			st := symbolStyle[0]
			glyph := "?"
			if sym.Valid() {
				st, glyph = symbolStyle[sym], symbolGlyph[sym]
			}
			if hot[payout.Cell{C: c, R: r}] {
				st = st.Reverse(true)
			}
			cell := runewidth.FillRight(" "+glyph, cellW-1)
			text(g.scr, gridX+c*cellW, y, st, cell)
		}
	}
}

func enemyStyle(e field.Enemy) tcell.Style {
	r := 1.0
	if e.MaxHP > 0 {
		r = e.HP / e.MaxHP
	}
	switch {
	case r > 0.66:
		return stDefault.Foreground(tcell.ColorGreen)
	case r > 0.33:
		return stDefault.Foreground(tcell.ColorYellow)
	}
	return stDefault.Foreground(tcell.ColorRed)
}

func (g *game) drawField(v dto.SessionView) {
	fc := g.lab.Setting().Field
	edge := stDim
	if v.Field.Bottom {
		edge = stWarn
	}
	text(g.scr, fieldX, fieldY-1, edge, "+"+strings.Repeat("-", fc.Columns*2)+"+")
	for r := range fc.Rows {
		text(g.scr, fieldX, fieldY+r, edge, "|")
		text(g.scr, fieldX+1+fc.Columns*2, fieldY+r, edge, "|")
	}
	text(g.scr, fieldX, fieldY+fc.Rows, edge, "+"+strings.Repeat("=", fc.Columns*2)+"+")
	for _, e := range v.Enemies {
		if e.Col < 0 || e.Col >= fc.Columns || e.Row < 0 || e.Row >= fc.Rows {
			continue
		}
		glyph := '?'
		if e.Kind != "" {
			glyph = []rune(e.Kind)[0]
		}
		g.scr.SetContent(fieldX+1+e.Col*2, fieldY+e.Row, glyph, nil, enemyStyle(e))
	}
	text(g.scr, fieldX, fieldY+fc.Rows+1, stDim,
		fmt.Sprintf("alive %d  killed %d  crits %d", v.Field.Alive, v.Field.Killed, v.Field.Crits))
}

func (g *game) drawHUD(v dto.SessionView) {
	p, cb, boss, led := v.Progress, v.Combo, v.Boss, v.Ledger
	y := hudY

	stateSt := stDefault
	if g.busy {
		stateSt = stPick
	}
	text(g.scr, gridX, y, stateSt, fmt.Sprintf("Level %d   kills %d/%d   state %s", p.Level, p.Kills, p.KillsToAdvance, v.State))
	y++
	text(g.scr, gridX, y, stDefault, fmt.Sprintf("Bet %-6g Net %s   RTP %.1f%%   hits %d/%d",
		g.bets[g.betIdx], led.Net.StringFixed(0), led.RTP*100, led.Hits, led.Spins))
	y++
	heat := fmt.Sprintf("Combo %-3d heat %s", cb.ComboCount, bar(cb.Heat/max(1, g.lab.Setting().Combo.HeatMax), 20))
	x := text(g.scr, gridX, y, stDefault, heat)
	if cb.OverdriveActive {
		text(g.scr, x+1, y, stPick, "OVERDRIVE")
	} else if cb.Buff != "" {
		text(g.scr, x+1, y, stGood, cb.Buff)
	}
	y++
	hpRatio := 0.0
	if boss.MaxHP > 0 {
		hpRatio = boss.HP / boss.MaxHP
	}
	text(g.scr, gridX, y, stDefault, fmt.Sprintf("Boss %-8s %s %.0f/%.0f  kills %d", boss.Name, bar(hpRatio, 20), boss.HP, boss.MaxHP, boss.Kills))
	y++
	if len(v.Upgrades) > 0 {
		text(g.scr, gridX, y, stDim, "Upgrades "+strings.Join(v.Upgrades, ", "))
	}
	y++
	if l := v.Last; l != nil {
		var b strings.Builder
		for _, ev := range l.Events {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(ev.Kind.String())
		}
		text(g.scr, gridX, y, stDim, fmt.Sprintf("#%d win %.0f  %s", l.Seq, l.TotalWin, b.String()))
	}
}

func (g *game) drawChoice() {
	y := hudY + 7
	text(g.scr, gridX, y, stPick, "Choose an upgrade:")
	for i, u := range g.choice {
		y++
		text(g.scr, gridX+2, y, stPick, fmt.Sprintf("%d) %s [%s] %s", i+1, u.Name, u.Rarity, u.Description))
	}
	text(g.scr, gridX+2, y+1, stDim, "0) skip")
}
