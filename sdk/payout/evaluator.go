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

package payout

import (
	"fmt"
	"slices"
)

// DefaultPaytable 每個符號三連的倍率
var DefaultPaytable = [NumSymbols]float64{
	Empty: 0,
	Low:   0.5,
	Mid:   1,
	High:  2,
	Wild:  5,
}

// DefaultPaylines 3 橫、3 直、2 斜、1 條 V 形
var DefaultPaylines = []Payline{
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
	{{1, 0}, {0, 1}, {1, 2}},
}

// Evaluator 連線計分器，建立後唯讀，可跨 goroutine 共用
type Evaluator struct {
	pay   [NumSymbols]float64
	lines []Payline
}

// NewEvaluator 以賠率表與線表建立計分器
func NewEvaluator(pay [NumSymbols]float64, lines []Payline) (*Evaluator, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("payout: no paylines")
	}
	for i, l := range lines {
		for _, cell := range l {
			if cell.C < 0 || cell.C >= Cols || cell.R < 0 || cell.R >= Rows {
				return nil, fmt.Errorf("payout: line %d cell (%d,%d) out of grid", i, cell.C, cell.R)
			}
		}
	}
	for s, v := range pay {
		if v < 0 {
			return nil, fmt.Errorf("payout: negative pay for %s", Symbol(s))
		}
	}
	return &Evaluator{pay: pay, lines: slices.Clone(lines)}, nil
}

var defaultEvaluator = func() *Evaluator {
	e, err := NewEvaluator(DefaultPaytable, DefaultPaylines)
	if err != nil {
		panic(err)
	}
	return e
}()

// Default 預設賠率與線表的計分器
func Default() *Evaluator { return defaultEvaluator }

// Lines 線表（副本）
func (e *Evaluator) Lines() []Payline { return slices.Clone(e.lines) }

// Line 第 i 條線
func (e *Evaluator) Line(i int) Payline { return e.lines[i] }

// NumLines 線數
func (e *Evaluator) NumLines() int { return len(e.lines) }

// Pay 符號倍率
func (e *Evaluator) Pay(s Symbol) float64 {
	if !s.Valid() {
		return 0
	}
	return e.pay[s]
}

// evalLine 單線判定：以第一個非 wild 為目標，全部等於目標或 wild 才中；
// 整條都是 wild 時目標就是 wild。
func (e *Evaluator) evalLine(g Grid, idx int) (WinLine, bool) {
	line := e.lines[idx]
	var syms [3]Symbol
	target := Wild
	anchored := false
	for i, cell := range line {
		s := g[cell.C][cell.R]
		syms[i] = s
		if !anchored && s != Wild {
			target = s
			anchored = true
		}
	}
	for _, s := range syms {
		if s != target && s != Wild {
			return WinLine{}, false
		}
	}
	mul := e.Pay(target)
	if mul <= 0 {
		return WinLine{}, false
	}
	return WinLine{LineIndex: idx, Symbols: syms, Target: target, PayoutMultiplier: mul}, true
}

// Evaluate 依線表順序回傳所有中獎線。純函式，同一盤面永遠得到同樣結果。
func (e *Evaluator) Evaluate(g Grid) []WinLine {
	var wins []WinLine
	for i := range e.lines {
		if w, ok := e.evalLine(g, i); ok {
			wins = append(wins, w)
		}
	}
	return wins
}

// Outcome 計分並組成 Outcome，TotalMultiplier 為各線倍率加總
func (e *Evaluator) Outcome(g Grid) Outcome {
	wins := e.Evaluate(g)
	total := 0.0
	for _, w := range wins {
		total += w.PayoutMultiplier
	}
	return Outcome{Grid: g, Wins: wins, TotalMultiplier: total}
}

// Miss 沒有中獎線的 Outcome（逾時 fallback 用）
func Miss(g Grid) Outcome { return Outcome{Grid: g} }
