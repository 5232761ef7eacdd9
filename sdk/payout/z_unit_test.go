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
	"slices"
	"testing"
)

func gridOf(rows [Rows][Cols]Symbol) Grid {
	var g Grid
	for r := range Rows {
		for c := range Cols {
			g[c][r] = rows[r][c]
		}
	}
	return g
}

func TestEvaluateWildSubstitution(t *testing.T) {
	e := Default()
	g := gridOf([Rows][Cols]Symbol{
		{Low, Low, Wild},
		{Empty, Mid, Empty},
		{Low, Empty, Empty},
	})
	out := e.Outcome(g)
	if len(out.Wins) != 1 {
		t.Fatalf("want 1 win got %+v", out.Wins)
	}
	w := out.Wins[0]
	if w.LineIndex != 0 || w.Target != Low || w.PayoutMultiplier != 0.5 {
		t.Fatalf("unexpected win %+v", w)
	}
	if w.Symbols != [3]Symbol{Low, Low, Wild} {
		t.Fatalf("symbols: %v", w.Symbols)
	}
	if out.TotalMultiplier != 0.5 {
		t.Fatalf("total: %v", out.TotalMultiplier)
	}
}

func TestEvaluateWildOnlyLine(t *testing.T) {
	g := gridOf([Rows][Cols]Symbol{
		{Wild, Empty, Empty},
		{Empty, Wild, Empty},
		{Empty, Empty, Wild},
	})
	wins := Default().Evaluate(g)
	if len(wins) != 1 || wins[0].LineIndex != 6 || wins[0].Target != Wild || wins[0].PayoutMultiplier != 5 {
		t.Fatalf("want diagonal wild win got %+v", wins)
	}
}

func TestEvaluateEmptyAndMixedDoNotPay(t *testing.T) {
	e := Default()
	var g Grid
	if wins := e.Evaluate(g); len(wins) != 0 {
		t.Fatalf("empty grid must not win: %+v", wins)
	}
	g = gridOf([Rows][Cols]Symbol{
		{Empty, Wild, Wild},
		{Low, Mid, Low},
		{High, High, Mid},
	})
	if wins := e.Evaluate(g); len(wins) != 0 {
		t.Fatalf("no line should win: %+v", wins)
	}
}

func TestChevronLine(t *testing.T) {
	g := gridOf([Rows][Cols]Symbol{
		{Empty, High, Empty},
		{High, Empty, Empty},
		{Empty, Wild, Empty},
	})
	wins := Default().Evaluate(g)
	if len(wins) != 1 || wins[0].LineIndex != 8 || wins[0].Target != High {
		t.Fatalf("want chevron win got %+v", wins)
	}
}

func TestEvaluatePureAndTotal(t *testing.T) {
	e := Default()
	g := gridOf([Rows][Cols]Symbol{
		{Mid, Mid, Mid},
		{Mid, Wild, Low},
		{Mid, Low, Low},
	})
	a := e.Outcome(g)
	b := e.Outcome(g)
	if !slices.Equal(a.Wins, b.Wins) {
		t.Fatalf("evaluation not idempotent")
	}
	sum := 0.0
	for _, w := range a.Wins {
		sum += w.PayoutMultiplier
	}
	if sum != a.TotalMultiplier || len(a.Wins) < 2 {
		t.Fatalf("total %v sum %v wins %d", a.TotalMultiplier, sum, len(a.Wins))
	}
	if got := a.WinSymbolCount(); got[Mid] == 0 || got[Wild] == 0 {
		t.Fatalf("win symbol count: %v", got)
	}
}

func TestNewEvaluatorValidation(t *testing.T) {
	if _, err := NewEvaluator(DefaultPaytable, nil); err == nil {
		t.Fatalf("no lines must fail")
	}
	if _, err := NewEvaluator(DefaultPaytable, []Payline{{{0, 0}, {1, 0}, {3, 0}}}); err == nil {
		t.Fatalf("out of grid must fail")
	}
	bad := DefaultPaytable
	bad[Low] = -1
	if _, err := NewEvaluator(bad, DefaultPaylines); err == nil {
		t.Fatalf("negative pay must fail")
	}
}

func TestParseSymbol(t *testing.T) {
	cases := map[string]Symbol{"bullet": Low, "MID": Mid, " missile ": High, "wild": Wild, "empty": Empty}
	for in, want := range cases {
		got, err := ParseSymbol(in)
		if err != nil || got != want {
			t.Fatalf("%q: want %v got %v,%v", in, want, got, err)
		}
	}
	if _, err := ParseSymbol("cherry"); err == nil {
		t.Fatalf("unknown symbol must fail")
	}
	if Wild.String() != "WILD" || Symbol(9).String() != "Symbol(9)" {
		t.Fatalf("String mismatch")
	}
}
