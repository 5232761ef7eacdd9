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

// Package payout 3x3 盤面的連線計分。
//
// 盤面產生器（bank）與現場結算（presenter）都只透過 Evaluator 計分，兩邊結果必須一致。
package payout

import (
	"fmt"
	"strings"
)

// Symbol 盤面符號
type Symbol int8

const (
	Empty Symbol = iota
	Low          // bullet
	Mid          // grenade
	High         // missile
	Wild
)

// NumSymbols 符號種類數
const NumSymbols = 5

var symbolNames = [NumSymbols]string{"EMPTY", "BULLET", "GRENADE", "MISSILE", "WILD"}

func (s Symbol) String() string {
	if s < 0 || int(s) >= NumSymbols {
		return fmt.Sprintf("Symbol(%d)", int8(s))
	}
	return symbolNames[s]
}

// Valid 是否為已知符號
func (s Symbol) Valid() bool { return s >= Empty && s <= Wild }

// ParseSymbol 名稱轉符號（不分大小寫），也接受 low/mid/high
func ParseSymbol(name string) (Symbol, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "EMPTY":
		return Empty, nil
	case "BULLET", "LOW":
		return Low, nil
	case "GRENADE", "MID":
		return Mid, nil
	case "MISSILE", "HIGH":
		return High, nil
	case "WILD":
		return Wild, nil
	}
	return Empty, fmt.Errorf("unknown symbol %q", name)
}

func (s Symbol) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Symbol) UnmarshalText(b []byte) error {
	v, err := ParseSymbol(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

const (
	Cols = 3
	Rows = 3
)

// Grid 盤面，索引為 grid[col][row]
type Grid [Cols][Rows]Symbol

// Fill 全部設為 s
func (g *Grid) Fill(s Symbol) {
	for c := range Cols {
		for r := range Rows {
			g[c][r] = s
		}
	}
}

// Count 盤面上 s 的數量
func (g Grid) Count(s Symbol) int {
	n := 0
	for c := range Cols {
		for r := range Rows {
			if g[c][r] == s {
				n++
			}
		}
	}
	return n
}

// String 以列為主輸出，除錯用
func (g Grid) String() string {
	var sb strings.Builder
	for r := range Rows {
		for c := range Cols {
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(fmt.Sprintf("%-7s", g[c][r]))
		}
		if r < Rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Cell 盤面座標
type Cell struct {
	C int `yaml:"c" json:"c"`
	R int `yaml:"r" json:"r"`
}

// Payline 一條連線的三個座標
type Payline [Cols]Cell

// WinLine 一條中獎線
type WinLine struct {
	LineIndex        int       `json:"line_index"`
	Symbols          [3]Symbol `json:"symbols"`
	Target           Symbol    `json:"target"`
	PayoutMultiplier float64   `json:"payout_multiplier"`
}

// Outcome 一次 spin 的結果。建立後不再修改；需要改盤面時重新 Evaluate 產生新的 Outcome。
type Outcome struct {
	Grid            Grid      `json:"grid"`
	Wins            []WinLine `json:"wins"`
	TotalMultiplier float64   `json:"total_multiplier"`
}

// IsWin 是否有任何中獎線
func (o Outcome) IsWin() bool { return len(o.Wins) > 0 }

// WinSymbolCount 所有中獎線上的符號出現次數（同一格出現在多條線會重複計算）
func (o Outcome) WinSymbolCount() [NumSymbols]int {
	var cnt [NumSymbols]int
	for _, w := range o.Wins {
		for _, s := range w.Symbols {
			if s.Valid() {
				cnt[s]++
			}
		}
	}
	return cnt
}
