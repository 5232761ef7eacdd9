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

package recorder

import (
	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/stats"
)

// Tally 模擬紀錄員
//
// 一個 session 一個 Tally，worker 之間不共用；結束後 MergeTally 合併，Done 輸出統計報表
type Tally struct {
	GameName string
	Bet      float64
	Sessions int
	Basic    *BasicRecord
	Dist     []int
	Run      *RunRecord
}

// BasicRecord 基本遊戲資料紀錄
type BasicRecord struct {
	TotalBet   float64
	TotalWin   float64
	BossBonus  float64
	WinMult    float64
	WinMultSq  float64 // 平方和
	MaxWinMult float64
	Rounds     int
}

// RunRecord 遊戲進程
type RunRecord struct {
	Level     int
	Kills     int
	BossKills int
	Upgrades  int
	GameOvers int
}

func NewTally(name string, bet float64) (*Tally, error) {
	if bet <= 0 {
		return nil, errs.Fatalf("bet must be positive, got: %v", bet)
	}
	return &Tally{
		GameName: name,
		Bet:      bet,
		Sessions: 1,
		Basic:    new(BasicRecord),
		Dist:     make([]int, stats.Buckets.Len()),
		Run:      &RunRecord{Level: 1},
	}, nil
}

// Record 一局：win 已含 boss 加成 bonus
func (t *Tally) Record(win, bonus float64) {
	m := win / t.Bet
	b := t.Basic
	b.TotalBet += t.Bet
	b.TotalWin += win
	b.BossBonus += bonus
	b.WinMult += m
	b.WinMultSq += m * m
	b.MaxWinMult = max(b.MaxWinMult, m)
	b.Rounds++
	t.Dist[stats.Buckets.Index(m)]++
}

// Finish session 結束時的進程
func (t *Tally) Finish(level, kills, bossKills, upgrades int, gameOver bool) {
	t.Run.Level = level
	t.Run.Kills = kills
	t.Run.BossKills = bossKills
	t.Run.Upgrades = upgrades
	if gameOver {
		t.Run.GameOvers = 1
	}
}

func MergeTally(ts []*Tally) (*Tally, error) {
	if len(ts) == 0 {
		return nil, errs.NewFatal("merge tally err : empty input")
	}
	t0 := ts[0]
	s, err := NewTally(t0.GameName, t0.Bet)
	if err != nil {
		return nil, err
	}
	s.Sessions = 0
	for _, v := range ts {
		if v.GameName != t0.GameName {
			return nil, errs.NewFatal("merge tally err : different game name")
		}
		if v.Bet != t0.Bet {
			return nil, errs.NewFatal("merge tally err : different bet")
		}
		s.Sessions += v.Sessions
		s.Basic.TotalBet += v.Basic.TotalBet
		s.Basic.TotalWin += v.Basic.TotalWin
		s.Basic.BossBonus += v.Basic.BossBonus
		s.Basic.WinMult += v.Basic.WinMult
		s.Basic.WinMultSq += v.Basic.WinMultSq
		s.Basic.MaxWinMult = max(s.Basic.MaxWinMult, v.Basic.MaxWinMult)
		s.Basic.Rounds += v.Basic.Rounds
		for i, c := range v.Dist {
			s.Dist[i] += c
		}
		s.Run.Level = max(s.Run.Level, v.Run.Level)
		s.Run.Kills += v.Run.Kills
		s.Run.BossKills += v.Run.BossKills
		s.Run.Upgrades += v.Run.Upgrades
		s.Run.GameOvers += v.Run.GameOvers
	}
	return s, nil
}

// Done 輸出統計報表
func (t *Tally) Done() *stats.StatReport {
	dist := make([]int, len(t.Dist))
	copy(dist, t.Dist)
	r := &stats.StatReport{
		Summary: &stats.SummaryReport{
			GameName:    t.GameName,
			Sessions:    t.Sessions,
			Bet:         t.Bet,
			TotalBet:    t.Basic.TotalBet,
			TotalWin:    t.Basic.TotalWin,
			BossBonus:   t.Basic.BossBonus,
			NoWinRounds: dist[0],
			Rounds:      t.Basic.Rounds,
		},
		Mult: &stats.MultReport{
			TotalWinMult:      t.Basic.WinMult,
			TotalWinMultSqSum: t.Basic.WinMultSq,
			MaxWinMult:        t.Basic.MaxWinMult,
		},
		Dist: &stats.DistReport{
			WinBucket:       stats.Buckets.WinBucketStr(),
			TotalWinCollect: dist,
		},
		Run: &stats.RunReport{
			Level:     t.Run.Level,
			Kills:     t.Run.Kills,
			BossKills: t.Run.BossKills,
			Upgrades:  t.Run.Upgrades,
			GameOvers: t.Run.GameOvers,
		},
	}
	r.Done()
	return r
}
