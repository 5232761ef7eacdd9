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
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// HistorySize 保留的最近回合數
const HistorySize = 50

// Round 一個完成的回合
type Round struct {
	Seq int             `json:"seq"`
	Bet decimal.Decimal `json:"bet"`
	Win decimal.Decimal `json:"win"`
	At  time.Time       `json:"at"`
}

func (r Round) Hit() bool { return r.Win.IsPositive() }

// Sink 回合完成後的外部輸出（Journal / Store）
type Sink interface {
	Write(r Round) error
}

// Summary Ledger 快照
type Summary struct {
	Spins     int             `json:"spins"`
	Hits      int             `json:"hits"`
	TotalBet  decimal.Decimal `json:"total_bet"`
	TotalWin  decimal.Decimal `json:"total_win"`
	Net       decimal.Decimal `json:"net"`
	RTP       float64         `json:"rtp"`
	HitRate   float64         `json:"hit_rate"`
	Streak    int             `json:"streak"`
	MaxStreak int             `json:"max_streak"`
}

// Ledger 回合帳本
//
// 金額以 decimal 累加，避免長時間模擬下的浮點誤差。
// StartRound 記押注與局數；FinishRound 記贏分、連勝並寫入 history 與 sinks。
type Ledger struct {
	mu        sync.Mutex
	totalBet  decimal.Decimal
	totalWin  decimal.Decimal
	spins     int
	hits      int
	streak    int
	maxStreak int
	pending   *decimal.Decimal
	history   []Round
	sinks     []Sink
	now       func() time.Time
	log       *slog.Logger
}

func NewLedger(log *slog.Logger, sinks ...Sink) *Ledger {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Ledger{
		history: make([]Round, 0, HistorySize),
		sinks:   sinks,
		now:     time.Now,
		log:     log,
	}
}

// AddSink 之後完成的回合才會寫入
func (l *Ledger) AddSink(s Sink) {
	l.mu.Lock()
	l.sinks = append(l.sinks, s)
	l.mu.Unlock()
}

func (l *Ledger) StartRound(bet float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startLocked(decimal.NewFromFloat(bet))
}

func (l *Ledger) startLocked(bet decimal.Decimal) {
	l.pending = &bet
	l.totalBet = l.totalBet.Add(bet)
	l.spins++
}

// FinishRound 沒有對應的 StartRound 時以押注 0 補一局
func (l *Ledger) FinishRound(win float64) {
	l.mu.Lock()
	if l.pending == nil {
		l.startLocked(decimal.Zero)
	}
	w := decimal.NewFromFloat(win)
	l.totalWin = l.totalWin.Add(w)
	if w.IsPositive() {
		l.hits++
		l.streak++
		l.maxStreak = max(l.maxStreak, l.streak)
	} else {
		l.streak = 0
	}
	r := Round{Seq: l.spins, Bet: *l.pending, Win: w, At: l.now()}
	l.pending = nil
	if len(l.history) == HistorySize {
		copy(l.history, l.history[1:])
		l.history = l.history[:HistorySize-1]
	}
	l.history = append(l.history, r)
	sinks := l.sinks
	l.mu.Unlock()

	for _, s := range sinks {
		if err := s.Write(r); err != nil {
			l.log.Warn("ledger.sink", "seq", r.Seq, "err", err)
		}
	}
}

// RecordRound StartRound + FinishRound
func (l *Ledger) RecordRound(bet, win float64) {
	l.StartRound(bet)
	l.FinishRound(win)
}

// History 最近 HistorySize 回合，舊到新
func (l *Ledger) History() []Round {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Round, len(l.history))
	copy(out, l.history)
	return out
}

func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Summary{
		Spins:     l.spins,
		Hits:      l.hits,
		TotalBet:  l.totalBet,
		TotalWin:  l.totalWin,
		Net:       l.totalWin.Sub(l.totalBet),
		Streak:    l.streak,
		MaxStreak: l.maxStreak,
	}
	if l.totalBet.IsPositive() {
		s.RTP = l.totalWin.Div(l.totalBet).InexactFloat64()
	}
	if l.spins > 0 {
		s.HitRate = float64(l.hits) / float64(l.spins)
	}
	return s
}
