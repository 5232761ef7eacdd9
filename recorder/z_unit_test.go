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
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slotstrike/errs"
)

type memSink struct{ rounds []Round }

func (m *memSink) Write(r Round) error {
	m.rounds = append(m.rounds, r)
	return nil
}

type failSink struct{}

func (failSink) Write(Round) error { return errs.NewWarn("disk full") }

func TestLedgerTotalsAndStreak(t *testing.T) {
	sink := &memSink{}
	l := NewLedger(nil, sink, failSink{})
	wins := []float64{0.1, 0.2, 0, 5, 5, 5, 0}
	for _, w := range wins {
		l.RecordRound(1, w)
	}
	s := l.Summary()
	if s.Spins != 7 || s.Hits != 5 {
		t.Fatalf("spins=%d hits=%d", s.Spins, s.Hits)
	}
	// 0.1 + 0.2 以 decimal 累加應為精確值
	if !s.TotalWin.Equal(decimal.RequireFromString("15.3")) {
		t.Fatalf("total win: %s", s.TotalWin)
	}
	if !s.Net.Equal(decimal.RequireFromString("8.3")) {
		t.Fatalf("net: %s", s.Net)
	}
	if s.Streak != 0 || s.MaxStreak != 3 {
		t.Fatalf("streak=%d max=%d", s.Streak, s.MaxStreak)
	}
	if s.RTP < 2.18 || s.RTP > 2.19 {
		t.Fatalf("rtp: %v", s.RTP)
	}
	if len(sink.rounds) != 7 || sink.rounds[3].Seq != 4 || !sink.rounds[3].Hit() {
		t.Fatalf("sink rounds: %+v", sink.rounds)
	}
}

func TestLedgerFinishWithoutStart(t *testing.T) {
	l := NewLedger(nil)
	l.FinishRound(3)
	s := l.Summary()
	if s.Spins != 1 || !s.TotalBet.IsZero() || s.RTP != 0 {
		t.Fatalf("summary: %+v", s)
	}
}

func TestLedgerHistoryBounded(t *testing.T) {
	l := NewLedger(nil)
	for i := range HistorySize + 10 {
		l.RecordRound(1, float64(i))
	}
	h := l.History()
	if len(h) != HistorySize {
		t.Fatalf("history len %d", len(h))
	}
	if h[0].Seq != 11 || h[len(h)-1].Seq != HistorySize+10 {
		t.Fatalf("history window: first=%d last=%d", h[0].Seq, h[len(h)-1].Seq)
	}
}

func TestJournalRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	j, err := NewJournal(&buf)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	l := NewLedger(nil, j)
	l.RecordRound(10, 0)
	l.RecordRound(10, 27.5)
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := j.Write(Round{}); err == nil {
		t.Fatalf("write after close must fail")
	}
	rounds, err := ReadJournal(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rounds) != 2 || !rounds[1].Win.Equal(decimal.RequireFromString("27.5")) || rounds[0].Hit() {
		t.Fatalf("rounds: %+v", rounds)
	}
}

func TestJournalSessionSinks(t *testing.T) {
	var buf bytes.Buffer
	j, err := NewJournal(&buf)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	a := NewLedger(nil, j.Sink("a"))
	b := NewLedger(nil, j.Sink("b"))
	a.RecordRound(1, 0)
	b.RecordRound(2, 4)
	a.RecordRound(1, 1)
	if j.Len() != 3 {
		t.Fatalf("len = %d", j.Len())
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, err := ReadJournal(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 || got[0].Session != "a" || got[1].Session != "b" || got[2].Seq != 2 {
		t.Fatalf("entries = %+v", got)
	}
}

func TestStoreSink(t *testing.T) {
	st, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()

	a := NewLedger(nil, st.Sink("a"))
	b := NewLedger(nil, st.Sink("b"))
	for i := range 5 {
		a.RecordRound(10, float64(i))
	}
	b.RecordRound(2, 0)

	ctx := context.Background()
	rs, err := st.Rounds(ctx, "a", 3)
	if err != nil {
		t.Fatalf("rounds: %v", err)
	}
	if len(rs) != 3 || rs[0].Seq != 3 || rs[2].Seq != 5 || !rs[2].Win.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("rounds: %+v", rs)
	}
	all, err := st.Rounds(ctx, "a", 0)
	if err != nil || len(all) != 5 {
		t.Fatalf("all rounds: %d %v", len(all), err)
	}
	ss, err := st.Sessions(ctx)
	if err != nil || ss["a"] != 5 || ss["b"] != 1 {
		t.Fatalf("sessions: %v %v", ss, err)
	}
	if _, err := OpenStore("  "); !errs.HasCode(err, errs.CodeConfig) {
		t.Fatalf("empty path must be a config error, got %v", err)
	}
}

func TestTallyMerge(t *testing.T) {
	a, err := NewTally("slotstrike", 10)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	a.Record(0, 0)
	a.Record(20, 0)
	a.Finish(3, 150, 1, 2, true)

	b, _ := NewTally("slotstrike", 10)
	b.Record(5, 0)
	b.Record(70, 60)
	b.Finish(2, 120, 0, 1, false)

	m, err := MergeTally([]*Tally{a, b})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	rep := m.Done()
	if rep.Summary.Rounds != 4 || rep.Summary.Sessions != 2 || rep.Summary.TotalBet != 40 || rep.Summary.TotalWin != 95 {
		t.Fatalf("summary: %+v", rep.Summary)
	}
	if rep.Summary.NoWinRounds != 1 || rep.Summary.HitRate != 0.75 {
		t.Fatalf("hits: %+v", rep.Summary)
	}
	if rep.Run.Level != 3 || rep.Run.Kills != 270 || rep.Run.GameOvers != 1 || rep.Run.Upgrades != 3 {
		t.Fatalf("run: %+v", rep.Run)
	}
	if rep.Mult.MaxWinMult != 7 || rep.Summary.BossBonus != 60 {
		t.Fatalf("mult: %+v bonus %v", rep.Mult, rep.Summary.BossBonus)
	}

	c, _ := NewTally("other", 10)
	if _, err := MergeTally([]*Tally{a, c}); err == nil {
		t.Fatalf("different games must not merge")
	}
	if _, err := NewTally("x", 0); err == nil {
		t.Fatalf("zero bet must fail")
	}
}
