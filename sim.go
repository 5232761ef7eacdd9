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

package slotstrike

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/recorder"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/spec"
	"github.com/zintix-labs/slotstrike/stats"
)

// SimTick 模擬器每回合推進的遊戲時間（combo 衰減、時間波次）
const SimTick = time.Second

// Simulator 平行跑多個 session（自動選擇升級），合併成機台報表與 session 分佈報表
type Simulator struct {
	GameName  string
	gs        *spec.GameSetting
	cf        core.PRNGFactory
	initSeed  int64
	seedmaker *seedMaker
	tick      time.Duration
	journal   *recorder.Journal
}

func newSimulator(gs *spec.GameSetting, cf core.PRNGFactory, seed int64) *Simulator {
	return &Simulator{
		GameName:  gs.GameName,
		gs:        gs,
		cf:        cf,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
		tick:      SimTick,
	}
}

func (s *Simulator) Seed() int64 { return s.initSeed }

// Record 每局的回合另外寫入 j，session 以 "sim-<seed>" 標記；nil 關閉
func (s *Simulator) Record(j *recorder.Journal) *Simulator {
	s.journal = j
	return s
}

// SimResult 一次模擬的產出
type SimResult struct {
	Report   *stats.StatReport        `json:"report"`
	Sessions *stats.EstimatorSessions `json:"sessions"`
	Used     time.Duration            `json:"used"`
}

// Sim 跑 sessions 局，每局最多 rounds 回合（遊戲結束提早停），workers 個 goroutine 並行。
//
// 每局的 seed 在開始前依序產生，因此結果與 workers 數量無關。bet 為 0 時使用 default_bet。
func (s *Simulator) Sim(ctx context.Context, sessions, rounds, workers int, bet float64, showpb bool) (*SimResult, error) {
	if sessions < 1 || rounds < 1 || workers < 1 {
		return nil, errs.NewWarn("sessions, rounds and workers must > 0")
	}
	if bet == 0 {
		bet = s.gs.DefaultBet
	}
	if !s.gs.ValidBet(bet) {
		return nil, errs.Warnf("bet %v not in bet_units", bet)
	}

	seeds := make([]int64, sessions)
	for i := range seeds {
		seeds[i] = s.seedmaker.next()
	}
	tallies := make([]*recorder.Tally, sessions)
	for i := range tallies {
		t, err := recorder.NewTally(s.GameName, bet)
		if err != nil {
			return nil, err
		}
		tallies[i] = t
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// 作一個緩衝 channel 讓 session 依序處理
	jobs := make(chan int, min(sessions, 2048))
	bar := pb.StartNew(sessions)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	wg := new(sync.WaitGroup)
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := s.run(ctx, seeds[i], rounds, bet, tallies[i]); err != nil {
					cancel(err)
				}
				bar.Increment()
			}
		}()
	}
	for i := range sessions {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	if err := context.Cause(ctx); err != nil {
		return nil, errs.Wrap(err, "simulation aborted")
	}

	merged, err := recorder.MergeTally(tallies)
	if err != nil {
		return nil, err
	}
	per := make([]*stats.StatReport, len(tallies))
	for i, t := range tallies {
		per[i] = t.Done()
	}
	return &SimResult{
		Report:   merged.Done(),
		Sessions: stats.EstimateSessions(per),
		Used:     used,
	}, nil
}

// run 一局：spin 直到 rounds 用完或遊戲結束
func (s *Simulator) run(ctx context.Context, seed int64, rounds int, bet float64, t *recorder.Tally) error {
	opts := []SessionOption{WithAutoChoice()}
	if s.journal != nil {
		id := "sim-" + strconv.FormatInt(seed, 10)
		opts = append(opts, WithID(id), WithSinks(s.journal.Sink(id)))
	}
	sess, err := newSession(s.gs, s.cf, seed, opts...)
	if err != nil {
		return err
	}
	defer sess.Close()

	kills := 0
	for range rounds {
		rr, err := sess.Spin(ctx, bet)
		if err != nil {
			if errs.HasCode(err, errs.CodeBusy) && sess.level.IsGameOver() {
				break
			}
			return err
		}
		t.Record(rr.TotalWin, rr.BossBonus)
		kills += rr.Kills
		if rr.GameOver {
			break
		}
		sess.Tick(s.tick)
	}
	t.Finish(sess.level.Level(), kills, sess.boss.State().Kills, len(sess.ups.Applied()), sess.level.IsGameOver())
	return nil
}
