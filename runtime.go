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
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/slotstrike/dto"
	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/recorder"
	"github.com/zintix-labs/slotstrike/sdk/payout"
	"github.com/zintix-labs/slotstrike/spec"
)

// RuntimeConfig 後端 runtime 的行為設定
type RuntimeConfig struct {
	Sessions int             // 同時存在的 session 上限
	TTL      time.Duration   // 閒置回收；0 代表不回收
	Store    *recorder.Store // 回合歷史；nil 代表只保留記憶體內最近回合
	Journal  *recorder.Journal
}

// Runtime 後端服務的入口：以 session id 操作遊戲，並提供模擬與除錯抽盤
type Runtime struct {
	lab     *Slotstrike
	pool    *SessionPool
	store   *recorder.Store
	journal *recorder.Journal
	log     *slog.Logger

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	spins atomic.Int64
	sims  atomic.Int64
}

func newRuntime(lab *Slotstrike, cfg RuntimeConfig) (*Runtime, error) {
	if cfg.Sessions <= 0 {
		return nil, errs.Configf("runtime: sessions must be > 0, got %d", cfg.Sessions)
	}
	rt := &Runtime{
		lab:     lab,
		store:   cfg.Store,
		journal: cfg.Journal,
		log:     lab.log.With(slog.String("component", "runtime")),
		done:    make(chan struct{}),
	}
	rt.reason.Store("")
	rt.pool = newSessionPool(cfg.Sessions, cfg.TTL, rt.build)
	return rt, nil
}

func (rt *Runtime) build(seed *int64) (*Session, error) {
	var opts []SessionOption
	if rt.store != nil || rt.journal != nil {
		// id 先定，sink 才能綁定同一個 session
		id := newSessionID()
		opts = append(opts, WithID(id))
		if rt.store != nil {
			opts = append(opts, WithSinks(rt.store.Sink(id)))
		}
		if rt.journal != nil {
			opts = append(opts, WithSinks(rt.journal.Sink(id)))
		}
	}
	if seed == nil {
		return rt.lab.NewSession(opts...)
	}
	return rt.lab.NewSessionWithSeed(*seed, opts...)
}

func (rt *Runtime) check(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errs.NewWarn("request canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		rt.closed.Store(true)
		return errs.NewFatal("slot runtime closed: " + rt.ClosedReason())
	default:
		return nil
	}
}

// CreateSession 開新局；Bet 非 0 時同時設定初始押注
func (rt *Runtime) CreateSession(ctx context.Context, req *dto.SessionRequest) (dto.SessionView, error) {
	if err := rt.check(ctx); err != nil {
		return dto.SessionView{}, err
	}
	if req.Bet != 0 && !rt.lab.gs.ValidBet(req.Bet) {
		return dto.SessionView{}, errs.Warnf("bet %v not in bet_units", req.Bet)
	}
	s, err := rt.pool.Create(req.Seed)
	if err != nil {
		return dto.SessionView{}, err
	}
	if req.Bet != 0 {
		s.hud.setBet(req.Bet)
	}
	rt.log.Info("session.created", slog.String("id", s.ID()), slog.Int64("seed", s.Seed()))
	return s.View(), nil
}

// Session 快照
func (rt *Runtime) Session(ctx context.Context, id string) (dto.SessionView, error) {
	var v dto.SessionView
	err := rt.do(ctx, id, func(s *Session) error {
		v = s.View()
		return nil
	})
	return v, err
}

func (rt *Runtime) Spin(ctx context.Context, id string, req *dto.SpinRequest) (dto.RoundResult, error) {
	var rr dto.RoundResult
	err := rt.do(ctx, id, func(s *Session) error {
		var err error
		rr, err = s.Spin(ctx, req.Bet)
		return err
	})
	if err == nil {
		rt.spins.Add(1)
	}
	return rr, err
}

func (rt *Runtime) Choose(ctx context.Context, id string, req *dto.ChoiceRequest) (dto.RoundResult, error) {
	var rr dto.RoundResult
	err := rt.do(ctx, id, func(s *Session) error {
		var err error
		rr, err = s.Choose(ctx, req.Index)
		return err
	})
	return rr, err
}

// History 最近 limit 回合；有 store 時從 sqlite 讀（session 關閉後仍可查）
func (rt *Runtime) History(ctx context.Context, id string, limit int) ([]recorder.Round, error) {
	if err := rt.check(ctx); err != nil {
		return nil, err
	}
	if rt.store != nil {
		return rt.store.Rounds(ctx, id, limit)
	}
	s, err := rt.pool.Get(id)
	if err != nil {
		return nil, err
	}
	h := s.History()
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	return h, nil
}

// DeleteSession 關閉並移除
func (rt *Runtime) DeleteSession(id string) error {
	if !rt.pool.Remove(id) {
		return errs.NewCode(errs.Warn, errs.CodeNotFound, "session not found: "+id)
	}
	rt.log.Info("session.deleted", slog.String("id", id))
	return nil
}

// Simulate 以請求參數跑一次模擬；Seed 為 nil 時隨機
func (rt *Runtime) Simulate(ctx context.Context, req *dto.SimRequest) (*SimResult, error) {
	return rt.simulate(ctx, rt.lab, req)
}

// SimulateSetting 以另一份設定跑模擬（調校用），不影響 runtime 的 session
func (rt *Runtime) SimulateSetting(ctx context.Context, gs *spec.GameSetting, req *dto.SimRequest) (*SimResult, error) {
	lab, err := New(rt.lab.cf, gs, rt.lab.log)
	if err != nil {
		return nil, err
	}
	return rt.simulate(ctx, lab, req)
}

func (rt *Runtime) simulate(ctx context.Context, lab *Slotstrike, req *dto.SimRequest) (*SimResult, error) {
	if err := rt.check(ctx); err != nil {
		return nil, err
	}
	sim := lab.NewSimulator()
	if req.Seed != nil {
		sim = lab.NewSimulatorWithSeed(*req.Seed)
	}
	res, err := sim.Sim(ctx, req.Sessions, req.Rounds, req.Workers, req.Bet, false)
	if err != nil {
		return nil, err
	}
	rt.sims.Add(1)
	rt.log.Info("sim.done",
		slog.String("game", sim.GameName),
		slog.Int64("seed", sim.Seed()),
		slog.Int("sessions", req.Sessions),
		slog.Float64("rtp", res.Report.Rtp()),
		slog.Duration("used", res.Used),
	)
	return res, nil
}

// Setting runtime 使用中的設定
func (rt *Runtime) Setting() *spec.GameSetting { return rt.lab.gs }

// Draw 除錯抽盤
func (rt *Runtime) Draw(ctx context.Context, tier string) (payout.Outcome, error) {
	if err := rt.check(ctx); err != nil {
		return payout.Outcome{}, err
	}
	_, o, err := rt.lab.Draw(tier)
	return o, err
}

func (rt *Runtime) do(ctx context.Context, id string, fn func(*Session) error) error {
	if err := rt.check(ctx); err != nil {
		return err
	}
	return rt.pool.Do(ctx, id, fn)
}

// RuntimeMetrics 拉取式觀測快照
type RuntimeMetrics struct {
	Game   string      `json:"game"`
	Spins  int64       `json:"spins"`
	Sims   int64       `json:"sims"`
	Pool   PoolMetrics `json:"pool"`
	Closed bool        `json:"closed"`
}

func (rt *Runtime) Metrics() RuntimeMetrics {
	return RuntimeMetrics{
		Game:   rt.lab.gs.GameName,
		Spins:  rt.spins.Load(),
		Sims:   rt.sims.Load(),
		Pool:   rt.pool.Metrics(),
		Closed: rt.Closed(),
	}
}

func (rt *Runtime) Pool() *SessionPool { return rt.pool }

// Close transitions the runtime into a closed state. It is safe to call multiple times.
func (rt *Runtime) Close() {
	rt.closeWithReason("closed")
}

// closeWithReason closes the runtime and records the reason (written once).
func (rt *Runtime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)
		rt.pool.closeWithReason(reason)
	})
}

// Closed reports whether the runtime has been closed.
func (rt *Runtime) Closed() bool {
	return rt.closed.Load()
}

func (rt *Runtime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
