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
	"time"

	"github.com/google/uuid"
	"github.com/zintix-labs/slotstrike/dto"
	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/fsm"
	"github.com/zintix-labs/slotstrike/recorder"
	"github.com/zintix-labs/slotstrike/sdk/bank"
	"github.com/zintix-labs/slotstrike/sdk/combo"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/field"
	"github.com/zintix-labs/slotstrike/sdk/jackpot"
	"github.com/zintix-labs/slotstrike/sdk/level"
	"github.com/zintix-labs/slotstrike/sdk/modifier"
	"github.com/zintix-labs/slotstrike/sdk/turn"
	"github.com/zintix-labs/slotstrike/sdk/upgrade"
	"github.com/zintix-labs/slotstrike/spec"
	"github.com/zintix-labs/slotstrike/watchdog"
)

// SessionOption 建立 session 時的選項
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	id      string
	auto    bool
	log     *slog.Logger
	sinks   []recorder.Sink
	chooser fsm.UpgradeChooser
	effects fsm.Effects
}

// WithID 指定 session id；預設為 uuid
func WithID(id string) SessionOption { return func(c *sessionConfig) { c.id = id } }

// WithAutoChoice 升級選單自動隨機挑選（模擬器用）
func WithAutoChoice() SessionOption { return func(c *sessionConfig) { c.auto = true } }

// WithLogger session 的 log；會再包一層 watchdog
func WithLogger(l *slog.Logger) SessionOption { return func(c *sessionConfig) { c.log = l } }

// WithSinks 完成的回合寫入 sinks（journal / sqlite）
func WithSinks(s ...recorder.Sink) SessionOption {
	return func(c *sessionConfig) { c.sinks = append(c.sinks, s...) }
}

// WithChooser 以外部實作（例如終端機選單）取代內建的等待 Choose
func WithChooser(ch fsm.UpgradeChooser) SessionOption {
	return func(c *sessionConfig) { c.chooser = ch }
}

// WithEffects 中獎線特效（終端機用）
func WithEffects(e fsm.Effects) SessionOption { return func(c *sessionConfig) { c.effects = e } }

// Session 一局完整的遊戲：狀態機、各追蹤器、無頭展示與敵人戰場。
//
// 並發語意：
//   - Spin / Choose 以 op 鎖序列化；轉移鏈在狀態機自己的 goroutine 上執行。
//   - Tick 可以和進行中的回合並行，各子系統自行加鎖。
//   - 每個子系統各自持有一顆由 session seed 推出的 Core，同一個 seed 重現同一局。
type Session struct {
	id   string
	seed int64
	gs   *spec.GameSetting
	log  *slog.Logger

	bank    *bank.Bank
	combo   *combo.Tracker
	level   *level.Tracker
	bal     *upgrade.Balance
	ups     *upgrade.System
	boss    *jackpot.Boss
	field   *field.Field
	ledger  *recorder.Ledger
	dog     *watchdog.Watchdog
	hud     *hud
	present *presenter
	chooser *chooser
	m       *fsm.Machine

	op   sync.Mutex
	mu   sync.Mutex
	seq  int
	cur  *roundState
	last *dto.RoundResult
}

// roundState 進行中回合的暫存，由狀態機的 goroutine 寫入
type roundState struct {
	bet   float64
	plan  *turn.Plan
	hit   jackpot.Hit
	kills int
}

func newSessionID() string { return uuid.NewString() }

func newSession(gs *spec.GameSetting, cf core.PRNGFactory, seed int64, opts ...SessionOption) (*Session, error) {
	if gs == nil {
		return nil, errs.NewCode(errs.Fatal, errs.CodeMissing, "game setting required")
	}
	cfg := &sessionConfig{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.id == "" {
		cfg.id = newSessionID()
	}
	base := cfg.log
	if base == nil {
		base = slog.New(slog.DiscardHandler)
	}
	base = base.With(slog.String("session", cfg.id))

	dog, err := watchdog.New(gs.Repair, base)
	if err != nil {
		return nil, err
	}
	log := slog.New(dog.Wrap(base.Handler()))

	sm := newSeedMaker(seed)
	sub := func() *core.Core { return core.New(cf.New(sm.next())) }

	s := &Session{
		id:   cfg.id,
		seed: seed,
		gs:   gs,
		log:  log,
		dog:  dog,
		hud:  &hud{bet: gs.DefaultBet},
	}
	s.bank, err = bank.New(gs.Bank, gs.Evaluator(), sub())
	if err != nil {
		return nil, err
	}
	s.bal = upgrade.NewBalance(gs.Balance)
	s.ups, err = upgrade.New(gs.Upgrades, s.bal, sub(), log)
	if err != nil {
		return nil, err
	}
	s.combo = combo.New(gs.Combo)
	s.boss = jackpot.New(gs.Boss, s.bal.JackpotGain)
	s.field = field.New(gs.Field, s.bal, sub())
	s.level, err = level.New(gs.Level, s.field, sub(), log)
	if err != nil {
		return nil, err
	}
	s.ledger = recorder.NewLedger(log, cfg.sinks...)
	s.chooser = &chooser{}
	if cfg.auto {
		s.chooser.auto = sub()
	}

	s.field.OnKilled = func(field.Enemy) {
		s.level.RecordKill()
		s.mu.Lock()
		if s.cur != nil {
			s.cur.kills++
		}
		s.mu.Unlock()
	}
	s.field.OnDamage = s.combo.RecordDamage
	s.level.OnLevelChange(func(lv int) {
		s.boss.SetLevel(lv)
		s.bal.SetLevel(lv)
	})

	s.present = &presenter{
		eval:   s.bank.Evaluator(),
		scale:  func() float64 { return s.bank.PayoutScale(s.level.Level()) },
		origin: turn.Point{X: float64(gs.Field.Columns) / 2, Y: float64(gs.Field.Rows)},
	}

	var ch fsm.UpgradeChooser = s.chooser
	if cfg.chooser != nil {
		ch = cfg.chooser
	}
	fc := &fsm.Context{
		Log:       log,
		Timeouts:  gs.Timeouts,
		Presenter: s.present,
		Source:    s.bank,
		Planner:   turn.NewBuilder(turn.NewPlanner(gs.Turn), modifier.NewComposer(gs.Modifier), s.combo, s.boss),
		Combat:    s.field,
		Boss:      bossHook{boss: s.boss, onHit: s.onBossHit},
		Progress:  progression{lv: s.level, ups: s.ups},
		Chooser:   ch,
		HUD:       s.hud,
		Effects:   cfg.effects,
		Combo:     s.combo,
		Ledger:    s.ledger,
	}
	fc.OnResolved = s.onResolved
	fc.OnGameOver = func() { s.log.Info("session.game_over", slog.Int("level", s.level.Level())) }
	s.m = fsm.New(fc)
	dog.Attach(repairTarget{m: s.m, p: s.present})

	spawned := s.level.SpawnInitial()
	if err := s.m.Start(); err != nil {
		return nil, err
	}
	s.log.Debug("session.start", slog.Int64("seed", seed), slog.Int("spawned", spawned))
	return s, nil
}

func (s *Session) ID() string     { return s.id }
func (s *Session) Seed() int64    { return s.seed }
func (s *Session) State() fsm.Key { return s.m.Current() }

// Machine 狀態機（終端機前端訂閱轉移用）
func (s *Session) Machine() *fsm.Machine { return s.m }

func (s *Session) onBossHit(h jackpot.Hit) {
	s.mu.Lock()
	if s.cur != nil {
		s.cur.hit = h
	}
	s.mu.Unlock()
}

func (s *Session) onResolved(p *turn.Plan) {
	s.mu.Lock()
	if s.cur != nil {
		s.cur.plan = p
	}
	s.mu.Unlock()
}

// Spin 發起一回合，等到狀態機停下（Idle / GameOver）或升級選單開啟後回傳。
//
// bet 為 0 時沿用目前押注。狀態機不在 Idle（轉移中、等待選擇、遊戲結束）時回傳 CodeBusy。
// ctx 到期只影響等待，回合本身會在背景繼續完成。
func (s *Session) Spin(ctx context.Context, bet float64) (dto.RoundResult, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if bet == 0 {
		bet = s.hud.Bet()
	}
	if !s.gs.ValidBet(bet) {
		return dto.RoundResult{}, errs.Warnf("bet %v not in bet_units", bet)
	}
	if s.m.Current() == fsm.GameOver {
		return dto.RoundResult{}, errs.NewCode(errs.Warn, errs.CodeBusy, "game over")
	}
	s.hud.setBet(bet)

	s.mu.Lock()
	prev := s.cur
	s.cur = &roundState{bet: bet}
	s.mu.Unlock()

	opened := s.chooser.arm()
	if err := s.m.RequestSpin(); err != nil {
		s.mu.Lock()
		s.cur = prev
		s.mu.Unlock()
		return dto.RoundResult{}, err
	}
	s.mu.Lock()
	s.seq++
	s.mu.Unlock()

	select {
	case <-s.m.Settled():
	case <-opened:
	case <-ctx.Done():
		return dto.RoundResult{}, errs.WrapCode(ctx.Err(), errs.Warn, errs.CodeTimeout, "spin wait")
	}
	return s.result(), nil
}

// Choose 回答待選的升級（-1 放棄），等到狀態機停下後回傳
func (s *Session) Choose(ctx context.Context, index int) (dto.RoundResult, error) {
	s.op.Lock()
	defer s.op.Unlock()
	settled := s.m.Settled()
	if err := s.chooser.answer(index); err != nil {
		return dto.RoundResult{}, err
	}
	select {
	case <-settled:
	case <-ctx.Done():
		return dto.RoundResult{}, errs.WrapCode(ctx.Err(), errs.Warn, errs.CodeTimeout, "choice wait")
	}
	return s.result(), nil
}

// Tick 推進時間：combo 衰減、關卡時鐘與波次、狀態機 Update
func (s *Session) Tick(dt time.Duration) {
	s.combo.Update(dt)
	s.level.Update(dt)
	s.m.Update(dt)
}

func (s *Session) result() dto.RoundResult {
	rr := dto.RoundResult{
		State:    s.m.Current().String(),
		Choice:   s.chooser.pending(),
		GameOver: s.level.IsGameOver(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rr.Seq = s.seq
	if r := s.cur; r != nil {
		rr.Bet = r.bet
		rr.Kills = r.kills
		rr.BossBonus = r.hit.Bonus
		rr.BossKill = r.hit.Killed
		if p := r.plan; p != nil {
			rr.Grid = p.Spin.Grid
			rr.Wins = p.Spin.Wins
			rr.TotalWin = p.FinalWin
			rr.SpinWin = p.FinalWin - r.hit.Bonus
			rr.Modifiers = p.Modifiers
			rr.Events = p.Events
		}
	}
	s.last = &rr
	return rr
}

// View session 快照
func (s *Session) View() dto.SessionView {
	v := dto.SessionView{
		ID:       s.id,
		Game:     s.gs.GameName,
		Seed:     s.seed,
		State:    s.m.Current().String(),
		Bet:      s.hud.Bet(),
		Progress: s.level.Snapshot(),
		Combo:    s.combo.State(),
		Boss:     s.boss.State(),
		Field:    s.field.Stats(),
		Enemies:  s.field.Enemies(),
		Ledger:   s.ledger.Summary(),
		Balance:  s.bal.Report(),
		Upgrades: s.ups.Applied(),
		Choice:   s.chooser.pending(),
		Repairs:  s.dog.Repairs(),
	}
	s.mu.Lock()
	if s.last != nil {
		last := *s.last
		v.Last = &last
	}
	s.mu.Unlock()
	return v
}

// History 最近完成的回合
func (s *Session) History() []recorder.Round { return s.ledger.History() }

// Close 取消進行中的轉移並等待修復動作結束
func (s *Session) Close() {
	s.m.Close()
	s.dog.Wait()
}
