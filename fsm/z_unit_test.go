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

package fsm

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/sdk/async"
	"github.com/zintix-labs/slotstrike/sdk/modifier"
	"github.com/zintix-labs/slotstrike/sdk/payout"
	"github.com/zintix-labs/slotstrike/sdk/turn"
	"github.com/zintix-labs/slotstrike/sdk/upgrade"
)

// ---- helpers ----

type recorder struct {
	mu   sync.Mutex
	keys []Key
}

func track(m *Machine) *recorder {
	r := &recorder{}
	m.Subscribe(func(_, to Key, _ uint64) {
		r.mu.Lock()
		r.keys = append(r.keys, to)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) seq() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.keys)
}

func waitSettled(t *testing.T, m *Machine, d time.Duration) {
	t.Helper()
	select {
	case <-m.Settled():
	case <-time.After(d):
		t.Fatalf("machine not settled after %s (current=%s label=%q)", d, m.Current(), m.Label())
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func spin(t *testing.T, m *Machine) {
	t.Helper()
	if err := m.RequestSpin(); err != nil {
		t.Fatalf("request spin: %v", err)
	}
}

type fixedPresenter struct {
	nopPresenter
	win float64
	err error
}

func (p fixedPresenter) StopSpin(_ context.Context, g payout.Grid, _ float64) (Settlement, error) {
	return Settlement{Outcome: payout.Outcome{Grid: g}, TotalWin: p.win}, p.err
}

type fixedPlanner struct {
	events []turn.Event
	panics bool
}

func (p fixedPlanner) BuildPlan(o payout.Outcome, _ float64) *turn.Plan {
	if p.panics {
		panic("planner exploded")
	}
	return &turn.Plan{Spin: o, Events: p.events, Modifiers: modifier.Zero()}
}

type countingCombat struct {
	played atomic.Int32
	err    error
	dead   bool
}

func (c *countingCombat) PlayCombatEvent(context.Context, turn.Event, modifier.Modifiers) error {
	c.played.Add(1)
	return c.err
}
func (c *countingCombat) IsAllEnemiesDead() bool { return c.dead }

type bonusBoss struct{ bonus float64 }

func (b bonusBoss) ApplySpin(float64, float64) BossHit { return BossHit{Bonus: b.bonus} }

type ledger struct {
	mu      sync.Mutex
	started int
	wins    []float64
}

func (l *ledger) StartRound(float64) {
	l.mu.Lock()
	l.started++
	l.mu.Unlock()
}

func (l *ledger) FinishRound(w float64) {
	l.mu.Lock()
	l.wins = append(l.wins, w)
	l.mu.Unlock()
}

func (l *ledger) snapshot() (int, []float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started, slices.Clone(l.wins)
}

type combo struct{ wins, losses atomic.Int32 }

func (c *combo) RecordWin()  { c.wins.Add(1) }
func (c *combo) RecordLoss() { c.losses.Add(1) }

type progress struct {
	nopProgression
	mu        sync.Mutex
	offer     bool
	over      bool
	opts      []upgrade.Upgrade
	applied   []string
	completed int
	advanced  int
	paused    bool
}

func (p *progress) Advance() {
	p.mu.Lock()
	p.advanced++
	p.mu.Unlock()
}

func (p *progress) IsGameOver() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.over
}

func (p *progress) ShouldOfferChoice() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offer
}

func (p *progress) RollUpgradeOptions() []upgrade.Upgrade { return p.opts }

func (p *progress) ApplyUpgrade(u upgrade.Upgrade) error {
	p.mu.Lock()
	p.applied = append(p.applied, u.ID)
	p.mu.Unlock()
	return nil
}

func (p *progress) CompleteUpgradeChoice() {
	p.mu.Lock()
	p.offer = false
	p.completed++
	p.mu.Unlock()
}

func (p *progress) SetPaused(v bool) {
	p.mu.Lock()
	p.paused = v
	p.mu.Unlock()
}

type hud struct {
	nopHUD
	enabled  atomic.Bool
	gameOver atomic.Bool
}

func (h *hud) SetSpinEnabled(on bool) { h.enabled.Store(on) }
func (h *hud) ShowGameOver()          { h.gameOver.Store(true) }

type pickChooser struct {
	pick  int
	err   error
	calls atomic.Int32
}

func (c *pickChooser) OpenChoice(_ context.Context, opts []upgrade.Upgrade) (*upgrade.Upgrade, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &opts[c.pick], nil
}

// blockChooser 直到 ctx 取消才返回
type blockChooser struct{ got chan error }

func (c blockChooser) OpenChoice(ctx context.Context, _ []upgrade.Upgrade) (*upgrade.Upgrade, error) {
	<-ctx.Done()
	c.got <- ctx.Err()
	return nil, ctx.Err()
}

// ---- never-resolving collaborators ----

type stuck struct{ release chan struct{} }

func (s stuck) StartSpin()       {}
func (s stuck) IsSpinning() bool { return true }
func (s stuck) ReleaseSpin()     {}
func (s stuck) PayoutOrigin() (turn.Point, bool) {
	return turn.Point{X: 1, Y: 2}, true
}
func (s stuck) StopSpin(context.Context, payout.Grid, float64) (Settlement, error) {
	<-s.release
	return Settlement{}, nil
}
func (s stuck) ApplySpin(float64, float64) BossHit { return BossHit{FxDone: async.Never()} }
func (s stuck) PlayWinLines(context.Context, payout.Outcome) error {
	<-s.release
	return nil
}
func (s stuck) PlayCombatEvent(context.Context, turn.Event, modifier.Modifiers) error {
	<-s.release
	return nil
}
func (s stuck) IsAllEnemiesDead() bool { return false }

func opts3() []upgrade.Upgrade {
	return []upgrade.Upgrade{{ID: "a"}, {ID: "b"}, {ID: "c"}}
}

// ---- tests ----

func TestRoundHappyPath(t *testing.T) {
	l, cb, cm := &ledger{}, &combo{}, &countingCombat{}
	var resolved atomic.Pointer[turn.Plan]
	c := &Context{
		Presenter: fixedPresenter{win: 5},
		Planner:   fixedPlanner{events: []turn.Event{{Kind: turn.Shoot, Dmg: 1, Count: 1}, {Kind: turn.Grenade, Dmg: 2}}},
		Combat:    cm,
		Boss:      bonusBoss{bonus: 2},
		Ledger:    l,
		Combo:     cb,
	}
	c.OnResolved = func(p *turn.Plan) { resolved.Store(p) }
	m := New(c)
	rec := track(m)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	spin(t, m)
	waitSettled(t, m, time.Second)

	want := []Key{Idle, Spinning, Resolving, Combat, Advance, Idle}
	if got := rec.seq(); !slices.Equal(got, want) {
		t.Fatalf("sequence: want %v got %v", want, got)
	}
	started, wins := l.snapshot()
	if started != 1 || len(wins) != 1 || wins[0] != 7 {
		t.Fatalf("ledger: started=%d wins=%v", started, wins)
	}
	if cb.wins.Load() != 1 || cb.losses.Load() != 0 {
		t.Fatalf("combo: wins=%d losses=%d", cb.wins.Load(), cb.losses.Load())
	}
	if cm.played.Load() != 2 {
		t.Fatalf("combat events: %d", cm.played.Load())
	}
	if p := resolved.Load(); p == nil || p.FinalWin != 7 {
		t.Fatalf("resolved plan: %+v", p)
	}
	if c.Plan() != nil {
		t.Fatalf("plan must be discarded after advance")
	}
}

func TestNeverResolvingCollaboratorsStillReachIdle(t *testing.T) {
	s := stuck{release: make(chan struct{})}
	t.Cleanup(func() { close(s.release) })
	l, cb := &ledger{}, &combo{}
	to := Timeouts{StopSpin: 30 * time.Millisecond, Fx: 30 * time.Millisecond, WinLines: 30 * time.Millisecond, CombatEvent: 30 * time.Millisecond}
	events := []turn.Event{{Kind: turn.Shoot, Dmg: 1, Count: 1}, {Kind: turn.Missile, Dmg: 3}}
	c := &Context{
		Timeouts:  to,
		Presenter: s,
		Planner:   fixedPlanner{events: events},
		Combat:    s,
		Boss:      s,
		Effects:   s,
		Ledger:    l,
		Combo:     cb,
	}
	m := New(c)
	rec := track(m)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	begin := time.Now()
	spin(t, m)
	waitSettled(t, m, to.Budget(len(events))+time.Second)
	if el := time.Since(begin); el < to.Budget(len(events)) {
		t.Fatalf("every wait should run to its timeout, finished in %s", el)
	}
	if m.Current() != Idle {
		t.Fatalf("want Idle got %s", m.Current())
	}
	want := []Key{Idle, Spinning, Resolving, Combat, Advance, Idle}
	if got := rec.seq(); !slices.Equal(got, want) {
		t.Fatalf("sequence: want %v got %v", want, got)
	}
	if _, wins := l.snapshot(); len(wins) != 1 || wins[0] != 0 {
		t.Fatalf("timed out spin settles as a miss: %v", wins)
	}
	if cb.losses.Load() != 1 {
		t.Fatalf("miss must record a loss")
	}
}

type funcState struct {
	base
	enter   func(ctx context.Context, c *Context, payload any) error
	updates *atomic.Int32
}

func (f funcState) Enter(ctx context.Context, c *Context, payload any) error {
	return f.enter(ctx, c, payload)
}

func (f funcState) Update(time.Duration, *Context) {
	if f.updates != nil {
		f.updates.Add(1)
	}
}

func TestPendingLastWriteWins(t *testing.T) {
	m := New(&Context{})
	rec := track(m)
	var sawCurrent Key = -1
	var resolvingEntered atomic.Bool
	m.Register(Spinning, funcState{enter: func(_ context.Context, c *Context, _ any) error {
		sawCurrent = c.Machine.Current()
		_ = c.Machine.Change(Resolving, nil)
		return c.Machine.Change(Combat, "final")
	}})
	m.Register(Resolving, funcState{enter: func(context.Context, *Context, any) error {
		resolvingEntered.Store(true)
		return nil
	}})
	var payload any
	m.Register(Combat, funcState{enter: func(_ context.Context, _ *Context, p any) error {
		payload = p
		return nil
	}})
	_ = m.Start()
	if err := m.Change(Spinning, nil); err != nil {
		t.Fatalf("change: %v", err)
	}
	if sawCurrent != Spinning {
		t.Fatalf("current must be swapped before enter, saw %s", sawCurrent)
	}
	if resolvingEntered.Load() {
		t.Fatalf("overwritten pending transition must not run")
	}
	if payload != "final" {
		t.Fatalf("payload: %v", payload)
	}
	want := []Key{Idle, Spinning, Combat}
	if got := rec.seq(); !slices.Equal(got, want) {
		t.Fatalf("sequence: want %v got %v", want, got)
	}
	if m.Driving() {
		t.Fatalf("machine must settle")
	}
}

func TestUpdateDispatchesToEnteringState(t *testing.T) {
	m := New(&Context{})
	gate := make(chan struct{})
	var updates atomic.Int32
	m.Register(Advance, funcState{updates: &updates, enter: func(context.Context, *Context, any) error {
		<-gate
		return nil
	}})
	_ = m.Start()
	done := make(chan struct{})
	go func() {
		_ = m.Change(Advance, nil)
		close(done)
	}()
	eventually(t, "advance entered", func() bool { return m.Current() == Advance })
	m.Update(16 * time.Millisecond)
	if updates.Load() != 1 {
		t.Fatalf("update must reach the entering state, got %d", updates.Load())
	}
	close(gate)
	<-done
}

func TestRecoveryPaths(t *testing.T) {
	cases := []struct {
		name string
		ctx  *Context
		want []Key
	}{
		{
			name: "combat error goes to advance",
			ctx: &Context{
				Planner: fixedPlanner{events: []turn.Event{{Kind: turn.Shoot, Dmg: 1, Count: 1}}},
				Combat:  &countingCombat{err: errors.New("boom")},
			},
			want: []Key{Idle, Spinning, Resolving, Combat, Advance, Idle},
		},
		{
			name: "planner panic goes to idle",
			ctx:  &Context{Planner: fixedPlanner{panics: true}},
			want: []Key{Idle, Spinning, Resolving, Idle},
		},
		{
			name: "presenter error goes to idle",
			ctx:  &Context{Presenter: fixedPresenter{err: errors.New("reel jammed")}},
			want: []Key{Idle, Spinning, Idle},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := New(tc.ctx)
			rec := track(m)
			_ = m.Start()
			spin(t, m)
			waitSettled(t, m, time.Second)
			if got := rec.seq(); !slices.Equal(got, tc.want) {
				t.Fatalf("sequence: want %v got %v", tc.want, got)
			}
		})
	}
}

func TestCombatStopsWhenFieldCleared(t *testing.T) {
	cm := &countingCombat{dead: true}
	m := New(&Context{
		Planner: fixedPlanner{events: []turn.Event{{Kind: turn.Shoot}, {Kind: turn.Grenade}, {Kind: turn.Missile}}},
		Combat:  cm,
	})
	_ = m.Start()
	spin(t, m)
	waitSettled(t, m, time.Second)
	if cm.played.Load() != 1 {
		t.Fatalf("want 1 event played got %d", cm.played.Load())
	}
}

func TestChoiceAppliesSelection(t *testing.T) {
	p := &progress{offer: true, opts: opts3()}
	ch := &pickChooser{pick: 1}
	m := New(&Context{Progress: p, Chooser: ch})
	rec := track(m)
	_ = m.Start()
	spin(t, m)
	waitSettled(t, m, time.Second)
	want := []Key{Idle, Spinning, Resolving, Combat, Advance, Choice, Idle}
	if got := rec.seq(); !slices.Equal(got, want) {
		t.Fatalf("sequence: want %v got %v", want, got)
	}
	if !slices.Equal(p.applied, []string{"b"}) || p.completed != 1 {
		t.Fatalf("applied=%v completed=%d", p.applied, p.completed)
	}
}

func TestChoiceWithoutOptionsSkipsChooser(t *testing.T) {
	p := &progress{offer: true}
	ch := &pickChooser{}
	m := New(&Context{Progress: p, Chooser: ch})
	_ = m.Start()
	spin(t, m)
	waitSettled(t, m, time.Second)
	if ch.calls.Load() != 0 {
		t.Fatalf("chooser must not open without options")
	}
	if p.completed != 1 || m.Current() != Idle {
		t.Fatalf("completed=%d current=%s", p.completed, m.Current())
	}
}

func TestChoiceErrorCompletesAndRecovers(t *testing.T) {
	p := &progress{offer: true, opts: opts3()}
	m := New(&Context{Progress: p, Chooser: &pickChooser{err: errors.New("closed")}})
	_ = m.Start()
	spin(t, m)
	waitSettled(t, m, time.Second)
	if p.completed != 1 || len(p.applied) != 0 || m.Current() != Idle {
		t.Fatalf("completed=%d applied=%v current=%s", p.completed, p.applied, m.Current())
	}
}

func TestGameOverIsTerminal(t *testing.T) {
	p := &progress{over: true}
	h := &hud{}
	var called atomic.Bool
	m := New(&Context{Progress: p, HUD: h, OnGameOver: func() { called.Store(true) }})
	_ = m.Start()
	if !h.enabled.Load() {
		t.Fatalf("idle must enable spin")
	}
	spin(t, m)
	waitSettled(t, m, time.Second)
	if m.Current() != GameOver || !called.Load() || !h.gameOver.Load() || h.enabled.Load() || !p.paused {
		t.Fatalf("current=%s called=%v shown=%v enabled=%v paused=%v", m.Current(), called.Load(), h.gameOver.Load(), h.enabled.Load(), p.paused)
	}
	if err := m.RequestSpin(); !errs.HasCode(err, errs.CodeBusy) {
		t.Fatalf("want busy got %v", err)
	}
}

func TestForceCancelsBlockedChoice(t *testing.T) {
	p := &progress{offer: true, opts: opts3()}
	ch := blockChooser{got: make(chan error, 1)}
	m := New(&Context{Progress: p, Chooser: ch})
	_ = m.Start()
	spin(t, m)
	eventually(t, "choice open", func() bool { return m.Label() == "openChoice" })

	if err := m.RequestSpin(); !errs.HasCode(err, errs.CodeBusy) {
		t.Fatalf("spin during choice must be busy, got %v", err)
	}
	if err := m.Force(Idle); err != nil {
		t.Fatalf("force: %v", err)
	}
	waitSettled(t, m, time.Second)
	if m.Current() != Idle {
		t.Fatalf("want Idle got %s", m.Current())
	}
	if err := <-ch.got; !errors.Is(err, context.Canceled) {
		t.Fatalf("chooser ctx: %v", err)
	}
	if p.completed != 1 {
		t.Fatalf("choice must be completed on cancel, got %d", p.completed)
	}
}

func TestRequestSpinBeforeStart(t *testing.T) {
	m := New(&Context{})
	if err := m.RequestSpin(); !errs.HasCode(err, errs.CodeBusy) {
		t.Fatalf("want busy got %v", err)
	}
}

func TestNullCollaborators(t *testing.T) {
	c := &Context{}
	m := New(c)
	_ = m.Start()
	spin(t, m)
	waitSettled(t, m, time.Second)
	if m.Current() != Idle || c.LastSpin() == nil {
		t.Fatalf("current=%s last=%v", m.Current(), c.LastSpin())
	}
}

func TestParseKey(t *testing.T) {
	for k := Idle; k <= GameOver; k++ {
		got, err := ParseKey(k.String())
		if err != nil || got != k {
			t.Fatalf("%s: %v %v", k, got, err)
		}
	}
	if _, err := ParseKey("Nope"); !errs.HasCode(err, errs.CodeNotFound) {
		t.Fatalf("want not found got %v", err)
	}
}

// advance 已決定 GameOver 時才收到 Force
type lateForceAdvance struct{ base }

func (lateForceAdvance) Enter(_ context.Context, c *Context, _ any) error {
	if err := c.Machine.Change(GameOver, nil); err != nil {
		return err
	}
	return c.Machine.Force(Idle)
}

func TestForceKeepsPendingGameOver(t *testing.T) {
	m := New(&Context{})
	m.Register(Advance, lateForceAdvance{})
	rec := track(m)
	_ = m.Start()
	spin(t, m)
	waitSettled(t, m, time.Second)
	if m.Current() != GameOver {
		t.Fatalf("want GameOver got %s (seq %v)", m.Current(), rec.seq())
	}
	if seq := rec.seq(); seq[len(seq)-1] != GameOver || slices.Contains(seq[1:], Idle) {
		t.Fatalf("force must not leave the GameOver path: %v", seq)
	}
}
