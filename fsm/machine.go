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

// Package fsm 驅動一個 spin 回合：Idle → Spinning → Resolving → Combat → Advance → (Choice) → Idle，
// 以及終止狀態 GameOver。
//
// 轉移規則：
//   - current 在 Enter 之前切換，Enter 期間的 Update 會分派到正在進入的狀態。
//   - Enter 期間呼叫 Change 只記錄為 pending（後寫覆蓋），Enter 返回後才執行。
//   - Enter 回傳錯誤或 panic 時轉入復原狀態：Combat → Advance，其餘 → Idle。
//   - Force 取消進行中的 Enter 並覆蓋 pending，watchdog 用它脫困。
package fsm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zintix-labs/slotstrike/errs"
)

// Key 狀態鍵
type Key int8

const (
	Idle Key = iota
	Spinning
	Resolving
	Combat
	Advance
	Choice
	GameOver
)

var keyNames = [...]string{"Idle", "Spinning", "Resolving", "Combat", "Advance", "Choice", "GameOver"}

func (k Key) String() string {
	if k < 0 || int(k) >= len(keyNames) {
		return fmt.Sprintf("Key(%d)", int8(k))
	}
	return keyNames[k]
}

func (k Key) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKey 名稱 → Key
func ParseKey(s string) (Key, error) {
	for i, n := range keyNames {
		if n == s {
			return Key(i), nil
		}
	}
	return 0, errs.NewCode(errs.Warn, errs.CodeNotFound, "unknown state: "+s)
}

// State 單一狀態的行為
type State interface {
	Enter(ctx context.Context, c *Context, payload any) error
	Update(dt time.Duration, c *Context)
	Exit(c *Context)
}

// recovery Enter 失敗時的去處；Idle/GameOver 沒有復原狀態
func recovery(k Key) (Key, bool) {
	switch k {
	case Combat:
		return Advance, true
	case Spinning, Resolving, Advance, Choice:
		return Idle, true
	}
	return 0, false
}

type transition struct {
	key     Key
	payload any
}

// Listener 轉移通知，在 Enter 之前呼叫
type Listener func(from, to Key, epoch uint64)

// Machine 狀態機。Change 在呼叫者 goroutine 上驅動整條轉移鏈直到沒有 pending。
type Machine struct {
	mu      sync.Mutex
	ctx     *Context
	log     *slog.Logger
	states  map[Key]State
	current Key
	started bool
	epoch   uint64
	driving bool
	pending *transition
	forced  *transition
	cancel  context.CancelFunc
	label   string
	settled chan struct{}

	base     context.Context
	stop     context.CancelFunc
	listener []Listener
}

func newMachine(c *Context) *Machine {
	base, stop := context.WithCancel(context.Background())
	settled := make(chan struct{})
	close(settled)
	return &Machine{
		ctx:     c,
		log:     c.Log,
		states:  make(map[Key]State, len(keyNames)),
		settled: settled,
		base:    base,
		stop:    stop,
	}
}

// Register 註冊或覆蓋狀態
func (m *Machine) Register(k Key, s State) {
	m.mu.Lock()
	m.states[k] = s
	m.mu.Unlock()
}

// Subscribe 註冊轉移通知
func (m *Machine) Subscribe(l Listener) {
	m.mu.Lock()
	m.listener = append(m.listener, l)
	m.mu.Unlock()
}

// Current 目前狀態
func (m *Machine) Current() Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Epoch 每次轉移 +1，狀態在 await 之後比對以丟棄過期結果
func (m *Machine) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// Driving 是否有轉移鏈正在執行
func (m *Machine) Driving() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.driving
}

// Label 目前等待中的協作者名稱
func (m *Machine) Label() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.label
}

func (m *Machine) setLabel(l string) {
	m.mu.Lock()
	m.label = l
	m.mu.Unlock()
}

// Settled 轉移鏈結束時關閉
func (m *Machine) Settled() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settled
}

// Start 進入 Idle
func (m *Machine) Start() error {
	return m.Change(Idle, nil)
}

// Close 取消所有進行中的 Enter，之後的轉移仍可執行但 ctx 已取消
func (m *Machine) Close() {
	m.stop()
}

// Change 請求轉移。驅動中則記為 pending（後寫覆蓋）並立即返回。
func (m *Machine) Change(k Key, payload any) error {
	m.mu.Lock()
	if _, ok := m.states[k]; !ok {
		m.mu.Unlock()
		return errs.NewCode(errs.Fatal, errs.CodeMissing, "state not registered: "+k.String())
	}
	if m.driving {
		m.pending = &transition{key: k, payload: payload}
		m.mu.Unlock()
		return nil
	}
	m.beginLocked()
	m.mu.Unlock()
	m.drive(transition{key: k, payload: payload})
	return nil
}

// RequestSpin 只有在 Idle 且沒有轉移進行中才接受；轉移鏈在新的 goroutine 上執行。
func (m *Machine) RequestSpin() error {
	m.mu.Lock()
	if m.driving || !m.started || m.current != Idle {
		cur := m.current
		m.mu.Unlock()
		return errs.NewCode(errs.Warn, errs.CodeBusy, "machine busy in "+cur.String())
	}
	m.beginLocked()
	m.mu.Unlock()
	go m.drive(transition{key: Spinning})
	return nil
}

// Force 取消進行中的 Enter 並轉到 k，覆蓋 pending（GameOver 除外）
func (m *Machine) Force(k Key) error {
	m.mu.Lock()
	if _, ok := m.states[k]; !ok {
		m.mu.Unlock()
		return errs.NewCode(errs.Fatal, errs.CodeMissing, "state not registered: "+k.String())
	}
	if !m.driving {
		m.mu.Unlock()
		m.log.Warn("fsm.force", "to", k.String())
		return m.Change(k, nil)
	}
	m.forced = &transition{key: k}
	cancel := m.cancel
	m.mu.Unlock()
	m.log.Warn("fsm.force", "to", k.String(), "cancel", cancel != nil)
	if cancel != nil {
		cancel()
	}
	return nil
}

// Update 分派到目前狀態（包含 Enter 進行中的狀態）
func (m *Machine) Update(dt time.Duration) {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	s := m.states[m.current]
	m.mu.Unlock()
	s.Update(dt, m.ctx)
}

func (m *Machine) beginLocked() {
	m.driving = true
	m.settled = make(chan struct{})
}

func (m *Machine) drive(t transition) {
	for {
		m.mu.Lock()
		prev, hadPrev := m.current, m.started
		prevState := m.states[prev]
		m.mu.Unlock()
		if hadPrev {
			m.safeExit(prev, prevState)
		}

		m.mu.Lock()
		m.current = t.key
		m.started = true
		m.epoch++
		ep := m.epoch
		m.label = ""
		ectx, cancel := context.WithCancel(m.base)
		m.cancel = cancel
		next := m.states[t.key]
		ls := append([]Listener(nil), m.listener...)
		m.mu.Unlock()

		m.log.Debug("fsm.change", "from", prev.String(), "to", t.key.String(), "epoch", ep)
		for _, l := range ls {
			l(prev, t.key, ep)
		}
		err := m.safeEnter(ectx, next, t)
		cancel()

		m.mu.Lock()
		m.cancel = nil
		switch {
		case m.forced != nil && (t.key == GameOver || m.pending != nil && m.pending.key == GameOver):
			// GameOver 是終點，不被 Force 蓋掉
			m.log.Warn("fsm.force_dropped", "to", m.forced.key.String(), "keep", GameOver.String())
			m.forced = nil
		case m.forced != nil:
			m.pending = m.forced
			m.forced = nil
		case err != nil:
			if rk, ok := recovery(t.key); ok {
				m.log.Error("fsm.enter_failed", "state", t.key.String(), "recover", rk.String(), "err", err)
				m.pending = &transition{key: rk}
			} else {
				m.log.Error("fsm.enter_failed", "state", t.key.String(), "err", err)
			}
		}
		if m.pending == nil {
			m.driving = false
			m.label = ""
			close(m.settled)
			m.mu.Unlock()
			return
		}
		t = *m.pending
		m.pending = nil
		m.mu.Unlock()
	}
}

func (m *Machine) safeEnter(ctx context.Context, s State, t transition) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.NewCode(errs.Warn, errs.CodeState, fmt.Sprintf("%s enter panic: %v", t.key, r))
		}
	}()
	if err = s.Enter(ctx, m.ctx, t.payload); err != nil {
		err = errs.WrapCode(err, errs.Warn, errs.CodeState, t.key.String()+" enter failed")
	}
	return err
}

func (m *Machine) safeExit(k Key, s State) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("fsm.exit_panic", "state", k.String(), "panic", fmt.Sprint(r))
		}
	}()
	s.Exit(m.ctx)
}
