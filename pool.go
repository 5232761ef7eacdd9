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
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/slotstrike/errs"
)

// SessionPool 管理後端所有進行中的 session。
//
// 與機台池不同，session 帶有狀態不能共用，因此以 id 索引：
//  1. sessions：健康的 session，Do 借出執行並記錄最後使用時間。
//  2. 若 session 在操作中 panic 或回傳 Fatal，視為狀態不可信：關閉並從池中移除，由玩家重新建立。
//
// ttl > 0 時由 janitor 定期回收閒置的 session。
type SessionPool struct {
	mu       sync.Mutex
	sessions map[string]*pooled
	limit    int
	ttl      time.Duration
	build    func(seed *int64) (*Session, error)
	now      func() time.Time

	done        chan struct{} // 關閉訊號：關閉後不再允許建立/借出
	closeOnce   sync.Once
	closeReason atomic.Value // string
	janitor     sync.WaitGroup

	created  atomic.Int32 // 建立次數
	inflight atomic.Int32 // 操作中
	expired  atomic.Int32 // 閒置回收
	evicted  atomic.Int32 // panic / fatal 淘汰
	panics   atomic.Int32 // panic 次數
	fatals   atomic.Int32 // fatal 次數
	rejected atomic.Int32 // 池滿拒絕
}

type pooled struct {
	s    *Session
	used atomic.Int64 // unix nano
	busy atomic.Int32
}

func newSessionPool(limit int, ttl time.Duration, build func(seed *int64) (*Session, error)) *SessionPool {
	p := &SessionPool{
		sessions: make(map[string]*pooled),
		limit:    max(1, limit),
		ttl:      ttl,
		build:    build,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	p.closeReason.Store("")
	if ttl > 0 {
		p.janitor.Add(1)
		go p.sweepLoop(max(ttl/4, time.Second))
	}
	return p
}

// Create 建立新 session；seed 為 nil 時隨機
func (p *SessionPool) Create(seed *int64) (*Session, error) {
	if p.Closed() {
		return nil, errs.NewFatal("session pool closed: " + p.ClosedReason())
	}
	p.mu.Lock()
	full := len(p.sessions) >= p.limit
	p.mu.Unlock()
	if full {
		p.rejected.Add(1)
		return nil, errs.NewCode(errs.Warn, errs.CodeBusy, fmt.Sprintf("session pool full (%d)", p.limit))
	}

	s, err := p.build(seed)
	if err != nil {
		return nil, err
	}
	e := &pooled{s: s}
	e.used.Store(p.now().UnixNano())

	p.mu.Lock()
	if len(p.sessions) >= p.limit {
		p.mu.Unlock()
		s.Close()
		p.rejected.Add(1)
		return nil, errs.NewCode(errs.Warn, errs.CodeBusy, fmt.Sprintf("session pool full (%d)", p.limit))
	}
	p.sessions[s.ID()] = e
	p.mu.Unlock()
	p.created.Add(1)
	return s, nil
}

func (p *SessionPool) lookup(id string) (*pooled, error) {
	p.mu.Lock()
	e, ok := p.sessions[id]
	p.mu.Unlock()
	if !ok {
		return nil, errs.NewCode(errs.Warn, errs.CodeNotFound, "session not found: "+id)
	}
	return e, nil
}

// Get 取得 session（不更新使用時間）
func (p *SessionPool) Get(id string) (*Session, error) {
	e, err := p.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.s, nil
}

// Do 對指定 session 執行 fn。
//
// panic 一律視為 broken；一般的 request / busy 類錯誤不淘汰 session，只有 Fatal 才淘汰。
func (p *SessionPool) Do(ctx context.Context, id string, fn func(*Session) error) (err error) {
	select {
	case <-p.done:
		return errs.NewFatal("session pool closed: " + p.ClosedReason())
	case <-ctx.Done():
		return errs.NewWarn("session canceled/timeout: " + ctx.Err().Error())
	default:
	}
	e, err := p.lookup(id)
	if err != nil {
		return err
	}
	p.inflight.Add(1)
	e.busy.Add(1)
	e.used.Store(p.now().UnixNano())

	defer func() {
		p.inflight.Add(-1)
		e.busy.Add(-1)
		e.used.Store(p.now().UnixNano())
		isPanic := false
		if r := recover(); r != nil {
			isPanic = true
			p.panics.Add(1)
			err = errs.NewFatal(fmt.Sprintf("session %s panic : %v", id, r))
		}
		if !isPanic && !isFatalErr(err) {
			return
		}
		if !isPanic {
			p.fatals.Add(1)
		}
		if p.remove(id, e) {
			p.evicted.Add(1)
		}
	}()
	return fn(e.s)
}

// isFatalErr 錯誤本身明確宣告 Fatal 才代表 session 狀態不可信
func isFatalErr(err error) bool {
	if e, ok := errs.AsErr(err); ok {
		return e.ErrLv == errs.Fatal
	}
	return false
}

// Remove 關閉並移除 session
func (p *SessionPool) Remove(id string) bool {
	p.mu.Lock()
	e, ok := p.sessions[id]
	p.mu.Unlock()
	if !ok {
		return false
	}
	return p.remove(id, e)
}

func (p *SessionPool) remove(id string, e *pooled) bool {
	p.mu.Lock()
	cur, ok := p.sessions[id]
	if ok && cur == e {
		delete(p.sessions, id)
	}
	p.mu.Unlock()
	if !ok || cur != e {
		return false
	}
	e.s.Close()
	return true
}

// Sweep 回收閒置超過 ttl 且不在操作中的 session，回傳回收數
func (p *SessionPool) Sweep() int {
	if p.ttl <= 0 {
		return 0
	}
	cut := p.now().Add(-p.ttl).UnixNano()
	var stale []string
	p.mu.Lock()
	for id, e := range p.sessions {
		if e.busy.Load() == 0 && e.used.Load() < cut {
			stale = append(stale, id)
		}
	}
	p.mu.Unlock()
	n := 0
	for _, id := range stale {
		if p.Remove(id) {
			n++
		}
	}
	p.expired.Add(int32(n))
	return n
}

func (p *SessionPool) sweepLoop(every time.Duration) {
	defer p.janitor.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-t.C:
			p.Sweep()
		}
	}
}

// IDs 目前的 session id（無固定順序）
func (p *SessionPool) IDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		out = append(out, id)
	}
	return out
}

func (p *SessionPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Close 進入關閉狀態並關閉所有 session。可重複呼叫。
func (p *SessionPool) Close() {
	p.closeWithReason("closed")
}

// closeWithReason reason 只會被寫入一次
func (p *SessionPool) closeWithReason(reason string) {
	p.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		p.closeReason.Store(reason)
		close(p.done)
		p.janitor.Wait()

		p.mu.Lock()
		all := p.sessions
		p.sessions = make(map[string]*pooled)
		p.mu.Unlock()
		for _, e := range all {
			e.s.Close()
		}
	})
}

func (p *SessionPool) Closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *SessionPool) ClosedReason() string {
	if v := p.closeReason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// PoolMetrics 拉取式觀測快照，不綁任何 metrics SDK，由上層決定如何輸出
type PoolMetrics struct {
	Limit       int    `json:"limit"`    // 同時存在的 session 上限
	Sessions    int    `json:"sessions"` // 目前數量
	Inflight    int    `json:"inflight"` // 操作中
	Created     int    `json:"created"`
	Expired     int    `json:"expired"` // 閒置回收
	Evicted     int    `json:"evicted"` // panic / fatal 淘汰
	Panics      int    `json:"panics"`
	Fatals      int    `json:"fatals"`
	Rejected    int    `json:"rejected"` // 池滿拒絕
	Closed      bool   `json:"closed"`
	CloseReason string `json:"close_reason"`
}

func (p *SessionPool) Metrics() PoolMetrics {
	return PoolMetrics{
		Limit:       p.limit,
		Sessions:    p.Len(),
		Inflight:    int(p.inflight.Load()),
		Created:     int(p.created.Load()),
		Expired:     int(p.expired.Load()),
		Evicted:     int(p.evicted.Load()),
		Panics:      int(p.panics.Load()),
		Fatals:      int(p.fatals.Load()),
		Rejected:    int(p.rejected.Load()),
		Closed:      p.Closed(),
		CloseReason: p.ClosedReason(),
	}
}
