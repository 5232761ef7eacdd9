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

// Package watchdog 依 log 內容自動修復卡住的回合。
//
// Handler 包裝任意 slog.Handler：照常轉送每筆 record，並把 Warn 以上的訊息
// （msg + key=value）交給規則比對；命中且不在冷卻中就在獨立 goroutine 執行修復動作。
package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/fsm"
)

// Action 修復動作
type Action uint8

const (
	ReleaseSpin Action = iota // 解除展示層 spin 鎖
	ForceIdle                 // 強制狀態機回 Idle
)

var actionNames = map[Action]string{
	ReleaseSpin: "release_spin",
	ForceIdle:   "force_idle",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Action) UnmarshalText(b []byte) error {
	for k, v := range actionNames {
		if v == string(b) {
			*a = k
			return nil
		}
	}
	return errs.Configf("unknown repair action: %s", b)
}

// Rule 比對 pattern，命中後執行 Action，同一規則在 Cooldown 內只觸發一次
type Rule struct {
	Name     string        `yaml:"name" json:"name"`
	Pattern  string        `yaml:"pattern" json:"pattern"`
	Action   Action        `yaml:"action" json:"action"`
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`
}

const DefaultCooldown = 5 * time.Second

func DefaultRules() []Rule {
	return []Rule{
		{Name: "stop_spin_timeout", Pattern: `async\.timeout .*label=stopSpin`, Action: ReleaseSpin, Cooldown: DefaultCooldown},
		{Name: "realignment", Pattern: `(?i)realign`, Action: ForceIdle, Cooldown: DefaultCooldown},
	}
}

// Target 被修復的對象
type Target interface {
	Current() fsm.Key
	Force(k fsm.Key) error
	ReleaseSpin()
}

type rule struct {
	Rule
	re   *regexp.Regexp
	last time.Time
}

// Watchdog 規則表與觸發紀錄
type Watchdog struct {
	mu     sync.Mutex
	rules  []*rule
	target Target
	log    *slog.Logger
	now    func() time.Time

	wg      sync.WaitGroup
	repairs atomic.Uint64
}

// New 編譯規則；log 是修復動作本身的紀錄（Info），不會再回頭觸發規則
func New(rules []Rule, log *slog.Logger) (*Watchdog, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	w := &Watchdog{log: log, now: time.Now}
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			return nil, errs.Configf("repair rule without name")
		}
		if _, dup := seen[r.Name]; dup {
			return nil, errs.Configf("duplicate repair rule: %s", r.Name)
		}
		seen[r.Name] = struct{}{}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, errs.WrapCode(err, errs.Fatal, errs.CodeConfig, "repair rule "+r.Name)
		}
		if r.Cooldown <= 0 {
			r.Cooldown = DefaultCooldown
		}
		w.rules = append(w.rules, &rule{Rule: r, re: re})
	}
	return w, nil
}

// Attach 設定修復對象；在此之前命中的規則只記錄不執行
func (w *Watchdog) Attach(t Target) {
	w.mu.Lock()
	w.target = t
	w.mu.Unlock()
}

// Repairs 已執行的修復次數
func (w *Watchdog) Repairs() uint64 { return w.repairs.Load() }

// Wait 等待執行中的修復動作
func (w *Watchdog) Wait() { w.wg.Wait() }

// Observe 比對一行訊息
func (w *Watchdog) Observe(line string) {
	w.mu.Lock()
	t := w.target
	now := w.now()
	var fire []Rule
	for _, r := range w.rules {
		if !r.re.MatchString(line) {
			continue
		}
		if !r.last.IsZero() && now.Sub(r.last) < r.Cooldown {
			continue
		}
		r.last = now
		fire = append(fire, r.Rule)
	}
	w.mu.Unlock()

	for _, r := range fire {
		if t == nil {
			w.log.Info("watchdog.skip", "rule", r.Name, "reason", "no target")
			continue
		}
		w.wg.Add(1)
		go w.run(t, r)
	}
}

func (w *Watchdog) run(t Target, r Rule) {
	defer w.wg.Done()
	switch r.Action {
	case ReleaseSpin:
		t.ReleaseSpin()
	case ForceIdle:
		// 已經回到 Idle（或結束）就不打斷
		if cur := t.Current(); cur == fsm.Idle || cur == fsm.GameOver {
			w.log.Info("watchdog.skip", "rule", r.Name, "state", cur.String())
			return
		}
		if err := t.Force(fsm.Idle); err != nil {
			w.log.Info("watchdog.failed", "rule", r.Name, "err", err)
			return
		}
	}
	w.repairs.Add(1)
	w.log.Info("watchdog.repair", "rule", r.Name, "action", r.Action.String())
}

// Wrap 回傳轉送到 next 並觀察 Warn 以上訊息的 handler
func (w *Watchdog) Wrap(next slog.Handler) slog.Handler {
	if next == nil {
		next = slog.DiscardHandler
	}
	return &Handler{next: next, w: w}
}

// Handler slog.Handler wrapper
type Handler struct {
	next   slog.Handler
	w      *Watchdog
	prefix string // WithAttrs 帶入的 key=value
	group  string
}

// Enabled Warn 以上一律要看，即使 next 不輸出
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn || h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		h.w.Observe(h.line(r))
	}
	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *Handler) line(r slog.Record) string {
	var sb strings.Builder
	sb.WriteString(r.Message)
	if h.prefix != "" {
		sb.WriteByte(' ')
		sb.WriteString(h.prefix)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, h.group, a)
		return true
	})
	return sb.String()
}

func writeAttr(sb *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(sb, key, ga)
		}
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(key)
	sb.WriteByte('=')
	sb.WriteString(a.Value.String())
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var sb strings.Builder
	sb.WriteString(h.prefix)
	for _, a := range attrs {
		writeAttr(&sb, h.group, a)
	}
	return &Handler{next: h.next.WithAttrs(attrs), w: h.w, prefix: strings.TrimSpace(sb.String()), group: h.group}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	g := name
	if h.group != "" {
		g = h.group + "." + name
	}
	return &Handler{next: h.next.WithGroup(name), w: h.w, prefix: h.prefix, group: g}
}
