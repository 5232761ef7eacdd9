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
// Package logger 組裝 server 使用的 slog.Logger：依模式選擇 Text/JSON handler，可選擇包成非阻塞的 AsyncHandler。
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// enum LogMode
type LogMode uint8

const (
	ModeDev LogMode = iota
	ModeProd
	ModeSilence
)

var modeNames = [...]string{"dev", "prod", "silence"}

func (m LogMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("LogMode(%d)", uint8(m))
}

// ParseMode 解析 dev / prod / silence（不分大小寫）
func ParseMode(s string) (LogMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == s {
			return LogMode(i), nil
		}
	}
	return ModeDev, fmt.Errorf("unknown log mode %q (want dev|prod|silence)", s)
}

// Options 組裝參數
type Options struct {
	Mode  LogMode
	Out   io.Writer   // nil：dev 寫 stderr，prod 寫 stdout
	Level *slog.Level // nil：dev 為 Debug，prod 為 Info
	Async int         // > 0 時以此大小的 buffer 包成 AsyncHandler
}

// New 依 Options 建立 logger；回傳的 close 會 drain 非同步 buffer，同步模式下為 no-op
func New(o Options) (*slog.Logger, func()) {
	h := buildHandler(o)
	if o.Async <= 0 {
		return slog.New(h), func() {}
	}
	ah := NewAsyncHandler(h, o.Async)
	return slog.New(ah), ah.Close
}

// NewDefaultLogger 同步 logger
func NewDefaultLogger(mode LogMode) *slog.Logger {
	l, _ := New(Options{Mode: mode})
	return l
}

// NewAsync 預設非阻塞 logger，並回傳 handler 以便關閉時 drain
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(buildHandler(Options{Mode: mode}), buf)
	return slog.New(ah), ah
}

func buildHandler(o Options) slog.Handler {
	switch o.Mode {
	case ModeSilence:
		return slog.DiscardHandler
	case ModeProd:
		// 正式環境：JSON + stdout，給 Loki / Promtail
		return slog.NewJSONHandler(writer(o.Out, os.Stdout), &slog.HandlerOptions{Level: level(o.Level, slog.LevelInfo)})
	default:
		return slog.NewTextHandler(writer(o.Out, os.Stderr), &slog.HandlerOptions{Level: level(o.Level, slog.LevelDebug)})
	}
}

func writer(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

func level(l *slog.Level, def slog.Level) slog.Level {
	if l == nil {
		return def
	}
	return *l
}

// AsyncHandler 是一個 slog.Handler wrapper：
//   - Handle 只做 enqueue，背景 goroutine 逐筆呼叫 next.Handle 寫出
//   - channel 滿時丟棄，避免把 I/O 延遲傳回 spin 的請求路徑
//
// slog.Logger 會忽略 Handle 回傳的 error；需要處理 I/O error 請在 next 內自行包裝。
type AsyncHandler struct {
	next slog.Handler
	d    *asyncDispatcher
}

type asyncDispatcher struct {
	ch     chan asyncItem
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	dropped atomic.Uint64
}

type asyncItem struct {
	ctx     context.Context
	rec     slog.Record
	handler slog.Handler
}

// NewAsyncHandler buf 越大越不容易 drop，但關閉時 drain 也越久
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = buildHandler(Options{})
	}
	if buf <= 0 {
		buf = 1024
	}
	d := &asyncDispatcher{
		ch:     make(chan asyncItem, buf),
		closed: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.worker()
	return &AsyncHandler{next: next, d: d}
}

func (h *AsyncHandler) Ready() bool {
	return h != nil && h.d != nil
}

// Dropped buffer 滿或關閉後被丟棄的筆數
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.d.dropped.Load()
}

// Close 停止接收並 drain 剩餘的紀錄。可重複呼叫。
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.d.once.Do(func() { close(h.d.closed) })
	h.d.wg.Wait()
}

func (d *asyncDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case it := <-d.ch:
			_ = it.handler.Handle(it.ctx, it.rec)
		case <-d.closed:
			for {
				select {
				case it := <-d.ch:
					_ = it.handler.Handle(it.ctx, it.rec)
				default:
					return
				}
			}
		}
	}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.d.closed:
		h.d.dropped.Add(1)
		return nil
	default:
	}
	// Record 內含可變引用，跨 goroutine 前先 Clone
	it := asyncItem{ctx: context.WithoutCancel(ctx), rec: r.Clone(), handler: h.next}
	select {
	case h.d.ch <- it:
	default:
		h.d.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), d: h.d}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), d: h.d}
}
