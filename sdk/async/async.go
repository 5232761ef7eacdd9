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

// Package async 提供有上限的等待：任何外部協作者（動畫、戰鬥事件、玩家選擇）
// 都可能永遠不回應，狀態機只透過這裡的 helper 等待它們。
//
// 逾時不是致命錯誤：呼叫端拿到 fallback 值與一個 errs.CodeTimeout 的錯誤，
// 記錄後照常往下走。逾時後才完成的結果會被丟棄。
package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zintix-labs/slotstrike/errs"
)

// Signal 完成訊號，關閉即代表完成
type Signal <-chan struct{}

var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Done 回傳已完成的訊號
func Done() Signal { return closed }

// Never 回傳永遠不會完成的訊號
func Never() Signal { return nil }

// NewSignal 建立訊號與其完成函式，完成函式可重複呼叫
func NewSignal() (Signal, func()) {
	ch := make(chan struct{})
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}

type result[T any] struct {
	v   T
	err error
}

// WithTimeout 在 d 內執行 op。
//
// op 收到的 ctx 會在逾時或父 ctx 取消時被取消；op 不理會 ctx 也沒關係，
// 結果 channel 有 buffer，晚到的結果直接丟棄。
// d <= 0 代表不設上限（仍受父 ctx 約束）。
func WithTimeout[T any](ctx context.Context, d time.Duration, fallback T, op func(context.Context) (T, error)) (T, error) {
	var cctx context.Context
	var cancel context.CancelFunc
	if d > 0 {
		cctx, cancel = context.WithTimeout(ctx, d)
	} else {
		cctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result[T]{v: fallback, err: errs.NewWarn(fmt.Sprintf("async op panic: %v", r))}
			}
		}()
		v, err := op(cctx)
		ch <- result[T]{v: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && cctx.Err() != nil && isCtxErr(r.err) {
			return fallback, timeoutErr(ctx, d)
		}
		return r.v, r.err
	case <-cctx.Done():
		return fallback, timeoutErr(ctx, d)
	}
}

func isCtxErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func timeoutErr(parent context.Context, d time.Duration) error {
	if parent.Err() != nil {
		return errs.WrapCode(parent.Err(), errs.Log, errs.CodeTimeout, "wait cancelled")
	}
	return errs.NewCode(errs.Log, errs.CodeTimeout, fmt.Sprintf("timed out after %s", d))
}

// Wait 等待訊號完成，最多 d
func Wait(ctx context.Context, d time.Duration, sig Signal) error {
	_, err := WithTimeout(ctx, d, struct{}{}, func(c context.Context) (struct{}, error) {
		select {
		case <-sig:
			return struct{}{}, nil
		case <-c.Done():
			return struct{}{}, c.Err()
		}
	})
	return err
}

// WaitAll 同時等待多個訊號，每個各自最多 d；回傳第一個逾時錯誤
func WaitAll(ctx context.Context, d time.Duration, sigs ...Signal) error {
	errCh := make(chan error, len(sigs))
	for _, s := range sigs {
		go func(s Signal) { errCh <- Wait(ctx, d, s) }(s)
	}
	var first error
	for range sigs {
		if err := <-errCh; err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Delay 睡 d，ctx 取消時提前返回 ctx.Err()
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
