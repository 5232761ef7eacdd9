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
// Package app 應用程式生命週期：統一啟動多個 Component，收到信號或任一元件結束時依序關閉。
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"
)

// ShutdownTimeout 優雅關閉的總期限
const ShutdownTimeout = 5 * time.Second

// App 持有 Component 與關閉後的清理函式
type App struct {
	comps   []Component
	onStop  []func() error
	timeout time.Duration
}

func New() *App { return &App{timeout: ShutdownTimeout} }

// NewWith 建立時直接註冊多個 Component
func NewWith(comps ...Component) *App {
	a := New()
	for _, c := range comps {
		a.Register(c)
	}
	return a
}

func (a *App) Register(c Component) {
	a.comps = append(a.comps, c)
}

// OnStop 所有 Component 關閉後執行（後註冊先執行），例如關閉 runtime、資料庫、drain log
func (a *App) OnStop(fn func() error) {
	a.onStop = append(a.onStop, fn)
}

// Run 阻塞直到收到 SIGINT/SIGTERM 或任一 Component 的 Run 返回
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext ctx 結束視同收到終止信號，回傳 nil；Component 提前返回則回傳其錯誤
func (a *App) RunContext(ctx context.Context) error {
	errCh := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func(c Component) {
			errCh <- c.Run()
		}(c)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err == nil {
			err = errors.New("component stopped unexpectedly")
		}
	}
	a.shutdown()
	return err
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	for _, c := range a.comps {
		if err := c.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown err: %v\n", err)
		}
	}
	for _, fn := range slices.Backward(a.onStop) {
		if err := fn(); err != nil {
			fmt.Fprintf(os.Stderr, "stop hook err: %v\n", err)
		}
	}
}
