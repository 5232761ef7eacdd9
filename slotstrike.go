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

// Package slotstrike 組裝入口：把設定、亂數工廠與 log 綁在一起，建立 Session、Simulator 與 Runtime。
//
// 一個 Session 就是一局完整的遊戲：
//
//	spin → 盤面 → 戰鬥計畫 → 逐一播放戰鬥事件 → 推進關卡 →（升級選單）→ 回到 Idle
//
// 由 7 個狀態的狀態機（fsm）驅動，各子系統都在 sdk 底下。
//
// 典型使用情境：
//   - 後端服務：BuildRuntime 取得 Runtime，以 session id 操作。
//   - 模擬器：NewSimulator 平行跑大量 session 產出 RTP 與進程報表。
//   - 終端機：NewSession 搭配自訂 chooser / effects。
package slotstrike

import (
	"log/slog"
	"sync"

	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/sdk/bank"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/payout"
	"github.com/zintix-labs/slotstrike/spec"
)

// Slotstrike 持有一份已驗證的 GameSetting 與亂數工廠；建立之後只讀
type Slotstrike struct {
	gs  *spec.GameSetting
	cf  core.PRNGFactory
	log *slog.Logger

	drawMu sync.Mutex
	draw   *bank.Bank
}

// New cf 為 nil 時使用 core.Default()；gs 為 nil 時使用內建設定
func New(cf core.PRNGFactory, gs *spec.GameSetting, log *slog.Logger) (*Slotstrike, error) {
	if cf == nil {
		cf = core.Default()
	}
	if gs == nil {
		gs = spec.Default()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	b, err := bank.New(gs.Bank, gs.Evaluator(), core.New(cf.New(core.RandomSeed())))
	if err != nil {
		return nil, err
	}
	return &Slotstrike{gs: gs, cf: cf, log: log, draw: b}, nil
}

func (s *Slotstrike) Setting() *spec.GameSetting { return s.gs }
func (s *Slotstrike) Logger() *slog.Logger       { return s.log }

// NewSession 以 crypto/rand 產生 seed 建立一局
func (s *Slotstrike) NewSession(opts ...SessionOption) (*Session, error) {
	return s.NewSessionWithSeed(core.RandomSeed(), opts...)
}

// NewSessionWithSeed 同一份設定 + 同一個 seed，回合序列完全一致
func (s *Slotstrike) NewSessionWithSeed(seed int64, opts ...SessionOption) (*Session, error) {
	opts = append([]SessionOption{WithLogger(s.log)}, opts...)
	return newSession(s.gs, s.cf, seed, opts...)
}

func (s *Slotstrike) NewSimulator() *Simulator {
	return s.NewSimulatorWithSeed(core.RandomSeed())
}

func (s *Slotstrike) NewSimulatorWithSeed(seed int64) *Simulator {
	return newSimulator(s.gs, s.cf, seed)
}

// BuildRuntime 建立後端使用的 session 池
func (s *Slotstrike) BuildRuntime(cfg RuntimeConfig) (*Runtime, error) {
	return newRuntime(s, cfg)
}

// Draw 直接抽一個指定等級的盤面（除錯用，不經過狀態機）
func (s *Slotstrike) Draw(name string) (bank.Tier, payout.Outcome, error) {
	t, err := bank.ParseTier(name)
	if err != nil {
		return 0, payout.Outcome{}, errs.Wrap(err, "draw")
	}
	s.drawMu.Lock()
	defer s.drawMu.Unlock()
	return t, s.draw.Draw(t), nil
}
