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
// Package dto 對外輸出的回合結果與 session 快照，以及 HTTP 請求的解碼。
package dto

import (
	"github.com/zintix-labs/slotstrike/recorder"
	"github.com/zintix-labs/slotstrike/sdk/combo"
	"github.com/zintix-labs/slotstrike/sdk/field"
	"github.com/zintix-labs/slotstrike/sdk/jackpot"
	"github.com/zintix-labs/slotstrike/sdk/level"
	"github.com/zintix-labs/slotstrike/sdk/modifier"
	"github.com/zintix-labs/slotstrike/sdk/payout"
	"github.com/zintix-labs/slotstrike/sdk/turn"
	"github.com/zintix-labs/slotstrike/sdk/upgrade"
)

// RoundResult 一回合（一次 spin 到狀態機停下）的結果
type RoundResult struct {
	Seq       int                `json:"seq"`
	Bet       float64            `json:"bet"`
	Grid      payout.Grid        `json:"grid"`
	Wins      []payout.WinLine   `json:"wins,omitempty"`
	SpinWin   float64            `json:"spin_win"`   // 盤面贏分（已乘 payout scale）
	BossBonus float64            `json:"boss_bonus"` // boss 擊破加成
	TotalWin  float64            `json:"total_win"`
	BossKill  bool               `json:"boss_kill"`
	Modifiers modifier.Modifiers `json:"modifiers"`
	Events    []turn.Event       `json:"events,omitempty"`
	Kills     int                `json:"kills"`
	State     string             `json:"state"`
	Choice    []upgrade.Upgrade  `json:"choice,omitempty"`
	GameOver  bool               `json:"game_over"`
}

// SessionView session 快照
type SessionView struct {
	ID       string            `json:"id"`
	Game     string            `json:"game"`
	Seed     int64             `json:"seed"`
	State    string            `json:"state"`
	Bet      float64           `json:"bet"`
	Progress level.Progress    `json:"progress"`
	Combo    combo.State       `json:"combo"`
	Boss     jackpot.State     `json:"boss"`
	Field    field.Stats       `json:"field"`
	Enemies  []field.Enemy     `json:"enemies,omitempty"`
	Ledger   recorder.Summary  `json:"ledger"`
	Balance  []upgrade.StatRow `json:"balance"`
	Upgrades []string          `json:"upgrades,omitempty"`
	Choice   []upgrade.Upgrade `json:"choice,omitempty"`
	Last     *RoundResult      `json:"last,omitempty"`
	Repairs  uint64            `json:"repairs"`
}
