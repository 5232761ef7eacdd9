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
// Package spec 遊戲設定：賠率、線表與各子系統的調校參數。
//
// 設定檔以內建的 defaults/slotstrike.yaml 為底，使用者檔案只需寫要覆蓋的欄位。
package spec

import (
	"fmt"
	"slices"

	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/fsm"
	"github.com/zintix-labs/slotstrike/sdk/bank"
	"github.com/zintix-labs/slotstrike/sdk/combo"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/sdk/field"
	"github.com/zintix-labs/slotstrike/sdk/jackpot"
	"github.com/zintix-labs/slotstrike/sdk/level"
	"github.com/zintix-labs/slotstrike/sdk/modifier"
	"github.com/zintix-labs/slotstrike/sdk/payout"
	"github.com/zintix-labs/slotstrike/sdk/turn"
	"github.com/zintix-labs/slotstrike/sdk/upgrade"
	"github.com/zintix-labs/slotstrike/watchdog"
)

// Line 一條連線的三個座標，每個為 [col, row]
type Line [payout.Cols][2]int

// GameSetting 啟動一個 session 所需的全部設定。
type GameSetting struct {
	GameName   string                `yaml:"game_name"   json:"game_name"`
	BetUnits   []float64             `yaml:"bet_units"   json:"bet_units"`
	DefaultBet float64               `yaml:"default_bet" json:"default_bet"`
	Paytable   map[string]float64    `yaml:"paytable"    json:"paytable"`
	Paylines   []Line                `yaml:"paylines"    json:"paylines"`
	Bank       bank.Config           `yaml:"bank"        json:"bank"`
	Combo      combo.Config          `yaml:"combo"       json:"combo"`
	Level      level.Config          `yaml:"level"       json:"level"`
	Boss       jackpot.Config        `yaml:"boss"        json:"boss"`
	Upgrades   upgrade.Config        `yaml:"upgrades"    json:"upgrades"`
	Balance    upgrade.BalanceConfig `yaml:"balance"     json:"balance"`
	Field      field.Config          `yaml:"field"       json:"field"`
	Turn       turn.Config           `yaml:"turn"        json:"turn"`
	Modifier   modifier.Rules        `yaml:"modifier"    json:"modifier"`
	Timeouts   fsm.Timeouts          `yaml:"timeouts"    json:"timeouts"`
	Repair     []watchdog.Rule       `yaml:"repair"      json:"repair"`

	pay   [payout.NumSymbols]float64
	lines []payout.Payline
}

// base 各子系統的預設值，設定檔解碼時以此為底
func base() *GameSetting {
	return &GameSetting{
		Bank:     bank.DefaultConfig(),
		Combo:    combo.DefaultConfig(),
		Level:    level.DefaultConfig(),
		Boss:     jackpot.DefaultConfig(),
		Upgrades: upgrade.DefaultConfig(),
		Balance:  upgrade.DefaultBalanceConfig(),
		Field:    field.DefaultConfig(),
		Turn:     turn.DefaultConfig(),
		Modifier: modifier.DefaultRules(),
		Timeouts: fsm.DefaultTimeouts(),
		Repair:   watchdog.DefaultRules(),
	}
}

// init 解析賠率與線表後檢查
func (gs *GameSetting) init() error {
	gs.pay = [payout.NumSymbols]float64{}
	for name, v := range gs.Paytable {
		s, err := payout.ParseSymbol(name)
		if err != nil {
			return errs.Configf("game_name: %s paytable: %v", gs.GameName, err)
		}
		gs.pay[s] = v
	}
	gs.lines = make([]payout.Payline, len(gs.Paylines))
	for i, l := range gs.Paylines {
		for c, cell := range l {
			gs.lines[i][c] = payout.Cell{C: cell[0], R: cell[1]}
		}
	}
	if gs.DefaultBet == 0 && len(gs.BetUnits) > 0 {
		gs.DefaultBet = gs.BetUnits[0]
	}
	return gs.valid()
}

// valid 基本檢查；子系統的細項交給各自的建構函式
func (gs *GameSetting) valid() error {
	if gs.GameName == "" {
		return errs.Configf("empty game_name")
	}
	if len(gs.BetUnits) == 0 {
		return errs.Configf("game_name: %s err:empty bet_units", gs.GameName)
	}
	for _, b := range gs.BetUnits {
		if b <= 0 {
			return errs.Configf("game_name: %s err:invalid bet unit %v", gs.GameName, b)
		}
	}
	if !gs.ValidBet(gs.DefaultBet) {
		return errs.Configf("game_name: %s err:default_bet %v not in bet_units", gs.GameName, gs.DefaultBet)
	}
	if _, err := payout.NewEvaluator(gs.pay, gs.lines); err != nil {
		return errs.WrapCode(err, errs.Fatal, errs.CodeConfig, fmt.Sprintf("game_name: %s", gs.GameName))
	}
	if err := gs.Bank.Validate(); err != nil {
		return err
	}
	if err := gs.Level.Validate(); err != nil {
		return err
	}
	if gs.Field.Columns <= 0 || gs.Field.Rows <= 0 {
		return errs.Configf("game_name: %s err:invalid field %dx%d", gs.GameName, gs.Field.Columns, gs.Field.Rows)
	}
	if gs.Boss.BaseHP <= 0 {
		return errs.Configf("game_name: %s err:boss base_hp must be > 0", gs.GameName)
	}
	if _, err := upgrade.New(gs.Upgrades, upgrade.NewBalance(gs.Balance), core.NewSeeded(1), nil); err != nil {
		return err
	}
	if _, err := watchdog.New(gs.Repair, nil); err != nil {
		return err
	}
	t := gs.Timeouts
	if t.StopSpin <= 0 || t.Fx <= 0 || t.WinLines <= 0 || t.CombatEvent <= 0 {
		return errs.Configf("game_name: %s err:timeouts must be > 0", gs.GameName)
	}
	return nil
}

// Evaluator 依設定的賠率與線表建立計分器
func (gs *GameSetting) Evaluator() *payout.Evaluator {
	e, err := payout.NewEvaluator(gs.pay, gs.lines)
	if err != nil {
		// init 已驗證過
		panic(err)
	}
	return e
}

// ValidBet 是否為設定中的押注
func (gs *GameSetting) ValidBet(bet float64) bool { return slices.Contains(gs.BetUnits, bet) }
