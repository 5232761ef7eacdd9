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

package turn

import (
	"github.com/zintix-labs/slotstrike/sdk/modifier"
	"github.com/zintix-labs/slotstrike/sdk/payout"
)

// ModifierSource 回合外部的修飾值來源（combo/heat）
type ModifierSource interface {
	Modifiers() modifier.Modifiers
}

// Builder 流派分析 + combo 合併 + 事件建構
type Builder struct {
	planner  *Planner
	composer *modifier.Composer
	combo    ModifierSource
	boss     OverloadSource
}

// NewBuilder combo 與 boss 可為 nil
func NewBuilder(p *Planner, c *modifier.Composer, combo ModifierSource, boss OverloadSource) *Builder {
	if p == nil {
		p = NewPlanner(DefaultConfig())
	}
	if c == nil {
		c = modifier.NewComposer(modifier.DefaultRules())
	}
	return &Builder{planner: p, composer: c, combo: combo, boss: boss}
}

// BuildPlan 以 MergeBuildAndCombo 合併流派與 combo 修飾值後建立 Plan
func (b *Builder) BuildPlan(o payout.Outcome, bet float64) *Plan {
	build := b.composer.Analyze(o)
	combo := modifier.Zero()
	if b.combo != nil {
		combo = b.combo.Modifiers()
	}
	return b.planner.Build(o, modifier.MergeBuildAndCombo(build, combo), bet, b.boss)
}
