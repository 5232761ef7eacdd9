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

package sampler

import (
	"fmt"
	"math"

	"github.com/zintix-labs/slotstrike/sdk/core"
)

const maxLUTCap uint64 = 1_000_000

// LUT 查找表加權抽樣：建表時把索引 i 展開 weights[i] 次，抽樣只做一次 IntN。
//
// 適合權重總和小的表，例如 tier 權重 [20,55,20,5]。
type LUT []int

// BuildLUT 依權重建表；負權重、全零或總和過大會 panic（屬於設定錯誤，應在 spec 驗證時擋下）。
func BuildLUT[T Integers](weights []T) LUT {
	if len(weights) == 0 {
		return LUT{}
	}
	acc := uint64(0)
	for _, v := range weights {
		if v < 0 {
			panic("lut: negative weight")
		}
		uv := uint64(v)
		if acc > math.MaxUint64-uv {
			panic("lut: weight overflow")
		}
		acc += uv
	}
	if acc == 0 {
		panic("lut: all weights are zero")
	}
	if acc > maxLUTCap {
		panic(fmt.Sprintf("lut: total weight %d exceeds %d, use alias table", acc, maxLUTCap))
	}
	lut := make(LUT, 0, int(acc))
	for i, v := range weights {
		for j := T(0); j < v; j++ {
			lut = append(lut, i)
		}
	}
	return lut
}

// Pick 抽出索引；空表回傳 -1
func (l LUT) Pick(c *core.Core) int {
	return c.Pick(l)
}
