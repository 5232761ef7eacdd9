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

import "sync/atomic"

const (
	mask63 = 1<<63 - 1
	// weyl 奇數步長：i*weyl mod 2^63 在 i < 2^63 內不重複
	weyl = 0x9E3779B97F4A7C15 & mask63
)

// seedMaker 由一個 seed 推出一串不重複的非負子 seed，
// 給 session 內各子系統與模擬器內各 session 使用。可多 worker 同時呼叫。
type seedMaker struct {
	base uint64
	n    atomic.Uint64
}

func newSeedMaker(seed int64) *seedMaker {
	return &seedMaker{base: uint64(seed) & mask63}
}

func (s *seedMaker) next() int64 {
	i := s.n.Add(1)
	return int64(scramble63((s.base + i*weyl) & mask63))
}

// scramble63 在 63 bits 內可逆的打散（xorshift 與乘奇數）
func scramble63(x uint64) uint64 {
	x = (x ^ x>>30) * 0xBF58476D1CE4E5B9 & mask63
	x = (x ^ x>>27) * 0x94D049BB133111EB & mask63
	return x ^ x>>31
}
