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
package svrcfg

import (
	"log/slog"
	"time"

	"github.com/zintix-labs/slotstrike"
	"github.com/zintix-labs/slotstrike/dto"
	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/server/logger"
)

// SvrCfg server 組裝所需的依賴；Runtime 必須由外層建立並注入
type SvrCfg struct {
	Log            *slog.Logger
	Runtime        *slotstrike.Runtime
	Origins        []string      // CORS；空代表允許全部
	RequestTimeout time.Duration // spin / choice 的等待上限
	SimTimeout     time.Duration // /v1/sim 的上限
	SimLimit       dto.SimRequest
	Dev            bool // 掛載 /dev 開發者頁面
}

// Valid 補齊預設值並檢查必要依賴
func (sc *SvrCfg) Valid() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		sc.Log = logger.NewDefaultLogger(logger.ModeSilence)
	}
	if sc.Runtime == nil {
		return errs.NewFatal("runtime is required")
	}
	if sc.RequestTimeout <= 0 {
		sc.RequestTimeout = 10 * time.Second
	}
	if sc.SimTimeout <= 0 {
		sc.SimTimeout = 50 * time.Second
	}
	// 0 代表使用 dto 的上限
	if sc.SimLimit.Sessions <= 0 {
		sc.SimLimit.Sessions = dto.MaxSimSessions
	}
	if sc.SimLimit.Rounds <= 0 {
		sc.SimLimit.Rounds = dto.MaxSimRounds
	}
	if sc.SimLimit.Workers <= 0 {
		sc.SimLimit.Workers = dto.MaxSimWorkers
	}
	return nil
}
