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
package api

import (
	"log/slog"
	"net/http"

	"github.com/zintix-labs/slotstrike/server/api/dev"
	v1 "github.com/zintix-labs/slotstrike/server/api/v1"
	"github.com/zintix-labs/slotstrike/server/httperr"
	"github.com/zintix-labs/slotstrike/server/netsvr"
	"github.com/zintix-labs/slotstrike/server/netsvr/middleware"
	"github.com/zintix-labs/slotstrike/server/svrcfg"
)

// RegisterRoutes 註冊；sCfg 需先 Valid()
func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	registerMiddleware(svr, sCfg) // 1. 註冊 middleware
	registerIndex(svr, sCfg)      // 2. 註冊主頁
	if sCfg.Dev {
		dev.Register(svr) // 3. 開發者工具頁
	}
	svr.Group("/v1", v1.NewHandler(sCfg).Register) // 4. 註冊 v1 api
}

// 順序：request id 最外層，access log 才看得到 recover 寫回的 500
func registerMiddleware(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(sCfg.Log))
	svr.Use(middleware.Recover(sCfg.Log))
	svr.Use(middleware.CORS(sCfg.Origins))
	svr.Use(middleware.Compression)
}

type indexInfo struct {
	Service string    `json:"service"`
	Game    string    `json:"game"`
	Bets    []float64 `json:"bets"`
	API     string    `json:"api"`
	Dev     string    `json:"dev,omitempty"`
}

func registerIndex(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	gs := sCfg.Runtime.Setting()
	info := indexInfo{
		Service: "slotstrike",
		Game:    gs.GameName,
		Bets:    gs.BetUnits,
		API:     "/v1",
	}
	if sCfg.Dev {
		info.Dev = "/dev"
	}
	svr.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httperr.JSON(w, http.StatusOK, info)
	})
	svr.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if sCfg.Runtime.Closed() {
			httperr.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": sCfg.Runtime.ClosedReason()})
			return
		}
		httperr.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	sCfg.Log.Debug("index registered", slog.String("game", gs.GameName))
}
