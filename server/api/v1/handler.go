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
// Package v1 slotstrike 的 HTTP API：session 生命週期、spin / choice、模擬與除錯。
package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/zintix-labs/slotstrike"
	"github.com/zintix-labs/slotstrike/dto"
	"github.com/zintix-labs/slotstrike/server/httperr"
	"github.com/zintix-labs/slotstrike/server/netsvr"
	"github.com/zintix-labs/slotstrike/server/svrcfg"
)

// Handler 所有 v1 路由共用的依賴
type Handler struct {
	rt         *slotstrike.Runtime
	log        *slog.Logger
	timeout    time.Duration
	simTimeout time.Duration
	limit      dto.SimRequest
}

func NewHandler(sCfg *svrcfg.SvrCfg) *Handler {
	return &Handler{
		rt:         sCfg.Runtime,
		log:        sCfg.Log,
		timeout:    sCfg.RequestTimeout,
		simTimeout: sCfg.SimTimeout,
		limit:      sCfg.SimLimit,
	}
}

// Register 掛載到 /v1 群組
func (h *Handler) Register(r netsvr.NetRouter) {
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/{id}", h.GetSession)
	r.Delete("/sessions/{id}", h.DeleteSession)
	r.Get("/sessions/{id}/history", h.History)
	r.Get("/sessions/{id}/spin", h.Spin)
	r.Post("/sessions/{id}/spin", h.Spin)
	r.Post("/sessions/{id}/choice", h.Choice)

	r.Get("/sim", h.Sim)
	r.Post("/sim", h.Sim)
	r.Post("/sim/config", h.SimByConfig)
	r.Post("/stat", h.Stat)

	r.Get("/draw/{tier}", h.Draw)
	r.Get("/setting", h.Setting)
	r.Get("/metrics", h.Metrics)
}

func (h *Handler) ctx(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

// fail 寫回錯誤並依 status 記錄
func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	httperr.Log(h.log, msg, err)
	httperr.Errs(w, err)
}
