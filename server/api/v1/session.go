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
package v1

import (
	"net/http"
	"strconv"

	"github.com/zintix-labs/slotstrike/dto"
	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/server/httperr"
	"github.com/zintix-labs/slotstrike/server/netsvr"
)

// CreateSession POST /v1/sessions {"seed":?, "bet":?}
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeSessionRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := h.ctx(r, h.timeout)
	defer cancel()
	v, err := h.rt.CreateSession(ctx, req)
	if err != nil {
		h.fail(w, "session.create", err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+v.ID)
	httperr.JSON(w, http.StatusCreated, v)
}

// GetSession GET /v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r, h.timeout)
	defer cancel()
	v, err := h.rt.Session(ctx, netsvr.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "session.get", err)
		return
	}
	httperr.JSON(w, http.StatusOK, v)
}

// DeleteSession DELETE /v1/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.rt.DeleteSession(netsvr.URLParam(r, "id")); err != nil {
		h.fail(w, "session.delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History GET /v1/sessions/{id}/history?limit=n
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			httperr.Errs(w, errs.NewWarn("limit must be a non-negative integer"))
			return
		}
		limit = v
	}
	ctx, cancel := h.ctx(r, h.timeout)
	defer cancel()
	rounds, err := h.rt.History(ctx, netsvr.URLParam(r, "id"), limit)
	if err != nil {
		h.fail(w, "session.history", err)
		return
	}
	httperr.JSON(w, http.StatusOK, rounds)
}

// Spin GET ?bet= 或 POST {"bet":n}；回合停下或升級選單開啟後回傳
func (h *Handler) Spin(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeSpinRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := h.ctx(r, h.timeout)
	defer cancel()
	rr, err := h.rt.Spin(ctx, netsvr.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, "session.spin", err)
		return
	}
	httperr.JSON(w, http.StatusOK, rr)
}

// Choice POST {"index":n}，-1 放棄
func (h *Handler) Choice(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeChoiceRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := h.ctx(r, h.timeout)
	defer cancel()
	rr, err := h.rt.Choose(ctx, netsvr.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, "session.choice", err)
		return
	}
	httperr.JSON(w, http.StatusOK, rr)
}
