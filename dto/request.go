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
package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/zintix-labs/slotstrike/errs"
)

// 防止 body 過大（1MiB）
const maxBody = 1 << 20

// 模擬參數的硬上限
const (
	MaxSimSessions = 100000
	MaxSimRounds   = 10000
	MaxSimWorkers  = 64
)

// SpinRequest bet 為 0 時使用 session 目前的押注
type SpinRequest struct {
	Bet float64 `json:"bet"`
}

// ChoiceRequest index 為 -1 表示放棄本次升級
type ChoiceRequest struct {
	Index int `json:"index"`
}

// SessionRequest 建立 session；seed 缺省時隨機
type SessionRequest struct {
	Seed *int64  `json:"seed,omitempty"`
	Bet  float64 `json:"bet,omitempty"`
}

// SimRequest 模擬參數
type SimRequest struct {
	Sessions int     `json:"sessions"`
	Rounds   int     `json:"rounds"`
	Workers  int     `json:"workers"`
	Bet      float64 `json:"bet"`
	Seed     *int64  `json:"seed,omitempty"`
}

// DecodeSpinRequest
//
// 支援：
//   - GET：從 query string 讀取 bet。
//   - POST：JSON body，空 body 視為全部缺省。
//
// 這裡只做解碼與型別轉換；bet 是否合法由 session 判斷。
func DecodeSpinRequest(r *http.Request) (*SpinRequest, error) {
	req := new(SpinRequest)
	switch r.Method {
	case http.MethodGet:
		if s := r.URL.Query().Get("bet"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid bet: %v", err))
			}
			req.Bet = v
		}
		return req, nil
	case http.MethodPost:
		if err := decodeBody(r, req); err != nil {
			return nil, err
		}
		return req, nil
	}
	return nil, errs.NewWarn("method not allowed")
}

// DecodeChoiceRequest GET ?index= 或 POST {"index":n}；缺省為 0
func DecodeChoiceRequest(r *http.Request) (*ChoiceRequest, error) {
	req := new(ChoiceRequest)
	switch r.Method {
	case http.MethodGet:
		if s := r.URL.Query().Get("index"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid index: %v", err))
			}
			req.Index = v
		}
		return req, nil
	case http.MethodPost:
		if err := decodeBody(r, req); err != nil {
			return nil, err
		}
		return req, nil
	}
	return nil, errs.NewWarn("method not allowed")
}

// DecodeSessionRequest POST body 可為空
func DecodeSessionRequest(r *http.Request) (*SessionRequest, error) {
	req := new(SessionRequest)
	if err := decodeBody(r, req); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeSimRequest GET query 或 POST JSON，缺省值由 Defaults 補上
func DecodeSimRequest(r *http.Request) (*SimRequest, error) {
	req := new(SimRequest)
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		ints := []struct {
			key string
			dst *int
		}{{"sessions", &req.Sessions}, {"rounds", &req.Rounds}, {"workers", &req.Workers}}
		for _, f := range ints {
			if s := q.Get(f.key); s != "" {
				v, err := strconv.Atoi(s)
				if err != nil {
					return nil, errs.NewWarn(fmt.Sprintf("invalid %s: %v", f.key, err))
				}
				*f.dst = v
			}
		}
		if s := q.Get("bet"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid bet: %v", err))
			}
			req.Bet = v
		}
		if s := q.Get("seed"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.NewWarn("seed must be int64")
			}
			req.Seed = &v
		}
	case http.MethodPost:
		if err := decodeBody(r, req); err != nil {
			return nil, err
		}
	default:
		return nil, errs.NewWarn("method not allowed")
	}
	req.Defaults()
	return req, req.Valid()
}

// SimConfigRequest 以自帶設定模擬；cfg 為 JSON 格式的 GameSetting，未列出的欄位沿用內建值
type SimConfigRequest struct {
	SimRequest
	Config json.RawMessage `json:"cfg"`
}

// DecodeSimConfigRequest 只接受 POST
func DecodeSimConfigRequest(r *http.Request) (*SimConfigRequest, error) {
	if r.Method != http.MethodPost {
		return nil, errs.NewWarn("method not allowed")
	}
	req := new(SimConfigRequest)
	if err := decodeBody(r, req); err != nil {
		return nil, err
	}
	if len(req.Config) == 0 {
		return nil, errs.NewWarn("cfg is required")
	}
	req.Defaults()
	return req, req.Valid()
}

// Defaults 補上缺省值
func (s *SimRequest) Defaults() {
	if s.Sessions == 0 {
		s.Sessions = 100
	}
	if s.Rounds == 0 {
		s.Rounds = 200
	}
	if s.Workers == 0 {
		s.Workers = 4
	}
}

// Valid 範圍檢查；bet 是否在押注表內由模擬器判斷
func (s *SimRequest) Valid() error {
	switch {
	case s.Sessions < 1 || s.Sessions > MaxSimSessions:
		return errs.Warnf("sessions must be between 1 and %d", MaxSimSessions)
	case s.Rounds < 1 || s.Rounds > MaxSimRounds:
		return errs.Warnf("rounds must be between 1 and %d", MaxSimRounds)
	case s.Workers < 1 || s.Workers > MaxSimWorkers:
		return errs.Warnf("workers must be between 1 and %d", MaxSimWorkers)
	case s.Bet < 0:
		return errs.NewWarn("bet must not be negative")
	}
	return nil
}

// Within 伺服器設定的較小上限
func (s *SimRequest) Within(limit SimRequest) error {
	switch {
	case s.Sessions > limit.Sessions:
		return errs.Warnf("sessions limited to %d", limit.Sessions)
	case s.Rounds > limit.Rounds:
		return errs.Warnf("rounds limited to %d", limit.Rounds)
	case s.Workers > limit.Workers:
		return errs.Warnf("workers limited to %d", limit.Workers)
	}
	return nil
}

// decodeBody 嚴格拒絕未知欄位，避免靜默丟資料
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errs.NewWarn("invalid json: " + err.Error())
	}
	return nil
}
