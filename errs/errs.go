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


package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// Code 錯誤類別，與嚴重度(ErrLevel)正交
//
// 狀態機與邊界層依 Code 決定復原方式，不依賴訊息字串。
type Code string

const (
	CodeNone      Code = ""
	CodeTimeout   Code = "timeout"     // 外部協作者未在期限內完成，已使用 fallback
	CodeState     Code = "state_enter" // 狀態 enter 失敗，已轉入復原狀態
	CodeMissing   Code = "missing"     // 協作者不存在
	CodeInvariant Code = "invariant"   // SpinOutcome 合約被破壞
	CodeConfig    Code = "config"      // 設定檔驗證失敗
	CodeBusy      Code = "busy"        // 機台不在 Idle，拒絕 spin
	CodeNotFound  Code = "not_found"   // session / state 不存在
)

// E 是統一的錯誤型別。
// Message 為主訊息；Cause 可串接下層錯誤（wrap）；Code 為錯誤類別。
type E struct {
	Message string
	Cause   error
	ErrLv   ErrLevel
	Code    Code
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", ErrLv(e.ErrLv), e.Message)
	if e.Code != CodeNone {
		base = fmt.Sprintf("errlv=%s code=%s %s", ErrLv(e.ErrLv), e.Code, e.Message)
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// Is 以 Code 比對，讓 errors.Is(err, errs.Timeout) 這類哨兵判斷成立。
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok || t.Code == CodeNone {
		return false
	}
	return e.Code == t.Code
}

// 哨兵錯誤：只用於 errors.Is 比對 Code
var (
	Timeout  = &E{Code: CodeTimeout, ErrLv: Log}
	Busy     = &E{Code: CodeBusy, ErrLv: Warn}
	NotFound = &E{Code: CodeNotFound, ErrLv: Warn}
	Config   = &E{Code: CodeConfig, ErrLv: Fatal}
)

// NewCode 建立帶類別的錯誤
func NewCode(errLv ErrLevel, code Code, msg string) *E {
	return &E{Message: msg, ErrLv: errLv, Code: code}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

// Configf 設定檔錯誤，一律 Fatal
func Configf(format string, a ...any) *E {
	return NewCode(Fatal, CodeConfig, fmt.Sprintf(format, a...))
}

// Wrap 使用給定的訊息包裝底層錯誤，建立一個 *E。
//
// ErrLevel / Code 規則：
//   - 若 cause 已經是 *E，則沿用其 ErrLv 與 Code。
//   - 若 cause 不是本包定義的 *E，則 ErrLv 一律視為 Fatal。
func Wrap(cause error, msg string) *E {
	var e *E
	errLv := Fatal
	code := CodeNone
	if errors.As(cause, &e) {
		errLv = e.ErrLv
		code = e.Code
	}
	r := NewCode(errLv, code, msg)
	r.Cause = cause
	return r
}

// WrapCode 包裝底層錯誤並指定類別與嚴重度
func WrapCode(cause error, errLv ErrLevel, code Code, msg string) *E {
	r := NewCode(errLv, code, msg)
	r.Cause = cause
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}

// HasCode 檢查錯誤鏈上任何一層是否帶有指定 Code
func HasCode(err error, code Code) bool {
	for err != nil {
		if e, ok := err.(*E); ok && e.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
