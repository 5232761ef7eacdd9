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
package httperr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/slotstrike/errs"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"deadline", fmt.Errorf("spin: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"canceled", context.Canceled, http.StatusRequestTimeout},
		{"not found", errs.NewCode(errs.Warn, errs.CodeNotFound, "no session"), http.StatusNotFound},
		{"busy wrapped", errs.Wrap(errs.NewCode(errs.Warn, errs.CodeBusy, "not idle"), "spin"), http.StatusConflict},
		{"config", errs.Configf("bad %s", "yaml"), http.StatusUnprocessableEntity},
		{"warn", errs.NewWarn("bad bet"), http.StatusBadRequest},
		{"fatal", errs.NewFatal("boom"), http.StatusInternalServerError},
		{"plain", fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := StatusCode(c.err); got != c.want {
			t.Fatalf("%s: status = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestErrsBody(t *testing.T) {
	w := httptest.NewRecorder()
	Errs(w, errs.NewCode(errs.Warn, errs.CodeBusy, "machine busy"))
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var b Body
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Code != "busy" || b.Error == "" {
		t.Fatalf("body = %+v", b)
	}

	w = httptest.NewRecorder()
	Errs(w, nil)
	if w.Body.Len() != 0 {
		t.Fatalf("nil error wrote %q", w.Body.String())
	}
}

func TestJSONMarshalFailure(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]any{"ch": make(chan int)})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}
