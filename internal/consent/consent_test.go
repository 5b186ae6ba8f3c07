package consent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var resp statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestStatusWithoutCookieShowsBannerAfterDelay(t *testing.T) {
	handler := NewHandler(false)
	req := httptest.NewRequest(http.MethodGet, "/api/consent", nil)
	rec := httptest.NewRecorder()
	handler.Status(rec, req)

	resp := decodeStatus(t, rec)
	if !resp.Show {
		t.Error("expected show=true without a stored choice")
	}
	if resp.DelayMs != 1500 {
		t.Errorf("delayMs = %d, want 1500", resp.DelayMs)
	}
	if resp.Choice != "" {
		t.Errorf("choice = %q, want empty", resp.Choice)
	}
}

func TestStatusWithStoredChoice(t *testing.T) {
	handler := NewHandler(false)
	req := httptest.NewRequest(http.MethodGet, "/api/consent", nil)
	req.AddCookie(&http.Cookie{Name: "cookie_consent", Value: ChoiceDeclined})
	rec := httptest.NewRecorder()
	handler.Status(rec, req)

	resp := decodeStatus(t, rec)
	if resp.Show {
		t.Error("banner shown despite stored choice")
	}
	if resp.Choice != ChoiceDeclined {
		t.Errorf("choice = %q, want declined", resp.Choice)
	}
}

func TestStatusIgnoresTamperedCookie(t *testing.T) {
	handler := NewHandler(false)
	req := httptest.NewRequest(http.MethodGet, "/api/consent", nil)
	req.AddCookie(&http.Cookie{Name: "cookie_consent", Value: "maybe"})
	rec := httptest.NewRecorder()
	handler.Status(rec, req)

	if resp := decodeStatus(t, rec); !resp.Show {
		t.Error("tampered cookie value treated as a valid choice")
	}
}

func TestUpdateStoresChoiceForAYear(t *testing.T) {
	handler := NewHandler(true)
	req := httptest.NewRequest(http.MethodPost, "/api/consent", strings.NewReader(`{"choice":"accepted"}`))
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != "cookie_consent" || cookie.Value != ChoiceAccepted {
		t.Errorf("cookie = %s=%s", cookie.Name, cookie.Value)
	}
	if cookie.MaxAge != 365*24*60*60 {
		t.Errorf("max age = %d, want one year", cookie.MaxAge)
	}
	if !cookie.Secure {
		t.Error("cookie not marked secure")
	}
}

func TestUpdateRejectsUnknownChoice(t *testing.T) {
	handler := NewHandler(false)
	req := httptest.NewRequest(http.MethodPost, "/api/consent", strings.NewReader(`{"choice":"later"}`))
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("cookie set despite invalid choice")
	}
}
