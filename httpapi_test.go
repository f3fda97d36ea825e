package domheal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"

	_ "modernc.org/sqlite"
)

func testServer(t *testing.T) (*Healer, *httptest.Server) {
	t.Helper()
	h := testHealer(t)
	r := chi.NewRouter()
	h.RegisterHTTP(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return h, srv
}

func postJSON(t *testing.T, url string, body any) map[string]any {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("get %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHTTPSaveAndFetch(t *testing.T) {
	_, srv := testServer(t)

	out := postJSON(t, srv.URL+"/api/dom-snapshots", map[string]any{
		"url":       "https://app.test/login?next=home",
		"domData":   historicalPage,
		"pageTitle": "Login",
	})
	if out["success"] != true {
		t.Fatalf("save: %+v", out)
	}

	// Duplicate payload is acknowledged, not stored again.
	out = postJSON(t, srv.URL+"/api/dom-snapshots", map[string]any{
		"url":     "https://app.test/login",
		"domData": historicalPage,
	})
	if out["skipped"] != true || out["reason"] != "duplicate" {
		t.Fatalf("duplicate save: %+v", out)
	}

	encoded := url.PathEscape("https://app.test/login")
	out = getJSON(t, srv.URL+"/api/dom-snapshots/"+encoded, http.StatusOK)
	if out["success"] != true {
		t.Fatalf("latest: %+v", out)
	}
	data := out["data"].(map[string]any)
	if data["normalized_url"] != "https://app.test/login" {
		t.Errorf("normalized_url: got %v", data["normalized_url"])
	}

	out = getJSON(t, srv.URL+"/api/dom-snapshots/"+encoded+"/history", http.StatusOK)
	if out["count"] != float64(1) {
		t.Errorf("history count: got %v", out["count"])
	}
}

func TestHTTPSaveValidation(t *testing.T) {
	_, srv := testServer(t)

	resp, err := http.Post(srv.URL+"/api/dom-snapshots", "application/json",
		bytes.NewReader([]byte(`{"url":"https://app.test/"}`)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestHTTPLatestNotFound(t *testing.T) {
	_, srv := testServer(t)

	encoded := url.PathEscape("https://app.test/nothing")
	out := getJSON(t, srv.URL+"/api/dom-snapshots/"+encoded, http.StatusNotFound)
	if out["success"] != false {
		t.Fatalf("latest: %+v", out)
	}
}

func TestHTTPHealRecordsHistory(t *testing.T) {
	_, srv := testServer(t)

	postJSON(t, srv.URL+"/api/dom-snapshots", map[string]any{
		"url":     "https://app.test/login",
		"domData": historicalPage,
	})

	out := postJSON(t, srv.URL+"/api/locator-healing/heal", map[string]any{
		"test_script_id": "sc-1",
		"failed_locator": "#submit-btn",
		"locator_type":   "playwright",
		"page_url":       "https://app.test/login",
		"current_dom":    livePage,
	})
	if out["success"] != true {
		t.Fatalf("heal: %+v", out)
	}
	result := out["healing_result"].(map[string]any)
	if result["healingMethod"] != "data-testid" {
		t.Errorf("healingMethod: got %v", result["healingMethod"])
	}

	out = getJSON(t, srv.URL+"/api/locator-healing/history/sc-1", http.StatusOK)
	records := out["data"].([]any)
	if len(records) != 1 {
		t.Fatalf("history: got %d records, want 1", len(records))
	}
	rec := records[0].(map[string]any)
	if rec["failed_locator"] != "#submit-btn" {
		t.Errorf("failed_locator: got %v", rec["failed_locator"])
	}
}

func TestHTTPRecordHealing(t *testing.T) {
	_, srv := testServer(t)

	out := postJSON(t, srv.URL+"/api/locator-healing/history", map[string]any{
		"test_script_id": "sc-9",
		"failed_locator": "#old",
		"healed_locator": "#new",
		"healing_method": "id",
		"success":        true,
	})
	if out["success"] != true {
		t.Fatalf("record: %+v", out)
	}
	data := out["data"].(map[string]any)
	if data["id"] == "" || data["id"] == nil {
		t.Error("record id not assigned")
	}

	out = getJSON(t, srv.URL+"/api/locator-healing/history?test_script_id=sc-9", http.StatusOK)
	if records := out["data"].([]any); len(records) != 1 {
		t.Fatalf("history: got %d records, want 1", len(records))
	}
}

func TestHTTPTrigger(t *testing.T) {
	_, srv := testServer(t)

	out := postJSON(t, srv.URL+"/api/locator-healing/trigger", map[string]any{
		"failure_info": map[string]any{
			"failed_locator": "#submit-btn",
			"page_url":       "https://app.test/never-captured",
		},
		"test_file": "login_test.py",
	})
	if out["success"] != false {
		t.Fatalf("trigger: %+v", out)
	}
	if out["healing_attempted"] != true {
		t.Errorf("healing_attempted: got %v", out["healing_attempted"])
	}
}

func TestHTTPCleanup(t *testing.T) {
	_, srv := testServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/dom-snapshots/expired", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["success"] != true {
		t.Fatalf("cleanup: %+v", out)
	}
}
