package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"herdbook/internal/bus"
	"herdbook/internal/config"
	"herdbook/internal/core"
	_ "herdbook/internal/core/categories"
	"herdbook/internal/store"
)

// memoryLedger satisfies core.Ledger without a database.
type memoryLedger struct {
	live map[string]struct{}
}

func (m *memoryLedger) SourceApplied(ctx context.Context, category core.CategoryKey, digest string) (bool, error) {
	return false, nil
}

func (m *memoryLedger) Reconcile(ctx context.Context, def core.CategoryDefinition, records []core.ValidatedRecord, meta core.ImportMeta) ([]string, []string, error) {
	if m.live == nil {
		m.live = make(map[string]struct{})
	}
	imported := make([]string, len(records))
	for i, rec := range records {
		imported[i] = rec.Fingerprint
	}
	added, removed := core.DiffKeys(m.live, imported)
	for _, k := range added {
		m.live[k] = struct{}{}
	}
	for _, k := range removed {
		delete(m.live, k)
	}
	return added, removed, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Import.MaxFileSize = 1 << 20

	service := core.NewService(&memoryLedger{}, bus.New(), core.Options{})
	return NewServer(service, store.New(nil), cfg)
}

func TestListCategories(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var infos []CategoryInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(infos) < 3 {
		t.Fatalf("got %d categories, want at least 3", len(infos))
	}

	keys := make(map[string]bool)
	for _, info := range infos {
		keys[info.Key] = true
		if len(info.Columns) == 0 {
			t.Errorf("category %s has no columns", info.Key)
		}
	}
	for _, want := range []string{"breeding_records", "sale_records", "feed_records"} {
		if !keys[want] {
			t.Errorf("category %s missing from listing", want)
		}
	}
}

func TestImport_UnknownCategory(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/import/no_such_thing", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "unknown category" {
		t.Errorf("error = %q, want %q", resp.Error, "unknown category")
	}
}

func TestImport_MissingFileField(t *testing.T) {
	srv := testServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("check_duplicates", "true")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/breeding_records", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestImport_EndToEnd(t *testing.T) {
	srv := testServer(t)

	csv := "sow_tag,boar_tag,mated_on,farrowed_on,born_total,born_male,born_female,weaned,notes\n" +
		"S-101,B-7,2024-01-15,,12,7,,,\n" +
		"S-102,,2024-01-16,,,,,,\n"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "breeding.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(csv))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/breeding_records", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var out core.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if !out.Success {
		t.Fatalf("Success = false, message %q", out.Message)
	}
	if out.Validated != 2 || len(out.Added) != 2 {
		t.Errorf("Validated = %d, Added = %d, want 2, 2", out.Validated, len(out.Added))
	}
}

func TestImport_HeaderMismatch(t *testing.T) {
	srv := testServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "wrong.csv")
	part.Write([]byte("completely,different,columns\n1,2,3\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/breeding_records", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestImport_InvalidCheckDuplicatesValue(t *testing.T) {
	srv := testServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "breeding.csv")
	part.Write([]byte("sow_tag,boar_tag,mated_on,farrowed_on,born_total,born_male,born_female,weaned,notes\nS-101,,2024-01-15,,,,,,\n"))
	mw.WriteField("check_duplicates", "perhaps")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/breeding_records", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHistory_UnknownCategory(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history/no_such_thing", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHistory_InvalidLimit(t *testing.T) {
	srv := testServer(t)

	for _, limit := range []string{"abc", "0", "-1", "9999"} {
		req := httptest.NewRequest(http.MethodGet, "/api/history/breeding_records?limit="+limit, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestSanitizeError_HidesInternals(t *testing.T) {
	if got := sanitizeError(context.DeadlineExceeded); got != "internal error" {
		t.Errorf("sanitizeError(deadline) = %q, want %q", got, "internal error")
	}
}
