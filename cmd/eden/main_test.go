package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eden-hr/casetracker/internal/shared/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Env:            "test",
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
			AllowedOrigins: []string{"*"},
		},
		Auth:      config.AuthConfig{SystemActor: "00000000-0000-0000-0000-000000000001"},
		Storage:   config.StorageConfig{Driver: "memory", Prefix: "incident_documents"},
		Redis:     config.RedisConfig{LookupTTL: time.Minute},
		Log:       config.LogConfig{Level: "error", Format: "console"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		Records: config.RecordsConfig{
			CaseNumberPrefix:  "EDN",
			CaseNumberRetries: 3,
			TimeZone:          "UTC",
			StoreDriver:       "memory",
		},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	app, cleanup, err := newApp(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Failed to build app: %v", err)
	}
	t.Cleanup(cleanup)

	srv := httptest.NewServer(newRouter(app))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected 200 from %s, got %d", path, resp.StatusCode)
		}
	}
}

func TestIncidentWorkflow(t *testing.T) {
	srv := newTestServer(t)
	api := srv.URL + "/api/v1"

	var loc struct {
		ID string `json:"id"`
	}
	if code := doJSON(t, http.MethodPost, api+"/records/locations", map[string]any{
		"town": "Palo", "province": "Leyte", "region": "Eastern Visayas",
	}, &loc); code != http.StatusCreated {
		t.Fatalf("Expected 201 creating location, got %d", code)
	}

	var incident struct {
		ID         string `json:"id"`
		CaseNumber string `json:"case_number"`
	}
	if code := doJSON(t, http.MethodPost, api+"/records/incidents", map[string]any{
		"title": "Raid", "account_of_incident": "Night raid", "unspecified_date": true, "location_id": loc.ID,
	}, &incident); code != http.StatusCreated {
		t.Fatalf("Expected 201 creating incident, got %d", code)
	}
	if incident.CaseNumber == "" {
		t.Fatal("Expected a case number")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "affidavit.pdf")
	part.Write([]byte("%PDF-1.4"))
	mw.Close()
	resp, err := http.Post(api+"/files", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	var file struct {
		FileRef string `json:"file_ref"`
	}
	json.NewDecoder(resp.Body).Decode(&file)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 uploading, got %d", resp.StatusCode)
	}

	if code := doJSON(t, http.MethodPost, api+"/incidents/"+incident.ID+"/updates", map[string]any{
		"note": "affidavit filed",
		"documents": []map[string]any{
			{"file_ref": file.FileRef, "description": "affidavit", "file_date": "2020-01-15"},
		},
	}, nil); code != http.StatusCreated {
		t.Fatalf("Expected 201 adding case update, got %d", code)
	}

	var search struct {
		Data []struct {
			Kind    string            `json:"kind"`
			Results []json.RawMessage `json:"results"`
		} `json:"data"`
	}
	if code := doJSON(t, http.MethodGet, api+"/lookup?q="+incident.CaseNumber, nil, &search); code != http.StatusOK {
		t.Fatalf("Expected 200 searching, got %d", code)
	}
	if len(search.Data) != 1 || search.Data[0].Kind != "incident" || len(search.Data[0].Results) != 1 {
		t.Errorf("Expected the incident to be found by case number, got %+v", search.Data)
	}
}
