package visitsync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestAPIClientFetchAndReplace(t *testing.T) {
	var gotBody map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "Please sign in"})
			return
		}
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"success":true,"visits":[{"region_code":"mk-46","region_name":"Ohrid"},{"region_code":"mk-71"}]}`))
		case http.MethodPost:
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.Write([]byte(`{"success":true,"added":1,"removed":2}`))
		}
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL+"/", "tok")
	codes, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !reflect.DeepEqual(codes, []string{"mk-46", "mk-71"}) {
		t.Errorf("Fetch() = %v", codes)
	}

	res, err := c.Replace(context.Background(), nil)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if res != (SaveResult{Added: 1, Removed: 2}) {
		t.Errorf("Replace() = %+v", res)
	}
	if codes, ok := gotBody["visited_region_codes"]; !ok || codes == nil || len(codes) != 0 {
		t.Errorf("request body = %v, want empty visited_region_codes array", gotBody)
	}

	anon := NewAPIClient(srv.URL, "")
	if _, err := anon.Fetch(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous Fetch() error = %v, want ErrUnauthorized", err)
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusBadRequest, ErrValidation},
		{http.StatusInternalServerError, ErrServer},
		{http.StatusTooManyRequests, ErrServer},
	}
	for _, tt := range tests {
		if err := statusError(tt.code, ""); !errors.Is(err, tt.want) {
			t.Errorf("statusError(%d) = %v, want %v", tt.code, err, tt.want)
		}
	}
}

func TestTrackerOverHTTP(t *testing.T) {
	server := []string{"mk-46", "mk-71"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body map[string][]string
			json.NewDecoder(r.Body).Decode(&body)
			server = body["visited_region_codes"]
			w.Write([]byte(`{"success":true,"added":0,"removed":1}`))
			return
		}
		visits := make([]map[string]string, 0, len(server))
		for _, c := range server {
			visits = append(visits, map[string]string{"region_code": c})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "visits": visits})
	}))
	defer srv.Close()

	tr := NewTracker(NewAPIClient(srv.URL, "tok"))
	if err := tr.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Toggle("mk-46"); err != nil {
		t.Fatal(err)
	}
	res, err := tr.Save(context.Background())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if res.Removed != 1 || !reflect.DeepEqual(server, []string{"mk-71"}) {
		t.Errorf("Save() = %+v, server = %v", res, server)
	}
}
