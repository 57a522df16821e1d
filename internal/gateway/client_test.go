package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kaimanfr/checkin/internal/models"
	"github.com/kaimanfr/checkin/internal/services"
	"github.com/kaimanfr/checkin/internal/session"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// fakeBackend serves register plus one bearer-protected metric endpoint.
// Tokens issued before Register is called are treated as expired.
type fakeBackend struct {
	registerCalls int
	metricCalls   int
	validToken    string
	alwaysExpired bool
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		b.registerCalls++
		var req struct {
			Username string `json:"username"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username == "" {
			http.Error(w, "username required", http.StatusBadRequest)
			return
		}
		b.validToken = "fresh-token"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": b.validToken, "refresh_token": "refresh-1"})
	})
	mux.HandleFunc("/api/metric", func(w http.ResponseWriter, r *http.Request) {
		b.metricCalls++
		if b.alwaysExpired || r.Header.Get("Authorization") != "Bearer "+b.validToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.CurrentUser{User: models.User{ID: 7}})
	})
	return mux
}

func report() *models.DailyMetricsReport {
	return &models.DailyMetricsReport{
		ID:        "r1",
		Entries:   []models.MetricEntry{{Key: "hasfever", Value: true}},
		Timestamp: time.Date(2020, 4, 7, 9, 0, 0, 0, time.UTC),
	}
}

func TestPostMetricRefreshesTokenOnce(t *testing.T) {
	backend := &fakeBackend{validToken: "fresh-token-not-yet-issued"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	creds := session.NewMemoryStore()
	_ = creds.SaveSession(models.Session{Email: "user@example.com", AccessToken: "stale"})
	client := New(srv.URL, creds, testLog())

	user, err := client.PostMetric(context.Background(), report())
	if err != nil {
		t.Fatalf("PostMetric: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("user id = %d, want 7", user.ID)
	}
	if backend.registerCalls != 1 {
		t.Fatalf("register calls = %d, want exactly 1", backend.registerCalls)
	}
	if backend.metricCalls != 2 {
		t.Fatalf("metric calls = %d, want 2 (original + one retry)", backend.metricCalls)
	}
	sess, _ := creds.Session()
	if sess.AccessToken != "fresh-token" {
		t.Fatalf("session token = %q, want fresh-token", sess.AccessToken)
	}
}

func TestPostMetricSecondAuthFailureIsTerminal(t *testing.T) {
	backend := &fakeBackend{alwaysExpired: true}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	creds := session.NewMemoryStore()
	_ = creds.SaveSession(models.Session{Email: "user@example.com", AccessToken: "stale"})
	client := New(srv.URL, creds, testLog())

	_, err := client.PostMetric(context.Background(), report())
	if !services.HasCode(err, services.ErrorAuthExpired) {
		t.Fatalf("PostMetric = %v, want auth_expired error", err)
	}
	if backend.metricCalls != 2 {
		t.Fatalf("metric calls = %d, want exactly 2 (no third attempt)", backend.metricCalls)
	}
	if backend.registerCalls != 1 {
		t.Fatalf("register calls = %d, want 1", backend.registerCalls)
	}
}

func TestRegisterWithoutEmail(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := New(srv.URL, session.NewMemoryStore(), testLog())
	err := client.Register(context.Background())
	if !services.HasCode(err, services.ErrorMissingEmail) {
		t.Fatalf("Register = %v, want missing_email error", err)
	}
	if backend.registerCalls != 0 {
		t.Fatalf("register endpoint hit without an email")
	}
}

func TestPostMetricPayloadShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.CurrentUser{})
	}))
	defer srv.Close()

	creds := session.NewMemoryStore()
	_ = creds.SaveSession(models.Session{Email: "user@example.com", AccessToken: "tok"})
	client := New(srv.URL, creds, testLog())

	r := report()
	if _, err := client.PostMetric(context.Background(), r); err != nil {
		t.Fatalf("PostMetric: %v", err)
	}
	if got["date"] != "2020-04-07T09:00:00Z" {
		t.Fatalf("date = %v, want RFC3339 capture time", got["date"])
	}
	if _, present := got["latitude"]; present {
		t.Fatalf("latitude serialized without coordinates")
	}

	r.Coordinates = &models.Coordinates{Latitude: 48.39, Longitude: -4.49}
	if _, err := client.PostMetric(context.Background(), r); err != nil {
		t.Fatalf("PostMetric with coordinates: %v", err)
	}
	if got["latitude"] != 48.39 || got["longitude"] != -4.49 {
		t.Fatalf("coordinates = (%v,%v), want (48.39,-4.49)", got["latitude"], got["longitude"])
	}
}

func TestNetworkErrorsAreTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	creds := session.NewMemoryStore()
	_ = creds.SaveSession(models.Session{Email: "user@example.com", AccessToken: "tok"})
	client := New(srv.URL, creds, testLog())

	_, err := client.RetrieveUser(context.Background())
	if !services.HasCode(err, services.ErrorNetwork) {
		t.Fatalf("RetrieveUser = %v, want network error", err)
	}
}

func TestDeleteFriend(t *testing.T) {
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	creds := session.NewMemoryStore()
	_ = creds.SaveSession(models.Session{Email: "user@example.com", AccessToken: "tok"})
	client := New(srv.URL, creds, testLog())

	if err := client.DeleteFriend(context.Background(), 42); err != nil {
		t.Fatalf("DeleteFriend: %v", err)
	}
	if method != http.MethodDelete || path != "/api/friend/42" {
		t.Fatalf("request = %s %s, want DELETE /api/friend/42", method, path)
	}
}
