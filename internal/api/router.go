// Package api implements the reference check-in backend used for local
// development and the integration suite. It mirrors the production REST
// surface: register, initial answers, daily metric, current user, friends.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kaimanfr/checkin/internal/catalog"
	"github.com/kaimanfr/checkin/internal/middleware"
	"github.com/kaimanfr/checkin/internal/models"
)

const accessTokenTTL = time.Hour

type Router struct {
	store *memoryStore
	log   *logrus.Entry
}

func NewRouter(log *logrus.Entry) *Router {
	return &Router{store: newMemoryStore(), log: log}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister) // POST
	mux.Handle("/api/metric/initial", middleware.RequireAuth(http.HandlerFunc(rt.handleInitialAnswers)))
	mux.Handle("/api/metric", middleware.RequireAuth(http.HandlerFunc(rt.handleMetric)))
	mux.Handle("/api/user/current", middleware.RequireAuth(http.HandlerFunc(rt.handleCurrentUser)))
	mux.Handle("/api/friend/listing", middleware.RequireAuth(http.HandlerFunc(rt.handleFriendListing)))
	mux.Handle("/api/friend/", middleware.RequireAuth(http.HandlerFunc(rt.handleFriendScoped)))
	mux.Handle("/api/seed", middleware.RequireAuth(http.HandlerFunc(rt.handleSeed)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /api/auth/register — {username} -> {token, refresh_token}.
// Registering an already known email rotates its token pair.
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(req.Username)
	if email == "" {
		http.Error(w, "username required", http.StatusBadRequest)
		return
	}
	u := rt.store.upsertByEmail(email)
	token, err := middleware.SignToken(u.ID, u.Email, accessTokenTTL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rt.log.WithField("user_id", u.ID).Info("registered")
	writeJSON(w, http.StatusOK, map[string]string{
		"token":         token,
		"refresh_token": uuid.NewString(),
	})
}

// POST /api/metric/initial — map of question key to answer token.
func (rt *Router) handleInitialAnswers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, _ := middleware.UserIDFromContext(r.Context())
	var answers map[string]string
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cat := catalog.InitialProfile()
	for key, tok := range answers {
		if cat.IndexOf(key) < 0 {
			http.Error(w, "unknown question key "+key, http.StatusBadRequest)
			return
		}
		if _, err := models.ParseAnswerToken(tok); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if !rt.store.setInitialAnswers(uid, answers) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rt.store.asCurrentUser(uid))
}

// POST /api/metric — {id, datas, date, latitude?, longitude?}.
func (rt *Router) handleMetric(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, _ := middleware.UserIDFromContext(r.Context())
	var req struct {
		ID        string               `json:"id"`
		Entries   []models.MetricEntry `json:"datas"`
		Date      string               `json:"date"`
		Latitude  *float64             `json:"latitude"`
		Longitude *float64             `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	when, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		http.Error(w, "date must be ISO-8601: "+err.Error(), http.StatusBadRequest)
		return
	}
	cat := catalog.DailyMetrics()
	if len(req.Entries) != cat.Len() {
		http.Error(w, "expected "+strconv.Itoa(cat.Len())+" metric entries", http.StatusBadRequest)
		return
	}
	for _, e := range req.Entries {
		if cat.IndexOf(e.Key) < 0 {
			http.Error(w, "unknown metric key "+e.Key, http.StatusBadRequest)
			return
		}
	}
	if !rt.store.addMetric(uid, models.MetricHistoryEntry{Entries: req.Entries, Timestamp: when}) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	rt.log.WithFields(logrus.Fields{"user_id": uid, "report_id": req.ID, "located": req.Latitude != nil}).Info("metric stored")
	writeJSON(w, http.StatusOK, rt.store.asCurrentUser(uid))
}

// GET|PUT /api/user/current.
func (rt *Router) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req struct {
			Lastname  string `json:"lastname"`
			Firstname string `json:"firstname"`
			Birthdate string `json:"birthdate"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Birthdate != "" {
			if _, err := time.Parse("2006-01-02", req.Birthdate); err != nil {
				http.Error(w, "birthdate must be yyyy-MM-dd", http.StatusBadRequest)
				return
			}
		}
		if !rt.store.updateProfile(uid, req.Lastname, req.Firstname, req.Birthdate) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user := rt.store.asCurrentUser(uid)
	if user == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GET /api/friend/listing.
func (rt *Router) handleFriendListing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, _ := middleware.UserIDFromContext(r.Context())
	friends := rt.store.listFriends(uid)
	if friends == nil {
		friends = []models.BasicUser{}
	}
	writeJSON(w, http.StatusOK, friends)
}

// DELETE /api/friend/{id}.
func (rt *Router) handleFriendScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, _ := middleware.UserIDFromContext(r.Context())
	idStr := strings.TrimPrefix(r.URL.Path, "/api/friend/")
	friendID, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid friend id", http.StatusBadRequest)
		return
	}
	if !rt.store.deleteFriend(uid, friendID) {
		http.Error(w, "friend not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/seed — create two demo friends for the current user.
func (rt *Router) handleSeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, _ := middleware.UserIDFromContext(r.Context())
	demo := []struct{ email, lastname, firstname string }{
		{"alice@example.com", "Martin", "Alice"},
		{"bruno@example.com", "Durand", "Bruno"},
	}
	for _, d := range demo {
		f := rt.store.upsertByEmail(d.email)
		if !rt.store.updateProfile(f.ID, d.lastname, d.firstname, "1980-01-01") {
			http.Error(w, "seed user not found", http.StatusInternalServerError)
			return
		}
		if !rt.store.addFriend(uid, f.ID) {
			http.Error(w, "could not link seed friend", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "friends": rt.store.listFriends(uid)})
}
