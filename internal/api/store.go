package api

import (
	"sort"
	"sync"

	"github.com/kaimanfr/checkin/internal/models"
)

// serverUser is the backend-side record behind one registered email.
type serverUser struct {
	ID             int
	Email          string
	Lastname       string
	Firstname      string
	Birthdate      string
	PostalCode     string
	InitialAnswers map[string]string
	Metrics        []models.MetricHistoryEntry
	Friends        map[int]bool
}

type memoryStore struct {
	mu           sync.RWMutex
	nextID       int
	usersByID    map[int]*serverUser
	usersByEmail map[string]*serverUser
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID:       1,
		usersByID:    map[int]*serverUser{},
		usersByEmail: map[string]*serverUser{},
	}
}

// upsertByEmail returns the user for an email, creating it on first
// registration.
func (s *memoryStore) upsertByEmail(email string) *serverUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.usersByEmail[email]; ok {
		return u
	}
	u := &serverUser{ID: s.nextID, Email: email, Friends: map[int]bool{}}
	s.nextID++
	s.usersByID[u.ID] = u
	s.usersByEmail[email] = u
	return u
}

func (s *memoryStore) get(id int) *serverUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usersByID[id]
}

func (s *memoryStore) setInitialAnswers(id int, answers map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usersByID[id]
	if u == nil {
		return false
	}
	u.InitialAnswers = answers
	return true
}

func (s *memoryStore) addMetric(id int, entry models.MetricHistoryEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usersByID[id]
	if u == nil {
		return false
	}
	u.Metrics = append(u.Metrics, entry)
	return true
}

func (s *memoryStore) updateProfile(id int, lastname, firstname, birthdate string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usersByID[id]
	if u == nil {
		return false
	}
	u.Lastname = lastname
	u.Firstname = firstname
	u.Birthdate = birthdate
	return true
}

func (s *memoryStore) addFriend(id, friendID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usersByID[id]
	if u == nil || s.usersByID[friendID] == nil || friendID == id {
		return false
	}
	u.Friends[friendID] = true
	return true
}

func (s *memoryStore) listFriends(id int) []models.BasicUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.usersByID[id]
	if u == nil {
		return nil
	}
	out := make([]models.BasicUser, 0, len(u.Friends))
	for fid := range u.Friends {
		if f := s.usersByID[fid]; f != nil {
			out = append(out, models.BasicUser{ID: f.ID, Lastname: f.Lastname, Firstname: f.Firstname})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) deleteFriend(id, friendID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usersByID[id]
	if u == nil || !u.Friends[friendID] {
		return false
	}
	delete(u.Friends, friendID)
	return true
}

// asCurrentUser builds the wire projection with friends expanded.
func (s *memoryStore) asCurrentUser(id int) *models.CurrentUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.usersByID[id]
	if u == nil {
		return nil
	}
	out := &models.CurrentUser{User: models.User{
		ID:         u.ID,
		Lastname:   u.Lastname,
		Firstname:  u.Firstname,
		Birthdate:  u.Birthdate,
		PostalCode: u.PostalCode,
		Metrics:    append([]models.MetricHistoryEntry(nil), u.Metrics...),
	}}
	for fid := range u.Friends {
		if f := s.usersByID[fid]; f != nil {
			out.SharedUsers = append(out.SharedUsers, models.User{
				ID:        f.ID,
				Lastname:  f.Lastname,
				Firstname: f.Firstname,
				Birthdate: f.Birthdate,
				Metrics:   append([]models.MetricHistoryEntry(nil), f.Metrics...),
			})
		}
	}
	sort.Slice(out.SharedUsers, func(i, j int) bool { return out.SharedUsers[i].ID < out.SharedUsers[j].ID })
	return out
}
