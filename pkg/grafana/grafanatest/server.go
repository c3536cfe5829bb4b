// Package grafanatest provides an in-memory Grafana API server for tests.
package grafanatest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/grafana-sync/pkg/grafana"
	"github.com/platinummonkey/grafana-sync/pkg/httputil"
)

// Call records one request received by the server
type Call struct {
	Method string
	Path   string
	OrgID  int64
}

// Server is a fake Grafana instance backed by httptest.Server
type Server struct {
	*httptest.Server

	Username string
	Password string

	mu          sync.Mutex
	orgs        []grafana.Org
	users       []grafana.User
	datasources map[int64][]grafana.Datasource
	members     map[int64]map[string]string
	activeOrg   int64
	nextID      int64
	calls       []Call
	failures    map[string][]int
}

// NewServer starts a fake Grafana accepting username/password
func NewServer(username, password string) *Server {
	s := &Server{
		Username:    username,
		Password:    password,
		datasources: make(map[int64][]grafana.Datasource),
		members:     make(map[int64]map[string]string),
		activeOrg:   1,
		nextID:      100,
		failures:    make(map[string][]int),
	}

	r := mux.NewRouter()
	r.Use(s.authenticate)
	r.HandleFunc("/api/orgs", s.listOrgs).Methods(http.MethodGet)
	r.HandleFunc("/api/orgs/{id:[0-9]+}", s.updateOrg).Methods(http.MethodPut)
	r.HandleFunc("/api/orgs/{id:[0-9]+}/users", s.addOrgUser).Methods(http.MethodPost)
	r.HandleFunc("/api/users", s.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id:[0-9]+}", s.updateUser).Methods(http.MethodPut)
	r.HandleFunc("/api/user/using/{id:[0-9]+}", s.switchOrg).Methods(http.MethodPost)
	r.HandleFunc("/api/datasources", s.listDatasources).Methods(http.MethodGet)
	r.HandleFunc("/api/datasources", s.createDatasource).Methods(http.MethodPost)

	s.Server = httptest.NewServer(r)
	return s
}

// AddOrg registers an org
func (s *Server) AddOrg(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs = append(s.orgs, grafana.Org{ID: id, Name: name})
}

// AddUser registers a user
func (s *Server) AddUser(user grafana.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, user)
}

// AddDatasource registers an existing datasource in orgID
func (s *Server) AddDatasource(orgID int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.datasources[orgID] = append(s.datasources[orgID], grafana.Datasource{ID: s.nextID, OrgID: orgID, Name: name})
}

// AddMember marks loginOrEmail as a member of orgID
func (s *Server) AddMember(orgID int64, loginOrEmail, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addMemberLocked(orgID, loginOrEmail, role)
}

// FailNext makes the next n requests to method and path answer with status
func (s *Server) FailNext(method, path string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	for i := 0; i < n; i++ {
		s.failures[key] = append(s.failures[key], status)
	}
}

// Orgs returns a copy of the org table
func (s *Server) Orgs() []grafana.Org {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]grafana.Org(nil), s.orgs...)
}

// Users returns a copy of the user table
func (s *Server) Users() []grafana.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]grafana.User(nil), s.users...)
}

// Datasources returns a copy of orgID's datasources
func (s *Server) Datasources(orgID int64) []grafana.Datasource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]grafana.Datasource(nil), s.datasources[orgID]...)
}

// Role returns loginOrEmail's role in orgID, empty when not a member
func (s *Server) Role(orgID int64, loginOrEmail string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[orgID][loginOrEmail]
}

// Calls returns the recorded requests
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CountCalls counts recorded requests with method and path
func (s *Server) CountCalls(method, path string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// ResetCalls clears the recorded requests
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			httputil.WriteErrorMessage(w, http.StatusUnauthorized, "invalid username or password")
			return
		}

		s.mu.Lock()
		orgID := s.activeOrg
		if header := r.Header.Get("X-Grafana-Org-Id"); header != "" {
			orgID, _ = strconv.ParseInt(header, 10, 64)
		}
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, OrgID: orgID})
		status := s.takeFailureLocked(r.Method, r.URL.Path)
		s.mu.Unlock()

		if status != 0 {
			httputil.WriteErrorMessage(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) takeFailureLocked(method, path string) int {
	key := method + " " + path
	queue := s.failures[key]
	if len(queue) == 0 {
		return 0
	}
	s.failures[key] = queue[1:]
	return queue[0]
}

func (s *Server) listOrgs(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteJSON(w, http.StatusOK, s.Orgs())
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users := s.Users()
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perpage"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if perPage > 0 && page > 0 {
		start := (page - 1) * perPage
		if start > len(users) {
			start = len(users)
		}
		end := start + perPage
		if end > len(users) {
			end = len(users)
		}
		users = users[start:end]
	}
	if users == nil {
		users = []grafana.User{}
	}
	_ = httputil.WriteJSON(w, http.StatusOK, users)
}

func (s *Server) updateOrg(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var update grafana.OrgUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httputil.WriteErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orgs {
		if s.orgs[i].ID == id {
			s.orgs[i].Name = update.Name
			_ = httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Organization updated"})
			return
		}
	}
	httputil.WriteErrorMessage(w, http.StatusNotFound, "organization not found")
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var update grafana.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httputil.WriteErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].Name = update.Name
			s.users[i].Login = update.Login
			s.users[i].Email = update.Email
			_ = httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "User updated"})
			return
		}
	}
	httputil.WriteErrorMessage(w, http.StatusNotFound, "user not found")
}

func (s *Server) addOrgUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var req grafana.AddOrgUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.members[id][req.LoginOrEmail]; exists {
		httputil.WriteErrorMessage(w, http.StatusConflict, "User is already member of this organization")
		return
	}
	s.addMemberLocked(id, req.LoginOrEmail, req.Role)
	_ = httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "User added to organization"})
}

func (s *Server) addMemberLocked(orgID int64, loginOrEmail, role string) {
	if s.members[orgID] == nil {
		s.members[orgID] = make(map[string]string)
	}
	s.members[orgID][loginOrEmail] = role
}

func (s *Server) switchOrg(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, member := s.members[id][s.Username]; !member {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "Not a valid organization")
		return
	}
	s.activeOrg = id
	_ = httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Active organization changed"})
}

func (s *Server) listDatasources(w http.ResponseWriter, r *http.Request) {
	orgID := s.requestOrg(r)
	datasources := s.Datasources(orgID)
	if datasources == nil {
		datasources = []grafana.Datasource{}
	}
	_ = httputil.WriteJSON(w, http.StatusOK, datasources)
}

func (s *Server) createDatasource(w http.ResponseWriter, r *http.Request) {
	orgID := s.requestOrg(r)
	var req grafana.CreateDatasourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ds := range s.datasources[orgID] {
		if ds.Name == req.Name {
			httputil.WriteErrorMessage(w, http.StatusConflict, "data source with the same name already exists")
			return
		}
	}
	s.nextID++
	ds := grafana.Datasource{ID: s.nextID, OrgID: orgID, Name: req.Name, Type: req.Type, URL: req.URL}
	s.datasources[orgID] = append(s.datasources[orgID], ds)

	_ = httputil.WriteJSON(w, http.StatusOK, grafana.CreateDatasourceResponse{
		ID:         ds.ID,
		Message:    "Datasource added",
		Name:       ds.Name,
		Datasource: ds,
	})
}

func (s *Server) requestOrg(r *http.Request) int64 {
	if header := r.Header.Get("X-Grafana-Org-Id"); header != "" {
		if id, err := strconv.ParseInt(header, 10, 64); err == nil {
			return id
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeOrg
}
