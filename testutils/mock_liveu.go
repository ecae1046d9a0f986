package testutils

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// MockLiveU provides a mock LiveU cloud (login service and REST API) for testing
type MockLiveU struct {
	Server *httptest.Server
	URL    string

	Email    string
	Password string

	mu               sync.Mutex
	token            string
	logins           int
	alwaysDeny       bool
	hits             map[string]int
	inventory        interface{}
	inventoryStatus  int
	interfaces       interface{}
	interfacesStatus int
	battery          interface{}
	batteryStatus    int
	video            interface{}
	videoStatus      int
	startStatus      int
	stopStatus       int
}

// NewMockLiveU creates a mock cloud accepting the credentials from GetTestCredentials
func NewMockLiveU() *MockLiveU {
	m := &MockLiveU{
		Email:            "streamer@example.com",
		Password:         "hunter2",
		hits:             make(map[string]int),
		inventory:        map[string]interface{}{"units": []map[string]interface{}{{"id": "boss-1", "reg_code": "REG-1"}}},
		inventoryStatus:  http.StatusOK,
		interfaces:       []interface{}{},
		interfacesStatus: http.StatusOK,
		battery:          map[string]interface{}{"connected": true, "percentage": 80, "runTimeToEmpty": 0, "charging": true, "discharging": false},
		batteryStatus:    http.StatusOK,
		video:            map[string]interface{}{},
		videoStatus:      http.StatusOK,
		startStatus:      http.StatusCreated,
		stopStatus:       http.StatusNoContent,
	}

	router := mux.NewRouter()
	router.HandleFunc("/zendesk/userlogin", m.handleLogin).Methods("POST")

	api := router.PathPrefix("/").Subrouter()
	api.Use(m.authMiddleware)
	api.HandleFunc("/inventories", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		inventory, status := m.inventory, m.inventoryStatus
		m.mu.Unlock()
		writeJSON(w, status, map[string]interface{}{
			"data": map[string]interface{}{"inventories": []interface{}{inventory}},
		})
	}).Methods("GET")
	api.HandleFunc("/units/{id}/status/{kind}", m.handleStatus).Methods("GET")
	api.HandleFunc("/units/{id}/stream", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		status := m.startStatus
		if r.Method == http.MethodDelete {
			status = m.stopStatus
		}
		m.mu.Unlock()
		w.WriteHeader(status)
	}).Methods("POST", "DELETE")

	server := httptest.NewServer(router)
	m.Server = server
	m.URL = server.URL
	return m
}

func (m *MockLiveU) handleLogin(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits["login"]++

	user, pass, ok := r.BasicAuth()
	if !ok || user != m.Email || pass != m.Password {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if !strings.HasPrefix(r.Header.Get("x-user-name"), m.Email) {
		http.Error(w, "Missing session header", http.StatusBadRequest)
		return
	}

	m.logins++
	m.token = fmt.Sprintf("token-%d", m.logins)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"data": map[string]interface{}{
			"response": map[string]interface{}{
				"access_token": m.token,
				"expires_in":   3600,
			},
		},
	}); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (m *MockLiveU) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.hits[r.Method+" "+r.URL.Path]++
		valid := !m.alwaysDeny && m.token != "" &&
			r.Header.Get("Authorization") == "Bearer "+m.token &&
			r.Header.Get("application-id") != ""
		m.mu.Unlock()

		if !valid {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *MockLiveU) handleStatus(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	var body interface{}
	var status int
	switch mux.Vars(r)["kind"] {
	case "interfaces":
		body, status = m.interfaces, m.interfacesStatus
	case "battery":
		body, status = m.battery, m.batteryStatus
	case "video":
		body, status = m.video, m.videoStatus
	default:
		status = http.StatusNotFound
	}
	m.mu.Unlock()

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// Close shuts down the mock server
func (m *MockLiveU) Close() {
	m.Server.Close()
}

// GetTestCredentials returns the email and password the mock accepts
func (m *MockLiveU) GetTestCredentials() (string, string) {
	return m.Email, m.Password
}

// ExpireToken invalidates the current token so the next API call gets a 401
func (m *MockLiveU) ExpireToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = "expired"
}

// DenyAll makes every API call return 401 regardless of the token
func (m *MockLiveU) DenyAll(deny bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alwaysDeny = deny
}

// Logins returns the number of successful logins
func (m *MockLiveU) Logins() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins
}

// Hits returns how often a request key ("GET /inventories", "login") was seen
func (m *MockLiveU) Hits(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[key]
}

// SetInventory sets the first inventory body and status
func (m *MockLiveU) SetInventory(body interface{}, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory, m.inventoryStatus = body, status
}

// SetInterfaces sets the interfaces body and status
func (m *MockLiveU) SetInterfaces(body interface{}, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interfaces, m.interfacesStatus = body, status
}

// SetBattery sets the battery body and status
func (m *MockLiveU) SetBattery(body interface{}, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.battery, m.batteryStatus = body, status
}

// SetVideo sets the video body and status
func (m *MockLiveU) SetVideo(body interface{}, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.video, m.videoStatus = body, status
}

// SetStreamStatus sets the status codes returned by start and stop
func (m *MockLiveU) SetStreamStatus(start, stop int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startStatus, m.stopStatus = start, stop
}
