package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/identity"
	"rollcall/internal/roster"
	"rollcall/internal/store/memstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	scheme string
}

func newServer(t *testing.T, signed bool) *testServer {
	t.Helper()
	mem := memstore.New()
	accounts := identity.NewStore(mem, bcrypt.MinCost, nil)

	var tokens auth.TokenService = auth.NewOpaqueService(accounts, mem)
	if signed {
		svc, err := auth.NewSignedService(accounts, auth.SignedConfig{Key: "handler-test"})
		if err != nil {
			t.Fatal(err)
		}
		tokens = svc
	}
	h := New(accounts, tokens, roster.NewService(mem), attendance.NewLedger(mem, nil), nil)
	r := gin.New()
	h.Routes(r)
	return &testServer{t: t, router: r, scheme: tokens.Scheme()}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", s.scheme+" "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) expect(w *httptest.ResponseRecorder, status int, body string) {
	s.t.Helper()
	if w.Code != status {
		s.t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body)
	}
	if body != "" && w.Body.String() != body {
		s.t.Fatalf("body = %s, want %s", w.Body, body)
	}
}

// login registers username and returns an access token.
func (s *testServer) login(username, password string) string {
	s.t.Helper()
	creds := map[string]string{"username": username, "password": password}
	s.expect(s.do(http.MethodPost, "/register", "", creds), http.StatusCreated, `{"message":"Teacher registered successfully"}`)
	w := s.do(http.MethodPost, "/login", "", creds)
	s.expect(w, http.StatusOK, "")
	var resp struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		s.t.Fatal(err)
	}
	if resp.Token != "" {
		return resp.Token
	}
	return resp.AccessToken
}

func TestPercentageScenario(t *testing.T) {
	for _, signed := range []bool{false, true} {
		name := "opaque"
		if signed {
			name = "signed"
		}
		t.Run(name, func(t *testing.T) {
			s := newServer(t, signed)
			tok := s.login("alice", "pw1")

			s.expect(s.do(http.MethodPost, "/students", tok, map[string]string{"name": "Bob", "roll_number": "101"}),
				http.StatusCreated, `{"message":"Student added"}`)
			s.expect(s.do(http.MethodPost, "/attendance/101", tok, map[string]any{"date": "2024-01-10", "status": true}),
				http.StatusCreated, `{"message":"Attendance marked"}`)
			s.expect(s.do(http.MethodPost, "/attendance/101", tok, map[string]any{"date": "2024-01-11", "status": false}),
				http.StatusCreated, "")
			s.expect(s.do(http.MethodGet, "/attendance/percentage/101", tok, nil),
				http.StatusOK, `{"roll_number":"101","attendance_percentage":50}`)
		})
	}
}

func TestLoginResponses(t *testing.T) {
	t.Run("opaque returns the same token twice", func(t *testing.T) {
		s := newServer(t, false)
		first := s.login("alice", "pw")
		w := s.do(http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "pw"})
		var resp loginResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Message != "Login successful" || resp.Token != first {
			t.Fatalf("second login = %+v", resp)
		}
		s.expect(s.do(http.MethodPost, "/token/refresh", "", map[string]string{"refresh_token": "x"}), http.StatusNotFound, "")
	})

	t.Run("signed returns a pair and refreshes", func(t *testing.T) {
		s := newServer(t, true)
		s.login("alice", "pw")
		w := s.do(http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "pw"})
		var pair tokenPairResponse
		_ = json.Unmarshal(w.Body.Bytes(), &pair)
		if pair.AccessToken == "" || pair.RefreshToken == "" {
			t.Fatalf("login = %s", w.Body)
		}

		w = s.do(http.MethodPost, "/token/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
		s.expect(w, http.StatusOK, "")
		var fresh accessTokenResponse
		_ = json.Unmarshal(w.Body.Bytes(), &fresh)
		s.expect(s.do(http.MethodGet, "/students", fresh.AccessToken, nil), http.StatusOK, "[]")

		s.expect(s.do(http.MethodPost, "/token/refresh", "", map[string]string{"refresh_token": pair.AccessToken}),
			http.StatusUnauthorized, `{"error":"Unauthorized"}`)
		s.expect(s.do(http.MethodGet, "/students", pair.RefreshToken, nil),
			http.StatusUnauthorized, `{"error":"Unauthorized"}`)
	})

	t.Run("bad credentials", func(t *testing.T) {
		s := newServer(t, false)
		s.login("alice", "pw")
		s.expect(s.do(http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "nope"}),
			http.StatusUnauthorized, `{"error":"Invalid credentials"}`)
		s.expect(s.do(http.MethodPost, "/login", "", map[string]string{"username": "ghost", "password": "pw"}),
			http.StatusUnauthorized, `{"error":"Invalid credentials"}`)
		s.expect(s.do(http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": strings.Repeat("x", 73)}),
			http.StatusUnauthorized, `{"error":"Invalid credentials"}`)
		s.expect(s.do(http.MethodPost, "/login", "", map[string]string{"username": strings.Repeat("a", 151), "password": "pw"}),
			http.StatusUnauthorized, `{"error":"Invalid credentials"}`)
	})
}

func TestRegisterErrors(t *testing.T) {
	s := newServer(t, false)
	s.login("alice", "pw")
	tests := []struct {
		name   string
		body   any
		status int
		want   string
	}{
		{"duplicate", map[string]string{"username": "alice", "password": "x"}, http.StatusConflict, `{"error":"Username already taken"}`},
		{"missing password", map[string]string{"username": "bob"}, http.StatusBadRequest, `{"error":"password is required"}`},
		{"malformed json", `{"username":`, http.StatusBadRequest, ""},
		{"wrong type", `{"username":1,"password":"x"}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.t = t
			s.expect(s.do(http.MethodPost, "/register", "", tt.body), tt.status, tt.want)
		})
	}
}

func TestLogout(t *testing.T) {
	s := newServer(t, false)
	tok := s.login("alice", "pw")
	s.expect(s.do(http.MethodPost, "/logout", tok, nil), http.StatusOK, `{"message":"Logout successful"}`)
	s.expect(s.do(http.MethodGet, "/students", tok, nil), http.StatusUnauthorized, `{"error":"Unauthorized"}`)
	s.expect(s.do(http.MethodPost, "/logout", "", nil), http.StatusUnauthorized, `{"error":"Unauthorized"}`)
}

func TestStudentRoutes(t *testing.T) {
	s := newServer(t, true)
	alice := s.login("alice", "pw")
	carol := s.login("carol", "pw")

	s.expect(s.do(http.MethodPost, "/students", alice, map[string]string{"name": "Ann", "roll_number": "1"}), http.StatusCreated, "")
	s.expect(s.do(http.MethodPost, "/students", alice, map[string]string{"name": "Ben", "roll_number": "2"}), http.StatusCreated, "")
	s.expect(s.do(http.MethodPost, "/students", alice, map[string]string{"name": "Dup", "roll_number": "1"}),
		http.StatusConflict, `{"error":"Student with this roll number already exists"}`)
	s.expect(s.do(http.MethodPost, "/students", carol, map[string]string{"name": "Ann", "roll_number": "1"}), http.StatusCreated, "")

	s.expect(s.do(http.MethodGet, "/students", alice, nil), http.StatusOK,
		`[{"name":"Ann","roll_number":"1"},{"name":"Ben","roll_number":"2"}]`)

	s.expect(s.do(http.MethodPut, "/students/2", carol, map[string]string{"name": "Nope"}),
		http.StatusNotFound, `{"error":"Student not found"}`)
	s.expect(s.do(http.MethodPut, "/students/2", alice, map[string]string{"name": "Benjamin"}),
		http.StatusOK, `{"message":"Student updated"}`)
	s.expect(s.do(http.MethodDelete, "/students/2", carol, nil), http.StatusNotFound, `{"error":"Student not found"}`)
	s.expect(s.do(http.MethodDelete, "/students/2", alice, nil), http.StatusOK, `{"message":"Student deleted"}`)

	s.expect(s.do(http.MethodGet, "/students", alice, nil), http.StatusOK, `[{"name":"Ann","roll_number":"1"}]`)
	s.expect(s.do(http.MethodGet, "/students", "", nil), http.StatusUnauthorized, `{"error":"Unauthorized"}`)
}

func TestAttendanceRoutes(t *testing.T) {
	s := newServer(t, false)
	alice := s.login("alice", "pw")
	carol := s.login("carol", "pw")
	for _, st := range []map[string]string{{"name": "Zed", "roll_number": "2"}, {"name": "Amy", "roll_number": "1"}} {
		s.expect(s.do(http.MethodPost, "/students", alice, st), http.StatusCreated, "")
	}

	s.expect(s.do(http.MethodPost, "/attendance/1", alice, map[string]any{"date": "2024-02-01", "status": true}), http.StatusCreated, "")
	s.expect(s.do(http.MethodPost, "/attendance/2", alice, map[string]any{"date": "2024-02-01", "status": false}), http.StatusCreated, "")
	s.expect(s.do(http.MethodPost, "/attendance/1", alice, map[string]any{"date": "2024-02-01", "status": false}),
		http.StatusConflict, `{"error":"Attendance already marked for this date"}`)
	s.expect(s.do(http.MethodPost, "/attendance/9", alice, map[string]any{"date": "2024-02-01", "status": true}),
		http.StatusNotFound, `{"error":"Student not found"}`)
	s.expect(s.do(http.MethodPost, "/attendance/1", carol, map[string]any{"date": "2024-02-02", "status": true}),
		http.StatusNotFound, `{"error":"Student not found"}`)

	s.expect(s.do(http.MethodPost, "/attendance/1", alice, map[string]any{"date": "01/02/2024", "status": true}), http.StatusBadRequest, "")
	s.expect(s.do(http.MethodPost, "/attendance/1", alice, map[string]any{"date": "2024-02-03"}),
		http.StatusBadRequest, `{"error":"status is required"}`)

	s.expect(s.do(http.MethodGet, "/attendance/date/2024-02-01", alice, nil), http.StatusOK,
		`[{"student":"Amy","roll_number":"1","status":"Present"},{"student":"Zed","roll_number":"2","status":"Absent"}]`)
	s.expect(s.do(http.MethodGet, "/attendance/date/2024-02-01", carol, nil), http.StatusOK, `[]`)
	s.expect(s.do(http.MethodGet, "/attendance/date/yesterday", alice, nil), http.StatusBadRequest, "")

	s.expect(s.do(http.MethodPut, "/attendance/2", alice, map[string]any{"date": "2024-02-01", "status": true}),
		http.StatusOK, `{"message":"Attendance updated"}`)
	s.expect(s.do(http.MethodPut, "/attendance/2", alice, map[string]any{"date": "2024-03-01", "status": true}),
		http.StatusNotFound, `{"error":"Attendance not found"}`)
	s.expect(s.do(http.MethodPut, "/attendance/2", carol, map[string]any{"date": "2024-02-01", "status": false}),
		http.StatusNotFound, `{"error":"Attendance not found"}`)

	s.expect(s.do(http.MethodGet, "/attendance/history/2", alice, nil), http.StatusOK, `[{"date":"2024-02-01","status":true}]`)
	s.expect(s.do(http.MethodGet, "/attendance/history/2", carol, nil), http.StatusNotFound, `{"error":"Student not found"}`)
	s.expect(s.do(http.MethodGet, "/attendance/percentage/2", alice, nil), http.StatusOK,
		`{"roll_number":"2","attendance_percentage":100}`)
	s.expect(s.do(http.MethodGet, "/attendance/percentage/2", carol, nil), http.StatusOK,
		`{"roll_number":"2","attendance_percentage":0}`)
	s.expect(s.do(http.MethodGet, "/attendance/percentage/999999999999999999999", alice, nil), http.StatusOK,
		`{"roll_number":"999999999999999999999","attendance_percentage":0}`)
}
