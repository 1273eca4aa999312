package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"otcextensions/cli/pkg/config"
)

const (
	testProjectID = "0123456789abcdef0123456789abcdef"
	testToken     = "gAAAAAtest-token"
)

// fakeCloud serves the identity API and lets tests register service routes.
type fakeCloud struct {
	*httptest.Server
	Router    *mux.Router
	authCalls atomic.Int32
	expiresIn time.Duration
}

func newFakeCloud(t *testing.T) *fakeCloud {
	t.Helper()

	fc := &fakeCloud{Router: mux.NewRouter(), expiresIn: time.Hour}
	fc.Server = httptest.NewServer(fc.Router)
	t.Cleanup(fc.Close)

	fc.Router.HandleFunc("/v3/auth/tokens", fc.issueToken).Methods(http.MethodPost)
	fc.Router.HandleFunc("/v3/auth/tokens", fc.showToken).Methods(http.MethodGet)

	return fc
}

func (fc *fakeCloud) tokenBody() map[string]any {
	return map[string]any{
		"token": map[string]any{
			"expires_at": time.Now().Add(fc.expiresIn).UTC().Format(time.RFC3339),
			"project":    map[string]any{"id": testProjectID, "name": "eu-de_test"},
			"user":       map[string]any{"id": "user-1", "name": "tester"},
			"catalog": []any{
				map[string]any{
					"type": "cts",
					"name": "cts",
					"endpoints": []any{
						map[string]any{"interface": "public", "region": "eu-nl", "url": "http://elsewhere.invalid/v1.0/" + testProjectID},
						map[string]any{"interface": "public", "region": "eu-de", "url": fc.URL + "/cts/v1.0/" + testProjectID},
					},
				},
				map[string]any{
					"type": "css",
					"name": "css",
					"endpoints": []any{
						map[string]any{"interface": "public", "region": "eu-de", "region_id": "eu-de", "url": fc.URL + "/css"},
					},
				},
			},
		},
	}
}

func (fc *fakeCloud) issueToken(w http.ResponseWriter, r *http.Request) {
	fc.authCalls.Add(1)

	var req struct {
		Auth struct {
			Identity struct {
				Token struct {
					ID string `json:"id"`
				} `json:"token"`
				Password struct {
					User struct {
						Name     string `json:"name"`
						Password string `json:"password"`
					} `json:"user"`
				} `json:"password"`
			} `json:"identity"`
		} `json:"auth"`
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	identity := req.Auth.Identity
	switch {
	case err == nil && identity.Token.ID == "preissued":
		w.Header().Set("X-Subject-Token", identity.Token.ID)
	case err == nil && identity.Password.User.Password == "secret":
		w.Header().Set("X-Subject-Token", testToken)
	default:
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"code": 401, "message": "The request you have made requires authentication."}}`))
		return
	}

	writeJSON(w, http.StatusCreated, fc.tokenBody())
}

func (fc *fakeCloud) showToken(w http.ResponseWriter, r *http.Request) {
	fc.authCalls.Add(1)
	if r.Header.Get("X-Auth-Token") != "preissued" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("X-Subject-Token", r.Header.Get("X-Subject-Token"))
	writeJSON(w, http.StatusOK, fc.tokenBody())
}

func (fc *fakeCloud) config() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			AuthURL:        fc.URL + "/v3",
			Username:       "tester",
			Password:       "secret",
			UserDomainName: "Default",
			ProjectName:    "eu-de_test",
		},
		Region: "eu-de",
	}
}

// requireToken wraps a service handler with the X-Auth-Token check.
func requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Auth-Token") != testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error_msg": "invalid token"})
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
