package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// fakeKeycloak serves the subset of the admin REST API the adapter uses.
type fakeKeycloak struct {
	mu        sync.Mutex
	logins    int
	users     map[string]map[string]any // by id
	passwords map[string]string
	roles     map[string][]string
	nextID    int
}

func newFakeKeycloak(t *testing.T) (*fakeKeycloak, *httptest.Server) {
	t.Helper()
	f := &fakeKeycloak{
		users:     make(map[string]map[string]any),
		passwords: make(map[string]string),
		roles:     make(map[string][]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /realms/test/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.logins++
		f.mu.Unlock()
		_ = r.ParseForm()
		if r.Form.Get("client_id") != "auth-service" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "admin-token", "expires_in": 300})
	})
	mux.HandleFunc("POST /admin/realms/test/users", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.nextID++
		id := "kc-" + string(rune('0'+f.nextID))
		body["id"] = id
		f.users[id] = body
		f.mu.Unlock()
		w.Header().Set("Location", "http://"+r.Host+"/admin/realms/test/users/"+id)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /admin/realms/test/users", func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []map[string]any{}
		for _, u := range f.users {
			if u["username"] == username {
				out = append(out, u)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("PUT /admin/realms/test/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.users[r.PathValue("id")]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.users[r.PathValue("id")] = body
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /admin/realms/test/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.users, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /admin/realms/test/users/{id}/reset-password", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.passwords[r.PathValue("id")], _ = body["value"].(string)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /admin/realms/test/roles/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if name != "ROLE_USER" && name != "ROLE_ADMIN" {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "Could not find role"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "role-" + name, "name": name})
	})
	mux.HandleFunc("POST /admin/realms/test/users/{id}/role-mappings/realm", func(w http.ResponseWriter, r *http.Request) {
		var body []map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		for _, role := range body {
			name, _ := role["name"].(string)
			f.roles[r.PathValue("id")] = append(f.roles[r.PathValue("id")], name)
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestKeycloak(t *testing.T, baseURL string) *Keycloak {
	t.Helper()
	kc, err := NewKeycloak(KeycloakConfig{
		BaseURL:      baseURL,
		Realm:        "test",
		ClientID:     "auth-service",
		ClientSecret: "secret",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewKeycloak returned error: %v", err)
	}
	return kc
}

func TestKeycloak_UserLifecycle(t *testing.T) {
	fake, srv := newFakeKeycloak(t)
	kc := newTestKeycloak(t, srv.URL)
	ctx := context.Background()

	id, err := kc.CreateUser(ctx, ports.IdentityUser{
		Login:     "alice@example.com",
		Password:  "pw1",
		Role:      domain.RoleUser,
		FirstName: "Alice",
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if fake.passwords[id] != "pw1" {
		t.Fatalf("expected password set, got %q", fake.passwords[id])
	}
	if roles := fake.roles[id]; len(roles) != 1 || roles[0] != "ROLE_USER" {
		t.Fatalf("expected ROLE_USER mapping, got %v", roles)
	}
	if fake.users[id]["email"] != "alice@example.com" || fake.users[id]["emailVerified"] != true {
		t.Fatalf("expected verified email, got %v", fake.users[id])
	}

	exists, err := kc.UserExists(ctx, "alice@example.com")
	if err != nil || !exists {
		t.Fatalf("expected user to exist, got %v %v", exists, err)
	}

	if err := kc.UpdateUserProfile(ctx, "alice@example.com", "alice.new@example.com", "Alice", "Doe"); err != nil {
		t.Fatalf("UpdateUserProfile returned error: %v", err)
	}
	if fake.users[id]["username"] != "alice.new@example.com" || fake.users[id]["lastName"] != "Doe" {
		t.Fatalf("unexpected user after update: %v", fake.users[id])
	}

	if err := kc.DeleteUser(ctx, "alice.new@example.com"); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}
	if len(fake.users) != 0 {
		t.Fatalf("expected user removed")
	}

	if fake.logins != 1 {
		t.Fatalf("expected the admin token to be cached, got %d logins", fake.logins)
	}
}

func TestKeycloak_NonEmailLoginHasNoEmail(t *testing.T) {
	fake, srv := newFakeKeycloak(t)
	kc := newTestKeycloak(t, srv.URL)

	id, err := kc.CreateUser(context.Background(), ports.IdentityUser{Login: "bob", Password: "pw", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if _, ok := fake.users[id]["email"]; ok {
		t.Fatalf("email must not be set for a non-email login")
	}
}

func TestKeycloak_MissingUsers(t *testing.T) {
	_, srv := newFakeKeycloak(t)
	kc := newTestKeycloak(t, srv.URL)
	ctx := context.Background()

	if err := kc.UpdateUserProfile(ctx, "ghost", "ghost2", "", ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := kc.DeleteUser(ctx, "ghost"); err != nil {
		t.Fatalf("deleting an unknown user must succeed, got %v", err)
	}
	if exists, err := kc.UserExists(ctx, "ghost"); err != nil || exists {
		t.Fatalf("expected ghost to be absent, got %v %v", exists, err)
	}
}

func TestKeycloak_LoginFailure(t *testing.T) {
	_, srv := newFakeKeycloak(t)
	kc, err := NewKeycloak(KeycloakConfig{BaseURL: srv.URL, Realm: "test", ClientID: "intruder"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewKeycloak returned error: %v", err)
	}
	if _, err := kc.UserExists(context.Background(), "x"); err == nil {
		t.Fatalf("expected login error")
	}
}

func TestNewKeycloak_Validation(t *testing.T) {
	cases := []KeycloakConfig{
		{Realm: "test", ClientID: "c"},
		{BaseURL: "http://kc", ClientID: "c"},
		{BaseURL: "http://kc", Realm: "test", AuthType: "magic"},
		{BaseURL: "http://kc", Realm: "test", AuthType: AuthTypeAdmin},
		{BaseURL: "http://kc", Realm: "test"},
	}
	for _, cfg := range cases {
		if _, err := NewKeycloak(cfg, zerolog.Nop()); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestDisabled(t *testing.T) {
	var idp ports.IdentityProvider = Disabled{}
	if idp.Enabled() {
		t.Fatalf("disabled provider must report disabled")
	}
	if _, err := idp.CreateUser(context.Background(), ports.IdentityUser{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
