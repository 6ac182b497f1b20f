package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/ports"
)

const (
	AuthTypeClient = "client"
	AuthTypeAdmin  = "admin"

	defaultTimeout    = 5 * time.Second
	defaultAdminRealm = "master"
	tokenSkew         = 10 * time.Second
)

// ErrUserNotFound is returned when an update targets a user the IdP does not know.
var ErrUserNotFound = errors.New("identity provider user not found")

// KeycloakConfig selects the realm and the admin credentials used to manage it.
type KeycloakConfig struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	// AuthType is "client" (client credentials with a realm-management
	// service account) or "admin" (password grant against AdminRealm).
	AuthType      string
	AdminUsername string
	AdminPassword string
	AdminRealm    string
	Timeout       time.Duration
}

// Keycloak mirrors users into a Keycloak realm through the admin REST API.
type Keycloak struct {
	client *gocloak.GoCloak
	cfg    KeycloakConfig
	log    zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewKeycloak(cfg KeycloakConfig, log zerolog.Logger) (*Keycloak, error) {
	if cfg.BaseURL == "" || cfg.Realm == "" {
		return nil, errors.New("keycloak: base url and realm are required")
	}
	cfg.AuthType = strings.ToLower(strings.TrimSpace(cfg.AuthType))
	switch cfg.AuthType {
	case "":
		cfg.AuthType = AuthTypeClient
	case AuthTypeClient, AuthTypeAdmin:
	default:
		return nil, fmt.Errorf("keycloak: unknown auth type %q", cfg.AuthType)
	}
	if cfg.AuthType == AuthTypeAdmin && (cfg.AdminUsername == "" || cfg.AdminPassword == "") {
		return nil, errors.New("keycloak: admin auth requires username and password")
	}
	if cfg.AuthType == AuthTypeClient && cfg.ClientID == "" {
		return nil, errors.New("keycloak: client auth requires a client id")
	}
	if cfg.AdminRealm == "" {
		cfg.AdminRealm = defaultAdminRealm
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := gocloak.NewClient(strings.TrimRight(cfg.BaseURL, "/"))
	client.RestyClient().SetTimeout(cfg.Timeout)

	return &Keycloak{client: client, cfg: cfg, log: log, now: time.Now}, nil
}

func (k *Keycloak) Enabled() bool { return true }

// CreateUser creates an enabled, verified account with a permanent password
// and assigns the realm role matching user.Role.
func (k *Keycloak) CreateUser(ctx context.Context, user ports.IdentityUser) (string, error) {
	token, err := k.accessToken(ctx)
	if err != nil {
		return "", err
	}

	rep := gocloak.User{
		Username:        gocloak.StringP(user.Login),
		Enabled:         gocloak.BoolP(true),
		FirstName:       gocloak.StringP(user.FirstName),
		LastName:        gocloak.StringP(user.LastName),
		RequiredActions: &[]string{},
	}
	setEmail(&rep, user.Login)

	id, err := k.client.CreateUser(ctx, token, k.cfg.Realm, rep)
	if err != nil {
		return "", k.wrap("create user", err)
	}

	if user.Password != "" {
		if err := k.client.SetPassword(ctx, token, id, k.cfg.Realm, user.Password, false); err != nil {
			return id, k.wrap("set password", err)
		}
	}

	role, err := k.client.GetRealmRole(ctx, token, k.cfg.Realm, user.Role.String())
	if err != nil {
		return id, k.wrap("get realm role "+user.Role.String(), err)
	}
	if err := k.client.AddRealmRoleToUser(ctx, token, k.cfg.Realm, id, []gocloak.Role{*role}); err != nil {
		return id, k.wrap("assign realm role", err)
	}

	k.log.Info().Str("login", user.Login).Str("id", id).Msg("keycloak user created")
	return id, nil
}

// UpdateUserProfile renames the account and updates its names.
func (k *Keycloak) UpdateUserProfile(ctx context.Context, oldLogin, newLogin, firstName, lastName string) error {
	token, err := k.accessToken(ctx)
	if err != nil {
		return err
	}

	id, err := k.findUserID(ctx, token, oldLogin)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: %s", ErrUserNotFound, oldLogin)
	}

	rep := gocloak.User{
		ID:        gocloak.StringP(id),
		Username:  gocloak.StringP(newLogin),
		Enabled:   gocloak.BoolP(true),
		FirstName: gocloak.StringP(firstName),
		LastName:  gocloak.StringP(lastName),
	}
	setEmail(&rep, newLogin)

	if err := k.client.UpdateUser(ctx, token, k.cfg.Realm, rep); err != nil {
		return k.wrap("update user", err)
	}
	return nil
}

// DeleteUser removes the account. A user the IdP does not know is not an error.
func (k *Keycloak) DeleteUser(ctx context.Context, login string) error {
	token, err := k.accessToken(ctx)
	if err != nil {
		return err
	}

	id, err := k.findUserID(ctx, token, login)
	if err != nil || id == "" {
		return err
	}
	if err := k.client.DeleteUser(ctx, token, k.cfg.Realm, id); err != nil {
		return k.wrap("delete user", err)
	}
	return nil
}

func (k *Keycloak) UserExists(ctx context.Context, login string) (bool, error) {
	token, err := k.accessToken(ctx)
	if err != nil {
		return false, err
	}
	id, err := k.findUserID(ctx, token, login)
	return id != "", err
}

func (k *Keycloak) findUserID(ctx context.Context, token, login string) (string, error) {
	users, err := k.client.GetUsers(ctx, token, k.cfg.Realm, gocloak.GetUsersParams{
		Username: gocloak.StringP(login),
		Exact:    gocloak.BoolP(true),
	})
	if err != nil {
		return "", k.wrap("search users", err)
	}
	for _, u := range users {
		if u != nil && u.ID != nil {
			return *u.ID, nil
		}
	}
	return "", nil
}

// accessToken returns a cached admin token, logging in again shortly before
// it expires.
func (k *Keycloak) accessToken(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.token != "" && k.now().Before(k.expires) {
		return k.token, nil
	}

	var (
		jwt *gocloak.JWT
		err error
	)
	if k.cfg.AuthType == AuthTypeAdmin {
		jwt, err = k.client.LoginAdmin(ctx, k.cfg.AdminUsername, k.cfg.AdminPassword, k.cfg.AdminRealm)
	} else {
		jwt, err = k.client.LoginClient(ctx, k.cfg.ClientID, k.cfg.ClientSecret, k.cfg.Realm)
	}
	if err != nil {
		return "", fmt.Errorf("keycloak login: %w", err)
	}

	k.token = jwt.AccessToken
	k.expires = k.now().Add(time.Duration(jwt.ExpiresIn)*time.Second - tokenSkew)
	return k.token, nil
}

// wrap drops the cached token on 401 so the next call logs in again.
func (k *Keycloak) wrap(op string, err error) error {
	var apiErr *gocloak.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		k.mu.Lock()
		k.token = ""
		k.mu.Unlock()
	}
	return fmt.Errorf("keycloak %s: %w", op, err)
}

// setEmail uses the login as a verified email when it looks like one;
// Keycloak rejects malformed addresses.
func setEmail(rep *gocloak.User, login string) {
	if strings.Contains(login, "@") {
		rep.Email = gocloak.StringP(login)
		rep.EmailVerified = gocloak.BoolP(true)
	}
}
