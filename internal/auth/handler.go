package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fittrack/internal/datekey"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/users"
	"github.com/2beens/fittrack/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=auth_test

type accountStore interface {
	Create(ctx context.Context, email, passwordHash string, createdAt time.Time) (*Account, error)
	ByEmail(ctx context.Context, email string) (*Account, error)
	SetPassword(ctx context.Context, accountID, passwordHash string) error
}

type sessionStore interface {
	Login(ctx context.Context, userID string, createdAt time.Time) (string, error)
	Logout(ctx context.Context, token string) (*LoginSession, error)
	RevokeAll(ctx context.Context, userID string) ([]string, error)
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*users.Profile, error)
	Upsert(ctx context.Context, p users.Profile) error
}

const (
	MinPasswordLength = 6

	msgInvalidEmail    = "Introduce un email válido"
	msgShortPassword   = "La contraseña debe tener al menos 6 caracteres"
	msgEmailTaken      = "Ya existe una cuenta con ese email"
	msgInvalidReset    = "El enlace ha caducado o no es válido"
	msgWrongCredential = "error, wrong credentials"
)

type TokenResponse struct {
	Token string `json:"token"`
}

// User is the identity pushed to subscribers, Profile is nil until the user has one
type User struct {
	ID      string         `json:"id"`
	Profile *users.Profile `json:"profile"`
}

// IdentityMessage is what the identity stream sends, User is nil when there is no user
type IdentityMessage struct {
	User *User `json:"user"`
}

type Handler struct {
	accounts       accountStore
	sessions       sessionStore
	checker        Checker
	profiles       profileStore
	resets         *ResetTokens
	hub            *Hub
	metricsManager *metrics.Manager
	upgrader       websocket.Upgrader
	now            func() time.Time
}

func NewHandler(
	accounts accountStore,
	sessions sessionStore,
	checker Checker,
	profiles profileStore,
	resets *ResetTokens,
	hub *Hub,
	metricsManager *metrics.Manager,
	allowedOrigins ...string,
) *Handler {
	return &Handler{
		accounts:       accounts,
		sessions:       sessions,
		checker:        checker,
		profiles:       profiles,
		resets:         resets,
		hub:            hub,
		metricsManager: metricsManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		now: time.Now,
	}
}

func (handler *Handler) WithClock(now func() time.Time) *Handler {
	handler.now = now
	return handler
}

// an empty list allows any origin
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

type registerRequest struct {
	users.Profile
	Password string `json:"password"`
}

// HandleRegister creates the account and its profile, then logs the new user in
func (handler *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.register")
	defer span.End()

	if r.Header.Get("Content-Type") != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("register, unmarshal json params: %s", err)
		http.Error(w, "register failed", http.StatusBadRequest)
		return
	}

	email := NormalizeEmail(req.Email)
	if !validEmail(email) {
		http.Error(w, msgInvalidEmail, http.StatusBadRequest)
		return
	}
	if len(req.Password) < MinPasswordLength {
		http.Error(w, msgShortPassword, http.StatusBadRequest)
		return
	}
	profile := req.Profile
	if err := profile.Validate(); err != nil {
		var validationErr *users.ValidationError
		if errors.As(err, &validationErr) {
			http.Error(w, validationErr.Message, http.StatusBadRequest)
			return
		}
		http.Error(w, "register failed", http.StatusBadRequest)
		return
	}

	passwordHash, err := pkg.HashPassword(req.Password)
	if err != nil {
		log.Errorf("register, hash password: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	now := handler.now()
	acc, err := handler.accounts.Create(ctx, email, passwordHash, now)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			http.Error(w, msgEmailTaken, http.StatusConflict)
			return
		}
		log.Errorf("register, create account: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.String("account.id", acc.ID))

	profile.ID = acc.ID
	profile.Email = acc.Email
	profile.CreatedAt = datekey.Day(now)
	if err := handler.profiles.Upsert(ctx, profile); err != nil {
		// the account exists, the profile can still be completed from the profile page
		log.Errorf("register, create profile of %s: %s", acc.ID, err)
	}

	token, err := handler.sessions.Login(ctx, acc.ID, now)
	if err != nil {
		log.Errorf("register, login %s: %s", acc.ID, err)
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterLogins.WithLabelValues("register").Inc()
	writeJSON(w, TokenResponse{Token: token}, http.StatusCreated)
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.login")
	defer span.End()

	type loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var loginReq loginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		log.Errorf("login, unmarshal json params: %s", err)
		http.Error(w, "login failed", http.StatusBadRequest)
		return
	}

	if loginReq.Email == "" {
		http.Error(w, "error, email empty", http.StatusBadRequest)
		return
	}
	if loginReq.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	acc, err := Authenticate(ctx, handler.accounts, loginReq.Email, loginReq.Password)
	if err != nil {
		if errors.Is(err, ErrWrongPassword) {
			log.Tracef("failed login attempt for: %s", loginReq.Email)
			handler.metricsManager.CounterLogins.WithLabelValues("wrong_credentials").Inc()
			http.Error(w, msgWrongCredential, http.StatusBadRequest)
			return
		}
		log.Errorf("login, find account: %s", err)
		handler.metricsManager.CounterLogins.WithLabelValues("error").Inc()
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	token, err := handler.sessions.Login(ctx, acc.ID, handler.now())
	if err != nil {
		log.Errorf("login failed, generate token error: %s", err)
		handler.metricsManager.CounterLogins.WithLabelValues("error").Inc()
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	log.Trace("new login success")
	handler.metricsManager.CounterLogins.WithLabelValues("success").Inc()
	writeJSON(w, TokenResponse{Token: token}, http.StatusOK)
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	authToken := BearerToken(r)
	if authToken == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	session, err := handler.sessions.Logout(ctx, authToken)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			log.Errorf("logout => %s: %s", r.URL.Path, err)
		}
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	handler.hub.End(authToken)
	log.Debugf("logout for [%s] success", session.UserID)
	pkg.WriteTextResponseOK(w, "logged-out")
}

// HandleForgotPassword always answers 202, whether the email is registered or not
func (handler *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.password_forgot")
	defer span.End()

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, msgInvalidEmail, http.StatusBadRequest)
		return
	}

	acc, err := handler.accounts.ByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		log.Debugf("password reset for unknown email")
	case err != nil:
		log.Errorf("password reset, find account: %s", err)
	default:
		token, err := handler.resets.Issue(acc.ID)
		if err != nil {
			log.Errorf("password reset, issue token for %s: %s", acc.ID, err)
			break
		}
		// no mailer, the link is delivered through the logs
		log.Infof("password reset link for %s: /reset?token=%s", acc.Email, token)
	}

	w.WriteHeader(http.StatusAccepted)
}

// HandleResetPassword sets the new password and ends every session of the account
func (handler *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.password_reset")
	defer span.End()

	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, msgInvalidReset, http.StatusBadRequest)
		return
	}

	userID, err := handler.resets.Verify(req.Token)
	if err != nil {
		log.Debugf("password reset: %s", err)
		http.Error(w, msgInvalidReset, http.StatusBadRequest)
		return
	}
	if len(req.Password) < MinPasswordLength {
		http.Error(w, msgShortPassword, http.StatusBadRequest)
		return
	}

	passwordHash, err := pkg.HashPassword(req.Password)
	if err != nil {
		log.Errorf("password reset, hash password: %s", err)
		http.Error(w, "password reset failed", http.StatusInternalServerError)
		return
	}
	if err := handler.accounts.SetPassword(ctx, userID, passwordHash); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			http.Error(w, msgInvalidReset, http.StatusBadRequest)
			return
		}
		log.Errorf("password reset, set password of %s: %s", userID, err)
		http.Error(w, "password reset failed", http.StatusInternalServerError)
		return
	}

	tokens, err := handler.sessions.RevokeAll(ctx, userID)
	if err != nil {
		log.Errorf("password reset, revoke sessions of %s: %s", userID, err)
	}
	for _, token := range tokens {
		handler.hub.End(token)
	}

	pkg.WriteTextResponseOK(w, "password-reset")
}

// HandleSubscribe streams the identity of the session token over a websocket.
// The current identity is sent right away, and {"user":null} once the session ends.
func (handler *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("identity stream upgrade: %s", err)
		return
	}
	defer conn.Close()

	// subscribe before the session lookup, an End racing the lookup must reach this stream
	sub := handler.hub.Subscribe(token)
	defer handler.hub.Unsubscribe(sub)

	user := handler.currentUser(r.Context(), token)
	if err := conn.WriteJSON(IdentityMessage{User: user}); err != nil {
		log.Debugf("identity stream write: %s", err)
		return
	}
	if user == nil {
		closeStream(conn)
		return
	}

	// the client never sends anything, reading only detects it going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-sub.Ended():
		if err := conn.WriteJSON(IdentityMessage{}); err != nil {
			log.Debugf("identity stream write: %s", err)
		}
		closeStream(conn)
	case <-gone:
	}

	conn.Close()
	<-gone
}

func (handler *Handler) currentUser(ctx context.Context, token string) *User {
	userID, ok, err := handler.checker.UserID(ctx, token)
	if err != nil {
		log.Errorf("identity stream, check session: %s", err)
		return nil
	}
	if !ok {
		return nil
	}

	user := &User{ID: userID}
	profile, err := handler.profiles.Get(ctx, userID)
	switch {
	case err == nil:
		user.Profile = profile
	case !errors.Is(err, users.ErrProfileNotFound):
		log.Errorf("identity stream, load profile of %s: %s", userID, err)
	}
	return user
}

func closeStream(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func validEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	resp, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, status)
}
