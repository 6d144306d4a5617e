package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/auth"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/obs"
)

type Server struct {
	log      *zap.Logger
	uc       *UseCase
	issuer   *auth.Issuer
	verifier *Verifier
	limiter  *IPLimiter
	cookies  CookieConfig
}

type Opts struct {
	Logger  *zap.Logger
	Cookies CookieConfig
	Limiter *IPLimiter
}

func NewServer(uc *UseCase, issuer *auth.Issuer, o Opts) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	limiter := o.Limiter
	if limiter == nil {
		limiter = NewIPLimiter(RateLimitConfig{})
	}
	cookies := o.Cookies.withDefaults()
	return &Server{
		log:      log,
		uc:       uc,
		issuer:   issuer,
		verifier: NewVerifier(log, uc, issuer, cookies),
		limiter:  limiter,
		cookies:  cookies,
	}
}

func (s *Server) Verifier() *Verifier { return s.verifier }

type route struct {
	method, path string
	h            http.HandlerFunc
	mws          []func(http.Handler) http.Handler
}

func (s *Server) routes() []route {
	anyone := RequireRoles()
	return []route{
		{http.MethodPost, "/users/register", s.register, []func(http.Handler) http.Handler{RequireRoles(user.RoleAdmin)}},
		{http.MethodPost, "/users/login", s.login, []func(http.Handler) http.Handler{s.limiter.Middleware}},
		{http.MethodPost, "/users/logout", s.logout, nil},
		{http.MethodPost, "/users/logout-all", s.logoutAll, []func(http.Handler) http.Handler{anyone}},
		{http.MethodGet, "/users/role", s.role, []func(http.Handler) http.Handler{anyone}},
		{http.MethodPost, "/users/refresh-token", s.refresh, nil},
		{http.MethodGet, "/users/session", s.checkSession, nil},
		{http.MethodGet, "/users/current", s.current, []func(http.Handler) http.Handler{anyone}},
	}
}

// Register mounts the session endpoints. Every route runs behind the
// verifier, so any handler added here sees a resolved identity when the
// caller has one.
func (s *Server) Register(mux *runtime.ServeMux, prefix string) error {
	for _, rt := range s.routes() {
		mws := append([]func(http.Handler) http.Handler{s.verifier.Middleware}, rt.mws...)
		h := obs.InstrumentHTTP(rt.path, Chain(rt.h, mws...))
		if err := mux.HandlePath(rt.method, prefix+rt.path, func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			h.ServeHTTP(w, r)
		}); err != nil {
			return err
		}
	}
	return nil
}

type userDTO struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	UserName  string `json:"userName"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
}

func toUserDTO(u *user.User) userDTO {
	return userDTO{
		UserID:    u.ID,
		Name:      u.Name,
		UserName:  u.Username,
		Role:      u.Role.String(),
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
	}
}

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type loginResponse struct {
	User        userDTO   `json:"user"`
	TokenExpiry time.Time `json:"tokenExpiry"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	sess, err := s.uc.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		s.fail(w, r, "auth.login", err)
		return
	}

	now := s.issuer.Now()
	s.cookies.setAccess(w, sess.Tokens.Access, sess.Tokens.AccessExpiresAt, now)
	s.cookies.setRefresh(w, sess.Tokens.Refresh, sess.Tokens.RefreshExpiresAt, now)

	obs.WithTrace(r.Context(), s.log).Info("auth.login", zap.String("user_id", sess.User.ID))
	writeOK(w, "Login successful", loginResponse{
		User:        toUserDTO(sess.User),
		TokenExpiry: sess.Tokens.RefreshExpiresAt,
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	u, err := s.uc.Register(r.Context(), in)
	if err != nil {
		s.fail(w, r, "auth.register", err)
		return
	}
	writeOK(w, "User registered", toUserDTO(u))
}

// logout always clears both cookies, even when the store call fails.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromCtx(r.Context())
	err := s.uc.Logout(r.Context(), readCookie(r, s.cookies.RefreshName), id)
	s.cookies.clear(w)
	if err != nil {
		s.fail(w, r, "auth.logout", err)
		return
	}
	writeOK(w, "Logged out successfully", nil)
}

func (s *Server) logoutAll(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromCtx(r.Context())
	// Cookies stay put on failure so the client still holds a session it
	// can retry with while its other devices remain signed in.
	if err := s.uc.LogoutAll(r.Context(), *id); err != nil {
		s.fail(w, r, "auth.logout_all", err)
		return
	}
	s.cookies.clear(w)
	obs.WithTrace(r.Context(), s.log).Info("auth.logout_all", zap.String("user_id", id.SubjectID))
	writeOK(w, "Logged out from all devices", nil)
}

func (s *Server) role(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromCtx(r.Context())
	role, err := s.uc.Role(r.Context(), *id)
	if err != nil {
		s.fail(w, r, "auth.role", err)
		return
	}
	writeOK(w, "", map[string]string{"role": role.String()})
}

func (s *Server) current(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromCtx(r.Context())
	u, err := s.uc.WhoAmI(r.Context(), *id)
	if errors.Is(err, ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err != nil {
		s.fail(w, r, "auth.current", err)
		return
	}
	writeOK(w, "", toUserDTO(u))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refresh accepts the token from the JSON body, the refreshTokenFromBody
// query parameter or the refresh cookie, in that order.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	token := req.RefreshToken
	if token == "" {
		token = r.URL.Query().Get("refreshTokenFromBody")
	}
	if token == "" {
		token = readCookie(r, s.cookies.RefreshName)
	}

	_, pair, err := s.uc.RefreshAccess(r.Context(), token)
	if err != nil {
		s.fail(w, r, "auth.refresh", err)
		return
	}
	s.cookies.setAccess(w, pair.Access, pair.AccessExpiresAt, s.issuer.Now())
	writeOK(w, "Access token refreshed", map[string]time.Time{"accessTokenExpiry": pair.AccessExpiresAt})
}

func (s *Server) checkSession(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.CheckSession(r.Context(), readCookie(r, s.cookies.RefreshName)); err != nil {
		s.fail(w, r, "auth.session", err)
		return
	}
	writeOK(w, "Session valid", nil)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code, msg := mapErr(err)
	log := obs.WithTrace(r.Context(), s.log)
	if code >= http.StatusInternalServerError {
		log.Error(op, zap.Error(err))
	} else {
		log.Debug(op, zap.Error(err))
	}
	writeError(w, code, msg)
}

func mapErr(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrInvalidCredentials.Error()
	case errors.Is(err, ErrMissingCredential):
		return http.StatusUnauthorized, "no refresh token"
	case errors.Is(err, ErrRefreshInvalid):
		return http.StatusUnauthorized, ErrRefreshInvalid.Error()
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound, ErrUserNotFound.Error()
	case errors.Is(err, ErrUsernameTaken):
		return http.StatusConflict, ErrUsernameTaken.Error()
	case errors.Is(err, ErrUserIDTaken):
		return http.StatusConflict, ErrUserIDTaken.Error()
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

type envelope struct {
	Status  int    `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, msg string, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: http.StatusOK, Data: data, Message: msg})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, envelope{Status: code, Message: msg})
}
