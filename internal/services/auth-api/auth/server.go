package auth

import (
	"context"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/NordCoder/Homeroom/internal/http/response"
	"github.com/NordCoder/Homeroom/internal/obs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	RouteLogin        = "login"
	RouteRegister     = "register"
	RouteRefresh      = "refresh"
	RouteResetRequest = "reset_request"
	RouteReset        = "reset"
)

const resetRequestedMessage = "if the account exists, a password reset email has been sent"

type Opts struct {
	Logger     *zap.Logger
	Limiter    RateLimiter
	RateLimits map[string]RateLimitRule
	// TrustedProxies may set the client address through X-Forwarded-For.
	TrustedProxies []netip.Prefix
	// Ready backs /healthz; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	log      *zap.Logger
	sessions *Sessions
	resets   *PasswordReset
	verify   *EmailVerification
	gw       *Gateway
	limiter  RateLimiter
	limits   map[string]RateLimitRule
	proxies  []netip.Prefix
	ready    func(ctx context.Context) error
}

func NewServer(sessions *Sessions, resets *PasswordReset, verify *EmailVerification, gw *Gateway, o Opts) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ready := o.Ready
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}
	return &Server{
		log:      log,
		sessions: sessions,
		resets:   resets,
		verify:   verify,
		gw:       gw,
		limiter:  o.Limiter,
		limits:   o.RateLimits,
		proxies:  o.TrustedProxies,
		ready:    ready,
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(trustedRealIP(s.proxies))
	r.Use(obs.AccessLog(s.log, routePattern))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", obs.MetricsHandler())

	r.Route("/auth", func(r chi.Router) {
		r.With(s.limit(RouteRegister)).Post("/register", s.register)
		r.With(s.limit(RouteLogin)).Post("/login", s.login)
		r.With(s.limit(RouteRefresh)).Post("/refresh", s.refresh)
		r.Post("/logout", s.logout)
		r.With(s.limit(RouteResetRequest)).Post("/password/reset-request", s.resetRequest)
		r.With(s.limit(RouteReset)).Post("/password/reset", s.reset)
		r.Post("/email/verify", s.verifyEmail)

		r.Group(func(r chi.Router) {
			r.Use(s.gw.Middleware)
			r.Get("/me", s.me)
			r.Post("/logout-all", s.logoutAll)
			r.Post("/password/change", s.changePassword)
			r.Post("/email/resend-verification", s.resendVerification)
		})
	})
	return r
}

func (s *Server) limit(route string) func(http.Handler) http.Handler {
	return rateLimit(s.log, s.limiter, route, s.limits[route])
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.ready(ctx); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		response.Error(w, http.StatusServiceUnavailable, "UNAVAILABLE", "dependency unavailable", nil)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		writeErr(w, r, s.log, validationErr("body", "must be a JSON object with known fields"))
		return
	}
	p, err := s.verify.Register(r.Context(), RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeErr(w, r, s.log, err)
		return
	}
	response.JSON(w, http.StatusCreated, toPrincipalResponse(p))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		writeErr(w, r, s.log, validationErr("body", "must be a JSON object with known fields"))
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeErr(w, r, s.log, validationErr("credentials", "email and password are required"))
		return
	}
	pair, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, r, s.log, err)
		return
	}
	response.JSON(w, http.StatusOK, pair)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := response.DecodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		response.Error(w, http.StatusUnauthorized, "TOKEN_INVALID", "invalid or expired token", nil)
		return
	}
	grant, err := s.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeErr(w, r, s.log, err)
		return
	}
	response.JSON(w, http.StatusOK, grant)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusUnauthorized, "TOKEN_INVALID", "invalid or expired token", nil)
		return
	}
	if err := s.sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		writeErr(w, r, s.log, err)
		return
	}
	response.NoContent(w)
}

func (s *Server) logoutAll(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	if _, err := s.sessions.LogoutAll(r.Context(), p.ID); err != nil {
		writeErr(w, r, s.log, err)
		return
	}
	response.NoContent(w)
}

func (s *Server) resetRequest(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := response.DecodeJSON(r, &req); err == nil && strings.TrimSpace(req.Email) != "" {
		s.resets.RequestReset(r.Context(), req.Email)
	}
	response.JSON(w, http.StatusOK, messageResponse{Message: resetRequestedMessage})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		writeErr(w, r, s.log, validationErr("body", "must be a JSON object with known fields"))
		return
	}
	if err := s.resets.PerformReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeErr(w, r, s.log, err)
		return
	}
	response.JSON(w, http.StatusOK, messageResponse{Message: "password has been reset"})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		writeErr(w, r, s.log, validationErr("body", "must be a JSON object with known fields"))
		return
	}
	p, _ := PrincipalFromContext(r.Context())
	if err := s.resets.ChangePassword(r.Context(), p, req.CurrentPassword, req.NewPassword); err != nil {
		writeErr(w, r, s.log, err)
		return
	}
	response.JSON(w, http.StatusOK, messageResponse{Message: "password has been changed"})
}

func (s *Server) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_TOKEN", "invalid or expired token", nil)
		return
	}
	p, err := s.verify.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		writeErr(w, r, s.log, err)
		return
	}
	response.JSON(w, http.StatusOK, toPrincipalResponse(p))
}

func (s *Server) resendVerification(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	if err := s.verify.ResendVerification(r.Context(), p); err != nil {
		writeErr(w, r, s.log, err)
		return
	}
	response.JSON(w, http.StatusOK, messageResponse{Message: "verification email sent"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	response.JSON(w, http.StatusOK, toPrincipalResponse(p))
}
