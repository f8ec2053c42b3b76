package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_total",
		Help: "Login attempts by result.",
	}, []string{"result"})
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_refresh_total",
		Help: "Refresh attempts by result.",
	}, []string{"result"})
	revokedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_refresh_revoked_total",
		Help: "Refresh records revoked, by cause.",
	}, []string{"cause"})
	gatewayRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_gateway_rejected_total",
		Help: "Requests rejected by the auth gateway, by reason.",
	}, []string{"reason"})
	oneShotTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_one_shot_total",
		Help: "Password reset and email verification operations by kind and result.",
	}, []string{"kind", "result"})
	rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by route.",
	}, []string{"route"})
)
