package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_verifications_total",
		Help: "Credential verifier outcomes per request.",
	}, []string{"result"})
	mSilentRefresh = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "session_silent_refresh_duration_seconds",
		Help:    "Latency of the refresh-cookie path of the credential verifier.",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"outcome"})
	mSweptTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_refresh_tokens_swept_total",
		Help: "Expired refresh records removed by the sweeper.",
	})
)

const (
	resultAccess      = "access"
	resultReissued    = "reissued"
	resultAnonymous   = "anonymous"
	resultInvalid     = "refresh_invalid"
	resultUnavailable = "store_unavailable"
)
