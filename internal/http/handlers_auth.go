package http

import (
	"net/http"

	"contas/internal/log"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MetricsSnapshot reports server and session counters.
type MetricsSnapshot struct {
	Requests           int64 `json:"requests"`
	AvgResponseMicros  int64 `json:"avgResponseMicros"`
	RateLimited        int64 `json:"rateLimited"`
	RateLimitClients   int64 `json:"rateLimitClients"`
	SuspiciousRequests int64 `json:"suspiciousRequests"`
	BlockedRequests    int64 `json:"blockedRequests"`
	PersistFailures    int64 `json:"persistFailures"`
	PendingChanges     int   `json:"pendingChanges"`
	Payables           int   `json:"payables"`
	ReportCacheHits    int64 `json:"reportCacheHits"`
	ReportCacheMisses  int64 `json:"reportCacheMisses"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		NotFoundError("authentication is disabled").Write(w)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}
	sess, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Sign in failed",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldError, err)
		s.fail(w, r, log.OpValidate, err)
		return
	}
	NewResponse().JSON(sess).Write(w)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(r.Context())
	if !ok {
		NewResponse().JSON(map[string]any{"authenticated": false}).Write(w)
		return
	}
	sess.Token = ""
	NewResponse().JSON(sess).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil {
		if err := s.auth.SignOut(r.Context(), bearerToken(r)); err != nil {
			s.fail(w, r, log.OpValidate, err)
			return
		}
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.session.Company()).Write(w)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	dm := s.detector.GetMetrics()
	cs := s.session.ReportCacheStats()
	NewResponse().JSON(MetricsSnapshot{
		Requests:           tm.TotalRequests,
		AvgResponseMicros:  tm.AverageResponseTime,
		RateLimited:        rl.TotalHits,
		RateLimitClients:   rl.ClientCount,
		SuspiciousRequests: dm.SuspiciousRequests,
		BlockedRequests:    dm.BlockedRequests,
		PersistFailures:    s.session.PersistFailures(),
		PendingChanges:     len(s.session.PendingChanges()),
		Payables:           len(s.session.Payables()),
		ReportCacheHits:    cs.Hits,
		ReportCacheMisses:  cs.Misses,
	}).Write(w)
}
