package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/middleware"
	"github.com/patrickwarner/countryredirect/internal/reporting"
)

// ReportHandler summarises the redirect log. Query parameters days (default
// 7) and limit (default 10) size the report.
func (s *Server) ReportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "report"
	const method = "GET"

	if s.Analytics == nil {
		s.Metrics.IncrementRequests(endpoint, method, "503")
		http.Error(w, "redirect log not configured", http.StatusServiceUnavailable)
		return
	}

	days, err := intParam(r, "days", 7)
	if err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, "invalid days", http.StatusBadRequest)
		return
	}
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}

	summary, err := reporting.GenerateRedirectReport(r.Context(), s.Analytics, days, limit)
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("redirect report failed", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "report failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, summary)

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
