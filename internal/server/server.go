package server

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"visitor-desk/internal/config"
	"visitor-desk/internal/models"
	"visitor-desk/internal/util"
)

// Lister is the read side of the registration repository.
type Lister interface {
	ListByStatus(filter models.Filter) []models.Registration
}

var csvHeader = []string{
	"id", "status", "name", "cedula", "arrival_date", "departure_date",
	"visit_reason", "person_to_visit", "submitted_by", "submitted_at",
	"processed_by", "processed_at",
}

func New(cfg config.Config, regs Lister, gatherer prometheus.Gatherer) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           Router(cfg, regs, gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func Router(cfg config.Config, regs Lister, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": util.NowISO()})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// CSV export (admin-only link with token = HMAC)
	r.Get("/export/registrations.csv", func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		token := r.URL.Query().Get("token")
		if status == "" || token == "" {
			http.Error(w, "status and token required", http.StatusBadRequest)
			return
		}
		filter, err := models.ParseFilter(status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !util.ValidHMAC(cfg.ExportSecret, exportMessage(filter), token) {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="registrations_`+string(filter)+`.csv"`)
		if err := writeCSV(w, regs.ListByStatus(filter), cfg); err != nil {
			log.Printf("export csv: %v", err)
		}
	})

	return r
}

// ExportURL builds the signed CSV link for filter. Without a public base URL
// the link points at the local listener.
func ExportURL(cfg config.Config, filter models.Filter) string {
	base := cfg.BasePublicURL
	if base == "" {
		base = "http://localhost" + cfg.HTTPAddr
	}
	q := url.Values{}
	q.Set("status", string(filter))
	q.Set("token", util.HMACSHA256Hex(cfg.ExportSecret, exportMessage(filter)))
	return base + "/export/registrations.csv?" + q.Encode()
}

func exportMessage(filter models.Filter) string {
	return "export:" + string(filter)
}

func writeCSV(w io.Writer, regs []models.Registration, cfg config.Config) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	loc := cfg.Location()
	for _, r := range regs {
		processedAt := ""
		if r.ProcessedAt != nil {
			processedAt = util.FormatDateTime(*r.ProcessedAt, loc)
		}
		rec := []string{
			strconv.FormatInt(r.ID, 10),
			string(r.Status),
			r.Name,
			r.NationalID,
			util.FormatDateTime(r.ArrivalDate, loc),
			util.FormatDateTime(r.DepartureDate, loc),
			r.VisitReason,
			r.PersonToVisit,
			r.SubmittedBy,
			util.FormatDateTime(r.SubmittedAt, loc),
			r.ProcessedBy,
			processedAt,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
