// ABOUTME: Read-only web view of the local contact store with embedded templates
// ABOUTME: Serves the dashboard, contact search, contact detail, category graph and a health check
package web

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/models"
	"github.com/harperreed/kontakt/viz"
)

//go:embed templates/*
var templatesFS embed.FS

type Server struct {
	db        *sql.DB
	templates *template.Template
	generator *viz.GraphGenerator
	log       *zap.Logger
}

func NewServer(database *sql.DB, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	funcMap := template.FuncMap{
		"when": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04")
		},
		"join": strings.Join,
		"short": func(s string) string {
			if len(s) > 8 {
				return s[:8]
			}
			return s
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		db:        database,
		templates: tmpl,
		generator: viz.NewGraphGenerator(database),
		log:       log.With(zap.String("component", "web")),
	}, nil
}

// Handler returns the routes of the web view.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/contacts", s.handleContacts)
	mux.HandleFunc("/partials/contact-detail", s.handleContactDetail)
	mux.HandleFunc("/graph.svg", s.handleGraph)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting web server", zap.String("url", "http://localhost"+addr))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	stats, err := viz.GenerateDashboardStats(s.db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"Stats":           stats,
		"Title":           "Dashboard",
		"ContentTemplate": "dashboard-content",
	}

	s.renderTemplate(w, "layout.html", data)
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("template error", zap.String("template", name), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	contacts, err := db.FindContacts(s.db, query, 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"Contacts":        contacts,
		"Query":           query,
		"Title":           "Contacts",
		"ContentTemplate": "contacts-content",
	}

	s.renderTemplate(w, "layout.html", data)
}

func (s *Server) handleContactDetail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	contact, err := db.GetContact(s.db, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if contact == nil {
		http.Error(w, "Contact not found", http.StatusNotFound)
		return
	}

	notes, err := db.ListTimelineNotes(s.db, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"Contact":    contact,
		"Categories": s.categoryNames(contact),
		"Notes":      notes,
	}

	s.renderTemplate(w, "contact-detail.html", data)
}

func (s *Server) categoryNames(contact *models.Contact) []string {
	all, err := db.ListCategories(s.db)
	if err != nil {
		s.log.Warn("failed to list categories", zap.Error(err))
		return nil
	}
	byID := make(map[uuid.UUID]string, len(all))
	for _, c := range all {
		byID[c.ID] = c.Name
	}

	names := make([]string, 0, len(contact.CategoryIDs))
	for _, id := range contact.CategoryIDs {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	svg, err := s.generator.GenerateCategoryGraph(graphviz.SVG)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write([]byte(svg))
}

type healthResponse struct {
	Status   string         `json:"status"`
	Mailbox  *mailboxHealth `json:"mailbox,omitempty"`
	Contacts int            `json:"contacts"`
}

type mailboxHealth struct {
	Status   string     `json:"status"`
	LastPoll *time.Time `json:"last_poll,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// handleHealth reports 503 while the mailbox poller is in an error state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}

	count, err := db.CountContacts(s.db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp.Contacts = count

	st, err := db.GetMailboxState(s.db, "mailbox")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if st != nil {
		resp.Mailbox = &mailboxHealth{Status: st.Status, LastPoll: st.LastPoll, Error: st.Error}
		if st.Status == db.MailboxError {
			resp.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
