package fakeapi

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/martiniano/crm-console/internal/domain"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: http.StatusText(status), Message: msg})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg)
}

func writeValidation(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation failed", Errors: fields})
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func parsePagination(r *http.Request) (page, limit int) {
	page, limit = 1, 10
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	return page, limit
}

func requiredLeadFields(in domain.LeadInput, withMessage bool) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Name is required"
	}
	if strings.TrimSpace(in.Email) == "" {
		fields["email"] = "Email is required"
	} else if !strings.Contains(in.Email, "@") {
		fields["email"] = "Email should be valid"
	}
	if withMessage && strings.TrimSpace(in.Message) == "" {
		fields["message"] = "Message is required"
	}
	return fields
}

// ============================================================
// Auth
// ============================================================

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(req.Email)]
	if !ok || u.password != req.Password {
		s.mu.Unlock()
		writeUnauthorized(w, "Invalid email or password")
		return
	}
	token := s.newToken(u.identity)
	flat := s.FlatLogin
	s.mu.Unlock()

	if flat {
		writeJSON(w, http.StatusOK, domain.LoginResponse{
			Token:    token,
			Username: u.identity.Username,
			Email:    u.identity.Email,
			Role:     u.identity.Role,
		})
		return
	}
	id := u.identity
	writeJSON(w, http.StatusOK, domain.LoginResponse{Token: token, User: &id})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))

	s.mu.Lock()
	id := s.tokens[token]
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, id)
}

// ============================================================
// Leads
// ============================================================

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)
	stage := domain.Stage(r.URL.Query().Get("stage"))

	s.mu.Lock()
	all := s.sortedLeads()
	s.mu.Unlock()

	filtered := make([]domain.Lead, 0, len(all))
	for _, l := range all {
		if stage == "" || l.Stage == stage {
			filtered = append(filtered, l)
		}
	}

	totalPages := int(math.Ceil(float64(len(filtered)) / float64(limit)))
	start := (page - 1) * limit
	end := start + limit
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	writeJSON(w, http.StatusOK, domain.LeadPage{Leads: filtered[start:end], TotalPages: totalPages})
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid lead id")
		return
	}

	lead, found := s.Lead(id)
	if !found {
		writeError(w, http.StatusNotFound, "Lead not found")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) createLead(w http.ResponseWriter, r *http.Request) {
	var in domain.LeadInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if fields := requiredLeadFields(in, true); len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	s.mu.Lock()
	lead := leadFromInput(domain.Lead{}, in)
	lead.ID = s.putLead(lead)
	lead = s.leads[lead.ID]
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, lead)
}

func (s *Server) updateLead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid lead id")
		return
	}

	var in domain.LeadInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if fields := requiredLeadFields(in, false); len(fields) > 0 {
		writeValidation(w, fields)
		return
	}
	if in.Stage != "" {
		if _, valid := domain.ParseStage(string(in.Stage)); !valid {
			writeValidation(w, map[string]string{"stage": "Invalid stage"})
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, found := s.leads[id]
	if !found {
		writeError(w, http.StatusNotFound, "Lead not found")
		return
	}
	updated := leadFromInput(current, in)
	updated.UpdatedAt = domain.Timestamp{Time: s.now()}
	s.leads[id] = updated

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) updateStage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid lead id")
		return
	}

	var body struct {
		Stage string `json:"stage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	stage, valid := domain.ParseStage(body.Stage)
	if !valid {
		writeError(w, http.StatusBadRequest, "Invalid stage")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lead, found := s.leads[id]
	if !found {
		writeError(w, http.StatusNotFound, "Lead not found")
		return
	}
	lead.Stage = stage
	lead.UpdatedAt = domain.Timestamp{Time: s.now()}
	s.leads[id] = lead

	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) deleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid lead id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.leads[id]; !found {
		writeError(w, http.StatusNotFound, "Lead not found")
		return
	}
	delete(s.leads, id)
	w.WriteHeader(http.StatusNoContent)
}

func leadFromInput(base domain.Lead, in domain.LeadInput) domain.Lead {
	base.Name = in.Name
	base.Email = in.Email
	base.Phone = in.Phone
	base.Company = in.Company
	base.BudgetRange = in.BudgetRange
	base.ProjectType = in.ProjectType
	base.Message = in.Message
	if in.Stage != "" {
		base.Stage = in.Stage
	}
	if in.Source != "" {
		base.Source = in.Source
	}
	return base
}

// ============================================================
// Clients, projects, dashboard
// ============================================================

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	clients := append([]domain.Client{}, s.clients...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	status := domain.ProjectStatus(r.URL.Query().Get("status"))

	s.mu.Lock()
	projects := make([]domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if status == "" || p.Status == status {
			projects = append(projects, p)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) kpis(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := domain.KPIs{TotalLeads: len(s.leads)}
	won := 0
	for _, l := range s.leads {
		if l.Stage == domain.StageWon {
			won++
		}
	}
	for _, c := range s.clients {
		if c.Status == "" || strings.EqualFold(c.Status, "active") {
			k.ActiveClients++
		}
	}
	for _, p := range s.projects {
		if p.Status == domain.ProjectInProgress {
			k.ActiveProjects++
		}
	}
	if k.TotalLeads > 0 {
		k.ConversionRate = math.Round(float64(won)/float64(k.TotalLeads)*1000) / 10
	}

	writeJSON(w, http.StatusOK, k)
}

func (s *Server) leadsByStage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	counts := make(map[domain.Stage]int)
	for _, l := range s.leads {
		counts[l.Stage]++
	}
	s.mu.Unlock()

	out := make([]domain.StageCount, 0, len(domain.Stages))
	for _, st := range domain.Stages {
		out = append(out, domain.StageCount{Stage: st, Count: counts[st]})
	}
	writeJSON(w, http.StatusOK, out)
}
