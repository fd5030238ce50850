// Package domain defines the CRM entities consumed from the admin REST API.
// These models are independent of transport and presentation and represent
// the canonical data structures shared by services and view models.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================
// Leads
// ============================================================

// Lead is a prospect captured by the public contact form or created by an admin.
type Lead struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Company     string    `json:"company,omitempty"`
	BudgetRange string    `json:"budgetRange,omitempty"`
	ProjectType string    `json:"projectType,omitempty"`
	Message     string    `json:"message"`
	Stage       Stage     `json:"stage"`
	Source      string    `json:"source,omitempty"`
	Priority    string    `json:"priority,omitempty"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

// LeadInput is the body for POST /leads and PUT /leads/{id}.
type LeadInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Company     string `json:"company,omitempty"`
	BudgetRange string `json:"budgetRange,omitempty"`
	ProjectType string `json:"projectType,omitempty"`
	Message     string `json:"message"`
	Stage       Stage  `json:"stage,omitempty"`
	Source      string `json:"source,omitempty"`
}

// InputFromLead copies the editable fields of a lead into an update body.
// Stage is left empty: stage moves only go through PATCH /leads/{id}/stage.
func InputFromLead(l Lead) LeadInput {
	return LeadInput{
		Name:        l.Name,
		Email:       l.Email,
		Phone:       l.Phone,
		Company:     l.Company,
		BudgetRange: l.BudgetRange,
		ProjectType: l.ProjectType,
		Message:     l.Message,
		Source:      l.Source,
	}
}

// LeadQuery holds the server-side paging and stage filter for GET /leads.
// A zero Stage means "all stages".
type LeadQuery struct {
	Page  int
	Limit int
	Stage Stage
}

// LeadPage is one page of leads as returned by GET /leads.
type LeadPage struct {
	Leads      []Lead `json:"leads"`
	TotalPages int    `json:"totalPages"`
}

// ============================================================
// Clients & Projects (read only)
// ============================================================

// Client is an active customer record.
type Client struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Project is a delivery engagement, optionally tied to a client.
type Project struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Client      string        `json:"client,omitempty"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	StartDate   Timestamp     `json:"startDate"`
	Progress    *int          `json:"progress,omitempty"`
}

// ============================================================
// Dashboard
// ============================================================

// KPIs is returned by GET /dashboard/kpis.
type KPIs struct {
	TotalLeads     int     `json:"totalLeads"`
	ActiveClients  int     `json:"activeClients"`
	ActiveProjects int     `json:"activeProjects"`
	ConversionRate float64 `json:"conversionRate"`
}

// StageCount is one row of GET /dashboard/leads-by-stage.
type StageCount struct {
	Stage Stage `json:"stage"`
	Count int   `json:"count"`
}

// DashboardSnapshot is recomputed on every dashboard load and never cached.
type DashboardSnapshot struct {
	KPIs         KPIs
	LeadsByStage []StageCount
}

// ============================================================
// Timestamps
// ============================================================

// Timestamp decodes the backend's date formats: RFC 3339, zone-less
// local date-times and plain dates. Null and empty strings decode to zero.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unsupported format %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}
