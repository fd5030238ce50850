package domain

import "strings"

// Stage is the pipeline position of a lead. Any stage is reachable from any other.
type Stage string

const (
	StageNew         Stage = "new"
	StageContacted   Stage = "contacted"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageWon         Stage = "won"
	StageLost        Stage = "lost"
)

// Stages lists the pipeline in order.
var Stages = []Stage{
	StageNew,
	StageContacted,
	StageQualified,
	StageProposal,
	StageNegotiation,
	StageWon,
	StageLost,
}

// ParseStage normalises s and reports whether it names a known stage.
func ParseStage(s string) (Stage, bool) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Stages {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// Index returns the position of the stage in the pipeline, or -1.
func (s Stage) Index() int {
	for i, known := range Stages {
		if s == known {
			return i
		}
	}
	return -1
}

// Label returns the display form, e.g. "Qualified".
func (s Stage) Label() string {
	if s == "" {
		return "All Stages"
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// ProjectStatus is the delivery state of a project.
type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectOnHold     ProjectStatus = "on_hold"
)

// ProjectStatuses lists the known project statuses.
var ProjectStatuses = []ProjectStatus{
	ProjectPlanning,
	ProjectInProgress,
	ProjectCompleted,
	ProjectOnHold,
}

// ParseProjectStatus normalises s and reports whether it names a known status.
func ParseProjectStatus(s string) (ProjectStatus, bool) {
	st := ProjectStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ProjectStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// Label returns the display form, e.g. "In Progress".
func (s ProjectStatus) Label() string {
	if s == "" {
		return "Unknown"
	}
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
