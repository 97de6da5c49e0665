package models

// NameValue is one slice of the status chart.
type NameValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// MonthlyCount is one bar of the monthly chart.
type MonthlyCount struct {
	Name   string `json:"name"`
	Stages int    `json:"Stages"`
}

// Dashboard is the backend's aggregate statistics payload.
type Dashboard struct {
	TotalStagiaires        int            `json:"total_stagiaires"`
	TotalEncadrants        int            `json:"total_encadrants"`
	StagesEnCours          int            `json:"stages_encours"`
	StagesValides          int            `json:"stages_valides"`
	StagesTermines         int            `json:"stages_termines"`
	TotalStages            int            `json:"total_stages"`
	RapportsEnAttente      int            `json:"rapports_en_attente"`
	RapportsValides        int            `json:"rapports_valides"`
	RapportsArchives       int            `json:"rapports_archives"`
	TotalRapports          int            `json:"total_rapports"`
	StagesRetardNonValides int            `json:"stages_retard_non_valides"`
	StagesBientotFinis     int            `json:"stages_bientot_finis"`
	StagesByStatus         []NameValue    `json:"stages_by_status"`
	MonthlyStages          []MonthlyCount `json:"monthly_stages"`
}

// UnitShare counts interns per assignment unit.
type UnitShare struct {
	Unite string `json:"unite"`
	Count int    `json:"count"`
}

// StageAlert is a stage needing attention on the dashboard. DaysLeft is
// set for stages ending soon, DaysLate for overdue ones.
type StageAlert struct {
	Stage    Stage `json:"stage"`
	DaysLeft int   `json:"days_left,omitempty"`
	DaysLate int   `json:"days_late,omitempty"`
}

// DashboardView is what the dashboard page renders.
type DashboardView struct {
	Stats       Dashboard    `json:"stats"`
	Units       []UnitShare  `json:"units"`
	EndingSoon  []StageAlert `json:"ending_soon"`
	Overdue     []StageAlert `json:"overdue"`
	CachedStats bool         `json:"cached_stats"`
}
