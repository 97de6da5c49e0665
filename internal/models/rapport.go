package models

import "strconv"

// Report states.
const (
	EtatEnAttente = "En attente"
	EtatValide    = "Validé"
	EtatArchive   = "Archivé"
)

// Etats lists every report state in display order.
var Etats = []string{EtatEnAttente, EtatValide, EtatArchive}

// Rapport is an internship report.
type Rapport struct {
	ID         int64  `json:"id"`
	DateDepot  Date   `json:"date_depot"`
	Etat       string `json:"etat"`
	StageID    int64  `json:"stage_id"`
	FichierURL string `json:"fichier_url"`
	Stage      *Stage `json:"stage"`
}

// RecordID implements table.Record.
func (r Rapport) RecordID() string { return strconv.FormatInt(r.ID, 10) }

// Field implements table.Record.
func (r Rapport) Field(key string) any {
	switch key {
	case "id":
		return r.ID
	case "date_depot":
		return r.DateDepot
	case "etat":
		return r.Etat
	case "stage_id":
		return r.StageID
	case "fichier_url":
		return r.FichierURL
	case "stage":
		if r.Stage == nil {
			return nil
		}
		return r.Stage.Theme
	case "stagiaire":
		if r.Stage == nil {
			return nil
		}
		return r.Stage.StagiaireName()
	default:
		return nil
	}
}

// RapportFilter is forwarded to the backend list endpoint.
type RapportFilter struct {
	Query string `form:"q"`
	Etat  string `form:"etat"`
	Annee string `form:"annee"`
}
