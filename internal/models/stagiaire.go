package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Study levels offered by the subject form.
var NiveauxEtude = []string{"Bac +2", "Bac +3", "Bac +5", "Bac +8"}

// Stagiaire is an intern.
type Stagiaire struct {
	ID          int64  `json:"id"`
	Nom         string `json:"nom"`
	Prenom      string `json:"prenom"`
	Ecole       string `json:"ecole"`
	Specialite  string `json:"specialite"`
	NiveauEtude string `json:"niveau_etude"`
	Email       string `json:"email"`
	Telephone   string `json:"telephone"`
	Matricule   string `json:"matricule"`
	StagesCount int    `json:"stages_count"`
}

// RecordID implements table.Record.
func (s Stagiaire) RecordID() string { return strconv.FormatInt(s.ID, 10) }

// Field implements table.Record.
func (s Stagiaire) Field(key string) any {
	switch key {
	case "id":
		return s.ID
	case "nom":
		return s.Nom
	case "prenom":
		return s.Prenom
	case "ecole":
		return s.Ecole
	case "specialite":
		return s.Specialite
	case "niveau_etude":
		return s.NiveauEtude
	case "email":
		return s.Email
	case "telephone":
		return s.Telephone
	case "matricule":
		return s.Matricule
	case "stages_count":
		return s.StagesCount
	case "nom_complet":
		return s.FullName()
	default:
		return nil
	}
}

// FullName is "prenom nom".
func (s Stagiaire) FullName() string {
	return strings.TrimSpace(s.Prenom + " " + s.Nom)
}

// OptionLabel renders the existing-subject picker entry:
// "matricule - prenom nom (ecole)".
func (s Stagiaire) OptionLabel() string {
	return fmt.Sprintf("%s - %s %s (%s)", s.Matricule, s.Prenom, s.Nom, s.Ecole)
}

// Matches reports whether term occurs in any searchable field, ignoring case.
func (s Stagiaire) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, v := range []string{s.Nom, s.Prenom, s.Ecole, s.Specialite, s.Email, s.Matricule} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// StagiairePayload is the create/update body for a subject.
type StagiairePayload struct {
	Nom         string `json:"nom"`
	Prenom      string `json:"prenom"`
	Ecole       string `json:"ecole"`
	Specialite  string `json:"specialite"`
	NiveauEtude string `json:"niveau_etude"`
	Email       string `json:"email"`
	Telephone   string `json:"telephone"`
}

// Payload projects the editable fields of s.
func (s Stagiaire) Payload() StagiairePayload {
	return StagiairePayload{
		Nom:         s.Nom,
		Prenom:      s.Prenom,
		Ecole:       s.Ecole,
		Specialite:  s.Specialite,
		NiveauEtude: s.NiveauEtude,
		Email:       s.Email,
		Telephone:   s.Telephone,
	}
}

// DossierRapport is the report summary attached to a dossier stage row.
type DossierRapport struct {
	Statut      string `json:"statut"`
	DateDepot   Date   `json:"date_depot"`
	DownloadURL string `json:"download_url"`
}

// StageSummary is one row of a subject's stage history.
type StageSummary struct {
	ID           int64           `json:"id"`
	Theme        string          `json:"theme"`
	DateDebut    Date            `json:"date_debut"`
	DateFin      Date            `json:"date_fin"`
	Statut       string          `json:"statut"`
	TypeStage    string          `json:"type_stage"`
	Direction    string          `json:"direction"`
	Division     string          `json:"division"`
	Unite        string          `json:"unite"`
	Service      string          `json:"service"`
	EncadrantNom string          `json:"encadrant_nom"`
	Rapport      *DossierRapport `json:"rapport"`
}

// StagiaireDossier is a subject with their full stage history.
type StagiaireDossier struct {
	Stagiaire
	Stages []StageSummary `json:"stages"`
}
