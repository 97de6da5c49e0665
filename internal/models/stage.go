package models

import (
	"strconv"
	"strings"
)

// Stage statuses.
const (
	StatutEnCours = "En cours"
	StatutTermine = "Terminé"
	StatutValide  = "Validé"
)

// Stage kinds.
const (
	TypeAcademique    = "Academique"
	TypeProfessionnel = "Professionnel"
)

// Statuts lists every stage status in display order.
var Statuts = []string{StatutEnCours, StatutTermine, StatutValide}

// TypesStage lists every stage kind.
var TypesStage = []string{TypeAcademique, TypeProfessionnel}

// Stage is one internship.
type Stage struct {
	ID                   int64      `json:"id"`
	Theme                string     `json:"theme"`
	TypeStage            string     `json:"type_stage"`
	DateDebut            Date       `json:"date_debut"`
	DateFin              Date       `json:"date_fin"`
	Statut               string     `json:"statut"`
	Direction            string     `json:"direction"`
	Division             string     `json:"division"`
	Unite                string     `json:"unite"`
	Service              string     `json:"service"`
	Decision             string     `json:"decision"`
	LettreAcceptationURL string     `json:"lettre_acceptation_url"`
	StagiaireID          int64      `json:"stagiaire_id"`
	EncadrantID          *int64     `json:"encadrant_id"`
	Stagiaire            *Stagiaire `json:"stagiaire"`
	Encadrant            *Encadrant `json:"encadrant"`
	RapportsCount        int        `json:"rapports_count"`
}

// RecordID implements table.Record.
func (s Stage) RecordID() string { return strconv.FormatInt(s.ID, 10) }

// Field implements table.Record.
func (s Stage) Field(key string) any {
	switch key {
	case "id":
		return s.ID
	case "theme":
		return s.Theme
	case "type_stage":
		return s.TypeStage
	case "date_debut":
		return s.DateDebut
	case "date_fin":
		return s.DateFin
	case "statut":
		return s.Statut
	case "direction":
		return s.Direction
	case "division":
		return s.Division
	case "unite":
		return s.Unite
	case "service":
		return s.Service
	case "decision":
		return s.Decision
	case "lettre_acceptation_url":
		return s.LettreAcceptationURL
	case "stagiaire":
		return s.StagiaireName()
	case "encadrant":
		return s.EncadrantName()
	case "rapports_count":
		return s.RapportsCount
	default:
		return nil
	}
}

// StagiaireName is the intern's "prenom nom", or "" when not embedded.
func (s Stage) StagiaireName() string {
	if s.Stagiaire == nil {
		return ""
	}
	return s.Stagiaire.FullName()
}

// EncadrantName is the supervisor's "prenom nom", or "" when unassigned.
func (s Stage) EncadrantName() string {
	if s.Encadrant == nil {
		return ""
	}
	return s.Encadrant.FullName()
}

// MatchesSearch implements the list search: case-insensitive match on the
// theme or the intern's first or last name.
func (s Stage) MatchesSearch(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(s.Theme), term) {
		return true
	}
	if s.Stagiaire == nil {
		return false
	}
	return strings.Contains(strings.ToLower(s.Stagiaire.Nom), term) ||
		strings.Contains(strings.ToLower(s.Stagiaire.Prenom), term)
}

// StagePayload is the JSON update body of a stage. Optional references are
// sent as null when empty.
type StagePayload struct {
	Theme     string  `json:"theme"`
	TypeStage string  `json:"type_stage"`
	DateDebut string  `json:"date_debut"`
	DateFin   string  `json:"date_fin"`
	Direction string  `json:"direction"`
	Division  *string `json:"division"`
	Unite     *string `json:"unite"`
	Service   *string `json:"service"`
	Decision  string  `json:"decision"`
	Stagiaire int64   `json:"stagiaire"`
	Encadrant *int64  `json:"encadrant"`
}

// AttestationRequest asks the backend for a completion certificate.
type AttestationRequest struct {
	Signataire         string `json:"signataire"`
	FonctionSignataire string `json:"fonction_signataire"`
	Format             string `json:"format"`
}

// Document is a binary file returned by the backend.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}
