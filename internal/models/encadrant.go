package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Supervisor affiliations.
const (
	InstitutionInterne = "Interne"
	InstitutionExterne = "Externe"
)

// Encadrant is an internship supervisor.
type Encadrant struct {
	ID             int64  `json:"id"`
	Nom            string `json:"nom"`
	Prenom         string `json:"prenom"`
	Institution    string `json:"institution"`
	NomInstitution string `json:"nom_institution"`
	Email          string `json:"email"`
	Telephone      string `json:"telephone"`
	StagesEncadres int    `json:"stages_encadres"`
}

// RecordID implements table.Record.
func (e Encadrant) RecordID() string { return strconv.FormatInt(e.ID, 10) }

// Field implements table.Record.
func (e Encadrant) Field(key string) any {
	switch key {
	case "id":
		return e.ID
	case "nom":
		return e.Nom
	case "prenom":
		return e.Prenom
	case "institution":
		return e.Institution
	case "nom_institution":
		return e.NomInstitution
	case "email":
		return e.Email
	case "telephone":
		return e.Telephone
	case "stages_encadres":
		return e.StagesEncadres
	default:
		return nil
	}
}

// FullName is "prenom nom".
func (e Encadrant) FullName() string {
	return strings.TrimSpace(e.Prenom + " " + e.Nom)
}

// OptionLabel renders the supervisor picker entry: "prenom nom - institution".
func (e Encadrant) OptionLabel() string {
	return fmt.Sprintf("%s %s - %s", e.Prenom, e.Nom, e.Institution)
}

// Matches reports whether term occurs in a searchable field. The phone
// number is matched verbatim.
func (e Encadrant) Matches(term string) bool {
	lower := strings.ToLower(strings.TrimSpace(term))
	if lower == "" {
		return true
	}
	for _, v := range []string{e.Nom, e.Prenom, e.Institution, e.Email} {
		if strings.Contains(strings.ToLower(v), lower) {
			return true
		}
	}
	return e.Telephone != "" && strings.Contains(e.Telephone, strings.TrimSpace(term))
}

// EncadrantPayload is the create/update body for a supervisor.
type EncadrantPayload struct {
	Nom            string  `json:"nom"`
	Prenom         string  `json:"prenom"`
	Institution    string  `json:"institution"`
	NomInstitution *string `json:"nom_institution"`
	Email          string  `json:"email"`
	Telephone      string  `json:"telephone"`
}
