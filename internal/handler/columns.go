package handler

import (
	"strings"

	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/orgunit"
	"github.com/noah-isme/stages-admin/internal/table"
)

var stageStatusStyles = map[string]string{
	models.StatutEnCours: "bg-blue-100 text-blue-800",
	models.StatutTermine: "bg-red-100 text-red-800",
	models.StatutValide:  "bg-green-100 text-green-800",
	"default":            table.NeutralStatusClass,
}

var rapportStatusStyles = map[string]string{
	models.EtatEnAttente: "bg-yellow-100 text-yellow-800",
	models.EtatValide:    "bg-green-100 text-green-800",
	models.EtatArchive:   "bg-gray-200 text-gray-700",
	"default":            table.NeutralStatusClass,
}

func asStage(rec table.Record) models.Stage {
	s, _ := rec.(models.Stage)
	return s
}

// StageColumns is the stage list layout.
func StageColumns() []table.Column {
	return []table.Column{
		{
			Key: "theme_type", Label: "Thème/Type", IsTruncate: true,
			Render: func(_ any, rec table.Record) table.Cell {
				s := asStage(rec)
				return table.Cell{Text: s.Theme, Sub: s.TypeStage}
			},
		},
		{Key: "stagiaire", Label: "Stagiaire"},
		{
			Key: "encadrant", Label: "Encadrant",
			Render: func(_ any, rec table.Record) table.Cell {
				if name := asStage(rec).EncadrantName(); name != "" {
					return table.Cell{Text: name}
				}
				return table.Cell{Text: "Non assigné", Class: "text-gray-400 italic"}
			},
		},
		{
			Key: "direction", Label: "Direction", ResponsiveClass: "hidden lg:table-cell",
			Render: func(_ any, rec table.Record) table.Cell {
				s := asStage(rec)
				if s.Direction == "" {
					return table.Cell{Text: "Non définie", Class: "text-gray-400 italic"}
				}
				return table.Cell{Text: s.Direction, Title: orgunit.DirectionFullName(s.Direction)}
			},
			Export: func(rec table.Record) string {
				return orgunit.DirectionFullName(asStage(rec).Direction)
			},
		},
		{
			Key: "affectation", Label: "Affectation", ResponsiveClass: "hidden lg:table-cell",
			Render: func(_ any, rec table.Record) table.Cell {
				s := asStage(rec)
				if !orgunit.IsDistinguished(s.Direction) {
					return table.Cell{Text: orgunit.AffectationLabel(s.Direction, s.Division, "", "")}
				}
				cell := table.Cell{Text: strings.TrimSpace(s.Unite), Sub: "(Pas de section)", Title: s.Service}
				if cell.Text == "" {
					cell.Text = "Non définie"
				}
				if s.Service != "" {
					cell.Sub = s.Service
					if acronym := orgunit.ServiceAcronym(s.Service); acronym != "" {
						cell.Sub = acronym
					}
				}
				return cell
			},
			Export: func(rec table.Record) string {
				s := asStage(rec)
				return orgunit.AffectationLabel(s.Direction, s.Division, s.Unite, s.Service)
			},
		},
		{
			Key: "decision_lettre", Label: "Décision / Lettre", ResponsiveClass: "hidden lg:table-cell",
			Render: func(_ any, rec table.Record) table.Cell {
				s := asStage(rec)
				cell := table.Cell{Text: s.Decision, Sub: "Lettre non uploadée"}
				if cell.Text == "" {
					cell.Text = "Décision non renseignée"
				}
				if s.LettreAcceptationURL != "" {
					cell.Href = s.LettreAcceptationURL
					cell.Sub = "Télécharger"
				}
				return cell
			},
			Export: func(rec table.Record) string { return asStage(rec).Decision },
		},
		{
			Key: "duree", Label: "Date début → Date fin", ResponsiveClass: "hidden md:table-cell",
			Render: func(_ any, rec table.Record) table.Cell {
				s := asStage(rec)
				return table.Cell{Text: s.DateDebut.French() + " → " + s.DateFin.French()}
			},
		},
		{Key: "statut", Label: "Statut", IsStatus: true, StatusStyles: stageStatusStyles},
	}
}

// StagiaireColumns is the intern list layout.
func StagiaireColumns() []table.Column {
	return []table.Column{
		{Key: "matricule", Label: "Matricule", ResponsiveClass: "whitespace-nowrap"},
		{Key: "nom", Label: "Nom"},
		{Key: "prenom", Label: "Prénom"},
		{Key: "ecole", Label: "École", ResponsiveClass: "hidden lg:table-cell", IsTruncate: true},
		{Key: "specialite", Label: "Spécialité", ResponsiveClass: "hidden lg:table-cell", IsTruncate: true},
		{Key: "niveau_etude", Label: "Niveau", ResponsiveClass: "hidden md:table-cell"},
		{Key: "email", Label: "Email", ResponsiveClass: "hidden xl:table-cell", IsTruncate: true},
		{Key: "telephone", Label: "Téléphone", ResponsiveClass: "hidden xl:table-cell"},
	}
}

// EncadrantColumns is the supervisor list layout.
func EncadrantColumns() []table.Column {
	return []table.Column{
		{Key: "nom", Label: "Nom"},
		{Key: "prenom", Label: "Prénom"},
		{
			Key: "institution", Label: "Institution",
			Render: func(value any, rec table.Record) table.Cell {
				cell := table.Cell{Text: table.Text(value)}
				if e, ok := rec.(models.Encadrant); ok && e.Institution == models.InstitutionExterne {
					cell.Sub = e.NomInstitution
				}
				return cell
			},
		},
		{Key: "email", Label: "Email", ResponsiveClass: "hidden lg:table-cell", IsTruncate: true},
		{Key: "telephone", Label: "Téléphone", ResponsiveClass: "hidden md:table-cell"},
	}
}

// RapportColumns is the report list layout.
func RapportColumns() []table.Column {
	return []table.Column{
		{Key: "stagiaire", Label: "Stagiaire"},
		{Key: "stage", Label: "Thème", IsTruncate: true},
		{Key: "date_depot", Label: "Date dépôt", IsDate: true},
		{Key: "etat", Label: "État", IsStatus: true, StatusStyles: rapportStatusStyles},
	}
}
