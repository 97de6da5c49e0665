// Package orgunit holds the organisation chart used by the stage forms and
// tables: directions, their divisions, and the unit/section hierarchy of the
// census bureau.
package orgunit

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Distinguished is the direction organised in units and sections instead of
// divisions.
const Distinguished = "BCR"

// Direction is one top-level organisational direction.
type Direction struct {
	Code     string `json:"value"`
	FullName string `json:"full_name"`
}

// Label is the option text shown in selectors, e.g. "DF - Direction des Finances".
func (d Direction) Label() string {
	return d.Code + " - " + d.FullName
}

// Directions in display order.
var Directions = []Direction{
	{Code: "DGE", FullName: "Direction Générale des Études"},
	{Code: "DF", FullName: "Direction des Finances"},
	{Code: "DRH", FullName: "Direction des Ressources Humaines"},
	{Code: "DSI", FullName: "Direction des Systèmes d'Information"},
	{Code: "BCR", FullName: "Bureau du Recensement National"},
}

var divisions = map[string][]string{
	"DGE": {"Division des Études Économiques", "Division des Études Sociales"},
	"DF":  {"Division de la Comptabilité", "Division du Budget"},
	"DRH": {"Division du Recrutement", "Division de la Formation"},
	"DSI": {"Division du Développement", "Division de l'Infrastructure"},
	"BCR": {},
}

// Units of the distinguished direction. Some labels carry trailing spaces;
// they are stored verbatim because the backend holds them that way.
var Units = []string{
	"Unité Méthodologie, Études et Opérations de terrain",
	"Unité Cartographie et SIG",
	"Unité Informatique ",
	"Unité des Ressources Financières et du Matériel",
	"Unité des Ressources Humaines",
	"Unité de Communication Digitale et Multimédia",
	"Unité de Suivi Évaluation et de la Documentation",
	"Unité de Plaidoyer, Mobilisation Sociale et Sensibilisation",
}

var services = map[string][]string{
	"Unité Méthodologie, Études et Opérations de terrain": {
		"Section « Méthodologie et Opérations de Terrain »",
		"Section « Analyse des Données et Production des Résultats »",
	},
	"Unité Cartographie et SIG": {
		"Section de la cartographie censitaire",
		"Section du Système d'Information Géographique ",
	},
	"Unité Informatique ": {
		"Section Infrastructure et Réseau",
		"Section Étude et Développement des Applications",
		"Section Gestion des Bases de Données, Anonymisation et Archivage",
	},
	"Unité des Ressources Financières et du Matériel": {
		"Section Comptabilité",
		"Section Engagements Financiers",
		"Section Matériel et Logistique",
	},
	"Unité des Ressources Humaines": {
		"Section administrative et du personnel",
		"Section renforcement des capacités",
	},
	"Unité de Communication Digitale et Multimédia": {
		"Section Communication Digitale",
		"Section Communication Multimédia",
	},
	"Unité de Suivi Évaluation et de la Documentation": {
		"Section Suivi et Évaluation",
		"Section Documentation",
	},
	"Unité de Plaidoyer, Mobilisation Sociale et Sensibilisation": {
		"Section Plaidoyer",
		"Section Sensibilisation et Mobilisation Sociale",
	},
}

// IsDistinguished reports whether code is the unit-organised direction.
func IsDistinguished(code string) bool {
	return code == Distinguished
}

// DirectionCodes returns the codes of every direction.
func DirectionCodes() []string {
	return lo.Map(Directions, func(d Direction, _ int) string { return d.Code })
}

// FindDirection looks a direction up by code.
func FindDirection(code string) (Direction, bool) {
	return lo.Find(Directions, func(d Direction) bool { return d.Code == code })
}

// DirectionFullName expands a code. Unknown codes are returned as is and an
// empty code reads "Non spécifiée".
func DirectionFullName(code string) string {
	if code == "" {
		return "Non spécifiée"
	}
	if d, ok := FindDirection(code); ok {
		return d.FullName
	}
	return code
}

// Divisions returns a copy of the division list of a direction.
func Divisions(direction string) []string {
	return append([]string(nil), divisions[direction]...)
}

// Services returns a copy of the section list of a unit.
func Services(unit string) []string {
	return append([]string(nil), services[unit]...)
}

// ValidDivision reports whether division belongs to direction.
func ValidDivision(direction, division string) bool {
	return lo.Contains(divisions[direction], division)
}

// ValidUnit reports whether unit is a unit of the distinguished direction.
func ValidUnit(unit string) bool {
	return lo.Contains(Units, unit)
}

// ValidService reports whether service belongs to unit.
func ValidService(unit, service string) bool {
	return lo.Contains(services[unit], service)
}

var (
	sectionNoise  = regexp.MustCompile(`Section\s*|«|»`)
	parenthetical = regexp.MustCompile(`\s*\(.*\)`)
	wordSplit     = regexp.MustCompile(`[\s,-]`)
)

var ignoredWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields("et des de du la le les a aux un une d' l' au en avec par pour sur dans ou y sont il elle ce qui que son sa ses ces") {
		ignoredWords[w] = struct{}{}
	}
}

func ignored(word string) bool {
	_, ok := ignoredWords[strings.ToLower(word)]
	return ok
}

// ServiceAcronym abbreviates a section name for narrow table cells:
// "Section Infrastructure et Réseau" becomes "SIR". It returns "" when no
// acronym longer than one letter can be built.
func ServiceAcronym(service string) string {
	if service == "" {
		return ""
	}
	if strings.Contains(service, "Système d'Information Géographique") {
		return "SIG"
	}

	name := foldAccents(service)
	name = sectionNoise.ReplaceAllString(name, "")
	name = strings.TrimSpace(parenthetical.ReplaceAllString(name, ""))

	words := lo.Filter(wordSplit.Split(name, -1), func(w string, _ int) bool { return w != "" })

	var b strings.Builder
	for _, w := range words {
		if len([]rune(w)) > 1 && !ignored(w) {
			b.WriteRune([]rune(w)[0])
		}
	}

	acronym := ""
	if b.Len() > 0 {
		acronym = "S" + b.String()
	} else if first, ok := lo.Find(words, func(w string) bool { return !ignored(w) }); ok {
		acronym = "S" + string([]rune(first)[0])
	}

	if len([]rune(acronym)) > 1 {
		return strings.ToUpper(acronym)
	}
	return ""
}

// AffectationLabel is the short assignment text of a stage row: the unit and
// section acronym for the distinguished direction, the division otherwise.
func AffectationLabel(direction, division, unit, service string) string {
	if !IsDistinguished(direction) {
		if division == "" {
			return "Non définie"
		}
		return division
	}
	u := strings.TrimSpace(unit)
	if u == "" {
		u = "Non définie"
	}
	switch {
	case service == "":
		return u + " (Pas de section)"
	case ServiceAcronym(service) != "":
		return u + " / " + ServiceAcronym(service)
	default:
		return u + " / " + strings.TrimSpace(service)
	}
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
