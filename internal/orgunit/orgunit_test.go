package orgunit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceAcronym(t *testing.T) {
	cases := map[string]string{
		"Section Infrastructure et Réseau":                                 "SIR",
		"Section « Méthodologie et Opérations de Terrain »":                "SMOT",
		"Section de la cartographie censitaire":                            "SCC",
		"Section du Système d'Information Géographique ":                   "SIG",
		"Section Gestion des Bases de Données, Anonymisation et Archivage": "SGBDAA",
		"Section administrative et du personnel":                           "SAP",
		"Section Plaidoyer":                                                "SP",
		"Section Étude et Développement des Applications (ancien SEDA)":    "SEDA",
		"":            "",
		"Section":     "",
		"Section et a": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ServiceAcronym(in), in)
	}
}

func TestEveryServiceHasAcronym(t *testing.T) {
	for _, unit := range Units {
		for _, svc := range Services(unit) {
			assert.NotEmpty(t, ServiceAcronym(svc), svc)
		}
	}
}

func TestDirections(t *testing.T) {
	assert.Equal(t, []string{"DGE", "DF", "DRH", "DSI", "BCR"}, DirectionCodes())
	assert.True(t, IsDistinguished("BCR"))
	assert.False(t, IsDistinguished("DSI"))
	assert.Equal(t, "Direction des Finances", DirectionFullName("DF"))
	assert.Equal(t, "XYZ", DirectionFullName("XYZ"))
	assert.Equal(t, "Non spécifiée", DirectionFullName(""))

	d, ok := FindDirection("DRH")
	require.True(t, ok)
	assert.Equal(t, "DRH - Direction des Ressources Humaines", d.Label())

	assert.Empty(t, Divisions("BCR"))
	assert.True(t, ValidDivision("DF", "Division du Budget"))
	assert.False(t, ValidDivision("DSI", "Division du Budget"))
}

func TestListsAreCopies(t *testing.T) {
	divs := Divisions("DF")
	divs[0] = "changed"
	assert.Equal(t, "Division de la Comptabilité", Divisions("DF")[0])
}

func TestUnitsAndServices(t *testing.T) {
	require.Len(t, Units, 8)
	for _, u := range Units {
		assert.True(t, ValidUnit(u))
		assert.NotEmpty(t, Services(u), u)
	}
	assert.True(t, ValidService("Unité Informatique ", "Section Infrastructure et Réseau"))
	assert.False(t, ValidService("Unité Cartographie et SIG", "Section Infrastructure et Réseau"))
	assert.Empty(t, Services("Unité inconnue"))
}

func TestAffectationLabel(t *testing.T) {
	assert.Equal(t, "Division du Budget", AffectationLabel("DF", "Division du Budget", "", ""))
	assert.Equal(t, "Non définie", AffectationLabel("DF", "", "", ""))
	assert.Equal(t, "Unité Informatique / SIR",
		AffectationLabel("BCR", "", "Unité Informatique ", "Section Infrastructure et Réseau"))
	assert.Equal(t, "Unité Informatique (Pas de section)", AffectationLabel("BCR", "", "Unité Informatique ", ""))
}
