package form

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/stages-admin/internal/orgunit"
)

var basicEmail = regexp.MustCompile(`\S+@\S+\.\S+`)

// Validator wraps validator/v10 with the form tag as field name and the
// French message table.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the custom rules on validate, creating one when nil.
func NewValidator(validate *validator.Validate) *Validator {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := strings.Split(fld.Tag.Get("form"), ",")[0]; name != "" && name != "-" {
			return name
		}
		return fld.Name
	})
	_ = validate.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return basicEmail.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("direction", func(fl validator.FieldLevel) bool {
		_, ok := orgunit.FindDirection(fl.Field().String())
		return ok
	})
	return &Validator{validate: validate}
}

// messages maps "field.tag" to the text shown under the input.
var messages = map[string]string{
	"nom.required":                 "Le nom est obligatoire",
	"prenom.required":              "Le prénom est obligatoire",
	"email.required":               "L'email est obligatoire",
	"email.basic_email":            "Format d'email invalide",
	"existing_stagiaire.required":  "Veuillez sélectionner un stagiaire existant",
	"theme.required":               "Le thème du stage est obligatoire",
	"date_debut.required":          "La date de début est obligatoire",
	"date_fin.required":            "La date de fin est obligatoire",
	"date_fin.gtfield":             "La date de fin doit être postérieure à la date de début",
	"direction.required":           "La direction est obligatoire",
	"direction.direction":          "Direction inconnue",
	"unite.required_if":            "L'unité est obligatoire pour la direction BCR",
	"stagiaire.required_if":        "Le stagiaire est obligatoire",
	"stage.required":               "Veuillez sélectionner un stage.",
	"fichier.required_if":          "Veuillez fournir un fichier.",
	"institution.required":         "L'institution est obligatoire",
	"institution.oneof":            "Institution inconnue",
	"nom_institution.required_if":  "Le nom de l'institution est obligatoire pour un encadrant externe",
	"signataire.required":          "Veuillez saisir le nom du signataire",
	"fonction_signataire.required": "Veuillez saisir la fonction du signataire",
	"format.oneof":                 "Format non pris en charge",
	"matricule.required":           "Veuillez entrer un matricule",
}

const fallbackMessage = "Valeur invalide"

// Check validates s and returns the first failure of each field, or nil.
func (v *Validator) Check(s any) FieldErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"__all__": err.Error()}
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg = fallbackMessage
		}
		out[field] = msg
	}
	return out
}
