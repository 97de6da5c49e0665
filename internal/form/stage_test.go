package form

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stages-admin/internal/backend"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/pkg/config"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

type fakeGateway struct {
	calls        []string
	nextID       int64
	stagiaires   map[int64]models.Stagiaire
	updated      map[int64]models.StagiairePayload
	stagePayload *models.StagePayload
	letter       *models.Document
	createErr    error
	stageErr     error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{nextID: 42, stagiaires: map[int64]models.Stagiaire{}, updated: map[int64]models.StagiairePayload{}}
}

func (g *fakeGateway) CreateStagiaire(_ context.Context, p models.StagiairePayload) (*models.Stagiaire, error) {
	g.calls = append(g.calls, "create_stagiaire")
	if g.createErr != nil {
		return nil, g.createErr
	}
	s := models.Stagiaire{ID: g.nextID, Nom: p.Nom, Prenom: p.Prenom, Email: p.Email}
	g.stagiaires[s.ID] = s
	g.nextID++
	return &s, nil
}

func (g *fakeGateway) GetStagiaire(_ context.Context, id int64) (*models.Stagiaire, error) {
	g.calls = append(g.calls, "get_stagiaire")
	s, ok := g.stagiaires[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return &s, nil
}

func (g *fakeGateway) UpdateStagiaire(_ context.Context, id int64, p models.StagiairePayload) (*models.Stagiaire, error) {
	g.calls = append(g.calls, "update_stagiaire")
	g.updated[id] = p
	return &models.Stagiaire{ID: id}, nil
}

func (g *fakeGateway) CreateStage(_ context.Context, p models.StagePayload, letter *models.Document) (*models.Stage, error) {
	g.calls = append(g.calls, "create_stage")
	g.stagePayload, g.letter = &p, letter
	if g.stageErr != nil {
		return nil, g.stageErr
	}
	return &models.Stage{ID: 7, Theme: p.Theme, StagiaireID: p.Stagiaire}, nil
}

func (g *fakeGateway) UpdateStage(_ context.Context, id int64, p models.StagePayload) (*models.Stage, error) {
	g.calls = append(g.calls, "update_stage")
	g.stagePayload = &p
	return &models.Stage{ID: id, Theme: p.Theme}, nil
}

func newForm() *StageForm {
	return NewStageForm(NewValidator(nil), StageAttachmentRule(config.UploadRule{}))
}

func fillDetails(t *testing.T, f *StageForm) {
	t.Helper()
	for field, value := range map[string]string{
		"theme":      "Supervision réseau",
		"date_debut": "2025-01-06",
		"date_fin":   "2025-03-28",
		"direction":  "DSI",
	} {
		require.NoError(t, f.Set(field, value))
	}
}

func serverFailure() error {
	return appErrors.Wrap(backend.ParseErrorBody(500, []byte(`{"error":"boom"}`)),
		appErrors.ErrBackendFailure.Code, appErrors.ErrBackendFailure.Status, appErrors.ErrBackendFailure.Message)
}

func TestNewStageFormDefaults(t *testing.T) {
	f := newForm()
	assert.Equal(t, StepSubject, f.Step)
	assert.Equal(t, ModeNew, f.Mode)
	assert.Equal(t, "Bac +2", f.Values.NiveauEtude)
	assert.Equal(t, "Academique", f.Values.TypeStage)
	assert.Equal(t, DefaultDecision, f.Values.Decision)
}

func TestStep1BlocksOnMissingFields(t *testing.T) {
	f := newForm()
	require.NoError(t, f.Set("prenom", "Awa"))
	require.NoError(t, f.Set("email", "awa@"))

	assert.False(t, f.Next())
	assert.Equal(t, StepSubject, f.Step)
	assert.Equal(t, "Le nom est obligatoire", f.Errors.Get("nom"))
	assert.Equal(t, "Format d'email invalide", f.Errors.Get("email"))
	assert.False(t, f.Errors.Has("prenom"))

	require.NoError(t, f.Set("nom", "Diallo"))
	assert.False(t, f.Errors.Has("nom"))
	require.NoError(t, f.Set("email", "awa@ecole.ne"))
	assert.True(t, f.Next())
	assert.Equal(t, StepDetails, f.Step)
	assert.Empty(t, f.Errors)
}

func TestStep1WhitespaceIsEmpty(t *testing.T) {
	f := newForm()
	require.NoError(t, f.Set("nom", "   "))
	require.NoError(t, f.Set("prenom", "Awa"))
	assert.False(t, f.ValidateStep1())
	assert.Equal(t, "Le nom est obligatoire", f.Errors.Get("nom"))
	assert.Equal(t, "L'email est obligatoire", f.Errors.Get("email"))
}

func TestExistingModeRequiresSelection(t *testing.T) {
	f := newForm()
	require.NoError(t, f.Set("nom", "Diallo"))
	require.NoError(t, f.Set("email", "x@y.z"))
	require.NoError(t, f.SetMode(ModeExisting))
	assert.Empty(t, f.Values.Nom)
	assert.Empty(t, f.Values.Email)

	assert.False(t, f.Next())
	assert.Equal(t, "Veuillez sélectionner un stagiaire existant", f.Errors.Get("existing_stagiaire"))

	f.SelectExisting(models.Stagiaire{ID: 5, Ecole: "EMIG", Specialite: "Réseaux", NiveauEtude: "Bac +5"})
	assert.False(t, f.Errors.Has("existing_stagiaire"))
	assert.Equal(t, "EMIG", f.Values.Ecole)
	assert.Equal(t, "Bac +5", f.Values.NiveauEtude)
	assert.True(t, f.Next())

	require.NoError(t, f.SetMode(ModeNew))
	assert.Zero(t, f.Values.ExistingStagiaire)
	assert.Error(t, f.SetMode("other"))
}

func TestPreviousKeepsValuesAndDropsErrors(t *testing.T) {
	f := newForm()
	require.NoError(t, f.Set("nom", "Diallo"))
	require.NoError(t, f.Set("prenom", "Awa"))
	require.NoError(t, f.Set("email", "awa@ecole.ne"))
	require.True(t, f.Next())
	assert.False(t, f.ValidateStep2())
	require.NotEmpty(t, f.Errors)

	assert.True(t, f.Previous())
	assert.Equal(t, StepSubject, f.Step)
	assert.Empty(t, f.Errors)
	assert.Equal(t, "Diallo", f.Values.Nom)
}

func TestStep2RequiresEndAfterStart(t *testing.T) {
	f := newForm()
	f.Step = StepDetails
	fillDetails(t, f)
	require.NoError(t, f.Set("date_fin", "2025-01-06"))

	gw := newFakeGateway()
	_, err := f.Submit(context.Background(), gw)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, "La date de fin doit être postérieure à la date de début", f.Errors.Get("date_fin"))
	assert.Empty(t, gw.calls)

	require.NoError(t, f.Set("date_fin", "2025-01-05"))
	assert.False(t, f.ValidateStep2())
	assert.True(t, f.Errors.Has("date_fin"))
}

func TestStep2RequiredFields(t *testing.T) {
	f := newForm()
	f.Step = StepDetails
	require.NoError(t, f.Set("theme", "  "))
	assert.False(t, f.ValidateStep2())
	assert.Equal(t, FieldErrors{
		"theme":      "Le thème du stage est obligatoire",
		"date_debut": "La date de début est obligatoire",
		"date_fin":   "La date de fin est obligatoire",
		"direction":  "La direction est obligatoire",
	}, f.Errors)

	fillDetails(t, f)
	require.NoError(t, f.Set("direction", "BCR"))
	assert.False(t, f.ValidateStep2())
	assert.Equal(t, FieldErrors{"unite": "L'unité est obligatoire pour la direction BCR"}, f.Errors)

	require.NoError(t, f.Set("unite", "Unité Informatique "))
	assert.True(t, f.ValidateStep2())
}

func TestDirectionDrivesDependentLists(t *testing.T) {
	f := newForm()
	assert.Empty(t, f.DivisionOptions())
	assert.Empty(t, f.UnitOptions())

	require.NoError(t, f.Set("direction", "DSI"))
	divisions := f.DivisionOptions()
	require.NotEmpty(t, divisions)
	require.NoError(t, f.Set("division", divisions[0]))
	assert.False(t, f.ShowsUnit())

	require.NoError(t, f.Set("direction", "BCR"))
	assert.Empty(t, f.Values.Division)
	assert.True(t, f.ShowsUnit())
	assert.Empty(t, f.DivisionOptions())
	require.NotEmpty(t, f.UnitOptions())

	require.NoError(t, f.Set("unite", "Unité Informatique "))
	services := f.ServiceOptions()
	require.NotEmpty(t, services)
	require.NoError(t, f.Set("service", services[0]))

	require.NoError(t, f.Set("unite", f.UnitOptions()[0]))
	assert.Empty(t, f.Values.Service)
	require.NoError(t, f.Set("service", f.ServiceOptions()[0]))

	require.NoError(t, f.Set("direction", "BCR"))
	assert.NotEmpty(t, f.Values.Service, "same direction keeps dependants")

	require.NoError(t, f.Set("direction", "DRH"))
	assert.Empty(t, f.Values.Unite)
	assert.Empty(t, f.Values.Service)
	assert.Empty(t, f.ServiceOptions())
	assert.NotEmpty(t, f.DivisionOptions())
}

func TestDecisionKeepsPrefix(t *testing.T) {
	f := newForm()
	require.NoError(t, f.Set("decision", "N° 0042/ME"))
	assert.Equal(t, "N° 0042/ME", f.Values.Decision)
	require.NoError(t, f.Set("decision", "0042"))
	assert.Equal(t, DefaultDecision, f.Values.Decision)
}

func TestSetRejectsUnknownFieldAndBadID(t *testing.T) {
	f := newForm()
	assert.Error(t, f.Set("salaire", "1"))
	assert.Error(t, f.Set("encadrant", "abc"))
	require.NoError(t, f.Set("encadrant", "3"))
	assert.EqualValues(t, 3, f.Values.Encadrant)
	require.NoError(t, f.Set("encadrant", ""))
	assert.Zero(t, f.Values.Encadrant)
}

func TestAttachRejectsPlainText(t *testing.T) {
	f := newForm()
	f.Step = StepDetails
	fillDetails(t, f)

	err := f.Attach(&models.Document{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("hello")})
	require.Error(t, err)
	assert.Nil(t, f.Attachment)
	assert.Equal(t, "notes.txt", f.AttachmentName)
	assert.True(t, strings.HasPrefix(f.Errors.Get(AttachmentField), "Format de fichier non autorisé"))
	assert.Equal(t, "Format de fichier non autorisé. Formats acceptés: PDF, JPG, PNG", f.Errors.Get(AttachmentField))

	gw := newFakeGateway()
	_, err = f.Submit(context.Background(), gw)
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.True(t, f.Errors.Has(AttachmentField))
	assert.Empty(t, gw.calls)

	require.NoError(t, f.Attach(nil))
	assert.False(t, f.Errors.Has(AttachmentField))
}

func TestAttachSniffsGenericContent(t *testing.T) {
	f := newForm()
	require.NoError(t, f.Attach(&models.Document{Filename: "lettre", ContentType: "application/octet-stream", Data: []byte("%PDF-1.7\n%âãÏÓ\n")}))
	require.NotNil(t, f.Attachment)

	err := f.Attach(&models.Document{Filename: "lettre.bin", Data: []byte("plain words only")})
	require.Error(t, err)
	assert.Nil(t, f.Attachment)
}

func TestAttachRejectsOversize(t *testing.T) {
	f := newForm()
	big := bytes.Repeat([]byte("a"), 10<<20+1)
	err := f.Attach(&models.Document{Filename: "scan.png", ContentType: "image/png", Data: big})
	require.Error(t, err)
	assert.Equal(t, "La taille du fichier ne doit pas dépasser 10 Mo", f.Errors.Get(AttachmentField))
}

func newSubjectForm(t *testing.T) *StageForm {
	t.Helper()
	f := newForm()
	require.NoError(t, f.Set("nom", "Diallo"))
	require.NoError(t, f.Set("prenom", "Awa"))
	require.NoError(t, f.Set("email", "awa@ecole.ne"))
	require.True(t, f.Next())
	fillDetails(t, f)
	return f
}

func TestSubmitNewSubjectThenStage(t *testing.T) {
	f := newSubjectForm(t)
	letter := &models.Document{Filename: "lettre.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}
	require.NoError(t, f.Attach(letter))

	gw := newFakeGateway()
	stage, err := f.Submit(context.Background(), gw)
	require.NoError(t, err)
	assert.EqualValues(t, 42, stage.StagiaireID)
	assert.Equal(t, []string{"create_stagiaire", "create_stage"}, gw.calls)
	assert.EqualValues(t, 42, gw.stagePayload.Stagiaire)
	assert.Nil(t, gw.stagePayload.Encadrant)
	assert.Nil(t, gw.stagePayload.Unite)
	assert.Same(t, letter, gw.letter)
	assert.Zero(t, f.Orphan())
}

func TestSubmitKeepsOrphanedSubject(t *testing.T) {
	f := newSubjectForm(t)
	gw := newFakeGateway()
	gw.stageErr = serverFailure()

	_, err := f.Submit(context.Background(), gw)
	require.Error(t, err)
	assert.Equal(t, "Une erreur est survenue, veuillez réessayer plus tard.", f.FormError)
	assert.Equal(t, StepDetails, f.Step)
	assert.EqualValues(t, 42, f.Orphan())
	assert.Contains(t, gw.stagiaires, int64(42))
	assert.NotContains(t, gw.calls, "delete_stagiaire")

	gw.stageErr = nil
	gw.calls = nil
	stage, err := f.Submit(context.Background(), gw)
	require.NoError(t, err)
	assert.Equal(t, []string{"update_stagiaire", "create_stage"}, gw.calls)
	assert.EqualValues(t, 42, stage.StagiaireID)
	assert.Equal(t, "Diallo", gw.updated[42].Nom)
	assert.Zero(t, f.Orphan())
}

func TestSubmitExistingSubjectPatchesAcademicFields(t *testing.T) {
	gw := newFakeGateway()
	gw.stagiaires[5] = models.Stagiaire{ID: 5, Nom: "Sow", Prenom: "Ali", Email: "ali@x.ne", Ecole: "Ancienne", NiveauEtude: "Bac +2"}

	f := newForm()
	require.NoError(t, f.SetMode(ModeExisting))
	f.SelectExisting(gw.stagiaires[5])
	require.NoError(t, f.Set("ecole", "EMIG"))
	require.NoError(t, f.Set("niveau_etude", "Bac +3"))
	require.True(t, f.Next())
	fillDetails(t, f)
	require.NoError(t, f.Set("encadrant", "9"))

	_, err := f.Submit(context.Background(), gw)
	require.NoError(t, err)
	assert.Equal(t, []string{"get_stagiaire", "update_stagiaire", "create_stage"}, gw.calls)
	assert.Equal(t, models.StagiairePayload{Nom: "Sow", Prenom: "Ali", Email: "ali@x.ne", Ecole: "EMIG", NiveauEtude: "Bac +3"}, gw.updated[5])
	assert.EqualValues(t, 5, gw.stagePayload.Stagiaire)
	require.NotNil(t, gw.stagePayload.Encadrant)
	assert.EqualValues(t, 9, *gw.stagePayload.Encadrant)
}

func TestSubmitAbortsWhenSubjectLookupFails(t *testing.T) {
	gw := newFakeGateway()
	f := newForm()
	require.NoError(t, f.SetMode(ModeExisting))
	require.NoError(t, f.Set("existing_stagiaire", "77"))
	require.True(t, f.Next())
	fillDetails(t, f)

	_, err := f.Submit(context.Background(), gw)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, []string{"get_stagiaire"}, gw.calls)
	assert.Equal(t, appErrors.ErrNotFound.Message, f.FormError)
}

func TestEditSendsJSONUpdate(t *testing.T) {
	enc := int64(3)
	f := EditStageForm(models.Stage{
		ID: 11, Theme: "ERP", TypeStage: "Professionnel",
		DateDebut: models.NewDate(2025, 2, 1), DateFin: models.NewDate(2025, 5, 1),
		Direction: "DF", Decision: "N° 7", StagiaireID: 5, EncadrantID: &enc,
	}, NewValidator(nil), StageAttachmentRule(config.UploadRule{}))
	assert.Equal(t, StepDetails, f.Step)
	assert.False(t, f.Previous())
	assert.Equal(t, "2025-02-01", f.Values.DateDebut)

	require.NoError(t, f.Set("encadrant", ""))
	gw := newFakeGateway()
	stage, err := f.Submit(context.Background(), gw)
	require.NoError(t, err)
	assert.EqualValues(t, 11, stage.ID)
	assert.Equal(t, []string{"update_stage"}, gw.calls)
	assert.Nil(t, gw.stagePayload.Division)
	assert.Nil(t, gw.stagePayload.Encadrant)
	assert.EqualValues(t, 5, gw.stagePayload.Stagiaire)

	require.NoError(t, f.Set("stagiaire", ""))
	assert.False(t, f.ValidateStep2())
	assert.Equal(t, "Le stagiaire est obligatoire", f.Errors.Get("stagiaire"))
}

func TestApplyAPIErrorShapes(t *testing.T) {
	var fb Feedback
	fb.ApplyAPIError(appErrors.Wrap(
		backend.ParseErrorBody(400, []byte(`{"form_errors":{"email":["Email déjà utilisé"],"__all__":["Doublon"]}}`)),
		appErrors.ErrValidation.Code, 400, "Doublon"))
	assert.Equal(t, FieldErrors{"email": "Email déjà utilisé"}, fb.Errors)
	assert.Equal(t, "Doublon", fb.FormError)

	fb.ApplyAPIError(appErrors.Wrap(
		backend.ParseErrorBody(400, []byte(`{"theme":["Trop long"]}`)),
		appErrors.ErrValidation.Code, 400, appErrors.ErrValidation.Message))
	assert.Equal(t, FieldErrors{"theme": "Trop long"}, fb.Errors)
	assert.Empty(t, fb.FormError)

	fb.ApplyAPIError(appErrors.Wrap(errors.New("dial tcp: refused"),
		appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, appErrors.ErrBackendUnavailable.Message))
	assert.Empty(t, fb.Errors)
	assert.Equal(t, "Erreur de connexion réseau ou du serveur.", fb.FormError)

	fb.ApplyAPIError(serverFailure())
	assert.Equal(t, "Une erreur est survenue, veuillez réessayer plus tard.", fb.FormError)
}
