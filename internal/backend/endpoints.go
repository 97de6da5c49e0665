package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/noah-isme/stages-admin/internal/models"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, strconv.FormatInt(id, 10))
}

// Login forwards credentials and returns the user with the backend session
// cookies that must accompany every later call.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, Credentials, error) {
	r, err := jsonRequest(http.MethodPost, "auth.login", "auth/login/", models.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, Credentials{}, err
	}
	resp, err := c.do(ctx, Credentials{}, r)
	if err != nil {
		if errors.Is(err, appErrors.ErrUnauthorized) {
			msg := appErrors.ErrInvalidCredentials.Message
			if apiErr, ok := AsAPIError(err); ok && apiErr.General() != "" {
				msg = apiErr.General()
			}
			return nil, Credentials{}, appErrors.Clone(appErrors.ErrInvalidCredentials, msg)
		}
		return nil, Credentials{}, err
	}
	defer resp.Body.Close()

	var body models.LoginResponse
	if err := decodeBody(resp, &body); err != nil {
		return nil, Credentials{}, err
	}
	if !body.Success || body.User == nil {
		return nil, Credentials{}, appErrors.Clone(appErrors.ErrInvalidCredentials, body.Error)
	}

	creds := Credentials{Cookies: map[string]string{}}
	for _, ck := range resp.Cookies() {
		if ck.Value != "" {
			creds.Cookies[ck.Name] = ck.Value
		}
	}
	return body.User, creds, nil
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context, creds Credentials) error {
	return c.doJSON(ctx, creds, request{method: http.MethodPost, endpoint: "auth.logout", path: "auth/logout/"}, nil)
}

// CurrentUser revalidates the backend session.
func (c *Client) CurrentUser(ctx context.Context, creds Credentials) (*models.User, error) {
	var user models.User
	err := c.doJSON(ctx, creds, request{method: http.MethodGet, endpoint: "auth.current_user", path: "auth/current-user/"}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListStagiaires returns every intern ordered by name.
func (c *Client) ListStagiaires(ctx context.Context, creds Credentials) ([]models.Stagiaire, error) {
	var out []models.Stagiaire
	err := c.doJSON(ctx, creds, request{method: http.MethodGet, endpoint: "stagiaires.list", path: "stagiaires/api/"}, &out)
	return out, err
}

// CreateStagiaire registers an intern; the backend assigns the matricule.
func (c *Client) CreateStagiaire(ctx context.Context, creds Credentials, payload models.StagiairePayload) (*models.Stagiaire, error) {
	r, err := jsonRequest(http.MethodPost, "stagiaires.create", "stagiaires/api/create/", payload)
	if err != nil {
		return nil, err
	}
	var out models.Stagiaire
	if err := c.doJSON(ctx, creds, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStagiaire fetches one intern.
func (c *Client) GetStagiaire(ctx context.Context, creds Credentials, id int64) (*models.Stagiaire, error) {
	var out models.Stagiaire
	err := c.doJSON(ctx, creds, request{method: http.MethodGet, endpoint: "stagiaires.get", path: idPath("stagiaires/api/%s/", id)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStagiaire replaces the editable fields of an intern.
func (c *Client) UpdateStagiaire(ctx context.Context, creds Credentials, id int64, payload models.StagiairePayload) (*models.Stagiaire, error) {
	r, err := jsonRequest(http.MethodPut, "stagiaires.update", idPath("stagiaires/api/%s/", id), payload)
	if err != nil {
		return nil, err
	}
	var out models.Stagiaire
	if err := c.doJSON(ctx, creds, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteStagiaire removes an intern. The backend refuses interns with stages.
func (c *Client) DeleteStagiaire(ctx context.Context, creds Credentials, id int64) error {
	return c.doJSON(ctx, creds, request{method: http.MethodDelete, endpoint: "stagiaires.delete", path: idPath("stagiaires/api/%s/", id)}, nil)
}

// StagiaireDossier returns an intern with their stage history.
func (c *Client) StagiaireDossier(ctx context.Context, creds Credentials, id int64) (*models.StagiaireDossier, error) {
	var out models.StagiaireDossier
	err := c.doJSON(ctx, creds, request{method: http.MethodGet, endpoint: "stagiaires.detail", path: idPath("stagiaires/api/%s/detail/", id)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchByMatricule finds an intern by matricule, ignoring case.
func (c *Client) SearchByMatricule(ctx context.Context, creds Credentials, matricule string) (*models.Stagiaire, error) {
	var out models.Stagiaire
	err := c.doJSON(ctx, creds, request{
		method:   http.MethodGet,
		endpoint: "stagiaires.search_matricule",
		path:     "stagiaires/api/search-by-matricule/",
		query:    url.Values{"matricule": {matricule}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEncadrants returns every supervisor ordered by name.
func (c *Client) ListEncadrants(ctx context.Context, creds Credentials) ([]models.Encadrant, error) {
	var out []models.Encadrant
	err := c.doJSON(ctx, creds, request{method: http.MethodGet, endpoint: "encadrants.list", path: "encadrants/api/"}, &out)
	return out, err
}

// GetEncadrant fetches one supervisor.
func (c *Client) GetEncadrant(ctx context.Context, creds Credentials, id int64) (*models.Encadrant, error) {
	var out models.Encadrant
	err := c.doJSON(ctx, creds, request{method: http.MethodGet, endpoint: "encadrants.get", path: idPath("encadrants/api/%s/", id)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateEncadrant registers a supervisor.
func (c *Client) CreateEncadrant(ctx context.Context, creds Credentials, payload models.EncadrantPayload) (*models.Encadrant, error) {
	r, err := jsonRequest(http.MethodPost, "encadrants.create", "encadrants/api/create/", payload)
	if err != nil {
		return nil, err
	}
	var out models.Encadrant
	if err := c.doJSON(ctx, creds, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEncadrant replaces a supervisor.
func (c *Client) UpdateEncadrant(ctx context.Context, creds Credentials, id int64, payload models.EncadrantPayload) (*models.Encadrant, error) {
	r, err := jsonRequest(http.MethodPut, "encadrants.update", idPath("encadrants/api/%s/", id), payload)
	if err != nil {
		return nil, err
	}
	var out models.Encadrant
	if err := c.doJSON(ctx, creds, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEncadrant removes a supervisor.
func (c *Client) DeleteEncadrant(ctx context.Context, creds Credentials, id int64) error {
	return c.doJSON(ctx, creds, request{method: http.MethodDelete, endpoint: "encadrants.delete", path: idPath("encadrants/api/%s/", id)}, nil)
}

// ListStages returns stages, most recent start first. statut filters on the
// backend when non-empty.
func (c *Client) ListStages(ctx context.Context, creds Credentials, statut string) ([]models.Stage, error) {
	r := request{method: http.MethodGet, endpoint: "stages.list", path: "stages/api/"}
	if statut != "" {
		r.query = url.Values{"statut": {statut}}
	}
	var out []models.Stage
	err := c.doJSON(ctx, creds, r, &out)
	return out, err
}

// GetStage fetches one stage.
func (c *Client) GetStage(ctx context.Context, creds Credentials, id int64) (*models.Stage, error) {
	var out models.Stage
	err := c.doJSON(ctx, creds, request{method: http.MethodGet, endpoint: "stages.get", path: idPath("stages/api/%s/", id)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateStage posts a new stage as multipart with the optional acceptance
// letter.
func (c *Client) CreateStage(ctx context.Context, creds Credentials, payload models.StagePayload, letter *models.Document) (*models.Stage, error) {
	fields := []formField{
		{"theme", payload.Theme},
		{"type_stage", payload.TypeStage},
		{"date_debut", payload.DateDebut},
		{"date_fin", payload.DateFin},
		{"direction", payload.Direction},
		{"division", deref(payload.Division)},
		{"unite", deref(payload.Unite)},
		{"service", deref(payload.Service)},
		{"decision", payload.Decision},
		{"stagiaire", strconv.FormatInt(payload.Stagiaire, 10)},
	}
	if payload.Encadrant != nil {
		fields = append(fields, formField{"encadrant", strconv.FormatInt(*payload.Encadrant, 10)})
	}
	r, err := multipartRequest(http.MethodPost, "stages.create", "stages/api/create/", fields, "lettre_acceptation", letter)
	if err != nil {
		return nil, err
	}
	var out models.Stage
	if err := c.doJSON(ctx, creds, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStage replaces the mutable stage fields as JSON.
func (c *Client) UpdateStage(ctx context.Context, creds Credentials, id int64, payload models.StagePayload) (*models.Stage, error) {
	r, err := jsonRequest(http.MethodPut, "stages.update", idPath("stages/api/%s/", id), payload)
	if err != nil {
		return nil, err
	}
	var out models.Stage
	if err := c.doJSON(ctx, creds, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteStage removes a stage. The backend refuses stages with a report.
func (c *Client) DeleteStage(ctx context.Context, creds Credentials, id int64) error {
	return c.doJSON(ctx, creds, request{method: http.MethodDelete, endpoint: "stages.delete", path: idPath("stages/api/%s/", id)}, nil)
}

// GenerateAttestation asks the backend for a completion certificate of a
// validated stage.
func (c *Client) GenerateAttestation(ctx context.Context, creds Credentials, id int64, req models.AttestationRequest) (*models.Document, error) {
	r, err := jsonRequest(http.MethodPost, "stages.attestation", idPath("stages/api/%s/generer-attestation/", id), req)
	if err != nil {
		return nil, err
	}
	data, header, err := c.doBytes(ctx, creds, r)
	if err != nil {
		return nil, err
	}
	ext := req.Format
	if ext == "" {
		ext = "docx"
	}
	return document(data, header, fmt.Sprintf("attestation_stage_%d.%s", id, ext)), nil
}

// ListRapports returns reports matching the backend-side filter.
func (c *Client) ListRapports(ctx context.Context, creds Credentials, filter models.RapportFilter) ([]models.Rapport, error) {
	q := url.Values{}
	if v := strings.TrimSpace(filter.Query); v != "" {
		q.Set("q", v)
	}
	if filter.Etat != "" {
		q.Set("etat", filter.Etat)
	}
	if filter.Annee != "" {
		q.Set("annee", filter.Annee)
	}
	var out []models.Rapport
	err := c.doJSON(ctx, creds, request{method: http.MethodGet, endpoint: "rapports.list", path: "rapports/api/", query: q}, &out)
	return out, err
}

// CreateRapport uploads a report for a stage.
func (c *Client) CreateRapport(ctx context.Context, creds Credentials, stageID int64, file *models.Document) (*models.Rapport, error) {
	r, err := multipartRequest(http.MethodPost, "rapports.create", "rapports/api/create/",
		[]formField{{"stage", strconv.FormatInt(stageID, 10)}}, "fichier", file)
	if err != nil {
		return nil, err
	}
	var out models.Rapport
	if err := c.doJSON(ctx, creds, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRapport changes the stage of a report and optionally its file.
func (c *Client) UpdateRapport(ctx context.Context, creds Credentials, id, stageID int64, file *models.Document) (*models.Rapport, error) {
	r, err := multipartRequest(http.MethodPut, "rapports.update", idPath("rapports/api/%s/", id),
		[]formField{{"stage", strconv.FormatInt(stageID, 10)}}, "fichier", file)
	if err != nil {
		return nil, err
	}
	var out models.Rapport
	if err := c.doJSON(ctx, creds, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRapport removes a report.
func (c *Client) DeleteRapport(ctx context.Context, creds Credentials, id int64) error {
	return c.doJSON(ctx, creds, request{method: http.MethodDelete, endpoint: "rapports.delete", path: idPath("rapports/api/%s/", id)}, nil)
}

// ValiderRapport validates a report, which also validates its stage.
func (c *Client) ValiderRapport(ctx context.Context, creds Credentials, id int64) (*models.Rapport, error) {
	var out models.Rapport
	err := c.doJSON(ctx, creds, request{method: http.MethodPost, endpoint: "rapports.valider", path: idPath("rapports/api/%s/valider/", id)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ArchiverRapport archives a validated report.
func (c *Client) ArchiverRapport(ctx context.Context, creds Credentials, id int64) (*models.Rapport, error) {
	var out models.Rapport
	err := c.doJSON(ctx, creds, request{method: http.MethodPost, endpoint: "rapports.archiver", path: idPath("rapports/api/%s/archiver/", id)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadRapport fetches the report file.
func (c *Client) DownloadRapport(ctx context.Context, creds Credentials, id int64) (*models.Document, error) {
	data, header, err := c.doBytes(ctx, creds, request{method: http.MethodGet, endpoint: "rapports.download", path: idPath("rapports/api/%s/download/", id)})
	if err != nil {
		return nil, err
	}
	return document(data, header, fmt.Sprintf("rapport_%d.pdf", id)), nil
}

// Dashboard returns the aggregate statistics.
func (c *Client) Dashboard(ctx context.Context, creds Credentials) (*models.Dashboard, error) {
	var out models.Dashboard
	if err := c.doJSON(ctx, creds, request{method: http.MethodGet, endpoint: "dashboard", path: "dashboard/api/"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type formField struct {
	name  string
	value string
}

// multipartRequest encodes fields and an optional file part.
func multipartRequest(method, endpoint, target string, fields []formField, fileField string, file *models.Document) (request, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return request{}, fmt.Errorf("encode %s field %s: %w", endpoint, f.name, err)
		}
	}
	if file != nil && len(file.Data) > 0 {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     fileField,
			"filename": path.Base(file.Filename),
		}))
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return request{}, fmt.Errorf("encode %s file: %w", endpoint, err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return request{}, fmt.Errorf("encode %s file: %w", endpoint, err)
		}
	}
	if err := w.Close(); err != nil {
		return request{}, fmt.Errorf("encode %s body: %w", endpoint, err)
	}
	return request{
		method:      method,
		endpoint:    endpoint,
		path:        target,
		bodyBytes:   buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, nil
}

func document(data []byte, header http.Header, fallbackName string) *models.Document {
	doc := &models.Document{
		Filename:    fallbackName,
		ContentType: header.Get("Content-Type"),
		Data:        data,
	}
	if _, params, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		doc.Filename = path.Base(params["filename"])
	}
	if doc.ContentType == "" {
		doc.ContentType = "application/octet-stream"
	}
	return doc
}

func decodeBody(resp *http.Response, out any) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return appErrors.Wrap(err, appErrors.ErrBackendFailure.Code, appErrors.ErrBackendFailure.Status, appErrors.ErrBackendFailure.Message)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
