package service

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"

	"github.com/noah-isme/stages-admin/internal/backend"
	"github.com/noah-isme/stages-admin/internal/models"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
)

// fakeBackend serves the read and delete endpoints the services call
// directly.
type fakeBackend struct {
	stages     []models.Stage
	stagiaires []models.Stagiaire
	encadrants []models.Encadrant
	rapports   []models.Rapport
	dashboard  models.Dashboard
	document   *models.Document
	dossier    *models.StagiaireDossier
	err        error

	dashboardCalls int
	deleted        []int64
	validated      []int64
	archived       []int64
}

func (b *fakeBackend) ListStages(context.Context, backend.Credentials, string) ([]models.Stage, error) {
	return b.stages, b.err
}

func (b *fakeBackend) GetStage(_ context.Context, _ backend.Credentials, id int64) (*models.Stage, error) {
	for _, s := range b.stages {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (b *fakeBackend) DeleteStage(_ context.Context, _ backend.Credentials, id int64) error {
	if b.err != nil {
		return b.err
	}
	b.deleted = append(b.deleted, id)
	return nil
}

func (b *fakeBackend) ListStagiaires(context.Context, backend.Credentials) ([]models.Stagiaire, error) {
	return b.stagiaires, b.err
}

func (b *fakeBackend) GetStagiaire(_ context.Context, _ backend.Credentials, id int64) (*models.Stagiaire, error) {
	for _, s := range b.stagiaires {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (b *fakeBackend) DeleteStagiaire(_ context.Context, _ backend.Credentials, id int64) error {
	b.deleted = append(b.deleted, id)
	return b.err
}

func (b *fakeBackend) StagiaireDossier(context.Context, backend.Credentials, int64) (*models.StagiaireDossier, error) {
	if b.dossier == nil {
		return nil, appErrors.ErrNotFound
	}
	return b.dossier, nil
}

func (b *fakeBackend) GetEncadrant(_ context.Context, _ backend.Credentials, id int64) (*models.Encadrant, error) {
	for _, e := range b.encadrants {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (b *fakeBackend) DeleteEncadrant(_ context.Context, _ backend.Credentials, id int64) error {
	b.deleted = append(b.deleted, id)
	return b.err
}

func (b *fakeBackend) ListEncadrants(context.Context, backend.Credentials) ([]models.Encadrant, error) {
	return b.encadrants, b.err
}

func (b *fakeBackend) ListRapports(context.Context, backend.Credentials, models.RapportFilter) ([]models.Rapport, error) {
	return b.rapports, b.err
}

func (b *fakeBackend) DeleteRapport(_ context.Context, _ backend.Credentials, id int64) error {
	b.deleted = append(b.deleted, id)
	return b.err
}

func (b *fakeBackend) ValiderRapport(_ context.Context, _ backend.Credentials, id int64) (*models.Rapport, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.validated = append(b.validated, id)
	return &models.Rapport{ID: id, Etat: models.EtatValide}, nil
}

func (b *fakeBackend) ArchiverRapport(_ context.Context, _ backend.Credentials, id int64) (*models.Rapport, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.archived = append(b.archived, id)
	return &models.Rapport{ID: id, Etat: models.EtatArchive}, nil
}

func (b *fakeBackend) DownloadRapport(context.Context, backend.Credentials, int64) (*models.Document, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.document, nil
}

func (b *fakeBackend) Dashboard(context.Context, backend.Credentials) (*models.Dashboard, error) {
	b.dashboardCalls++
	if b.err != nil {
		return nil, b.err
	}
	d := b.dashboard
	return &d, nil
}

// fakeGateway is the user-bound write surface.
type fakeGateway struct {
	calls    []string
	stageErr error
	document *models.Document
}

func (g *fakeGateway) CreateStagiaire(_ context.Context, p models.StagiairePayload) (*models.Stagiaire, error) {
	g.calls = append(g.calls, "create_stagiaire")
	return &models.Stagiaire{ID: 42, Nom: p.Nom, Prenom: p.Prenom}, nil
}

func (g *fakeGateway) GetStagiaire(_ context.Context, id int64) (*models.Stagiaire, error) {
	g.calls = append(g.calls, "get_stagiaire")
	return &models.Stagiaire{ID: id}, nil
}

func (g *fakeGateway) UpdateStagiaire(_ context.Context, id int64, p models.StagiairePayload) (*models.Stagiaire, error) {
	g.calls = append(g.calls, "update_stagiaire")
	return &models.Stagiaire{ID: id, Nom: p.Nom, Prenom: p.Prenom}, nil
}

func (g *fakeGateway) CreateStage(_ context.Context, p models.StagePayload, _ *models.Document) (*models.Stage, error) {
	g.calls = append(g.calls, "create_stage")
	if g.stageErr != nil {
		return nil, g.stageErr
	}
	return &models.Stage{ID: 7, Theme: p.Theme, StagiaireID: p.Stagiaire, Direction: p.Direction}, nil
}

func (g *fakeGateway) UpdateStage(_ context.Context, id int64, p models.StagePayload) (*models.Stage, error) {
	g.calls = append(g.calls, "update_stage")
	return &models.Stage{ID: id, Theme: p.Theme}, nil
}

func (g *fakeGateway) CreateEncadrant(_ context.Context, p models.EncadrantPayload) (*models.Encadrant, error) {
	g.calls = append(g.calls, "create_encadrant")
	return &models.Encadrant{ID: 3, Nom: p.Nom, Institution: p.Institution}, nil
}

func (g *fakeGateway) UpdateEncadrant(_ context.Context, id int64, p models.EncadrantPayload) (*models.Encadrant, error) {
	g.calls = append(g.calls, "update_encadrant")
	return &models.Encadrant{ID: id, Nom: p.Nom}, nil
}

func (g *fakeGateway) CreateRapport(_ context.Context, stageID int64, _ *models.Document) (*models.Rapport, error) {
	g.calls = append(g.calls, "create_rapport")
	return &models.Rapport{ID: 11, StageID: stageID, Etat: models.EtatEnAttente}, nil
}

func (g *fakeGateway) UpdateRapport(_ context.Context, id, stageID int64, _ *models.Document) (*models.Rapport, error) {
	g.calls = append(g.calls, "update_rapport")
	return &models.Rapport{ID: id, StageID: stageID}, nil
}

func (g *fakeGateway) GenerateAttestation(context.Context, int64, models.AttestationRequest) (*models.Document, error) {
	g.calls = append(g.calls, "generate_attestation")
	return g.document, nil
}

func (g *fakeGateway) SearchByMatricule(_ context.Context, matricule string) (*models.Stagiaire, error) {
	g.calls = append(g.calls, "search_matricule")
	return &models.Stagiaire{ID: 5, Matricule: matricule}, nil
}

func gatewaysOf(gw *fakeGateway) GatewayFactory {
	return func(backend.Credentials) Gateway { return gw }
}

// memoryCache is a CacheRepository over a map, JSON-encoded like redis.
type memoryCache struct {
	mu          sync.Mutex
	items       map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, pattern)
	for key := range c.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.items, key)
		}
	}
	return nil
}

// recordingAuditRepo collects written entries.
type recordingAuditRepo struct {
	mu      sync.Mutex
	entries []models.AuditLog
	written chan struct{}
}

func newRecordingAuditRepo() *recordingAuditRepo {
	return &recordingAuditRepo{written: make(chan struct{}, 16)}
}

func (r *recordingAuditRepo) Create(_ context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	r.entries = append(r.entries, *log)
	r.mu.Unlock()
	r.written <- struct{}{}
	return nil
}

func (r *recordingAuditRepo) List(context.Context, models.AuditFilter) ([]models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditLog(nil), r.entries...), nil
}

func (r *recordingAuditRepo) snapshot() []models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditLog(nil), r.entries...)
}

var testCaller = Caller{
	Credentials: backend.Credentials{},
	Actor:       models.AuditActor{Username: "awa", Role: "admin", RequestID: "req-1"},
}
