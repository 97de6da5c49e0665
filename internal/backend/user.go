package backend

import (
	"context"

	"github.com/noah-isme/stages-admin/internal/models"
)

// UserClient is a Client bound to one user's credentials. Forms submit
// through it so they never handle cookies.
type UserClient struct {
	client *Client
	creds  Credentials
}

// As binds the client to creds.
func (c *Client) As(creds Credentials) *UserClient {
	return &UserClient{client: c, creds: creds}
}

func (u *UserClient) CreateStagiaire(ctx context.Context, payload models.StagiairePayload) (*models.Stagiaire, error) {
	return u.client.CreateStagiaire(ctx, u.creds, payload)
}

func (u *UserClient) GetStagiaire(ctx context.Context, id int64) (*models.Stagiaire, error) {
	return u.client.GetStagiaire(ctx, u.creds, id)
}

func (u *UserClient) UpdateStagiaire(ctx context.Context, id int64, payload models.StagiairePayload) (*models.Stagiaire, error) {
	return u.client.UpdateStagiaire(ctx, u.creds, id, payload)
}

func (u *UserClient) SearchByMatricule(ctx context.Context, matricule string) (*models.Stagiaire, error) {
	return u.client.SearchByMatricule(ctx, u.creds, matricule)
}

func (u *UserClient) CreateEncadrant(ctx context.Context, payload models.EncadrantPayload) (*models.Encadrant, error) {
	return u.client.CreateEncadrant(ctx, u.creds, payload)
}

func (u *UserClient) UpdateEncadrant(ctx context.Context, id int64, payload models.EncadrantPayload) (*models.Encadrant, error) {
	return u.client.UpdateEncadrant(ctx, u.creds, id, payload)
}

func (u *UserClient) CreateStage(ctx context.Context, payload models.StagePayload, letter *models.Document) (*models.Stage, error) {
	return u.client.CreateStage(ctx, u.creds, payload, letter)
}

func (u *UserClient) UpdateStage(ctx context.Context, id int64, payload models.StagePayload) (*models.Stage, error) {
	return u.client.UpdateStage(ctx, u.creds, id, payload)
}

func (u *UserClient) GenerateAttestation(ctx context.Context, id int64, req models.AttestationRequest) (*models.Document, error) {
	return u.client.GenerateAttestation(ctx, u.creds, id, req)
}

func (u *UserClient) CreateRapport(ctx context.Context, stageID int64, file *models.Document) (*models.Rapport, error) {
	return u.client.CreateRapport(ctx, u.creds, stageID, file)
}

func (u *UserClient) UpdateRapport(ctx context.Context, id, stageID int64, file *models.Document) (*models.Rapport, error) {
	return u.client.UpdateRapport(ctx, u.creds, id, stageID, file)
}
