package mongostore

import (
	"context"
	"time"

	"careerhub/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// RecruiterStore
// ============================================================================

func (s *Store) CreateRecruiter(ctx context.Context, r *model.Recruiter) error {
	return insertOne(ctx, s.col(ColRecruiters), r)
}

func (s *Store) GetRecruiterByID(ctx context.Context, id string) (*model.Recruiter, error) {
	return findOne[model.Recruiter](ctx, s.col(ColRecruiters), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetRecruiterByEmail(ctx context.Context, email string) (*model.Recruiter, error) {
	return findOne[model.Recruiter](ctx, s.col(ColRecruiters), bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetRecruiterByUsername(ctx context.Context, username string) (*model.Recruiter, error) {
	return findOne[model.Recruiter](ctx, s.col(ColRecruiters), bson.D{{Key: "username", Value: username}})
}

func (s *Store) UpdateRecruiterPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	return updateFields(ctx, s.col(ColRecruiters), id, bson.D{
		{Key: "password_hash", Value: passwordHash},
		{Key: "password_changed_at", Value: changedAt},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) SetRecruiterCompany(ctx context.Context, id, companyID string) error {
	return updateFields(ctx, s.col(ColRecruiters), id, bson.D{
		{Key: "company_id", Value: companyID},
		{Key: "updated_at", Value: time.Now()},
	})
}

// ============================================================================
// CompanyStore
// ============================================================================

func (s *Store) CreateCompany(ctx context.Context, c *model.Company) error {
	return insertOne(ctx, s.col(ColCompanies), c)
}

func (s *Store) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	return findOne[model.Company](ctx, s.col(ColCompanies), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListCompanies(ctx context.Context, limit, offset int) ([]*model.Company, error) {
	return findMany[model.Company](ctx, s.col(ColCompanies), bson.D{}, pagedFindOpts(limit, offset))
}

func (s *Store) UpdateCompany(ctx context.Context, c *model.Company) error {
	return updateFields(ctx, s.col(ColCompanies), c.ID, bson.D{
		{Key: "name", Value: c.Name},
		{Key: "website", Value: c.Website},
		{Key: "about", Value: c.About},
		{Key: "location", Value: c.Location},
		{Key: "logo_key", Value: c.LogoKey},
		{Key: "updated_at", Value: time.Now()},
	})
}
