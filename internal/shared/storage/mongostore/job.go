package mongostore

import (
	"context"
	"time"

	"careerhub/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// JobStore
// ============================================================================

func (s *Store) CreateJob(ctx context.Context, j *model.Job) error {
	return insertOne(ctx, s.col(ColJobs), j)
}

func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	return findOne[model.Job](ctx, s.col(ColJobs), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, error) {
	return findMany[model.Job](ctx, s.col(ColJobs), bson.D{
		{Key: "status", Value: model.JobStatusOpen},
	}, pagedFindOpts(limit, offset))
}

func (s *Store) ListJobsByRecruiter(ctx context.Context, recruiterID string) ([]*model.Job, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Job](ctx, s.col(ColJobs), bson.D{{Key: "recruiter_id", Value: recruiterID}}, opts)
}

func (s *Store) UpdateJob(ctx context.Context, j *model.Job) error {
	return updateFields(ctx, s.col(ColJobs), j.ID, bson.D{
		{Key: "title", Value: j.Title},
		{Key: "description", Value: j.Description},
		{Key: "location", Value: j.Location},
		{Key: "skills", Value: j.Skills},
		{Key: "salary_min", Value: j.SalaryMin},
		{Key: "salary_max", Value: j.SalaryMax},
		{Key: "status", Value: j.Status},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) DeleteJob(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColJobs), id)
}

// ============================================================================
// Applications
// ============================================================================

func (s *Store) CreateApplication(ctx context.Context, a *model.Application) error {
	// (job_id, user_id) 唯一索引把重复申请转换为 ErrDuplicate
	return insertOne(ctx, s.col(ColApplications), a)
}

func (s *Store) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	return findOne[model.Application](ctx, s.col(ColApplications), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListApplicationsByJob(ctx context.Context, jobID string) ([]*model.Application, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Application](ctx, s.col(ColApplications), bson.D{{Key: "job_id", Value: jobID}}, opts)
}

func (s *Store) ListApplicationsByUser(ctx context.Context, userID string) ([]*model.Application, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Application](ctx, s.col(ColApplications), bson.D{{Key: "user_id", Value: userID}}, opts)
}

func (s *Store) UpdateApplicationStatus(ctx context.Context, id string, status model.ApplicationStatus) error {
	return updateFields(ctx, s.col(ColApplications), id, bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: time.Now()},
	})
}
