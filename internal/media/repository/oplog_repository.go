package repository

import (
	"context"

	"media_share_service/internal/media/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OpLogRepository pipeline operation history
type OpLogRepository interface {
	Insert(ctx context.Context, record *domain.OperationRecord) error
	FindByJob(ctx context.Context, jobID string) ([]domain.OperationRecord, error)
	FindRecentFailures(ctx context.Context, limit int64) ([]domain.OperationRecord, error)
}

type opLogRepository struct {
	coll *mongo.Collection
}

// NewMongoOpLogRepository create a OpLogRepository
func NewMongoOpLogRepository(db *mongo.Database) OpLogRepository {
	return &opLogRepository{
		coll: db.Collection("media_operations"),
	}
}

func (r *opLogRepository) Insert(ctx context.Context, record *domain.OperationRecord) error {
	_, err := r.coll.InsertOne(ctx, record)
	return err
}

func (r *opLogRepository) FindByJob(ctx context.Context, jobID string) ([]domain.OperationRecord, error) {
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cur, err := r.coll.Find(ctx, bson.M{"job_id": jobID}, opts)
	if err != nil {
		return nil, err
	}
	var records []domain.OperationRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FindRecentFailures 最近失敗的 operation, 最新的在前
func (r *opLogRepository) FindRecentFailures(ctx context.Context, limit int64) ([]domain.OperationRecord, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{"success": false}, opts)
	if err != nil {
		return nil, err
	}
	var records []domain.OperationRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
