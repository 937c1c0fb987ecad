package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/milkweights/internal/domain/models"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a period.
var ErrSnapshotNotFound = errors.New("report snapshot not found")

// Repository defines the interface for report snapshot storage.
type Repository interface {
	SaveSnapshot(ctx context.Context, snapshot models.ReportSnapshot) error
	LatestSnapshot(ctx context.Context, year, month int) (models.ReportSnapshot, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "report_snapshots",
	}, nil
}

// SaveSnapshot inserts a snapshot. Earlier snapshots of the same period are kept.
func (r *MongoDBRepository) SaveSnapshot(ctx context.Context, snapshot models.ReportSnapshot) error {
	if _, err := r.collection().InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to insert report snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot stored for year and 1-based month.
func (r *MongoDBRepository) LatestSnapshot(ctx context.Context, year, month int) (models.ReportSnapshot, error) {
	var snapshot models.ReportSnapshot

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	err := r.collection().FindOne(ctx, bson.M{"year": year, "month": month}, opts).Decode(&snapshot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ReportSnapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return models.ReportSnapshot{}, fmt.Errorf("failed to load report snapshot: %w", err)
	}
	return snapshot, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}
