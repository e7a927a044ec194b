package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobtracker/internal/domain/entity"
	"jobtracker/internal/domain/repository"
	"jobtracker/internal/infrastructure/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultCollection = "jobtrack"
	DefaultDocumentID = "jobs"

	backendName = "mongo"
)

// jobListDocument is the single document holding the whole job list.
type jobListDocument struct {
	ID      string        `bson:"_id"`
	Jobs    []jobDocument `bson:"jobs"`
	SavedAt time.Time     `bson:"saved_at"`
}

type jobDocument struct {
	ID        int64     `bson:"id"`
	Company   string    `bson:"company"`
	Role      string    `bson:"role"`
	Location  string    `bson:"location,omitempty"`
	Status    string    `bson:"status"`
	Source    string    `bson:"source,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
}

type MongoJobRepo struct {
	col   *mongo.Collection
	docID string
}

func NewMongoJobRepo(db *mongo.Database, collection, docID string) repository.JobRepository {
	if collection == "" {
		collection = DefaultCollection
	}
	if docID == "" {
		docID = DefaultDocumentID
	}
	return &MongoJobRepo{
		col:   db.Collection(collection),
		docID: docID,
	}
}

func (r *MongoJobRepo) Load(ctx context.Context) ([]entity.Job, error) {
	start := time.Now()
	metrics.IncRepoOp(backendName, "load")
	defer func() { metrics.ObserveRepoOp(backendName, "load", time.Since(start)) }()

	raw, err := r.col.FindOne(ctx, bson.M{"_id": r.docID}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []entity.Job{}, nil
		}
		metrics.IncError("mongo_job_repo", "read_error")
		return nil, fmt.Errorf("%w: find %s: %w", repository.ErrRead, r.docID, err)
	}

	var doc jobListDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		metrics.IncError("mongo_job_repo", "parse_error")
		return nil, fmt.Errorf("%w: decode %s: %w", repository.ErrParse, r.docID, err)
	}

	jobs, err := fromDocuments(doc.Jobs)
	if err != nil {
		metrics.IncError("mongo_job_repo", "parse_error")
		return nil, fmt.Errorf("%w: %w", repository.ErrParse, err)
	}
	return jobs, nil
}

func (r *MongoJobRepo) Save(ctx context.Context, jobs []entity.Job) error {
	start := time.Now()
	metrics.IncRepoOp(backendName, "save")
	defer func() { metrics.ObserveRepoOp(backendName, "save", time.Since(start)) }()

	doc := jobListDocument{
		ID:      r.docID,
		Jobs:    toDocuments(jobs),
		SavedAt: time.Now().UTC(),
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": r.docID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		metrics.IncError("mongo_job_repo", "write_error")
		return fmt.Errorf("%w: replace %s: %w", repository.ErrWrite, r.docID, err)
	}
	return nil
}

func toDocuments(jobs []entity.Job) []jobDocument {
	docs := make([]jobDocument, 0, len(jobs))
	for _, j := range jobs {
		docs = append(docs, jobDocument{
			ID:        int64(j.ID),
			Company:   j.Company,
			Role:      j.Role,
			Location:  j.Location,
			Status:    string(j.Status),
			Source:    string(j.Source),
			Timestamp: j.Timestamp.UTC(),
		})
	}
	return docs
}

func fromDocuments(docs []jobDocument) ([]entity.Job, error) {
	jobs := make([]entity.Job, 0, len(docs))
	for _, d := range docs {
		status, err := entity.ParseStatus(d.Status)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", d.ID, err)
		}
		if d.ID < 0 || d.ID > int64(^uint32(0)) {
			return nil, fmt.Errorf("job id %d out of range", d.ID)
		}
		var source entity.JobSource
		if d.Source != "" {
			source = entity.ParseSource(d.Source)
		}
		job := entity.Job{
			ID:        uint32(d.ID),
			Company:   d.Company,
			Role:      d.Role,
			Location:  d.Location,
			Status:    status,
			Source:    source,
			Timestamp: d.Timestamp.UTC(),
		}
		if err := job.Validate(); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
