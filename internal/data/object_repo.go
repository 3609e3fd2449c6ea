package data

import (
	"context"
	"database/sql"

	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
)

// ObjectRepo provides database-backed artifact blob storage.
type ObjectRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewObjectRepo creates a new ObjectRepo instance.
func NewObjectRepo(db *sql.DB, tp TimeProvider) *ObjectRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &ObjectRepo{DB: db, timeProvider: tp}
}

// Put stores an artifact blob, replacing any previous blob at the same
// path. Replacement keeps re-executed stages idempotent.
func (r *ObjectRepo) Put(ctx context.Context, obj *model.StoredObject) error {
	if obj == nil || obj.Path == "" {
		return apperrors.Validation("object path is required")
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	now := r.timeProvider.Now().UTC()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO objects (path, content_type, data, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (path) DO UPDATE
		SET content_type = EXCLUDED.content_type,
		    data = EXCLUDED.data,
		    created_at = EXCLUDED.created_at
	`, obj.Path, contentType, obj.Data, now)
	if err != nil {
		return apperrors.MapDBError(err)
	}

	obj.ContentType = contentType
	obj.CreatedAt = now
	return nil
}

// Get retrieves an artifact blob by path.
func (r *ObjectRepo) Get(ctx context.Context, path string) (*model.StoredObject, error) {
	if path == "" {
		return nil, apperrors.Validation("object path is required")
	}

	obj := &model.StoredObject{}
	err := r.DB.QueryRowContext(ctx, `
		SELECT path, content_type, data, created_at
		FROM objects
		WHERE path = $1
	`, path).Scan(&obj.Path, &obj.ContentType, &obj.Data, &obj.CreatedAt)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return obj, nil
}
