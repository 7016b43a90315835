package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/noahrubin989/Azure-Face-Detection/internal/faceapi"
	"github.com/noahrubin989/Azure-Face-Detection/internal/logging"
)

// Store manages the PostgreSQL connection holding detection history.
type Store struct {
	conn   *pgx.Conn
	logger *zap.Logger
}

// Run is one recorded execution of the detection pipeline.
type Run struct {
	ID         string
	ImageID    string
	ImagePath  string
	FaceCount  int
	OutputPath string
	DetectedAt time.Time
}

// StoredFace is one face record persisted for a run.
type StoredFace struct {
	Index     int
	Rectangle faceapi.Rectangle
	HeadPose  faceapi.HeadPose
	Blur      faceapi.Blur
	Mask      faceapi.Mask
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, logging.NewOperationError("store.connect", err)
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn, logger: logger}, nil
}

// initSchema creates the necessary tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS detection_runs (
			id TEXT PRIMARY KEY,
			image_id TEXT NOT NULL,
			image_path TEXT NOT NULL,
			face_count INT NOT NULL,
			output_path TEXT NOT NULL DEFAULT '',
			detected_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS detected_faces (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT REFERENCES detection_runs(id) ON DELETE CASCADE,
			face_index INT NOT NULL,
			top_px INT NOT NULL,
			left_px INT NOT NULL,
			width_px INT NOT NULL,
			height_px INT NOT NULL,
			yaw DOUBLE PRECISION NOT NULL DEFAULT 0,
			pitch DOUBLE PRECISION NOT NULL DEFAULT 0,
			roll DOUBLE PRECISION NOT NULL DEFAULT 0,
			blur_level TEXT NOT NULL DEFAULT '',
			blur_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			mask_type TEXT NOT NULL DEFAULT '',
			nose_mouth_covered BOOL NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS detected_faces_run_id_idx ON detected_faces (run_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// RecordRun persists a detection run and its face records in one transaction.
// Re-running on the same run ID replaces the previous result.
func (s *Store) RecordRun(ctx context.Context, run Run, faces []faceapi.Face) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return logging.NewOperationError("store.record_run", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO detection_runs (id, image_id, image_path, face_count, output_path, detected_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			image_id = EXCLUDED.image_id,
			image_path = EXCLUDED.image_path,
			face_count = EXCLUDED.face_count,
			output_path = EXCLUDED.output_path,
			detected_at = NOW()
	`, run.ID, run.ImageID, run.ImagePath, run.FaceCount, run.OutputPath)
	if err != nil {
		return logging.NewOperationError("store.record_run", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM detected_faces WHERE run_id = $1", run.ID); err != nil {
		return logging.NewOperationError("store.record_run", err)
	}

	for i, face := range faces {
		r := face.Rectangle
		a := face.Attributes
		_, err := tx.Exec(ctx, `
			INSERT INTO detected_faces
				(run_id, face_index, top_px, left_px, width_px, height_px,
				 yaw, pitch, roll, blur_level, blur_value, mask_type, nose_mouth_covered)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, run.ID, i, r.Top, r.Left, r.Width, r.Height,
			a.HeadPose.Yaw, a.HeadPose.Pitch, a.HeadPose.Roll,
			a.Blur.Level, a.Blur.Value, a.Mask.Type, a.Mask.NoseAndMouthCovered)
		if err != nil {
			return logging.NewOperationError("store.record_run", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return logging.NewOperationError("store.record_run", err)
	}

	s.logger.Info("detection run recorded",
		zap.String("run_id", run.ID),
		zap.Int("faces", len(faces)))
	return nil
}

// ListRuns returns all recorded runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, image_id, image_path, face_count, output_path, detected_at
		FROM detection_runs
		ORDER BY detected_at DESC
	`)
	if err != nil {
		return nil, logging.NewOperationError("store.list_runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ImageID, &r.ImagePath, &r.FaceCount, &r.OutputPath, &r.DetectedAt); err != nil {
			return nil, logging.NewOperationError("store.list_runs", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunFaces returns the face records of a run in detection order.
func (s *Store) GetRunFaces(ctx context.Context, runID string) ([]StoredFace, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT face_index, top_px, left_px, width_px, height_px,
		       yaw, pitch, roll, blur_level, blur_value, mask_type, nose_mouth_covered
		FROM detected_faces
		WHERE run_id = $1
		ORDER BY face_index ASC
	`, runID)
	if err != nil {
		return nil, logging.NewOperationError("store.get_run_faces", err)
	}
	defer rows.Close()

	var faces []StoredFace
	for rows.Next() {
		var f StoredFace
		if err := rows.Scan(&f.Index,
			&f.Rectangle.Top, &f.Rectangle.Left, &f.Rectangle.Width, &f.Rectangle.Height,
			&f.HeadPose.Yaw, &f.HeadPose.Pitch, &f.HeadPose.Roll,
			&f.Blur.Level, &f.Blur.Value,
			&f.Mask.Type, &f.Mask.NoseAndMouthCovered); err != nil {
			return nil, logging.NewOperationError("store.get_run_faces", err)
		}
		faces = append(faces, f)
	}
	return faces, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS detected_faces CASCADE;
		DROP TABLE IF EXISTS detection_runs CASCADE;
	`)
	return err
}
