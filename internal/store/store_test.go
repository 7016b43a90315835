package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/noahrubin989/Azure-Face-Detection/internal/faceapi"
)

// TestStoreIntegration runs a full integration test against a real Postgres container.
// It requires Docker to be running.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Explicitly check for Docker availability and fail hard if missing
	// We wrap this in a function to recover from panics inside testcontainers (e.g. socket not found)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Fatalf("Docker not available, cannot run integration test: %v", err)
	}

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("facetrace_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	// Initialize Store (runs migrations)
	s, err := New(ctx, connStr, nil)
	if err != nil {
		t.Fatalf("Failed to connect to store: %v", err)
	}
	defer s.Close(ctx)

	// --- Test Scenarios ---

	faces := []faceapi.Face{
		{
			Rectangle: faceapi.Rectangle{Top: 10, Left: 20, Width: 50, Height: 60},
			Attributes: faceapi.Attributes{
				HeadPose: faceapi.HeadPose{Yaw: 1.5, Pitch: -2.0, Roll: 0.5},
				Blur:     faceapi.Blur{Level: "low", Value: 0.1},
				Mask:     faceapi.Mask{Type: "noMask"},
			},
		},
		{
			Rectangle: faceapi.Rectangle{Top: 100, Left: 200, Width: 40, Height: 40},
			Attributes: faceapi.Attributes{
				Blur: faceapi.Blur{Level: "high", Value: 0.9},
				Mask: faceapi.Mask{Type: "faceMask", NoseAndMouthCovered: true},
			},
		},
	}

	run := Run{
		ID:         "run-1",
		ImageID:    "img-abc",
		ImagePath:  "/tmp/people.jpg",
		FaceCount:  len(faces),
		OutputPath: "/tmp/faces_detected.jpg",
	}
	if err := s.RecordRun(ctx, run, faces); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	if runs[0].ID != run.ID || runs[0].FaceCount != 2 || runs[0].ImagePath != run.ImagePath {
		t.Errorf("Mismatch in persisted run data. Got %+v", runs[0])
	}

	stored, err := s.GetRunFaces(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRunFaces failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("Expected 2 stored faces, got %d", len(stored))
	}
	if stored[0].Index != 0 || stored[1].Index != 1 {
		t.Error("Stored faces must preserve detection order")
	}
	if stored[0].Rectangle != faces[0].Rectangle {
		t.Errorf("Rectangle mismatch: got %+v, want %+v", stored[0].Rectangle, faces[0].Rectangle)
	}
	if stored[0].HeadPose.Yaw != 1.5 || stored[0].Blur.Level != "low" {
		t.Errorf("Attribute mismatch: %+v", stored[0])
	}
	if !stored[1].Mask.NoseAndMouthCovered {
		t.Error("Expected second face mask flag to persist")
	}

	// Re-recording the same run replaces the previous faces (idempotent re-run)
	if err := s.RecordRun(ctx, run, faces[:1]); err != nil {
		t.Fatalf("RecordRun (replace) failed: %v", err)
	}
	stored, err = s.GetRunFaces(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRunFaces after replace failed: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("Expected 1 face after replace, got %d", len(stored))
	}

	// Reset drops everything
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
