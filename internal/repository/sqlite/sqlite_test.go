package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"storenet/internal/codec"
	"storenet/internal/domain"
	"storenet/internal/repository"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// assertNoError fails the test if err is not nil
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertEqual fails the test if expected != actual
func assertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

// testDocument builds a two-device save document
func testDocument(name string) *codec.Document {
	return &codec.Document{
		Version: codec.CurrentVersion,
		Name:    name,
		Devices: []codec.DeviceRecord{
			{
				ID:     "router-1",
				Type:   domain.DeviceTypeRouter,
				Label:  "Router",
				Status: domain.DeviceStatusOnline,
				Ports: []codec.PortRecord{
					{ID: "router-1:lan1", Name: "lan1", Role: domain.PortRoleLAN, ConnectedTo: "pos_terminal-1:eth"},
				},
			},
			{
				ID:     "pos_terminal-1",
				Type:   domain.DeviceTypePOSTerminal,
				Label:  "POS 1",
				Status: domain.DeviceStatusOffline,
				IP:     "10.0.0.20",
				Ports: []codec.PortRecord{
					{ID: "pos_terminal-1:eth", Name: "eth", Role: domain.PortRoleGeneric, ConnectedTo: "router-1:lan1"},
				},
			},
		},
	}
}

// ============================================================================
// Topology Tests
// ============================================================================

func TestSaveAndLoadTopology(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("round trips the document", func(t *testing.T) {
		doc := testDocument("main-street")
		_, err := repo.SaveTopology(ctx, doc, nil)
		assertNoError(t, err)

		loaded, err := repo.LoadTopology(ctx, "main-street")
		assertNoError(t, err)
		assertEqual(t, doc.Devices, loaded.Devices)
		assertEqual(t, codec.CurrentVersion, loaded.Version)
	})

	t.Run("saving again replaces the current document", func(t *testing.T) {
		doc := testDocument("main-street")
		doc.Devices = doc.Devices[:1]
		_, err := repo.SaveTopology(ctx, doc, nil)
		assertNoError(t, err)

		loaded, err := repo.LoadTopology(ctx, "main-street")
		assertNoError(t, err)
		assertEqual(t, 1, len(loaded.Devices))
	})

	t.Run("missing topology returns ErrNotFound", func(t *testing.T) {
		_, err := repo.LoadTopology(ctx, "nowhere")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unnamed document is rejected", func(t *testing.T) {
		_, err := repo.SaveTopology(ctx, testDocument("  "), nil)
		if err == nil {
			t.Fatal("expected error for empty name")
		}
	})
}

func TestListTopologies(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"uptown", "downtown", "uptown"} {
		_, err := repo.SaveTopology(ctx, testDocument(name), nil)
		assertNoError(t, err)
	}

	summaries, err := repo.ListTopologies(ctx)
	assertNoError(t, err)
	assertEqual(t, 2, len(summaries))

	assertEqual(t, "downtown", summaries[0].Name)
	assertEqual(t, 1, summaries[0].Revisions)
	assertEqual(t, "uptown", summaries[1].Name)
	assertEqual(t, 2, summaries[1].Revisions)
	assertEqual(t, 2, summaries[1].Devices)
	if summaries[1].UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestDeleteTopology(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.SaveTopology(ctx, testDocument("closing"), nil)
	assertNoError(t, err)

	assertNoError(t, repo.DeleteTopology(ctx, "closing"))

	_, err = repo.LoadTopology(ctx, "closing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	revisions, err := repo.ListRevisions(ctx, "closing", 0)
	assertNoError(t, err)
	assertEqual(t, 0, len(revisions))

	err = repo.DeleteTopology(ctx, "closing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

// ============================================================================
// Revision Tests
// ============================================================================

func TestRevisions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	findings := []domain.Finding{
		domain.NewFinding("router-wan", domain.SeverityError, "router has no WAN uplink", "router-1"),
	}

	first, err := repo.SaveTopology(ctx, testDocument("store"), findings)
	assertNoError(t, err)
	second, err := repo.SaveTopology(ctx, testDocument("store"), nil)
	assertNoError(t, err)

	if first.ID == second.ID {
		t.Fatal("revision ids must be unique")
	}

	t.Run("lists newest first without documents", func(t *testing.T) {
		revisions, err := repo.ListRevisions(ctx, "store", 0)
		assertNoError(t, err)
		assertEqual(t, 2, len(revisions))
		assertEqual(t, second.ID, revisions[0].ID)
		assertEqual(t, first.ID, revisions[1].ID)
		if revisions[0].Document != nil {
			t.Error("listing should not decode documents")
		}
		assertEqual(t, 0, len(revisions[0].Findings))
		assertEqual(t, 1, len(revisions[1].Findings))
	})

	t.Run("limit", func(t *testing.T) {
		revisions, err := repo.ListRevisions(ctx, "store", 1)
		assertNoError(t, err)
		assertEqual(t, 1, len(revisions))
	})

	t.Run("get includes document and findings", func(t *testing.T) {
		rev, err := repo.GetRevision(ctx, first.ID)
		assertNoError(t, err)
		assertEqual(t, "store", rev.Topology)
		assertEqual(t, findings, rev.Findings)
		if rev.Document == nil {
			t.Fatal("expected document")
		}
		assertEqual(t, 2, len(rev.Document.Devices))
	})

	t.Run("unknown revision", func(t *testing.T) {
		_, err := repo.GetRevision(ctx, "does-not-exist")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
