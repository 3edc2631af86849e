package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	doctors map[uuid.UUID]*Doctor
}

func newMockRepo() *mockRepo {
	return &mockRepo{doctors: make(map[uuid.UUID]*Doctor)}
}

func (m *mockRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = uuid.New()
	d.Active = true
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.doctors[d.ID] = d
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Doctor, int, error) {
	var items []*Doctor
	for _, d := range m.doctors {
		if activeOnly && !d.Active {
			continue
		}
		items = append(items, d)
	}
	return items, len(items), nil
}

func (m *mockRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	d, ok := m.doctors[id]
	if !ok {
		return ErrNotFound
	}
	d.Active = active
	return nil
}

func TestExists(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	d := &Doctor{Name: "Dr. Rivas", Specialty: "odontología"}
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := svc.Exists(context.Background(), d.ID)
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v; want true", ok, err)
	}

	ok, err = svc.Exists(context.Background(), uuid.New())
	if err != nil || ok {
		t.Errorf("Exists(unknown) = %v, %v; want false with no error", ok, err)
	}
}

func TestExists_DeactivatedDoctor(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	d := &Doctor{Name: "Dr. Rivas"}
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Deactivate(context.Background(), d.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	ok, err := svc.Exists(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("deactivated doctor must not accept new bookings")
	}
}

func TestCreate_RequiresName(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.Create(context.Background(), &Doctor{Specialty: "pediatría"}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestDeactivate_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.Deactivate(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
