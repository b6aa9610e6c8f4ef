package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollbook/rollbook-api/internal/models"
)

type mockSemesterRepo struct {
	semesters []models.Semester
	listCalls int
}

func (m *mockSemesterRepo) List(_ context.Context) ([]models.Semester, error) {
	m.listCalls++
	return m.semesters, nil
}

func (m *mockSemesterRepo) FindByID(_ context.Context, id int64) (*models.Semester, error) {
	for _, semester := range m.semesters {
		if semester.ID == id {
			s := semester
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSemesterRepo) Create(_ context.Context, semester *models.Semester) error {
	semester.ID = int64(len(m.semesters) + 1)
	m.semesters = append(m.semesters, *semester)
	return nil
}

func (m *mockSemesterRepo) Update(_ context.Context, semester *models.Semester) error {
	for i := range m.semesters {
		if m.semesters[i].ID == semester.ID {
			m.semesters[i] = *semester
		}
	}
	return nil
}

func (m *mockSemesterRepo) Delete(_ context.Context, id int64) error {
	for i := range m.semesters {
		if m.semesters[i].ID == id {
			m.semesters = append(m.semesters[:i], m.semesters[i+1:]...)
			break
		}
	}
	return nil
}

func TestSemesterListUsesCache(t *testing.T) {
	repo := &mockSemesterRepo{semesters: []models.Semester{{ID: 1, Name: "Semester 1"}}}
	cache := &stubCache{}
	svc := NewSemesterService(repo, cache, time.Minute, nil, nil)

	_, err := svc.List(context.Background())
	require.NoError(t, err)
	_, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestSemesterCreateInvalidatesCache(t *testing.T) {
	repo := &mockSemesterRepo{semesters: []models.Semester{{ID: 1, Name: "Semester 1"}}}
	cache := &stubCache{}
	svc := NewSemesterService(repo, cache, time.Minute, nil, nil)

	_, err := svc.List(context.Background())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), SemesterRequest{Name: "Semester 2"})
	require.NoError(t, err)

	semesters, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, semesters, 2)
}

func TestNameIndexIsCaseInsensitive(t *testing.T) {
	repo := &mockSemesterRepo{semesters: []models.Semester{
		{ID: 3, Name: "Semester 3"},
		{ID: 5, Name: "Semester  5"},
	}}
	svc := NewSemesterService(repo, nil, time.Minute, nil, nil)

	index, err := svc.NameIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), index["semester 3"])
	assert.Equal(t, int64(5), index["semester 5"])
}

func TestSemesterGetNotFound(t *testing.T) {
	svc := NewSemesterService(&mockSemesterRepo{}, nil, time.Minute, nil, nil)
	_, err := svc.Get(context.Background(), 42)
	require.Error(t, err)
}
