package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/speclab/specgate/internal/domain"
	"github.com/speclab/specgate/internal/usecase"
)

// MockSpecFetcher, MockSpecNormalizer defined in ingest_spec_test.go

// MockCapabilityEvaluator is a mock implementation of the CapabilityEvaluator interface.
type MockCapabilityEvaluator struct {
	mock.Mock
}

func (m *MockCapabilityEvaluator) Evaluate(ctx context.Context, caps []domain.Capability, policy domain.Policy) ([]domain.Record, error) {
	args := m.Called(ctx, caps, policy)
	if records := args.Get(0); records != nil {
		return records.([]domain.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSessionRepository is a mock implementation of the SessionRepository interface.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Save(ctx context.Context, session domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Find(ctx context.Context, id string) (domain.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *MockSessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Session), args.Error(1)
}

func petStoreSpec() domain.Spec {
	return domain.Spec{
		Title: "Pet Store",
		Endpoints: []domain.Endpoint{
			{Method: domain.MethodGet, Path: "/pets", OperationID: "listPets", Summary: "List pets", Tags: []string{"pets"}},
			{Method: domain.MethodDelete, Path: "/pets/{petId}", OperationID: "deletePet", Summary: "Delete a pet", Tags: []string{"pets"}},
		},
		Tags: []string{"pets"},
	}
}

func petStoreRecords() []domain.Record {
	return []domain.Record{
		{Name: "listPets", Classification: domain.ClassificationSafe, Expose: domain.ExposureAllow, Reason: "Read-only GET operation with safe keyword: 'list'", Confidence: 0.95},
		{Name: "deletePet", Classification: domain.ClassificationUnsafe, Expose: domain.ExposureBlock, Reason: "Contains destructive keyword: 'delete'", Confidence: 0.9},
	}
}

// newIngestForTest wires an IngestSpecUseCase over a mocked fetcher and
// normalizer that serve a single local OpenAPI document.
func newIngestForTest(t *testing.T, source string, spec domain.Spec, fetchErr error) *usecase.IngestSpecUseCase {
	t.Helper()

	doc := domain.SourceDocument{
		Source: source,
		Raw:    []byte(`{"openapi":"3.0.0"}`),
		Doc:    map[string]any{"openapi": "3.0.0"},
	}

	fetcher := new(MockSpecFetcher)
	fetcher.On("IsURL", source).Return(false)
	if fetchErr != nil {
		fetcher.On("LoadFile", source).Return(domain.SourceDocument{}, fetchErr)
	} else {
		fetcher.On("LoadFile", source).Return(doc, nil)
	}

	norm := new(MockSpecNormalizer)
	norm.On("Normalize", mock.Anything, doc.Doc).Return(spec, nil).Maybe()

	return usecase.NewIngestSpecUseCase(
		fetcher,
		map[domain.SourceFormat]usecase.SpecNormalizer{domain.FormatOpenAPI: norm},
		nil,
		testLogger(),
	)
}

func TestCreateSessionUseCase_Execute(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	spec := petStoreSpec()
	caps := domain.DeriveCapabilities(spec)
	records := petStoreRecords()

	rules := new(MockCapabilityEvaluator)
	rules.On("Evaluate", mock.Anything, caps, domain.PolicyModerate).Return(records, nil).Once()

	var saved domain.Session
	repo := new(MockSessionRepository)
	repo.On("Save", mock.Anything, mock.AnythingOfType("domain.Session")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(domain.Session) }).
		Return(nil).Once()

	uc := usecase.NewCreateSessionUseCase(
		newIngestForTest(t, "petstore.json", spec, nil),
		rules,
		repo,
		testLogger(),
	)
	session, err := uc.Execute(ctx, "petstore.json")
	require.NoError(err)

	assert.Len(session.ID, 8)
	assert.Equal("petstore.json", session.Source)
	assert.Equal(domain.FormatOpenAPI, session.SourceType)
	assert.WithinDuration(time.Now().UTC(), session.CreatedAt, time.Minute)
	assert.Equal(spec, session.Spec)
	assert.Equal(caps, session.Capabilities)

	require.NotNil(session.Run)
	assert.Equal(domain.PolicyModerate, session.Run.Policy)
	assert.Equal(domain.Summary{Total: 2, Exposable: 1, Blocked: 1}, session.Run.Summary)
	assert.Equal(records, session.Run.Records)

	// The persisted session is the returned one.
	assert.Equal(session, saved)

	rules.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestCreateSessionUseCase_ExecuteIngestFailure(t *testing.T) {
	require := require.New(t)

	rules := new(MockCapabilityEvaluator)
	repo := new(MockSessionRepository)

	uc := usecase.NewCreateSessionUseCase(
		newIngestForTest(t, "petstore.json", domain.Spec{}, errors.New("no such file")),
		rules,
		repo,
		testLogger(),
	)
	_, err := uc.Execute(context.Background(), "petstore.json")
	require.Error(err)

	var ingestErr *domain.IngestError
	require.ErrorAs(err, &ingestErr)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	rules.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSessionUseCase_ExecuteEvaluatorFailure(t *testing.T) {
	require := require.New(t)

	spec := petStoreSpec()
	rules := new(MockCapabilityEvaluator)
	rules.On("Evaluate", mock.Anything, mock.Anything, domain.PolicyModerate).
		Return(nil, errors.New("rule engine broke")).Once()
	repo := new(MockSessionRepository)

	uc := usecase.NewCreateSessionUseCase(
		newIngestForTest(t, "petstore.json", spec, nil),
		rules,
		repo,
		testLogger(),
	)
	_, err := uc.Execute(context.Background(), "petstore.json")
	require.Error(err)
	require.Contains(err.Error(), "initial classification failed")
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateSessionUseCase_ExecuteSaveFailure(t *testing.T) {
	require := require.New(t)

	spec := petStoreSpec()
	rules := new(MockCapabilityEvaluator)
	rules.On("Evaluate", mock.Anything, mock.Anything, domain.PolicyModerate).
		Return(petStoreRecords(), nil).Once()
	repo := new(MockSessionRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	uc := usecase.NewCreateSessionUseCase(
		newIngestForTest(t, "petstore.json", spec, nil),
		rules,
		repo,
		testLogger(),
	)
	_, err := uc.Execute(context.Background(), "petstore.json")
	require.Error(err)
	require.Contains(err.Error(), "failed to save session")
}
