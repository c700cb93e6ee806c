package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/repo-dashboard/internal/domain"
)

type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) Render(table domain.Table) (*domain.Report, error) {
	args := m.Called(table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Report), args.Error(1)
}

func newTestDashboard(f *mockFetcher, r *mockRenderer) *Dashboard {
	return NewDashboard(NewCollector(f, zerolog.Nop()), r, zerolog.Nop())
}

func TestDashboard_Run(t *testing.T) {
	testCases := []struct {
		name        string
		dryRun      bool
		resolves    bool
		renderErr   error
		expectErr   error
		expectCalls bool
	}{
		{name: "renders the report", resolves: true, expectCalls: true},
		{name: "dry run skips rendering", resolves: true, dryRun: true},
		{name: "empty fetch result is fatal", resolves: false, expectErr: ErrNoData},
		{name: "render failure is fatal", resolves: true, renderErr: errors.New("disk full"), expectCalls: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := new(mockFetcher)
			renderer := new(mockRenderer)
			if tc.resolves {
				fetcher.On("FetchRepository", mock.Anything, "orgA/repo1").Return(&domain.RepositoryMetadata{Stars: 10}, nil)
				expectListings(fetcher, "orgA/repo1")
			} else {
				fetcher.On("FetchRepository", mock.Anything, "orgA/repo1").Return(nil, errors.New("404"))
			}
			report := &domain.Report{Path: "reports/x.xlsx", Summary: domain.Summary{TotalRepositories: 1}}
			if tc.renderErr != nil {
				renderer.On("Render", mock.Anything).Return(nil, tc.renderErr)
			} else {
				renderer.On("Render", mock.Anything).Return(report, nil)
			}

			outcome, err := newTestDashboard(fetcher, renderer).Run(context.Background(), []string{"orgA/repo1"}, tc.dryRun)

			switch {
			case tc.expectErr != nil:
				assert.ErrorIs(t, err, tc.expectErr)
				assert.Nil(t, outcome)
			case tc.renderErr != nil:
				assert.ErrorIs(t, err, tc.renderErr)
				assert.Nil(t, outcome)
			default:
				require.NoError(t, err)
				require.Len(t, outcome.Table, 1)
				if tc.dryRun {
					assert.Nil(t, outcome.Report)
				} else {
					assert.Equal(t, report, outcome.Report)
				}
			}
			if tc.expectCalls {
				renderer.AssertCalled(t, "Render", mock.Anything)
			} else {
				renderer.AssertNotCalled(t, "Render", mock.Anything)
			}
		})
	}
}
