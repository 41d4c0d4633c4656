package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"conformity/internal/fleet"
	"conformity/internal/models"
	"conformity/internal/report"
	"conformity/internal/rules"
)

// mockParser is a testify mock for the fleet parser dependency.
type mockParser struct {
	mock.Mock
}

func (m *mockParser) ParseFile(path string) (*fleet.Definition, error) {
	args := m.Called(path)
	if def := args.Get(0); def != nil {
		return def.(*fleet.Definition), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockPrinter is a testify mock for the report printer dependency.
type mockPrinter struct {
	mock.Mock
}

func (m *mockPrinter) PrintReport(reports []report.ClusterReport, format report.OutputFormatType) error {
	args := m.Called(reports, format)
	return args.Error(0)
}

// stubRule returns canned conformity outcomes keyed by cluster name. Clusters
// without an entry conform.
type stubRule struct {
	failed map[string][]string
	errs   map[string]error
}

func (r *stubRule) Check(ctx context.Context, cluster models.Cluster) (models.Conformity, error) {
	if err := r.errs[cluster.Name]; err != nil {
		return models.Conformity{}, err
	}
	failed := r.failed[cluster.Name]
	if failed == nil {
		failed = []string{}
	}
	return models.Conformity{RuleName: rules.RuleNameInstanceHasTag, FailedInstanceIDs: failed}, nil
}

func (r *stubRule) Name() string {
	return rules.RuleNameInstanceHasTag
}

func (r *stubRule) NonconformingReason() string {
	return "Instances do not have tags (env)"
}

// setupServiceWithMocks creates a new Service instance wired to fresh mocks
// and a factory that always yields the given rule.
func setupServiceWithMocks(config Config, rule rules.Rule) (*Service, *mockParser, *mockPrinter) {
	parserMock := new(mockParser)
	printerMock := new(mockPrinter)
	factory := func(requiredTags []string) (rules.Rule, error) {
		return rule, nil
	}
	service := NewService(config, factory, parserMock, printerMock, zerolog.Nop())
	return service, parserMock, printerMock
}

// definitionWithClusters builds a fleet definition with one single-group
// cluster per name.
func definitionWithClusters(requiredTags []string, names ...string) *fleet.Definition {
	def := &fleet.Definition{
		RuleName:     "instance_has_tag",
		RequiredTags: requiredTags,
	}
	for i, name := range names {
		def.Clusters = append(def.Clusters, models.Cluster{
			Name:   name,
			Region: "us-east-1",
			AutoScalingGroups: []models.AutoScalingGroup{
				{Name: name + "-asg", Instances: []string{fmt.Sprintf("i-%d", i)}},
			},
		})
	}
	return def
}

// TestValidateConfig ensures the service rejects configurations that cannot
// identify a fleet to check.
func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "Valid config",
			config:  Config{FleetPath: "fleet.hcl"},
			wantErr: false,
		},
		{
			name:    "Missing fleet path",
			config:  Config{RequiredTags: []string{"env"}},
			wantErr: true,
		},
		{
			name:    "Empty config",
			config:  Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, _ := setupServiceWithMocks(tt.config, &stubRule{})

			err := service.validateConfig()

			if tt.wantErr {
				assert.Error(t, err, "Expected an error for invalid config")
			} else {
				assert.NoError(t, err, "Expected no error for valid config")
			}
		})
	}
}

// TestGetOutputFormat ensures string format specifications convert to the
// appropriate report format.
func TestGetOutputFormat(t *testing.T) {
	tests := []struct {
		name         string
		formatString string
		expected     report.OutputFormatType
	}{
		{
			name:         "JSON format",
			formatString: "json",
			expected:     report.OutputFormatTypeJSON,
		},
		{
			name:         "JSON uppercase",
			formatString: "JSON",
			expected:     report.OutputFormatTypeJSON,
		},
		{
			name:         "Default to table when unrecognized",
			formatString: "unknown",
			expected:     report.OutputFormatTypeTABLE,
		},
		{
			name:         "Table format",
			formatString: "table",
			expected:     report.OutputFormatTypeTABLE,
		},
		{
			name:         "Empty string defaults to table",
			formatString: "",
			expected:     report.OutputFormatTypeTABLE,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, _ := setupServiceWithMocks(Config{OutputFormat: tt.formatString}, &stubRule{})

			format := service.getOutputFormat()
			assert.Equal(t, tt.expected, format, "Format conversion should match expected type")
		})
	}
}

// TestCountNonconforming ensures the counter skips errored clusters.
func TestCountNonconforming(t *testing.T) {
	results := []ClusterCheckResult{
		{Conformity: models.Conformity{FailedInstanceIDs: []string{"i-1"}}},
		{Conformity: models.Conformity{FailedInstanceIDs: []string{}}},
		{Conformity: models.Conformity{FailedInstanceIDs: []string{"i-2"}}},
		{Error: errors.New("some error")},
	}

	count := countNonconforming(results)
	assert.Equal(t, 2, count, "Should count exactly 2 non-conforming clusters")
}

// TestCountErrors ensures the counter only sees failed checks.
func TestCountErrors(t *testing.T) {
	results := []ClusterCheckResult{
		{Conformity: models.Conformity{FailedInstanceIDs: []string{"i-1"}}},
		{Error: errors.New("error 1")},
		{Conformity: models.Conformity{FailedInstanceIDs: []string{}}},
		{Error: errors.New("error 2")},
	}

	count := countErrors(results)
	assert.Equal(t, 2, count, "Should count exactly 2 clusters with errors")
}

// TestRun exercises the main workflow across outcome combinations.
func TestRun(t *testing.T) {
	tests := []struct {
		name                     string
		config                   Config
		definition               *fleet.Definition
		rule                     *stubRule
		expectedAnyNonconforming bool
		expectedAnyError         bool
	}{
		{
			name:       "All clusters conforming",
			config:     Config{FleetPath: "fleet.hcl"},
			definition: definitionWithClusters([]string{"env"}, "payments", "search"),
			rule:       &stubRule{},
		},
		{
			name:       "Non-conforming cluster",
			config:     Config{FleetPath: "fleet.hcl"},
			definition: definitionWithClusters([]string{"env"}, "payments", "search"),
			rule: &stubRule{
				failed: map[string][]string{"payments": {"i-0"}},
			},
			expectedAnyNonconforming: true,
		},
		{
			name:       "Cluster check error",
			config:     Config{FleetPath: "fleet.hcl"},
			definition: definitionWithClusters([]string{"env"}, "payments", "search"),
			rule: &stubRule{
				errs: map[string]error{"search": errors.New("api error RequestLimitExceeded")},
			},
			expectedAnyError: true,
		},
		{
			name:       "With concurrency limit",
			config:     Config{FleetPath: "fleet.hcl", ConcurrencyLimit: 1},
			definition: definitionWithClusters([]string{"env"}, "a", "b", "c"),
			rule:       &stubRule{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, parserMock, printerMock := setupServiceWithMocks(tt.config, tt.rule)

			parserMock.On("ParseFile", tt.config.FleetPath).Return(tt.definition, nil)
			printerMock.On("PrintReport", mock.Anything, mock.Anything).Return(nil)

			anyNonconforming, anyError, err := service.Run(context.Background())

			assert.NoError(t, err, "Did not expect a run error")
			assert.Equal(t, tt.expectedAnyNonconforming, anyNonconforming, "Non-conforming flag should match expectations")
			assert.Equal(t, tt.expectedAnyError, anyError, "Error flag should match expectations")
			parserMock.AssertExpectations(t)
		})
	}
}

// TestRun_ReportsInDefinitionOrder ensures concurrent completion order never
// leaks into the rendered report.
func TestRun_ReportsInDefinitionOrder(t *testing.T) {
	rule := &stubRule{failed: map[string][]string{"zulu": {"i-0"}}}
	service, parserMock, printerMock := setupServiceWithMocks(Config{FleetPath: "fleet.hcl"}, rule)

	parserMock.On("ParseFile", "fleet.hcl").Return(definitionWithClusters([]string{"env"}, "zulu", "alpha"), nil)

	var captured []report.ClusterReport
	printerMock.On("PrintReport", mock.Anything, report.OutputFormatTypeTABLE).Run(func(args mock.Arguments) {
		captured = args.Get(0).([]report.ClusterReport)
	}).Return(nil)

	_, _, err := service.Run(context.Background())

	assert.NoError(t, err, "Did not expect a run error")
	assert.Len(t, captured, 2)
	assert.Equal(t, "zulu", captured[0].Cluster, "Reports should follow the fleet definition order")
	assert.Equal(t, "alpha", captured[1].Cluster)
	assert.False(t, captured[0].Rules[0].Conforming)
	assert.Equal(t, "Instances do not have tags (env)", captured[0].Rules[0].Reason)
	assert.True(t, captured[1].Rules[0].Conforming)
	printerMock.AssertExpectations(t)
}

// TestRun_ErroredClusterExcludedFromReport ensures a failed check produces no
// report row for that cluster.
func TestRun_ErroredClusterExcludedFromReport(t *testing.T) {
	rule := &stubRule{errs: map[string]error{"payments": errors.New("api error AuthFailure")}}
	service, parserMock, printerMock := setupServiceWithMocks(Config{FleetPath: "fleet.hcl"}, rule)

	parserMock.On("ParseFile", "fleet.hcl").Return(definitionWithClusters([]string{"env"}, "payments", "search"), nil)

	var captured []report.ClusterReport
	printerMock.On("PrintReport", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(0).([]report.ClusterReport)
	}).Return(nil)

	_, anyError, err := service.Run(context.Background())

	assert.NoError(t, err, "A failed cluster check is reported via the error flag, not a run error")
	assert.True(t, anyError)
	assert.Len(t, captured, 1, "Only the successfully checked cluster should be reported")
	assert.Equal(t, "search", captured[0].Cluster)
}

// TestRun_FleetParseError ensures a definition that cannot be loaded aborts
// the run.
func TestRun_FleetParseError(t *testing.T) {
	service, parserMock, _ := setupServiceWithMocks(Config{FleetPath: "broken.hcl"}, &stubRule{})

	parserMock.On("ParseFile", "broken.hcl").Return(nil, errors.New("failed to parse"))

	_, anyError, err := service.Run(context.Background())

	assert.Error(t, err, "Expected an error for an unparseable fleet definition")
	assert.True(t, anyError)
	assert.Contains(t, err.Error(), "error parsing fleet definition")
}

// TestRun_UnsupportedRule ensures an unknown rule identifier in the fleet
// file aborts the run.
func TestRun_UnsupportedRule(t *testing.T) {
	service, parserMock, _ := setupServiceWithMocks(Config{FleetPath: "fleet.hcl"}, &stubRule{})

	definition := definitionWithClusters([]string{"env"}, "payments")
	definition.RuleName = "instance_is_old"
	parserMock.On("ParseFile", "fleet.hcl").Return(definition, nil)

	_, _, err := service.Run(context.Background())

	assert.Error(t, err, "Expected an error for an unknown rule")
	assert.Contains(t, err.Error(), "unsupported rule")
}

// TestRun_MissingFleetPath ensures validation fires before any parsing.
func TestRun_MissingFleetPath(t *testing.T) {
	service, _, _ := setupServiceWithMocks(Config{}, &stubRule{})

	_, anyError, err := service.Run(context.Background())

	assert.Error(t, err, "Expected an error for a missing fleet path")
	assert.True(t, anyError)
}

// TestRun_RequiredTagsPrecedence ensures CLI-supplied tags beat the fleet
// file and the file supplies them otherwise.
func TestRun_RequiredTagsPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		cliTags  []string
		expected []string
	}{
		{
			name:     "CLI tags override the fleet file",
			cliTags:  []string{"team"},
			expected: []string{"team"},
		},
		{
			name:     "Fleet file tags used when CLI gives none",
			cliTags:  nil,
			expected: []string{"env", "owner"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parserMock := new(mockParser)
			printerMock := new(mockPrinter)

			var gotTags []string
			factory := func(requiredTags []string) (rules.Rule, error) {
				gotTags = requiredTags
				return &stubRule{}, nil
			}

			service := NewService(Config{FleetPath: "fleet.hcl", RequiredTags: tt.cliTags}, factory, parserMock, printerMock, zerolog.Nop())

			parserMock.On("ParseFile", "fleet.hcl").Return(definitionWithClusters([]string{"env", "owner"}, "payments"), nil)
			printerMock.On("PrintReport", mock.Anything, mock.Anything).Return(nil)

			_, _, err := service.Run(context.Background())

			assert.NoError(t, err, "Did not expect a run error")
			assert.Equal(t, tt.expected, gotTags, "The rule factory should receive the effective tags")
		})
	}
}

// TestRun_RuleFactoryError ensures an invalid rule configuration aborts the
// run before any cluster is checked.
func TestRun_RuleFactoryError(t *testing.T) {
	parserMock := new(mockParser)
	printerMock := new(mockPrinter)

	factory := func(requiredTags []string) (rules.Rule, error) {
		return nil, rules.NewRuleError(rules.ErrInvalidConfig, "at least one required tag must be provided", rules.RuleNameInstanceHasTag, nil)
	}

	service := NewService(Config{FleetPath: "fleet.hcl"}, factory, parserMock, printerMock, zerolog.Nop())

	definition := definitionWithClusters(nil, "payments")
	parserMock.On("ParseFile", "fleet.hcl").Return(definition, nil)

	_, anyError, err := service.Run(context.Background())

	assert.Error(t, err, "Expected the rule construction failure to abort the run")
	assert.True(t, anyError)
	assert.Contains(t, err.Error(), "error building conformity rule")
	assert.True(t, rules.IsErrorCategory(err, rules.ErrInvalidConfig), "The rule validation category should stay reachable")
}
