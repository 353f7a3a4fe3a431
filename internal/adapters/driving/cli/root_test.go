package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hcgarun/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/hcgarun/internal/core/domain"
	"github.com/custodia-labs/hcgarun/internal/core/services"
)

// mockSettings implements driving.SettingsService for testing.
type mockSettings struct {
	cfg     domain.PipelineConfig
	err     error
	history bool
	set     map[domain.StageName]bool
}

func newMockSettings() *mockSettings {
	return &mockSettings{
		cfg:     domain.DefaultPipelineConfig(),
		history: true,
		set:     make(map[domain.StageName]bool),
	}
}

func (m *mockSettings) PipelineConfig() (domain.PipelineConfig, error) {
	return m.cfg.Clone(), m.err
}

func (m *mockSettings) SetStageEnabled(stage domain.StageName, enabled bool) error {
	m.set[stage] = enabled
	return nil
}

func (m *mockSettings) HistoryEnabled() bool {
	return m.history
}

func (m *mockSettings) ConfigPath() string {
	return "/tmp/hcgarun/config.toml"
}

// recordingRunner implements driven.ProcessRunner and writes a marker
// to out for every process it "starts".
type recordingRunner struct {
	mu    sync.Mutex
	out   *bytes.Buffer
	codes map[domain.StageName]int
	calls []domain.Invocation

	// onRun, when set, is called as each process "runs".
	onRun func(domain.Invocation)
}

func (r *recordingRunner) Run(_ context.Context, inv domain.Invocation) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, inv)
	if r.out != nil {
		fmt.Fprintf(r.out, "<%s ran>\n", inv.Stage)
	}
	if r.onRun != nil {
		r.onRun(inv)
	}
	return r.codes[inv.Stage], nil
}

func (r *recordingRunner) stages() []domain.StageName {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StageName
	for _, c := range r.calls {
		out = append(out, c.Stage)
	}
	return out
}

type cliFixture struct {
	settings *mockSettings
	runner   *recordingRunner
	runs     *memory.RunStore
	out      *bytes.Buffer
	errOut   *bytes.Buffer
}

// setupCLITest injects mocks and restores package state when the test ends.
func setupCLITest(t *testing.T) *cliFixture {
	t.Helper()

	oldSettings, oldHistory := settingsService, historyService
	oldRunner, oldRuns, oldWatcher := processRunner, runStore, datasetWatcher
	oldWire, oldClose := wire, closeWiring

	f := &cliFixture{
		settings: newMockSettings(),
		runs:     memory.NewRunStore(),
		out:      new(bytes.Buffer),
		errOut:   new(bytes.Buffer),
	}
	f.runner = &recordingRunner{out: f.out, codes: make(map[domain.StageName]int)}

	settingsService = f.settings
	historyService = services.NewHistoryService(f.runs)
	processRunner = f.runner
	runStore = f.runs
	datasetWatcher = nil
	wire = nil
	closeWiring = nil
	resetFlags()

	t.Cleanup(func() {
		settingsService, historyService = oldSettings, oldHistory
		processRunner, runStore, datasetWatcher = oldRunner, oldRuns, oldWatcher
		wire, closeWiring = oldWire, oldClose
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetContext(context.Background())
	})

	return f
}

// execute runs the command tree with args, capturing output in the fixture.
func (f *cliFixture) execute(args ...string) error {
	rootCmd.SetOut(f.out)
	rootCmd.SetErr(f.errOut)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// resetFlags clears values left over from earlier executions.
func resetFlags() {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "hcgarun <dataset-id>", rootCmd.Use)
}

func TestRootCmd_Long(t *testing.T) {
	assert.Contains(t, rootCmd.Long, "extract_features")
	assert.Contains(t, rootCmd.Long, "OMP_NUM_THREADS=1")
}

func TestRun_ExtractFeaturesByDefault(t *testing.T) {
	f := setupCLITest(t)

	err := f.execute("ENZYMES")

	require.NoError(t, err)
	require.Len(t, f.runner.calls, 1)
	inv := f.runner.calls[0]
	assert.Equal(t, domain.StageExtractFeatures, inv.Stage)
	assert.Equal(t, "hcga", inv.Program)
	assert.Equal(t,
		[]string{"extract_features", "datasets/ENZYMES.pkl", "-m", "fast", "-n", "2", "--timeout", "1000"},
		inv.Args)
	assert.Equal(t, map[string]string{"OMP_NUM_THREADS": "1"}, inv.Env)
}

func TestRun_AnnouncesBeforeProcessStarts(t *testing.T) {
	f := setupCLITest(t)

	require.NoError(t, f.execute("ENZYMES"))

	assert.Equal(t, "Extracting features\n<extract_features ran>\n", f.out.String())
}

func TestRun_AllStagesInOrder(t *testing.T) {
	f := setupCLITest(t)

	require.NoError(t, f.execute("ENZYMES", "--enable", "get_data,feature_analysis"))

	assert.Equal(t,
		[]domain.StageName{domain.StageGetData, domain.StageExtractFeatures, domain.StageFeatureAnalysis},
		f.runner.stages())
	assert.Equal(t,
		"Getting data\n<get_data ran>\n"+
			"Extracting features\n<extract_features ran>\n"+
			"Analysing features\n<feature_analysis ran>\n",
		f.out.String())
}

func TestRun_MissingDataset(t *testing.T) {
	f := setupCLITest(t)

	err := f.execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingDataset)
	assert.Equal(t, domain.ExitUsage, ExitCode(err))
	assert.Empty(t, f.runner.calls)
	assert.Empty(t, f.out.String())
}

func TestRun_TooManyArguments(t *testing.T) {
	f := setupCLITest(t)

	err := f.execute("ENZYMES", "PROTEINS")

	require.Error(t, err)
	assert.Equal(t, domain.ExitUsage, ExitCode(err))
	assert.Empty(t, f.runner.calls)
}

func TestRun_UnknownFlagIsUsageError(t *testing.T) {
	f := setupCLITest(t)

	err := f.execute("ENZYMES", "--bogus")

	require.Error(t, err)
	assert.Equal(t, domain.ExitUsage, ExitCode(err))
}

func TestRun_StageExitCodePropagates(t *testing.T) {
	f := setupCLITest(t)
	f.runner.codes[domain.StageExtractFeatures] = 3

	err := f.execute("ENZYMES")

	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
	assert.True(t, quiet(err))
}

func TestRun_HaltsAfterFailure(t *testing.T) {
	f := setupCLITest(t)
	f.runner.codes[domain.StageGetData] = 4

	err := f.execute("ENZYMES", "--enable", "get_data", "--enable", "feature_analysis")

	require.Error(t, err)
	assert.Equal(t, 4, ExitCode(err))
	assert.Equal(t, []domain.StageName{domain.StageGetData}, f.runner.stages())
	assert.NotContains(t, f.out.String(), "Extracting features")
}

func TestRun_ContinueOnError(t *testing.T) {
	f := setupCLITest(t)
	f.runner.codes[domain.StageGetData] = 4
	f.runner.codes[domain.StageFeatureAnalysis] = 5

	err := f.execute("ENZYMES", "--enable", "get_data,feature_analysis", "--continue-on-error")

	require.Error(t, err)
	assert.Equal(t, 4, ExitCode(err), "first failure decides the exit code")
	assert.Len(t, f.runner.stages(), 3)
}

func TestRun_DisableFlag(t *testing.T) {
	f := setupCLITest(t)

	require.NoError(t, f.execute("ENZYMES", "--disable", "extract_features"))

	assert.Empty(t, f.runner.calls)
	assert.Empty(t, f.out.String())
}

func TestRun_UnknownStageFlag(t *testing.T) {
	f := setupCLITest(t)

	err := f.execute("ENZYMES", "--enable", "train_model")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownStage)
	assert.Equal(t, domain.ExitUsage, ExitCode(err))
	assert.Empty(t, f.runner.calls)
}

func TestRun_ExtractionFlagsOverrideSettings(t *testing.T) {
	f := setupCLITest(t)

	require.NoError(t, f.execute("ENZYMES", "-m", "slow", "-n", "8", "--timeout", "60", "--tool", "/opt/hcga"))

	require.Len(t, f.runner.calls, 1)
	inv := f.runner.calls[0]
	assert.Equal(t, "/opt/hcga", inv.Program)
	assert.Equal(t,
		[]string{"extract_features", "datasets/ENZYMES.pkl", "-m", "slow", "-n", "8", "--timeout", "60"},
		inv.Args)
}

func TestRun_InvalidMode(t *testing.T) {
	f := setupCLITest(t)

	err := f.execute("ENZYMES", "--mode", "turbo")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownMode)
	assert.Equal(t, domain.ExitUsage, ExitCode(err))
}

func TestRun_SettingsFromStore(t *testing.T) {
	f := setupCLITest(t)
	f.settings.cfg.Enabled[domain.StageGetData] = true
	f.settings.cfg.DatasetDir = "/data/graphs"

	require.NoError(t, f.execute("ENZYMES"))

	require.Len(t, f.runner.calls, 2)
	assert.Equal(t, []string{"get_data", "ENZYMES"}, f.runner.calls[0].Args)
	assert.Equal(t, "/data/graphs/ENZYMES.pkl", f.runner.calls[1].Args[1])
}

func TestRun_SettingsError(t *testing.T) {
	f := setupCLITest(t)
	f.settings.err = fmt.Errorf("extract.mode: %w", domain.ErrUnknownMode)

	err := f.execute("ENZYMES")

	require.Error(t, err)
	assert.Equal(t, domain.ExitUsage, ExitCode(err))
	assert.Empty(t, f.runner.calls)
}

func TestRun_DryRun(t *testing.T) {
	f := setupCLITest(t)

	require.NoError(t, f.execute("ENZYMES", "--dry-run", "--enable", "feature_analysis"))

	assert.Empty(t, f.runner.calls)
	assert.Equal(t,
		"OMP_NUM_THREADS=1 hcga extract_features datasets/ENZYMES.pkl -m fast -n 2 --timeout 1000\n"+
			"OMP_NUM_THREADS=1 hcga feature_analysis ENZYMES\n",
		f.out.String())
}

func TestRun_DryRunWritesPlanToStdout(t *testing.T) {
	f := setupCLITest(t)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = stdout })

	rootCmd.SetOut(nil)
	rootCmd.SetErr(f.errOut)
	rootCmd.SetArgs([]string{"ENZYMES", "--dry-run"})
	runErr := rootCmd.Execute()

	os.Stdout = stdout
	require.NoError(t, w.Close())
	captured, err := io.ReadAll(r)
	require.NoError(t, err)

	require.NoError(t, runErr)
	assert.Equal(t,
		"OMP_NUM_THREADS=1 hcga extract_features datasets/ENZYMES.pkl -m fast -n 2 --timeout 1000\n",
		string(captured))
	assert.Empty(t, f.errOut.String())
}

func TestRunCmd_DatasetNamedLikeCommand(t *testing.T) {
	f := setupCLITest(t)

	require.NoError(t, f.execute("run", "stages"))

	require.Len(t, f.runner.calls, 1)
	inv := f.runner.calls[0]
	assert.Equal(t, domain.StageExtractFeatures, inv.Stage)
	assert.Equal(t, "datasets/stages.pkl", inv.Args[1])
	assert.Equal(t, "Extracting features\n<extract_features ran>\n", f.out.String())
}

func TestRunCmd_AcceptsPipelineFlags(t *testing.T) {
	f := setupCLITest(t)

	require.NoError(t, f.execute("run", "history", "--dry-run", "-n", "4"))

	assert.Empty(t, f.runner.calls)
	assert.Equal(t,
		"OMP_NUM_THREADS=1 hcga extract_features datasets/history.pkl -m fast -n 4 --timeout 1000\n",
		f.out.String())
}

func TestRunCmd_StageExitCodePropagates(t *testing.T) {
	f := setupCLITest(t)
	f.runner.codes[domain.StageExtractFeatures] = 6

	err := f.execute("run", "ENZYMES")

	require.Error(t, err)
	assert.Equal(t, 6, ExitCode(err))
}

func TestRunCmd_MissingDataset(t *testing.T) {
	f := setupCLITest(t)

	err := f.execute("run")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingDataset)
	assert.Equal(t, domain.ExitUsage, ExitCode(err))
	assert.Empty(t, f.runner.calls)
}

func TestRun_RecordsHistory(t *testing.T) {
	f := setupCLITest(t)

	require.NoError(t, f.execute("ENZYMES"))

	runs, err := f.runs.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "ENZYMES", runs[0].Dataset)
	assert.Equal(t, domain.RunSucceeded, runs[0].Status)
}

func TestRun_NoHistoryFlag(t *testing.T) {
	f := setupCLITest(t)

	require.NoError(t, f.execute("ENZYMES", "--no-history"))

	runs, err := f.runs.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRun_HistoryDisabledInSettings(t *testing.T) {
	f := setupCLITest(t)
	f.settings.history = false

	require.NoError(t, f.execute("ENZYMES"))

	runs, err := f.runs.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRun_SettingsNotConfigured(t *testing.T) {
	f := setupCLITest(t)
	settingsService = nil

	err := f.execute("ENZYMES")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings service not configured")
}

func TestRun_CancelledContext(t *testing.T) {
	f := setupCLITest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetOut(f.out)
	rootCmd.SetErr(f.errOut)
	rootCmd.SetArgs([]string{"ENZYMES"})
	err := rootCmd.ExecuteContext(ctx)

	require.Error(t, err)
	assert.Equal(t, domain.ExitInterrupted, ExitCode(err))
	assert.True(t, quiet(err))
	assert.Empty(t, f.runner.calls)
}

func TestSetup_UsesWire(t *testing.T) {
	f := setupCLITest(t)
	settingsService = nil

	var gotDir string
	closed := false
	wire = func(dir string) (*Services, error) {
		gotDir = dir
		return &Services{
			Settings: f.settings,
			Runner:   f.runner,
			Runs:     f.runs,
			Close: func() error {
				closed = true
				return nil
			},
		}, nil
	}

	require.NoError(t, f.execute("ENZYMES", "--config-dir", "/tmp/cfg"))

	assert.Equal(t, "/tmp/cfg", gotDir)
	assert.Len(t, f.runner.calls, 1)
	assert.True(t, closed)
}

func TestSetup_WireError(t *testing.T) {
	f := setupCLITest(t)
	settingsService = nil
	wire = func(string) (*Services, error) {
		return nil, errors.New("config unreadable")
	}

	err := f.execute("ENZYMES")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "config unreadable")
	assert.Empty(t, f.runner.calls)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, 0},
		{"stage status", &domain.StageError{Stage: domain.StageExtractFeatures, ExitCode: 7}, 7},
		{"stage killed", &domain.StageError{Stage: domain.StageExtractFeatures, ExitCode: -1}, 1},
		{"tool not found", &domain.StageError{Stage: domain.StageExtractFeatures, ExitCode: 127}, 127},
		{"missing dataset", domain.ErrMissingDataset, 2},
		{"cancelled", domain.ErrCancelled, 130},
		{"other", errors.New("disk full"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCode(tt.err))
		})
	}
}

func TestQuiet(t *testing.T) {
	assert.True(t, quiet(&domain.StageError{Stage: domain.StageGetData, ExitCode: 1}))
	assert.True(t, quiet(fmt.Errorf("%w during get_data", domain.ErrCancelled)))
	assert.False(t, quiet(domain.ErrMissingDataset))
	assert.False(t, quiet(errors.New("boom")))
}
