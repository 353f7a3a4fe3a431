package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List pipeline stages",
	Long: `Lists the pipeline stages in the order they run, whether each is enabled,
and the command it runs. Use "stages enable" and "stages disable" to change
the stored defaults.`,
	Args: cobra.NoArgs,
	RunE: runStagesList,
}

var stagesEnableCmd = &cobra.Command{
	Use:   "enable <stage>",
	Short: "Enable a stage by default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStage(cmd, args[0], true)
	},
}

var stagesDisableCmd = &cobra.Command{
	Use:   "disable <stage>",
	Short: "Disable a stage by default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStage(cmd, args[0], false)
	},
}

func init() {
	stagesCmd.AddCommand(stagesEnableCmd)
	stagesCmd.AddCommand(stagesDisableCmd)
	rootCmd.AddCommand(stagesCmd)
}

func runStagesList(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cfg, err := settingsService.PipelineConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	st := stylesFor(out)

	width := 0
	for _, stage := range domain.AllStageNames() {
		width = max(width, len(stage))
	}

	fmt.Fprintln(out, st.Header.Render(padRight("STAGE", width)+"  "+padRight("STATE", 8)+"  COMMAND"))
	for _, stage := range domain.AllStageNames() {
		inv, err := cfg.Invocation(stage, "<dataset-id>")
		if err != nil {
			return err
		}
		state := st.Muted.Render(padRight("disabled", 8))
		if cfg.IsEnabled(stage) {
			state = st.Success.Render(padRight("enabled", 8))
		}
		fmt.Fprintf(out, "%s  %s  %s\n", padRight(string(stage), width), state, inv.CommandLine())
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, st.Muted.Render("environment: "+envSummary(cfg)))
	fmt.Fprintln(out, st.Muted.Render("on failure:  "+string(cfg.OnFailure)))
	return nil
}

func setStage(cmd *cobra.Command, name string, enabled bool) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	stage, err := domain.ParseStageName(name)
	if err != nil {
		return err
	}
	if err := settingsService.SetStageEnabled(stage, enabled); err != nil {
		return err
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stage %s %s in %s\n", stage, state, settingsService.ConfigPath())
	return nil
}

func envSummary(cfg domain.PipelineConfig) string {
	inv := domain.Invocation{Env: cfg.Env}
	list := inv.EnvList()
	if len(list) == 0 {
		return "(inherited)"
	}
	return strings.Join(list, " ")
}
