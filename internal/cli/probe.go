package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagehand-io/stagehand/internal/stage"
)

// ProbeReport describes the rendering capabilities of this runtime.
type ProbeReport struct {
	MotionBlur  bool     `json:"motionBlur"`
	ColorSpaces []string `json:"colorSpaces"`
}

// NewProbeCommand creates the probe command.
func NewProbeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report rendering capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := ProbeReport{
				MotionBlur: stage.CheckSupport(),
				ColorSpaces: []string{
					string(stage.ColorSpaceSRGB),
					string(stage.ColorSpaceDisplayP3),
				},
			}

			if rootOpts.Format == "json" {
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Success(report)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "motion blur: %v\n", report.MotionBlur)
			fmt.Fprintf(cmd.OutOrStdout(), "color spaces: %v\n", report.ColorSpaces)
			return nil
		},
	}
}
