package commands

import (
	"context"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/services/advisory"
	"github.com/clinic-tools/advisory-engine/pkg/terminal/export"
	"github.com/spf13/cobra"
)

type ProgressCmd struct {
	clinicID string
	engine   *advisory.Engine
	reporter *export.Reporter
}

func NewProgressCmd(engine *advisory.Engine, reporter *export.Reporter) *cobra.Command {
	pc := &ProgressCmd{engine: engine, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show a clinic's progress towards its next advisory",
		RunE:  pc.run,
	}

	cmd.Flags().StringVar(&pc.clinicID, "clinic", "", "Clinic identifier")
	_ = cmd.MarkFlagRequired("clinic")

	return cmd
}

func (pc *ProgressCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	progress, err := pc.engine.Progress(ctx, pc.clinicID)
	if err != nil {
		return err
	}

	return pc.reporter.HandleProgress(pc.clinicID, progress)
}
