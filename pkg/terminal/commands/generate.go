package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory"
	"github.com/clinic-tools/advisory-engine/pkg/terminal/export"
	"github.com/spf13/cobra"
)

type GenerateCmd struct {
	clinicID string
	engine   *advisory.Engine
	reporter *export.Reporter
}

func NewGenerateCmd(engine *advisory.Engine, reporter *export.Reporter) *cobra.Command {
	gc := &GenerateCmd{engine: engine, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an advisory report for a clinic",
		RunE:  gc.run,
	}

	cmd.Flags().StringVar(&gc.clinicID, "clinic", "", "Clinic identifier")
	_ = cmd.MarkFlagRequired("clinic")

	return cmd
}

func (gc *GenerateCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	report, err := gc.engine.GenerateReport(ctx, gc.clinicID, domain.TriggerManual)
	if errors.Is(err, advisory.ErrNotEligible) {
		return fmt.Errorf("clinic %q has not collected enough responses yet", gc.clinicID)
	}
	if err != nil {
		return err
	}

	return gc.reporter.HandleReport(report)
}
