package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	allocationdomain "github.com/smallbiznis/radiodose/internal/allocation/domain"
	"github.com/smallbiznis/radiodose/internal/dose/decay"
	dosedomain "github.com/smallbiznis/radiodose/internal/dose/domain"
	ledgerdomain "github.com/smallbiznis/radiodose/internal/ledger/domain"
	"github.com/spf13/cobra"
)

func isotopesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "isotopes",
		Short: "List the isotope catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine) error {
				list, err := e.Catalog.List(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tHALF-LIFE\tUNIT\tGLUCOSE CHECK")
				for _, iso := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						iso.ID, iso.Name, iso.HalfLife(), iso.DoseUnit, strings.Join(iso.GlucoseCheckProcedures, ", "))
				}
				return w.Flush()
			})
		},
	}
}

func decayCmd() *cobra.Command {
	var (
		isotopeID string
		amount    float64
		unit      string
		from      string
		to        string
	)
	cmd := &cobra.Command{
		Use:   "decay",
		Short: "Decay-correct an activity between two instants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine) error {
				iso, err := e.Catalog.Isotope(ctx, isotopeID)
				if err != nil {
					return err
				}
				displayUnit, err := resolveUnit(unit, iso)
				if err != nil {
					return err
				}
				activity, err := dosedomain.NewActivity(amount, displayUnit)
				if err != nil {
					return err
				}
				now := e.Clock.Now()
				fromAt, err := parseInstant(from, now)
				if err != nil {
					return err
				}
				toAt, err := parseInstant(to, now)
				if err != nil {
					return err
				}
				decayed, err := decay.Between(activity, iso, fromAt, toAt)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s at %s\n", decayed.Format(displayUnit), toAt.Format("2006-01-02T15:04:05Z07:00"))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&isotopeID, "isotope", "f18", "isotope id")
	cmd.Flags().Float64Var(&amount, "activity", 0, "activity at --from")
	cmd.Flags().StringVar(&unit, "unit", "", "activity unit (defaults to the isotope's dose unit)")
	cmd.Flags().StringVar(&from, "from", "", "calibration instant, RFC3339 (default now)")
	cmd.Flags().StringVar(&to, "to", "", "target instant, RFC3339 (default now)")
	_ = cmd.MarkFlagRequired("activity")
	return cmd
}

func gateCmd() *cobra.Command {
	var (
		isotopeID string
		procedure string
		glucose   int32
	)
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Evaluate the advisory glucose gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine) error {
				iso, err := e.Catalog.Isotope(ctx, isotopeID)
				if err != nil {
					return err
				}
				var reading *int32
				if cmd.Flags().Changed("glucose") {
					reading = &glucose
				}
				verdict := e.Gate.Evaluate(iso.RequiresGlucoseCheck(procedure), reading)
				if verdict.Reason == "" {
					fmt.Fprintln(cmd.OutOrStdout(), verdict.Level)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", verdict.Level, verdict.Reason)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&isotopeID, "isotope", "f18", "isotope id")
	cmd.Flags().StringVar(&procedure, "procedure", "", "procedure name")
	cmd.Flags().Int32Var(&glucose, "glucose", 0, "blood glucose in mg/dL (omit when not measured)")
	return cmd
}

func doseCmd() *cobra.Command {
	var (
		isotopeID  string
		sourceID   string
		amount     float64
		unit       string
		volume     float64
		calibrated string
		at         string
		patientID  string
		weight     float64
		ratio      float64
		procedure  string
		glucose    int32
		confirm    bool
	)
	cmd := &cobra.Command{
		Use:   "dose",
		Short: "Plan, and optionally record, a patient withdrawal from a vial",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine) error {
				iso, err := e.Catalog.Isotope(ctx, isotopeID)
				if err != nil {
					return err
				}
				displayUnit, err := resolveUnit(unit, iso)
				if err != nil {
					return err
				}
				activity, err := dosedomain.NewActivity(amount, displayUnit)
				if err != nil {
					return err
				}
				now := e.Clock.Now()
				calibratedAt, err := parseInstant(calibrated, now)
				if err != nil {
					return err
				}
				drawAt, err := parseInstant(at, now)
				if err != nil {
					return err
				}

				if err := e.Ledger.RegisterSource(ctx, dosedomain.RadioactiveSource{
					ID:                 sourceID,
					IsotopeID:          iso.ID,
					CalibratedActivity: activity,
					CalibrationTime:    calibratedAt,
					VolumeML:           dosedomain.Milliliters(volume),
				}); err != nil {
					return err
				}

				req := allocationdomain.PatientDoseRequest{
					PatientID:      patientID,
					WeightKg:       weight,
					DoseRatioPerKg: ratio,
					Procedure:      procedure,
					IsotopeID:      iso.ID,
				}
				if cmd.Flags().Changed("glucose") {
					req.BloodGlucoseMgDl = &glucose
				}
				if err := e.Queue.Add(ctx, req); err != nil {
					return err
				}

				plan, err := e.Queue.Preview(ctx, patientID, sourceID, drawAt)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "recommended:   %s\n", plan.Recommended.Format(plan.DisplayUnit))
				fmt.Fprintf(out, "concentration: %.4f %s/mL\n", plan.Concentration.In(plan.DisplayUnit), plan.DisplayUnit)
				fmt.Fprintf(out, "volume:        %.3f mL\n", float64(plan.Volume))
				fmt.Fprintf(out, "remaining:     %s\n", plan.Remaining.Format(plan.DisplayUnit))
				fmt.Fprintf(out, "glucose gate:  %s %s\n", plan.Verdict.Level, plan.Verdict.Reason)
				if plan.ProtocolNote != "" {
					fmt.Fprintf(out, "protocol:      %s\n", plan.ProtocolNote)
				}
				if !confirm {
					return nil
				}

				if err := e.Queue.Select(ctx, patientID, drawAt); err != nil {
					return err
				}
				conf, err := e.Queue.ConfirmWithdrawal(ctx, patientID, sourceID, drawAt)
				if err != nil {
					return err
				}
				status, err := e.Ledger.Source(ctx, sourceID, drawAt)
				if err != nil {
					return err
				}
				printRecord(cmd, conf.Record, status, plan.DisplayUnit)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&isotopeID, "isotope", "f18", "isotope id")
	cmd.Flags().StringVar(&sourceID, "source", "vial-1", "vial id")
	cmd.Flags().Float64Var(&amount, "activity", 0, "calibrated vial activity")
	cmd.Flags().StringVar(&unit, "unit", "", "activity unit (defaults to the isotope's dose unit)")
	cmd.Flags().Float64Var(&volume, "volume", 0, "vial volume in mL")
	cmd.Flags().StringVar(&calibrated, "calibrated", "", "calibration instant, RFC3339 (default now)")
	cmd.Flags().StringVar(&at, "at", "", "withdrawal instant, RFC3339 (default now)")
	cmd.Flags().StringVar(&patientID, "patient", "patient-1", "patient id")
	cmd.Flags().Float64Var(&weight, "weight", 0, "patient weight in kg")
	cmd.Flags().Float64Var(&ratio, "ratio", 0, "dose ratio per kg, in the display unit")
	cmd.Flags().StringVar(&procedure, "procedure", "", "procedure name")
	cmd.Flags().Int32Var(&glucose, "glucose", 0, "blood glucose in mg/dL (omit when not measured)")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "record the withdrawal in the ledger")
	for _, name := range []string{"activity", "volume", "weight", "ratio"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func printRecord(cmd *cobra.Command, rec ledgerdomain.WithdrawalRecord, status ledgerdomain.SourceStatus, unit dosedomain.ActivityUnit) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "record:        %s (%s)\n", rec.ID, rec.Kind)
	fmt.Fprintf(out, "drawn:         %s in %.3f mL\n", rec.DrawnActivity.Format(unit), float64(rec.DrawnVolume))
	fmt.Fprintf(out, "vial left:     %s in %.3f mL\n", status.RemainingActivity.Format(unit), float64(status.RemainingVolume))
}

func resolveUnit(raw string, iso dosedomain.Isotope) (dosedomain.ActivityUnit, error) {
	if strings.TrimSpace(raw) == "" {
		return iso.DoseUnit, nil
	}
	return dosedomain.ParseActivityUnit(raw)
}
