package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/rewired-gh/labcal/internal/models"
)

func samplesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "List the built-in sample standards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			samples := a.sess.Catalog().Samples()
			if ok, err := a.encode(cmd.OutOrStdout(), samples); ok {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tUNIT\tPOINTS\tOD RANGE\tCONCENTRATION RANGE")
			for _, s := range samples {
				n := s.Len()
				fmt.Fprintf(tw, "%s\t%s\t%d\t%g..%g\t%g..%g\n", s.Name, s.Unit, n,
					s.OpticDensity[0], s.OpticDensity[n-1], s.Concentration[0], s.Concentration[n-1])
			}
			return tw.Flush()
		},
	}
}

func patientsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "patients",
		Short: "Show the patient readings (loaded or generated)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadPatients(); err != nil {
				return err
			}
			patients := a.sess.Patients()
			if ok, err := a.encode(cmd.OutOrStdout(), patients); ok {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tOPTIC DENSITY\tNOTE")
			for _, p := range patients {
				fmt.Fprintf(tw, "%s\t%.3f\t%s\n", p.ID, p.OpticDensity, p.Note)
			}
			return tw.Flush()
		},
	}
}

func calibrateCommand(a *app) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Fit a calibration curve and show its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadStandard(); err != nil {
				return err
			}
			curve, err := a.sess.Calibrate(method)
			if err != nil {
				return err
			}
			summary := curve.Summary()
			if ok, err := a.encode(cmd.OutOrStdout(), summary); ok {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Standard:   %s (%s)\n", summary.Standard, summary.Unit)
			fmt.Fprintf(out, "Method:     %s\n", summary.Method)
			fmt.Fprintf(out, "Domain:     %g .. %g\n", summary.Domain.Min, summary.Domain.Max)
			fmt.Fprintf(out, "Regression: %s\n", summary.Regression)
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", "", "Interpolation method: linear, cubic or spline (config default when empty)")
	return cmd
}

func predictCommand(a *app) *cobra.Command {
	var method string
	var od []float64
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate concentrations for patient readings",
		Long: "Estimate concentrations for the given --od values, or for the loaded\n" +
			"patients when no values are given. Readings outside the standard range\n" +
			"are extrapolated and flagged.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadStandard(); err != nil {
				return err
			}
			if method != "" {
				if _, err := a.sess.Calibrate(method); err != nil {
					return err
				}
			}

			var rows []models.ResultRow
			if len(od) > 0 {
				if _, err := a.sess.Curve(); err != nil {
					return err
				}
				batch, err := a.sess.Registry().Predict(a.sess.Hormone(), od)
				if err != nil {
					return err
				}
				if ok, err := a.encode(cmd.OutOrStdout(), batch); ok {
					return err
				}
				for i := range od {
					rows = append(rows, models.ResultRow{
						ID:            fmt.Sprintf("#%d", i+1),
						OpticDensity:  od[i],
						Concentration: batch.Predictions[i],
						Status:        batch.Status[i],
					})
				}
			} else {
				if err := a.loadPatients(); err != nil {
					return err
				}
				var err error
				if _, rows, err = a.sess.Predict(); err != nil {
					return err
				}
				if ok, err := a.encode(cmd.OutOrStdout(), rows); ok {
					return err
				}
			}

			curve, err := a.sess.Curve()
			if err != nil {
				return err
			}
			return printRows(cmd, curve, rows)
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", "", "Interpolation method: linear, cubic or spline (config default when empty)")
	cmd.Flags().Float64SliceVar(&od, "od", nil, "Optic density values to convert, comma separated")
	return cmd
}

func printRows(cmd *cobra.Command, curve *calibration.Curve, rows []models.ResultRow) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tOPTIC DENSITY\tCONCENTRATION (%s)\tSTATUS\tNOTE\n", curve.Unit)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%.3f\t%.2f\t%s\t%s\n", r.ID, r.OpticDensity, r.Concentration, r.Status, r.Note)
	}
	return tw.Flush()
}

func statsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show descriptive statistics and regression diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadStandard(); err != nil {
				return err
			}
			if err := a.loadPatients(); err != nil {
				return err
			}
			report, err := a.sess.Report()
			if err != nil {
				return err
			}
			if ok, err := a.encode(cmd.OutOrStdout(), report); ok {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "METRIC\tVALUE")
			for _, m := range report.Metrics() {
				fmt.Fprintf(tw, "%s\t%.6g\n", m.Name, m.Value)
			}
			return tw.Flush()
		},
	}
}

func plotCommand(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render calibration, patient, histogram and Q-Q charts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadStandard(); err != nil {
				return err
			}
			if err := a.loadPatients(); err != nil {
				return err
			}
			paths, err := a.sess.Charts(dir)
			if err != nil {
				return err
			}
			return printPaths(cmd, a, paths)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (export.output_dir when empty)")
	return cmd
}

func exportCommand(a *app) *cobra.Command {
	var format, encoding, dir string
	var sections []string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export calibration data and results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadStandard(); err != nil {
				return err
			}
			if err := a.loadPatients(); err != nil {
				return err
			}
			paths, err := a.sess.Export(format, encoding, dir, sections)
			if err != nil {
				return err
			}
			return printPaths(cmd, a, paths)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Export format: csv, xlsx, json or yaml")
	cmd.Flags().StringVar(&encoding, "encoding", "", "Text encoding: utf-8, utf-8-sig or cp1251")
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory")
	cmd.Flags().StringSliceVar(&sections, "sections", nil, "Sections: calibration, patients, results, statistics")
	return cmd
}

func printPaths(cmd *cobra.Command, a *app, paths []string) error {
	if ok, err := a.encode(cmd.OutOrStdout(), paths); ok {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
