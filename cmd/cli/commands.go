package main

import (
	"context"
	"fmt"

	"cropyield/app"
	"cropyield/domain/crop"
	"cropyield/internal/config"
	"cropyield/internal/container"
	apperrors "cropyield/internal/errors"
	"cropyield/internal/profiling"
	"cropyield/internal/testkit"

	"github.com/spf13/cobra"
)

func newContainer(ctx context.Context) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return container.New(ctx, cfg)
}

// loadedService opens the store and loads the published artifacts.
func loadedService(ctx context.Context) (*app.InferenceService, func(), error) {
	c, err := newContainer(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { c.Shutdown(context.Background()) }
	svc := c.InferenceService()
	if err := svc.Load(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

func newGenerateCmd() *cobra.Command {
	cfg := testkit.DefaultCropConfig()
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic crop-yield dataset in the published CSV layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := testkit.NewCropDataGenerator(cfg).GenerateRows()
			if err != nil {
				return err
			}
			if err := testkit.WriteCSV(out, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(rows), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "train.csv", "Output CSV path")
	cmd.Flags().IntVar(&cfg.RowCount, "rows", cfg.RowCount, "Number of rows")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for deterministic generation")
	cmd.Flags().Float64Var(&cfg.MissingRate, "missing-rate", cfg.MissingRate, "Chance that a feature cell is left blank")
	cmd.Flags().Float64Var(&cfg.NoiseStdDev, "noise", cfg.NoiseStdDev, "Relative yield noise")

	return cmd
}

func newTrainCmd() *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Prepare the dataset, compare the model roster and publish the champion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := newContainer(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			runner, err := c.TrainingRunner(dataset)
			if err != nil {
				return err
			}
			summary, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}

	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "Dataset file (defaults to DATASET_FILE)")
	return cmd
}

func newPredictCmd() *cobra.Command {
	var region, season, cropName string
	var area, fertilizer, pesticide, rainfall float64

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score one input against the published champion",
		Long: `Score one input against the published champion.

Example: cropyield predict --region Assam --season Kharif --crop Rice --area 2 --fertilizer 100 --pesticide 10 --rainfall 800`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := loadedService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			input := crop.NewInferenceInput(region, season, cropName, area, fertilizer, pesticide, rainfall)
			// unset flags are absent fields, not zero values
			for flag, field := range map[string]string{"region": crop.FieldRegion, "season": crop.FieldSeason, "crop": crop.FieldCrop} {
				if !cmd.Flags().Changed(flag) {
					delete(input.Categorical, field)
				}
			}
			for _, field := range []string{crop.FieldArea, crop.FieldFertilizer, crop.FieldPesticide, crop.FieldRainfall} {
				if !cmd.Flags().Changed(field) {
					delete(input.Numeric, field)
				}
			}

			pred, err := svc.Predict(ctx, input.Trimmed())
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"prediction": pred.Value,
				"model":      pred.Model,
				"run_id":     pred.RunID,
				"unit":       "tonnes per hectare",
			})
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "Region (state)")
	cmd.Flags().StringVar(&season, "season", "", "Season")
	cmd.Flags().StringVar(&cropName, "crop", "", "Crop")
	cmd.Flags().Float64Var(&area, "area", 0, "Cultivated area")
	cmd.Flags().Float64Var(&fertilizer, "fertilizer", 0, "Fertilizer used")
	cmd.Flags().Float64Var(&pesticide, "pesticide", 0, "Pesticide used")
	cmd.Flags().Float64Var(&rainfall, "rainfall", 0, "Annual rainfall")

	return cmd
}

func newKnownValuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "known-values [field]",
		Short: "List the legal values of the categorical fields",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := loadedService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 1 {
				values, err := svc.KnownValues(args[0])
				if err != nil {
					return err
				}
				return printJSON(values)
			}
			all, err := svc.AllKnownValues()
			if err != nil {
				return err
			}
			return printJSON(all)
		},
	}
}

func newReportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the model performance comparison",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := loadedService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			table, champion, err := svc.Performance()
			if err != nil {
				return err
			}
			switch format {
			case "markdown", "md":
				fmt.Fprint(cmd.OutOrStdout(), app.PerformanceReport(table, champion))
			case "html":
				cmd.OutOrStdout().Write(app.PerformanceReportHTML(table, champion))
			case "json":
				return printJSON(map[string]any{"champion": champion, "models": table.Records})
			default:
				return apperrors.ValidationError(fmt.Sprintf("unknown format %q (markdown, html or json)", format))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "Output format: markdown, html or json")
	return cmd
}

func newProfileCmd() *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Prepare the dataset and summarise its numeric columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := newContainer(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			records, err := c.DatasetReader(dataset).ReadRecords(ctx)
			if err != nil {
				return err
			}
			cfg := app.DefaultPreparerConfig()
			preparer, err := app.NewPreparer(cfg)
			if err != nil {
				return err
			}
			ds, err := preparer.Prepare(records)
			if err != nil {
				return err
			}
			profile, err := profiling.NewDataProfiler(cfg.Schema).ProfileDataset(ctx, ds)
			if err != nil {
				return err
			}
			return printJSON(profile)
		},
	}

	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "Dataset file (defaults to DATASET_FILE)")
	return cmd
}
