package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/heartrisk/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
)

type assessFlags struct {
	age       float64
	thalach   float64
	sex       string
	chestPain string
	asJSON    bool
}

func newAssessCmd(c *cli) *cobra.Command {
	f := &assessFlags{}

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Run one assessment from the command line",
		Example: `  heartrisk assess --age 63 --thalach 150 --sex male --chest-pain "3 - Asymptomatic"
  heartrisk assess --age 45 --thalach 170 --sex female --chest-pain 1 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.assess(cmd, f)
		},
	}

	cmd.Flags().Float64Var(&f.age, "age", 0, "Age in years (20–100)")
	cmd.Flags().Float64Var(&f.thalach, "thalach", 0, "Maximum heart rate achieved (60–220)")
	cmd.Flags().StringVar(&f.sex, "sex", "", "male or female")
	cmd.Flags().StringVar(&f.chestPain, "chest-pain", "", `Chest pain type, e.g. "3 - Asymptomatic"`)
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the assessment as JSON")
	for _, name := range []string{"age", "thalach", "sex", "chest-pain"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func (c *cli) assess(cmd *cobra.Command, f *assessFlags) error {
	sex, err := analysis.ParseSex(f.sex)
	if err != nil {
		return userError(err)
	}
	in := analysis.RawInput{Age: f.age, Thalach: f.thalach, Sex: sex, ChestPain: f.chestPain}
	if err := analysis.ValidateInput(in); err != nil {
		return userError(err)
	}

	svc, err := newService(c.cfg, newONNXLoader(c.cfg), c.logger, nil)
	if err != nil {
		return err
	}
	defer svc.session.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := svc.session.Load(ctx); err != nil {
		return userError(err)
	}

	result, err := svc.analyzer.Assess(ctx, in)
	if err != nil {
		return userError(err)
	}

	out := cmd.OutOrStdout()
	if f.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err = fmt.Fprintln(out, result.Display())
	return err
}

// userError reduces an AppError to the message a person should see
func userError(err error) error {
	appErr := apperrors.ToAppError(err)
	return fmt.Errorf("%s", appErr.Message())
}
