package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
)

// runOptions are the command-line settings of one dataset build.
type runOptions struct {
	State  string `validate:"required_with=County"`
	County string
	Months int `validate:"min=1,max=12"`
	Years  int `validate:"min=1,max=3"`
	Seed   uint64
	Output string
}

// parseOptions parses and validates args. flag.ErrHelp is returned for -h.
func parseOptions(args []string, stderr io.Writer) (runOptions, error) {
	var opts runOptions
	fs := flag.NewFlagSet("flood-etl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.State, "state", "", "region to collect, by name or abbreviation (default all regions)")
	fs.StringVar(&opts.County, "county", "", "county name to keep; requires -state")
	fs.IntVar(&opts.Months, "months", 12, "months per year to process (1-12)")
	fs.IntVar(&opts.Years, "years", 3, "years back from the current year to process (1-3)")
	fs.Uint64Var(&opts.Seed, "seed", 0, "seed for negative-sample perturbation (0 = random)")
	fs.StringVar(&opts.Output, "output", "", "dataset CSV path (default $OUTPUT_FILE)")

	if err := fs.Parse(args); err != nil {
		return runOptions{}, err
	}
	if fs.NArg() > 0 {
		return runOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	opts.State = strings.TrimSpace(opts.State)
	opts.County = strings.TrimSpace(opts.County)

	if err := validator.New().Struct(opts); err != nil {
		return runOptions{}, describe(err)
	}
	return opts, nil
}

// describe turns validator errors into flag-oriented messages.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := "-" + strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required_with":
			msgs = append(msgs, "-county requires -state")
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be between %s, got %v", name, rangeOf(fe.Field()), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", name))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func rangeOf(field string) string {
	if field == "Months" {
		return "1 and 12"
	}
	return "1 and 3"
}
