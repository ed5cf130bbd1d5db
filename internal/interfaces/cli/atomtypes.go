package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	appdesc "github.com/turtacn/molfp/internal/application/descriptor"
	domain "github.com/turtacn/molfp/internal/domain/descriptor"
	"github.com/turtacn/molfp/pkg/errors"
)

var atomTypeModes = map[string]domain.PropertyMask{
	"all":   domain.PropertiesAll,
	"basic": domain.PropertiesBasic,
	"none":  0,
}

type atomTypesOutput struct {
	Atoms []appdesc.AtomTypeInfo `json:"atoms"`
}

func (o atomTypesOutput) TableHeaders() []string {
	return []string{"Atom", "Element", "Type", "Description"}
}

func (o atomTypesOutput) TableRows() [][]string {
	rows := make([][]string, len(o.Atoms))
	for i, a := range o.Atoms {
		rows[i] = []string{strconv.Itoa(a.Index), a.Symbol, fmt.Sprintf("%#x", a.Type), a.Description}
	}
	return rows
}

func (o atomTypesOutput) String() string {
	lines := make([]string, len(o.Atoms))
	for i, a := range o.Atoms {
		lines[i] = fmt.Sprintf("%d %s %#x %s", a.Index, a.Symbol, a.Type, a.Description)
	}
	return strings.Join(lines, "\n")
}

type histogramOutput struct {
	Types []appdesc.AtomTypeCount `json:"types"`
}

func (o histogramOutput) TableHeaders() []string {
	return []string{"Count", "Type", "Description"}
}

func (o histogramOutput) TableRows() [][]string {
	rows := make([][]string, len(o.Types))
	for i, c := range o.Types {
		rows[i] = []string{strconv.Itoa(c.Count), fmt.Sprintf("%#x", c.Type), c.Description}
	}
	return rows
}

func (o histogramOutput) String() string {
	lines := make([]string, len(o.Types))
	for i, c := range o.Types {
		lines[i] = fmt.Sprintf("%d %#x %s", c.Count, c.Type, c.Description)
	}
	return strings.Join(lines, "\n")
}

func newAtomTypesCmd() *cobra.Command {
	var (
		mode      string
		histogram bool
	)
	cmd := &cobra.Command{
		Use:   "atomtypes <structure>",
		Short: "Show the atom type of every heavy atom",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, ctx, cancel, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			mask, ok := atomTypeModes[mode]
			if !ok {
				return errors.Newf(errors.ErrCodeValidation, "unknown mode %q (all, basic, none)", mode)
			}
			if histogram {
				counts, err := cliCtx.Service.AtomTypeHistogram(ctx, args[0], mask)
				if err != nil {
					return err
				}
				return PrintResult(cmd, histogramOutput{Types: counts})
			}
			atoms, err := cliCtx.Service.AtomTypes(ctx, args[0], mask)
			if err != nil {
				return err
			}
			return PrintResult(cmd, atomTypesOutput{Atoms: atoms})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "all", "properties folded into the type (all, basic, none)")
	cmd.Flags().BoolVar(&histogram, "histogram", false, "count distinct atom types instead of listing atoms")
	return cmd
}

type familiesOutput struct {
	Families []domain.DescriptorInfo `json:"families"`
}

func (o familiesOutput) TableHeaders() []string {
	return []string{"Code", "Name", "Version", "Binary", "Vector"}
}

func (o familiesOutput) TableRows() [][]string {
	rows := make([][]string, len(o.Families))
	for i, f := range o.Families {
		rows[i] = []string{f.ShortName, f.Name, f.Version, strconv.FormatBool(f.IsBinary), strconv.FormatBool(f.IsVector)}
	}
	return rows
}

func (o familiesOutput) String() string {
	lines := make([]string, len(o.Families))
	for i, f := range o.Families {
		lines[i] = fmt.Sprintf("%s\t%s\t%s", f.ShortName, f.Version, f.Name)
	}
	return strings.Join(lines, "\n")
}

func newFamiliesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List the descriptor families",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return PrintResult(cmd, familiesOutput{Families: cliCtx.Service.Families()})
		},
	}
}

//Personal.AI order the ending
