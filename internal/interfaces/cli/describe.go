package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	appdesc "github.com/turtacn/molfp/internal/application/descriptor"
	"github.com/turtacn/molfp/pkg/errors"
)

// describeOutput is the result of the describe command in input order.
type describeOutput struct {
	Items []appdesc.BatchItem `json:"items"`
	width int
}

func (o describeOutput) TableHeaders() []string {
	return []string{"#", "Canonical", "Family", "Status", "Encoded"}
}

func (o describeOutput) TableRows() [][]string {
	var rows [][]string
	for _, it := range o.Items {
		idx := strconv.Itoa(it.Index)
		if it.Result == nil {
			rows = append(rows, []string{idx, "", "", statusText(true), it.Error})
			continue
		}
		for _, d := range it.Result.Descriptors {
			enc := d.Encoded
			if d.Failed && d.Error != "" {
				enc = d.Error
			}
			rows = append(rows, []string{idx, truncate(it.Result.Canonical, 40), d.Family, statusText(d.Failed), truncate(enc, o.width)})
		}
	}
	return rows
}

func (o describeOutput) String() string {
	var sb strings.Builder
	for i, it := range o.Items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if it.Result == nil {
			fmt.Fprintf(&sb, "[%d] error: %s", it.Index, it.Error)
			continue
		}
		fmt.Fprintf(&sb, "[%d] %s (%d atoms)", it.Index, it.Result.Canonical, it.Result.AtomCount)
		for _, d := range it.Result.Descriptors {
			fmt.Fprintf(&sb, "\n  %s: %s", d.Family, d.Encoded)
		}
	}
	return sb.String()
}

func newDescribeCmd() *cobra.Command {
	var (
		families []string
		format   string
		file     string
		width    int
	)
	cmd := &cobra.Command{
		Use:   "describe [structure...]",
		Short: "Compute descriptors for one or more structures",
		Example: "  molfp describe 'CC(=O)Nc1ccc(O)cc1'\n" +
			"  molfp describe --family PathFp --file library.smi -o json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, ctx, cancel, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			structures, err := readStructures(cmd, args, file)
			if err != nil {
				return err
			}
			if len(structures) == 0 {
				return errors.New(errors.ErrCodeValidation, "no structures given")
			}
			reqs := make([]*appdesc.ComputeRequest, len(structures))
			for i, s := range structures {
				reqs[i] = &appdesc.ComputeRequest{Structure: s, Format: format, Families: families}
			}
			items, err := cliCtx.Service.BatchCompute(ctx, reqs)
			if err != nil {
				return err
			}
			if err := PrintResult(cmd, describeOutput{Items: items, width: width}); err != nil {
				return err
			}
			for _, it := range items {
				if it.Result == nil {
					return errors.Newf(errors.ErrCodeInvalidMolecule, "%d of %d structures failed", countFailed(items), len(items))
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&families, "family", "f", nil, "descriptor families (default: all configured)")
	f.StringVar(&format, "format", appdesc.FormatAuto, "input format (smiles, molfile; default: detect)")
	f.StringVar(&file, "file", "", "read structures from a file, '-' for stdin")
	f.IntVar(&width, "width", 64, "truncate encoded values in table output, 0 for no limit")
	return cmd
}

func countFailed(items []appdesc.BatchItem) int {
	n := 0
	for _, it := range items {
		if it.Result == nil {
			n++
		}
	}
	return n
}

//Personal.AI order the ending
