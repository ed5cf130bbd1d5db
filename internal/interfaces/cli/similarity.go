package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	appdesc "github.com/turtacn/molfp/internal/application/descriptor"
	domain "github.com/turtacn/molfp/internal/domain/descriptor"
	"github.com/turtacn/molfp/pkg/errors"
)

type compareOutput struct {
	*appdesc.CompareResult
}

func (o compareOutput) TableHeaders() []string { return []string{"Family", "Score"} }

func (o compareOutput) TableRows() [][]string {
	rows := make([][]string, len(o.Scores))
	for i, s := range o.Scores {
		rows[i] = []string{s.Family, scoreText(s.Score)}
	}
	return rows
}

func (o compareOutput) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s vs %s", o.QueryCanonical, o.TargetCanonical)
	for _, s := range o.Scores {
		fmt.Fprintf(&sb, "\n  %s: %.4f", s.Family, s.Score)
	}
	return sb.String()
}

// scoreText colors scores by band.
func scoreText(score float64) string {
	s := strconv.FormatFloat(score, 'f', 4, 64)
	switch {
	case score >= 0.85:
		return color.GreenString(s)
	case score >= 0.5:
		return color.YellowString(s)
	default:
		return s
	}
}

func newSimilarityCmd() *cobra.Command {
	var families []string
	cmd := &cobra.Command{
		Use:     "similarity <query> <target>",
		Aliases: []string{"compare"},
		Short:   "Score two structures under each descriptor family",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, ctx, cancel, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			res, err := cliCtx.Service.Compare(ctx, &appdesc.CompareRequest{Query: args[0], Target: args[1], Families: families})
			if err != nil {
				return err
			}
			return PrintResult(cmd, compareOutput{res})
		},
	}
	cmd.Flags().StringSliceVarP(&families, "family", "f", nil, "descriptor families (default: all configured)")
	return cmd
}

type rankOutput struct {
	Results []appdesc.RankResult `json:"results"`
}

func (o rankOutput) TableHeaders() []string {
	return []string{"Rank", "#", "Score", "Structure", "Canonical"}
}

func (o rankOutput) TableRows() [][]string {
	rows := make([][]string, len(o.Results))
	for i, r := range o.Results {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(r.Index),
			scoreText(r.Score),
			truncate(r.Structure, 40),
			truncate(r.Canonical, 40),
		}
	}
	return rows
}

func (o rankOutput) String() string {
	lines := make([]string, len(o.Results))
	for i, r := range o.Results {
		lines[i] = fmt.Sprintf("%d. [%d] %.4f %s", i+1, r.Index, r.Score, r.Structure)
	}
	return strings.Join(lines, "\n")
}

func newRankCmd() *cobra.Command {
	var (
		family    string
		threshold float64
		file      string
		top       int
	)
	cmd := &cobra.Command{
		Use:   "rank <query> [candidate...]",
		Short: "Rank candidates by similarity to a query",
		Example: "  molfp rank 'Oc1ccccc1' 'c1ccccc1N' 'CCCC'\n" +
			"  molfp rank 'Oc1ccccc1' --file library.smi --threshold 0.7 --top 20",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, ctx, cancel, err := runContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			candidates, err := readStructures(cmd, args[1:], file)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				return errors.New(errors.ErrCodeValidation, "no candidates given")
			}
			results, err := cliCtx.Service.Rank(ctx, &appdesc.RankRequest{
				Query:      args[0],
				Candidates: candidates,
				Family:     family,
				Threshold:  threshold,
			})
			if err != nil {
				return err
			}
			if top > 0 && len(results) > top {
				results = results[:top]
			}
			return PrintResult(cmd, rankOutput{Results: results})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&family, "family", "f", domain.CodePathFingerprint, "descriptor family to rank by")
	f.Float64VarP(&threshold, "threshold", "t", 0, "minimum similarity in [0,1]")
	f.StringVar(&file, "file", "", "read candidates from a file, '-' for stdin")
	f.IntVar(&top, "top", 0, "keep the best N results, 0 for all")
	return cmd
}

//Personal.AI order the ending
