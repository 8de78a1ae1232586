package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goreulmanhae/compare-api/internal/catalog"
	"github.com/goreulmanhae/compare-api/internal/compare"
)

// ScoreInput is the file format read by 'comparectl score'.
type ScoreInput struct {
	Specs      []catalog.SpecDefinition `json:"specs"`
	Candidates []compare.Candidate      `json:"candidates"`
	Weights    compare.WeightVector     `json:"weights"`
}

// NewScoreCmd creates the 'score' command.
func NewScoreCmd() *cobra.Command {
	var (
		file       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank candidates offline with the scoring engine",
		Long: `Read {specs, candidates, weights} from a JSON file ("-" for stdin) and
print the ranking the API would return for it.`,
		Example: `  comparectl score --file request.json
  cat request.json | comparectl score --file - --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readScoreInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			res, err := compare.Compute(in.Specs, in.Candidates, in.Weights)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return printRanking(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", `input JSON file, "-" for stdin`)
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "output the full result as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readScoreInput(stdin io.Reader, file string) (*ScoreInput, error) {
	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var in ScoreInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}
	in.Candidates = prepareCandidates(in.Candidates)
	return &in, nil
}

// prepareCandidates drops repeated ids, keeping the first occurrence, and
// folds each candidate's price into its attributes the way catalog-backed
// candidates are built.
func prepareCandidates(candidates []compare.Candidate) []compare.Candidate {
	ids := make([]int64, 0, len(candidates))
	byID := make(map[int64]compare.Candidate, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
		if _, ok := byID[c.ID]; !ok {
			byID[c.ID] = c
		}
	}

	out := make([]compare.Candidate, 0, len(byID))
	for _, id := range compare.DedupeIDs(ids) {
		c := byID[id]
		c.Attributes = compare.MergeAttributes(c.Price, nil, c.Attributes)
		out = append(out, c)
	}
	return out
}

func printRanking(w io.Writer, res *compare.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tID\tNAME\tVARIANT\tPRICE")
	for i, c := range res.RankedData {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%.0f\n", i+1, c.Score, c.ID, c.DisplayName, c.VariantLabel, c.Price)
	}
	return tw.Flush()
}
