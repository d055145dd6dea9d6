package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spin-wheel-service/internal/config"
	"spin-wheel-service/internal/domain"
	"spin-wheel-service/internal/wheel"
)

// NewSimulateCmd draws many spins offline and compares observed segment
// frequencies with the configured weights.
func NewSimulateCmd(configPath *string) *cobra.Command {
	var (
		wheelID string
		draws   int
		seed    int64
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Spin a wheel offline and report the outcome distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			wheels, err := simulationWheels(*configPath, cmd.Flags().Changed("config"), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			w, ok := wheels[wheelID]
			if !ok {
				return fmt.Errorf("%w: %s", domain.ErrWheelNotFound, wheelID)
			}
			if draws < 1 {
				return fmt.Errorf("draws must be positive, got %d", draws)
			}
			report := simulate(w, draws, seed)
			return report.write(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&wheelID, "wheel", "lucky", "wheel to spin")
	cmd.Flags().IntVar(&draws, "draws", 10000, "number of spins")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed, 0 for time-based")
	return cmd
}

// simulationWheels reads the wheels declared in the config file. Only the
// default path may be missing, in which case the built-in samples are used.
func simulationWheels(path string, explicit bool, warn io.Writer) (map[string]domain.Wheel, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config: %w", err)
		}
		fmt.Fprintf(warn, "config %s not found, using built-in wheels\n", path)
		return sampleWheels(), nil
	}
	if len(cfg.Wheels) == 0 {
		return sampleWheels(), nil
	}
	return cfg.WheelMap(), nil
}

type simulation struct {
	wheel     domain.Wheel
	draws     int
	counts    []int
	mislanded int
}

// simulate runs the same selection and target computation a live spin uses,
// chaining each spin from the previous resting angle.
func simulate(w domain.Wheel, draws int, seed int64) simulation {
	src := wheel.NewSource(seed)
	sel := wheel.SelectorFor(w.Variant, src)
	def := wheel.DefaultConfig()
	n := len(w.Segments)

	out := simulation{wheel: w, draws: draws, counts: make([]int, n)}
	angle := 0.0
	for i := 0; i < draws; i++ {
		idx := sel.Select(w.Segments)
		angle = wheel.TargetAngle(angle, idx, n, def.MinRotations, def.JitterFraction, src)
		out.counts[idx]++
		if wheel.LandedIndex(angle, n) != idx {
			out.mislanded++
		}
	}
	return out
}

func (s simulation) expected(i int) float64 {
	if s.wheel.Variant.IsQuiz() {
		return 1 / float64(len(s.wheel.Segments))
	}
	total := 0.0
	for _, seg := range s.wheel.Segments {
		total += seg.EffectiveWeight()
	}
	if total == 0 {
		return 0
	}
	return s.wheel.Segments[i].EffectiveWeight() / total
}

func (s simulation) write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "wheel %s (%s), %d draws\n", s.wheel.ID, s.wheel.Variant, s.draws)
	fmt.Fprintln(tw, "SEGMENT\tEXPECTED\tOBSERVED\tCOUNT")
	for i, seg := range s.wheel.Segments {
		fmt.Fprintf(tw, "%s\t%.2f%%\t%.2f%%\t%d\n",
			seg.Label, 100*s.expected(i), 100*float64(s.counts[i])/float64(s.draws), s.counts[i])
	}
	fmt.Fprintf(tw, "mislanded\t%d\n", s.mislanded)
	return tw.Flush()
}
