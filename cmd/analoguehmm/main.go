// Command analoguehmm builds nanopore HMM topologies for base analogue
// detection and training, and checks that they compile.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/TuftsBCB/seq"
	"github.com/cheggaaa/pb/v3"
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/TuftsBCB/analogue/bake"
	"github.com/TuftsBCB/analogue/fasta"
	"github.com/TuftsBCB/analogue/poremodel"
	"github.com/TuftsBCB/analogue/topology"
)

const version = "0.3.0"

type buildFlags struct {
	reference string
	model     string
	progress  bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.reference, "reference", "r", "",
		"Reference FASTA file (first entry is used)")
	cmd.Flags().StringVarP(&f.model, "model", "m", "",
		"Pore model with levels for every 6-mer")
	cmd.Flags().BoolVarP(&f.progress, "progress", "p", false,
		"Show progress while wiring modules")
	cmd.MarkFlagRequired("reference")
	cmd.MarkFlagRequired("model")
}

func (f *buildFlags) load() (seq.Sequence, *poremodel.Table, error) {
	rf, err := os.Open(f.reference)
	if err != nil {
		return seq.Sequence{}, nil, err
	}
	defer rf.Close()

	ref, err := fasta.ReadReference(rf)
	if err != nil {
		return seq.Sequence{}, nil, fmt.Errorf("Error reading reference "+
			"'%s': %s", f.reference, err)
	}
	table, err := readPoreModel(f.model)
	if err != nil {
		return seq.Sequence{}, nil, err
	}
	if table.K() != topology.K {
		return seq.Sequence{}, nil, fmt.Errorf("Pore model '%s' has "+
			"%d-mers, expected %d-mers.", f.model, table.K(), topology.K)
	}
	if err := table.Complete(poremodel.Canonical); err != nil {
		glog.Warningf("Pore model '%s': %s", f.model, err)
	}
	return ref, table, nil
}

// build assembles and compiles a topology, then prints its summary.
func (f *buildFlags) build(b *topology.Builder) error {
	ref, table, err := f.load()
	if err != nil {
		return err
	}
	if f.progress {
		bar := pb.StartNew(max(0, len(ref.Residues)-topology.K))
		b.Progress = func(int) { bar.Increment() }
		defer bar.Finish()
	}

	g, err := b.Build(ref, table)
	if err != nil {
		return err
	}
	m, err := topology.Compile[*bake.Model](g, bake.New())
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d modules, %d forks; %s\n",
		ref.Name, len(g.Modules()), len(g.Forks()), m.Summary())
	return nil
}

func detectCommand() *cobra.Command {
	var (
		flags        buildFlags
		analoguePath string
	)
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Build the branching topology used to detect an analogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			var a *topology.Analogue
			if analoguePath != "" {
				var err error
				if a, err = loadAnalogue(analoguePath); err != nil {
					return err
				}
			}
			return flags.build(topology.NewBuilder(a))
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&analoguePath, "analogue", "a", "",
		"Analogue config (JSON); without it no branches are built")
	return cmd
}

func trainCommand() *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Build the topology used to train analogue emissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.build(topology.NewBuilder(nil))
		},
	}
	flags.register(cmd)
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("analoguehmm", version)
		},
	}
}

func main() {
	flag.Set("logtostderr", "true")
	flag.CommandLine.Parse([]string{})

	root := &cobra.Command{
		Use:          "analoguehmm",
		Short:        "Nanopore HMM topologies for base analogue detection",
		SilenceUsage: true,
	}
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	root.AddCommand(detectCommand(), trainCommand(), versionCommand())

	err := root.Execute()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
