package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"keyforge/internal/annealer"
	"keyforge/internal/config"
	"keyforge/internal/context"
	"keyforge/internal/encoder"
	"keyforge/internal/errs"
	"keyforge/internal/model"
	"keyforge/internal/operator"
	"keyforge/internal/problem"
	"keyforge/internal/reporter"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "encode":
		runEncode(os.Args[2:])
	case "optimize":
		runOptimize(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: chai <encode|optimize> <scheme.yaml> <encodables.txt> [key_distribution.txt] [pair_equivalence.txt] [-v] [-o output_dir] [-t threads] [-s seed]")
}

// cliArgs is the positional+flag split every subcommand shares.
type cliArgs struct {
	scheme     string
	encodables string
	keyDist    string
	pairEq     string
	verbose    bool
	outputDir  string
	threads    int
	seed       int64
	seedSet    bool
}

func parseArgs(args []string) (cliArgs, error) {
	a := cliArgs{threads: 1}
	var positional []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-v":
			a.verbose = true
		case "-o":
			if i+1 >= len(args) {
				return a, fmt.Errorf("-o requires a directory argument")
			}
			i++
			a.outputDir = args[i]
		case "-t":
			if i+1 >= len(args) {
				return a, fmt.Errorf("-t requires a thread count")
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 1 {
				return a, fmt.Errorf("-t requires a positive integer, got %q", args[i])
			}
			a.threads = n
		case "-s":
			if i+1 >= len(args) {
				return a, fmt.Errorf("-s requires a seed value")
			}
			i++
			s, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				return a, fmt.Errorf("-s requires an integer seed, got %q", args[i])
			}
			a.seed = s
			a.seedSet = true
		default:
			positional = append(positional, args[i])
		}
	}
	if len(positional) < 2 {
		return a, fmt.Errorf("expected <scheme.yaml> <encodables.txt>")
	}
	a.scheme = positional[0]
	a.encodables = positional[1]
	if len(positional) > 2 {
		a.keyDist = positional[2]
	}
	if len(positional) > 3 {
		a.pairEq = positional[3]
	}
	if a.outputDir == "" {
		a.outputDir = "output"
	}
	if !a.seedSet {
		a.seed = time.Now().UnixNano()
	}
	return a, nil
}

func loadScheme(a cliArgs) (*config.Config, *context.Context, error) {
	if a.verbose {
		commonlog.Configure(1, nil)
	}

	cfg, err := config.Load(a.scheme)
	if err != nil {
		return nil, nil, err
	}

	encodableRecords, err := readRecords(a.encodables, config.LoadEncodables)
	if err != nil {
		return nil, nil, err
	}
	var keyDist []config.KeyDistributionRecord
	if a.keyDist != "" {
		keyDist, err = readRecords(a.keyDist, config.LoadKeyDistribution)
		if err != nil {
			return nil, nil, err
		}
	}
	var pairEq []config.PairEquivalenceRecord
	if a.pairEq != "" {
		pairEq, err = readRecords(a.pairEq, config.LoadPairEquivalence)
		if err != nil {
			return nil, nil, err
		}
	}

	ctx, err := context.Build(cfg, encodableRecords, keyDist, pairEq)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, ctx, nil
}

func readRecords[T any](path string, load func(r io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return load(f)
}

func runEncode(args []string) {
	a, err := parseArgs(args)
	if err != nil {
		color.Red("%v", err)
		usage()
		os.Exit(1)
	}

	cfg, ctx, err := loadScheme(a)
	fail(cfg, err)

	enc, err := encoder.New(ctx)
	fail(cfg, err)

	buf := make([]model.EncodeInfo, len(ctx.Encodables))
	enc.Encode(ctx.Initial, nil, buf)

	// Encodables are stored in descending-frequency order; print them back
	// in the order the input file listed them.
	order := make([]int, len(ctx.Encodables))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return ctx.Encodables[order[i]].OriginalOrder < ctx.Encodables[order[j]].OriginalOrder
	})
	for _, i := range order {
		e := ctx.Encodables[i]
		fmt.Printf("%s\t%s\t%d\t%s\t%d\n",
			e.Name, codeString(ctx, buf[i].Full.ActualCode),
			buf[i].Full.RawRank, codeString(ctx, buf[i].Short.ActualCode), buf[i].Short.RawRank)
	}
	color.Green("encoded %d entries", len(ctx.Encodables))
}

func runOptimize(args []string) {
	a, err := parseArgs(args)
	if err != nil {
		color.Red("%v", err)
		usage()
		os.Exit(1)
	}

	cfg, ctx, err := loadScheme(a)
	fail(cfg, err)

	if algo := cfg.Optimization.Metaheuristic.Algorithm; algo != "" && algo != "simulated_annealing" {
		fail(cfg, errs.UnsupportedMetaheuristic(algo))
	}

	var params annealer.Parameters
	if mp := cfg.Optimization.Metaheuristic.Parameters; mp != nil {
		if mp.TMax != nil {
			params.TMax = *mp.TMax
		}
		if mp.TMin != nil {
			params.TMin = *mp.TMin
		}
		if mp.Steps != nil {
			params.Steps = *mp.Steps
		}
	}
	if cfg.Optimization.Metaheuristic.ReportAfter != nil {
		params.ReportAfter = *cfg.Optimization.Metaheuristic.ReportAfter
	}
	if cfg.Optimization.Metaheuristic.UpdateInterval != nil {
		params.UpdateInterval = *cfg.Optimization.Metaheuristic.UpdateInterval
	}

	fileRep, err := reporter.NewFile(a.outputDir)
	fail(cfg, err)

	if a.threads == 1 {
		p, err := problem.New(ctx, cfg)
		fail(cfg, err)
		rng := rand.New(rand.NewSource(a.seed))
		op := operator.New(&ctx.Space, ctx.DAG, rng)
		an := annealer.New(p, op, rng, reporter.Multi{reporter.NewStdout(), fileRep})

		_, score, err := an.Run(ctx.Initial, params)
		fail(cfg, err)
		color.Green("optimization finished, score=%.6g", score)
		return
	}

	// Independent annealers: the Context is shared read-only, everything
	// mutable (Problem buffers, Operator, RNG, log directory) is per-worker.
	scores := make([]float64, a.threads)
	errors := make([]error, a.threads)
	var wg sync.WaitGroup
	for i := 0; i < a.threads; i++ {
		childRep, err := fileRep.Child(i)
		fail(cfg, err)
		p, err := problem.New(ctx, cfg)
		fail(cfg, err)
		rng := rand.New(rand.NewSource(a.seed + int64(i)))
		op := operator.New(&ctx.Space, ctx.DAG, rng)
		an := annealer.New(p, op, rng, childRep)

		wg.Add(1)
		go func(i int, an *annealer.Annealer) {
			defer wg.Done()
			_, scores[i], errors[i] = an.Run(ctx.Initial, params)
		}(i, an)
	}
	wg.Wait()

	best := 0
	for i := 0; i < a.threads; i++ {
		fail(cfg, errors[i])
		if scores[i] < scores[best] {
			best = i
		}
	}
	color.Green("optimization finished, best score=%.6g (worker %d)", scores[best], best)
}

func codeString(ctx *context.Context, code uint64) string {
	return string(ctx.Prism.DecodeCode(code))
}

func fail(cfg *config.Config, err error) {
	if err == nil {
		return
	}
	if coreErr, ok := err.(*errs.Error); ok && cfg != nil {
		fmt.Fprint(os.Stderr, cfg.Reporter().Format(coreErr))
	} else {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(err.Error()))
	}
	os.Exit(1)
}
