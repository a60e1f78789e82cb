/*
Command denoiser runs the PixelHive distributed Ising-model image
denoiser. Every rank of the cluster runs this binary with the same
arguments; rank 0 is the master that reads the input image, scatters
it and writes the output, ranks 1..S are the sampling workers.

	denoiser [flags] <input> <output> <beta> <pi>
*/
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/dashaylan/PixelHive/configs"
	"github.com/dashaylan/PixelHive/ipc"
	"github.com/dashaylan/PixelHive/pixelhive"
)

func main() {
	os.Exit(run())
}

func run() int {
	rank := flag.Int("rank", 0, "rank of this process, 0 is the master")
	confPath := flag.String("config", "pixelhive.json", "cluster configuration file")
	launch := flag.Bool("launch", false, "deploy and start the workers over ssh (master only)")
	gvec := flag.String("gvec", "", "prefix for GoVector trace logs, empty disables tracing")
	debug := flag.Int("debug", 2, "debug level 0-4")
	flag.Parse()

	if flag.NArg() != 4 {
		fmt.Fprintln(os.Stderr, "Please, run the program as\n\"denoiser <input> <output> <beta> <pi>\"")
		return 1
	}
	input, output := flag.Arg(0), flag.Arg(1)
	beta, err := strconv.ParseFloat(flag.Arg(2), 64)
	if err != nil {
		fmt.Fprintln(os.Stderr, "beta is not a number:", flag.Arg(2))
		return 1
	}
	pi, err := strconv.ParseFloat(flag.Arg(3), 64)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pi is not a number:", flag.Arg(3))
		return 1
	}

	conf, err := configs.ReadConfig(*confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot read config:", err)
		return 2
	}
	workerCount := len(conf.Workers) - 1
	if workerCount < 1 {
		fmt.Fprintln(os.Stderr, "config lists no workers")
		return 2
	}

	ep, err := ipc.NewEndpoint(conf.BasePort, *rank, len(conf.Workers))
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot open endpoint:", err)
		return 2
	}
	defer ep.Close()
	go pixelhive.DumpLog()

	if *launch && *rank == pixelhive.MasterRank {
		started, err := ipc.StartWorkers(conf, *confPath, flag.Args())
		if err != nil || started < workerCount {
			fmt.Fprintln(os.Stderr, "deployed", started, "of", workerCount, "workers:", err)
			return 2
		}
	}

	for _, wc := range conf.Workers {
		if wc.Rank == *rank {
			continue
		}
		if err := ep.Connect(wc.Address, wc.Rank); err != nil {
			fmt.Fprintln(os.Stderr, "cannot connect to rank", wc.Rank, ":", err)
			return 2
		}
	}

	total := conf.TotalIterations
	if total == 0 {
		total = pixelhive.TotalIterations
	}

	if *rank == pixelhive.MasterRank {
		m := pixelhive.NewMaster(ep, workerCount, *gvec)
		m.SetDebug(*debug)
		if err := m.Run(input, output); err != nil {
			fmt.Fprintln(os.Stderr, "Error in master:", err)
			return 2
		}
	} else {
		gamma := math.Log((1-pi)/pi) / 2
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(*rank)))
		w := pixelhive.NewWorker(ep, beta, gamma, total/workerCount, rng, *gvec)
		w.SetDebug(*debug)
		if err := w.Run(); err != nil {
			fmt.Fprintln(os.Stderr, "Error in worker:", err)
			return 2
		}
	}
	return 0
}
