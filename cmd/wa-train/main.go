// Copyright 2026 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2026 Charles University, Faculty of Arts,
//                Institute of the Czech National Corpus
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/czcorpus/wordalign/cnf"
	"github.com/czcorpus/wordalign/fs"
	"github.com/czcorpus/wordalign/train"
	"github.com/czcorpus/wordalign/waerr"
)

var (
	version   string
	build     string
	gitCommit string
)

const (
	exitOK = iota
	exitArgError
	exitIOError
	exitTrainError
)

var knownModels = map[string]bool{
	"ibm1": true, "ibm2": true, "hmm": true, "ibm3": true, "ibm4": true,
	"incr-hmm": true, "incr-ibm2": true,
}

func main() {
	srcFile := flag.String("s", "", "source-side corpus file (one sentence per line)")
	trgFile := flag.String("t", "", "target-side corpus file (one sentence per line)")
	weightsFile := flag.String("w", "", "optional per-sentence weights file")
	iterations := flag.Int("n", 5, "number of EM iterations per model stage")
	outPrefix := flag.String("o", "", "output prefix for parameter files")
	modelName := flag.String("model", "hmm", "model variant: ibm1|ibm2|hmm|ibm3|ibm4|incr-hmm|incr-ibm2")
	classFile := flag.String("classes", "", "optional word-class map file")
	confFile := flag.String("c", "", "optional JSON config file; flags override its values")
	verbosity := flag.Int("v", 0, "verbosity level")
	flag.Usage = func() {
		fmt.Println("\n+--------------------------------------------------------+")
		fmt.Println("| wa-train - word-alignment model EM training            |")
		fmt.Printf("|                  version %-8s                      |\n", version)
		fmt.Println("|  (c) Institute of the Czech National Corpus            |")
		fmt.Println("+--------------------------------------------------------+")
		fmt.Println("\nUsage:")
		fmt.Println("wa-train -s corpus.src -t corpus.trg -n 5 -o out/model --model hmm")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
	}
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbosity == 0 {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	conf := &cnf.TrainConf{Smoothing: cnf.DefaultSmoothing()}
	if *confFile != "" {
		loaded, err := cnf.LoadConf(*confFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wa-train: %s\n", err)
			os.Exit(exitIOError)
		}
		conf = loaded
	}
	if *srcFile != "" {
		conf.SrcFile = *srcFile
	}
	if *trgFile != "" {
		conf.TrgFile = *trgFile
	}
	if *weightsFile != "" {
		conf.WeightsFile = *weightsFile
	}
	if *outPrefix != "" {
		conf.OutPrefix = *outPrefix
	}
	if *classFile != "" {
		conf.ClassFile = *classFile
	}
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	if *modelName != "" && (setFlags["model"] || conf.Model == "") {
		conf.Model = *modelName
	}
	if *iterations > 0 && (setFlags["n"] || conf.Iterations <= 0) {
		conf.Iterations = *iterations
	}
	if setFlags["v"] || *confFile == "" {
		conf.Verbosity = *verbosity
	}

	if conf.SrcFile == "" || conf.TrgFile == "" {
		fmt.Fprintln(os.Stderr, "wa-train: both -s and -t are required")
		flag.Usage()
		os.Exit(exitArgError)
	}
	if !knownModels[conf.Model] {
		fmt.Fprintf(os.Stderr, "wa-train: unknown model %q\n", conf.Model)
		os.Exit(exitArgError)
	}
	for _, path := range []string{conf.SrcFile, conf.TrgFile} {
		if !fs.IsFile(path) {
			fmt.Fprintf(os.Stderr, "wa-train: corpus file %s not found\n", path)
			os.Exit(exitIOError)
		}
	}
	if conf.WeightsFile != "" && !fs.IsFile(conf.WeightsFile) {
		fmt.Fprintf(os.Stderr, "wa-train: weights file %s not found\n", conf.WeightsFile)
		os.Exit(exitIOError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := train.Run(ctx, conf); err != nil {
		fmt.Fprintf(os.Stderr, "wa-train: %s\n", err)
		switch {
		case errors.Is(err, waerr.ErrArgument):
			os.Exit(exitArgError)
		case errors.Is(err, waerr.ErrIO):
			os.Exit(exitIOError)
		default:
			os.Exit(exitTrainError)
		}
	}
}
