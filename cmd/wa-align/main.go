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
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/czcorpus/wordalign/corpus"
	"github.com/czcorpus/wordalign/decode"
	"github.com/czcorpus/wordalign/model"
	"github.com/czcorpus/wordalign/vocab"
	"github.com/czcorpus/wordalign/waerr"
	"github.com/czcorpus/wordalign/wordclass"
)

const (
	exitOK = iota
	exitArgError
	exitIOError
)

func buildModel(kind model.Kind, voc *vocab.Vocabulary, classes *wordclass.ClassMap, maxSentLen int) model.Capability {
	switch kind {
	case model.IBM1:
		return model.NewIBM1(voc, classes, maxSentLen)
	case model.IBM2:
		return model.NewIBM2(voc, classes, maxSentLen)
	case model.HMM:
		return model.NewHMM(voc, classes, maxSentLen)
	case model.IBM3:
		return model.NewIBM3(voc, classes, maxSentLen)
	default:
		return model.NewIBM4(voc, classes, maxSentLen)
	}
}

func tokenize(line string, voc *vocab.Vocabulary) []int {
	fields := strings.Fields(line)
	ans := make([]int, len(fields))
	for i, f := range fields {
		ans[i] = voc.IndexOf(f)
	}
	return ans
}

func main() {
	prefix := flag.String("p", "", "parameter-file prefix of a trained model")
	modelName := flag.String("model", "hmm", "model variant the parameter files belong to")
	classFile := flag.String("classes", "", "optional word-class map file")
	binFmt := flag.Bool("bin", false, "read binary-format parameter files")
	verbose := flag.Bool("v", false, "verbose loading")
	flag.Usage = func() {
		fmt.Println("Usage: wa-align -p out/model --model hmm \"source sentence\" \"target sentence\"")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *prefix == "" || flag.NArg() != 2 {
		flag.Usage()
		os.Exit(exitArgError)
	}
	kind, err := model.ParseKind(*modelName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wa-align: %s\n", err)
		os.Exit(exitArgError)
	}

	voc, err := vocab.Load(*prefix + ".src")
	if err != nil {
		fmt.Fprintf(os.Stderr, "wa-align: %s\n", err)
		os.Exit(exitIOError)
	}
	classes := wordclass.New()
	if *classFile != "" {
		classes, err = wordclass.Load(*classFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wa-align: %s\n", err)
			os.Exit(exitIOError)
		}
	}

	m := buildModel(kind, voc, classes, 0)
	if err := model.LoadParams(m, *prefix, *binFmt, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "wa-align: %s\n", err)
		if errors.Is(err, waerr.ErrArgument) {
			os.Exit(exitArgError)
		}
		os.Exit(exitIOError)
	}

	pair := corpus.SentencePair{
		Src:    tokenize(flag.Arg(0), voc),
		Trg:    tokenize(flag.Arg(1), voc),
		Weight: 1,
	}
	alignment := decode.BestAlignment(m, pair)
	lgProb := decode.AlignmentLgProb(m, pair, alignment)

	parts := make([]string, len(alignment))
	for i, a := range alignment {
		parts[i] = fmt.Sprintf("%d", a)
	}
	fmt.Printf("%s\n", strings.Join(parts, " "))
	fmt.Printf("lgprob: %.6f\n", lgProb)
}
