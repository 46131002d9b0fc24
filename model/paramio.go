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

package model

import (
	"bufio"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/czcorpus/wordalign/table"
	"github.com/czcorpus/wordalign/waerr"
)

// Parameter-file suffixes appended to a caller-supplied prefix. One
// file per owned table; which suffixes exist for a given prefix depends
// on the model variant that was saved.
const (
	SuffLex         = ".lexnd"
	SuffIBM2Alig    = ".alignd"
	SuffHMMAlig     = ".hmm_alignd"
	SuffIBM3Dist    = ".distnd"
	SuffHeadDist    = ".hdistnd"
	SuffNonHeadDist = ".nhdistnd"
	SuffFertility   = ".fertilnd"
	SuffP1          = ".p1"
	SuffSentLen     = ".slmodel"
)

func printP1(path string, p1 float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to print p1 file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "%.8g\n", p1); err != nil {
		return err
	}
	return w.Flush()
}

func loadP1(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load p1 file: %w", err)
	}
	defer f.Close()
	var p1 float64
	if _, err := fmt.Fscanf(f, "%g", &p1); err != nil {
		return 0, fmt.Errorf("malformed p1 file: %w", err)
	}
	return p1, nil
}

func saveLexAndSentLen(b *Base, prefix string, bin bool) error {
	var err error
	if bin {
		err = b.Lex.PrintBinary(prefix + SuffLex)
	} else {
		err = b.Lex.PrintText(prefix + SuffLex)
	}
	if err != nil {
		return err
	}
	if b.SentLen.Trained() {
		return b.SentLen.PrintText(prefix + SuffSentLen)
	}
	return nil
}

func loadLexAndSentLen(b *Base, prefix string, bin bool) error {
	var lex *table.LexTable
	var err error
	if bin {
		lex, err = table.LoadLexTableBinary(prefix+SuffLex, b.Vocab.Size())
	} else {
		lex, err = table.LoadLexTableText(prefix+SuffLex, b.Vocab.Size())
	}
	if err != nil {
		return err
	}
	b.Lex = lex
	// slmodel is written only for models trained past the uniform
	// floor, so its absence is not an error
	slPath := prefix + SuffSentLen
	if _, serr := os.Stat(slPath); serr == nil {
		sl, err := table.LoadSentLenTableText(slPath, sentLenCap(b.MaxSentLen))
		if err != nil {
			return err
		}
		b.SentLen = sl
	}
	return nil
}

// SaveParams writes every parameter table the model owns under
// prefix-derived file names and moves the model to StateSaved.
// bin selects the binary record format over plain text.
func SaveParams(c Capability, prefix string, bin bool) error {
	var err error
	switch m := c.(type) {
	case *IBM1Model:
		err = saveLexAndSentLen(&m.Base, prefix, bin)
	case *IBM2Model:
		if err = saveLexAndSentLen(&m.Base, prefix, bin); err == nil {
			if bin {
				err = m.Alig.PrintBinary(prefix + SuffIBM2Alig)
			} else {
				err = m.Alig.PrintText(prefix + SuffIBM2Alig)
			}
		}
	case *HMMModel:
		if err = saveLexAndSentLen(&m.Base, prefix, bin); err == nil {
			if bin {
				err = m.Alig.PrintBinary(prefix + SuffHMMAlig)
			} else {
				err = m.Alig.PrintText(prefix + SuffHMMAlig)
			}
		}
	case *IBM3Model:
		err = saveIBM3(m, prefix, bin)
	case *IBM4Model:
		err = saveIBM4(m, prefix, bin)
	default:
		return waerr.Wrap(waerr.ErrArgument, fmt.Sprintf("unsupported model kind %s", c.Kind()))
	}
	if err != nil {
		return waerr.Wrap(waerr.ErrIO, err.Error())
	}
	if b := baseOf(c); b != nil {
		b.SetState(StateSaved)
	}
	return nil
}

func saveIBM3(m *IBM3Model, prefix string, bin bool) error {
	if err := saveLexAndSentLen(&m.Base, prefix, bin); err != nil {
		return err
	}
	var err error
	if bin {
		err = m.Fertility.PrintBinary(prefix + SuffFertility)
	} else {
		err = m.Fertility.PrintText(prefix + SuffFertility)
	}
	if err != nil {
		return err
	}
	if bin {
		err = m.Dist.PrintBinary(prefix + SuffIBM3Dist)
	} else {
		err = m.Dist.PrintText(prefix + SuffIBM3Dist)
	}
	if err != nil {
		return err
	}
	return printP1(prefix+SuffP1, m.P1)
}

func saveIBM4(m *IBM4Model, prefix string, bin bool) error {
	if err := saveLexAndSentLen(&m.Base, prefix, bin); err != nil {
		return err
	}
	var err error
	if bin {
		err = m.Fertility.PrintBinary(prefix + SuffFertility)
	} else {
		err = m.Fertility.PrintText(prefix + SuffFertility)
	}
	if err != nil {
		return err
	}
	if bin {
		err = m.Head.PrintBinary(prefix + SuffHeadDist)
	} else {
		err = m.Head.PrintText(prefix + SuffHeadDist)
	}
	if err != nil {
		return err
	}
	if bin {
		err = m.NonHead.PrintBinary(prefix + SuffNonHeadDist)
	} else {
		err = m.NonHead.PrintText(prefix + SuffNonHeadDist)
	}
	if err != nil {
		return err
	}
	return printP1(prefix+SuffP1, m.P1)
}

func baseOf(c Capability) *Base {
	switch m := c.(type) {
	case *IBM1Model:
		return &m.Base
	case *IBM2Model:
		return &m.Base
	case *HMMModel:
		return &m.Base
	case *IBM3Model:
		return &m.Base
	case *IBM4Model:
		return &m.Base
	}
	return nil
}

// LoadParams populates the model's tables from prefix-derived parameter
// files. On any failure the model is cleared back to StateEmpty so a
// partial load never leaves an inconsistent parameter set behind.
func LoadParams(c Capability, prefix string, bin bool, verbose bool) error {
	c.Clear()
	var err error
	switch m := c.(type) {
	case *IBM1Model:
		if verbose {
			log.Info().Str("file", prefix+SuffLex).Msg("Loading lexnd file")
		}
		err = loadLexAndSentLen(&m.Base, prefix, bin)
	case *IBM2Model:
		if verbose {
			log.Info().Str("file", prefix+SuffIBM2Alig).Msg("Loading alignd file")
		}
		if err = loadLexAndSentLen(&m.Base, prefix, bin); err == nil {
			var alig *table.IBM2AligTable
			if bin {
				alig, err = table.LoadIBM2AligTableBinary(prefix + SuffIBM2Alig)
			} else {
				alig, err = table.LoadIBM2AligTableText(prefix + SuffIBM2Alig)
			}
			if err == nil {
				m.Alig = alig
			}
		}
	case *HMMModel:
		if verbose {
			log.Info().Str("file", prefix+SuffHMMAlig).Msg("Loading hmm_alignd file")
		}
		if err = loadLexAndSentLen(&m.Base, prefix, bin); err == nil {
			var alig *table.HMMAligTable
			if bin {
				alig, err = table.LoadHMMAligTableBinary(prefix + SuffHMMAlig)
			} else {
				alig, err = table.LoadHMMAligTableText(prefix + SuffHMMAlig)
			}
			if err == nil {
				m.Alig = alig
			}
		}
	case *IBM3Model:
		err = loadIBM3(m, prefix, bin)
	case *IBM4Model:
		err = loadIBM4(m, prefix, bin)
	default:
		return waerr.Wrap(waerr.ErrArgument, fmt.Sprintf("unsupported model kind %s", c.Kind()))
	}
	if err != nil {
		c.Clear()
		return waerr.Wrap(waerr.ErrIO, err.Error())
	}
	if b := baseOf(c); b != nil {
		b.SetState(StateLoaded)
	}
	return nil
}

func loadIBM3(m *IBM3Model, prefix string, bin bool) error {
	if err := loadLexAndSentLen(&m.Base, prefix, bin); err != nil {
		return err
	}
	var fert *table.FertilityTable
	var err error
	if bin {
		fert, err = table.LoadFertilityTableBinary(prefix+SuffFertility, MaxFertility)
	} else {
		fert, err = table.LoadFertilityTableText(prefix+SuffFertility, MaxFertility)
	}
	if err != nil {
		return err
	}
	m.Fertility = fert
	var dist *table.IBM3DistortionTable
	if bin {
		dist, err = table.LoadIBM3DistortionTableBinary(prefix + SuffIBM3Dist)
	} else {
		dist, err = table.LoadIBM3DistortionTableText(prefix + SuffIBM3Dist)
	}
	if err != nil {
		return err
	}
	m.Dist = dist
	p1, err := loadP1(prefix + SuffP1)
	if err != nil {
		return err
	}
	m.P1 = p1
	return nil
}

func loadIBM4(m *IBM4Model, prefix string, bin bool) error {
	if err := loadLexAndSentLen(&m.Base, prefix, bin); err != nil {
		return err
	}
	var fert *table.FertilityTable
	var err error
	if bin {
		fert, err = table.LoadFertilityTableBinary(prefix+SuffFertility, MaxFertility)
	} else {
		fert, err = table.LoadFertilityTableText(prefix+SuffFertility, MaxFertility)
	}
	if err != nil {
		return err
	}
	m.Fertility = fert
	var head *table.HeadDistortionTable
	if bin {
		head, err = table.LoadHeadDistortionTableBinary(prefix+SuffHeadDist, m.DistSmooth)
	} else {
		head, err = table.LoadHeadDistortionTableText(prefix+SuffHeadDist, m.DistSmooth)
	}
	if err != nil {
		return err
	}
	m.Head = head
	var nonHead *table.NonHeadDistortionTable
	if bin {
		nonHead, err = table.LoadNonHeadDistortionTableBinary(prefix+SuffNonHeadDist, m.DistSmooth)
	} else {
		nonHead, err = table.LoadNonHeadDistortionTableText(prefix+SuffNonHeadDist, m.DistSmooth)
	}
	if err != nil {
		return err
	}
	m.NonHead = nonHead
	p1, err := loadP1(prefix + SuffP1)
	if err != nil {
		return err
	}
	m.P1 = p1
	return nil
}
