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

// Package waerr defines the error kinds shared by the alignment core:
// I/O, Argument, Numeric, Resource and Cancelled. Table lookups use the
// softer (value, found) convention instead and never return these.
package waerr

import "errors"

var (
	// ErrIO covers a missing/unreadable file, a short read or a
	// malformed on-disk record.
	ErrIO = errors.New("I/O error")

	// ErrArgument covers inconsistent dimensions or an unknown model
	// name passed on the CLI or in a config file.
	ErrArgument = errors.New("argument error")

	// ErrNumeric marks a NaN detected in a posterior. The offending
	// sentence pair is skipped and a counter is incremented; this
	// error never aborts the whole iteration.
	ErrNumeric = errors.New("numeric error")

	// ErrResource covers allocation failure for an E-step matrix; the
	// iteration aborts cleanly when this occurs.
	ErrResource = errors.New("resource error")

	// ErrCancelled is returned by the trainer when cancellation was
	// observed at a chunk boundary.
	ErrCancelled = errors.New("cancelled")
)

// Wrap annotates err with msg while preserving errors.Is matching
// against one of the sentinels above.
func Wrap(kind error, msg string) error {
	return errors.Join(kind, errors.New(msg))
}
