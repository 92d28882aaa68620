// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jobs

import "errors"

var (
	// ErrQueueRequired is returned when a nil queue is provided.
	ErrQueueRequired = errors.New("job queue is required")

	// ErrQueueEmpty is returned by Reserve when no job is visible.
	ErrQueueEmpty = errors.New("no job available")

	// ErrJobNotFound is returned when acknowledging or releasing an unknown job.
	ErrJobNotFound = errors.New("job not found")

	// ErrUnknownJobKind is reported when no handler is registered for a job kind.
	ErrUnknownJobKind = errors.New("unknown job kind")

	// ErrInvalidDocumentID is returned when dispatching an empty document ID.
	ErrInvalidDocumentID = errors.New("document id cannot be empty")

	// ErrHandlerRequired is returned when a runner is created without handlers.
	ErrHandlerRequired = errors.New("at least one job handler is required")

	// ErrJobTimeout is reported when a handler exceeds its job's timeout.
	ErrJobTimeout = errors.New("job exceeded its timeout")

	// ErrHandlerPanic wraps a panic recovered from a job handler.
	ErrHandlerPanic = errors.New("job handler panicked")
)
