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

package core

import (
	"fmt"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Owner must not be empty
//   - Title must not be empty
//   - Source must be upload, url or raw
//   - Status must be a known lifecycle state
//   - StoragePath and URL must not both be set
//
// NOT validated:
//   - ID (assigned by the repository when empty)
//   - Error (free text)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Owner == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyOwner)
	}

	if doc.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyTitle)
	}

	if err := ValidateSourceType(doc.Source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if err := ValidateStatus(doc.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if doc.StoragePath != "" && doc.URL != "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrConflictingLocators)
	}

	return nil
}

// ValidateFragment validates a Fragment against the expected vector dimension.
//
// Validation rules:
//   - Owner and DocumentID must not be empty
//   - Ordinal must not be negative
//   - Vector must have exactly dim entries
//
// Empty Content is valid: empty documents yield a single empty fragment.
func ValidateFragment(fragment *Fragment, dim int) error {
	if fragment == nil {
		return fmt.Errorf("%w: fragment is nil", ErrInvalidFragment)
	}

	if fragment.Owner == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFragment, ErrEmptyOwner)
	}

	if fragment.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFragment, ErrEmptyDocumentID)
	}

	if fragment.Ordinal < 0 {
		return fmt.Errorf("%w: negative ordinal %d", ErrInvalidFragment, fragment.Ordinal)
	}

	if len(fragment.Vector) != dim {
		return fmt.Errorf("%w: %w: got %d, want %d", ErrInvalidFragment, ErrDimensionMismatch, len(fragment.Vector), dim)
	}

	return nil
}

// ValidateSourceType validates that a SourceType has a known value.
func ValidateSourceType(source SourceType) error {
	switch source {
	case SourceTypeUpload, SourceTypeURL, SourceTypeRaw:
		return nil
	default:
		return fmt.Errorf("%w: value %q", ErrInvalidSourceType, source)
	}
}

// ValidateStatus validates that a DocumentStatus has a known value.
func ValidateStatus(status DocumentStatus) error {
	switch status {
	case StatusPending, StatusProcessing, StatusReady, StatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: value %q", ErrInvalidStatus, status)
	}
}

// ValidateTransition checks a lifecycle step from one status to another.
func ValidateTransition(from, to DocumentStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
