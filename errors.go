package adaptiveq

import "errors"

var (
	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("adaptiveq: unsupported document format")

	// ErrExtractionFailed is returned when text extraction from a document fails.
	ErrExtractionFailed = errors.New("adaptiveq: extraction failed")

	// ErrContentTooShort is returned when extracted text is below min_text_chars.
	ErrContentTooShort = errors.New("adaptiveq: content too short")

	// ErrIndexUnavailable is returned when the embedding backend is unreachable.
	ErrIndexUnavailable = errors.New("adaptiveq: embedding index unavailable")

	// ErrGenerationFailed marks an internal generation failure; callers of
	// the orchestrator never see this because rqg.Generate always falls
	// back to templates instead of propagating it.
	ErrGenerationFailed = errors.New("adaptiveq: question generation failed")

	// ErrDocumentNotFound is returned when a document id does not exist.
	ErrDocumentNotFound = errors.New("adaptiveq: document not found")

	// ErrDocumentNotReady is returned when generate is requested on a
	// document that has not finished ingesting.
	ErrDocumentNotReady = errors.New("adaptiveq: document not ready")

	// ErrQuestionNotFound is returned when a question id does not exist.
	ErrQuestionNotFound = errors.New("adaptiveq: question not found")

	// ErrNoQuestionsAvailable is returned by the selector when no question
	// satisfies the filter even after widening and dropping exclusions.
	ErrNoQuestionsAvailable = errors.New("adaptiveq: no questions available")

	// ErrStaleRecord is returned when an optimistic compare-and-swap on an
	// AbilityRecord's version loses a race, after the single internal retry.
	ErrStaleRecord = errors.New("adaptiveq: stale ability record")

	// ErrStoreUnavailable is returned for persistence failures.
	ErrStoreUnavailable = errors.New("adaptiveq: store unavailable")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("adaptiveq: invalid configuration")

	// ErrCancelled is returned when a request context is cancelled mid-flight.
	ErrCancelled = errors.New("adaptiveq: request cancelled")
)
