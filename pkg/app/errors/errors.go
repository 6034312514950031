// Package errors contains helper functions and types to classify failures
// raised while driving the dApp and the wallet popup.
package errors

import (
	"errors"
	"fmt"
)

// Category defines error category
type Category int

const (
	// CategoryNoError marks a successful step.
	CategoryNoError Category = iota
	// CategoryTimeout A mandatory wait (control visibility, click, navigation)
	// elapsed before the expected state was reached.
	CategoryTimeout
	// CategoryPopupTimeout No wallet popup window surfaced within the popup timeout.
	CategoryPopupTimeout
	// CategoryElementNotFound A page-object read target never became visible.
	CategoryElementNotFound
	// CategoryDriverFailure The browser driver failed for a reason other than a timeout.
	CategoryDriverFailure
	// CategoryConfig The suite was started with unusable settings.
	CategoryConfig
)

func (c Category) String() string {
	switch c {
	case CategoryNoError:
		return "CategoryNoError"
	case CategoryTimeout:
		return "CategoryTimeout"
	case CategoryPopupTimeout:
		return "CategoryPopupTimeout"
	case CategoryElementNotFound:
		return "CategoryElementNotFound"
	case CategoryConfig:
		return "CategoryConfig"
	default:
		return "CategoryDriverFailure"
	}
}

// AutomationError is the error type returned by page objects and the wallet helper.
type AutomationError struct {
	Category Category
	// Op names the operation that failed, e.g. "confirm transaction".
	Op string
	// Selector is the element the operation was waiting on, if any.
	Selector string
	Err      error
}

// Error method to comply with error interface
func (err *AutomationError) Error() string {
	msg := err.Op
	if err.Selector != "" {
		msg = fmt.Sprintf("%s [%s]", msg, err.Selector)
	}
	if err.Err != nil {
		return fmt.Sprintf("%s: %s: %v", err.Category, msg, err.Err)
	}
	return fmt.Sprintf("%s: %s", err.Category, msg)
}

// Unwrap returns the underlying error
func (err *AutomationError) Unwrap() error {
	return err.Err
}

// Is checks that provided error is an AutomationError with desired Category
func Is(err error, cat Category) bool {
	var autoErr *AutomationError
	if errors.As(err, &autoErr) && autoErr.Category == cat {
		return true
	}
	return false
}

// IsTimeout reports whether err comes from any elapsed mandatory wait:
// a control wait, a popup wait or a page-object read.
func IsTimeout(err error) bool {
	var autoErr *AutomationError
	if !errors.As(err, &autoErr) {
		return false
	}
	switch autoErr.Category {
	case CategoryTimeout, CategoryPopupTimeout, CategoryElementNotFound:
		return true
	default:
		return false
	}
}

// PopupTimeoutError returns an error with category PopupTimeout
func PopupTimeoutError(err error) error {
	if err == nil {
		err = errors.New("no popup window appeared")
	}
	return &AutomationError{
		Category: CategoryPopupTimeout,
		Op:       "await wallet popup",
		Err:      err,
	}
}

// TimeoutError returns an error with category Timeout
func TimeoutError(err error, op, selector string) error {
	if err == nil {
		err = errors.New("timed out")
	}
	return &AutomationError{
		Category: CategoryTimeout,
		Op:       op,
		Selector: selector,
		Err:      err,
	}
}

// ElementNotFoundError returns an error with category ElementNotFound
func ElementNotFoundError(err error, op, selector string) error {
	if err == nil {
		err = errors.New("element not visible")
	}
	return &AutomationError{
		Category: CategoryElementNotFound,
		Op:       op,
		Selector: selector,
		Err:      err,
	}
}

// DriverError returns an error with category DriverFailure
func DriverError(err error, op, selector string) error {
	if err == nil {
		err = errors.New("driver failure")
	}
	return &AutomationError{
		Category: CategoryDriverFailure,
		Op:       op,
		Selector: selector,
		Err:      err,
	}
}

// ConfigError returns an error with category Config
func ConfigError(err error, message string) error {
	if err == nil {
		err = errors.New(message)
	}
	return &AutomationError{
		Category: CategoryConfig,
		Op:       message,
		Err:      err,
	}
}
