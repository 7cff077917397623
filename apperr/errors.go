package apperr

import (
	"errors"
	"fmt"
)

// Code groups failures by how the order flow reacts to them.
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeOutOfArea  Code = "OUT_OF_AREA"
	CodeDependency Code = "DEPENDENCY_ERROR"
	CodeInternal   Code = "INTERNAL_ERROR"
)

// retryable marks codes whose failures may clear up on a later attempt.
var retryable = map[Code]bool{
	CodeDependency: true,
}

type Error struct {
	code    Code
	message string
	err     error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{code: code, message: message, err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

// as returns the outermost *Error in err's chain.
func as(err error) *Error {
	var target *Error
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var target *Error
		if !errors.As(err, &target) {
			return false
		}
		if target.code == code {
			return true
		}
		err = target.err
	}
	return false
}

// CodeOf returns the code of the outermost *Error, or CodeInternal.
func CodeOf(err error) Code {
	if e := as(err); e != nil {
		return e.code
	}
	return CodeInternal
}

// Retryable reports whether err's code marks a transient failure.
func Retryable(err error) bool {
	return err != nil && retryable[CodeOf(err)]
}
