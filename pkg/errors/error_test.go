package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeUnknownOrder, "unknown order %s", "abc123")
	suite.NotNil(err)
	suite.Equal(ErrCodeUnknownOrder, err.Code)
	suite.Equal("unknown order abc123", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("connection reset")
	err := Wrap(ErrCodeStaleData, "market refresh failed", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeStaleData, err.Code)
	suite.Equal("market refresh failed", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("status 500")
	err := Wrapf(ErrCodeTransientNetwork, cause, "fetch %s failed", "/account")
	suite.NotNil(err)
	suite.Equal(ErrCodeTransientNetwork, err.Code)
	suite.Equal("fetch /account failed", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeStaleData, "balance refresh failed", cause)
	suite.Equal("[300] balance refresh failed: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeStaleData, "stale", cause)
	suite.Equal(cause, err.Unwrap())
	suite.Nil(New(ErrCodeInvalidParameter, "invalid").Unwrap())
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeTransientNetwork, "timeout")
	err := Wrap(ErrCodeStaleData, "market refresh failed", cause)
	// GetCode should return the outermost error's code
	suite.Equal(ErrCodeStaleData, GetCode(err))
	suite.True(Is(err, cause))
}

func (suite *ErrorTestSuite) TestGetCodeThroughFmtWrap() {
	err := fmt.Errorf("context: %w", New(ErrCodeOrderNotCancelable, "order is FILLED"))
	suite.Equal(ErrCodeOrderNotCancelable, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromStandardError() {
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("standard error")))
	suite.Equal(ErrCodeUnknown, GetCode(nil))
}

func (suite *ErrorTestSuite) TestAsError() {
	err := New(ErrCodeAuthConfig, "api key is missing")
	var codedErr *Error
	suite.True(As(err, &codedErr))
	suite.Equal(ErrCodeAuthConfig, codedErr.Code)
}

func (suite *ErrorTestSuite) TestTaxonomyHelpers() {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"auth config", New(ErrCodeAuthConfig, "x"), IsAuthConfig},
		{"stale data", New(ErrCodeStaleData, "x"), IsStaleData},
		{"data integrity", New(ErrCodeDataIntegrity, "x"), IsDataIntegrity},
		{"order rejected", New(ErrCodeOrderRejected, "x"), IsOrderRejected},
		{"not cancelable", New(ErrCodeOrderNotCancelable, "x"), IsOrderNotCancelable},
		{"unknown order", New(ErrCodeUnknownOrder, "x"), IsUnknownOrder},
		{"transient network", New(ErrCodeTransientNetwork, "x"), IsTransientNetwork},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.True(tc.check(tc.err))
			suite.False(tc.check(New(ErrCodeUnknown, "other")))
		})
	}
}

func (suite *ErrorTestSuite) TestErrorCodeValues() {
	suite.Equal(ErrorCode(1), ErrCodeUnknown)
	suite.Equal(ErrorCode(100), ErrCodeInvalidParameter)
	suite.Equal(ErrorCode(200), ErrCodeAuthConfig)
	suite.Equal(ErrorCode(300), ErrCodeStaleData)
	suite.Equal(ErrorCode(500), ErrCodeOrderRejected)
	suite.Equal(ErrorCode(600), ErrCodeTransientNetwork)
	suite.Equal(ErrorCode(800), ErrCodePublishFailed)
}
