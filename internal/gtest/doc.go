// Package gtest contains helpers shared by tests across the module.
//
// Helpers that block always time out and fail the test
// rather than hanging the whole test binary.
package gtest
