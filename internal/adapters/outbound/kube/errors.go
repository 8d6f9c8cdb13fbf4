package kube

import "errors"

// ErrTargetUnknown is returned for component names with no configured target.
var ErrTargetUnknown = errors.New("target unknown")

// TooManyRequestsError represents a "too many requests" case that is not an error.
type TooManyRequestsError struct{}

func (e *TooManyRequestsError) Error() string {
	return "too many requests"
}

func (e *TooManyRequestsError) IsTooManyRequests() {}

var errTooManyRequests = &TooManyRequestsError{}

// DeploymentNotFoundError represents a "not found" case that is not an error.
type DeploymentNotFoundError struct{}

func (e *DeploymentNotFoundError) Error() string {
	return "deployment not found"
}

func (e *DeploymentNotFoundError) IsNotFound() {}

var errDeploymentNotFound = &DeploymentNotFoundError{}
