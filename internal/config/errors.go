package config

import "errors"

var (
	ErrComponentNameEmpty     = errors.New("component name is empty")
	ErrComponentNameDuplicate = errors.New("component name is duplicated")
	ErrKubeDeploymentEmpty    = errors.New("kube driver requires a deployment")
	ErrDriverUnknown          = errors.New("unknown component driver")
	ErrWindowHoursInvalid     = errors.New("window hours out of range")
	ErrWeekdayUnknown         = errors.New("unknown weekday name")
)
