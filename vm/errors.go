package vm

import "errors"

var (
	errHostOutOfGas   = errors.New("vm: out of gas")
	errTooManyTopics  = errors.New("vm: event exceeds MaxEventTopics")
	errSubjectTooLong = errors.New("vm: random subject exceeds MaxSubjectLen")
)
