package api

import "github.com/peerd-dev/peerd/handles"

type statusInfo struct {
	Counts          handles.Counts `json:"counts"`
	Capacity        int            `json:"capacity"`
	GoroutinesCount int            `json:"goroutines_count"`
}

type counterInfo struct {
	Value uint32 `json:"value"`
}

type setCounterRequest struct {
	Value uint64 `json:"value"`
}

type errorInfo struct {
	Error string `json:"error"`
}
