package main

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/juno-cash/juno-keys/errorcodes"
)

// envelopeVersion is the version of the JSON output format.
const envelopeVersion = "v1"

const (
	statusOK  = "ok"
	statusErr = "err"
)

// envelope is the JSON document every command prints in --json mode.
type envelope struct {
	Version string         `json:"version"`
	Status  string         `json:"status"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *envelopeError `json:"error,omitempty"`
}

type envelopeError struct {
	Code    errorcodes.Code `json:"code"`
	Message string          `json:"message"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func writeOK(w io.Writer, data interface{}) error {
	return json.NewEncoder(w).Encode(&envelope{
		Version: envelopeVersion,
		Status:  statusOK,
		Data:    data,
	})
}

func writeErr(w io.Writer, code errorcodes.Code, msg string) error {
	return json.NewEncoder(w).Encode(&envelope{
		Version: envelopeVersion,
		Status:  statusErr,
		Error: &envelopeError{
			Code:    code,
			Message: msg,
		},
	})
}
