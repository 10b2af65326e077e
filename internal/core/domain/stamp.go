package domain

import "time"

// BuildStamp records the compile command template of the last successful compile pass.
type BuildStamp struct {
	FlagsHash string    `json:"flagsHash"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}
