package model

// Window summarizes one top-level Java window for list output.
type Window struct {
	Title   string `json:"title" yaml:"title"`
	PID     int32  `json:"pid" yaml:"pid"`
	Process string `json:"process,omitempty" yaml:"process,omitempty"`
	HWND    uint64 `json:"hwnd" yaml:"hwnd"`
}
