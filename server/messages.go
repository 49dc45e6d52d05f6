package server

import "github.com/derwiath/adventofcode-2019/calibrate"

// RunRequest executes a program once. Noun and Verb, when set, are written
// to addresses 1 and 2 before the run.
type RunRequest struct {
	Program string  `json:"program"`
	Noun    *uint64 `json:"noun,omitempty"`
	Verb    *uint64 `json:"verb,omitempty"`
	Strict  bool    `json:"strict,omitempty"`
}

// RunResponse reports the final memory of a halted run.
type RunResponse struct {
	Result uint64 `json:"result"`
	Memory string `json:"memory"`
	Steps  int    `json:"steps"`
	IP     int    `json:"ip"`
}

// CalibrateRequest searches for the noun/verb pair producing Target.
type CalibrateRequest struct {
	Program    string            `json:"program"`
	Target     uint64            `json:"target"`
	NounDomain *calibrate.Domain `json:"noun_domain,omitempty"`
	VerbDomain *calibrate.Domain `json:"verb_domain,omitempty"`
	Workers    int               `json:"workers,omitempty"`
	Strict     bool              `json:"strict,omitempty"`
}

// CalibrateResponse reports a search outcome. An exhausted domain is a
// normal response with Found false.
type CalibrateResponse struct {
	Found     bool   `json:"found"`
	Noun      uint64 `json:"noun"`
	Verb      uint64 `json:"verb"`
	Answer    uint64 `json:"answer"`
	Trials    int    `json:"trials"`
	Faults    int    `json:"faults"`
	Cached    bool   `json:"cached"`
	ImageHash string `json:"image_hash"`

	// Set on a not-found search. AllFaulted means no trial ran to
	// completion, so the program itself is suspect.
	AllFaulted bool   `json:"all_faulted,omitempty"`
	FirstFault string `json:"first_fault,omitempty"`
}

// DisassembleRequest asks for a listing of a program.
type DisassembleRequest struct {
	Program string `json:"program"`
	Name    string `json:"name,omitempty"`
}

// DisassembleResponse carries the listing text.
type DisassembleResponse struct {
	Listing string `json:"listing"`
}
