// Package controller owns the workflow session: the opaque session id, the
// mapping editor state seeded by the upload response, the current result
// set, and the sort/page selection. State moves through a small machine:
//
//	NoSession --upload--> Uploaded --compare--> Compared --compare--> Compared
//
// A fresh upload from any stage returns to Uploaded with all prior mapping
// and result state discarded. Failures never transition; the previous state
// stays intact and visible.
package controller

import (
	"github.com/orderrecon/orderrecon/internal/comparator"
	"github.com/orderrecon/orderrecon/internal/recon"
	"github.com/orderrecon/orderrecon/internal/table"
)

// Stage is the position in the workflow state machine.
type Stage int

const (
	StageNoSession Stage = iota
	StageUploaded
	StageCompared
)

func (s Stage) String() string {
	switch s {
	case StageNoSession:
		return "no_session"
	case StageUploaded:
		return "uploaded"
	case StageCompared:
		return "compared"
	}
	return "unknown"
}

// State is one immutable snapshot of the workflow session. Transitions
// build a new State rather than mutating in place, so a snapshot handed to
// a renderer can never change underneath it.
type State struct {
	Stage     Stage
	SessionID string

	// Mapping editor state, seeded by the upload response.
	RequiredKeys    []string
	OfficialColumns []string
	ServiceColumns  []string
	OfficialMapping map[string]string
	ServiceMapping  map[string]string
	OfficialMissing []string
	ServiceMissing  []string

	// Result state, replaced wholesale by each compare response.
	Rows     []recon.Row
	Summary  recon.Summary
	Warnings []string

	Sort table.SortState
	Page table.PageState
}

func initialState() State {
	return State{
		Stage: StageNoSession,
		Sort:  table.DefaultSort(),
		Page:  table.DefaultPage(),
	}
}

// applyUpload installs a fresh session from an upload response, discarding
// every trace of the previous one including results and sort selection.
func applyUpload(res *comparator.UploadResult) State {
	s := initialState()
	s.Stage = StageUploaded
	s.SessionID = res.SessionID
	s.RequiredKeys = res.RequiredKeys
	s.OfficialColumns = res.OfficialColumns
	s.ServiceColumns = res.ServiceColumns
	s.OfficialMapping = res.OfficialAutoMapping
	s.ServiceMapping = res.ServiceAutoMapping
	s.OfficialMissing = res.OfficialMissing
	s.ServiceMissing = res.ServiceMissing
	return s
}

// applyCompare installs a compare result: the row set, summary and warnings
// are replaced wholesale and the page resets to 1. The sort selection and
// the submitted mappings survive, so re-comparing after a mapping edit keeps
// the user's view.
func applyCompare(s State, officialMapping, serviceMapping map[string]string, res *comparator.CompareResult) State {
	next := s
	next.Stage = StageCompared
	next.OfficialMapping = officialMapping
	next.ServiceMapping = serviceMapping
	next.Rows = res.Rows
	next.Summary = res.Summary
	next.Warnings = res.Warnings
	next.Page = table.DefaultPage()
	return next
}

// applySort toggles or switches the sort key.
func applySort(s State, key string) State {
	next := s
	next.Sort = s.Sort.Toggle(key)
	return next
}

// applyPage moves to the clamped target page.
func applyPage(s State, target int) State {
	next := s
	total := table.TotalPages(len(s.Rows), s.Page.Size)
	next.Page = table.PageState{Current: table.ClampPage(target, total), Size: s.Page.Size}
	return next
}
