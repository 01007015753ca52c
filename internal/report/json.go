package report

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"netpulse/internal/sampler"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Document is the machine-readable report.
type Document struct {
	SessionID       string               `json:"session_id"`
	Interface       string               `json:"interface"`
	Target          string               `json:"target"`
	IntervalSeconds int                  `json:"interval_seconds"`
	State           string               `json:"state"`
	Error           string               `json:"error,omitempty"`
	Records         []sampler.TickRecord `json:"records"`
	Summary         *sampler.Summary     `json:"summary,omitempty"`
}

// NewDocument builds the report; runErr is the loop's error, if any.
func NewDocument(res *sampler.Result, runErr error) Document {
	d := Document{
		SessionID:       res.SessionID,
		Interface:       res.Interface,
		Target:          res.Target,
		IntervalSeconds: int(res.Interval.Seconds()),
		State:           res.State.String(),
		Records:         res.Records,
		Summary:         res.Summary,
	}
	if d.Records == nil {
		d.Records = []sampler.TickRecord{}
	}
	if runErr != nil {
		d.Error = runErr.Error()
	}
	return d
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, res *sampler.Result, runErr error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(res, runErr))
}
