// Package messages defines the boundary between the scan orchestrator, the
// persistence store and user-facing surfaces. Every message kind is its own
// Go type; Envelope is the JSON wire form routed by its type discriminator.
package messages

import (
	"followscan/pkg/models"
)

// Type discriminates message kinds on the wire
type Type string

const (
	TypeStartScan    Type = "START_SCAN"
	TypeStopScan     Type = "STOP_SCAN"
	TypeScanProgress Type = "SCAN_PROGRESS"
	TypeAccountFound Type = "ACCOUNT_FOUND"
	TypeScanComplete Type = "SCAN_COMPLETE"
	TypeScanError    Type = "SCAN_ERROR"
	TypeGetAccounts  Type = "GET_ACCOUNTS"
	TypeAccountsData Type = "ACCOUNTS_DATA"
	TypeClearData    Type = "CLEAR_DATA"
)

// Message is implemented by every message kind
type Message interface {
	Type() Type
	// Target is the platform the message concerns; empty means all platforms
	Target() models.Platform
}

// StartScan asks the orchestrator to scan one batch. Nil fields take the defaults.
type StartScan struct {
	Platform   models.Platform
	StartIndex *int
	Limit      *int
	ScanMode   models.ScanMode
	// Location is the page the user has open, e.g. https://x.com/me/following
	Location string
}

// Options resolves the batch options, applying defaults for absent fields
func (m StartScan) Options() models.ScanOptions {
	opts := models.DefaultScanOptions()
	if m.StartIndex != nil {
		opts.StartIndex = *m.StartIndex
	}
	if m.Limit != nil {
		opts.Limit = *m.Limit
	}
	if m.ScanMode != "" {
		opts.Mode = m.ScanMode
	}
	return opts.Normalize()
}

// StopScan asks the running scan of Platform to stop at its next checkpoint
type StopScan struct {
	Platform models.Platform
}

// ScanProgress reports the status of a running scan
type ScanProgress struct {
	Progress models.ScanProgress
}

// AccountFound reports one matched account as soon as it is classified
type AccountFound struct {
	Platform models.Platform
	Account  models.Account
}

// ScanComplete carries the matched accounts of a finished batch.
// Partial is set when the scan was stopped early.
type ScanComplete struct {
	Platform models.Platform
	Accounts []models.Account
	Partial  bool
}

// ScanError reports a scan that ended in the error state
type ScanError struct {
	Platform models.Platform
	Error    string
}

// GetAccounts requests stored accounts, of every platform when Platform is empty
type GetAccounts struct {
	Platform models.Platform
}

// AccountsData carries the stored accounts of a platform after a save
type AccountsData struct {
	Platform models.Platform
	Accounts []models.Account
}

// ClearData removes stored data, of every platform when Platform is empty
type ClearData struct {
	Platform models.Platform
}

func (StartScan) Type() Type    { return TypeStartScan }
func (StopScan) Type() Type     { return TypeStopScan }
func (ScanProgress) Type() Type { return TypeScanProgress }
func (AccountFound) Type() Type { return TypeAccountFound }
func (ScanComplete) Type() Type { return TypeScanComplete }
func (ScanError) Type() Type    { return TypeScanError }
func (GetAccounts) Type() Type  { return TypeGetAccounts }
func (AccountsData) Type() Type { return TypeAccountsData }
func (ClearData) Type() Type    { return TypeClearData }

func (m StartScan) Target() models.Platform    { return m.Platform }
func (m StopScan) Target() models.Platform     { return m.Platform }
func (m ScanProgress) Target() models.Platform { return m.Progress.Platform }
func (m AccountFound) Target() models.Platform { return m.Platform }
func (m ScanComplete) Target() models.Platform { return m.Platform }
func (m ScanError) Target() models.Platform    { return m.Platform }
func (m GetAccounts) Target() models.Platform  { return m.Platform }
func (m AccountsData) Target() models.Platform { return m.Platform }
func (m ClearData) Target() models.Platform    { return m.Platform }

// Response answers a request message
type Response struct {
	Success  bool
	Accounts []models.Account
	Error    string
	// HasAccounts marks a GET_ACCOUNTS answer so an empty list is still encoded
	HasAccounts bool
}

// OK is the plain success response
func OK() Response { return Response{Success: true} }

// WithAccounts answers GET_ACCOUNTS
func WithAccounts(accounts []models.Account) Response {
	if accounts == nil {
		accounts = []models.Account{}
	}
	return Response{Accounts: accounts, HasAccounts: true}
}

// Failed answers a request that could not be served
func Failed(msg string) Response { return Response{Error: msg} }
